package enrich

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/reconcile"
	"github.com/venturedesk/sourcing-cli/internal/refdata"
	"github.com/venturedesk/sourcing-cli/internal/store"
	"github.com/venturedesk/sourcing-cli/pkg/qa"
)

const tagSystemPrompt = `**Role:**
You are a senior investment analyst at an entrepreneur-focused venture capital firm. Your expertise lies in deep-dive company analysis for two strategic funds:
1. **CG fund:** Focused on B2B software and services for the enterprise-services ecosystem (Enterprise AI, Cloud, Digital Transformation, Sustainability).
2. **BY fund:** Focused on ConTech and PropTech (sustainable construction, smart cities, energy efficiency, infrastructure).

**Objective:**
Your task is to define tags for a company based on the provided information.

**Analysis Guidelines:**
1. **Industries served:** The most important part of this analysis is the industries served by the company. Use the use cases and the solution description to identify them.
2. **GTM target:** Identify the nature of the targeted clients. Give the generic label (gtm_target) and, when relevant, the BY-fund-specific label (gtm_target_by); leave the latter null otherwise.
3. **Business model:** Identify the business model among the provided list.
4. **Business map:** Associate a business from the list if relevant, else set to null.
5. **Technology tags:** There is no fixed list; keep tags concise, accurate and relevant for VC sourcing.
6. **No hallucinations:** Only use the information provided in the input context.

**Output Format:**
Return only a valid JSON object with exactly these fields:
- "sorted_industries_served": 1 to 4 industries from the Industries list, most relevant first
- "small_explanation_of_industries_sorting": short rationale for the ordering
- "gtm_target": one value from the GTM Target list
- "gtm_target_by": one value from the BY-specific GTM Target list, or null
- "business_model": one value from the Business Models list
- "business_map": one value from the Business Maps list, or null
- "tech_tags": free-form list of technology tags

### Fields and Tags Descriptions:
`

// companyTags mirrors the JSON object the model must return.
type companyTags struct {
	SortedIndustriesServed []string `json:"sorted_industries_served"`
	IndustriesExplanation  string   `json:"small_explanation_of_industries_sorting"`
	GTMTarget              string   `json:"gtm_target"`
	GTMTargetBY            *string  `json:"gtm_target_by"`
	BusinessModel          string   `json:"business_model"`
	BusinessMap            *string  `json:"business_map"`
	TechTags               []string `json:"tech_tags"`
}

// tagPrompt renders the allowed-value sections appended to the system
// prompt.
func tagPrompt(tax *refdata.Taxonomies) string {
	var b strings.Builder

	b.WriteString("### Industries:\n")
	for _, i := range tax.Industries {
		b.WriteString(i.Name + ": " + i.Description + "\n")
	}
	b.WriteString("\n### GTM Target:\n")
	for _, t := range tax.GTMTargets {
		b.WriteString(t.Target + ": " + t.Description + "\n")
	}
	b.WriteString("\n### GTM Target (BY fund specific):\n")
	for _, t := range tax.GTMTargetsBY {
		b.WriteString(t.Target + ": " + t.Description + "\n")
	}
	b.WriteString("\n### Business Models:\n")
	for _, v := range tax.BusinessModels {
		b.WriteString(v.Name + ": " + v.Description + "\n")
	}
	b.WriteString("\n### Business Maps:\n")
	for _, v := range tax.BusinessMaps {
		b.WriteString(v.Name + ": " + v.Description + "\n")
	}
	return b.String()
}

// validateTags checks every answered value against its taxonomy. The
// model occasionally invents labels; those answers are discarded whole
// rather than half-applied.
func validateTags(tags *companyTags, tax *refdata.Taxonomies) error {
	if len(tags.SortedIndustriesServed) == 0 {
		return eris.New("enrich: no industries in answer")
	}
	scopes := tax.IndustryScopes()
	for _, ind := range tags.SortedIndustriesServed {
		if _, ok := scopes[ind]; !ok {
			return eris.Errorf("enrich: unknown industry %q", ind)
		}
	}
	if !containsTarget(tax.GTMTargets, tags.GTMTarget) {
		return eris.Errorf("enrich: unknown gtm target %q", tags.GTMTarget)
	}
	if tags.GTMTargetBY != nil && !containsTarget(tax.GTMTargetsBY, *tags.GTMTargetBY) {
		return eris.Errorf("enrich: unknown gtm target by %q", *tags.GTMTargetBY)
	}
	if !containsValue(tax.BusinessModels, tags.BusinessModel) {
		return eris.Errorf("enrich: unknown business model %q", tags.BusinessModel)
	}
	if tags.BusinessMap != nil && !containsValue(tax.BusinessMaps, *tags.BusinessMap) {
		return eris.Errorf("enrich: unknown business map %q", *tags.BusinessMap)
	}
	return nil
}

func containsTarget(targets []refdata.GTMTarget, v string) bool {
	for _, t := range targets {
		if t.Target == v {
			return true
		}
	}
	return false
}

func containsValue(values []refdata.TagValue, v string) bool {
	for _, t := range values {
		if t.Name == v {
			return true
		}
	}
	return false
}

// industryDerivation carries the columns deduced from the sorted
// industry list.
type industryDerivation struct {
	Scope             string
	PrimarySectorCG   *string
	PrimaryIndustryCG *string
	PrimarySectorBY   *string
	PrimaryIndustryBY *string
}

// deriveIndustryTags computes the fund scope and the primary
// sector/industry per fund. Scope is BY or CG only when every industry
// belongs to that fund alone; anything mixed is BOTH. The primary per
// fund is the first listed industry of that fund's scope.
func deriveIndustryTags(industries []string, scopes, sectors map[string]string) industryDerivation {
	onlyBY, onlyCG := true, true
	for _, ind := range industries {
		switch scopes[ind] {
		case "BY":
			onlyCG = false
		case "CG":
			onlyBY = false
		default:
			onlyBY, onlyCG = false, false
		}
	}

	d := industryDerivation{Scope: "BOTH"}
	switch {
	case onlyBY && !onlyCG:
		d.Scope = "BY"
	case onlyCG && !onlyBY:
		d.Scope = "CG"
	}

	for _, ind := range industries {
		sector := sectors[ind]
		if scopes[ind] == "CG" && d.PrimaryIndustryCG == nil {
			d.PrimaryIndustryCG, d.PrimarySectorCG = ptr(ind), ptr(sector)
		}
		if scopes[ind] == "BY" && d.PrimaryIndustryBY == nil {
			d.PrimaryIndustryBY, d.PrimarySectorBY = ptr(ind), ptr(sector)
		}
		if d.PrimaryIndustryCG != nil && d.PrimaryIndustryBY != nil {
			break
		}
	}
	return d
}

func ptr[T any](v T) *T { return &v }

// Tags runs the tag-annotation stage: each company's scraped dossier is
// tagged by the model against the runtime taxonomies, and the validated
// answers land in business_computed_values.
func Tags(ctx context.Context, st store.Store, model Asker, domains []string) (reconcile.Stats, error) {
	log := zap.L().With(zap.String("stage", "annotate_company_tags"))
	log.Info("starting tag annotation", zap.Int("domains", len(domains)))

	tax, err := refdata.LoadTaxonomies(ctx, st)
	if err != nil {
		return reconcile.Stats{}, err
	}

	records, err := fetchEnrichment(ctx, st, domains)
	if err != nil {
		return reconcile.Stats{}, err
	}
	log.Info("fetched enrichment records", zap.Int("records", len(records)))
	if len(records) == 0 {
		return reconcile.Stats{Skipped: len(domains)}, nil
	}

	systemPrompt := tagSystemPrompt + tagPrompt(tax)
	questions := make([]qa.Question, len(records))
	for i, r := range records {
		questions[i] = qa.Question{
			TextContent:  buildDescription(r),
			Question:     "Please provide the tags for this company",
			SystemPrompt: systemPrompt,
		}
	}

	answers, err := model.AskBatch(ctx, questions)
	if err != nil {
		return reconcile.Stats{}, eris.Wrap(err, "enrich: annotate tags")
	}

	scopes, sectors := tax.IndustryScopes(), tax.IndustrySectors()
	rows := make([]store.Row, 0, len(records))
	for i, r := range records {
		domain, _ := r["domain"].(string)
		if answers[i] == nil {
			continue
		}
		var tags companyTags
		if err := answers[i].Decode(&tags); err != nil {
			log.Warn("undecodable tag answer", zap.String("domain", domain), zap.Error(err))
			continue
		}
		if err := validateTags(&tags, tax); err != nil {
			log.Warn("invalid tag answer", zap.String("domain", domain), zap.Error(err))
			continue
		}

		d := deriveIndustryTags(tags.SortedIndustriesServed, scopes, sectors)
		rows = append(rows, store.Row{
			"domain":                       domain,
			"all_industries_served_sorted": tags.SortedIndustriesServed,
			"gtm_target":                   tags.GTMTarget,
			"gtm_target_by":                deref(tags.GTMTargetBY),
			"business_model":               tags.BusinessModel,
			"business_mapping":             deref(tags.BusinessMap),
			"tech_tags_dynamic":            tags.TechTags,
			"scope":                        d.Scope,
			"primary_sector_served_cg":     deref(d.PrimarySectorCG),
			"primary_industry_served_cg":   deref(d.PrimaryIndustryCG),
			"primary_sector_served_by":     deref(d.PrimarySectorBY),
			"primary_industry_served_by":   deref(d.PrimaryIndustryBY),
		})
	}

	if len(rows) > 0 {
		if err := st.Upsert(ctx, "business_computed_values", []string{"domain"}, rows); err != nil {
			return reconcile.Stats{}, eris.Wrap(err, "enrich: upsert tags")
		}
	}

	stats := reconcile.Stats{Processed: len(rows), Skipped: len(domains) - len(rows)}
	log.Info("tag annotation complete",
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// deref lifts a *string into a nullable column value.
func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
