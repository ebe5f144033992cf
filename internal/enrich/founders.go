package enrich

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/normalize"
	"github.com/venturedesk/sourcing-cli/internal/reconcile"
	"github.com/venturedesk/sourcing-cli/internal/store"
	"github.com/venturedesk/sourcing-cli/pkg/qa"
)

const serialEntrepreneurPrompt = `You are an analyst determining whether any founder of a company is a serial entrepreneur.
A serial entrepreneur is someone who has founded at least one other company BEFORE the current one.

Rules:
- Only use the information provided. Do not hallucinate.
- If the information is unclear or insufficient, default to serial_entrepreneur = false.
- Being an employee, advisor, or investor at another company does NOT count, only founding counts.

Return only a valid JSON object with exactly these fields:
- "serial_entrepreneur": boolean, whether any founder has founded a company before the current one
- "reason": concise reason, e.g. "Yes, X founded Y before Z" or "No evidence of prior founding"`

// serialAnalysis mirrors the JSON object the model must return.
type serialAnalysis struct {
	SerialEntrepreneur bool   `json:"serial_entrepreneur"`
	Reason             string `json:"reason"`
}

// founderBackground renders the founder roster of one company as the
// text handed to the model.
func founderBackground(founders []store.Row) string {
	parts := make([]string, 0, len(founders))
	for _, f := range founders {
		name := strOrDefault(f["name"], "Unknown")
		role := strOrDefault(f["role"], "Unknown")
		line := "### " + name + " [" + role + "]"
		if desc := normalize.Str(f["description"]); desc != nil {
			line += ": " + *desc
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "\n")
}

func strOrDefault(v any, def string) string {
	if s := normalize.Str(v); s != nil {
		return *s
	}
	return def
}

// SerialEntrepreneurs runs the founder-analysis stage: each company's
// founder roster is summarized and the model judges whether any founder
// built a company before this one. Companies without founders are
// skipped; unanswered questions write nothing.
func SerialEntrepreneurs(ctx context.Context, st store.Store, model Asker, domains []string) (reconcile.Stats, error) {
	log := zap.L().With(zap.String("stage", "compute_founders_values"))
	log.Info("starting founder analysis", zap.Int("domains", len(domains)))

	companyRows, err := st.FetchIn(ctx, "companies", "domain", domains, []string{"id", "domain", "name"})
	if err != nil {
		return reconcile.Stats{}, eris.Wrap(err, "enrich: fetch companies")
	}
	idToDomain := make(map[string]string, len(companyRows))
	nameByDomain := make(map[string]string, len(companyRows))
	ids := make([]string, 0, len(companyRows))
	for _, r := range companyRows {
		id, _ := r["id"].(string)
		domain, _ := r["domain"].(string)
		if id == "" || domain == "" {
			continue
		}
		idToDomain[id] = domain
		nameByDomain[domain] = strOrDefault(r["name"], domain)
		ids = append(ids, id)
	}
	log.Info("fetched companies", zap.Int("companies", len(ids)))

	founderRows, err := st.FetchIn(ctx, "founders", "company_id", ids,
		[]string{"company_id", "name", "role", "description"})
	if err != nil {
		return reconcile.Stats{}, eris.Wrap(err, "enrich: fetch founders")
	}
	log.Info("fetched founders", zap.Int("founders", len(founderRows)))

	foundersByDomain := make(map[string][]store.Row)
	for _, f := range founderRows {
		id, _ := f["company_id"].(string)
		if domain, ok := idToDomain[id]; ok {
			foundersByDomain[domain] = append(foundersByDomain[domain], f)
		}
	}

	var questions []qa.Question
	var questionDomains []string
	backgrounds := make(map[string]string)
	for _, domain := range domains {
		founders := foundersByDomain[domain]
		if len(founders) == 0 {
			continue
		}
		background := founderBackground(founders)
		backgrounds[domain] = background
		questions = append(questions, qa.Question{
			TextContent:  background,
			Question:     "Has any of these founders founded a company before " + nameByDomain[domain] + "?",
			SystemPrompt: serialEntrepreneurPrompt,
		})
		questionDomains = append(questionDomains, domain)
	}
	if len(questions) == 0 {
		log.Info("no founder rosters to analyze")
		return reconcile.Stats{Skipped: len(domains)}, nil
	}

	answers, err := model.AskBatch(ctx, questions)
	if err != nil {
		return reconcile.Stats{}, eris.Wrap(err, "enrich: founder analysis")
	}

	rows := make([]store.Row, 0, len(questions))
	for i, domain := range questionDomains {
		if answers[i] == nil {
			continue
		}
		var analysis serialAnalysis
		if err := answers[i].Decode(&analysis); err != nil {
			log.Warn("undecodable founder answer", zap.String("domain", domain), zap.Error(err))
			continue
		}
		rows = append(rows, store.Row{
			"domain":              domain,
			"founders_background": backgrounds[domain],
			"serial_entrepreneur": analysis.SerialEntrepreneur,
		})
	}

	if len(rows) > 0 {
		if err := st.Upsert(ctx, "business_computed_values", []string{"domain"}, rows); err != nil {
			return reconcile.Stats{}, eris.Wrap(err, "enrich: upsert founder analysis")
		}
	}

	stats := reconcile.Stats{Processed: len(rows), Skipped: len(domains) - len(rows)}
	log.Info("founder analysis complete",
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}
