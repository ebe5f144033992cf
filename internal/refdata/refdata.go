package refdata

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/venturedesk/sourcing-cli/internal/normalize"
	"github.com/venturedesk/sourcing-cli/internal/store"
)

// Reference list categories, keyed by the table each one lives in.
// CG = the enterprise-services fund scope, BY = the construction fund
// scope; both keep their own competitor and platform lists.
const (
	TableBYCompetitors = "by_competitors"
	TableBYPlatforms   = "by_platforms"
	TableCGCompetitors = "cap_competitors"
	TableCGSWPartners  = "cap_sw_partners"
	TableGlobal2000    = "global_2000"
)

// ReferenceLists holds the curated company-name lists used by the
// fuzzy-matching stage.
type ReferenceLists struct {
	BYCompetitors []string
	BYPlatforms   []string
	CGCompetitors []string
	CGSWPartners  []string
	Global2000    []string
}

// LoadReferenceLists reads every reference list from the store.
func LoadReferenceLists(ctx context.Context, st store.Store) (*ReferenceLists, error) {
	lists := &ReferenceLists{}
	for _, target := range []struct {
		table string
		dst   *[]string
	}{
		{TableBYCompetitors, &lists.BYCompetitors},
		{TableBYPlatforms, &lists.BYPlatforms},
		{TableCGCompetitors, &lists.CGCompetitors},
		{TableCGSWPartners, &lists.CGSWPartners},
		{TableGlobal2000, &lists.Global2000},
	} {
		names, err := loadNames(ctx, st, target.table)
		if err != nil {
			return nil, err
		}
		*target.dst = names
	}
	return lists, nil
}

func loadNames(ctx context.Context, st store.Store, table string) ([]string, error) {
	rows, err := st.FetchWhereAnyNotNull(ctx, table, []string{"name"}, []string{"name"})
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: load %s", table)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if name := normalize.Str(r["name"]); name != nil {
			names = append(names, *name)
		}
	}
	return names, nil
}

// Industry is one row of the industry taxonomy.
type Industry struct {
	Name        string
	Sector      string
	Scope       string // "CG", "BY" or "BOTH"
	Description string
}

// GTMTarget is one allowed go-to-market target label.
type GTMTarget struct {
	Target      string
	Scope       string // "ALL" or "BY"
	Description string
}

// TagValue is a generic named taxonomy entry (business models,
// business mappings).
type TagValue struct {
	Name        string
	Description string
}

// Taxonomies holds the runtime-loaded allowed-value sets injected into
// the tag-annotation prompt and used to validate its answers.
type Taxonomies struct {
	Industries     []Industry
	GTMTargets     []GTMTarget // scope ALL
	GTMTargetsBY   []GTMTarget // scope BY
	BusinessModels []TagValue
	BusinessMaps   []TagValue
}

// LoadTaxonomies reads the tag taxonomies from their reference tables.
func LoadTaxonomies(ctx context.Context, st store.Store) (*Taxonomies, error) {
	tax := &Taxonomies{}

	rows, err := st.FetchWhereAnyNotNull(ctx, "industries", []string{"industry", "sector", "scope", "description"}, []string{"industry"})
	if err != nil {
		return nil, eris.Wrap(err, "refdata: load industries")
	}
	for _, r := range rows {
		tax.Industries = append(tax.Industries, Industry{
			Name:        strOr(r["industry"]),
			Sector:      strOr(r["sector"]),
			Scope:       strOr(r["scope"]),
			Description: strOr(r["description"]),
		})
	}

	rows, err = st.FetchWhereAnyNotNull(ctx, "gtm_target", []string{"target", "scope", "description"}, []string{"target"})
	if err != nil {
		return nil, eris.Wrap(err, "refdata: load gtm targets")
	}
	for _, r := range rows {
		t := GTMTarget{
			Target:      strOr(r["target"]),
			Scope:       strOr(r["scope"]),
			Description: strOr(r["description"]),
		}
		switch t.Scope {
		case "BY":
			tax.GTMTargetsBY = append(tax.GTMTargetsBY, t)
		case "ALL":
			tax.GTMTargets = append(tax.GTMTargets, t)
		}
	}

	for _, target := range []struct {
		table string
		dst   *[]TagValue
	}{
		{"business_models", &tax.BusinessModels},
		{"business_mapping", &tax.BusinessMaps},
	} {
		rows, err = st.FetchWhereAnyNotNull(ctx, target.table, []string{"name", "description"}, []string{"name"})
		if err != nil {
			return nil, eris.Wrapf(err, "refdata: load %s", target.table)
		}
		for _, r := range rows {
			*target.dst = append(*target.dst, TagValue{Name: strOr(r["name"]), Description: strOr(r["description"])})
		}
	}

	return tax, nil
}

// IndustryScopes returns the industry→scope mapping.
func (t *Taxonomies) IndustryScopes() map[string]string {
	out := make(map[string]string, len(t.Industries))
	for _, i := range t.Industries {
		out[i.Name] = i.Scope
	}
	return out
}

// IndustrySectors returns the industry→sector mapping.
func (t *Taxonomies) IndustrySectors() map[string]string {
	out := make(map[string]string, len(t.Industries))
	for _, i := range t.Industries {
		out[i.Name] = i.Sector
	}
	return out
}

func strOr(v any) string {
	if s := normalize.Str(v); s != nil {
		return *s
	}
	return ""
}
