// Package reconcile merges the two per-source company exports into the
// canonical tables: one company row per domain, pooled funding rounds,
// and a single founder source per company. Merge policy is per-field
// and deterministic; a value present in neither source stays NULL.
package reconcile

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/normalize"
	"github.com/venturedesk/sourcing-cli/internal/refdata"
	"github.com/venturedesk/sourcing-cli/internal/store"
)

// Provenance labels for the canonical source column.
const (
	SourceCrunchbase = "crunchbase"
	SourceTraxcn     = "traxcn"
	SourceBoth       = "both"
)

// Stats summarizes a stage run. Partial success is the norm: bad rows
// are skipped and counted, never fatal.
type Stats struct {
	Processed int
	Skipped   int
}

// MergeCompany applies the per-field merge policy to one domain's
// crunchbase and traxcn rows (either may be nil) and returns the
// canonical upsert payload. Returns nil when the domain is present in
// neither source.
//
// Field preference is stable and intentional: traxcn is the richer
// dataset and wins for descriptive fields, crunchbase is the only
// source with logos, amounts take the max across sources.
func MergeCompany(domain string, cb, tx store.Row) store.Row {
	hasCB := cb != nil && normalize.Str(cb["name"]) != nil
	hasTX := tx != nil && normalize.Str(tx["company_name"]) != nil
	if !hasCB && !hasTX {
		return nil
	}
	if cb == nil {
		cb = store.Row{}
	}
	if tx == nil {
		tx = store.Row{}
	}

	row := store.Row{
		"domain":              domain,
		"logo":                deref(normalize.Str(cb["logo_url"])),
		"name":                firstStr(tx["company_name"], cb["name"]),
		"hq_city":             firstStr(tx["city"], cb["city"]),
		"description":         firstStr(tx["description"], cb["short_description"]),
		"hq_country":          mergeCountry(tx["country"], cb["country_code"]),
		"inc_date":            mergeIncYear(tx["founded_year"], cb["founded_on"]),
		"vc_current_stage":    deref(normalize.Str(tx["company_stage"])),
		"total_amount_raised": mergeTotalRaised(tx["total_funding_in_usd"], cb["total_funding_usd"]),
		"last_funding_amount": deref(normalize.Float(tx["latest_funded_amount_in_usd"])),
		"last_funding_date":   deref(normalize.Str(tx["latest_funded_date"])),
		"all_investors":       emptyToNil(normalize.List(tx["institutional_investors"])),
		"all_tags":            mergeTags(tx, cb),
	}

	switch {
	case hasCB && hasTX:
		row["source"] = SourceBoth
	case hasCB:
		row["source"] = SourceCrunchbase
	default:
		row["source"] = SourceTraxcn
	}

	return row
}

// firstStr returns the first value that normalizes to a non-empty
// string, or nil.
func firstStr(candidates ...any) any {
	for _, c := range candidates {
		if s := normalize.Str(c); s != nil {
			return *s
		}
	}
	return nil
}

// mergeCountry prefers the traxcn free-text country; the crunchbase
// country code is mapped through the static code table as fallback.
func mergeCountry(txCountry, cbCode any) any {
	if s := normalize.Str(txCountry); s != nil {
		return *s
	}
	if code := normalize.Str(cbCode); code != nil {
		if name, ok := refdata.CountryName(*code); ok {
			return name
		}
	}
	return nil
}

// mergeIncYear prefers the traxcn founding year; the crunchbase
// founding date contributes its leading four digits. Unparseable
// values are absent, not errors.
func mergeIncYear(txYear, cbFoundedOn any) any {
	if y := normalize.Int(txYear); y != nil {
		return *y
	}
	if y := normalize.Year(cbFoundedOn); y != nil {
		return *y
	}
	return nil
}

// mergeTotalRaised takes the max when both sources report a total,
// else whichever is present.
func mergeTotalRaised(txTotal, cbTotal any) any {
	txVal := normalize.Float(txTotal)
	cbVal := normalize.Float(cbTotal)
	switch {
	case txVal != nil && cbVal != nil:
		if *txVal >= *cbVal {
			return *txVal
		}
		return *cbVal
	case txVal != nil:
		return *txVal
	case cbVal != nil:
		return *cbVal
	default:
		return nil
	}
}

// mergeTags concatenates the traxcn classification lists then the
// crunchbase category lists, order preserved, no dedup at this stage.
func mergeTags(tx, cb store.Row) any {
	var tags []string
	for _, col := range []string{"sector", "business_models", "waves", "trending_themes", "special_flags"} {
		tags = append(tags, normalize.List(tx[col])...)
	}
	for _, col := range []string{"category_list", "category_groups_list"} {
		tags = append(tags, normalize.List(cb[col])...)
	}
	return emptyToNil(tags)
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func strOr(v any) string {
	if s := normalize.Str(v); s != nil {
		return *s
	}
	return ""
}

func emptyToNil(list []string) any {
	if len(list) == 0 {
		return nil
	}
	return list
}

// Companies reconciles the given domains from both source tables into
// the canonical companies table. Domains present in neither source are
// skipped silently.
func Companies(ctx context.Context, st store.Store, domains []string) (Stats, error) {
	log := zap.L().With(zap.String("stage", "companies_reconciliation"))
	log.Info("starting reconciliation", zap.Int("domains", len(domains)))

	cbRows, err := st.FetchIn(ctx, "crunchbase_companies", "domain", domains, nil)
	if err != nil {
		return Stats{}, eris.Wrap(err, "reconcile: fetch crunchbase companies")
	}
	txRows, err := st.FetchIn(ctx, "traxcn_companies", "domain_name", domains, nil)
	if err != nil {
		return Stats{}, eris.Wrap(err, "reconcile: fetch traxcn companies")
	}

	cbByDomain := indexByKey(cbRows, "domain")
	txByDomain := indexByKey(txRows, "domain_name")

	overlap := 0
	for d := range cbByDomain {
		if _, ok := txByDomain[d]; ok {
			overlap++
		}
	}
	log.Info("fetched source rows",
		zap.Int("crunchbase", len(cbByDomain)),
		zap.Int("traxcn", len(txByDomain)),
		zap.Int("overlap", overlap),
	)

	var records []store.Row
	stats := Stats{}
	for _, domain := range domains {
		merged := MergeCompany(domain, cbByDomain[domain], txByDomain[domain])
		if merged == nil {
			stats.Skipped++
			continue
		}
		records = append(records, merged)
		stats.Processed++
	}

	if len(records) > 0 {
		if err := st.Upsert(ctx, "companies", []string{"domain"}, records); err != nil {
			return stats, eris.Wrap(err, "reconcile: upsert companies")
		}
	}

	log.Info("reconciliation complete",
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// indexByKey maps rows by the string value of keyCol, dropping rows
// whose key is absent.
func indexByKey(rows []store.Row, keyCol string) map[string]store.Row {
	out := make(map[string]store.Row, len(rows))
	for _, r := range rows {
		if k := normalize.Str(r[keyCol]); k != nil {
			out[*k] = r
		}
	}
	return out
}
