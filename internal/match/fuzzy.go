package match

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/normalize"
	"github.com/venturedesk/sourcing-cli/internal/reconcile"
	"github.com/venturedesk/sourcing-cli/internal/refdata"
	"github.com/venturedesk/sourcing-cli/internal/store"
)

// category pairs a reference list with its output column in
// business_computed_values.
type category struct {
	name   string
	column string
	refs   func(*refdata.ReferenceLists) []string
}

var categories = []category{
	{refdata.TableBYCompetitors, "competitors_by", func(l *refdata.ReferenceLists) []string { return l.BYCompetitors }},
	{refdata.TableBYPlatforms, "platforms_by", func(l *refdata.ReferenceLists) []string { return l.BYPlatforms }},
	{refdata.TableCGCompetitors, "competitors_cg", func(l *refdata.ReferenceLists) []string { return l.CGCompetitors }},
	{refdata.TableCGSWPartners, "platforms_cg", func(l *refdata.ReferenceLists) []string { return l.CGSWPartners }},
	{refdata.TableGlobal2000, "global_2000_clients", func(l *refdata.ReferenceLists) []string { return l.Global2000 }},
}

// Fuzzy runs the fuzzy-matching stage: scraped client and partner
// mentions are matched against each reference list and the identified
// references land in business_computed_values, one column per list.
// Every mention feeds every category; each distinct mention is scored
// once per list.
func Fuzzy(ctx context.Context, st store.Store, domains []string, threshold float64) (reconcile.Stats, error) {
	log := zap.L().With(zap.String("stage", "fuzzy_matching_metrics"))
	log.Info("starting fuzzy matching", zap.Int("domains", len(domains)), zap.Float64("threshold", threshold))

	rows, err := st.FetchIn(ctx, "web_scraping_enrichment", "domain", domains,
		[]string{"domain", "key_clients", "key_partners", "updated_at"})
	if err != nil {
		return reconcile.Stats{}, eris.Wrap(err, "match: fetch scraped mentions")
	}
	rows = store.LatestPer(rows, "domain", "updated_at")

	var pool []string
	seen := make(map[string]bool)
	for _, r := range rows {
		for _, mention := range mentionsOf(r) {
			if !seen[mention] {
				seen[mention] = true
				pool = append(pool, mention)
			}
		}
	}

	lists, err := refdata.LoadReferenceLists(ctx, st)
	if err != nil {
		return reconcile.Stats{}, err
	}

	// Score the whole pool once per category, then assemble per-domain
	// records from the shared mention→reference maps.
	matchedBy := make(map[string]map[string]string, len(categories))
	for _, cat := range categories {
		refs := cat.refs(lists)
		log.Info("matching category",
			zap.String("category", cat.name),
			zap.Int("references", len(refs)),
			zap.Int("mentions", len(pool)),
		)
		matched := make(map[string]string, len(pool))
		m := New(refs, threshold)
		for _, res := range m.MatchBatch(pool) {
			if res.OK {
				matched[res.Input] = res.Match
			}
		}
		matchedBy[cat.name] = matched
	}

	records := make([]store.Row, 0, len(rows))
	for _, r := range rows {
		domain, ok := r["domain"].(string)
		if !ok || domain == "" {
			continue
		}
		record := store.Row{"domain": domain}
		mentions := dedup(mentionsOf(r))
		for _, cat := range categories {
			identified := []string{}
			for _, mention := range mentions {
				if ref, ok := matchedBy[cat.name][mention]; ok {
					identified = append(identified, ref+" ("+mention+")")
				}
			}
			record[cat.column] = identified
		}
		records = append(records, record)
	}

	if len(records) > 0 {
		if err := st.Upsert(ctx, "business_computed_values", []string{"domain"}, records); err != nil {
			return reconcile.Stats{}, eris.Wrap(err, "match: upsert matches")
		}
	}

	stats := reconcile.Stats{Processed: len(records), Skipped: len(domains) - len(records)}
	log.Info("fuzzy matching complete",
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("distinct_mentions", len(pool)),
	)
	return stats, nil
}

func mentionsOf(r store.Row) []string {
	var out []string
	out = append(out, normalize.List(r["key_clients"])...)
	out = append(out, normalize.List(r["key_partners"])...)
	return out
}

func dedup(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
