package enrich

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/reconcile"
	"github.com/venturedesk/sourcing-cli/internal/score"
	"github.com/venturedesk/sourcing-cli/internal/store"
)

// dimension is one embedded text axis of a company.
type dimension struct {
	column string
	text   func(store.Row) string
}

// The solution axis feeds score propagation; the full axis serves
// retrieval over the whole dossier.
var dimensions = []dimension{
	{"solution_and_use_cases_embedding", func(r store.Row) string {
		return joinParts(fieldText(r["detailed_solution"]), fieldText(r["use_cases"]))
	}},
	{"full_embedding", func(r store.Row) string {
		return joinParts(fieldText(r["description"]), fieldText(r["detailed_solution"]), fieldText(r["use_cases"]))
	}},
}

func joinParts(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

// Embed runs the embedding stage: each company's textual dimensions
// are vectorized and upserted into company_embeddings. Dimensions with
// no text are left unwritten, preserving any previous vector.
func Embed(ctx context.Context, st store.Store, embedder Embedder, domains []string) (reconcile.Stats, error) {
	log := zap.L().With(zap.String("stage", "embed_textual_dimensions"))
	log.Info("starting embeddings", zap.Int("domains", len(domains)))

	records, err := fetchEnrichment(ctx, st, domains)
	if err != nil {
		return reconcile.Stats{}, err
	}
	log.Info("fetched enrichment records", zap.Int("records", len(records)))
	if len(records) == 0 {
		return reconcile.Stats{Skipped: len(domains)}, nil
	}

	type slot struct {
		record int
		column string
	}
	var texts []string
	var slots []slot
	for i, r := range records {
		for _, dim := range dimensions {
			if text := dim.text(r); text != "" {
				texts = append(texts, text)
				slots = append(slots, slot{record: i, column: dim.column})
			}
		}
	}
	log.Info("collected texts", zap.Int("texts", len(texts)))

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return reconcile.Stats{}, eris.Wrap(err, "enrich: embed texts")
	}
	if len(vectors) != len(texts) {
		return reconcile.Stats{}, eris.Errorf("enrich: got %d vectors for %d texts", len(vectors), len(texts))
	}

	byRecord := make(map[int]store.Row)
	for i, s := range slots {
		row, ok := byRecord[s.record]
		if !ok {
			row = store.Row{"domain": records[s.record]["domain"]}
			byRecord[s.record] = row
		}
		row[s.column] = score.FormatVector(vectors[i])
	}

	rows := make([]store.Row, 0, len(byRecord))
	for i := range records {
		if row, ok := byRecord[i]; ok {
			rows = append(rows, row)
		}
	}

	// Batched upserts take the column union of their rows, so rows with
	// different axis sets must go in separate statements. Otherwise a
	// missing axis would null out a previously stored vector.
	groups := make(map[string][]store.Row)
	var signatures []string
	for _, row := range rows {
		cols := make([]string, 0, len(row))
		for col := range row {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		sig := strings.Join(cols, ",")
		if _, ok := groups[sig]; !ok {
			signatures = append(signatures, sig)
		}
		groups[sig] = append(groups[sig], row)
	}
	sort.Strings(signatures)
	for _, sig := range signatures {
		if err := st.Upsert(ctx, "company_embeddings", []string{"domain"}, groups[sig]); err != nil {
			return reconcile.Stats{}, eris.Wrap(err, "enrich: upsert embeddings")
		}
	}

	stats := reconcile.Stats{Processed: len(rows), Skipped: len(domains) - len(rows)}
	log.Info("embeddings complete",
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}
