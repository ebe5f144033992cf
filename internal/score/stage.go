package score

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/normalize"
	"github.com/venturedesk/sourcing-cli/internal/reconcile"
	"github.com/venturedesk/sourcing-cli/internal/store"
)

// refPool is the labeled reference set for one score axis.
type refPool struct {
	scores []int
	vecs   [][]float32
}

func (p *refPool) add(score int, vec []float32) {
	p.scores = append(p.scores, score)
	p.vecs = append(p.vecs, vec)
}

// Propagate runs the score-propagation stage: every target domain
// inherits solution_fit_cg and solution_fit_by from its nearest
// manually labeled neighbor. The CG and BY pools are independent.
// Targets without an embedding still get a record, with nil scores;
// they count as Skipped, not Processed.
func Propagate(ctx context.Context, st store.Store, domains []string) (reconcile.Stats, error) {
	log := zap.L().With(zap.String("stage", "compute_scores"))
	log.Info("starting score propagation", zap.Int("domains", len(domains)))

	refRows, err := st.FetchWhereAnyNotNull(ctx, "companies",
		[]string{"domain", "solution_fit_cg_manual", "solution_fit_by_manual"},
		[]string{"solution_fit_cg_manual", "solution_fit_by_manual"})
	if err != nil {
		return reconcile.Stats{}, eris.Wrap(err, "score: fetch reference companies")
	}
	if len(refRows) == 0 {
		log.Warn("no manually labeled companies, skipping score propagation")
		return reconcile.Stats{Skipped: len(domains)}, nil
	}
	log.Info("fetched reference companies", zap.Int("references", len(refRows)))

	allDomains := make([]string, 0, len(refRows)+len(domains))
	seen := make(map[string]bool, len(refRows)+len(domains))
	for _, r := range refRows {
		if d := normalize.Str(r["domain"]); d != nil && !seen[*d] {
			seen[*d] = true
			allDomains = append(allDomains, *d)
		}
	}
	for _, d := range domains {
		if !seen[d] {
			seen[d] = true
			allDomains = append(allDomains, d)
		}
	}

	embRows, err := st.FetchIn(ctx, "company_embeddings", "domain", allDomains,
		[]string{"domain", "solution_and_use_cases_embedding"})
	if err != nil {
		return reconcile.Stats{}, eris.Wrap(err, "score: fetch embeddings")
	}
	embeddings := make(map[string][]float32, len(embRows))
	for _, r := range embRows {
		domain, ok := r["domain"].(string)
		if !ok || domain == "" {
			continue
		}
		vec, err := ParseVector(r["solution_and_use_cases_embedding"])
		if err != nil {
			log.Warn("malformed embedding", zap.String("domain", domain), zap.Error(err))
			continue
		}
		if vec != nil {
			embeddings[domain] = vec
		}
	}
	log.Info("fetched embeddings", zap.Int("embeddings", len(embeddings)))

	var cg, by refPool
	for _, r := range refRows {
		d := normalize.Str(r["domain"])
		if d == nil {
			continue
		}
		vec, ok := embeddings[*d]
		if !ok {
			continue
		}
		if s := normalize.Int(r["solution_fit_cg_manual"]); s != nil {
			cg.add(*s, vec)
		}
		if s := normalize.Int(r["solution_fit_by_manual"]); s != nil {
			by.add(*s, vec)
		}
	}
	log.Info("built reference pools", zap.Int("cg_refs", len(cg.vecs)), zap.Int("by_refs", len(by.vecs)))

	records := make([]store.Row, 0, len(domains))
	missing := 0
	for _, domain := range domains {
		record := store.Row{"domain": domain, "solution_fit_cg": nil, "solution_fit_by": nil}
		vec, ok := embeddings[domain]
		if !ok {
			missing++
			records = append(records, record)
			continue
		}
		if i := Nearest(vec, cg.vecs); i >= 0 {
			record["solution_fit_cg"] = cg.scores[i]
		}
		if i := Nearest(vec, by.vecs); i >= 0 {
			record["solution_fit_by"] = by.scores[i]
		}
		records = append(records, record)
	}
	if missing > 0 {
		log.Warn("domains without embeddings get nil scores", zap.Int("missing", missing))
	}

	if len(records) > 0 {
		if err := st.Upsert(ctx, "business_computed_values", []string{"domain"}, records); err != nil {
			return reconcile.Stats{}, eris.Wrap(err, "score: upsert scores")
		}
	}

	stats := reconcile.Stats{Processed: len(records) - missing, Skipped: missing}
	log.Info("score propagation complete",
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}
