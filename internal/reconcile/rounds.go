package reconcile

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/normalize"
	"github.com/venturedesk/sourcing-cli/internal/store"
)

// FundingRounds pools the funding rounds of both sources into the
// unified funding_rounds table, keyed by (company_id, date, stage,
// source) so re-runs are idempotent. Rounds whose company cannot be
// resolved from the canonical table are dropped silently and counted.
func FundingRounds(ctx context.Context, st store.Store, domains []string) (Stats, error) {
	log := zap.L().With(zap.String("stage", "funding_rounds_reconciliation"))
	log.Info("starting funding rounds reconciliation", zap.Int("domains", len(domains)))

	companyRows, err := st.FetchIn(ctx, "companies", "domain", domains, []string{"id", "domain"})
	if err != nil {
		return Stats{}, eris.Wrap(err, "reconcile: fetch companies")
	}
	companyID := make(map[string]string, len(companyRows))
	for _, r := range companyRows {
		if d, id := normalize.Str(r["domain"]), normalize.Str(r["id"]); d != nil && id != nil {
			companyID[*d] = *id
		}
	}
	log.Info("resolved companies", zap.Int("companies", len(companyID)))

	var records []store.Row
	stats := Stats{}

	// Crunchbase rounds hang off the export's own company id, so the
	// domain resolves in two hops.
	cbCompanies, err := st.FetchIn(ctx, "crunchbase_companies", "domain", domains, []string{"domain", "crunchbase_id"})
	if err != nil {
		return stats, eris.Wrap(err, "reconcile: fetch crunchbase ids")
	}
	cbIDToDomain := make(map[string]string, len(cbCompanies))
	cbIDs := make([]string, 0, len(cbCompanies))
	for _, r := range cbCompanies {
		if d, id := normalize.Str(r["domain"]), normalize.Str(r["crunchbase_id"]); d != nil && id != nil {
			cbIDToDomain[*id] = *d
			cbIDs = append(cbIDs, *id)
		}
	}

	cbRounds, err := st.FetchIn(ctx, "crunchbase_funding_rounds", "crunchbase_company_uuid", cbIDs, nil)
	if err != nil {
		return stats, eris.Wrap(err, "reconcile: fetch crunchbase rounds")
	}
	log.Info("fetched crunchbase rounds", zap.Int("rounds", len(cbRounds)))

	for _, r := range cbRounds {
		domain := ""
		if id := normalize.Str(r["crunchbase_company_uuid"]); id != nil {
			domain = cbIDToDomain[*id]
		}
		id, ok := companyID[domain]
		if !ok {
			stats.Skipped++
			continue
		}
		records = append(records, store.Row{
			"company_id":     id,
			"date":           deref(normalize.Str(r["announced_on"])),
			"stage":          deref(normalize.Str(r["investment_type"])),
			"amount":         deref(normalize.Float(r["raised_amount_usd"])),
			"lead_investors": emptyToNil(normalize.List(r["lead_investors"])),
			"all_investors":  emptyToNil(normalize.List(r["lead_investors"])),
			"source":         SourceCrunchbase,
		})
		stats.Processed++
	}

	txRounds, err := st.FetchIn(ctx, "traxcn_funding_rounds", "domain_name", domains, nil)
	if err != nil {
		return stats, eris.Wrap(err, "reconcile: fetch traxcn rounds")
	}
	log.Info("fetched traxcn rounds", zap.Int("rounds", len(txRounds)))

	for _, r := range txRounds {
		domain := normalize.Str(r["domain_name"])
		if domain == nil {
			stats.Skipped++
			continue
		}
		id, ok := companyID[*domain]
		if !ok {
			stats.Skipped++
			continue
		}
		records = append(records, store.Row{
			"company_id":     id,
			"date":           deref(normalize.Str(r["round_date"])),
			"stage":          deref(normalize.Str(r["round_name"])),
			"amount":         deref(normalize.Float(r["round_amount_in_usd"])),
			"lead_investors": emptyToNil(normalize.List(r["lead_investor"])),
			"all_investors":  emptyToNil(normalize.List(r["institutional_investors"])),
			"source":         SourceTraxcn,
		})
		stats.Processed++
	}

	if len(records) > 0 {
		if err := st.Upsert(ctx, "funding_rounds", []string{"company_id", "date", "stage", "source"}, records); err != nil {
			return stats, eris.Wrap(err, "reconcile: upsert funding rounds")
		}
	}

	log.Info("funding rounds reconciliation complete",
		zap.Int("processed", stats.Processed),
		zap.Int("dropped", stats.Skipped),
	)
	return stats, nil
}
