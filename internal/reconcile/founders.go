package reconcile

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/normalize"
	"github.com/venturedesk/sourcing-cli/internal/store"
)

// Founders replaces the founder rows of the given domains. Unlike the
// company merge this is a company-level decision, not a field-level
// one: a company sourced from crunchbase (or both) takes crunchbase
// founders wholesale, a traxcn-only company takes traxcn founders.
// Existing rows are deleted first so the stage is an idempotent full
// replace. Founders without a resolvable company are dropped silently.
func Founders(ctx context.Context, st store.Store, domains []string) (Stats, error) {
	log := zap.L().With(zap.String("stage", "founders_reconciliation"))
	log.Info("starting founders reconciliation", zap.Int("domains", len(domains)))

	companyRows, err := st.FetchIn(ctx, "companies", "domain", domains, []string{"id", "domain", "source"})
	if err != nil {
		return Stats{}, eris.Wrap(err, "reconcile: fetch companies")
	}

	companyID := make(map[string]string, len(companyRows))
	var cbDomains, txDomains, companyIDs []string
	for _, r := range companyRows {
		domain, id := normalize.Str(r["domain"]), normalize.Str(r["id"])
		if domain == nil || id == nil {
			continue
		}
		companyID[*domain] = *id
		companyIDs = append(companyIDs, *id)
		switch strOr(r["source"]) {
		case SourceBoth, SourceCrunchbase:
			cbDomains = append(cbDomains, *domain)
		case SourceTraxcn:
			txDomains = append(txDomains, *domain)
		}
	}
	log.Info("split domains by founder source",
		zap.Int("crunchbase", len(cbDomains)),
		zap.Int("traxcn", len(txDomains)),
	)

	if len(companyIDs) > 0 {
		if err := st.DeleteIn(ctx, "founders", "company_id", companyIDs); err != nil {
			return Stats{}, eris.Wrap(err, "reconcile: delete existing founders")
		}
	}

	var records []store.Row
	stats := Stats{}

	if len(cbDomains) > 0 {
		cbRecords, dropped, err := crunchbaseFounders(ctx, st, cbDomains, companyID)
		if err != nil {
			return stats, err
		}
		records = append(records, cbRecords...)
		stats.Skipped += dropped
	}

	if len(txDomains) > 0 {
		txFounders, err := st.FetchIn(ctx, "traxcn_founders", "domain_name", txDomains, nil)
		if err != nil {
			return stats, eris.Wrap(err, "reconcile: fetch traxcn founders")
		}
		for _, f := range txFounders {
			domain := normalize.Str(f["domain_name"])
			if domain == nil {
				stats.Skipped++
				continue
			}
			id, ok := companyID[*domain]
			if !ok {
				stats.Skipped++
				continue
			}
			records = append(records, founderRow(id, f["founder_name"], f["title"], f["description"], f["profile_links"], SourceTraxcn))
		}
	}

	if len(records) > 0 {
		if err := st.Insert(ctx, "founders", records); err != nil {
			return stats, eris.Wrap(err, "reconcile: insert founders")
		}
	}
	stats.Processed = len(records)

	log.Info("founders reconciliation complete",
		zap.Int("inserted", stats.Processed),
		zap.Int("dropped", stats.Skipped),
	)
	return stats, nil
}

// crunchbaseFounders resolves founders through the crunchbase export's
// own company id.
func crunchbaseFounders(ctx context.Context, st store.Store, domains []string, companyID map[string]string) ([]store.Row, int, error) {
	cbCompanies, err := st.FetchIn(ctx, "crunchbase_companies", "domain", domains, []string{"domain", "crunchbase_id"})
	if err != nil {
		return nil, 0, eris.Wrap(err, "reconcile: fetch crunchbase ids")
	}

	cbIDToDomain := make(map[string]string, len(cbCompanies))
	cbIDs := make([]string, 0, len(cbCompanies))
	for _, r := range cbCompanies {
		if d, id := normalize.Str(r["domain"]), normalize.Str(r["crunchbase_id"]); d != nil && id != nil {
			cbIDToDomain[*id] = *d
			cbIDs = append(cbIDs, *id)
		}
	}

	founders, err := st.FetchIn(ctx, "crunchbase_founders", "crunchbase_company_uuid", cbIDs, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "reconcile: fetch crunchbase founders")
	}

	var records []store.Row
	dropped := 0
	for _, f := range founders {
		domain := ""
		if id := normalize.Str(f["crunchbase_company_uuid"]); id != nil {
			domain = cbIDToDomain[*id]
		}
		id, ok := companyID[domain]
		if !ok {
			dropped++
			continue
		}
		records = append(records, founderRow(id, f["name"], f["job_title"], f["description"], f["linkedin_url"], SourceCrunchbase))
	}
	return records, dropped, nil
}

func founderRow(companyID string, name, role, description, link any, source string) store.Row {
	return store.Row{
		"id":           uuid.NewString(),
		"company_id":   companyID,
		"name":         deref(normalize.Str(name)),
		"role":         deref(normalize.Str(role)),
		"description":  deref(normalize.Str(description)),
		"linkedin_url": deref(normalize.Str(link)),
		"source":       source,
	}
}
