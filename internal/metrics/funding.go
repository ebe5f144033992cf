// Package metrics derives the per-company funding summary from the
// canonical company row and its pooled funding rounds. The company's
// own fields always win; rounds fill the gaps.
package metrics

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/normalize"
	"github.com/venturedesk/sourcing-cli/internal/reconcile"
	"github.com/venturedesk/sourcing-cli/internal/store"
)

const dateLayout = "2006-01-02"

// Round is one funding round as pooled by the reconciliation stage.
type Round struct {
	Source       string
	Date         *time.Time
	Stage        *string
	Amount       *float64
	AllInvestors []string
}

// RoundFromRow parses a funding_rounds row, coercing malformed values
// to absent.
func RoundFromRow(r store.Row) Round {
	return Round{
		Source:       strOr(r["source"]),
		Date:         normalize.Date(r["date"]),
		Stage:        normalize.Str(r["stage"]),
		Amount:       normalize.Float(r["amount"]),
		AllInvestors: normalize.List(r["all_investors"]),
	}
}

// Company carries the canonical fields that override round-derived
// values.
type Company struct {
	Domain            string
	Stage             *string
	LastFundingDate   *time.Time
	LastFundingAmount *float64
	AllInvestors      []string
}

// CompanyFromRow parses the canonical columns the computation needs.
func CompanyFromRow(r store.Row) Company {
	return Company{
		Domain:            strOr(r["domain"]),
		Stage:             normalize.Str(r["vc_current_stage"]),
		LastFundingDate:   normalize.Date(r["last_funding_date"]),
		LastFundingAmount: normalize.Float(r["last_funding_amount"]),
		AllInvestors:      normalize.List(r["all_investors"]),
	}
}

// ComputeFunding derives the funding summary for one company. Undated
// rounds are excluded from date-dependent fields but still count
// toward the per-source round totals. A company with zero rounds still
// yields a record, with nil metrics.
func ComputeFunding(company Company, rounds []Round) store.Row {
	var dated []Round
	var cbCount, txCount int
	for _, r := range rounds {
		if r.Date != nil {
			dated = append(dated, r)
		}
		switch r.Source {
		case reconcile.SourceCrunchbase:
			cbCount++
		case reconcile.SourceTraxcn:
			txCount++
		}
	}
	sort.SliceStable(dated, func(i, j int) bool { return dated[i].Date.Before(*dated[j].Date) })

	row := store.Row{
		"domain":                         company.Domain,
		"vc_current_stage":               nil,
		"first_vc_round_date":            nil,
		"first_vc_round_amount":          nil,
		"last_vc_round_date":             nil,
		"last_vc_round_amount":           nil,
		"all_investors":                  nil,
		"last_round_lead_investors":      []string{},
		"total_number_of_funding_rounds": nil,
	}

	if company.Stage != nil {
		row["vc_current_stage"] = *company.Stage
	} else if len(dated) > 0 && dated[len(dated)-1].Stage != nil {
		row["vc_current_stage"] = *dated[len(dated)-1].Stage
	}

	if len(dated) > 0 {
		first := dated[0]
		row["first_vc_round_date"] = first.Date.Format(dateLayout)
		if first.Amount != nil {
			row["first_vc_round_amount"] = *first.Amount
		}
	}

	if company.LastFundingDate != nil {
		row["last_vc_round_date"] = company.LastFundingDate.Format(dateLayout)
	} else if len(dated) > 0 {
		row["last_vc_round_date"] = dated[len(dated)-1].Date.Format(dateLayout)
	}

	if company.LastFundingAmount != nil {
		row["last_vc_round_amount"] = *company.LastFundingAmount
	} else if len(dated) > 0 && dated[len(dated)-1].Amount != nil {
		row["last_vc_round_amount"] = *dated[len(dated)-1].Amount
	}

	// Sources overlap, so pooling both would double count: take the
	// round investors of whichever source tracked more rounds.
	// Crunchbase wins ties.
	best := make([][]string, 0, len(rounds))
	bestSource := reconcile.SourceCrunchbase
	if txCount > cbCount {
		bestSource = reconcile.SourceTraxcn
	}
	for _, r := range rounds {
		if r.Source == bestSource {
			best = append(best, r.AllInvestors)
		}
	}
	if investors := normalize.UnionCaseInsensitive(append([][]string{company.AllInvestors}, best...)...); investors != nil {
		row["all_investors"] = investors
	}

	// Lead investors default to an empty list. Only a dated last round
	// with investors replaces it, even with a null when every name
	// strips to nothing.
	if len(dated) > 0 {
		if last := dated[len(dated)-1]; len(last.AllInvestors) > 0 {
			row["last_round_lead_investors"] = normalize.UnionCaseInsensitive(last.AllInvestors)
		}
	}

	if cbCount > 0 || txCount > 0 {
		row["total_number_of_funding_rounds"] = max(cbCount, txCount)
	}

	return row
}

// Funding runs the funding metrics stage for the given domains,
// writing one business_computed_values record per resolved company.
func Funding(ctx context.Context, st store.Store, domains []string) (reconcile.Stats, error) {
	log := zap.L().With(zap.String("stage", "compute_funding_metrics"))
	log.Info("starting funding metrics", zap.Int("domains", len(domains)))

	companyRows, err := st.FetchIn(ctx, "companies", "domain", domains,
		[]string{"id", "domain", "vc_current_stage", "last_funding_date", "last_funding_amount", "all_investors"})
	if err != nil {
		return reconcile.Stats{}, eris.Wrap(err, "metrics: fetch companies")
	}

	idToDomain := make(map[string]string, len(companyRows))
	companies := make(map[string]Company, len(companyRows))
	ids := make([]string, 0, len(companyRows))
	for _, r := range companyRows {
		c := CompanyFromRow(r)
		if c.Domain == "" {
			continue
		}
		companies[c.Domain] = c
		if id := normalize.Str(r["id"]); id != nil {
			idToDomain[*id] = c.Domain
			ids = append(ids, *id)
		}
	}
	log.Info("fetched companies", zap.Int("companies", len(companies)))

	roundRows, err := st.FetchIn(ctx, "funding_rounds", "company_id", ids,
		[]string{"company_id", "date", "stage", "amount", "lead_investors", "all_investors", "source"})
	if err != nil {
		return reconcile.Stats{}, eris.Wrap(err, "metrics: fetch funding rounds")
	}
	log.Info("fetched funding rounds", zap.Int("rounds", len(roundRows)))

	roundsByDomain := make(map[string][]Round)
	for _, r := range roundRows {
		id := normalize.Str(r["company_id"])
		if id == nil {
			continue
		}
		domain, ok := idToDomain[*id]
		if !ok {
			continue
		}
		roundsByDomain[domain] = append(roundsByDomain[domain], RoundFromRow(r))
	}

	records := make([]store.Row, 0, len(companies))
	for domain, company := range companies {
		records = append(records, ComputeFunding(company, roundsByDomain[domain]))
	}

	if len(records) > 0 {
		if err := st.Upsert(ctx, "business_computed_values", []string{"domain"}, records); err != nil {
			return reconcile.Stats{}, eris.Wrap(err, "metrics: upsert funding metrics")
		}
	}

	stats := reconcile.Stats{Processed: len(records), Skipped: len(domains) - len(records)}
	log.Info("funding metrics complete",
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

func strOr(v any) string {
	if s := normalize.Str(v); s != nil {
		return *s
	}
	return ""
}
