package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturedesk/sourcing-cli/internal/reconcile"
	"github.com/venturedesk/sourcing-cli/internal/store"
	"github.com/venturedesk/sourcing-cli/internal/store/storetest"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func str(s string) *string { return &s }

func amt(f float64) *float64 { return &f }

func TestComputeFunding_RoundsFillGaps(t *testing.T) {
	rounds := []Round{
		{Source: reconcile.SourceTraxcn, Date: date("2021-01-01"), Stage: str("Series A"), Amount: amt(5), AllInvestors: []string{"Index"}},
		{Source: reconcile.SourceCrunchbase, Date: date("2020-01-01"), Stage: str("seed"), Amount: amt(1), AllInvestors: []string{"Kima"}},
	}

	got := ComputeFunding(Company{Domain: "acme.com"}, rounds)

	assert.Equal(t, "acme.com", got["domain"])
	assert.Equal(t, "2020-01-01", got["first_vc_round_date"])
	assert.Equal(t, 1.0, got["first_vc_round_amount"])
	assert.Equal(t, "2021-01-01", got["last_vc_round_date"])
	assert.Equal(t, 5.0, got["last_vc_round_amount"])
	assert.Equal(t, "Series A", got["vc_current_stage"])
	assert.Equal(t, []string{"Index"}, got["last_round_lead_investors"])
	assert.Equal(t, 1, got["total_number_of_funding_rounds"])
}

func TestComputeFunding_CompanyFieldsWin(t *testing.T) {
	company := Company{
		Domain:            "acme.com",
		Stage:             str("Series B"),
		LastFundingDate:   date("2023-05-05"),
		LastFundingAmount: amt(20),
	}
	rounds := []Round{
		{Source: reconcile.SourceCrunchbase, Date: date("2020-01-01"), Stage: str("seed"), Amount: amt(1)},
	}

	got := ComputeFunding(company, rounds)
	assert.Equal(t, "Series B", got["vc_current_stage"])
	assert.Equal(t, "2023-05-05", got["last_vc_round_date"])
	assert.Equal(t, 20.0, got["last_vc_round_amount"])
	// The earliest round still supplies the first-round fields.
	assert.Equal(t, "2020-01-01", got["first_vc_round_date"])
}

func TestComputeFunding_InvestorSourcePick(t *testing.T) {
	company := Company{Domain: "acme.com", AllInvestors: []string{`"Index"`}}
	rounds := []Round{
		{Source: reconcile.SourceCrunchbase, Date: date("2020-01-01"), AllInvestors: []string{"Kima", "index"}},
		{Source: reconcile.SourceTraxcn, Date: date("2020-01-01"), AllInvestors: []string{"Point Nine"}},
	}

	got := ComputeFunding(company, rounds)
	// One round per source: crunchbase wins the tie, so Point Nine is
	// dropped. Dedup is case-insensitive and keeps the first casing,
	// with stray quotes stripped.
	assert.Equal(t, []string{"Index", "Kima"}, got["all_investors"])
}

func TestComputeFunding_MajoritySourceOverridesTie(t *testing.T) {
	rounds := []Round{
		{Source: reconcile.SourceCrunchbase, Date: date("2020-01-01"), AllInvestors: []string{"Kima"}},
		{Source: reconcile.SourceTraxcn, Date: date("2020-01-01"), AllInvestors: []string{"Index"}},
		{Source: reconcile.SourceTraxcn, Date: date("2021-01-01"), AllInvestors: []string{"Point Nine"}},
	}

	got := ComputeFunding(Company{Domain: "acme.com"}, rounds)
	assert.Equal(t, []string{"Index", "Point Nine"}, got["all_investors"])
	assert.Equal(t, 2, got["total_number_of_funding_rounds"])
}

func TestComputeFunding_UndatedRoundsCountButDontDate(t *testing.T) {
	rounds := []Round{
		{Source: reconcile.SourceCrunchbase, Stage: str("seed"), Amount: amt(1)},
		{Source: reconcile.SourceCrunchbase},
	}

	got := ComputeFunding(Company{Domain: "acme.com"}, rounds)
	assert.Nil(t, got["first_vc_round_date"])
	assert.Nil(t, got["last_vc_round_date"])
	assert.Nil(t, got["vc_current_stage"])
	assert.Equal(t, 2, got["total_number_of_funding_rounds"])
	// Without a dated last round the lead list stays empty, not null.
	assert.Equal(t, []string{}, got["last_round_lead_investors"])
}

func TestComputeFunding_ZeroRoundsStillEmitsRecord(t *testing.T) {
	got := ComputeFunding(Company{Domain: "quiet.io"}, nil)
	require.NotNil(t, got)
	assert.Equal(t, "quiet.io", got["domain"])
	assert.Nil(t, got["vc_current_stage"])
	assert.Nil(t, got["all_investors"])
	assert.Nil(t, got["total_number_of_funding_rounds"])
	assert.Equal(t, []string{}, got["last_round_lead_investors"])
}

func TestFunding_StageUpsertsPerCompany(t *testing.T) {
	st := storetest.New()
	st.Tables["companies"] = []store.Row{
		{"id": "c-acme", "domain": "acme.com", "vc_current_stage": nil, "all_investors": []string{"Seedcamp"}},
		{"id": "c-quiet", "domain": "quiet.io"},
	}
	st.Tables["funding_rounds"] = []store.Row{
		{"company_id": "c-acme", "date": "2020-01-01", "stage": "seed", "amount": 1.0, "all_investors": []string{"Kima"}, "source": reconcile.SourceCrunchbase},
		{"company_id": "c-acme", "date": "2021-06-01", "stage": "Series A", "amount": 5.0, "all_investors": []string{"Index"}, "source": reconcile.SourceTraxcn},
	}

	stats, err := Funding(context.Background(), st, []string{"acme.com", "quiet.io", "ghost.io"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)

	rows := st.Upserts["business_computed_values"]
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"domain"}, st.Keys["business_computed_values"])

	byDomain := map[string]store.Row{}
	for _, r := range rows {
		byDomain[r["domain"].(string)] = r
	}
	acme := byDomain["acme.com"]
	assert.Equal(t, "Series A", acme["vc_current_stage"])
	assert.Equal(t, "2020-01-01", acme["first_vc_round_date"])
	assert.Equal(t, "2021-06-01", acme["last_vc_round_date"])
	assert.Equal(t, 5.0, acme["last_vc_round_amount"])
	assert.Equal(t, []string{"Seedcamp", "Kima"}, acme["all_investors"])
	assert.Equal(t, 1, acme["total_number_of_funding_rounds"])

	quiet := byDomain["quiet.io"]
	assert.Nil(t, quiet["vc_current_stage"])
	assert.Nil(t, quiet["total_number_of_funding_rounds"])
}
