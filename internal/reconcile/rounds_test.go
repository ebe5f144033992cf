package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturedesk/sourcing-cli/internal/store"
	"github.com/venturedesk/sourcing-cli/internal/store/storetest"
)

func TestFundingRounds_PoolsBothSources(t *testing.T) {
	st := storetest.New()
	st.Tables["companies"] = []store.Row{
		{"id": "c-acme", "domain": "acme.com"},
	}
	st.Tables["crunchbase_companies"] = []store.Row{
		{"domain": "acme.com", "crunchbase_id": "cb-1"},
	}
	st.Tables["crunchbase_funding_rounds"] = []store.Row{
		{"crunchbase_company_uuid": "cb-1", "announced_on": "2020-01-01", "investment_type": "seed", "raised_amount_usd": 1_000_000.0, "lead_investors": []string{"Kima"}},
	}
	st.Tables["traxcn_funding_rounds"] = []store.Row{
		{"domain_name": "acme.com", "round_date": "2021-06-01", "round_name": "Series A", "round_amount_in_usd": 5_000_000.0, "lead_investor": "Index", "institutional_investors": []string{"Index", "Kima"}},
		{"domain_name": "ghost.io", "round_date": "2021-01-01"},
	}

	stats, err := FundingRounds(context.Background(), st, []string{"acme.com", "ghost.io"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)

	rows := st.Upserts["funding_rounds"]
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"company_id", "date", "stage", "source"}, st.Keys["funding_rounds"])

	bySource := map[string]store.Row{}
	for _, r := range rows {
		bySource[r["source"].(string)] = r
	}
	cb := bySource[SourceCrunchbase]
	assert.Equal(t, "c-acme", cb["company_id"])
	assert.Equal(t, "2020-01-01", cb["date"])
	assert.Equal(t, "seed", cb["stage"])
	assert.Equal(t, 1_000_000.0, cb["amount"])
	// The crunchbase export only carries lead investors; they double as
	// the round's investor list.
	assert.Equal(t, []string{"Kima"}, cb["all_investors"])

	tx := bySource[SourceTraxcn]
	assert.Equal(t, []string{"Index", "Kima"}, tx["all_investors"])
	assert.Equal(t, []string{"Index"}, tx["lead_investors"])
}

func TestFundingRounds_NoCompaniesNoWrites(t *testing.T) {
	st := storetest.New()

	stats, err := FundingRounds(context.Background(), st, []string{"ghost.io"})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Processed)
	assert.Empty(t, st.Upserts["funding_rounds"])
}
