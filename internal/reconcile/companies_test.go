package reconcile

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturedesk/sourcing-cli/internal/store"
	"github.com/venturedesk/sourcing-cli/internal/store/storetest"
)

func TestMergeCompany_BothAbsent(t *testing.T) {
	assert.Nil(t, MergeCompany("ghost.io", nil, nil))
	// Rows that exist but carry no name count as absent too.
	assert.Nil(t, MergeCompany("ghost.io", store.Row{"name": "  "}, store.Row{"company_name": ""}))
}

func TestMergeCompany_CrunchbaseOnlyPassThrough(t *testing.T) {
	cb := store.Row{
		"name":              "Acme",
		"logo_url":          "https://img.example/acme.png",
		"city":              "Paris",
		"country_code":      "FRA",
		"founded_on":        "2019-04-02",
		"short_description": "Widgets as a service",
		"total_funding_usd": 3_000_000.0,
		"category_list":     []string{"SaaS"},
	}

	got := MergeCompany("acme.com", cb, nil)
	require.NotNil(t, got)
	assert.Equal(t, SourceCrunchbase, got["source"])
	assert.Equal(t, "Acme", got["name"])
	assert.Equal(t, "https://img.example/acme.png", got["logo"])
	assert.Equal(t, "Paris", got["hq_city"])
	assert.Equal(t, "France", got["hq_country"])
	assert.Equal(t, 2019, got["inc_date"])
	assert.Equal(t, "Widgets as a service", got["description"])
	assert.Equal(t, 3_000_000.0, got["total_amount_raised"])
	assert.Equal(t, []string{"SaaS"}, got["all_tags"])
	// Traxcn-only fields have no fallback.
	assert.Nil(t, got["vc_current_stage"])
	assert.Nil(t, got["last_funding_amount"])
	assert.Nil(t, got["all_investors"])
}

func TestMergeCompany_TraxcnOnlyPassThrough(t *testing.T) {
	tx := store.Row{
		"company_name":                "Zeta",
		"city":                        "Berlin",
		"country":                     "Germany",
		"founded_year":                int64(2021),
		"description":                 "Deep widget analytics",
		"company_stage":               "Series A",
		"total_funding_in_usd":        9_000_000.0,
		"latest_funded_amount_in_usd": 5_000_000.0,
		"latest_funded_date":          "2023-10-01",
		"institutional_investors":     []string{"Index Ventures"},
		"sector":                      []string{"Analytics"},
	}

	got := MergeCompany("zeta.io", nil, tx)
	require.NotNil(t, got)
	assert.Equal(t, SourceTraxcn, got["source"])
	assert.Equal(t, "Zeta", got["name"])
	assert.Equal(t, "Germany", got["hq_country"])
	assert.Equal(t, 2021, got["inc_date"])
	assert.Equal(t, "Series A", got["vc_current_stage"])
	assert.Equal(t, 5_000_000.0, got["last_funding_amount"])
	assert.Equal(t, "2023-10-01", got["last_funding_date"])
	assert.Equal(t, []string{"Index Ventures"}, got["all_investors"])
	// Crunchbase-only fields stay empty.
	assert.Nil(t, got["logo"])
}

func TestMergeCompany_TraxcnWinsDescriptiveFields(t *testing.T) {
	cb := store.Row{"name": "Acme Inc", "city": "Lyon", "short_description": "cb text"}
	tx := store.Row{"company_name": "Acme", "city": "Paris", "description": "tx text"}

	got := MergeCompany("acme.com", cb, tx)
	require.NotNil(t, got)
	assert.Equal(t, SourceBoth, got["source"])
	assert.Equal(t, "Acme", got["name"])
	assert.Equal(t, "Paris", got["hq_city"])
	assert.Equal(t, "tx text", got["description"])
}

func TestMergeCompany_TotalRaisedMaxIsSymmetric(t *testing.T) {
	cb := store.Row{"name": "Acme", "total_funding_usd": 4_000_000.0}
	tx := store.Row{"company_name": "Acme", "total_funding_in_usd": 7_500_000.0}

	a := MergeCompany("acme.com", cb, tx)
	assert.Equal(t, 7_500_000.0, a["total_amount_raised"])

	// Swap which source holds the larger value: same canonical result.
	cb["total_funding_usd"], tx["total_funding_in_usd"] = 7_500_000.0, 4_000_000.0
	b := MergeCompany("acme.com", cb, tx)
	assert.Equal(t, 7_500_000.0, b["total_amount_raised"])
}

func TestMergeCompany_AbsentValueNormalization(t *testing.T) {
	cb := store.Row{
		"name":              "Acme",
		"logo_url":          "   ",
		"founded_on":        "unknown",
		"total_funding_usd": math.NaN(),
		"country_code":      "XXX",
	}

	got := MergeCompany("acme.com", cb, nil)
	require.NotNil(t, got)
	assert.Nil(t, got["logo"])
	assert.Nil(t, got["inc_date"])
	assert.Nil(t, got["total_amount_raised"])
	assert.Nil(t, got["hq_country"])
}

func TestMergeCompany_TagOrderPreserved(t *testing.T) {
	cb := store.Row{"name": "Acme", "category_list": []string{"SaaS"}, "category_groups_list": []string{"Software"}}
	tx := store.Row{
		"company_name":    "Acme",
		"sector":          []string{"Analytics"},
		"business_models": "B2B, SaaS",
		"special_flags":   []string{"Soonicorn"},
	}

	got := MergeCompany("acme.com", cb, tx)
	// Traxcn lists first in column order, then crunchbase; no dedup here.
	assert.Equal(t, []string{"Analytics", "B2B", "SaaS", "Soonicorn", "SaaS", "Software"}, got["all_tags"])
}

func TestCompanies_StageUpsertsAndSkips(t *testing.T) {
	st := storetest.New()
	st.Tables["crunchbase_companies"] = []store.Row{
		{"domain": "acme.com", "name": "Acme", "total_funding_usd": 1_000_000.0},
	}
	st.Tables["traxcn_companies"] = []store.Row{
		{"domain_name": "acme.com", "company_name": "Acme", "total_funding_in_usd": 2_000_000.0},
		{"domain_name": "zeta.io", "company_name": "Zeta"},
	}

	stats, err := Companies(context.Background(), st, []string{"acme.com", "zeta.io", "ghost.io"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)

	rows := st.Upserts["companies"]
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"domain"}, st.Keys["companies"])

	byDomain := map[string]store.Row{}
	for _, r := range rows {
		byDomain[r["domain"].(string)] = r
	}
	assert.Equal(t, SourceBoth, byDomain["acme.com"]["source"])
	assert.Equal(t, 2_000_000.0, byDomain["acme.com"]["total_amount_raised"])
	assert.Equal(t, SourceTraxcn, byDomain["zeta.io"]["source"])
}

func TestCompanies_RerunIsIdempotent(t *testing.T) {
	st := storetest.New()
	st.Tables["traxcn_companies"] = []store.Row{
		{"domain_name": "zeta.io", "company_name": "Zeta"},
	}

	_, err := Companies(context.Background(), st, []string{"zeta.io"})
	require.NoError(t, err)
	first := st.Upserts["companies"][0]

	_, err = Companies(context.Background(), st, []string{"zeta.io"})
	require.NoError(t, err)
	second := st.Upserts["companies"][1]

	assert.Equal(t, first, second)
}
