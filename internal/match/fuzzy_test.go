package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturedesk/sourcing-cli/internal/refdata"
	"github.com/venturedesk/sourcing-cli/internal/store"
	"github.com/venturedesk/sourcing-cli/internal/store/storetest"
)

func fuzzyFixture() *storetest.Fake {
	st := storetest.New()
	st.Tables["web_scraping_enrichment"] = []store.Row{
		// Stale generation for acme.com; the later row supersedes it.
		{"domain": "acme.com", "key_clients": []string{"Oldcorp"}, "key_partners": nil, "updated_at": "2024-01-01T00:00:00Z"},
		{"domain": "acme.com", "key_clients": []string{"Apple", "Zebra Logistics"}, "key_partners": []string{"SAP"}, "updated_at": "2025-03-01T00:00:00Z"},
		{"domain": "zeta.io", "key_clients": nil, "key_partners": []string{"Apple"}, "updated_at": "2025-01-01T00:00:00Z"},
	}
	st.Tables[refdata.TableGlobal2000] = []store.Row{
		{"name": "Apple Inc."},
	}
	st.Tables[refdata.TableCGSWPartners] = []store.Row{
		{"name": "SAP"},
	}
	return st
}

func TestFuzzy_MatchesMentionsPerCategory(t *testing.T) {
	st := fuzzyFixture()

	stats, err := Fuzzy(context.Background(), st, []string{"acme.com", "zeta.io", "ghost.io"}, DefaultThreshold)
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
	// The output keeps the reference spelling and appends the scraped
	// mention in parentheses.
	assert.Equal(t, []string{"Apple Inc. (Apple)"}, acme["global_2000_clients"])
	assert.Equal(t, []string{"SAP (SAP)"}, acme["platforms_cg"])
	assert.Equal(t, []string{}, acme["competitors_cg"])
	assert.Equal(t, []string{}, acme["competitors_by"])
	assert.Equal(t, []string{}, acme["platforms_by"])

	// Clients and partners feed the same pool, so a partner mention can
	// still hit the clients list.
	zeta := byDomain["zeta.io"]
	assert.Equal(t, []string{"Apple Inc. (Apple)"}, zeta["global_2000_clients"])
}

func TestFuzzy_StaleGenerationIgnored(t *testing.T) {
	st := fuzzyFixture()
	st.Tables[refdata.TableGlobal2000] = append(st.Tables[refdata.TableGlobal2000], store.Row{"name": "Oldcorp"})

	_, err := Fuzzy(context.Background(), st, []string{"acme.com"}, DefaultThreshold)
	require.NoError(t, err)

	rows := st.Upserts["business_computed_values"]
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Apple Inc. (Apple)"}, rows[0]["global_2000_clients"])
}

func TestFuzzy_NoScrapedDataNoWrites(t *testing.T) {
	st := storetest.New()

	stats, err := Fuzzy(context.Background(), st, []string{"ghost.io"}, DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Processed)
	assert.Empty(t, st.Upserts["business_computed_values"])
}
