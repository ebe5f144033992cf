package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturedesk/sourcing-cli/internal/store"
	"github.com/venturedesk/sourcing-cli/internal/store/storetest"
)

func foundersFixture() *storetest.Fake {
	st := storetest.New()
	st.Tables["companies"] = []store.Row{
		{"id": "c-acme", "domain": "acme.com", "source": SourceBoth},
		{"id": "c-zeta", "domain": "zeta.io", "source": SourceTraxcn},
	}
	st.Tables["crunchbase_companies"] = []store.Row{
		{"domain": "acme.com", "crunchbase_id": "cb-1"},
	}
	st.Tables["crunchbase_founders"] = []store.Row{
		{"crunchbase_company_uuid": "cb-1", "name": "Jane Doe", "job_title": "CEO", "description": "Founded two companies", "linkedin_url": "https://linkedin.com/in/jane"},
		{"crunchbase_company_uuid": "cb-orphan", "name": "Nobody"},
	}
	st.Tables["traxcn_founders"] = []store.Row{
		{"domain_name": "zeta.io", "founder_name": "Ines Martin", "title": "CTO", "profile_links": "https://linkedin.com/in/ines"},
	}
	return st
}

func TestFounders_SourcePickIsCompanyLevel(t *testing.T) {
	st := foundersFixture()

	stats, err := Founders(context.Background(), st, []string{"acme.com", "zeta.io"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Skipped) // cb-orphan has no resolvable company

	rows := st.Inserts["founders"]
	require.Len(t, rows, 2)

	bySource := map[string]store.Row{}
	for _, r := range rows {
		bySource[r["source"].(string)] = r
	}
	cb := bySource[SourceCrunchbase]
	assert.Equal(t, "c-acme", cb["company_id"])
	assert.Equal(t, "Jane Doe", cb["name"])
	assert.Equal(t, "CEO", cb["role"])
	assert.NotEmpty(t, cb["id"])

	tx := bySource[SourceTraxcn]
	assert.Equal(t, "c-zeta", tx["company_id"])
	assert.Equal(t, "Ines Martin", tx["name"])
	assert.Equal(t, "CTO", tx["role"])
}

func TestFounders_DeletesBeforeInsert(t *testing.T) {
	st := foundersFixture()

	_, err := Founders(context.Background(), st, []string{"acme.com", "zeta.io"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c-acme", "c-zeta"}, st.Deletes["founders"])
}

func TestFounders_UnknownDomainSkipped(t *testing.T) {
	st := foundersFixture()

	stats, err := Founders(context.Background(), st, []string{"ghost.io"})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Processed)
	assert.Empty(t, st.Deletes["founders"])
	assert.Empty(t, st.Inserts["founders"])
}
