package score

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturedesk/sourcing-cli/internal/store"
	"github.com/venturedesk/sourcing-cli/internal/store/storetest"
)

func TestParseVector(t *testing.T) {
	got, err := ParseVector("[0.1, 0.2,0.3]")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got)

	got, err = ParseVector([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, got)

	got, err = ParseVector(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseVector("[]")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseVector("[0.1,oops]")
	assert.Error(t, err)

	_, err = ParseVector(42)
	assert.Error(t, err)
}

func TestNearest(t *testing.T) {
	refs := [][]float32{{1, 0}, {0, 1}}
	assert.Equal(t, 0, Nearest([]float32{0.9, 0.1}, refs))
	assert.Equal(t, 1, Nearest([]float32{0.1, 0.9}, refs))
	assert.Equal(t, -1, Nearest([]float32{1, 0}, nil))

	// Ties resolve to the first reference.
	assert.Equal(t, 0, Nearest([]float32{1, 1}, refs))
}

func scoreFixture() *storetest.Fake {
	st := storetest.New()
	st.Tables["companies"] = []store.Row{
		{"domain": "ref-a.com", "solution_fit_cg_manual": int64(1), "solution_fit_by_manual": int64(4)},
		{"domain": "ref-b.com", "solution_fit_cg_manual": int64(5), "solution_fit_by_manual": nil},
		{"domain": "ref-noemb.com", "solution_fit_cg_manual": int64(3), "solution_fit_by_manual": nil},
	}
	st.Tables["company_embeddings"] = []store.Row{
		{"domain": "ref-a.com", "solution_and_use_cases_embedding": "[1,0]"},
		{"domain": "ref-b.com", "solution_and_use_cases_embedding": "[0,1]"},
		{"domain": "target.com", "solution_and_use_cases_embedding": "[0.9,0.1]"},
		{"domain": "far.com", "solution_and_use_cases_embedding": "[0.1,0.9]"},
	}
	return st
}

func TestPropagate_AssignsNearestLabel(t *testing.T) {
	st := scoreFixture()

	stats, err := Propagate(context.Background(), st, []string{"target.com", "far.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 0, stats.Skipped)

	rows := st.Upserts["business_computed_values"]
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"domain"}, st.Keys["business_computed_values"])

	byDomain := map[string]store.Row{}
	for _, r := range rows {
		byDomain[r["domain"].(string)] = r
	}

	target := byDomain["target.com"]
	assert.Equal(t, 1, target["solution_fit_cg"])
	// Only ref-a carries a BY label, so it wins regardless of distance.
	assert.Equal(t, 4, target["solution_fit_by"])

	far := byDomain["far.com"]
	assert.Equal(t, 5, far["solution_fit_cg"])
	assert.Equal(t, 4, far["solution_fit_by"])
}

func TestPropagate_MissingEmbeddingGetsNilScores(t *testing.T) {
	st := scoreFixture()

	stats, err := Propagate(context.Background(), st, []string{"target.com", "noemb.com"})
	require.NoError(t, err)
	// A written nil-score record counts as skipped, never as processed.
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)

	rows := st.Upserts["business_computed_values"]
	require.Len(t, rows, 2)
	for _, r := range rows {
		if r["domain"] == "noemb.com" {
			assert.Nil(t, r["solution_fit_cg"])
			assert.Nil(t, r["solution_fit_by"])
		}
	}
}

func TestPropagate_NoReferencesNoWrites(t *testing.T) {
	st := storetest.New()

	stats, err := Propagate(context.Background(), st, []string{"target.com"})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Processed)
	assert.Empty(t, st.Upserts["business_computed_values"])
}
