package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Apple Inc.":            "apple",
		"Société Générale S.A.": "societe generale",
		"Micro-Soft":            "microsoft",
		"  ACME   Co.  Ltd ":    "acme",
		"Inc.":                  "",
		"":                      "",
		"Über GmbH & Co. KG":    "uber",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, s := range []string{"Apple Inc.", "Société Générale S.A.", "21st Century Holdings", "plain name"} {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestScore(t *testing.T) {
	assert.Equal(t, 100.0, Score("apple", "apple"))
	assert.Equal(t, 0.0, Score("apple", "zzzzz"))
	assert.Greater(t, Score("apple", "aple"), Score("apple", "axle"))
}

func TestMatcher_MatchSingle(t *testing.T) {
	m := New([]string{"Apple Inc.", "Microsoft Corporation", "SAP"}, DefaultThreshold)

	got := m.MatchSingle("Apple")
	assert.True(t, got.OK)
	// The original reference text comes back, not the cleaned form.
	assert.Equal(t, "Apple Inc.", got.Match)
	assert.Equal(t, 100.0, got.Score)

	got = m.MatchSingle("Zebra Logistics")
	assert.False(t, got.OK)
	assert.Empty(t, got.Match)

	// Pure legal boilerplate normalizes to nothing and never matches.
	got = m.MatchSingle("Inc.")
	assert.False(t, got.OK)
	assert.Equal(t, 0.0, got.Score)
}

func TestMatcher_ThresholdBoundary(t *testing.T) {
	strict := New([]string{"apple"}, 100)
	assert.False(t, strict.MatchSingle("aple").OK)

	loose := New([]string{"apple"}, 50)
	got := loose.MatchSingle("aple")
	assert.True(t, got.OK)
	assert.Equal(t, "apple", got.Match)
}

func TestMatcher_MatchBatchKeepsOrder(t *testing.T) {
	m := New([]string{"Apple Inc.", "SAP"}, DefaultThreshold)
	results := m.MatchBatch([]string{"SAP", "nobody", "Apple"})
	assert.Len(t, results, 3)
	assert.Equal(t, "SAP", results[0].Match)
	assert.False(t, results[1].OK)
	assert.Equal(t, "Apple Inc.", results[2].Match)
}
