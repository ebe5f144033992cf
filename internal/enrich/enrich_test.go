package enrich

import (
	"context"

	"github.com/venturedesk/sourcing-cli/internal/store"
	"github.com/venturedesk/sourcing-cli/internal/store/storetest"
	"github.com/venturedesk/sourcing-cli/pkg/qa"
)

// fakeAsker records the batch it was handed and replays canned answers.
type fakeAsker struct {
	got     []qa.Question
	answers []*qa.Answer
	err     error
}

func (f *fakeAsker) AskBatch(_ context.Context, questions []qa.Question) ([]*qa.Answer, error) {
	f.got = questions
	if f.err != nil {
		return nil, f.err
	}
	return f.answers, nil
}

// fakeEmbedder returns one axis-aligned unit vector per text.
type fakeEmbedder struct {
	got []string
	err error
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.got = texts
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, len(texts))
		vec[i] = 1
		out[i] = vec
	}
	return out, nil
}

func taxonomyFixture(st *storetest.Fake) {
	st.Tables["industries"] = []store.Row{
		{"industry": "Banking", "sector": "Financial Services", "scope": "CG", "description": "Banks and insurers"},
		{"industry": "Construction", "sector": "Built World", "scope": "BY", "description": "Building and infrastructure"},
		{"industry": "Energy", "sector": "Utilities", "scope": "BOTH", "description": "Energy production and grids"},
	}
	st.Tables["gtm_target"] = []store.Row{
		{"target": "Enterprises", "scope": "ALL", "description": "Large accounts"},
		{"target": "SMBs", "scope": "ALL", "description": "Small businesses"},
		{"target": "Contractors", "scope": "BY", "description": "Construction contractors"},
	}
	st.Tables["business_models"] = []store.Row{
		{"name": "SaaS", "description": "Subscription software"},
	}
	st.Tables["business_mapping"] = []store.Row{
		{"name": "Field Ops", "description": "Field operations tooling"},
	}
}

func enrichmentRow(domain, description string, extra store.Row) store.Row {
	row := store.Row{
		"domain":      domain,
		"description": description,
		"updated_at":  "2025-01-01T00:00:00Z",
	}
	for k, v := range extra {
		row[k] = v
	}
	return row
}
