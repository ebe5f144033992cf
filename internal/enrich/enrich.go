// Package enrich runs the model-backed enrichment stages: tag
// annotation, serial-entrepreneur analysis and text embeddings. Each
// stage reads the latest web-scraping generation per domain and writes
// derived columns back to the store.
package enrich

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/venturedesk/sourcing-cli/internal/normalize"
	"github.com/venturedesk/sourcing-cli/internal/store"
	"github.com/venturedesk/sourcing-cli/pkg/qa"
)

// Asker answers question batches; satisfied by *qa.Model.
type Asker interface {
	AskBatch(ctx context.Context, questions []qa.Question) ([]*qa.Answer, error)
}

// Embedder turns texts into vectors; satisfied by *embeddings.Embedder.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// enrichmentColumns are the web_scraping_enrichment fields the stages
// read.
var enrichmentColumns = []string{
	"domain", "description", "detailed_solution", "key_features",
	"use_cases", "tech_description", "industries_served_description",
	"key_clients", "key_partners", "updated_at",
}

// fetchEnrichment returns the latest scraped generation per domain,
// dropping rows without a description.
func fetchEnrichment(ctx context.Context, st store.Store, domains []string) ([]store.Row, error) {
	rows, err := st.FetchIn(ctx, "web_scraping_enrichment", "domain", domains, enrichmentColumns)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: fetch web enrichment")
	}
	rows = store.LatestPer(rows, "domain", "updated_at")

	out := rows[:0]
	for _, r := range rows {
		if normalize.Str(r["description"]) != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// buildDescription assembles the company dossier handed to the model,
// one titled section per populated field.
func buildDescription(r store.Row) string {
	var b strings.Builder
	for _, section := range []struct {
		title  string
		column string
	}{
		{"Description", "description"},
		{"Detailed Solution", "detailed_solution"},
		{"Key Features", "key_features"},
		{"Use Cases", "use_cases"},
		{"Tech Description", "tech_description"},
		{"Industries Served", "industries_served_description"},
		{"Key Clients", "key_clients"},
		{"Key Partners", "key_partners"},
	} {
		content := fieldText(r[section.column])
		if content == "" {
			continue
		}
		b.WriteString("###")
		b.WriteString(section.title)
		b.WriteString("\n")
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// fieldText renders one enrichment field. Free text passes through;
// array columns are joined, never comma-split.
func fieldText(v any) string {
	switch v.(type) {
	case []string, []any:
		return strings.Join(normalize.List(v), ", ")
	}
	if s := normalize.Str(v); s != nil {
		return *s
	}
	return ""
}
