package main

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/venturedesk/sourcing-cli/internal/store"
	"github.com/venturedesk/sourcing-cli/pkg/embeddings"
	"github.com/venturedesk/sourcing-cli/pkg/qa"
)

// openStore connects the Postgres store. The returned close function
// must be called when the command finishes.
func openStore(ctx context.Context) (store.Store, func(), error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, nil, eris.New("store.database_url is required (SOURCING_STORE_DATABASE_URL)")
	}
	pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, nil, eris.Wrap(err, "connect database")
	}
	return store.NewPostgres(pool, cfg.Store.PageSize), pool.Close, nil
}

// newQAModel builds the configured QA model.
func newQAModel() (*qa.Model, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic.key is required (SOURCING_ANTHROPIC_KEY)")
	}
	return qa.NewModel(qa.NewClient(cfg.Anthropic.Key),
		qa.WithModel(cfg.Anthropic.Model),
		qa.WithMaxTokens(cfg.Anthropic.MaxTokens),
		qa.WithWorkers(cfg.Anthropic.Workers),
		qa.WithRateLimit(cfg.Anthropic.RequestsPerSec),
		qa.WithQuotaAbortLimit(cfg.Anthropic.QuotaAbortLimit),
	), nil
}

// newEmbedder builds the configured embedding provider.
func newEmbedder() (*embeddings.Embedder, error) {
	if cfg.Embeddings.Key == "" {
		return nil, eris.New("embeddings.key is required (SOURCING_EMBEDDINGS_KEY)")
	}
	return embeddings.New(embeddings.Config{
		APIKey:     cfg.Embeddings.Key,
		BaseURL:    cfg.Embeddings.BaseURL,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
	}), nil
}

// resolveDomains collects target domains from positional args and the
// optional --domains-file flag (one domain per line, '#' comments).
func resolveDomains(cmd *cobra.Command, args []string) ([]string, error) {
	domains := make([]string, 0, len(args))
	seen := make(map[string]bool)
	add := func(d string) {
		d = strings.TrimSpace(strings.ToLower(d))
		if d != "" && !seen[d] {
			seen[d] = true
			domains = append(domains, d)
		}
	}
	for _, a := range args {
		add(a)
	}

	path, _ := cmd.Flags().GetString("domains-file")
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open domains file %s", path)
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			add(line)
		}
		if err := scanner.Err(); err != nil {
			return nil, eris.Wrapf(err, "read domains file %s", path)
		}
	}

	if len(domains) == 0 {
		return nil, eris.New("no domains given: pass them as arguments or via --domains-file")
	}
	return domains, nil
}

func addDomainFlags(cmd *cobra.Command) {
	cmd.Flags().String("domains-file", "", "file with one domain per line")
}
