package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/enrich"
	"github.com/venturedesk/sourcing-cli/internal/match"
	"github.com/venturedesk/sourcing-cli/internal/metrics"
	"github.com/venturedesk/sourcing-cli/internal/reconcile"
	"github.com/venturedesk/sourcing-cli/internal/score"
	"github.com/venturedesk/sourcing-cli/internal/store"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline [domains...]",
	Short: "Run the full sourcing pipeline",
	Long: `Runs every stage in dependency order: reconciliation (companies,
funding rounds, founders), funding metrics, embeddings, tag annotation,
founder analysis, fuzzy matching and score propagation.

Examples:
  # Full run for a batch of domains
  pipeline --domains-file domains.txt

  # Skip the model-backed stages
  pipeline acme.com --skip-model-stages`,
	RunE: runPipeline,
}

func init() {
	addDomainFlags(pipelineCmd)
	pipelineCmd.Flags().Bool("skip-model-stages", false, "skip embeddings, tags, founder analysis and scores")
	rootCmd.AddCommand(pipelineCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	domains, err := resolveDomains(cmd, args)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	log := zap.L().With(zap.String("command", "pipeline"))
	log.Info("pipeline starting", zap.Int("domains", len(domains)))

	type stage struct {
		name string
		run  func(context.Context, store.Store, []string) (reconcile.Stats, error)
	}

	stages := []stage{
		{"reconcile_companies", reconcile.Companies},
		{"reconcile_funding_rounds", reconcile.FundingRounds},
		{"reconcile_founders", reconcile.Founders},
		{"compute_funding_metrics", metrics.Funding},
	}

	skipModel, _ := cmd.Flags().GetBool("skip-model-stages")
	if !skipModel {
		embedder, err := newEmbedder()
		if err != nil {
			return err
		}
		model, err := newQAModel()
		if err != nil {
			return err
		}
		stages = append(stages,
			stage{"embed_textual_dimensions", func(ctx context.Context, st store.Store, domains []string) (reconcile.Stats, error) {
				return enrich.Embed(ctx, st, embedder, domains)
			}},
			stage{"annotate_company_tags", func(ctx context.Context, st store.Store, domains []string) (reconcile.Stats, error) {
				return enrich.Tags(ctx, st, model, domains)
			}},
			stage{"compute_founders_values", func(ctx context.Context, st store.Store, domains []string) (reconcile.Stats, error) {
				return enrich.SerialEntrepreneurs(ctx, st, model, domains)
			}},
		)
		defer func() { model.Usage().LogCost(cfg.Anthropic.Model, "pipeline") }()
	}

	stages = append(stages,
		stage{"fuzzy_matching_metrics", func(ctx context.Context, st store.Store, domains []string) (reconcile.Stats, error) {
			return match.Fuzzy(ctx, st, domains, cfg.Match.Threshold)
		}},
	)
	if !skipModel {
		stages = append(stages, stage{"compute_scores", score.Propagate})
	}

	for _, s := range stages {
		stats, err := s.run(ctx, st, domains)
		if err != nil {
			log.Error("stage failed", zap.String("stage", s.name), zap.Error(err))
			return err
		}
		log.Info("stage complete",
			zap.String("stage", s.name),
			zap.Int("processed", stats.Processed),
			zap.Int("skipped", stats.Skipped),
		)
	}

	log.Info("pipeline complete")
	return nil
}
