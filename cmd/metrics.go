package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/match"
	"github.com/venturedesk/sourcing-cli/internal/metrics"
	"github.com/venturedesk/sourcing-cli/internal/score"
)

var fundingCmd = &cobra.Command{
	Use:   "funding [domains...]",
	Short: "Compute per-company funding metrics",
	Long: `Derives the funding summary (stage, first/last round, investors,
round count) for each company from its canonical record and pooled
funding rounds.`,
	RunE: runFunding,
}

var fuzzyCmd = &cobra.Command{
	Use:   "fuzzy [domains...]",
	Short: "Match scraped client and partner mentions against reference lists",
	Long: `Matches scraped key clients and key partners against the curated
competitor, platform and Global 2000 lists, writing the identified
references per company.`,
	RunE: runFuzzy,
}

var scoresCmd = &cobra.Command{
	Use:   "scores [domains...]",
	Short: "Propagate manual solution-fit scores by nearest neighbor",
	Long: `Assigns each target company the solution-fit score of its nearest
manually labeled neighbor in embedding space, independently for the CG
and BY axes.`,
	RunE: runScores,
}

func init() {
	addDomainFlags(fundingCmd)
	addDomainFlags(fuzzyCmd)
	fuzzyCmd.Flags().Float64("threshold", 0, "minimum match score 0-100 (overrides config)")
	addDomainFlags(scoresCmd)
	rootCmd.AddCommand(fundingCmd, fuzzyCmd, scoresCmd)
}

func runFunding(cmd *cobra.Command, args []string) error {
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

	stats, err := metrics.Funding(ctx, st, domains)
	if err != nil {
		return err
	}
	zap.L().Info("funding metrics computed", zap.Int("processed", stats.Processed), zap.Int("skipped", stats.Skipped))
	return nil
}

func runFuzzy(cmd *cobra.Command, args []string) error {
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

	threshold := cfg.Match.Threshold
	if override, _ := cmd.Flags().GetFloat64("threshold"); override > 0 {
		threshold = override
	}

	stats, err := match.Fuzzy(ctx, st, domains, threshold)
	if err != nil {
		return err
	}
	zap.L().Info("fuzzy matching done", zap.Int("processed", stats.Processed), zap.Int("skipped", stats.Skipped))
	return nil
}

func runScores(cmd *cobra.Command, args []string) error {
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

	stats, err := score.Propagate(ctx, st, domains)
	if err != nil {
		return err
	}
	zap.L().Info("scores propagated", zap.Int("processed", stats.Processed), zap.Int("skipped", stats.Skipped))
	return nil
}
