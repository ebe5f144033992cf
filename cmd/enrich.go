package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/enrich"
)

var embedCmd = &cobra.Command{
	Use:   "embed [domains...]",
	Short: "Embed company textual dimensions",
	Long: `Vectorizes each company's solution/use-case text and full dossier
and stores the embeddings for retrieval and score propagation.`,
	RunE: runEmbed,
}

var tagsCmd = &cobra.Command{
	Use:   "tags [domains...]",
	Short: "Annotate companies with model-derived tags",
	Long: `Tags each company (industries served, GTM target, business model,
tech tags) by asking the model about its scraped dossier, validating
every answer against the runtime taxonomies.`,
	RunE: runTags,
}

var serialCmd = &cobra.Command{
	Use:   "serial [domains...]",
	Short: "Analyze founders for serial entrepreneurship",
	Long: `Builds each company's founder roster and asks the model whether any
founder built a company before this one.`,
	RunE: runSerial,
}

func init() {
	addDomainFlags(embedCmd)
	addDomainFlags(tagsCmd)
	addDomainFlags(serialCmd)
	rootCmd.AddCommand(embedCmd, tagsCmd, serialCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
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

	embedder, err := newEmbedder()
	if err != nil {
		return err
	}

	stats, err := enrich.Embed(ctx, st, embedder, domains)
	if err != nil {
		return err
	}
	zap.L().Info("embeddings written", zap.Int("processed", stats.Processed), zap.Int("skipped", stats.Skipped))
	return nil
}

func runTags(cmd *cobra.Command, args []string) error {
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

	model, err := newQAModel()
	if err != nil {
		return err
	}

	stats, err := enrich.Tags(ctx, st, model, domains)
	if err != nil {
		return err
	}
	model.Usage().LogCost(cfg.Anthropic.Model, "tags")
	zap.L().Info("tags annotated", zap.Int("processed", stats.Processed), zap.Int("skipped", stats.Skipped))
	return nil
}

func runSerial(cmd *cobra.Command, args []string) error {
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

	model, err := newQAModel()
	if err != nil {
		return err
	}

	stats, err := enrich.SerialEntrepreneurs(ctx, st, model, domains)
	if err != nil {
		return err
	}
	model.Usage().LogCost(cfg.Anthropic.Model, "serial")
	zap.L().Info("founder analysis written", zap.Int("processed", stats.Processed), zap.Int("skipped", stats.Skipped))
	return nil
}
