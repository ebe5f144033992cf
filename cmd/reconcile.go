package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [domains...]",
	Short: "Merge crunchbase and traxcn data into canonical companies",
	Long: `Merges the crunchbase and traxcn source tables into one canonical
company record per domain, then pools funding rounds and founders from
both sources.

Examples:
  # Reconcile two companies
  reconcile acme.com zeta.io

  # Reconcile a batch from a file, companies only
  reconcile --domains-file domains.txt --companies-only`,
	RunE: runReconcile,
}

func init() {
	addDomainFlags(reconcileCmd)
	reconcileCmd.Flags().Bool("companies-only", false, "skip funding rounds and founders")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
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

	log := zap.L().With(zap.String("command", "reconcile"))

	stats, err := reconcile.Companies(ctx, st, domains)
	if err != nil {
		return err
	}
	log.Info("companies reconciled", zap.Int("processed", stats.Processed), zap.Int("skipped", stats.Skipped))

	if only, _ := cmd.Flags().GetBool("companies-only"); only {
		return nil
	}

	stats, err = reconcile.FundingRounds(ctx, st, domains)
	if err != nil {
		return err
	}
	log.Info("funding rounds pooled", zap.Int("processed", stats.Processed), zap.Int("skipped", stats.Skipped))

	stats, err = reconcile.Founders(ctx, st, domains)
	if err != nil {
		return err
	}
	log.Info("founders refreshed", zap.Int("processed", stats.Processed), zap.Int("skipped", stats.Skipped))

	return nil
}
