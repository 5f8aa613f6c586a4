package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/quantfade/longshot/internal/ledger"
	"github.com/quantfade/longshot/internal/scoreboard"
	"github.com/quantfade/longshot/internal/settlement"
	"github.com/quantfade/longshot/internal/storage"
	"github.com/quantfade/longshot/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Run one settlement sweep over the saved book",
	Long: `Loads the saved paper book, checks every open position against the
league scoreboard, and settles those whose games have finished.
Positions whose games are still running or cannot be found are left
open for the next sweep.`,
	RunE: runSettle,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(settleCmd)
}

func runSettle(cmd *cobra.Command, args []string) error {
	loadEnv()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()

	store, err := storage.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("open ledger store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	broker, err := ledger.NewPaperBroker(ctx, &ledger.Config{
		StartingCash: cfg.LedgerStartingCash,
		MaxContracts: cfg.LedgerMaxContracts,
		Store:        store,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("load paper book: %w", err)
	}

	scoreboardClient, err := scoreboard.New(&scoreboard.Config{
		BaseURL: cfg.ScoreboardURL,
		Timeout: cfg.ScoreboardTimeout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create scoreboard client: %w", err)
	}

	settler, err := settlement.New(&settlement.Config{
		Broker:      broker,
		Source:      scoreboardClient,
		Logger:      logger,
		Concurrency: cfg.SettlementConcurrency,
	})
	if err != nil {
		return fmt.Errorf("create settler: %w", err)
	}

	summary, err := settler.Run(ctx)
	if err != nil {
		return fmt.Errorf("settlement sweep: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}
