package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/quantfade/longshot/internal/ledger"
	"github.com/quantfade/longshot/internal/storage"
	"github.com/quantfade/longshot/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Print the saved paper book",
	Long: `Loads the saved paper book from the configured store and prints
cash, realized PnL and every position as JSON.`,
	RunE: runBook,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(bookCmd)
	bookCmd.Flags().Bool("open-only", false, "Print only open positions")
}

func runBook(cmd *cobra.Command, args []string) error {
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

	store, err := storage.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("open ledger store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	broker, err := ledger.NewPaperBroker(context.Background(), &ledger.Config{
		StartingCash: cfg.LedgerStartingCash,
		MaxContracts: cfg.LedgerMaxContracts,
		Store:        store,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("load paper book: %w", err)
	}

	book := broker.Snapshot()

	openOnly, _ := cmd.Flags().GetBool("open-only")
	if openOnly {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(book.OpenPositions())
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(book)
}
