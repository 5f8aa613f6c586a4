package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/quantfade/longshot/internal/ledger"
	"github.com/quantfade/longshot/internal/pipeline"
	"github.com/quantfade/longshot/internal/quant"
	"github.com/quantfade/longshot/internal/review"
	"github.com/quantfade/longshot/internal/stats"
	"github.com/quantfade/longshot/internal/storage"
	"github.com/quantfade/longshot/internal/synthesis"
	"github.com/quantfade/longshot/pkg/config"
	"github.com/quantfade/longshot/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay finalized markets through the pipeline",
	Long: `Replays the most recently finalized markets from the historical
trade database through the full pipeline. Each replayed trade that
survives the filter, evaluation and review stages is opened and settled
immediately against the market's known result.

Prints an aggregate summary when the replay finishes.`,
	RunE: runBacktest,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().IntP("limit", "n", 500, "Number of finalized markets to replay")
	backtestCmd.Flags().Float64P("bankroll", "b", 0, "Starting cash (defaults to LEDGER_STARTING_CASH)")
	backtestCmd.Flags().Float64("stake-fraction", 0, "Cap every stake at this fraction instead of KELLY_CAP")
	backtestCmd.Flags().String("data-dir", "", "Write fill/equity CSVs here instead of discarding them")
}

func runBacktest(cmd *cobra.Command, args []string) error {
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

	limit, _ := cmd.Flags().GetInt("limit")
	bankroll, _ := cmd.Flags().GetFloat64("bankroll")
	if bankroll <= 0 {
		bankroll = cfg.LedgerStartingCash
	}
	stakeFraction, _ := cmd.Flags().GetFloat64("stake-fraction")
	if stakeFraction > 0 {
		cfg.KellyCap = stakeFraction
	}
	dataDir, _ := cmd.Flags().GetString("data-dir")

	ctx := context.Background()

	statsStore, err := stats.NewPostgresStore(&stats.Config{
		DSN:           cfg.PostgresDSN(),
		SeriesPattern: cfg.StatsCategoryPattern,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("open stats store: %w", err)
	}
	defer func() {
		_ = statsStore.Close()
	}()

	replays, err := statsStore.LoadFinalized(ctx, limit)
	if err != nil {
		return fmt.Errorf("load finalized markets: %w", err)
	}
	if len(replays) == 0 {
		return fmt.Errorf("no finalized markets found for pattern %q", cfg.StatsCategoryPattern)
	}

	logger.Info("backtest-starting",
		zap.Int("markets", len(replays)),
		zap.Float64("bankroll", bankroll))

	// Backtests discard artifacts by default; --data-dir opts in to CSVs
	var store ledger.Store = storage.NewConsoleStore(zap.NewNop())
	if dataDir != "" {
		store, err = storage.NewCSVStore(&storage.CSVConfig{
			Dir:    dataDir,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("open csv store: %w", err)
		}
		defer func() {
			_ = store.Close()
		}()
	}

	broker, err := ledger.NewBacktestBroker(ctx, &ledger.Config{
		StartingCash: bankroll,
		MaxContracts: cfg.LedgerMaxContracts,
		Store:        store,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("create backtest broker: %w", err)
	}

	for _, replay := range replays {
		broker.SetResult(replay.Ticker, replay.Winner)
	}

	runner, err := backtestRunner(cfg, logger, statsStore, broker)
	if err != nil {
		return err
	}

	for _, replay := range replays {
		event := types.TradeEvent{
			MarketTicker: replay.Ticker,
			YesPrice:     replay.YesPrice,
			Count:        1,
			Timestamp:    replay.ClosedAt,
		}
		runner.ProcessEvent(ctx, event)
	}

	summary := broker.Summary()
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}

// backtestRunner wires the pipeline stages around the backtest broker.
// No metadata source and no game context: neither exists for games
// played in the past.
func backtestRunner(
	cfg *config.Config,
	logger *zap.Logger,
	statsStore *stats.PostgresStore,
	broker *ledger.BacktestBroker,
) (*pipeline.Runner, error) {
	filter, err := pipeline.NewFilter(&pipeline.FilterConfig{
		Logger:          logger,
		LongshotCeiling: cfg.FilterLongshotCeiling,
		FavoriteFloor:   cfg.FilterFavoriteFloor,
	})
	if err != nil {
		return nil, fmt.Errorf("create filter: %w", err)
	}

	evaluator, err := quant.NewEvaluator(&quant.Config{
		Stats:            statsStore,
		Logger:           logger,
		ConfirmedGapPP:   cfg.EdgeConfirmedGapPP,
		WeakGapPP:        cfg.EdgeWeakGapPP,
		ConfirmedSamples: cfg.EdgeConfirmedSamples,
		WeakSamples:      cfg.EdgeWeakSamples,
		StaleHorizon:     cfg.EdgeStaleHorizon,
		LongshotCeiling:  cfg.FilterLongshotCeiling,
	})
	if err != nil {
		return nil, fmt.Errorf("create evaluator: %w", err)
	}

	synthesizer, err := synthesis.New(&synthesis.Config{
		Logger:   logger,
		KellyCap: cfg.KellyCap,
	})
	if err != nil {
		return nil, fmt.Errorf("create synthesizer: %w", err)
	}

	reviewer, err := review.New(&review.Config{
		Book:                  broker,
		Logger:                logger,
		RiskThreshold:         cfg.ReviewRiskThreshold,
		LiquidityFloor:        cfg.ReviewLiquidityFloor,
		ExposureCapUSD:        cfg.ReviewExposureCapUSD,
		MediumFractionCeiling: cfg.ReviewMediumFractionCeil,
	})
	if err != nil {
		return nil, fmt.Errorf("create reviewer: %w", err)
	}

	return pipeline.NewRunner(&pipeline.RunnerConfig{
		Filter:      filter,
		Evaluator:   evaluator,
		Synthesizer: synthesizer,
		Reviewer:    reviewer,
		Broker:      broker,
		Logger:      logger,
	})
}
