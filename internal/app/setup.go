package app

import (
	"context"
	"fmt"

	"github.com/quantfade/longshot/internal/circuitbreaker"
	"github.com/quantfade/longshot/internal/ledger"
	"github.com/quantfade/longshot/internal/markets"
	"github.com/quantfade/longshot/internal/narrative"
	"github.com/quantfade/longshot/internal/pipeline"
	"github.com/quantfade/longshot/internal/quant"
	"github.com/quantfade/longshot/internal/review"
	"github.com/quantfade/longshot/internal/scoreboard"
	"github.com/quantfade/longshot/internal/settlement"
	"github.com/quantfade/longshot/internal/stats"
	"github.com/quantfade/longshot/internal/storage"
	"github.com/quantfade/longshot/internal/synthesis"
	"github.com/quantfade/longshot/pkg/cache"
	"github.com/quantfade/longshot/pkg/config"
	"github.com/quantfade/longshot/pkg/healthprobe"
	"github.com/quantfade/longshot/pkg/httpserver"
	"github.com/quantfade/longshot/pkg/stream"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	metadataCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	metadataClient, err := setupMetadataClient(cfg, logger, metadataCache)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup metadata client: %w", err)
	}

	ledgerStore, err := storage.New(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup ledger store: %w", err)
	}

	broker, err := ledger.NewPaperBroker(ctx, &ledger.Config{
		StartingCash: cfg.LedgerStartingCash,
		MaxContracts: cfg.LedgerMaxContracts,
		Store:        ledgerStore,
		Logger:       logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup paper broker: %w", err)
	}

	statsStore, err := stats.NewPostgresStore(&stats.Config{
		DSN:           cfg.PostgresDSN(),
		SeriesPattern: cfg.StatsCategoryPattern,
		Logger:        logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup stats store: %w", err)
	}

	scoreboardClient, err := scoreboard.New(&scoreboard.Config{
		BaseURL: cfg.ScoreboardURL,
		Timeout: cfg.ScoreboardTimeout,
		Logger:  logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup scoreboard client: %w", err)
	}

	evaluator, err := quant.NewEvaluator(&quant.Config{
		Stats:            statsStore,
		ContextSource:    scoreboardClient,
		Logger:           logger,
		ConfirmedGapPP:   cfg.EdgeConfirmedGapPP,
		WeakGapPP:        cfg.EdgeWeakGapPP,
		ConfirmedSamples: cfg.EdgeConfirmedSamples,
		WeakSamples:      cfg.EdgeWeakSamples,
		StaleHorizon:     cfg.EdgeStaleHorizon,
		LongshotCeiling:  cfg.FilterLongshotCeiling,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup evaluator: %w", err)
	}

	synthesizer, err := setupSynthesizer(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup synthesizer: %w", err)
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
		cancel()
		return nil, fmt.Errorf("setup reviewer: %w", err)
	}

	breaker, err := setupBreaker(cfg, logger, broker)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	filter, err := pipeline.NewFilter(&pipeline.FilterConfig{
		Metadata:        metadataClient,
		Logger:          logger,
		LongshotCeiling: cfg.FilterLongshotCeiling,
		FavoriteFloor:   cfg.FilterFavoriteFloor,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup filter: %w", err)
	}

	streamMgr := stream.New(stream.Config{
		URL:                   cfg.StreamWSURL,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		EventBufferSize:       cfg.WSEventBufferSize,
		Logger:                logger,
	})

	runnerCfg := &pipeline.RunnerConfig{
		Events:      streamMgr.EventChan(),
		Filter:      filter,
		Evaluator:   evaluator,
		Synthesizer: synthesizer,
		Reviewer:    reviewer,
		Broker:      broker,
		Logger:      logger,
	}
	if breaker != nil {
		runnerCfg.Breaker = breaker
	}

	runner, err := pipeline.NewRunner(runnerCfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup runner: %w", err)
	}

	settler, err := settlement.New(&settlement.Config{
		Broker:      broker,
		Source:      scoreboardClient,
		Logger:      logger,
		Concurrency: cfg.SettlementConcurrency,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup settler: %w", err)
	}

	httpServer := setupHTTPServer(cfg, logger, healthChecker, broker, breaker)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		streamMgr:     streamMgr,
		runner:        runner,
		settler:       settler,
		broker:        broker,
		breaker:       breaker,
		statsStore:    statsStore,
		ledgerStore:   ledgerStore,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupCache(logger *zap.Logger) (cache.MetadataCache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000, // 10x expected max items (1000 markets)
		MaxCost:     1000,  // Maximum 1000 items in cache
		BufferItems: 64,    // Buffer size for Get operations
		Logger:      logger,
	})
}

func setupMetadataClient(cfg *config.Config, logger *zap.Logger, metadataCache cache.MetadataCache) (*markets.CachedClient, error) {
	client, err := markets.NewClient(&markets.ClientConfig{
		BaseURL: cfg.MarketAPIURL,
		APIKey:  cfg.MarketAPIKey,
		Timeout: cfg.MarketAPITimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	return markets.NewCachedClient(client, metadataCache, cfg.MarketCacheTTL), nil
}

func setupSynthesizer(cfg *config.Config, logger *zap.Logger) (*synthesis.Synthesizer, error) {
	var summarizer narrative.Summarizer
	if cfg.SummarizerURL != "" {
		httpSummarizer, err := narrative.NewHTTPSummarizer(&narrative.HTTPConfig{
			URL:     cfg.SummarizerURL,
			Timeout: cfg.SummarizerTimeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create http summarizer: %w", err)
		}
		summarizer = httpSummarizer
	} else {
		logger.Info("summarizer-url-not-set",
			zap.String("note", "falling back to template narratives"))
	}

	return synthesis.New(&synthesis.Config{
		Summarizer: summarizer,
		Logger:     logger,
		KellyCap:   cfg.KellyCap,
	})
}

func setupBreaker(cfg *config.Config, logger *zap.Logger, broker *ledger.PaperBroker) (*circuitbreaker.CashCircuitBreaker, error) {
	if !cfg.BreakerEnabled {
		logger.Info("circuit-breaker-disabled",
			zap.String("note", "opens will not be gated on book cash"))
		return nil, nil
	}

	return circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.BreakerCheckInterval,
		TradeMultiplier: cfg.BreakerTradeMultiplier,
		MinAbsolute:     cfg.BreakerMinAbsolute,
		HysteresisRatio: cfg.BreakerHysteresisRatio,
		Book:            broker,
		Logger:          logger,
	})
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	broker *ledger.PaperBroker,
	breaker *circuitbreaker.CashCircuitBreaker,
) *httpserver.Server {
	serverCfg := &httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Book:          broker,
	}
	if breaker != nil {
		serverCfg.Breaker = breaker
	}

	return httpserver.New(serverCfg)
}
