package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.Float64("starting-cash", a.cfg.LedgerStartingCash),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	// Mark as ready
	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("ws-url", a.cfg.StreamWSURL))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	// Start circuit breaker monitoring
	if a.breaker != nil {
		a.breaker.Start(a.ctx)
	}

	// Connect to the trade feed
	err := a.streamMgr.Start()
	if err != nil {
		return fmt.Errorf("start stream manager: %w", err)
	}

	// Start the pipeline and the settlement sweeper under one group so
	// a failure in either tears both down.
	group, groupCtx := errgroup.WithContext(a.ctx)

	group.Go(func() error {
		return a.runner.Run(groupCtx)
	})

	group.Go(func() error {
		return a.runSettlementLoop(groupCtx)
	})

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := group.Wait()
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("pipeline-group-error", zap.Error(err))
		}
	}()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// runSettlementLoop sweeps open positions on a fixed interval.
func (a *App) runSettlementLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.SettlementSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, err := a.settler.Run(ctx)
			if err != nil {
				a.logger.Error("settlement-sweep-error", zap.Error(err))
			}
		}
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
