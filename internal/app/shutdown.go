package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Cancel context to signal all components
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Close the trade feed; this also closes the event channel feeding
	// the pipeline runner.
	err = a.streamMgr.Close()
	if err != nil {
		a.logger.Error("stream-manager-close-error", zap.Error(err))
	}

	// Wait for all goroutines
	a.wg.Wait()

	// Close stores last so in-flight persists finish first
	err = a.statsStore.Close()
	if err != nil {
		a.logger.Error("stats-store-close-error", zap.Error(err))
	}

	err = a.ledgerStore.Close()
	if err != nil {
		a.logger.Error("ledger-store-close-error", zap.Error(err))
	}

	a.logger.Info("application-shutdown-complete")

	return nil
}
