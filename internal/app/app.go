package app

import (
	"context"
	"sync"

	"github.com/quantfade/longshot/internal/circuitbreaker"
	"github.com/quantfade/longshot/internal/ledger"
	"github.com/quantfade/longshot/internal/pipeline"
	"github.com/quantfade/longshot/internal/settlement"
	"github.com/quantfade/longshot/internal/stats"
	"github.com/quantfade/longshot/pkg/config"
	"github.com/quantfade/longshot/pkg/healthprobe"
	"github.com/quantfade/longshot/pkg/httpserver"
	"github.com/quantfade/longshot/pkg/stream"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	streamMgr     *stream.Manager
	runner        *pipeline.Runner
	settler       *settlement.Settler
	broker        *ledger.PaperBroker
	breaker       *circuitbreaker.CashCircuitBreaker
	statsStore    *stats.PostgresStore
	ledgerStore   ledger.Store
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
