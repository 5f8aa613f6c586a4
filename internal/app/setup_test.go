package app

import (
	"context"
	"testing"
	"time"

	"github.com/quantfade/longshot/internal/ledger"
	"github.com/quantfade/longshot/internal/storage"
	"github.com/quantfade/longshot/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testBroker(t *testing.T) *ledger.PaperBroker {
	t.Helper()

	broker, err := ledger.NewPaperBroker(context.Background(), &ledger.Config{
		StartingCash: 1000.0,
		MaxContracts: 500,
		Store:        storage.NewConsoleStore(zap.NewNop()),
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)
	return broker
}

func TestSetupBreakerDisabled(t *testing.T) {
	cfg := &config.Config{BreakerEnabled: false}

	breaker, err := setupBreaker(cfg, zap.NewNop(), testBroker(t))
	require.NoError(t, err)
	assert.Nil(t, breaker)
}

func TestSetupBreakerEnabled(t *testing.T) {
	cfg := &config.Config{
		BreakerEnabled:         true,
		BreakerCheckInterval:   30 * time.Second,
		BreakerTradeMultiplier: 3.0,
		BreakerMinAbsolute:     25.0,
		BreakerHysteresisRatio: 1.5,
	}

	breaker, err := setupBreaker(cfg, zap.NewNop(), testBroker(t))
	require.NoError(t, err)
	require.NotNil(t, breaker)
	assert.True(t, breaker.IsEnabled())
}

func TestSetupSynthesizerTemplateFallback(t *testing.T) {
	cfg := &config.Config{KellyCap: 0.15}

	synthesizer, err := setupSynthesizer(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, synthesizer)
}

func TestSetupSynthesizerWithHTTPEndpoint(t *testing.T) {
	cfg := &config.Config{
		KellyCap:          0.15,
		SummarizerURL:     "http://localhost:9999/summarize",
		SummarizerTimeout: time.Second,
	}

	synthesizer, err := setupSynthesizer(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, synthesizer)
}

func TestSetupCache(t *testing.T) {
	metadataCache, err := setupCache(zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, metadataCache)
	metadataCache.Close()
}
