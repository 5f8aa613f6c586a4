package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestReconnectManager() *ReconnectManager {
	return NewReconnectManager(ReconnectConfig{
		InitialDelay:      time.Millisecond,
		MaxDelay:          8 * time.Millisecond,
		BackoffMultiplier: 2.0,
		JitterPercent:     0.2,
	}, zap.NewNop())
}

func TestReconnectSucceedsAfterFailures(t *testing.T) {
	rm := newTestReconnectManager()

	attempts := 0
	err := rm.Reconnect(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	// Success resets backoff
	assert.Equal(t, time.Millisecond, rm.currentBackoff)
}

func TestReconnectRespectsContextCancellation(t *testing.T) {
	rm := newTestReconnectManager()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rm.Reconnect(ctx, func(context.Context) error {
		return errors.New("should not matter")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffCappedAtMaxDelay(t *testing.T) {
	rm := newTestReconnectManager()

	for i := 0; i < 10; i++ {
		rm.incrementBackoff()
	}

	assert.Equal(t, 8*time.Millisecond, rm.currentBackoff)
}

func TestNextBackoffAppliesJitter(t *testing.T) {
	rm := newTestReconnectManager()

	for i := 0; i < 50; i++ {
		backoff := rm.nextBackoff()
		assert.GreaterOrEqual(t, backoff, time.Millisecond)
		assert.LessOrEqual(t, backoff, time.Duration(float64(time.Millisecond)*1.2))
	}
}

func TestResetRestoresInitialDelay(t *testing.T) {
	rm := newTestReconnectManager()

	rm.incrementBackoff()
	rm.incrementBackoff()
	require.NotEqual(t, time.Millisecond, rm.currentBackoff)

	rm.Reset()
	assert.Equal(t, time.Millisecond, rm.currentBackoff)
}
