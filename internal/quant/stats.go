package quant

import (
	"context"
	"time"

	"github.com/quantfade/longshot/pkg/types"
)

// PriceBucket is the calibration record for one price level: how often
// the given side actually won historically when the YES price sat at
// that level. A zero-sample bucket is a valid answer, not an error.
type PriceBucket struct {
	WinRate     float64
	SampleSize  int
	LatestClose time.Time
}

// LongshotAggregate summarizes the whole longshot band, used to sanity
// check a single bucket against its neighborhood.
type LongshotAggregate struct {
	YesWinRate  float64
	AvgYesPrice float64
	SampleSize  int
}

// Stats answers calibration queries over historical finalized markets.
// Implementations live in internal/stats. Errors mean the store itself
// failed; absence of data comes back as a zero-sample result.
type Stats interface {
	QueryPriceBucket(ctx context.Context, yesPriceCents int, side types.Side) (PriceBucket, error)
	QueryLongshotAggregate(ctx context.Context, ceilingCents int) (LongshotAggregate, error)
}

// ContextSource supplies live game context for a market. Optional:
// evaluation proceeds without it when lookups fail.
type ContextSource interface {
	FindGame(ctx context.Context, ticker string) (types.GameContext, error)
	TeamForm(ctx context.Context, team string) (types.TeamForm, error)
}
