package pipeline

import (
	"context"
	"fmt"

	"github.com/quantfade/longshot/pkg/types"
	"go.uber.org/zap"
)

// MetadataSource fetches market metadata for candidate enrichment.
// Implementations live in internal/markets.
type MetadataSource interface {
	Lookup(ctx context.Context, ticker string) (types.MarketMetadata, error)
}

// Filter keeps only extreme-priced trades. Longshot pricing is where
// the calibration edge lives: the cheap side of a one-sided market is
// systematically overpriced, so the filter emits a candidate fading it.
type Filter struct {
	metadata MetadataSource // optional
	logger   *zap.Logger

	longshotCeiling int
	favoriteFloor   int
}

// FilterConfig holds filter configuration.
type FilterConfig struct {
	Metadata        MetadataSource // optional
	Logger          *zap.Logger
	LongshotCeiling int
	FavoriteFloor   int
}

// NewFilter creates a filter.
func NewFilter(cfg *FilterConfig) (*Filter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.LongshotCeiling <= 0 || cfg.LongshotCeiling >= cfg.FavoriteFloor || cfg.FavoriteFloor >= 100 {
		return nil, fmt.Errorf("bad price band %d..%d", cfg.LongshotCeiling, cfg.FavoriteFloor)
	}

	return &Filter{
		metadata:        cfg.Metadata,
		logger:          cfg.Logger,
		longshotCeiling: cfg.LongshotCeiling,
		favoriteFloor:   cfg.FavoriteFloor,
	}, nil
}

// Apply turns an extreme-priced event into a candidate. Events in the
// middle of the band are dropped. Metadata enrichment is best effort:
// a failed lookup leaves Meta unavailable and the candidate alive.
func (f *Filter) Apply(ctx context.Context, ev types.TradeEvent, category types.Category) (types.Candidate, bool) {
	var (
		action    types.Action
		rationale string
	)

	switch {
	case ev.YesPrice <= f.longshotCeiling:
		action = types.ActionBetNo
		rationale = fmt.Sprintf("cheap YES side at %dc is systematically overpriced; fade it", ev.YesPrice)
	case ev.YesPrice >= f.favoriteFloor:
		action = types.ActionBetYes
		rationale = fmt.Sprintf("cheap NO side at %dc is systematically overpriced; fade it", ev.NoPrice())
	default:
		FilterDropsTotal.Inc()
		return types.Candidate{}, false
	}

	cand := types.Candidate{
		Ticker:    ev.MarketTicker,
		EventKey:  types.EventKey(ev.MarketTicker),
		Category:  category,
		YesPrice:  ev.YesPrice,
		Action:    action,
		Rationale: rationale,
		Timestamp: ev.Timestamp,
	}

	f.enrich(ctx, &cand)

	CandidatesTotal.WithLabelValues(string(action)).Inc()

	f.logger.Debug("candidate-emitted",
		zap.String("ticker", cand.Ticker),
		zap.Int("yes_price", ev.YesPrice),
		zap.String("action", string(action)),
		zap.Bool("meta_available", cand.Meta.Available))

	return cand, true
}

// enrich attaches market metadata when a source is configured.
func (f *Filter) enrich(ctx context.Context, cand *types.Candidate) {
	if f.metadata == nil {
		return
	}

	meta, err := f.metadata.Lookup(ctx, cand.Ticker)
	if err != nil {
		MetadataFailuresTotal.Inc()
		f.logger.Debug("metadata-unavailable",
			zap.String("ticker", cand.Ticker),
			zap.Error(err))
		return
	}

	cand.Meta = meta
}
