package quant

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfade/longshot/pkg/types"
	"go.uber.org/zap"
)

// Tier grades the strength of a calibration edge.
type Tier string

const (
	TierInsufficient  Tier = "insufficient_data"
	TierNoEdge        Tier = "no_edge"
	TierWeakEdge      Tier = "weak_edge"
	TierConfirmedEdge Tier = "confirmed_edge"
)

// Verdict is the evaluator's read on one candidate: the measured
// calibration gap between historical win rate and market-implied
// probability, graded into a tier.
type Verdict struct {
	Ticker           string            `json:"ticker"`
	Category         types.Category    `json:"category"`
	Side             types.Side        `json:"side"`
	ImpliedProb      float64           `json:"implied_prob"`
	WinRate          float64           `json:"win_rate"`
	GapPP            float64           `json:"gap_pp"`
	SampleSize       int               `json:"sample_size"`
	Tier             Tier              `json:"tier"`
	AggregateWinRate float64           `json:"aggregate_win_rate"`
	AggregateSample  int               `json:"aggregate_sample"`
	StaleData        bool              `json:"stale_data"`
	Game             types.GameContext `json:"game,omitempty"`
	Form             []types.TeamForm  `json:"form,omitempty"`
	EvaluatedAt      time.Time         `json:"evaluated_at"`
}

// Evaluator turns candidates into verdicts by querying the calibration
// store and grading the gap.
type Evaluator struct {
	stats      Stats
	contextSrc ContextSource
	logger     *zap.Logger

	confirmedGapPP   float64
	weakGapPP        float64
	confirmedSamples int
	weakSamples      int
	staleHorizon     time.Duration
	longshotCeiling  int
}

// Config holds evaluator configuration.
type Config struct {
	Stats            Stats
	ContextSource    ContextSource // optional
	Logger           *zap.Logger
	ConfirmedGapPP   float64
	WeakGapPP        float64
	ConfirmedSamples int
	WeakSamples      int
	StaleHorizon     time.Duration
	LongshotCeiling  int
}

// NewEvaluator creates an evaluator.
func NewEvaluator(cfg *Config) (*Evaluator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Stats == nil {
		return nil, fmt.Errorf("stats cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.ConfirmedSamples < cfg.WeakSamples {
		return nil, fmt.Errorf("confirmed sample floor %d below weak floor %d",
			cfg.ConfirmedSamples, cfg.WeakSamples)
	}

	return &Evaluator{
		stats:            cfg.Stats,
		contextSrc:       cfg.ContextSource,
		logger:           cfg.Logger,
		confirmedGapPP:   cfg.ConfirmedGapPP,
		weakGapPP:        cfg.WeakGapPP,
		confirmedSamples: cfg.ConfirmedSamples,
		weakSamples:      cfg.WeakSamples,
		staleHorizon:     cfg.StaleHorizon,
		longshotCeiling:  cfg.LongshotCeiling,
	}, nil
}

// Evaluate queries calibration history for the candidate's price level
// and grades the gap. A stats store failure is a hard fault: the caller
// must not trade on a missing answer.
func (e *Evaluator) Evaluate(ctx context.Context, cand types.Candidate) (Verdict, error) {
	start := time.Now()
	defer func() {
		EvaluationDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	side := cand.Action.Side()
	implied := float64(cand.EntryCents()) / 100.0

	bucket, err := e.stats.QueryPriceBucket(ctx, cand.YesPrice, side)
	if err != nil {
		EvaluationErrorsTotal.Inc()
		return Verdict{}, fmt.Errorf("query price bucket %d/%s: %w", cand.YesPrice, side, err)
	}

	agg, err := e.stats.QueryLongshotAggregate(ctx, e.longshotCeiling)
	if err != nil {
		EvaluationErrorsTotal.Inc()
		return Verdict{}, fmt.Errorf("query longshot aggregate: %w", err)
	}

	gapPP := (bucket.WinRate - implied) * 100.0
	stale := !bucket.LatestClose.IsZero() && time.Since(bucket.LatestClose) > e.staleHorizon

	verdict := Verdict{
		Ticker:           cand.Ticker,
		Category:         cand.Category,
		Side:             side,
		ImpliedProb:      implied,
		WinRate:          bucket.WinRate,
		GapPP:            gapPP,
		SampleSize:       bucket.SampleSize,
		Tier:             e.grade(gapPP, bucket.SampleSize),
		AggregateWinRate: agg.YesWinRate,
		AggregateSample:  agg.SampleSize,
		StaleData:        stale,
		EvaluatedAt:      time.Now(),
	}

	e.enrich(ctx, cand, &verdict)

	VerdictsTotal.WithLabelValues(string(verdict.Tier)).Inc()

	e.logger.Debug("candidate-evaluated",
		zap.String("ticker", cand.Ticker),
		zap.String("side", string(side)),
		zap.Float64("implied", implied),
		zap.Float64("win_rate", bucket.WinRate),
		zap.Float64("gap_pp", gapPP),
		zap.Int("sample_size", bucket.SampleSize),
		zap.String("tier", string(verdict.Tier)))

	return verdict, nil
}

// grade maps a gap and sample size to a tier. Rules apply in order,
// first match wins.
func (e *Evaluator) grade(gapPP float64, sampleSize int) Tier {
	switch {
	case sampleSize < e.weakSamples:
		return TierInsufficient
	case gapPP > e.confirmedGapPP && sampleSize >= e.confirmedSamples:
		return TierConfirmedEdge
	case gapPP > e.weakGapPP && sampleSize >= e.weakSamples:
		return TierWeakEdge
	default:
		return TierNoEdge
	}
}

// enrich attaches live game context when a source is configured.
// Lookups are best effort; failures leave the verdict unenriched.
func (e *Evaluator) enrich(ctx context.Context, cand types.Candidate, verdict *Verdict) {
	if e.contextSrc == nil || cand.Category != types.CategoryGameWinner {
		return
	}

	game, err := e.contextSrc.FindGame(ctx, cand.Ticker)
	if err != nil {
		e.logger.Debug("game-context-unavailable",
			zap.String("ticker", cand.Ticker),
			zap.Error(err))
		return
	}
	verdict.Game = game

	for _, team := range []string{game.HomeAbbr, game.AwayAbbr} {
		if team == "" {
			continue
		}
		form, err := e.contextSrc.TeamForm(ctx, team)
		if err != nil {
			e.logger.Debug("team-form-unavailable",
				zap.String("team", team),
				zap.Error(err))
			continue
		}
		verdict.Form = append(verdict.Form, form)
	}
}
