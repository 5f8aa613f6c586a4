package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quantfade/longshot/internal/ledger"
	"github.com/quantfade/longshot/internal/synthesis"
	"github.com/quantfade/longshot/pkg/types"
	"go.uber.org/zap"
)

// Severity of a concern. Fatal concerns veto unconditionally; warn
// concerns add weight toward the risk threshold.
type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityFatal Severity = "fatal"
)

// Concern is one objection raised against a proposal.
type Concern struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Weight   int      `json:"weight"`
	Detail   string   `json:"detail"`
}

// Status of a reviewed proposal.
type Status string

const (
	StatusApproved Status = "approved"
	StatusVetoed   Status = "vetoed"
)

// Decision is the reviewer's final word on a proposal.
type Decision struct {
	ID         string             `json:"id"`
	Status     Status             `json:"status"`
	RiskScore  int                `json:"risk_score"`
	Concerns   []Concern          `json:"concerns"`
	Candidate  types.Candidate    `json:"candidate"`
	Proposal   synthesis.Proposal `json:"proposal"`
	ReviewedAt time.Time          `json:"reviewed_at"`
}

// Vetoed reports whether the decision blocks the trade.
func (d Decision) Vetoed() bool {
	return d.Status == StatusVetoed
}

// ExposureSource reports current book state for concentration checks.
type ExposureSource interface {
	Snapshot() ledger.Book
}

// Reviewer runs an adversarial battery against ready proposals. Each
// rule can only raise concerns, never soften them, so adding rules is
// strictly monotone: a proposal that fails with N rules cannot pass
// with N+1.
type Reviewer struct {
	book   ExposureSource
	logger *zap.Logger

	riskThreshold   int
	liquidityFloor  int
	exposureCapUSD  float64
	mediumFractCeil float64
}

// Config holds reviewer configuration.
type Config struct {
	Book                  ExposureSource
	Logger                *zap.Logger
	RiskThreshold         int
	LiquidityFloor        int
	ExposureCapUSD        float64
	MediumFractionCeiling float64
}

// New creates a reviewer.
func New(cfg *Config) (*Reviewer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Book == nil {
		return nil, fmt.Errorf("exposure source cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.RiskThreshold <= 0 {
		return nil, fmt.Errorf("risk threshold must be positive")
	}

	return &Reviewer{
		book:            cfg.Book,
		logger:          cfg.Logger,
		riskThreshold:   cfg.RiskThreshold,
		liquidityFloor:  cfg.LiquidityFloor,
		exposureCapUSD:  cfg.ExposureCapUSD,
		mediumFractCeil: cfg.MediumFractionCeiling,
	}, nil
}

// Review runs the full battery and renders a decision. Any fatal
// concern vetoes regardless of score; otherwise the summed weights of
// warnings must stay under the risk threshold.
func (r *Reviewer) Review(_ context.Context, cand types.Candidate, prop synthesis.Proposal) Decision {
	concerns := r.battery(cand, prop)

	decision := Decision{
		ID:         uuid.New().String(),
		Candidate:  cand,
		Proposal:   prop,
		Concerns:   concerns,
		ReviewedAt: time.Now(),
	}

	fatal := false
	for _, c := range concerns {
		if c.Severity == SeverityFatal {
			fatal = true
		} else {
			decision.RiskScore += c.Weight
		}
		ConcernsTotal.WithLabelValues(c.Code).Inc()
	}

	if fatal || decision.RiskScore >= r.riskThreshold {
		decision.Status = StatusVetoed
	} else {
		decision.Status = StatusApproved
	}

	DecisionsTotal.WithLabelValues(string(decision.Status)).Inc()

	r.logger.Info("proposal-reviewed",
		zap.String("ticker", cand.Ticker),
		zap.String("status", string(decision.Status)),
		zap.Int("risk_score", decision.RiskScore),
		zap.Int("concerns", len(concerns)))

	return decision
}

// battery runs every rule in a fixed order and collects concerns.
func (r *Reviewer) battery(cand types.Candidate, prop synthesis.Proposal) []Concern {
	var concerns []Concern

	add := func(c Concern, raised bool) {
		if raised {
			concerns = append(concerns, c)
		}
	}

	verdict := prop.Verdict

	// Directional sanity: the verdict must grade the same side the
	// candidate wants to hold.
	add(Concern{
		Code:     "direction-mismatch",
		Severity: SeverityFatal,
		Detail: fmt.Sprintf("candidate holds %s but verdict graded %s",
			cand.Action.Side(), verdict.Side),
	}, verdict.Side != cand.Action.Side())

	// Near-certain historical win rates over huge samples usually mean
	// contaminated data, not free money.
	add(Concern{
		Code:     "win-rate-implausible",
		Severity: SeverityWarn,
		Weight:   3,
		Detail: fmt.Sprintf("win rate %.3f over %d samples",
			verdict.WinRate, verdict.SampleSize),
	}, verdict.WinRate >= 0.99 && verdict.SampleSize >= 1000)

	// Evidence drawn from a different market population than the one
	// being traded.
	add(Concern{
		Code:     "category-mismatch",
		Severity: SeverityWarn,
		Weight:   2,
		Detail: fmt.Sprintf("evidence category %s, candidate category %s",
			verdict.Category, cand.Category),
	}, verdict.Category != cand.Category)

	// Medium-confidence proposals should not carry high-confidence
	// sizing.
	add(Concern{
		Code:     "oversized-for-confidence",
		Severity: SeverityWarn,
		Weight:   2,
		Detail: fmt.Sprintf("fraction %.3f above %.3f ceiling at medium confidence",
			prop.Fraction, r.mediumFractCeil),
	}, prop.Confidence == synthesis.ConfidenceMedium && prop.Fraction > r.mediumFractCeil)

	// Supporting sample is old enough that the market may have moved.
	add(Concern{
		Code:     "stale-sample",
		Severity: SeverityWarn,
		Weight:   2,
		Detail:   "calibration sample ends before the staleness horizon",
	}, verdict.StaleData)

	// Liquidity gate, only when metadata was actually fetched.
	if cand.Meta.Available {
		add(Concern{
			Code:     "illiquid",
			Severity: SeverityFatal,
			Detail: fmt.Sprintf("open interest %d below floor %d or zero volume (%d)",
				cand.Meta.OpenInterest, r.liquidityFloor, cand.Meta.Volume24h),
		}, cand.Meta.OpenInterest < r.liquidityFloor || cand.Meta.Volume24h == 0)
	}

	// Concentration: cap total open cost on a single event.
	exposure := r.book.Snapshot().EventExposure(cand.EventKey)
	add(Concern{
		Code:     "event-exposure-cap",
		Severity: SeverityFatal,
		Detail: fmt.Sprintf("open exposure %.2f on event %s at cap %.2f",
			exposure, cand.EventKey, r.exposureCapUSD),
	}, exposure >= r.exposureCapUSD)

	return concerns
}
