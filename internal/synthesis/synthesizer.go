package synthesis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quantfade/longshot/internal/narrative"
	"github.com/quantfade/longshot/internal/quant"
	"github.com/quantfade/longshot/pkg/types"
	"go.uber.org/zap"
)

// Confidence grades how much trust a proposal carries.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Disposition says whether a proposal should go to review.
type Disposition string

const (
	DispositionReady Disposition = "ready"
	DispositionPass  Disposition = "pass"
)

// Proposal is a sized trade suggestion synthesized from a verdict.
// Fraction is always zero when the disposition is pass, so sizing can
// never leak through a low-confidence read.
type Proposal struct {
	ID          string        `json:"id"`
	Ticker      string        `json:"ticker"`
	Action      types.Action  `json:"action"`
	Disposition Disposition   `json:"disposition"`
	Confidence  Confidence    `json:"confidence"`
	Fraction    float64       `json:"fraction"`
	RawKelly    float64       `json:"raw_kelly"`
	Verdict     quant.Verdict `json:"verdict"`
	Narrative   string        `json:"narrative"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Synthesizer maps verdicts to proposals: confidence from the tier,
// sizing from a capped Kelly fraction, narrative from the summarizer.
type Synthesizer struct {
	summarizer narrative.Summarizer
	fallback   *narrative.TemplateSummarizer
	logger     *zap.Logger
	kellyCap   float64
}

// Config holds synthesizer configuration.
type Config struct {
	Summarizer narrative.Summarizer // optional, template fallback used when nil or failing
	Logger     *zap.Logger
	KellyCap   float64
}

// New creates a synthesizer.
func New(cfg *Config) (*Synthesizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.KellyCap <= 0 || cfg.KellyCap > 1 {
		return nil, fmt.Errorf("kelly cap must be in (0,1], got %f", cfg.KellyCap)
	}

	return &Synthesizer{
		summarizer: cfg.Summarizer,
		fallback:   narrative.NewTemplateSummarizer(),
		logger:     cfg.Logger,
		kellyCap:   cfg.KellyCap,
	}, nil
}

// Synthesize builds a proposal from a candidate and its verdict.
func (s *Synthesizer) Synthesize(ctx context.Context, cand types.Candidate, verdict quant.Verdict) Proposal {
	confidence := confidenceFor(verdict.Tier)

	prop := Proposal{
		ID:         uuid.New().String(),
		Ticker:     cand.Ticker,
		Action:     cand.Action,
		Confidence: confidence,
		Verdict:    verdict,
		CreatedAt:  time.Now(),
	}

	if confidence == ConfidenceLow {
		prop.Disposition = DispositionPass
	} else {
		prop.Disposition = DispositionReady
		prop.RawKelly = rawKelly(verdict.GapPP, verdict.ImpliedProb)
		prop.Fraction = clamp(prop.RawKelly, 0, s.kellyCap)
	}

	prop.Narrative = s.summarize(ctx, cand, prop)

	ProposalsTotal.WithLabelValues(string(prop.Disposition), string(confidence)).Inc()

	s.logger.Debug("proposal-synthesized",
		zap.String("ticker", cand.Ticker),
		zap.String("disposition", string(prop.Disposition)),
		zap.String("confidence", string(confidence)),
		zap.Float64("fraction", prop.Fraction))

	return prop
}

// confidenceFor maps edge tiers to confidence grades.
func confidenceFor(tier quant.Tier) Confidence {
	switch tier {
	case quant.TierConfirmedEdge:
		return ConfidenceHigh
	case quant.TierWeakEdge:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// rawKelly sizes a binary bet with edge gap at implied odds. With a
// payout of 1/implied per unit staked, the Kelly fraction reduces to
// edge over the odds' net fraction.
func rawKelly(gapPP, implied float64) float64 {
	if implied >= 1 || implied <= 0 {
		return 0
	}
	return (gapPP / 100.0) / (1.0 - implied)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// summarize renders the narrative, falling back to the template when
// the configured summarizer fails. Narrative failures never block.
func (s *Synthesizer) summarize(ctx context.Context, cand types.Candidate, prop Proposal) string {
	report := narrative.Report{
		Ticker:     cand.Ticker,
		Action:     cand.Action,
		YesPrice:   cand.YesPrice,
		WinRate:    prop.Verdict.WinRate,
		GapPP:      prop.Verdict.GapPP,
		SampleSize: prop.Verdict.SampleSize,
		Tier:       string(prop.Verdict.Tier),
		Confidence: string(prop.Confidence),
		Fraction:   prop.Fraction,
		Game:       prop.Verdict.Game,
	}

	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(ctx, report)
		if err == nil {
			return summary
		}
		SummaryFallbacksTotal.Inc()
		s.logger.Warn("summarizer-failed-using-template",
			zap.String("ticker", cand.Ticker),
			zap.Error(err))
	}

	summary, _ := s.fallback.Summarize(ctx, report)
	return summary
}
