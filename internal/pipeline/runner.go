package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/quantfade/longshot/internal/ledger"
	"github.com/quantfade/longshot/internal/quant"
	"github.com/quantfade/longshot/internal/review"
	"github.com/quantfade/longshot/internal/synthesis"
	"github.com/quantfade/longshot/pkg/types"
	"go.uber.org/zap"
)

// Breaker gates new opens when the book runs low. Settlement is never
// gated: money owed to the book always comes home.
type Breaker interface {
	IsEnabled() bool
	RecordTrade(size float64)
}

// Result is the audit record for one processed event: how far it got
// and why it stopped.
type Result struct {
	Ticker   string           `json:"ticker"`
	Category types.Category   `json:"category"`
	Stage    string           `json:"stage"`
	Status   string           `json:"status"`
	Reason   string           `json:"reason,omitempty"`
	Decision *review.Decision `json:"decision,omitempty"`
	Position *ledger.Position `json:"position,omitempty"`
}

// Runner drives trade events through classify, filter, evaluate,
// synthesize, review and open.
type Runner struct {
	events      <-chan types.TradeEvent
	filter      *Filter
	evaluator   *quant.Evaluator
	synthesizer *synthesis.Synthesizer
	reviewer    *review.Reviewer
	broker      ledger.Broker
	breaker     Breaker // optional
	logger      *zap.Logger
}

// RunnerConfig holds runner configuration.
type RunnerConfig struct {
	Events      <-chan types.TradeEvent
	Filter      *Filter
	Evaluator   *quant.Evaluator
	Synthesizer *synthesis.Synthesizer
	Reviewer    *review.Reviewer
	Broker      ledger.Broker
	Breaker     Breaker // optional
	Logger      *zap.Logger
}

// NewRunner creates a pipeline runner.
func NewRunner(cfg *RunnerConfig) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Filter == nil || cfg.Evaluator == nil || cfg.Synthesizer == nil ||
		cfg.Reviewer == nil || cfg.Broker == nil {
		return nil, fmt.Errorf("all pipeline stages must be set")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Runner{
		events:      cfg.Events,
		filter:      cfg.Filter,
		evaluator:   cfg.Evaluator,
		synthesizer: cfg.Synthesizer,
		reviewer:    cfg.Reviewer,
		broker:      cfg.Broker,
		breaker:     cfg.Breaker,
		logger:      cfg.Logger,
	}, nil
}

// Run consumes the event channel until the context ends or the channel
// closes.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("pipeline-runner-starting")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("pipeline-runner-stopping")
			return ctx.Err()
		case ev, ok := <-r.events:
			if !ok {
				r.logger.Info("event-channel-closed")
				return nil
			}
			r.ProcessEvent(ctx, ev)
		}
	}
}

// ProcessEvent runs one event through the full pipeline and returns
// the audit record. Per-event failures are absorbed here: one bad
// event never stops the stream.
func (r *Runner) ProcessEvent(ctx context.Context, ev types.TradeEvent) Result {
	category := Classify(ev.MarketTicker)
	EventsTotal.WithLabelValues(string(category)).Inc()

	result := Result{
		Ticker:   ev.MarketTicker,
		Category: category,
	}

	if !Tradable(category) {
		result.Stage = "classify"
		if Recognized(category) {
			result.Status = "recognized"
			result.Reason = "series classified but not traded"
			r.logger.Debug("recognized-not-traded",
				zap.String("ticker", ev.MarketTicker),
				zap.String("category", string(category)))
		} else {
			result.Status = "dropped"
			result.Reason = "unrecognized series"
		}
		return r.finish(result)
	}

	cand, ok := r.filter.Apply(ctx, ev, category)
	if !ok {
		result.Stage = "filter"
		result.Status = "dropped"
		result.Reason = fmt.Sprintf("yes price %d inside the ignore band", ev.YesPrice)
		return r.finish(result)
	}

	verdict, err := r.evaluator.Evaluate(ctx, cand)
	if err != nil {
		result.Stage = "evaluate"
		result.Status = "error"
		result.Reason = err.Error()
		r.logger.Error("evaluation-failed",
			zap.String("ticker", cand.Ticker),
			zap.Error(err))
		return r.finish(result)
	}

	prop := r.synthesizer.Synthesize(ctx, cand, verdict)
	if prop.Disposition == synthesis.DispositionPass {
		result.Stage = "synthesize"
		result.Status = "pass"
		result.Reason = fmt.Sprintf("tier %s gives %s confidence", verdict.Tier, prop.Confidence)
		return r.finish(result)
	}

	decision := r.reviewer.Review(ctx, cand, prop)
	result.Decision = &decision
	if decision.Vetoed() {
		result.Stage = "review"
		result.Status = "vetoed"
		result.Reason = vetoReason(decision)
		return r.finish(result)
	}

	if r.breaker != nil && !r.breaker.IsEnabled() {
		result.Stage = "gate"
		result.Status = "halted"
		result.Reason = "circuit breaker open"
		r.logger.Warn("open-halted-by-breaker", zap.String("ticker", cand.Ticker))
		return r.finish(result)
	}

	pos, err := r.broker.Open(ctx, ledger.Order{
		Ticker:     cand.Ticker,
		EventKey:   cand.EventKey,
		Category:   cand.Category,
		Side:       cand.Action.Side(),
		EntryCents: cand.EntryCents(),
		Fraction:   prop.Fraction,
	})
	if err != nil {
		result.Stage = "open"
		result.Reason = err.Error()
		if errors.Is(err, ledger.ErrInsufficientCash) || errors.Is(err, ledger.ErrQuantityCap) {
			result.Status = "rejected"
			r.logger.Warn("open-rejected",
				zap.String("ticker", cand.Ticker),
				zap.Error(err))
		} else {
			result.Status = "error"
			r.logger.Error("open-failed",
				zap.String("ticker", cand.Ticker),
				zap.Error(err))
		}
		return r.finish(result)
	}

	if r.breaker != nil {
		r.breaker.RecordTrade(pos.Cost)
	}

	result.Stage = "open"
	result.Status = "opened"
	result.Position = &pos
	return r.finish(result)
}

func (r *Runner) finish(result Result) Result {
	StageResultsTotal.WithLabelValues(result.Stage, result.Status).Inc()
	return result
}

// vetoReason prefers the first fatal concern, then the score.
func vetoReason(decision review.Decision) string {
	for _, c := range decision.Concerns {
		if c.Severity == review.SeverityFatal {
			return fmt.Sprintf("fatal concern %s: %s", c.Code, c.Detail)
		}
	}
	return fmt.Sprintf("risk score %d at threshold", decision.RiskScore)
}
