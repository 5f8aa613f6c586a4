package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/quantfade/longshot/pkg/types"
)

// Report carries the numbers a summary is written from.
type Report struct {
	Ticker     string            `json:"ticker"`
	Action     types.Action      `json:"action"`
	YesPrice   int               `json:"yes_price"`
	WinRate    float64           `json:"win_rate"`
	GapPP      float64           `json:"gap_pp"`
	SampleSize int               `json:"sample_size"`
	Tier       string            `json:"tier"`
	Confidence string            `json:"confidence"`
	Fraction   float64           `json:"fraction"`
	Game       types.GameContext `json:"game,omitempty"`
}

// Summarizer renders a one-paragraph human explanation of a proposal.
// Summaries are decoration: callers fall back to a template on failure
// and never block a trade on one.
type Summarizer interface {
	Summarize(ctx context.Context, report Report) (string, error)
}

// TemplateSummarizer renders summaries from a fixed template with no
// external calls. It never fails.
type TemplateSummarizer struct{}

// NewTemplateSummarizer creates a template summarizer.
func NewTemplateSummarizer() *TemplateSummarizer {
	return &TemplateSummarizer{}
}

// Summarize renders the report deterministically.
func (s *TemplateSummarizer) Summarize(_ context.Context, report Report) (string, error) {
	var b strings.Builder

	direction := "NO"
	if report.Action == types.ActionBetYes {
		direction = "YES"
	}

	fmt.Fprintf(&b, "%s side of %s at %d cents YES: historical win rate %.1f%% vs implied, a %.1fpp calibration gap over %d samples (%s).",
		direction, report.Ticker, report.YesPrice,
		report.WinRate*100, report.GapPP, report.SampleSize, report.Tier)

	fmt.Fprintf(&b, " Confidence %s, sizing %.1f%% of bankroll.",
		report.Confidence, report.Fraction*100)

	if report.Game.Available {
		fmt.Fprintf(&b, " Live: %s %d - %s %d (%s).",
			report.Game.AwayAbbr, report.Game.AwayScore,
			report.Game.HomeAbbr, report.Game.HomeScore,
			report.Game.Status)
	}

	return b.String(), nil
}
