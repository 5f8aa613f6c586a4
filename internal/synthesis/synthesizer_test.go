package synthesis

import (
	"context"
	"errors"
	"testing"

	"github.com/quantfade/longshot/internal/narrative"
	"github.com/quantfade/longshot/internal/quant"
	"github.com/quantfade/longshot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingSummarizer struct{}

func (f *failingSummarizer) Summarize(_ context.Context, _ narrative.Report) (string, error) {
	return "", errors.New("service down")
}

type cannedSummarizer struct{ text string }

func (c *cannedSummarizer) Summarize(_ context.Context, _ narrative.Report) (string, error) {
	return c.text, nil
}

func newTestSynthesizer(t *testing.T, summarizer narrative.Summarizer) *Synthesizer {
	t.Helper()

	s, err := New(&Config{
		Summarizer: summarizer,
		Logger:     zap.NewNop(),
		KellyCap:   0.15,
	})
	require.NoError(t, err)
	return s
}

func testCandidate() types.Candidate {
	return types.Candidate{
		Ticker:   "KXNBAGAME-25JAN15LACBOS-LAC",
		EventKey: "25JAN15LACBOS",
		Category: types.CategoryGameWinner,
		YesPrice: 7,
		Action:   types.ActionBetNo,
	}
}

func testVerdict(tier quant.Tier) quant.Verdict {
	return quant.Verdict{
		Ticker:      "KXNBAGAME-25JAN15LACBOS-LAC",
		Side:        types.SideNo,
		ImpliedProb: 0.93,
		WinRate:     0.956,
		GapPP:       2.6,
		SampleSize:  1240,
		Tier:        tier,
	}
}

func TestSynthesizeConfidenceMapping(t *testing.T) {
	tests := []struct {
		name        string
		tier        quant.Tier
		confidence  Confidence
		disposition Disposition
	}{
		{name: "confirmed-is-high", tier: quant.TierConfirmedEdge, confidence: ConfidenceHigh, disposition: DispositionReady},
		{name: "weak-is-medium", tier: quant.TierWeakEdge, confidence: ConfidenceMedium, disposition: DispositionReady},
		{name: "no-edge-is-low", tier: quant.TierNoEdge, confidence: ConfidenceLow, disposition: DispositionPass},
		{name: "insufficient-is-low", tier: quant.TierInsufficient, confidence: ConfidenceLow, disposition: DispositionPass},
	}

	s := newTestSynthesizer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prop := s.Synthesize(context.Background(), testCandidate(), testVerdict(tt.tier))

			assert.Equal(t, tt.confidence, prop.Confidence)
			assert.Equal(t, tt.disposition, prop.Disposition)
			assert.NotEmpty(t, prop.ID)
			assert.NotEmpty(t, prop.Narrative)
		})
	}
}

func TestSynthesizePassHasZeroFraction(t *testing.T) {
	s := newTestSynthesizer(t, nil)

	prop := s.Synthesize(context.Background(), testCandidate(), testVerdict(quant.TierNoEdge))
	assert.Equal(t, 0.0, prop.Fraction)
	assert.Equal(t, 0.0, prop.RawKelly)
}

func TestSynthesizeKellySizing(t *testing.T) {
	s := newTestSynthesizer(t, nil)

	verdict := testVerdict(quant.TierConfirmedEdge)
	prop := s.Synthesize(context.Background(), testCandidate(), verdict)

	// gap 2.6pp at implied 0.93: 0.026/0.07
	assert.InDelta(t, 0.3714, prop.RawKelly, 0.001)
	// capped at 0.15
	assert.Equal(t, 0.15, prop.Fraction)
}

func TestSynthesizeKellyBelowCap(t *testing.T) {
	s := newTestSynthesizer(t, nil)

	verdict := testVerdict(quant.TierWeakEdge)
	verdict.GapPP = 0.9
	prop := s.Synthesize(context.Background(), testCandidate(), verdict)

	assert.InDelta(t, 0.1286, prop.Fraction, 0.001)
	assert.Less(t, prop.Fraction, 0.15)
}

func TestSynthesizeFractionNeverExceedsCap(t *testing.T) {
	s := newTestSynthesizer(t, nil)

	for _, gap := range []float64{0.5, 1.0, 2.0, 5.0, 20.0, 80.0} {
		verdict := testVerdict(quant.TierConfirmedEdge)
		verdict.GapPP = gap

		prop := s.Synthesize(context.Background(), testCandidate(), verdict)
		assert.LessOrEqual(t, prop.Fraction, 0.15, "gap %.1f", gap)
		assert.GreaterOrEqual(t, prop.Fraction, 0.0, "gap %.1f", gap)
	}
}

func TestSynthesizeUsesConfiguredSummarizer(t *testing.T) {
	s := newTestSynthesizer(t, &cannedSummarizer{text: "the seven cent side never cashes"})

	prop := s.Synthesize(context.Background(), testCandidate(), testVerdict(quant.TierConfirmedEdge))
	assert.Equal(t, "the seven cent side never cashes", prop.Narrative)
}

func TestSynthesizeFallsBackOnSummarizerFailure(t *testing.T) {
	s := newTestSynthesizer(t, &failingSummarizer{})

	prop := s.Synthesize(context.Background(), testCandidate(), testVerdict(quant.TierConfirmedEdge))
	require.NotEmpty(t, prop.Narrative)
	assert.Contains(t, prop.Narrative, "KXNBAGAME-25JAN15LACBOS-LAC")
}
