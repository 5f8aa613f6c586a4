package pipeline

import (
	"testing"

	"github.com/quantfade/longshot/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		ticker   string
		expected types.Category
	}{
		{
			name:     "game-winner",
			ticker:   "KXNBAGAME-25JAN15LACBOS-LAC",
			expected: types.CategoryGameWinner,
		},
		{
			name:     "season-totals",
			ticker:   "KXNBAWINS-25BOS-50",
			expected: types.CategoryTotals,
		},
		{
			name:     "player-prop",
			ticker:   "KXNBASGPROP-25JAN15-LEBRON-30",
			expected: types.CategoryPlayerProp,
		},
		{
			name:     "unknown-nba-series",
			ticker:   "KXNBAEAST-25BOS",
			expected: types.CategoryUnknown,
		},
		{
			name:     "non-nba-series",
			ticker:   "KXBTCUSD-25JAN15",
			expected: types.CategoryUnknown,
		},
		{
			name:     "lowercase-prefix",
			ticker:   "kxnbagame-25JAN15LACBOS-LAC",
			expected: types.CategoryGameWinner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.ticker))
		})
	}
}

func TestTradable(t *testing.T) {
	assert.True(t, Tradable(types.CategoryGameWinner))
	assert.False(t, Tradable(types.CategoryTotals))
	assert.False(t, Tradable(types.CategoryPlayerProp))
	assert.False(t, Tradable(types.CategoryUnknown))
}

func TestRecognized(t *testing.T) {
	assert.True(t, Recognized(types.CategoryGameWinner))
	assert.True(t, Recognized(types.CategoryTotals))
	assert.False(t, Recognized(types.CategoryUnknown))
}
