package pipeline

import (
	"github.com/quantfade/longshot/pkg/types"
)

// Series prefixes recognized on the stream. Only game winner markets
// flow through the full pipeline today; totals and player props are
// classified so their volume is visible, then set aside.
const (
	seriesGameWinner = "KXNBAGAME"
	seriesTotals     = "KXNBAWINS"
	seriesPlayerProp = "KXNBASGPROP"
)

// Classify maps a market ticker to its category by series prefix.
// Anything unrecognized, NBA or not, comes back unknown.
func Classify(ticker string) types.Category {
	switch types.SeriesPrefix(ticker) {
	case seriesGameWinner:
		return types.CategoryGameWinner
	case seriesTotals:
		return types.CategoryTotals
	case seriesPlayerProp:
		return types.CategoryPlayerProp
	default:
		return types.CategoryUnknown
	}
}

// Tradable reports whether a category flows through the full pipeline.
func Tradable(category types.Category) bool {
	return category == types.CategoryGameWinner
}

// Recognized reports whether a category is a known series, tradable or
// not.
func Recognized(category types.Category) bool {
	return category != types.CategoryUnknown
}
