package types

import (
	"strings"
	"time"
)

// TradeEvent is a single public trade observed on the market data stream.
// Prices are expressed in cents on the YES side of the market, so a
// YesPrice of 7 means the market currently implies a 7% chance of YES.
type TradeEvent struct {
	MarketTicker string    `json:"market_ticker"`
	YesPrice     int       `json:"yes_price"`
	Count        int       `json:"count"`
	TakerSide    string    `json:"taker_side"`
	Timestamp    time.Time `json:"ts"`
}

// NoPrice returns the implied NO price in cents.
func (e TradeEvent) NoPrice() int {
	return 100 - e.YesPrice
}

// EventKey extracts the event segment of a market ticker. Tickers follow
// the SERIES-EVENT-MARKET convention (KXNBAGAME-25JAN15LACBOS-LAC), so
// every market attached to the same underlying game shares the middle
// segment. Tickers without an event segment key on the full ticker.
func EventKey(ticker string) string {
	parts := strings.Split(ticker, "-")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ticker
}

// SeriesPrefix returns the series segment of a ticker (the part before
// the first dash), uppercased.
func SeriesPrefix(ticker string) string {
	parts := strings.SplitN(ticker, "-", 2)
	return strings.ToUpper(parts[0])
}
