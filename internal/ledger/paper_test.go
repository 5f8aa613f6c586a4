package ledger

import (
	"context"
	"testing"

	"github.com/quantfade/longshot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubStore keeps everything in memory and optionally seeds a book.
type stubStore struct {
	book        *Book
	fills       []Position
	settlements []Position
	equity      []EquityPoint
	saved       []Book
}

func (s *stubStore) SaveBook(_ context.Context, book Book) error {
	s.saved = append(s.saved, book)
	return nil
}

func (s *stubStore) LoadBook(_ context.Context) (Book, bool, error) {
	if s.book == nil {
		return Book{}, false, nil
	}
	return *s.book, true, nil
}

func (s *stubStore) RecordFill(_ context.Context, pos Position, _ float64) error {
	s.fills = append(s.fills, pos)
	return nil
}

func (s *stubStore) RecordSettlement(_ context.Context, pos Position, _ float64) error {
	s.settlements = append(s.settlements, pos)
	return nil
}

func (s *stubStore) RecordEquity(_ context.Context, point EquityPoint) error {
	s.equity = append(s.equity, point)
	return nil
}

func (s *stubStore) Close() error { return nil }

func newTestBroker(t *testing.T, cash float64, maxContracts int) (*PaperBroker, *stubStore) {
	t.Helper()

	store := &stubStore{}
	broker, err := NewPaperBroker(context.Background(), &Config{
		StartingCash: cash,
		MaxContracts: maxContracts,
		Store:        store,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)
	return broker, store
}

func testOrder() Order {
	return Order{
		Ticker:     "KXNBAGAME-25JAN15LACBOS-LAC",
		EventKey:   "25JAN15LACBOS",
		Category:   types.CategoryGameWinner,
		Side:       types.SideNo,
		EntryCents: 93,
		Fraction:   0.10,
	}
}

func TestOpenSizesWholeContracts(t *testing.T) {
	broker, store := newTestBroker(t, 1000.0, 10000)

	pos, err := broker.Open(context.Background(), testOrder())
	require.NoError(t, err)

	// budget 100.00 at 0.93/contract buys 107 contracts
	assert.Equal(t, 107, pos.Quantity)
	assert.InDelta(t, 99.51, pos.Cost, 0.001)
	assert.Equal(t, StatusOpen, pos.Status)
	assert.Equal(t, OutcomeUnresolved, pos.Outcome)
	assert.NotEmpty(t, pos.ID)

	book := broker.Snapshot()
	assert.InDelta(t, 900.49, book.Cash, 0.001)
	assert.Equal(t, 1, book.OpenCount())
	require.Len(t, store.fills, 1)
	assert.NotEmpty(t, store.saved)
}

func TestOpenRejectsInsufficientCash(t *testing.T) {
	broker, _ := newTestBroker(t, 5.0, 10000)

	order := testOrder()
	order.Fraction = 0.10 // budget 0.50, below one 93c contract

	_, err := broker.Open(context.Background(), order)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientCash)

	// book untouched
	book := broker.Snapshot()
	assert.Equal(t, 5.0, book.Cash)
	assert.Equal(t, 0, book.OpenCount())
}

func TestOpenRejectsQuantityCap(t *testing.T) {
	broker, _ := newTestBroker(t, 1000.0, 50)

	_, err := broker.Open(context.Background(), testOrder())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuantityCap)

	book := broker.Snapshot()
	assert.Equal(t, 1000.0, book.Cash)
}

func TestOpenRejectsInvalidOrder(t *testing.T) {
	broker, _ := newTestBroker(t, 1000.0, 10000)

	tests := []struct {
		name   string
		mutate func(*Order)
	}{
		{name: "zero-price", mutate: func(o *Order) { o.EntryCents = 0 }},
		{name: "price-at-hundred", mutate: func(o *Order) { o.EntryCents = 100 }},
		{name: "zero-fraction", mutate: func(o *Order) { o.Fraction = 0 }},
		{name: "fraction-above-one", mutate: func(o *Order) { o.Fraction = 1.5 }},
		{name: "bad-side", mutate: func(o *Order) { o.Side = "maybe" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := testOrder()
			tt.mutate(&order)

			_, err := broker.Open(context.Background(), order)
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

func TestSettleWin(t *testing.T) {
	broker, store := newTestBroker(t, 1000.0, 10000)

	pos, err := broker.Open(context.Background(), testOrder())
	require.NoError(t, err)

	settled, err := broker.Settle(context.Background(), pos.ID, types.SideNo)
	require.NoError(t, err)

	assert.Equal(t, StatusClosed, settled.Status)
	assert.Equal(t, OutcomeWon, settled.Outcome)
	assert.Equal(t, float64(pos.Quantity), settled.Payout)
	assert.InDelta(t, float64(pos.Quantity)-pos.Cost, settled.RealizedPnL, 0.001)

	book := broker.Snapshot()
	assert.InDelta(t, 1000.0-pos.Cost+settled.Payout, book.Cash, 0.001)
	assert.Equal(t, 0, book.OpenCount())
	require.Len(t, store.settlements, 1)
}

func TestSettleLoss(t *testing.T) {
	broker, _ := newTestBroker(t, 1000.0, 10000)

	pos, err := broker.Open(context.Background(), testOrder())
	require.NoError(t, err)

	settled, err := broker.Settle(context.Background(), pos.ID, types.SideYes)
	require.NoError(t, err)

	assert.Equal(t, OutcomeLost, settled.Outcome)
	assert.Equal(t, 0.0, settled.Payout)
	assert.InDelta(t, -pos.Cost, settled.RealizedPnL, 0.001)

	book := broker.Snapshot()
	assert.InDelta(t, 1000.0-pos.Cost, book.Cash, 0.001)
}

func TestSettleIdempotent(t *testing.T) {
	broker, store := newTestBroker(t, 1000.0, 10000)

	pos, err := broker.Open(context.Background(), testOrder())
	require.NoError(t, err)

	first, err := broker.Settle(context.Background(), pos.ID, types.SideNo)
	require.NoError(t, err)
	cashAfterFirst := broker.Snapshot().Cash

	// Settling again, even with the opposite winner, changes nothing.
	second, err := broker.Settle(context.Background(), pos.ID, types.SideYes)
	require.NoError(t, err)

	assert.Equal(t, first.Outcome, second.Outcome)
	assert.Equal(t, first.Payout, second.Payout)
	assert.Equal(t, cashAfterFirst, broker.Snapshot().Cash)
	assert.Len(t, store.settlements, 1)
}

func TestSettleUnknownPosition(t *testing.T) {
	broker, _ := newTestBroker(t, 1000.0, 10000)

	_, err := broker.Settle(context.Background(), "no-such-id", types.SideYes)
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestCashConservation(t *testing.T) {
	broker, _ := newTestBroker(t, 1000.0, 10000)
	ctx := context.Background()

	winners := map[string]types.Side{
		"KXNBAGAME-25JAN15LACBOS-LAC": types.SideNo,
		"KXNBAGAME-25JAN16NYKMIA-NYK": types.SideYes,
		"KXNBAGAME-25JAN17DENPHX-DEN": types.SideNo,
	}

	totalCost, totalPayout := 0.0, 0.0
	for ticker, winner := range winners {
		order := testOrder()
		order.Ticker = ticker
		order.EventKey = types.EventKey(ticker)

		pos, err := broker.Open(ctx, order)
		require.NoError(t, err)
		totalCost += pos.Cost

		settled, err := broker.Settle(ctx, pos.ID, winner)
		require.NoError(t, err)
		totalPayout += settled.Payout
	}

	book := broker.Snapshot()
	assert.InDelta(t, 1000.0-totalCost+totalPayout, book.Cash, 0.001)
	assert.InDelta(t, totalPayout-totalCost, book.RealizedPnL, 0.001)
	assert.Equal(t, 0, book.OpenCount())
}

func TestBrokerResumesSavedBook(t *testing.T) {
	seeded := &Book{
		Cash:        742.50,
		RealizedPnL: -57.50,
		Positions: []Position{
			{ID: "abc", Ticker: "KXNBAGAME-25JAN15LACBOS-LAC", Status: StatusOpen, Cost: 200.0},
		},
	}
	store := &stubStore{book: seeded}

	broker, err := NewPaperBroker(context.Background(), &Config{
		StartingCash: 1000.0,
		MaxContracts: 500,
		Store:        store,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)

	book := broker.Snapshot()
	assert.Equal(t, 742.50, book.Cash)
	assert.Equal(t, 1, book.OpenCount())
	assert.InDelta(t, 942.50, book.Equity(), 0.001)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	broker, _ := newTestBroker(t, 1000.0, 10000)

	_, err := broker.Open(context.Background(), testOrder())
	require.NoError(t, err)

	snap := broker.Snapshot()
	snap.Positions[0].Status = StatusClosed
	snap.Cash = 0

	fresh := broker.Snapshot()
	assert.Equal(t, StatusOpen, fresh.Positions[0].Status)
	assert.NotEqual(t, 0.0, fresh.Cash)
}
