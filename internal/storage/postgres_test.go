package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/quantfade/longshot/internal/ledger"
	"github.com/quantfade/longshot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &PostgresStore{
		db:      db,
		account: "test",
		logger:  zap.NewNop(),
	}, mock
}

func testPosition() ledger.Position {
	return ledger.Position{
		ID:         "pos-1",
		Ticker:     "KXNBAGAME-25JAN15LACBOS-LAC",
		EventKey:   "25JAN15LACBOS",
		Category:   types.CategoryGameWinner,
		Side:       types.SideNo,
		EntryCents: 93,
		Quantity:   107,
		Cost:       99.51,
		Fraction:   0.10,
		Status:     ledger.StatusOpen,
		Outcome:    ledger.OutcomeUnresolved,
		OpenedAt:   time.Now(),
	}
}

func TestRecordFill(t *testing.T) {
	store, mock := newMockStore(t)
	pos := testPosition()

	mock.ExpectExec("INSERT INTO fills").
		WithArgs(
			pos.ID, "test", pos.Ticker, pos.EventKey, string(pos.Category),
			string(pos.Side), pos.EntryCents, pos.Quantity, pos.Cost,
			pos.Fraction, 900.49, pos.OpenedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.RecordFill(context.Background(), pos, 900.49)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSettlement(t *testing.T) {
	store, mock := newMockStore(t)

	pos := testPosition()
	pos.Status = ledger.StatusClosed
	pos.Outcome = ledger.OutcomeWon
	pos.Payout = 107.0
	pos.RealizedPnL = 7.49
	pos.SettledAt = time.Now()

	mock.ExpectExec("INSERT INTO settlements").
		WithArgs(
			pos.ID, "test", pos.Ticker, string(pos.Outcome),
			pos.Payout, pos.RealizedPnL, 1007.49, pos.SettledAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.RecordSettlement(context.Background(), pos, 1007.49)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEquity(t *testing.T) {
	store, mock := newMockStore(t)

	point := ledger.EquityPoint{
		Timestamp:     time.Now(),
		Cash:          900.49,
		OpenCost:      99.51,
		RealizedPnL:   0,
		Equity:        1000.0,
		OpenPositions: 1,
	}

	mock.ExpectExec("INSERT INTO equity_curve").
		WithArgs(
			"test", point.Timestamp, point.Cash, point.OpenCost,
			point.RealizedPnL, point.Equity, point.OpenPositions,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.RecordEquity(context.Background(), point)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAndLoadBook(t *testing.T) {
	store, mock := newMockStore(t)

	book := ledger.Book{
		Cash:        900.49,
		RealizedPnL: -12.5,
		Positions:   []ledger.Position{testPosition()},
		UpdatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO books").
		WithArgs("test", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.SaveBook(context.Background(), book)
	require.NoError(t, err)

	payload := `{"cash":900.49,"realized_pnl":-12.5,"positions":[],"updated_at":"2025-01-15T00:00:00Z"}`
	mock.ExpectQuery("SELECT state FROM books").
		WithArgs("test").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow([]byte(payload)))

	loaded, found, err := store.LoadBook(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 900.49, loaded.Cash)
	assert.Equal(t, -12.5, loaded.RealizedPnL)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadBookMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT state FROM books").
		WithArgs("test").
		WillReturnRows(sqlmock.NewRows([]string{"state"}))

	_, found, err := store.LoadBook(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}
