package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/quantfade/longshot/internal/ledger"
	"go.uber.org/zap"
)

// PostgresStore implements ledger.Store using PostgreSQL. Fills,
// settlements and equity samples land in append-only tables; the book
// snapshot lives in a single-row table keyed by account name.
type PostgresStore struct {
	db      *sql.DB
	account string
	logger  *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	DSN     string
	Account string
	Logger  *zap.Logger
}

// NewPostgresStore opens a connection and verifies it.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	account := cfg.Account
	if account == "" {
		account = "default"
	}

	cfg.Logger.Info("postgres-store-connected",
		zap.String("account", account))

	return &PostgresStore{
		db:      db,
		account: account,
		logger:  cfg.Logger,
	}, nil
}

// SaveBook upserts the serialized book for this account.
func (p *PostgresStore) SaveBook(ctx context.Context, book ledger.Book) error {
	payload, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("marshal book: %w", err)
	}

	query := `
		INSERT INTO books (account, state, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account) DO UPDATE SET state = $2, updated_at = NOW()
	`

	_, err = p.db.ExecContext(ctx, query, p.account, payload)
	if err != nil {
		return fmt.Errorf("upsert book: %w", err)
	}

	return nil
}

// LoadBook fetches the saved book for this account. Returns found=false
// when no row exists.
func (p *PostgresStore) LoadBook(ctx context.Context) (ledger.Book, bool, error) {
	query := `SELECT state FROM books WHERE account = $1`

	var payload []byte
	err := p.db.QueryRowContext(ctx, query, p.account).Scan(&payload)
	if err == sql.ErrNoRows {
		return ledger.Book{}, false, nil
	}
	if err != nil {
		return ledger.Book{}, false, fmt.Errorf("select book: %w", err)
	}

	var book ledger.Book
	err = json.Unmarshal(payload, &book)
	if err != nil {
		return ledger.Book{}, false, fmt.Errorf("unmarshal book: %w", err)
	}

	return book, true, nil
}

// RecordFill inserts one opened position.
func (p *PostgresStore) RecordFill(ctx context.Context, pos ledger.Position, cashAfter float64) error {
	query := `
		INSERT INTO fills (
			position_id, account, ticker, event_key, category, side,
			entry_cents, quantity, cost, fraction, cash_after, opened_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := p.db.ExecContext(ctx, query,
		pos.ID,
		p.account,
		pos.Ticker,
		pos.EventKey,
		string(pos.Category),
		string(pos.Side),
		pos.EntryCents,
		pos.Quantity,
		pos.Cost,
		pos.Fraction,
		cashAfter,
		pos.OpenedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fill: %w", err)
	}

	p.logger.Debug("fill-stored",
		zap.String("position-id", pos.ID),
		zap.String("ticker", pos.Ticker))

	return nil
}

// RecordSettlement inserts one settled position.
func (p *PostgresStore) RecordSettlement(ctx context.Context, pos ledger.Position, cashAfter float64) error {
	query := `
		INSERT INTO settlements (
			position_id, account, ticker, outcome, payout,
			realized_pnl, cash_after, settled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := p.db.ExecContext(ctx, query,
		pos.ID,
		p.account,
		pos.Ticker,
		string(pos.Outcome),
		pos.Payout,
		pos.RealizedPnL,
		cashAfter,
		pos.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}

	p.logger.Debug("settlement-stored",
		zap.String("position-id", pos.ID),
		zap.String("outcome", string(pos.Outcome)))

	return nil
}

// RecordEquity inserts one equity curve sample.
func (p *PostgresStore) RecordEquity(ctx context.Context, point ledger.EquityPoint) error {
	query := `
		INSERT INTO equity_curve (
			account, ts, cash, open_cost, realized_pnl, equity, open_positions
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := p.db.ExecContext(ctx, query,
		p.account,
		point.Timestamp,
		point.Cash,
		point.OpenCost,
		point.RealizedPnL,
		point.Equity,
		point.OpenPositions,
	)
	if err != nil {
		return fmt.Errorf("insert equity point: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-postgres-store")
	return p.db.Close()
}
