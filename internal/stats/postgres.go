package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/quantfade/longshot/internal/quant"
	"github.com/quantfade/longshot/pkg/types"
	"go.uber.org/zap"
)

// PostgresStore answers calibration queries over historical trade data
// in PostgreSQL. The schema has a markets table (ticker, status,
// result, close_time) and a trades table (market_ticker, yes_price,
// created_at) of the raw trade tape.
type PostgresStore struct {
	db            *sql.DB
	seriesPattern string
	logger        *zap.Logger
}

// Config holds calibration store configuration.
type Config struct {
	DSN           string
	SeriesPattern string // SQL LIKE pattern scoping queries to one series
	Logger        *zap.Logger
}

// NewPostgresStore opens a connection and verifies it.
func NewPostgresStore(cfg *Config) (*PostgresStore, error) {
	if cfg.SeriesPattern == "" {
		return nil, fmt.Errorf("series pattern cannot be empty")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("stats-store-connected",
		zap.String("series_pattern", cfg.SeriesPattern))

	return &PostgresStore{
		db:            db,
		seriesPattern: cfg.SeriesPattern,
		logger:        cfg.Logger,
	}, nil
}

// QueryPriceBucket returns the historical win rate of the given side
// across all finalized markets whose trades printed at the given YES
// price. No matching trades is a zero-sample bucket, not an error.
func (s *PostgresStore) QueryPriceBucket(ctx context.Context, yesPriceCents int, side types.Side) (quant.PriceBucket, error) {
	start := time.Now()
	defer func() {
		QueryDurationSeconds.WithLabelValues("price_bucket").Observe(time.Since(start).Seconds())
	}()

	query := `
		SELECT
			COALESCE(AVG(CASE WHEN m.result = $1 THEN 1.0 ELSE 0.0 END), 0),
			COUNT(*),
			MAX(m.close_time)
		FROM trades t
		JOIN markets m ON m.ticker = t.market_ticker
		WHERE m.status = 'finalized'
		  AND m.result IN ('yes', 'no')
		  AND m.ticker LIKE $2
		  AND t.yes_price = $3
	`

	var (
		winRate     float64
		sampleSize  int
		latestClose sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, string(side), s.seriesPattern, yesPriceCents).
		Scan(&winRate, &sampleSize, &latestClose)
	if err != nil {
		QueryErrorsTotal.Inc()
		return quant.PriceBucket{}, fmt.Errorf("price bucket query: %w", err)
	}

	bucket := quant.PriceBucket{
		WinRate:    winRate,
		SampleSize: sampleSize,
	}
	if latestClose.Valid {
		bucket.LatestClose = latestClose.Time
	}

	return bucket, nil
}

// QueryLongshotAggregate summarizes all trades at or below the ceiling
// price across finalized markets.
func (s *PostgresStore) QueryLongshotAggregate(ctx context.Context, ceilingCents int) (quant.LongshotAggregate, error) {
	start := time.Now()
	defer func() {
		QueryDurationSeconds.WithLabelValues("longshot_aggregate").Observe(time.Since(start).Seconds())
	}()

	query := `
		SELECT
			COALESCE(AVG(CASE WHEN m.result = 'yes' THEN 1.0 ELSE 0.0 END), 0),
			COALESCE(AVG(t.yes_price), 0),
			COUNT(*)
		FROM trades t
		JOIN markets m ON m.ticker = t.market_ticker
		WHERE m.status = 'finalized'
		  AND m.result IN ('yes', 'no')
		  AND m.ticker LIKE $1
		  AND t.yes_price <= $2
	`

	var agg quant.LongshotAggregate
	err := s.db.QueryRowContext(ctx, query, s.seriesPattern, ceilingCents).
		Scan(&agg.YesWinRate, &agg.AvgYesPrice, &agg.SampleSize)
	if err != nil {
		QueryErrorsTotal.Inc()
		return quant.LongshotAggregate{}, fmt.Errorf("longshot aggregate query: %w", err)
	}

	return agg, nil
}

// Replay is one finalized market with its last traded price, used to
// feed backtests.
type Replay struct {
	Ticker   string
	YesPrice int
	Winner   types.Side
	ClosedAt time.Time
}

// LoadFinalized returns the most recently closed finalized markets
// with their last traded YES price.
func (s *PostgresStore) LoadFinalized(ctx context.Context, limit int) ([]Replay, error) {
	start := time.Now()
	defer func() {
		QueryDurationSeconds.WithLabelValues("load_finalized").Observe(time.Since(start).Seconds())
	}()

	query := `
		SELECT m.ticker, m.result, m.close_time, t.yes_price
		FROM markets m
		JOIN LATERAL (
			SELECT yes_price
			FROM trades
			WHERE market_ticker = m.ticker
			ORDER BY created_at DESC
			LIMIT 1
		) t ON true
		WHERE m.status = 'finalized'
		  AND m.result IN ('yes', 'no')
		  AND m.ticker LIKE $1
		ORDER BY m.close_time DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, s.seriesPattern, limit)
	if err != nil {
		QueryErrorsTotal.Inc()
		return nil, fmt.Errorf("load finalized query: %w", err)
	}
	defer rows.Close()

	var replays []Replay
	for rows.Next() {
		var (
			replay Replay
			result string
		)
		err = rows.Scan(&replay.Ticker, &result, &replay.ClosedAt, &replay.YesPrice)
		if err != nil {
			return nil, fmt.Errorf("scan replay row: %w", err)
		}
		replay.Winner = types.Side(result)
		replays = append(replays, replay)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate replay rows: %w", err)
	}

	s.logger.Info("finalized-markets-loaded", zap.Int("count", len(replays)))

	return replays, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	s.logger.Info("closing-stats-store")
	return s.db.Close()
}
