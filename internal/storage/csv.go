package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/quantfade/longshot/internal/ledger"
	"go.uber.org/zap"
)

// CSVStore implements ledger.Store on the local filesystem: append-only
// fills.csv, settlements.csv and equity.csv plus a book.json snapshot.
// Suited to single-process paper trading and backtests.
type CSVStore struct {
	mu     sync.Mutex
	dir    string
	logger *zap.Logger

	fills       *csvFile
	settlements *csvFile
	equity      *csvFile
}

// CSVConfig holds CSV store configuration.
type CSVConfig struct {
	Dir    string
	Logger *zap.Logger
}

type csvFile struct {
	f *os.File
	w *csv.Writer
}

var (
	fillHeader = []string{
		"timestamp", "position_id", "ticker", "event_key", "category",
		"side", "entry_cents", "quantity", "cost", "fraction", "cash_after",
	}
	settlementHeader = []string{
		"timestamp", "position_id", "ticker", "outcome", "payout",
		"realized_pnl", "cash_after",
	}
	equityHeader = []string{
		"timestamp", "cash", "open_cost", "realized_pnl", "equity", "open_positions",
	}
)

// NewCSVStore creates the data directory and opens the log files.
func NewCSVStore(cfg *CSVConfig) (*CSVStore, error) {
	err := os.MkdirAll(cfg.Dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store := &CSVStore{
		dir:    cfg.Dir,
		logger: cfg.Logger,
	}

	store.fills, err = openCSV(filepath.Join(cfg.Dir, "fills.csv"), fillHeader)
	if err != nil {
		return nil, fmt.Errorf("open fills log: %w", err)
	}

	store.settlements, err = openCSV(filepath.Join(cfg.Dir, "settlements.csv"), settlementHeader)
	if err != nil {
		return nil, fmt.Errorf("open settlements log: %w", err)
	}

	store.equity, err = openCSV(filepath.Join(cfg.Dir, "equity.csv"), equityHeader)
	if err != nil {
		return nil, fmt.Errorf("open equity log: %w", err)
	}

	cfg.Logger.Info("csv-store-opened", zap.String("dir", cfg.Dir))

	return store, nil
}

// openCSV opens a file for appending, writing the header on first create.
func openCSV(path string, header []string) (*csvFile, error) {
	info, statErr := os.Stat(path)
	fresh := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(header); err != nil {
			_ = f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	return &csvFile{f: f, w: w}, nil
}

func (c *csvFile) append(record []string) error {
	if err := c.w.Write(record); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (s *CSVStore) bookPath() string {
	return filepath.Join(s.dir, "book.json")
}

// SaveBook writes the book snapshot atomically via a temp file rename.
func (s *CSVStore) SaveBook(_ context.Context, book ledger.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal book: %w", err)
	}

	tmp := s.bookPath() + ".tmp"
	err = os.WriteFile(tmp, payload, 0o644)
	if err != nil {
		return fmt.Errorf("write temp book: %w", err)
	}

	err = os.Rename(tmp, s.bookPath())
	if err != nil {
		return fmt.Errorf("rename book: %w", err)
	}

	return nil
}

// LoadBook reads the book snapshot. Returns found=false when no
// snapshot exists yet.
func (s *CSVStore) LoadBook(_ context.Context) (ledger.Book, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := os.ReadFile(s.bookPath())
	if os.IsNotExist(err) {
		return ledger.Book{}, false, nil
	}
	if err != nil {
		return ledger.Book{}, false, fmt.Errorf("read book: %w", err)
	}

	var book ledger.Book
	err = json.Unmarshal(payload, &book)
	if err != nil {
		return ledger.Book{}, false, fmt.Errorf("unmarshal book: %w", err)
	}

	return book, true, nil
}

// RecordFill appends one row to fills.csv.
func (s *CSVStore) RecordFill(_ context.Context, pos ledger.Position, cashAfter float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := []string{
		pos.OpenedAt.UTC().Format(time.RFC3339),
		pos.ID,
		pos.Ticker,
		pos.EventKey,
		string(pos.Category),
		string(pos.Side),
		strconv.Itoa(pos.EntryCents),
		strconv.Itoa(pos.Quantity),
		formatFloat(pos.Cost),
		formatFloat(pos.Fraction),
		formatFloat(cashAfter),
	}

	err := s.fills.append(record)
	if err != nil {
		return fmt.Errorf("append fill: %w", err)
	}

	return nil
}

// RecordSettlement appends one row to settlements.csv.
func (s *CSVStore) RecordSettlement(_ context.Context, pos ledger.Position, cashAfter float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := []string{
		pos.SettledAt.UTC().Format(time.RFC3339),
		pos.ID,
		pos.Ticker,
		string(pos.Outcome),
		formatFloat(pos.Payout),
		formatFloat(pos.RealizedPnL),
		formatFloat(cashAfter),
	}

	err := s.settlements.append(record)
	if err != nil {
		return fmt.Errorf("append settlement: %w", err)
	}

	return nil
}

// RecordEquity appends one row to equity.csv.
func (s *CSVStore) RecordEquity(_ context.Context, point ledger.EquityPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := []string{
		point.Timestamp.UTC().Format(time.RFC3339),
		formatFloat(point.Cash),
		formatFloat(point.OpenCost),
		formatFloat(point.RealizedPnL),
		formatFloat(point.Equity),
		strconv.Itoa(point.OpenPositions),
	}

	err := s.equity.append(record)
	if err != nil {
		return fmt.Errorf("append equity point: %w", err)
	}

	return nil
}

// Close flushes and closes the log files.
func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, file := range []*csvFile{s.fills, s.settlements, s.equity} {
		if file == nil {
			continue
		}
		file.w.Flush()
		if err := file.w.Error(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := file.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.logger.Info("csv-store-closed", zap.String("dir", s.dir))

	return firstErr
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
