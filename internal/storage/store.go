package storage

import (
	"fmt"

	"github.com/quantfade/longshot/internal/ledger"
	"github.com/quantfade/longshot/pkg/config"
	"go.uber.org/zap"
)

// New builds a ledger.Store from the configured storage mode.
func New(cfg *config.Config, logger *zap.Logger) (ledger.Store, error) {
	switch cfg.StorageMode {
	case "postgres":
		store, err := NewPostgresStore(&PostgresConfig{
			DSN:    cfg.PostgresDSN(),
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		return store, nil

	case "csv":
		store, err := NewCSVStore(&CSVConfig{
			Dir:    cfg.CSVDataDir,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("csv store: %w", err)
		}
		return store, nil

	case "console":
		return NewConsoleStore(logger), nil

	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.StorageMode)
	}
}
