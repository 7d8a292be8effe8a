package store

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Config selects and configures a storage backend
type Config struct {
	Driver       string
	DataDir      string
	DSN          string
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// Drivers returns the names of the supported storage drivers
func Drivers() []string {
	return []string{DriverMemory, DriverBadger, DriverSqlite, DriverPostgres, DriverMysql}
}

// Open creates the backend named by cfg.Driver and wraps it in a Store
func Open(cfg Config) (*Store, error) {
	var backend Backend
	var err error
	switch cfg.Driver {
	case DriverMemory:
		backend = NewMemoryBackend()
	case DriverBadger:
		backend, err = NewBadgerBackend(cfg.DataDir, cfg.Logger)
	case DriverSqlite:
		backend, err = NewSqliteBackend(cfg.DataDir, cfg.Logger)
	case DriverPostgres:
		backend, err = NewPostgresBackend(cfg.DSN, cfg.Logger)
	case DriverMysql:
		backend, err = NewMysqlBackend(cfg.DSN, cfg.Logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Driver, err)
	}
	return New(
		backend,
		WithLogger(cfg.Logger),
		WithPromRegistry(cfg.PromRegistry),
	), nil
}
