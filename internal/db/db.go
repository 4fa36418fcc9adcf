// Package db stores the latest forecast document per location. PostgreSQL
// (pgx) backs deployed environments; SQLite backs local runs. Both stores
// scan rows by column name.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"surfcast/internal/config"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
// Repositories accept this so the same code works inside or outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ForecastRow is the persisted form of a forecast record. Document holds the
// record's JSON encoding.
type ForecastRow struct {
	LocationID  string    `db:"location_id"`
	State       string    `db:"state"`
	Model       string    `db:"model"`
	GeneratedAt time.Time `db:"generated_at"`
	Hours       int       `db:"hours"`
	Document    []byte    `db:"document"`
}

// ForecastStore is implemented by both repositories.
type ForecastStore interface {
	Upsert(ctx context.Context, row ForecastRow) error
	Get(ctx context.Context, locationID string) (*ForecastRow, error)
	List(ctx context.Context) ([]ForecastRow, error)
}

var (
	_ ForecastStore = (*ForecastRepository)(nil)
	_ ForecastStore = (*SQLiteForecastRepository)(nil)
)

// Open connects to PostgreSQL when a URL is configured and to the SQLite
// file otherwise. The returned func releases the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (ForecastStore, func(), error) {
	if cfg.URL.Unmask() == "" {
		repo, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite forecast store", "path", cfg.SQLitePath)
		return repo, func() { repo.Close() }, nil
	}

	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using postgres forecast store", "max_conns", cfg.MaxConns)
	return NewForecastRepository(pool), pool.Close, nil
}

// NewPool creates and pings a pgx pool.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}
