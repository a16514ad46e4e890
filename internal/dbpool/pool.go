// Package dbpool manages the PostgreSQL connection pool behind the postgres
// snapshot store.
package dbpool

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMaxConns covers snapshot writes, review logging and the LISTEN bridge.
const DefaultMaxConns = 8

// Pool is the shared pgx pool. Callers get the narrow subset of pgxpool
// the store and notify bridge need.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool creates a connection pool and verifies it can reach the database.
// A non-positive maxConns uses DefaultMaxConns.
func NewPool(ctx context.Context, databaseURL string, maxConns int32) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}

	cfg.ConnConfig.RuntimeParams["statement_timeout"] = "30000"
	cfg.ConnConfig.RuntimeParams["application_name"] = "nexus"

	cfg.MaxConns = maxConns
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

// Acquire returns a dedicated connection, used for LISTEN.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	return p.pool.Acquire(ctx)
}

// Exec executes a statement that returns no rows.
func (p *Pool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, arguments...)
}

// Query executes a query that returns rows.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

// Begin starts a transaction.
func (p *Pool) Begin(ctx context.Context) (pgx.Tx, error) {
	return p.pool.Begin(ctx)
}

// Ping verifies the pool can reach the database.
func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// HealthCheck runs a trivial query.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var result int

	if err := p.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check query: %w", err)
	}

	return nil
}

// ConnString returns the connection string used to create the pool.
func (p *Pool) ConnString() string {
	return p.pool.Config().ConnString()
}

// ExportStats registers gauges reporting pool occupancy on reg.
func (p *Pool) ExportStats(reg prometheus.Registerer) error {
	gauges := []struct {
		name, help string
		value      func(*pgxpool.Stat) int32
	}{
		{"nexus_db_pool_acquired_conns", "Connections currently checked out", (*pgxpool.Stat).AcquiredConns},
		{"nexus_db_pool_idle_conns", "Idle connections held by the pool", (*pgxpool.Stat).IdleConns},
		{"nexus_db_pool_total_conns", "All connections owned by the pool", (*pgxpool.Stat).TotalConns},
	}

	for _, g := range gauges {
		value := g.value
		collector := prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(value(p.pool.Stat())) },
		)
		if err := reg.Register(collector); err != nil {
			return fmt.Errorf("registering %s: %w", g.name, err)
		}
	}

	return nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.pool.Close()
}
