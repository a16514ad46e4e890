// Migration runner using goose (github.com/pressly/goose/v3).
//
// Migration files live in internal/db/migrations/<dialect>/ and are embedded
// via //go:embed. Both snapshot backends apply pending migrations on open.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/db/migrations"
	"github.com/studynexus/nexus/internal/dbpool"
)

// Dialect directories inside migrations.FS.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// MigrationsFS returns the migrations for dialect.
func MigrationsFS(dialect string) (fs.FS, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
		return fs.Sub(migrations.FS, dialect)
	default:
		return nil, fmt.Errorf("unknown migration dialect %q", dialect)
	}
}

func gooseDialect(dialect string) goose.Dialect {
	if dialect == DialectSQLite {
		return goose.DialectSQLite3
	}

	return goose.DialectPostgres
}

// Migrate applies all pending migrations for dialect to sqlDB.
func Migrate(ctx context.Context, sqlDB *sql.DB, dialect string, log *logrus.Logger) error {
	fsys, err := MigrationsFS(dialect)
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(gooseDialect(dialect), sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("creating goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", r.Source.Version, r.Source.Path, r.Error)
		}

		log.WithFields(logrus.Fields{
			"dialect":  dialect,
			"version":  r.Source.Version,
			"file":     r.Source.Path,
			"duration": r.Duration,
		}).Info("migration applied")
	}

	if len(results) == 0 {
		log.WithField("dialect", dialect).Debug("all migrations already applied")
	}

	return nil
}

// MigratePool applies the postgres migrations through a database/sql handle
// opened on the pool's connection string.
func MigratePool(ctx context.Context, pool *dbpool.Pool, log *logrus.Logger) error {
	sqlDB, err := sql.Open("pgx", pool.ConnString())
	if err != nil {
		return fmt.Errorf("opening sql.DB for migrations: %w", err)
	}
	defer sqlDB.Close()

	return Migrate(ctx, sqlDB, DialectPostgres, log)
}
