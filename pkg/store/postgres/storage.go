package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/de-tools/promo-lab/pkg/store/sqldb"
	_ "github.com/lib/pq"
)

type Settings struct {
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

func NewDB(ctx context.Context, settings Settings) (*sql.DB, error) {
	if settings.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", settings.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if settings.MaxOpenConns > 0 {
		db.SetMaxOpenConns(settings.MaxOpenConns)
	}
	if settings.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(settings.ConnMaxLifetime)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates missing tables; it is safe to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, query := range sqldb.BootQueries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("boot schema: %w", err)
		}
	}
	return nil
}
