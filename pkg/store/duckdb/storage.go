package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/de-tools/promo-lab/pkg/store/sqldb"
	"github.com/marcboeker/go-duckdb/v2"
)

type Settings struct {
	DbPath  string
	Threads int
}

func NewDB(settings Settings) (*sql.DB, error) {
	threads := settings.Threads
	if threads <= 0 {
		threads = 4
	}
	dsn := fmt.Sprintf("%s?threads=%d", settings.DbPath, threads)
	c, err := duckdb.NewConnector(dsn, func(exec driver.ExecerContext) error {
		for _, query := range sqldb.BootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
