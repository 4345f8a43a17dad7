package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/promo-lab/pkg/store/sqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	t.Run("runs every boot query", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer db.Close()

		for _, query := range sqldb.BootQueries {
			mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 0))
		}

		require.NoError(t, Migrate(context.Background(), db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops on first failure", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(sqldb.BootQueries[0]).WillReturnError(fmt.Errorf("permission denied"))

		err = Migrate(context.Background(), db)
		assert.ErrorContains(t, err, "permission denied")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNewDB_RequiresDSN(t *testing.T) {
	db, err := NewDB(context.Background(), Settings{})
	assert.Error(t, err)
	assert.Nil(t, db)
}
