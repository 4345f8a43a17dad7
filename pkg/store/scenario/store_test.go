package scenario

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/promo-lab/pkg/models/store"
	"github.com/de-tools/promo-lab/pkg/store/duckdb"
	"github.com/de-tools/promo-lab/pkg/store/sqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupFixture(t *testing.T) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)

	s, err := NewStore(db, sqldb.DialectDuckDB)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{
		db:    db,
		store: s,
	}
}

var (
	periodStart = time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC)
	createdBase = time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)
)

func scenarioRow(id string) store.ScenarioRow {
	return store.ScenarioRow{
		ID:             id,
		Label:          "Scenario 1",
		ScenarioType:   "balanced",
		DateRangeStart: periodStart,
		DateRangeEnd:   periodEnd,
		Payload:        []byte(`{"id":"` + id + `"}`),
		CreatedAt:      createdBase,
	}
}

func TestNewStore_NilDB(t *testing.T) {
	s, err := NewStore(nil, sqldb.DialectDuckDB)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestScenarioStore_SaveAndGet(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	t.Run("success - round trip", func(t *testing.T) {
		row := scenarioRow("s-1")
		require.NoError(t, f.store.SaveScenario(ctx, row))

		got, err := f.store.GetScenario(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, row.Label, got.Label)
		assert.Equal(t, row.ScenarioType, got.ScenarioType)
		assert.Equal(t, string(row.Payload), string(got.Payload))
		assert.True(t, row.DateRangeStart.Equal(got.DateRangeStart))
		assert.True(t, row.DateRangeEnd.Equal(got.DateRangeEnd))
	})

	t.Run("error - duplicate id", func(t *testing.T) {
		assert.Error(t, f.store.SaveScenario(ctx, scenarioRow("s-1")))
	})

	t.Run("error - not found", func(t *testing.T) {
		got, err := f.store.GetScenario(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, got)
	})
}

func TestScenarioStore_LatestKPI(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SaveScenario(ctx, scenarioRow("s-1")))

	_, err := f.store.LatestKPI(ctx, "s-1")
	require.ErrorIs(t, err, ErrNotFound)

	for i, sales := range []float64{100, 200} {
		require.NoError(t, f.store.SaveKPI(ctx, store.KPIRow{
			ID:              []string{"k-1", "k-2"}[i],
			ScenarioID:      "s-1",
			PeriodStart:     periodStart,
			PeriodEnd:       periodEnd,
			TotalSalesValue: sales,
			Payload:         []byte(`{}`),
			CreatedAt:       createdBase.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := f.store.LatestKPI(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "k-2", got.ID)
	assert.Equal(t, 200.0, got.TotalSalesValue)
}

func TestScenarioStore_LatestValidationAndPostMortem(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveValidation(ctx, store.ValidationRow{
		ID: "v-1", ScenarioID: "s-1", Status: "WARN", OverallScore: 85, Payload: []byte(`{"status":"WARN"}`),
	}))
	v, err := f.store.LatestValidation(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "WARN", v.Status)
	assert.Equal(t, 85.0, v.OverallScore)
	assert.False(t, v.CreatedAt.IsZero())

	_, err = f.store.LatestPostMortem(ctx, "s-1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.store.SavePostMortem(ctx, store.PostMortemRow{
		ID: "p-1", ScenarioID: "s-1", PeriodStart: periodStart, PeriodEnd: periodEnd, Payload: []byte(`{"insights":[]}`),
	}))
	pm, err := f.store.LatestPostMortem(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, `{"insights":[]}`, string(pm.Payload))
}

func TestScenarioStore_ListPostMortems(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	rows, err := f.store.ListPostMortems(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, f.store.SavePostMortem(ctx, store.PostMortemRow{
		ID: "p-2", ScenarioID: "s-2", PeriodStart: periodStart, PeriodEnd: periodEnd,
		Payload: []byte(`{"b":2}`), CreatedAt: createdBase.Add(time.Hour),
	}))
	require.NoError(t, f.store.SavePostMortem(ctx, store.PostMortemRow{
		ID: "p-1", ScenarioID: "s-1", PeriodStart: periodStart, PeriodEnd: periodEnd,
		Payload: []byte(`{"a":1}`), CreatedAt: createdBase,
	}))

	rows, err = f.store.ListPostMortems(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "p-1", rows[0].ID)
	assert.Equal(t, "s-1", rows[0].ScenarioID)
	assert.Equal(t, `{"a":1}`, string(rows[0].Payload))
	assert.Equal(t, "p-2", rows[1].ID)
}

func TestScenarioStore_DeleteScenario(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveScenario(ctx, scenarioRow("s-1")))
	require.NoError(t, f.store.SaveKPI(ctx, store.KPIRow{
		ID: "k-1", ScenarioID: "s-1", PeriodStart: periodStart, PeriodEnd: periodEnd, Payload: []byte(`{}`),
	}))

	deleted, err := f.store.DeleteScenario(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = f.store.GetScenario(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.store.LatestKPI(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err = f.store.DeleteScenario(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestScenarioStore_PostgresDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(db, sqldb.DialectPostgres)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM scenario_kpis WHERE scenario_id = \$1`).WithArgs("s-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM validation_reports WHERE scenario_id = \$1`).WithArgs("s-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM postmortem_reports WHERE scenario_id = \$1`).WithArgs("s-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM promo_scenarios WHERE id = \$1`).WithArgs("s-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := s.DeleteScenario(context.Background(), "s-1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScenarioStore_PostgresDeleteRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(db, sqldb.DialectPostgres)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM scenario_kpis`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = s.DeleteScenario(context.Background(), "s-1")
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
