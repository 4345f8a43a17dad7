package baseline

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

func day(d int) time.Time {
	return time.Date(2024, 10, d, 0, 0, 0, 0, time.UTC)
}

func seedSales(t *testing.T, f *fixture) {
	records := []store.SalesRecord{
		{Date: day(1), Channel: "online", Department: "Electronics", SalesValue: 1000, MarginValue: 250, Units: 10},
		{Date: day(2), Channel: "online", Department: "Electronics", SalesValue: 500, MarginValue: 125, Units: 5},
		{Date: day(1), Channel: "offline", Department: "Electronics", SalesValue: 2000, MarginValue: 400, Units: 20},
		{Date: day(1), Channel: "online", Department: "Home", SalesValue: 300, MarginValue: 90, Units: 3},
		{Date: day(20), Channel: "online", Department: "Home", SalesValue: 700, MarginValue: 210, Units: 7},
	}
	require.NoError(t, f.store.AddSales(context.Background(), records))
}

func TestNewStore_NilDB(t *testing.T) {
	s, err := NewStore(nil, sqldb.DialectDuckDB)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestBaselineStore_GetTotals(t *testing.T) {
	f := setupFixture(t)
	seedSales(t, f)
	ctx := context.Background()

	tests := []struct {
		name     string
		filter   store.SalesFilter
		expected store.SalesTotals
	}{
		{
			name:     "whole range",
			filter:   store.SalesFilter{Start: day(1), End: day(31)},
			expected: store.SalesTotals{Rows: 5, SalesValue: 4500, MarginValue: 1075, Units: 45},
		},
		{
			name:     "end date is inclusive",
			filter:   store.SalesFilter{Start: day(1), End: day(2), Departments: []string{"Electronics"}},
			expected: store.SalesTotals{Rows: 3, SalesValue: 3500, MarginValue: 775, Units: 35},
		},
		{
			name:     "department and channel",
			filter:   store.SalesFilter{Start: day(1), End: day(31), Departments: []string{"Home"}, Channels: []string{"online"}},
			expected: store.SalesTotals{Rows: 2, SalesValue: 1000, MarginValue: 300, Units: 10},
		},
		{
			name:     "no data",
			filter:   store.SalesFilter{Start: day(25), End: day(31)},
			expected: store.SalesTotals{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := f.store.GetTotals(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expected.Rows, totals.Rows)
			assert.InDelta(t, tt.expected.SalesValue, totals.SalesValue, 1e-9)
			assert.InDelta(t, tt.expected.MarginValue, totals.MarginValue, 1e-9)
			assert.InDelta(t, tt.expected.Units, totals.Units, 1e-9)
		})
	}
}

func TestBaselineStore_GetBreakdown(t *testing.T) {
	f := setupFixture(t)
	seedSales(t, f)

	slices, err := f.store.GetBreakdown(context.Background(), store.SalesFilter{Start: day(1), End: day(10)})
	require.NoError(t, err)
	require.Len(t, slices, 3)

	assert.Equal(t, "Electronics", slices[0].Department)
	assert.Equal(t, "offline", slices[0].Channel)
	assert.InDelta(t, 2000.0, slices[0].SalesValue, 1e-9)

	assert.Equal(t, "Electronics", slices[1].Department)
	assert.Equal(t, "online", slices[1].Channel)
	assert.Equal(t, int64(2), slices[1].Rows)
	assert.InDelta(t, 1500.0, slices[1].SalesValue, 1e-9)

	assert.Equal(t, "Home", slices[2].Department)
	assert.InDelta(t, 300.0, slices[2].SalesValue, 1e-9)
}

func TestBaselineStore_Coefficients(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	coefficients := []store.UpliftCoefficient{
		{Department: "Electronics", Channel: "online", DiscountBand: "10-15", UpliftSalesPct: 0.1, UpliftUnitsPct: 0.12, MarginImpactPct: -0.05, Confidence: 0.8, SampleSize: 40, ModelVersion: "v1"},
		{Department: "Electronics", Channel: "offline", DiscountBand: "10-15", UpliftSalesPct: 0.08, UpliftUnitsPct: 0.1, MarginImpactPct: -0.04, ModelVersion: "v1"},
		{Department: "Toys", Channel: "online", DiscountBand: "0-5", UpliftSalesPct: 0.01, UpliftUnitsPct: 0.02, MarginImpactPct: -0.01, ModelVersion: "v1"},
	}

	t.Run("success - add and filter", func(t *testing.T) {
		require.NoError(t, f.store.AddCoefficients(ctx, coefficients))

		got, err := f.store.ListCoefficients(ctx, []string{"Electronics"}, []string{"online"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, coefficients[0], got[0])

		all, err := f.store.ListCoefficients(ctx, nil, nil)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("success - upsert replaces existing band", func(t *testing.T) {
		updated := coefficients[0]
		updated.UpliftSalesPct = 0.2
		updated.ModelVersion = "v2"
		require.NoError(t, f.store.AddCoefficients(ctx, []store.UpliftCoefficient{updated}))

		got, err := f.store.ListCoefficients(ctx, []string{"Electronics"}, []string{"online"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 0.2, got[0].UpliftSalesPct)
		assert.Equal(t, "v2", got[0].ModelVersion)
	})

	t.Run("success - departments include coefficient-only departments", func(t *testing.T) {
		seedSales(t, f)
		departments, err := f.store.ListDepartments(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Electronics", "Home", "Toys"}, departments)
	})
}

func TestBaselineStore_Segments(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	segments := []store.Segment{
		{SegmentID: "families", Name: "Families", ShareOfCustomers: 0.4, ShareOfRevenue: 0.5, AvgBasketValue: 80, DiscountSensitivity: "high"},
		{SegmentID: "students", Name: "Students", ShareOfCustomers: 0.2, ShareOfRevenue: 0.1, AvgBasketValue: 25},
		{SegmentID: "pros", Name: "Professionals", Description: "B2B buyers", ShareOfCustomers: 0.4, ShareOfRevenue: 0.4, AvgBasketValue: 150},
	}
	require.NoError(t, f.store.AddSegments(ctx, segments))

	t.Run("paged listing is ordered by id", func(t *testing.T) {
		page, total, err := f.store.ListSegments(ctx, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, page, 2)
		assert.Equal(t, "families", page[0].SegmentID)
		assert.Equal(t, "pros", page[1].SegmentID)

		page, _, err = f.store.ListSegments(ctx, 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "students", page[0].SegmentID)
	})

	t.Run("lookup by id", func(t *testing.T) {
		got, err := f.store.GetSegments(ctx, []string{"pros", "unknown"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "B2B buyers", got[0].Description)
	})

	t.Run("empty lookup", func(t *testing.T) {
		got, err := f.store.GetSegments(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestBaselineStore_Revision(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	before, err := f.store.Revision(ctx)
	require.NoError(t, err)

	again, err := f.store.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, again)

	seedSales(t, f)
	after, err := f.store.Revision(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestBaselineStore_AddSales_InTransaction(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	err := sqldb.InTransaction(ctx, f.db, func(ctx context.Context) error {
		if err := f.store.AddSales(ctx, []store.SalesRecord{
			{Date: day(3), Channel: "online", Department: "Garden", SalesValue: 10, MarginValue: 2, Units: 1},
		}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var count int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM sales_aggregated").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestBaselineStore_ListMonths(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	months, err := f.store.ListMonths(ctx)
	require.NoError(t, err)
	assert.Empty(t, months)

	seedSales(t, f)
	require.NoError(t, f.store.AddSales(ctx, []store.SalesRecord{
		{Date: time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC), Channel: "online", Department: "Home", SalesValue: 10, MarginValue: 2, Units: 1},
		{Date: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), Channel: "online", Department: "Home", SalesValue: 10, MarginValue: 2, Units: 1},
	}))

	months, err = f.store.ListMonths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-10", "2024-09", "2023-12"}, months)
}

func TestBaselineStore_Targets(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	missing, err := f.store.GetTarget(ctx, "2024-10")
	require.NoError(t, err)
	assert.Nil(t, missing)

	units := 400.0
	require.NoError(t, f.store.AddTargets(ctx, []store.Target{
		{Month: "2024-11", SalesTarget: 5000, MarginPctTarget: 0.2},
		{Month: "2024-10", SalesTarget: 4000, MarginPctTarget: 0.25, UnitsTarget: &units},
	}))

	got, err := f.store.GetTarget(ctx, "2024-10")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 4000.0, got.SalesTarget)
	assert.Equal(t, 0.25, got.MarginPctTarget)
	require.NotNil(t, got.UnitsTarget)
	assert.Equal(t, 400.0, *got.UnitsTarget)

	require.NoError(t, f.store.AddTargets(ctx, []store.Target{
		{Month: "2024-10", SalesTarget: 4500, MarginPctTarget: 0.22},
	}))

	all, err := f.store.ListTargets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2024-10", all[0].Month)
	assert.Equal(t, 4500.0, all[0].SalesTarget)
	assert.Nil(t, all[0].UnitsTarget)
	assert.Equal(t, "2024-11", all[1].Month)
}

func TestBaselineStore_GetQualityStats(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	empty, err := f.store.GetQualityStats(ctx, 90)
	require.NoError(t, err)
	assert.Zero(t, empty.Rows)

	seedSales(t, f)
	require.NoError(t, f.store.AddSales(ctx, []store.SalesRecord{
		// margin above sales and a promo flag without discount
		{Date: day(21), Channel: "online", Department: "Home", PromoFlag: true, SalesValue: 100, MarginValue: 150, Units: 1},
		// discount without a promo flag
		{Date: day(21), Channel: "offline", Department: "Home", DiscountPct: 10, SalesValue: 100, MarginValue: 20, Units: 1},
	}))

	tests := []struct {
		name         string
		lookback     int
		rows         int64
		days         int64
		first        time.Time
		invalid      int64
		inconsistent int64
	}{
		{name: "whole history", lookback: 90, rows: 7, days: 4, first: day(1), invalid: 1, inconsistent: 2},
		{name: "window ends at latest fact", lookback: 2, rows: 3, days: 2, first: day(20), invalid: 1, inconsistent: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := f.store.GetQualityStats(ctx, tt.lookback)
			require.NoError(t, err)
			assert.Equal(t, tt.rows, stats.Rows)
			assert.Equal(t, tt.days, stats.Days)
			assert.True(t, tt.first.Equal(stats.First.UTC()), "first = %s", stats.First)
			assert.True(t, day(21).Equal(stats.Last.UTC()), "last = %s", stats.Last)
			assert.Equal(t, tt.invalid, stats.InvalidRows)
			assert.Equal(t, tt.inconsistent, stats.InconsistentRows)
		})
	}
}

func TestBaselineStore_ReadOnlySource(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(db, sqldb.DialectDatabricks)
	require.NoError(t, err)

	err = s.AddSales(context.Background(), []store.SalesRecord{{Date: day(1), Department: "Home", Channel: "online"}})
	assert.ErrorContains(t, err, "read-only")
	err = s.AddTargets(context.Background(), []store.Target{{Month: "2024-10", SalesTarget: 1}})
	assert.ErrorContains(t, err, "read-only")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaselineStore_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(db, sqldb.DialectPostgres)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM sales_aggregated\s+WHERE date >= \$1 AND date <= \$2 AND department IN \(\$3,\$4\)`).
		WithArgs(day(1), day(31), "Electronics", "Home").
		WillReturnRows(sqlmock.NewRows([]string{"count", "sales", "margin", "units"}).AddRow(4, 100.0, 25.0, 3.0))

	totals, err := s.GetTotals(context.Background(), store.SalesFilter{
		Start:       day(1),
		End:         day(31),
		Departments: []string{"Electronics", "Home"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), totals.Rows)
	assert.Equal(t, 100.0, totals.SalesValue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaselineStore_PostgresGetTarget(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(db, sqldb.DialectPostgres)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM targets\s+WHERE month = \$1`).
		WithArgs("2024-10").
		WillReturnRows(sqlmock.NewRows([]string{"month", "sales", "margin_pct", "units"}).AddRow("2024-10", 100.0, 0.2, nil))

	got, err := s.GetTarget(context.Background(), "2024-10")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 100.0, got.SalesTarget)
	assert.Nil(t, got.UnitsTarget)
	assert.NoError(t, mock.ExpectationsWereMet())
}
