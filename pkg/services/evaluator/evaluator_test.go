package evaluator

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/models/store"
	"github.com/de-tools/promo-lab/pkg/store/baseline"
	"github.com/de-tools/promo-lab/pkg/store/duckdb"
	"github.com/de-tools/promo-lab/pkg/store/sqldb"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBaselineSource struct {
	mock.Mock
}

func (m *MockBaselineSource) GetBreakdown(ctx context.Context, filter store.SalesFilter) ([]store.SalesSlice, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.SalesSlice), args.Error(1)
}

func (m *MockBaselineSource) ListCoefficients(ctx context.Context, departments, channels []string) ([]store.UpliftCoefficient, error) {
	args := m.Called(ctx, departments, channels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.UpliftCoefficient), args.Error(1)
}

func (m *MockBaselineSource) GetSegments(ctx context.Context, ids []string) ([]store.Segment, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Segment), args.Error(1)
}

var october = domain.DateRange{
	Start: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC),
}

func setupStore(t *testing.T) baseline.Store {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	s, err := baseline.NewStore(db, sqldb.DialectDuckDB)
	require.NoError(t, err)

	day := func(d int) time.Time { return time.Date(2024, 10, d, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, s.AddSales(context.Background(), []store.SalesRecord{
		{Date: day(1), Department: "Electronics", Channel: "online", SalesValue: 600, MarginValue: 180, Units: 6},
		{Date: day(15), Department: "Electronics", Channel: "online", SalesValue: 400, MarginValue: 120, Units: 4},
		{Date: day(2), Department: "Electronics", Channel: "offline", SalesValue: 2000, MarginValue: 500, Units: 20},
		{Date: day(3), Department: "Home", Channel: "online", SalesValue: 300, MarginValue: 90, Units: 30},
		{Date: day(3), Department: "Home", Channel: "offline", SalesValue: 700, MarginValue: 140, Units: 35},
		{Date: day(3), Department: "Toys", Channel: "online", SalesValue: 333.33, MarginValue: 111.11, Units: 7},
	}))
	require.NoError(t, s.AddSegments(context.Background(), []store.Segment{
		{SegmentID: "families", Name: "Families", ShareOfRevenue: 0.6},
		{SegmentID: "students", Name: "Students", ShareOfRevenue: 0.2},
	}))
	return s
}

func scenarioWith(discount float64, departments ...string) domain.Scenario {
	s := domain.Scenario{ID: "s-1", DateRange: october, Departments: departments, Channels: domain.DefaultChannels}
	for _, d := range departments {
		for _, ch := range domain.DefaultChannels {
			s.Mechanics = append(s.Mechanics, domain.Mechanic{Department: d, Channel: ch, DiscountPct: discount})
		}
	}
	return s
}

func TestEvaluator_AggressiveElectronics(t *testing.T) {
	e := NewEvaluator(setupStore(t))

	kpi, err := e.Evaluate(context.Background(), scenarioWith(25, "Electronics"))
	require.NoError(t, err)

	// 20-30 band: +26% sales, +32% units, -13 points of margin.
	assert.InDelta(t, 3780.0, kpi.TotalSales, 1e-9)
	assert.InDelta(t, 516.6, kpi.TotalMargin, 1e-9)
	assert.InDelta(t, 516.6-750, kpi.TotalEBIT, 1e-9)
	assert.InDelta(t, 39.6, kpi.TotalUnits, 1e-9)
	assert.Greater(t, kpi.TotalSales, 3000.0)

	assert.InDelta(t, 1260.0, kpi.ByChannel["online"].Sales, 1e-9)
	assert.InDelta(t, 214.2, kpi.ByChannel["online"].Margin, 1e-9)
	assert.InDelta(t, 780.0, kpi.VsBaseline[domain.MetricSales], 1e-9)
	assert.InDelta(t, 516.6-800, kpi.VsBaseline[domain.MetricMargin], 1e-9)
	assert.InDelta(t, 516.6-750-800, kpi.VsBaseline[domain.MetricEBIT], 1e-9)
	assert.Empty(t, kpi.Caveats)
	assert.Nil(t, kpi.BySegment)
}

func TestEvaluator_ZeroDiscountMatchesBaselineExactly(t *testing.T) {
	e := NewEvaluator(setupStore(t))

	kpi, err := e.Evaluate(context.Background(), scenarioWith(0, "Electronics", "Home", "Toys"))
	require.NoError(t, err)

	for _, metric := range []string{domain.MetricSales, domain.MetricMargin, domain.MetricEBIT, domain.MetricUnits} {
		assert.Equal(t, 0.0, kpi.VsBaseline[metric], metric)
	}
	assert.Equal(t, kpi.TotalMargin, kpi.TotalEBIT)
	require.Len(t, kpi.Caveats, 1, "Toys has no offline sales")
	assert.Contains(t, kpi.Caveats[0], "Toys/offline")
	assert.Contains(t, kpi.ByDepartment, "Toys")
}

func TestEvaluator_BaselineNotFound(t *testing.T) {
	e := NewEvaluator(setupStore(t))

	s := scenarioWith(10, "Garden")
	_, err := e.Evaluate(context.Background(), s)
	assert.True(t, domain.IsKind(err, domain.KindBaselineNotFound))

	s = scenarioWith(10, "Electronics")
	s.DateRange = domain.DateRange{Start: october.Start.AddDate(1, 0, 0), End: october.End.AddDate(1, 0, 0)}
	_, err = e.Evaluate(context.Background(), s)
	assert.True(t, domain.IsKind(err, domain.KindBaselineNotFound))
}

func TestEvaluator_NoMechanics(t *testing.T) {
	kpi, err := NewEvaluator(new(MockBaselineSource)).Evaluate(context.Background(), domain.Scenario{ID: "empty", DateRange: october})
	require.NoError(t, err)
	assert.Equal(t, 0.0, kpi.TotalSales)
	assert.Len(t, kpi.VsBaseline, 4)
	assert.Equal(t, []string{"scenario has no mechanics"}, kpi.Caveats)
}

func TestEvaluator_InvalidInput(t *testing.T) {
	e := NewEvaluator(new(MockBaselineSource))

	_, err := e.Evaluate(context.Background(), scenarioWith(120, "Home"))
	assert.True(t, domain.IsKind(err, domain.KindInvalidDiscount))

	_, err = e.Evaluate(context.Background(), scenarioWith(math.NaN(), "Home"))
	assert.True(t, domain.IsKind(err, domain.KindInvalidDiscount))

	reversed := scenarioWith(5, "Home")
	reversed.DateRange = domain.DateRange{Start: october.End, End: october.Start}
	_, err = e.Evaluate(context.Background(), reversed)
	assert.True(t, domain.IsKind(err, domain.KindInvalidDateRange))
}

func TestEvaluator_StoreFailure(t *testing.T) {
	source := new(MockBaselineSource)
	source.On("GetBreakdown", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	_, err := NewEvaluator(source).Evaluate(context.Background(), scenarioWith(5, "Home"))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, domain.ErrorKind(""), domain.KindOf(err))
}

func TestEvaluator_StoreCoefficientsOverrideDefaults(t *testing.T) {
	source := new(MockBaselineSource)
	source.On("GetBreakdown", mock.Anything, mock.Anything).Return([]store.SalesSlice{
		{Department: "Home", Channel: "online", SalesTotals: store.SalesTotals{Rows: 1, SalesValue: 1000, MarginValue: 300, Units: 10}},
	}, nil)
	source.On("ListCoefficients", mock.Anything, []string{"Home"}, []string{"online"}).Return([]store.UpliftCoefficient{
		{Department: "Home", Channel: "online", DiscountBand: "10-15", UpliftSalesPct: 0.5, UpliftUnitsPct: 0.1, MarginImpactPct: 0.2, ModelVersion: "v9"},
	}, nil)

	s := domain.Scenario{ID: "s", DateRange: october, Mechanics: []domain.Mechanic{{Department: "Home", Channel: "online", DiscountPct: 12}}}
	kpi, err := NewEvaluator(source).Evaluate(context.Background(), s)
	require.NoError(t, err)

	// Positive impact is pulled down to the 5-10 default (-0.03).
	assert.InDelta(t, 1500.0, kpi.TotalSales, 1e-9)
	assert.InDelta(t, 300*1.5-1500*0.03, kpi.TotalMargin, 1e-9)
	assert.InDelta(t, 300*1.5-1500*0.03-120, kpi.TotalEBIT, 1e-9)
	source.AssertExpectations(t)
}

func TestEvaluator_SegmentBreakdown(t *testing.T) {
	e := NewEvaluator(setupStore(t))

	s := domain.Scenario{ID: "seg", DateRange: october, Mechanics: []domain.Mechanic{
		{Department: "Home", Channel: "online", DiscountPct: 0, Segments: []string{"families", "students"}},
		{Department: "Home", Channel: "offline", DiscountPct: 0, Segments: []string{"families", "unknown"}},
	}}
	kpi, err := e.Evaluate(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, kpi.BySegment, 3)
	assert.InDelta(t, 300*0.75+700*0.5, kpi.BySegment["families"].Sales, 1e-9)
	assert.InDelta(t, 300*0.25, kpi.BySegment["students"].Sales, 1e-9)
	assert.InDelta(t, 350.0, kpi.BySegment["unknown"].Sales, 1e-9)

	segTotal := 0.0
	for _, m := range kpi.BySegment {
		segTotal += m.Sales
	}
	assert.InDelta(t, kpi.TotalSales, segTotal, 1e-6*kpi.TotalSales)
}

func TestEvaluator_Properties(t *testing.T) {
	e := NewEvaluator(setupStore(t))
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("evaluation is byte-for-byte idempotent", prop.ForAll(
		func(a, b, c float64) bool {
			s := domain.Scenario{ID: "p", DateRange: october, Mechanics: []domain.Mechanic{
				{Department: "Electronics", Channel: "online", DiscountPct: a},
				{Department: "Home", Channel: "offline", DiscountPct: b},
				{Department: "Toys", Channel: "online", DiscountPct: c},
			}}
			first, err := e.Evaluate(ctx, s)
			if err != nil {
				return false
			}
			second, err := e.Evaluate(ctx, s)
			if err != nil {
				return false
			}
			x, _ := json.Marshal(adapters.MapKPIDomainToApi(first))
			y, _ := json.Marshal(adapters.MapKPIDomainToApi(second))
			return string(x) == string(y)
		},
		gen.Float64Range(0, 60),
		gen.Float64Range(0, 60),
		gen.Float64Range(0, 60),
	))

	properties.Property("totals equal the sum of each breakdown", prop.ForAll(
		func(a, b float64) bool {
			s := scenarioWith(a, "Electronics", "Home")
			s.Mechanics[1].DiscountPct = b
			kpi, err := e.Evaluate(ctx, s)
			if err != nil {
				return false
			}
			var byDept, byChannel domain.Metrics
			for _, m := range kpi.ByDepartment {
				byDept = byDept.Add(m)
			}
			for _, m := range kpi.ByChannel {
				byChannel = byChannel.Add(m)
			}
			tol := 1e-6 * math.Abs(kpi.TotalSales)
			return math.Abs(byDept.Sales-kpi.TotalSales) <= tol &&
				math.Abs(byChannel.Sales-kpi.TotalSales) <= tol &&
				math.Abs(byDept.Margin-kpi.TotalMargin) <= 1e-6*math.Max(1, math.Abs(kpi.TotalMargin))
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
	))

	properties.Property("deeper discounts never raise the margin rate", prop.ForAll(
		func(a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			low, err := e.Evaluate(ctx, scenarioWith(a, "Electronics"))
			if err != nil {
				return false
			}
			high, err := e.Evaluate(ctx, scenarioWith(b, "Electronics"))
			if err != nil {
				return false
			}
			return high.MarginPct() <= low.MarginPct()+1e-12
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}
