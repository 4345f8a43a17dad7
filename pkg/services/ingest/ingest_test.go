package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/promo-lab/pkg/models/store"
	"github.com/de-tools/promo-lab/pkg/store/baseline"
	"github.com/de-tools/promo-lab/pkg/store/duckdb"
	"github.com/de-tools/promo-lab/pkg/store/sqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  baseline.Store
	loader *Loader
}

func setupFixture(t *testing.T, batchSize int) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	s, err := baseline.NewStore(db, sqldb.DialectDuckDB)
	require.NoError(t, err)

	return &fixture{
		store:  s,
		loader: NewLoader(db, s, Settings{BatchSize: batchSize}),
	}
}

const salesCSV = `date,channel,department,promo_flag,discount_pct,sales_value,margin_value,units
2024-10-01,online,Electronics,false,0,1000,250,10
2024-10-02,Online,Electronics,true,15,1200,240,14
2024-10-01,offline,Home,false,,300,90,3
2024-10-03,offline,Home,false,0,400,120,4
2024-10-04,online,Toys,true,10,150,30,6
`

func TestLoader_LoadSales(t *testing.T) {
	f := setupFixture(t, 2)

	var progress []Progress
	f.loader.OnProgress(func(p Progress) {
		progress = append(progress, p)
	})

	n, err := f.loader.LoadSales(context.Background(), strings.NewReader(salesCSV))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	require.Len(t, progress, 3)
	assert.Equal(t, int64(2), progress[0].ProcessedRecords)
	assert.Equal(t, int64(5), progress[2].ProcessedRecords)
	assert.Equal(t, time.Date(2024, 10, 4, 0, 0, 0, 0, time.UTC), progress[2].LastDate)

	totals, err := f.store.GetTotals(context.Background(), store.SalesFilter{
		Start: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), totals.Rows)
	assert.InDelta(t, 3050, totals.SalesValue, 1e-9)

	online, err := f.store.GetTotals(context.Background(), store.SalesFilter{
		Start:    time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC),
		Channels: []string{"online"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), online.Rows)
}

func TestLoader_LoadSales_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		processed int64
		errText   string
	}{
		{
			name:    "missing columns",
			input:   "date,channel,department\n2024-10-01,online,Home\n",
			errText: "missing columns: promo_flag, discount_pct, sales_value, margin_value, units",
		},
		{
			name:    "bad date",
			input:   "date,channel,department,promo_flag,discount_pct,sales_value,margin_value,units\n10/01/2024,online,Home,false,0,1,1,1\n",
			errText: "line 2: date",
		},
		{
			name: "bad number after a committed batch",
			input: "date,channel,department,promo_flag,discount_pct,sales_value,margin_value,units\n" +
				"2024-10-01,online,Home,false,0,1,1,1\n" +
				"2024-10-02,online,Home,false,0,1,1,1\n" +
				"2024-10-03,online,Home,false,0,lots,1,1\n",
			processed: 2,
			errText:   "line 4: sales_value",
		},
		{
			name:    "empty input",
			input:   "",
			errText: "read header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupFixture(t, 2)
			n, err := f.loader.LoadSales(context.Background(), strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.errText)
			assert.Equal(t, tt.processed, n)
		})
	}
}

const modelYAML = `
model_version: fy24-q3
coefficients:
  - department: Electronics
    channel: online
    band: 20-30
    uplift_sales_pct: 0.4
    uplift_units_pct: 0.5
    margin_impact_pct: -0.15
    confidence: 0.8
    sample_size: 120
  - department: Electronics
    channel: online
    band: 10-15
    uplift_sales_pct: 0.15
    uplift_units_pct: 0.2
    margin_impact_pct: -0.05
segments:
  - id: families
    name: Families
    share_of_customers: 0.3
    share_of_revenue: 0.35
    avg_basket_value: 80
    discount_sensitivity: high
targets:
  - month: 2024-10
    sales_target: 50000
    margin_pct_target: 0.25
    units_target: 900
  - month: 2024-11
    sales_target: 60000
    margin_pct_target: 0.24
`

func TestLoader_LoadModel(t *testing.T) {
	f := setupFixture(t, 10)

	stats, err := f.loader.LoadModel(context.Background(), strings.NewReader(modelYAML))
	require.NoError(t, err)
	assert.Equal(t, ModelStats{Coefficients: 2, Segments: 1, Targets: 2}, stats)

	coefficients, err := f.store.ListCoefficients(context.Background(), []string{"Electronics"}, []string{"online"})
	require.NoError(t, err)
	require.Len(t, coefficients, 2)
	for _, c := range coefficients {
		assert.Equal(t, "fy24-q3", c.ModelVersion)
	}

	segments, err := f.store.GetSegments(context.Background(), []string{"families"})
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, 0.3, segments[0].ShareOfCustomers)

	target, err := f.store.GetTarget(context.Background(), "2024-10")
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.Equal(t, 50000.0, target.SalesTarget)
	require.NotNil(t, target.UnitsTarget)
	assert.Equal(t, 900.0, *target.UnitsTarget)

	november, err := f.store.GetTarget(context.Background(), "2024-11")
	require.NoError(t, err)
	require.NotNil(t, november)
	assert.Nil(t, november.UnitsTarget)

	// reloading upserts instead of duplicating
	_, err = f.loader.LoadModel(context.Background(), strings.NewReader(modelYAML))
	require.NoError(t, err)
	coefficients, err = f.store.ListCoefficients(context.Background(), []string{"Electronics"}, nil)
	require.NoError(t, err)
	assert.Len(t, coefficients, 2)
	targets, err := f.store.ListTargets(context.Background())
	require.NoError(t, err)
	assert.Len(t, targets, 2)
}

func TestLoader_LoadModel_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		errText string
	}{
		{name: "unknown band", input: "coefficients:\n  - {department: Home, channel: online, band: 40-50}\n", errText: `unknown discount band "40-50"`},
		{name: "unknown field", input: "coefficent: []\n", errText: "decode model file"},
		{name: "segment share", input: "segments:\n  - {id: x, share_of_customers: 1.5}\n", errText: "share_of_customers"},
		{name: "target month", input: "targets:\n  - {month: 2024/10, sales_target: 1}\n", errText: "must be formatted YYYY-MM"},
		{name: "target margin", input: "targets:\n  - {month: 2024-10, sales_target: 1, margin_pct_target: 25}\n", errText: "margin_pct_target"},
		{name: "target after valid coefficient", input: "coefficients:\n  - {department: Home, channel: online, band: 0-5}\ntargets:\n  - {month: 2024-10, sales_target: -1}\n", errText: "sales_target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupFixture(t, 10)
			_, err := f.loader.LoadModel(context.Background(), strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.errText)

			coefficients, err := f.store.ListCoefficients(context.Background(), nil, nil)
			require.NoError(t, err)
			assert.Empty(t, coefficients)
		})
	}
}
