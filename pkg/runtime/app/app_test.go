package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/services/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = `date,channel,department,promo_flag,discount_pct,sales_value,margin_value,units
2024-10-01,online,Electronics,false,0,1000,250,10
2024-10-02,offline,Electronics,false,0,2000,400,20
2024-10-03,online,Home,false,0,500,150,5
`

func TestNew_WiresInMemoryPipeline(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Store.DuckDBPath = ":memory:"
	cfg.Store.Threads = 1

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	ctx := logger.WithContext(context.Background())

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, a.Close())
	})
	assert.Contains(t, logs.String(), "pipeline wired")

	n, err := a.Loader.LoadSales(ctx, strings.NewReader(salesCSV))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	october := domain.DateRange{
		Start: time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.October, 31, 0, 0, 0, 0, time.UTC),
	}

	bundle, err := a.Scenarios.Create(ctx, domain.Brief{
		Month:            "2024-10",
		PromoDateRange:   october,
		FocusDepartments: []string{"Electronics"},
		Constraints:      domain.DefaultConstraints(),
	}, domain.ScenarioTypeConservative, domain.BuildParameters{})
	require.NoError(t, err)
	require.NotNil(t, bundle.KPI)
	assert.Greater(t, bundle.KPI.TotalSales, 3000.0)

	stored, err := a.Scenarios.Get(ctx, bundle.Scenario.ID)
	require.NoError(t, err)
	assert.Equal(t, bundle.Scenario.ID, stored.Scenario.ID)

	page, err := a.Data.Segments(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)

	months, err := a.Data.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-10"}, months)

	_, err = a.Scenarios.AnalyzePostMortem(ctx, bundle.Scenario.ID, &domain.Actuals{
		SalesValue:  bundle.KPI.TotalSales * 0.8,
		MarginValue: bundle.KPI.TotalMargin,
	}, october)
	require.NoError(t, err)

	learned, err := a.Learner.Learn(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, learned.Reports)
	assert.InDelta(t, 0.2, learned.AverageError, 1e-9)

	curves, err := a.Data.UpliftModel(ctx, "Electronics", "")
	require.NoError(t, err)
	require.NotEmpty(t, curves)
	for _, curve := range curves {
		assert.Equal(t, "default-1-learned", curve.Bands[domain.Band10To15].ModelVersion)
		assert.InDelta(t, 0.12*0.98, curve.Bands[domain.Band10To15].UpliftSalesPct, 1e-9)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{level: "debug", expected: zerolog.DebugLevel},
		{level: "WARN", expected: zerolog.WarnLevel},
		{level: "", expected: zerolog.InfoLevel},
		{level: "chatty", expected: zerolog.InfoLevel},
	}

	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			logger := NewLogger(config.Log{Level: tc.level}, &bytes.Buffer{})
			assert.Equal(t, tc.expected, logger.GetLevel())
		})
	}
}
