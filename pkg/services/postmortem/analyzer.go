package postmortem

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/models/store"
)

const (
	SourceProvided = "provided"
	SourceBaseline = "baseline"
)

var metricOrder = []string{
	domain.ActualSalesValue,
	domain.ActualMarginValue,
	domain.ActualEBIT,
	domain.ActualUnits,
}

type Settings struct {
	// MissThreshold is the relative forecast error that counts as a miss (default: 0.10)
	MissThreshold float64
	// Sentinel replaces division by a zero forecast and caps every ratio (default: 1e6)
	Sentinel float64
	// CannibalizationThreshold is the sales drop that flags an out-of-scope department (default: 0.05)
	CannibalizationThreshold float64
}

func DefaultSettings() Settings {
	return Settings{
		MissThreshold:            0.10,
		Sentinel:                 1e6,
		CannibalizationThreshold: 0.05,
	}
}

// Forecasts gives access to persisted scenarios and their latest KPI.
type Forecasts interface {
	GetScenario(ctx context.Context, id string) (domain.Scenario, error)
	LatestKPI(ctx context.Context, scenarioID string) (domain.KPI, error)
}

type BaselineSource interface {
	GetBreakdown(ctx context.Context, filter store.SalesFilter) ([]store.SalesSlice, error)
}

type Analyzer struct {
	forecasts Forecasts
	baseline  BaselineSource
	settings  Settings
}

func NewAnalyzer(forecasts Forecasts, baseline BaselineSource, settings Settings) *Analyzer {
	return &Analyzer{
		forecasts: forecasts,
		baseline:  baseline,
		settings:  settings,
	}
}

// Analyze compares the latest forecast of a scenario with what happened in
// period. Without actuals the baseline store's figures for the period are used.
func (a *Analyzer) Analyze(
	ctx context.Context,
	scenarioID string,
	actuals *domain.Actuals,
	period domain.DateRange,
) (domain.PostMortemReport, error) {
	if period.Start.IsZero() || period.End.IsZero() {
		return domain.PostMortemReport{}, domain.NewError(domain.KindInvalidDateRange, "period is required")
	}
	if !period.Valid() {
		return domain.PostMortemReport{}, domain.NewError(domain.KindInvalidDateRange, "period end %s is before start %s",
			period.End.Format(domain.DateLayout), period.Start.Format(domain.DateLayout))
	}

	s, err := a.forecasts.GetScenario(ctx, scenarioID)
	if err != nil {
		return domain.PostMortemReport{}, err
	}
	forecast, err := a.forecasts.LatestKPI(ctx, scenarioID)
	if err != nil {
		return domain.PostMortemReport{}, err
	}

	inScope := scopeOf(s)

	during, err := a.breakdown(ctx, period)
	if err != nil {
		return domain.PostMortemReport{}, err
	}
	before, err := a.breakdown(ctx, period.Before())
	if err != nil {
		return domain.PostMortemReport{}, err
	}
	after, err := a.breakdown(ctx, period.After())
	if err != nil {
		return domain.PostMortemReport{}, err
	}

	report := domain.PostMortemReport{
		ScenarioID:   scenarioID,
		Period:       period,
		ForecastKPI:  forecast,
		ActualSource: SourceProvided,
	}

	var observed []string
	if isEmpty(actuals) {
		totals := sum(during, inScope)
		report.ActualSource = SourceBaseline
		report.ActualKPI = domain.Actuals{
			SalesValue:  totals.SalesValue,
			MarginValue: totals.MarginValue,
			Units:       totals.Units,
		}
		if totals.Rows == 0 {
			observed = append(observed, fmt.Sprintf("no sales recorded for the scenario scope between %s and %s",
				period.Start.Format(domain.DateLayout), period.End.Format(domain.DateLayout)))
		}
	} else {
		report.ActualKPI = *actuals
	}
	if report.ActualKPI.EBIT == nil {
		ebit := report.ActualKPI.MarginValue - (forecast.TotalMargin - forecast.TotalEBIT)
		report.ActualKPI.EBIT = &ebit
	}

	report.VsForecast = a.vsForecast(forecast, report.ActualKPI)
	report.Insights = append(observed, a.insights(forecast, report.ActualKPI, report.VsForecast)...)
	report.PostPromoDip = postPromoDip(sum(before, inScope), sum(after, inScope))
	report.CannibalizationSignals = a.cannibalization(during, before, s.Departments)
	return report, nil
}

func (a *Analyzer) breakdown(ctx context.Context, r domain.DateRange) ([]store.SalesSlice, error) {
	rows, err := a.baseline.GetBreakdown(ctx, store.SalesFilter{Start: r.Start, End: r.End})
	if err != nil {
		return nil, fmt.Errorf("load sales %s..%s: %w",
			r.Start.Format(domain.DateLayout), r.End.Format(domain.DateLayout), err)
	}
	return rows, nil
}

func (a *Analyzer) vsForecast(forecast domain.KPI, actual domain.Actuals) map[string]float64 {
	return map[string]float64{
		domain.ActualSalesValue:  a.ratio(actual.SalesValue, forecast.TotalSales),
		domain.ActualMarginValue: a.ratio(actual.MarginValue, forecast.TotalMargin),
		domain.ActualEBIT:        a.ratio(*actual.EBIT, forecast.TotalEBIT),
		domain.ActualUnits:       a.ratio(actual.Units, forecast.TotalUnits),
	}
}

// ratio is (actual-forecast)/forecast capped to ±Sentinel; x/0 is ±Sentinel and 0/0 is 0.
func (a *Analyzer) ratio(actual, forecast float64) float64 {
	if forecast == 0 {
		switch {
		case actual > 0:
			return a.settings.Sentinel
		case actual < 0:
			return -a.settings.Sentinel
		default:
			return 0
		}
	}
	r := (actual - forecast) / forecast
	return math.Max(-a.settings.Sentinel, math.Min(a.settings.Sentinel, r))
}

func (a *Analyzer) insights(forecast domain.KPI, actual domain.Actuals, vs map[string]float64) []string {
	var out []string
	missed := map[string]bool{}
	for _, metric := range metricOrder {
		e := vs[metric]
		if math.Abs(e) <= a.settings.MissThreshold {
			continue
		}
		missed[metric] = true
		direction := "above"
		if e < 0 {
			direction = "below"
		}
		out = append(out, fmt.Sprintf("accuracy miss: actual %s was %.1f%% %s forecast", metric, math.Abs(e)*100, direction))
	}

	if actual.SalesValue > forecast.TotalSales && missed[domain.ActualMarginValue] && vs[domain.ActualMarginValue] < 0 {
		out = append(out, "sales beat forecast but margin missed: discount depth likely cost more margin than modelled")
	}
	if len(missed) == 0 {
		out = append(out, fmt.Sprintf("forecast within tolerance: every metric within %.0f%% of actuals", a.settings.MissThreshold*100))
	}
	return out
}

func (a *Analyzer) cannibalization(during, before []store.SalesSlice, scoped []string) []domain.CannibalizationSignal {
	now := byDepartment(during)
	prev := byDepartment(before)

	var signals []domain.CannibalizationSignal
	for dept, base := range prev {
		if slices.Contains(scoped, dept) || base <= 0 {
			continue
		}
		change := (now[dept] - base) / base
		if change < -a.settings.CannibalizationThreshold {
			signals = append(signals, domain.CannibalizationSignal{Department: dept, ChangePct: change})
		}
	}
	sort.Slice(signals, func(i, j int) bool {
		return signals[i].Department < signals[j].Department
	})
	return signals
}

func postPromoDip(before, after store.SalesTotals) *float64 {
	if before.Rows == 0 || after.Rows == 0 || before.SalesValue == 0 {
		return nil
	}
	dip := (after.SalesValue - before.SalesValue) / before.SalesValue
	return &dip
}

type scope map[[2]string]bool

func scopeOf(s domain.Scenario) scope {
	out := scope{}
	for _, m := range s.Mechanics {
		out[[2]string{m.Department, m.Channel}] = true
	}
	return out
}

func sum(breakdown []store.SalesSlice, in scope) store.SalesTotals {
	var totals store.SalesTotals
	for _, sl := range breakdown {
		if !in[[2]string{sl.Department, sl.Channel}] {
			continue
		}
		totals.Rows += sl.Rows
		totals.SalesValue += sl.SalesValue
		totals.MarginValue += sl.MarginValue
		totals.Units += sl.Units
	}
	return totals
}

func byDepartment(breakdown []store.SalesSlice) map[string]float64 {
	out := map[string]float64{}
	for _, sl := range breakdown {
		out[sl.Department] += sl.SalesValue
	}
	return out
}

func isEmpty(a *domain.Actuals) bool {
	return a == nil || (a.SalesValue == 0 && a.MarginValue == 0 && a.Units == 0 && a.EBIT == nil)
}
