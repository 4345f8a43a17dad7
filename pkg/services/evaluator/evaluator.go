package evaluator

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/models/store"
)

// BaselineSource is the read side of the baseline store used for evaluation.
type BaselineSource interface {
	GetBreakdown(ctx context.Context, filter store.SalesFilter) ([]store.SalesSlice, error)
	ListCoefficients(ctx context.Context, departments, channels []string) ([]store.UpliftCoefficient, error)
	GetSegments(ctx context.Context, ids []string) ([]store.Segment, error)
}

type Evaluator struct {
	baseline BaselineSource
}

func NewEvaluator(baseline BaselineSource) *Evaluator {
	return &Evaluator{baseline: baseline}
}

type sliceKey struct {
	department string
	channel    string
}

// Evaluate computes the scenario's KPI against the baseline for its date range.
//
// Per mechanic, with u the sales uplift, v the units uplift and i the margin
// impact of the discount band:
//
//	sales  = base_sales·(1+u)
//	units  = base_units·(1+v)
//	margin = sales·(base_margin/base_sales + i), never below -sales
//	ebit   = margin - discount_pct/100·base_sales
//
// Baseline EBIT equals baseline margin. The result depends only on the
// scenario and the store contents.
func (e *Evaluator) Evaluate(ctx context.Context, s domain.Scenario) (domain.KPI, error) {
	if err := checkScenario(s); err != nil {
		return domain.KPI{}, err
	}

	kpi := domain.KPI{
		ScenarioID:   s.ID,
		ByDepartment: map[string]domain.Metrics{},
		ByChannel:    map[string]domain.Metrics{},
		VsBaseline: map[string]float64{
			domain.MetricSales:  0,
			domain.MetricMargin: 0,
			domain.MetricEBIT:   0,
			domain.MetricUnits:  0,
		},
	}
	if len(s.Mechanics) == 0 {
		kpi.Caveats = []string{"scenario has no mechanics"}
		return kpi, nil
	}

	departments, channels, segmentIDs := scope(s.Mechanics)

	breakdown, err := e.baseline.GetBreakdown(ctx, store.SalesFilter{
		Start:       s.DateRange.Start,
		End:         s.DateRange.End,
		Departments: departments,
		Channels:    channels,
	})
	if err != nil {
		return domain.KPI{}, fmt.Errorf("load baseline: %w", err)
	}
	baselines := make(map[sliceKey]domain.Baseline, len(breakdown))
	for _, sl := range breakdown {
		if sl.Rows == 0 {
			continue
		}
		baselines[sliceKey{sl.Department, sl.Channel}] = domain.Baseline{
			Sales:  sl.SalesValue,
			Margin: sl.MarginValue,
			Units:  sl.Units,
		}
	}

	curves, err := e.loadCurves(ctx, departments, channels)
	if err != nil {
		return domain.KPI{}, err
	}

	shares, err := e.loadShares(ctx, segmentIDs)
	if err != nil {
		return domain.KPI{}, err
	}
	if len(segmentIDs) > 0 {
		kpi.BySegment = map[string]domain.Metrics{}
	}

	var base domain.Baseline
	found := 0
	for _, m := range s.Mechanics {
		key := sliceKey{m.Department, m.Channel}
		b, ok := baselines[key]
		if !ok {
			kpi.Caveats = append(kpi.Caveats, fmt.Sprintf("no baseline sales for %s/%s between %s and %s",
				m.Department, m.Channel,
				s.DateRange.Start.Format(domain.DateLayout), s.DateRange.End.Format(domain.DateLayout)))
			kpi.ByDepartment[m.Department] = kpi.ByDepartment[m.Department].Add(domain.Metrics{})
			kpi.ByChannel[m.Channel] = kpi.ByChannel[m.Channel].Add(domain.Metrics{})
			continue
		}
		found++
		base = base.Add(b)

		curve, ok := curves[key]
		if !ok {
			curve = domain.DefaultCoefficientCurve().Monotone()
		}
		out, ebit := apply(b, curve[domain.BandFor(m.DiscountPct)], m.DiscountPct)

		kpi.TotalSales += out.Sales
		kpi.TotalMargin += out.Margin
		kpi.TotalUnits += out.Units
		kpi.TotalEBIT += ebit
		kpi.ByDepartment[m.Department] = kpi.ByDepartment[m.Department].Add(out)
		kpi.ByChannel[m.Channel] = kpi.ByChannel[m.Channel].Add(out)

		if len(m.Segments) > 0 {
			for i, w := range splitWeights(m.Segments, shares) {
				seg := m.Segments[i]
				kpi.BySegment[seg] = kpi.BySegment[seg].Add(domain.Metrics{
					Sales:  out.Sales * w,
					Margin: out.Margin * w,
					Units:  out.Units * w,
				})
			}
		}
	}

	if found == 0 {
		return domain.KPI{}, domain.NewError(domain.KindBaselineNotFound,
			"no baseline sales for any department/channel of scenario %q between %s and %s",
			s.ID, s.DateRange.Start.Format(domain.DateLayout), s.DateRange.End.Format(domain.DateLayout))
	}

	kpi.VsBaseline = map[string]float64{
		domain.MetricSales:  kpi.TotalSales - base.Sales,
		domain.MetricMargin: kpi.TotalMargin - base.Margin,
		domain.MetricEBIT:   kpi.TotalEBIT - base.Margin,
		domain.MetricUnits:  kpi.TotalUnits - base.Units,
	}

	if !kpi.Finite() {
		return domain.KPI{}, domain.NewError(domain.KindComputationError, "non-finite KPI for scenario %q", s.ID)
	}
	return kpi, nil
}

// apply returns the uplifted metrics and EBIT of one mechanic. Margin is
// written as base_margin·(1+u) + sales·i, which equals sales·(base_pct+i)
// and keeps an undiscounted mechanic exactly at its baseline.
func apply(b domain.Baseline, c domain.Coefficient, discountPct float64) (domain.Metrics, float64) {
	sales := b.Sales * (1 + c.UpliftSalesPct)
	units := b.Units * (1 + c.UpliftUnitsPct)
	margin := b.Margin*(1+c.UpliftSalesPct) + sales*c.MarginImpactPct
	if sales >= 0 && margin < -sales {
		margin = -sales
	}
	cost := discountPct / 100 * b.Sales
	return domain.Metrics{Sales: sales, Margin: margin, Units: units}, margin - cost
}

func (e *Evaluator) loadCurves(ctx context.Context, departments, channels []string) (map[sliceKey]domain.CoefficientCurve, error) {
	rows, err := e.baseline.ListCoefficients(ctx, departments, channels)
	if err != nil {
		return nil, fmt.Errorf("load uplift coefficients: %w", err)
	}
	raw := map[sliceKey]domain.CoefficientCurve{}
	for _, row := range rows {
		c := adapters.MapUpliftCoefficientStoreToDomain(row)
		if c.Band.Index() < 0 {
			continue
		}
		key := sliceKey{c.Department, c.Channel}
		if raw[key] == nil {
			raw[key] = domain.CoefficientCurve{}
		}
		raw[key][c.Band] = c.Coefficient
	}
	curves := make(map[sliceKey]domain.CoefficientCurve, len(raw))
	for key, curve := range raw {
		curves[key] = curve.Monotone()
	}
	return curves, nil
}

func (e *Evaluator) loadShares(ctx context.Context, ids []string) (map[string]float64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := e.baseline.GetSegments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	shares := make(map[string]float64, len(rows))
	for _, row := range rows {
		shares[row.SegmentID] = row.ShareOfRevenue
	}
	return shares, nil
}

// splitWeights returns revenue-share weights for the segments, or an equal
// split when any segment is unknown or the shares sum to zero.
func splitWeights(segments []string, shares map[string]float64) []float64 {
	weights := make([]float64, len(segments))
	total := 0.0
	known := true
	for i, seg := range segments {
		share, ok := shares[seg]
		if !ok || share < 0 {
			known = false
			break
		}
		weights[i] = share
		total += share
	}
	if !known || total == 0 {
		for i := range weights {
			weights[i] = 1 / float64(len(segments))
		}
		return weights
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

func scope(mechanics []domain.Mechanic) (departments, channels, segments []string) {
	d, c, s := map[string]struct{}{}, map[string]struct{}{}, map[string]struct{}{}
	for _, m := range mechanics {
		d[m.Department] = struct{}{}
		c[m.Channel] = struct{}{}
		for _, seg := range m.Segments {
			s[seg] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(d)), slices.Sorted(maps.Keys(c)), slices.Sorted(maps.Keys(s))
}

func checkScenario(s domain.Scenario) error {
	if s.DateRange.Start.IsZero() || !s.DateRange.Valid() {
		return domain.NewError(domain.KindInvalidDateRange, "scenario %q has an invalid date range", s.ID)
	}
	for i, m := range s.Mechanics {
		if m.Department == "" || m.Channel == "" {
			return domain.NewError(domain.KindInvalidInput, "mechanic %d needs a department and a channel", i)
		}
		if math.IsNaN(m.DiscountPct) || math.IsInf(m.DiscountPct, 0) || m.DiscountPct < 0 || m.DiscountPct > 100 {
			return domain.NewError(domain.KindInvalidDiscount, "mechanic %d discount_pct %v is outside [0, 100]", i, m.DiscountPct)
		}
	}
	return nil
}
