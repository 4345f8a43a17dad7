package data

import (
	"context"
	"fmt"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/models/store"
)

// TargetOverride replaces the stored target fields it sets.
type TargetOverride struct {
	SalesTarget     *float64
	MarginPctTarget *float64
	UnitsTarget     *float64
}

func (o TargetOverride) apply(month string, stored *store.Target) (domain.Target, bool) {
	if stored == nil && o.SalesTarget == nil {
		return domain.Target{}, false
	}
	t := domain.Target{Month: month}
	if stored != nil {
		t = adapters.MapTargetStoreToDomain(*stored)
	}
	if o.SalesTarget != nil {
		t.SalesTarget = *o.SalesTarget
	}
	if o.MarginPctTarget != nil {
		t.MarginPctTarget = *o.MarginPctTarget
	}
	if o.UnitsTarget != nil {
		units := *o.UnitsTarget
		t.UnitsTarget = &units
	}
	return t, true
}

// Gaps compares the target of month with the month's baseline facts. The
// override takes precedence over the stored target; without either the
// month has no target and BaselineNotFound is returned.
func (s *Service) Gaps(ctx context.Context, month string, override TargetOverride) (domain.GapAnalysis, error) {
	period, err := adapters.MonthRange(month)
	if err != nil {
		return domain.GapAnalysis{}, err
	}
	key := period.Start.Format(domain.MonthLayout)

	stored, err := s.baseline.GetTarget(ctx, key)
	if err != nil {
		return domain.GapAnalysis{}, fmt.Errorf("get target: %w", err)
	}
	target, ok := override.apply(key, stored)
	if !ok {
		return domain.GapAnalysis{}, domain.NewError(domain.KindBaselineNotFound, "no target stored for month %s", key)
	}
	if err := validTarget(target); err != nil {
		return domain.GapAnalysis{}, err
	}

	totals, err := s.baseline.GetTotals(ctx, store.SalesFilter{Start: period.Start, End: period.End})
	if err != nil {
		return domain.GapAnalysis{}, fmt.Errorf("baseline totals: %w", err)
	}

	gap := domain.GapAnalysis{
		Month:          key,
		Target:         target,
		BaselineSales:  totals.SalesValue,
		BaselineMargin: totals.MarginValue,
		BaselineUnits:  totals.Units,
		SalesGap:       target.SalesTarget - totals.SalesValue,
		MarginGap:      target.MarginTarget() - totals.MarginValue,
	}
	gap.GapPercentage = map[string]float64{
		domain.GapSales:  gapRatio(gap.SalesGap, target.SalesTarget),
		domain.GapMargin: gapRatio(gap.MarginGap, target.MarginTarget()),
	}
	if target.UnitsTarget != nil {
		units := *target.UnitsTarget - totals.Units
		gap.UnitsGap = &units
		gap.GapPercentage[domain.GapUnits] = gapRatio(units, *target.UnitsTarget)
	}
	return gap, nil
}

func validTarget(t domain.Target) error {
	if t.SalesTarget < 0 {
		return domain.NewError(domain.KindInvalidInput, "sales_target %v must not be negative", t.SalesTarget)
	}
	if t.MarginPctTarget < 0 || t.MarginPctTarget > 1 {
		return domain.NewError(domain.KindInvalidInput, "margin_pct_target %v must be within [0, 1]", t.MarginPctTarget)
	}
	if t.UnitsTarget != nil && *t.UnitsTarget < 0 {
		return domain.NewError(domain.KindInvalidInput, "units_target %v must not be negative", *t.UnitsTarget)
	}
	return nil
}

// gapRatio divides by one when the target is zero.
func gapRatio(gap, target float64) float64 {
	if target == 0 {
		return gap
	}
	return gap / target
}
