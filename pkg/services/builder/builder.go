package builder

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/google/uuid"
)

// conservativeCapPct is the discount ceiling, in percent points, for conservative plans.
const conservativeCapPct = 10.0

type DepartmentSource interface {
	ListDepartments(ctx context.Context) ([]string, error)
}

// Builder turns briefs into scenarios. The only state it keeps is the
// counter behind generated "Scenario <n>" labels.
type Builder struct {
	departments DepartmentSource
	counter     atomic.Int64
}

func NewBuilder(departments DepartmentSource) *Builder {
	return &Builder{departments: departments}
}

// KnownDepartments lists departments that appear in sales facts or uplift coefficients.
func (b *Builder) KnownDepartments(ctx context.Context) ([]string, error) {
	departments, err := b.departments.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// Build composes a scenario and gives it a random id and, when the caller
// supplied none, a generated label.
func (b *Builder) Build(
	ctx context.Context,
	brief domain.Brief,
	scenarioType domain.ScenarioType,
	params domain.BuildParameters,
) (domain.Scenario, error) {
	known, err := b.KnownDepartments(ctx)
	if err != nil {
		return domain.Scenario{}, err
	}

	s, err := Compose(brief, scenarioType, params, known)
	if err != nil {
		return domain.Scenario{}, err
	}
	s.ID = uuid.NewString()
	if s.Label == "" {
		s.Label = fmt.Sprintf("Scenario %d", b.counter.Add(1))
	}
	return s, nil
}

// Compose resolves scope and discounts for a brief without assigning an
// identity. It is deterministic for identical inputs.
func Compose(
	brief domain.Brief,
	scenarioType domain.ScenarioType,
	params domain.BuildParameters,
	known []string,
) (domain.Scenario, error) {
	if scenarioType == "" {
		scenarioType = domain.ScenarioTypeBalanced
	}
	if !scenarioType.Valid() {
		return domain.Scenario{}, domain.NewError(domain.KindInvalidInput, "unknown scenario type %q", scenarioType)
	}
	if err := checkBrief(brief); err != nil {
		return domain.Scenario{}, err
	}
	if err := checkParameters(params); err != nil {
		return domain.Scenario{}, err
	}

	departments, err := resolveDepartments(brief.FocusDepartments, known)
	if err != nil {
		return domain.Scenario{}, err
	}
	channels := resolveChannels(brief.Channels, params.Channels)

	var notes []string
	discounts := make(map[string]float64, len(departments))
	for _, dept := range departments {
		pct, note := resolveDiscount(dept, brief.Constraints, scenarioType, params)
		discounts[dept] = pct
		if note != "" {
			notes = append(notes, note)
		}
	}

	mechanics := make([]domain.Mechanic, 0, len(departments)*len(channels))
	for _, dept := range departments {
		for _, ch := range channels {
			mechanics = append(mechanics, domain.Mechanic{
				Department:  dept,
				Channel:     ch,
				DiscountPct: discounts[dept],
				Segments:    slices.Clone(params.Segments),
			})
		}
	}

	label := params.Label
	if label == "" {
		label = params.Name
	}

	return domain.Scenario{
		Label:              label,
		DateRange:          brief.PromoDateRange,
		Mechanics:          mechanics,
		Type:               scenarioType,
		Departments:        departments,
		Channels:           channels,
		DiscountPercentage: uniformDiscount(mechanics),
		Constraints: domain.Constraints{
			MaxDiscount:         brief.Constraints.MaxDiscount,
			MinMargin:           brief.Constraints.MinMargin,
			DepartmentDiscounts: maps.Clone(brief.Constraints.DepartmentDiscounts),
		},
		FocusDepartments: slices.Clone(brief.FocusDepartments),
		Notes:            notes,
	}, nil
}

func checkBrief(brief domain.Brief) error {
	if brief.Month != "" {
		if _, err := time.Parse("2006-01", brief.Month); err != nil {
			return domain.WrapError(domain.KindInvalidInput, err, "month %q is not YYYY-MM", brief.Month)
		}
	}
	r := brief.PromoDateRange
	if r.Start.IsZero() || r.End.IsZero() {
		return domain.NewError(domain.KindInvalidDateRange, "promo date range is required")
	}
	if !r.Valid() {
		return domain.NewError(domain.KindInvalidDateRange, "end %s is before start %s",
			r.End.Format(domain.DateLayout), r.Start.Format(domain.DateLayout))
	}

	c := brief.Constraints
	if !isFraction(c.MaxDiscount) {
		return domain.NewError(domain.KindInvalidInput, "max_discount %v must be within [0, 1]", c.MaxDiscount)
	}
	if !isFraction(c.MinMargin) {
		return domain.NewError(domain.KindInvalidInput, "min_margin %v must be within [0, 1]", c.MinMargin)
	}
	for dept, pct := range c.DepartmentDiscounts {
		if !isFinite(pct) {
			return domain.NewError(domain.KindInvalidDiscount, "department discount for %s is not a number", dept)
		}
	}
	return nil
}

func checkParameters(params domain.BuildParameters) error {
	if params.DiscountPct != nil && !isFinite(*params.DiscountPct) {
		return domain.NewError(domain.KindInvalidDiscount, "discount_pct is not a number")
	}
	for dept, pct := range params.DepartmentDiscounts {
		if !isFinite(pct) {
			return domain.NewError(domain.KindInvalidDiscount, "department discount for %s is not a number", dept)
		}
	}
	return nil
}

func resolveDepartments(focus, known []string) ([]string, error) {
	if len(focus) == 0 {
		return dedupeSorted(known), nil
	}

	var unknown []string
	for _, dept := range focus {
		if !slices.Contains(known, dept) {
			unknown = append(unknown, dept)
		}
	}
	if len(unknown) > 0 {
		return nil, domain.NewError(domain.KindInvalidDepartment, "unknown departments: %s", strings.Join(dedupeSorted(unknown), ", "))
	}
	return dedupeSorted(focus), nil
}

func resolveChannels(fromBrief, fromParams []string) []string {
	src := domain.DefaultChannels
	switch {
	case len(fromBrief) > 0:
		src = fromBrief
	case len(fromParams) > 0:
		src = fromParams
	}

	channels := make([]string, 0, len(src))
	for _, ch := range src {
		ch = strings.ToLower(strings.TrimSpace(ch))
		if ch != "" && !slices.Contains(channels, ch) {
			channels = append(channels, ch)
		}
	}
	return channels
}

// resolveDiscount picks the department's discount in percent points. Explicit
// values are clamped into [0, max_discount·100] and the clamp is reported as a note.
func resolveDiscount(
	dept string,
	c domain.Constraints,
	scenarioType domain.ScenarioType,
	params domain.BuildParameters,
) (float64, string) {
	ceiling := roundPct(c.MaxDiscount * 100)

	explicit, ok := params.DepartmentDiscounts[dept]
	if !ok {
		explicit, ok = c.DepartmentDiscounts[dept]
	}
	if !ok && params.DiscountPct != nil {
		explicit, ok = *params.DiscountPct, true
	}
	if !ok {
		return typeDiscount(scenarioType, ceiling), ""
	}

	clamped := roundPct(math.Min(math.Max(explicit, 0), ceiling))
	if clamped != roundPct(explicit) {
		return clamped, fmt.Sprintf("discount for %s clamped from %g to %g (max_discount %g)", dept, explicit, clamped, c.MaxDiscount)
	}
	return clamped, ""
}

func typeDiscount(scenarioType domain.ScenarioType, ceiling float64) float64 {
	aggressive := ceiling
	conservative := math.Min(ceiling, conservativeCapPct)
	switch scenarioType {
	case domain.ScenarioTypeAggressive:
		return aggressive
	case domain.ScenarioTypeConservative:
		return conservative
	default:
		return roundPct((aggressive + conservative) / 2)
	}
}

func uniformDiscount(mechanics []domain.Mechanic) *float64 {
	if len(mechanics) == 0 {
		return nil
	}
	first := mechanics[0].DiscountPct
	for _, m := range mechanics[1:] {
		if m.DiscountPct != first {
			return nil
		}
	}
	fraction := roundPct(first) / 100
	return &fraction
}

// roundPct trims binary noise such as 0.3*100 = 30.000000000000004.
func roundPct(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

func dedupeSorted(ss []string) []string {
	out := slices.Clone(ss)
	slices.Sort(out)
	return slices.Compact(out)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isFraction(v float64) bool {
	return isFinite(v) && v >= 0 && v <= 1
}
