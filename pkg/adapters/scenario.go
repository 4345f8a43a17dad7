package adapters

import (
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
)

var monthToken = regexp.MustCompile(`\b(\d{4})-(0[1-9]|1[0-2])\b`)

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, domain.WrapError(domain.KindInvalidDateRange, err, "%s %q is not a YYYY-MM-DD date", field, value)
	}
	return t, nil
}

// MapDateRangeApiToDomain accepts start/end or the start_date/end_date aliases.
func MapDateRangeApiToDomain(r api.DateRange) (domain.DateRange, error) {
	start, end := r.Start, r.End
	if start == "" {
		start = r.StartDate
	}
	if end == "" {
		end = r.EndDate
	}
	s, err := parseDate("start", start)
	if err != nil {
		return domain.DateRange{}, err
	}
	e, err := parseDate("end", end)
	if err != nil {
		return domain.DateRange{}, err
	}
	res := domain.DateRange{Start: s, End: e}
	if !res.Valid() {
		return domain.DateRange{}, domain.NewError(domain.KindInvalidDateRange, "end %s is before start %s", end, start)
	}
	return res, nil
}

func MapDateRangeDomainToApi(r domain.DateRange) api.DateRange {
	return api.DateRange{
		Start: r.Start.Format(domain.DateLayout),
		End:   r.End.Format(domain.DateLayout),
	}
}

// MonthRange returns the whole calendar month named by a YYYY-MM string.
func MonthRange(month string) (domain.DateRange, error) {
	start, err := time.Parse(domain.MonthLayout, strings.TrimSpace(month))
	if err != nil {
		return domain.DateRange{}, domain.WrapError(domain.KindInvalidInput, err, "month %q is not YYYY-MM", month)
	}
	return domain.DateRange{Start: start, End: start.AddDate(0, 1, -1)}, nil
}

func MapConstraintsApiToDomain(c *api.Constraints) domain.Constraints {
	res := domain.DefaultConstraints()
	if c == nil {
		return res
	}
	if c.MaxDiscount != nil {
		res.MaxDiscount = *c.MaxDiscount
	}
	if c.MinMargin != nil {
		res.MinMargin = *c.MinMargin
	}
	res.DepartmentDiscounts = maps.Clone(c.DepartmentDiscounts)
	return res
}

// MergeConstraintsApiIntoDomain overrides the fields of base that c sets.
func MergeConstraintsApiIntoDomain(base domain.Constraints, c *api.Constraints) domain.Constraints {
	if c == nil {
		return base
	}
	res := base
	if c.MaxDiscount != nil {
		res.MaxDiscount = *c.MaxDiscount
	}
	if c.MinMargin != nil {
		res.MinMargin = *c.MinMargin
	}
	if c.DepartmentDiscounts != nil {
		res.DepartmentDiscounts = maps.Clone(c.DepartmentDiscounts)
	} else {
		res.DepartmentDiscounts = maps.Clone(base.DepartmentDiscounts)
	}
	return res
}

func MapConstraintsDomainToApi(c domain.Constraints) api.Constraints {
	maxDiscount, minMargin := c.MaxDiscount, c.MinMargin
	return api.Constraints{
		MaxDiscount:         &maxDiscount,
		MinMargin:           &minMargin,
		DepartmentDiscounts: maps.Clone(c.DepartmentDiscounts),
	}
}

func MapObjectiveWeightsApiToDomain(w *api.ObjectiveWeights) *domain.ObjectiveWeights {
	if w == nil {
		return nil
	}
	return &domain.ObjectiveWeights{Sales: w.Sales, Margin: w.Margin, EBIT: w.EBIT}
}

// mapObjectives keeps the free-form objectives as notes and lifts a
// {"weights": {...}} entry into typed weights when it is well formed.
func mapObjectives(objectives map[string]any) domain.Objectives {
	res := domain.Objectives{Notes: maps.Clone(objectives)}
	raw, ok := objectives["weights"].(map[string]any)
	if !ok {
		return res
	}
	var w domain.ObjectiveWeights
	for key, target := range map[string]*float64{"sales": &w.Sales, "margin": &w.Margin, "ebit": &w.EBIT} {
		if v, ok := raw[key].(float64); ok {
			*target = v
		}
	}
	res.Weights = &w
	return res
}

// MapBriefApiToDomain resolves the month/date-range pair: a missing range
// covers the whole month and a missing month is taken from the range start.
func MapBriefApiToDomain(b api.Brief) (domain.Brief, error) {
	res := domain.Brief{
		Month:            strings.TrimSpace(b.Month),
		FocusDepartments: slices.Clone(b.FocusDepartments),
		Channels:         slices.Clone(b.Channels),
		Objectives:       mapObjectives(b.Objectives),
		Constraints:      MapConstraintsApiToDomain(b.Constraints),
	}

	hasRange := b.PromoDateRange != nil && (b.PromoDateRange.Start != "" || b.PromoDateRange.StartDate != "" ||
		b.PromoDateRange.End != "" || b.PromoDateRange.EndDate != "")

	if res.Month != "" {
		if _, err := MonthRange(res.Month); err != nil {
			return domain.Brief{}, err
		}
	}

	switch {
	case hasRange:
		r, err := MapDateRangeApiToDomain(*b.PromoDateRange)
		if err != nil {
			return domain.Brief{}, err
		}
		res.PromoDateRange = r
		if res.Month == "" {
			res.Month = r.Start.Format(domain.MonthLayout)
		}
	case res.Month != "":
		r, _ := MonthRange(res.Month)
		res.PromoDateRange = r
	default:
		return domain.Brief{}, domain.NewError(domain.KindInvalidInput, "brief needs a month or a promo_date_range")
	}
	return res, nil
}

// ParseBriefText builds a brief from free text. The first YYYY-MM token
// names the month; the text itself is kept as an opaque note.
func ParseBriefText(text string) (domain.Brief, error) {
	token := monthToken.FindString(text)
	if token == "" {
		return domain.Brief{}, domain.NewError(domain.KindInvalidInput, "brief text has no YYYY-MM month")
	}
	r, err := MonthRange(token)
	if err != nil {
		return domain.Brief{}, err
	}
	return domain.Brief{
		Month:          token,
		PromoDateRange: r,
		Objectives:     domain.Objectives{Notes: map[string]any{"text": text}},
		Constraints:    domain.DefaultConstraints(),
	}, nil
}

func MapBuildParametersApiToDomain(p *api.BuildParameters) domain.BuildParameters {
	if p == nil {
		return domain.BuildParameters{}
	}
	var discount *float64
	if p.DiscountPct != nil {
		v := *p.DiscountPct
		discount = &v
	}
	return domain.BuildParameters{
		Label:               p.Label,
		Name:                p.Name,
		DepartmentDiscounts: maps.Clone(p.DepartmentDiscounts),
		DiscountPct:         discount,
		Channels:            slices.Clone(p.Channels),
		Segments:            slices.Clone(p.Segments),
	}
}

func MapMechanicDomainToApi(m domain.Mechanic) api.Mechanic {
	return api.Mechanic{
		Department:  m.Department,
		Channel:     m.Channel,
		DiscountPct: m.DiscountPct,
		Segments:    slices.Clone(m.Segments),
	}
}

func MapScenarioDomainToApi(s domain.Scenario) api.Scenario {
	res := api.Scenario{
		ID:               s.ID,
		Label:            s.Label,
		DateRange:        MapDateRangeDomainToApi(s.DateRange),
		Mechanics:        make([]api.Mechanic, 0, len(s.Mechanics)),
		ScenarioType:     string(s.Type),
		Departments:      nonNil(s.Departments),
		Channels:         nonNil(s.Channels),
		Constraints:      MapConstraintsDomainToApi(s.Constraints),
		FocusDepartments: slices.Clone(s.FocusDepartments),
		Notes:            slices.Clone(s.Notes),
	}
	if s.DiscountPercentage != nil {
		v := *s.DiscountPercentage
		res.DiscountPercentage = &v
	}
	for _, m := range s.Mechanics {
		res.Mechanics = append(res.Mechanics, MapMechanicDomainToApi(m))
	}
	return res
}

// MapScenarioApiToDomain accepts caller-supplied scenarios. Departments and
// channels missing from the payload are derived from the mechanics.
func MapScenarioApiToDomain(s api.Scenario) (domain.Scenario, error) {
	r, err := MapDateRangeApiToDomain(s.DateRange)
	if err != nil {
		return domain.Scenario{}, err
	}

	scenarioType := domain.ScenarioType(strings.ToLower(strings.TrimSpace(s.ScenarioType)))
	if scenarioType == "" {
		scenarioType = domain.ScenarioTypeBalanced
	}

	res := domain.Scenario{
		ID:               s.ID,
		Label:            s.Label,
		DateRange:        r,
		Mechanics:        make([]domain.Mechanic, 0, len(s.Mechanics)),
		Type:             scenarioType,
		Departments:      slices.Clone(s.Departments),
		Channels:         slices.Clone(s.Channels),
		Constraints:      MapConstraintsApiToDomain(&s.Constraints),
		FocusDepartments: slices.Clone(s.FocusDepartments),
		Notes:            slices.Clone(s.Notes),
	}
	if s.DiscountPercentage != nil {
		v := *s.DiscountPercentage
		res.DiscountPercentage = &v
	}

	departments := map[string]struct{}{}
	channels := map[string]struct{}{}
	for _, m := range s.Mechanics {
		res.Mechanics = append(res.Mechanics, domain.Mechanic{
			Department:  m.Department,
			Channel:     m.Channel,
			DiscountPct: m.DiscountPct,
			Segments:    slices.Clone(m.Segments),
		})
		departments[m.Department] = struct{}{}
		channels[m.Channel] = struct{}{}
	}
	if len(res.Departments) == 0 {
		res.Departments = slices.Sorted(maps.Keys(departments))
	}
	if len(res.Channels) == 0 {
		res.Channels = slices.Sorted(maps.Keys(channels))
	}
	return res, nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return slices.Clone(ss)
}

func MapScenarioBundleDomainToApi(b domain.ScenarioBundle) api.ScenarioBundle {
	res := api.ScenarioBundle{Scenario: MapScenarioDomainToApi(b.Scenario)}
	if b.KPI != nil {
		kpi := MapKPIDomainToApi(*b.KPI)
		res.KPI = &kpi
	}
	if b.Validation != nil {
		report := MapValidationReportDomainToApi(*b.Validation)
		res.Validation = &report
	}
	return res
}
