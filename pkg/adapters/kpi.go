package adapters

import (
	"maps"
	"slices"

	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
)

func mapBreakdownDomainToApi(b map[string]domain.Metrics) map[string]api.Metrics {
	if b == nil {
		return nil
	}
	res := make(map[string]api.Metrics, len(b))
	for k, m := range b {
		res[k] = api.Metrics{Sales: m.Sales, Margin: m.Margin, Units: m.Units}
	}
	return res
}

func mapBreakdownApiToDomain(b map[string]api.Metrics) map[string]domain.Metrics {
	if b == nil {
		return nil
	}
	res := make(map[string]domain.Metrics, len(b))
	for k, m := range b {
		res[k] = domain.Metrics{Sales: m.Sales, Margin: m.Margin, Units: m.Units}
	}
	return res
}

func MapKPIDomainToApi(k domain.KPI) api.KPI {
	res := api.KPI{
		ScenarioID:            k.ScenarioID,
		TotalSales:            k.TotalSales,
		TotalMargin:           k.TotalMargin,
		TotalEBIT:             k.TotalEBIT,
		TotalUnits:            k.TotalUnits,
		BreakdownByDepartment: mapBreakdownDomainToApi(k.ByDepartment),
		BreakdownByChannel:    mapBreakdownDomainToApi(k.ByChannel),
		BreakdownBySegment:    mapBreakdownDomainToApi(k.BySegment),
		VsBaseline:            maps.Clone(k.VsBaseline),
		Caveats:               slices.Clone(k.Caveats),
	}
	if res.BreakdownByDepartment == nil {
		res.BreakdownByDepartment = map[string]api.Metrics{}
	}
	if res.BreakdownByChannel == nil {
		res.BreakdownByChannel = map[string]api.Metrics{}
	}
	if res.VsBaseline == nil {
		res.VsBaseline = map[string]float64{}
	}
	return res
}

func MapKPIApiToDomain(k api.KPI) domain.KPI {
	return domain.KPI{
		ScenarioID:   k.ScenarioID,
		TotalSales:   k.TotalSales,
		TotalMargin:  k.TotalMargin,
		TotalEBIT:    k.TotalEBIT,
		TotalUnits:   k.TotalUnits,
		ByDepartment: mapBreakdownApiToDomain(k.BreakdownByDepartment),
		ByChannel:    mapBreakdownApiToDomain(k.BreakdownByChannel),
		BySegment:    mapBreakdownApiToDomain(k.BreakdownBySegment),
		VsBaseline:   maps.Clone(k.VsBaseline),
		Caveats:      slices.Clone(k.Caveats),
	}
}

// MapKPIInputApiToDomain folds legacy aliases into the canonical fields.
// Canonical values win whenever they are set.
func MapKPIInputApiToDomain(in api.KPIInput) domain.KPI {
	res := MapKPIApiToDomain(in.KPI)

	legacy := func(current float64, key string) float64 {
		if current != 0 {
			return current
		}
		if v, ok := in.Total[key]; ok {
			return v
		}
		return current
	}

	if res.TotalSales == 0 && in.Sales != nil {
		res.TotalSales = *in.Sales
	}
	res.TotalSales = legacy(res.TotalSales, domain.MetricSales)
	res.TotalMargin = legacy(res.TotalMargin, domain.MetricMargin)
	res.TotalEBIT = legacy(res.TotalEBIT, domain.MetricEBIT)
	res.TotalUnits = legacy(res.TotalUnits, domain.MetricUnits)

	if len(res.VsBaseline) == 0 && len(in.ComparisonVsBaseline) > 0 {
		res.VsBaseline = maps.Clone(in.ComparisonVsBaseline)
	}
	return res
}
