package adapters

import (
	"maps"
	"slices"

	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
)

func MapActualsApiToDomain(a *api.Actuals) *domain.Actuals {
	if a == nil {
		return nil
	}
	res := &domain.Actuals{
		SalesValue:  a.SalesValue,
		MarginValue: a.MarginValue,
		Units:       a.Units,
	}
	if a.EBIT != nil {
		v := *a.EBIT
		res.EBIT = &v
	}
	return res
}

func MapActualsDomainToApi(a domain.Actuals) api.Actuals {
	res := api.Actuals{
		SalesValue:  a.SalesValue,
		MarginValue: a.MarginValue,
		Units:       a.Units,
	}
	if a.EBIT != nil {
		v := *a.EBIT
		res.EBIT = &v
	}
	return res
}

func MapPostMortemDomainToApi(r domain.PostMortemReport) api.PostMortemReport {
	res := api.PostMortemReport{
		ScenarioID:   r.ScenarioID,
		Period:       MapDateRangeDomainToApi(r.Period),
		ForecastKPI:  MapKPIDomainToApi(r.ForecastKPI),
		ActualKPI:    MapActualsDomainToApi(r.ActualKPI),
		ActualSource: r.ActualSource,
		VsForecast:   maps.Clone(r.VsForecast),
		Insights:     slices.Clone(r.Insights),
	}
	if r.PostPromoDip != nil {
		v := *r.PostPromoDip
		res.PostPromoDip = &v
	}
	for _, s := range r.CannibalizationSignals {
		res.CannibalizationSignals = append(res.CannibalizationSignals, api.CannibalizationSignal{
			Department: s.Department,
			ChangePct:  s.ChangePct,
		})
	}
	if res.Insights == nil {
		res.Insights = []string{}
	}
	return res
}

func MapPostMortemApiToDomain(r api.PostMortemReport) (domain.PostMortemReport, error) {
	period, err := MapDateRangeApiToDomain(r.Period)
	if err != nil {
		return domain.PostMortemReport{}, err
	}
	res := domain.PostMortemReport{
		ScenarioID:   r.ScenarioID,
		Period:       period,
		ForecastKPI:  MapKPIApiToDomain(r.ForecastKPI),
		ActualKPI:    *MapActualsApiToDomain(&r.ActualKPI),
		ActualSource: r.ActualSource,
		VsForecast:   maps.Clone(r.VsForecast),
		Insights:     slices.Clone(r.Insights),
	}
	if r.PostPromoDip != nil {
		v := *r.PostPromoDip
		res.PostPromoDip = &v
	}
	for _, s := range r.CannibalizationSignals {
		res.CannibalizationSignals = append(res.CannibalizationSignals, domain.CannibalizationSignal{
			Department: s.Department,
			ChangePct:  s.ChangePct,
		})
	}
	return res, nil
}
