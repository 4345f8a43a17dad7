package adapters

import (
	"slices"

	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
)

func MapFrontierPointDomainToApi(p domain.FrontierPoint) api.FrontierPoint {
	return api.FrontierPoint{
		ScenarioID: p.ScenarioID,
		Sales:      p.Sales,
		Margin:     p.Margin,
		EBIT:       p.EBIT,
	}
}

func MapFrontierDomainToApi(f domain.Frontier) api.EfficientFrontier {
	res := api.EfficientFrontier{
		Points:        make([]api.FrontierPoint, 0, len(f.Points)),
		ParetoOptimal: slices.Clone(f.ParetoOptimal),
	}
	if res.ParetoOptimal == nil {
		res.ParetoOptimal = []string{}
	}
	for _, p := range f.Points {
		res.Points = append(res.Points, MapFrontierPointDomainToApi(p))
	}
	return res
}

func MapOptimizationResultDomainToApi(r domain.OptimizationResult) api.OptimizationResult {
	res := api.OptimizationResult{
		Scenarios:         make([]api.Candidate, 0, len(r.Scenarios)),
		EfficientFrontier: MapFrontierDomainToApi(r.Frontier),
	}
	for _, c := range r.Scenarios {
		res.Scenarios = append(res.Scenarios, api.Candidate{
			Scenario:   MapScenarioDomainToApi(c.Scenario),
			KPI:        MapKPIDomainToApi(c.KPI),
			Validation: MapValidationReportDomainToApi(c.Validation),
			Rank:       c.Rank,
			Score:      c.Score,
		})
	}
	return res
}

// MapFrontierResponseDomainToApi renders a frontier over an arbitrary scenario set.
func MapFrontierResponseDomainToApi(scenarios []domain.Scenario, f domain.Frontier) api.FrontierResponse {
	res := api.FrontierResponse{
		Scenarios: make([]api.Scenario, 0, len(scenarios)),
	}
	for _, s := range scenarios {
		res.Scenarios = append(res.Scenarios, MapScenarioDomainToApi(s))
	}
	frontier := MapFrontierDomainToApi(f)
	res.Coordinates = frontier.Points
	res.ParetoOptimal = frontier.ParetoOptimal
	return res
}

func MapComparisonDomainToApi(c domain.Comparison) api.CompareResponse {
	res := api.CompareResponse{
		Results: make([]api.CompareResult, 0, len(c.Results)),
		Summary: api.CompareSummary{
			BestSales:       c.Summary.BestSales,
			BestMargin:      c.Summary.BestMargin,
			BestEBIT:        c.Summary.BestEBIT,
			Recommendations: slices.Clone(c.Summary.Recommendations),
		},
	}
	if res.Summary.Recommendations == nil {
		res.Summary.Recommendations = []string{}
	}
	for _, e := range c.Results {
		res.Results = append(res.Results, api.CompareResult{
			ScenarioID: e.Scenario.ID,
			Label:      e.Scenario.Label,
			KPI:        MapKPIDomainToApi(e.KPI),
			Validation: MapValidationReportDomainToApi(e.Validation),
		})
	}
	return res
}
