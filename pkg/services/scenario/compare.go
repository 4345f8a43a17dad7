package scenario

import (
	"context"
	"fmt"

	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/services/optimizer"
)

func (s *service) Compare(ctx context.Context, set Set) (res domain.Comparison, err error) {
	ctx, span := tracer.Start(ctx, "scenario.Compare")
	defer func() { finish(span, err) }()

	entries, err := s.resolve(ctx, set)
	if err != nil {
		return domain.Comparison{}, err
	}
	return domain.Comparison{
		Results: entries,
		Summary: summarize(entries),
	}, nil
}

// Frontier evaluates a set of scenarios and marks the non-dominated ones.
// Points keep the order of the set.
func (s *service) Frontier(ctx context.Context, set Set) (scenarios []domain.Scenario, frontier domain.Frontier, err error) {
	ctx, span := tracer.Start(ctx, "scenario.Frontier")
	defer func() { finish(span, err) }()

	entries, err := s.resolve(ctx, set)
	if err != nil {
		return nil, domain.Frontier{}, err
	}

	points := make([]domain.FrontierPoint, len(entries))
	scenarios = make([]domain.Scenario, len(entries))
	for i, e := range entries {
		scenarios[i] = e.Scenario
		points[i] = domain.FrontierPoint{
			ScenarioID: e.Scenario.ID,
			Sales:      e.KPI.TotalSales,
			Margin:     e.KPI.TotalMargin,
			EBIT:       e.KPI.TotalEBIT,
		}
	}
	return scenarios, optimizer.Frontier(points), nil
}

// summarize picks the best scenario per metric, first one on ties, and
// derives recommendations in result order.
func summarize(entries []domain.ComparisonEntry) domain.ComparisonSummary {
	var summary domain.ComparisonSummary
	if len(entries) == 0 {
		return summary
	}

	best := func(metric func(domain.KPI) float64) domain.ComparisonEntry {
		top := entries[0]
		for _, e := range entries[1:] {
			if metric(e.KPI) > metric(top.KPI) {
				top = e
			}
		}
		return top
	}
	bestSales := best(func(k domain.KPI) float64 { return k.TotalSales })
	bestMargin := best(func(k domain.KPI) float64 { return k.TotalMargin })
	bestEBIT := best(func(k domain.KPI) float64 { return k.TotalEBIT })

	summary.BestSales = bestSales.Scenario.ID
	summary.BestMargin = bestMargin.Scenario.ID
	summary.BestEBIT = bestEBIT.Scenario.ID

	recommendations := []string{}
	if bestEBIT.Validation.Status != domain.StatusBlock {
		recommendations = append(recommendations,
			fmt.Sprintf("%s delivers the highest EBIT (%.2f) and passes the blocking checks", name(bestEBIT.Scenario), bestEBIT.KPI.TotalEBIT))
	}
	if bestSales.Scenario.ID != bestEBIT.Scenario.ID {
		recommendations = append(recommendations,
			fmt.Sprintf("%s maximises sales (%.2f) at the cost of EBIT", name(bestSales.Scenario), bestSales.KPI.TotalSales))
	}
	for _, e := range entries {
		if e.Validation.Status != domain.StatusBlock || len(e.Validation.Issues) == 0 {
			continue
		}
		for _, issue := range e.Validation.Issues {
			if issue.Severity == domain.SeverityBlock {
				recommendations = append(recommendations, fmt.Sprintf("%s is blocked: %s", name(e.Scenario), issue.SuggestedFix))
				break
			}
		}
	}
	summary.Recommendations = recommendations
	return summary
}

func name(s domain.Scenario) string {
	if s.Label != "" {
		return s.Label
	}
	return s.ID
}
