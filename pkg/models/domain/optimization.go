package domain

type Candidate struct {
	Scenario   Scenario
	KPI        KPI
	Validation ValidationReport
	Rank       int
	Score      float64
}

type FrontierPoint struct {
	ScenarioID string
	Sales      float64
	Margin     float64
	EBIT       float64
}

// Dominates reports whether p is at least as good as q on every axis and
// strictly better on one.
func (p FrontierPoint) Dominates(q FrontierPoint) bool {
	if p.Sales < q.Sales || p.Margin < q.Margin || p.EBIT < q.EBIT {
		return false
	}
	return p.Sales > q.Sales || p.Margin > q.Margin || p.EBIT > q.EBIT
}

type Frontier struct {
	Points        []FrontierPoint
	ParetoOptimal []string
}

type OptimizationResult struct {
	Scenarios []Candidate
	Frontier  Frontier
}
