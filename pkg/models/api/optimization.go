package api

import "encoding/json"

type Candidate struct {
	Scenario   Scenario         `json:"scenario"`
	KPI        KPI              `json:"kpi"`
	Validation ValidationReport `json:"validation"`
	Rank       int              `json:"rank"`
	Score      float64          `json:"score"`
}

type FrontierPoint struct {
	ScenarioID string  `json:"scenario_id"`
	Sales      float64 `json:"sales"`
	Margin     float64 `json:"margin"`
	EBIT       float64 `json:"ebit"`
}

type EfficientFrontier struct {
	Points        []FrontierPoint `json:"points"`
	ParetoOptimal []string        `json:"pareto_optimal"`
}

type OptimizationResult struct {
	Scenarios         []Candidate       `json:"scenarios"`
	EfficientFrontier EfficientFrontier `json:"efficient_frontier"`
}

type Objectives struct {
	Weights *ObjectiveWeights `json:"weights,omitempty"`
}

// OptimizeRequest.Brief is either a structured Brief or a free-text string.
type OptimizeRequest struct {
	Brief       json.RawMessage `json:"brief"`
	Constraints *Constraints    `json:"constraints,omitempty"`
	Objectives  *Objectives     `json:"objectives,omitempty"`
}

type FrontierResponse struct {
	Scenarios     []Scenario      `json:"scenarios"`
	Coordinates   []FrontierPoint `json:"coordinates"`
	ParetoOptimal []string        `json:"pareto_optimal"`
}
