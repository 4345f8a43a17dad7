package domain

// ScenarioBundle is a scenario with its latest KPI and validation, when known.
type ScenarioBundle struct {
	Scenario   Scenario
	KPI        *KPI
	Validation *ValidationReport
}
