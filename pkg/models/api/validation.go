package api

type Severity string

const (
	SeverityWarn  Severity = "WARN"
	SeverityBlock Severity = "BLOCK"
)

type Status string

const (
	StatusPass  Status = "PASS"
	StatusWarn  Status = "WARN"
	StatusBlock Status = "BLOCK"
)

type ValidationIssue struct {
	Type               string   `json:"type"`
	Severity           Severity `json:"severity"`
	Message            string   `json:"message"`
	SuggestedFix       string   `json:"suggested_fix,omitempty"`
	AffectedDepartment string   `json:"affected_department,omitempty"`
}

type ValidationReport struct {
	ScenarioID   string            `json:"scenario_id"`
	Status       Status            `json:"status"`
	Issues       []ValidationIssue `json:"issues"`
	OverallScore float64           `json:"overall_score"`
}
