package domain

type Severity int

const (
	SeverityWarn Severity = iota
	SeverityBlock
)

type ValidationStatus int

const (
	StatusPass ValidationStatus = iota
	StatusWarn
	StatusBlock
)

const (
	IssueMarginFloor     = "margin_floor"
	IssueDiscountCeiling = "discount_ceiling"
	IssueEBITErosion     = "ebit_erosion"
	IssueCoverage        = "coverage"
	IssueNoMechanics     = "no_mechanics"
)

type ValidationIssue struct {
	Type               string
	Severity           Severity
	Message            string
	SuggestedFix       string
	AffectedDepartment string
}

type ValidationReport struct {
	ScenarioID   string
	Status       ValidationStatus
	Issues       []ValidationIssue
	OverallScore float64
}
