package validator

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/de-tools/promo-lab/pkg/models/domain"
)

// ceilingTolerance absorbs float noise when comparing percent points with fractions.
const ceilingTolerance = 1e-9

// Settings holds the score penalty per issue severity.
type Settings struct {
	// BlockPenalty is subtracted from 100 for every BLOCK issue (default: 40)
	BlockPenalty float64
	// WarnPenalty is subtracted from 100 for every WARN issue (default: 15)
	WarnPenalty float64
}

func DefaultSettings() Settings {
	return Settings{
		BlockPenalty: 40,
		WarnPenalty:  15,
	}
}

type Validator struct {
	settings Settings
}

func NewValidator(settings Settings) *Validator {
	return &Validator{settings: settings}
}

// Validate checks a scenario and its KPI against the business rules. Rules
// run in a fixed order which determines the order of the issues.
func (v *Validator) Validate(s domain.Scenario, kpi domain.KPI) domain.ValidationReport {
	var issues []domain.ValidationIssue
	issues = append(issues, marginFloor(s, kpi)...)
	issues = append(issues, discountCeiling(s)...)
	issues = append(issues, ebitErosion(kpi)...)
	issues = append(issues, coverage(s)...)
	issues = append(issues, noMechanics(s)...)

	scenarioID := s.ID
	if scenarioID == "" {
		scenarioID = kpi.ScenarioID
	}

	report := domain.ValidationReport{
		ScenarioID:   scenarioID,
		Status:       domain.StatusPass,
		Issues:       issues,
		OverallScore: 100,
	}
	if report.Issues == nil {
		report.Issues = []domain.ValidationIssue{}
	}

	for _, issue := range issues {
		switch issue.Severity {
		case domain.SeverityBlock:
			report.Status = domain.StatusBlock
			report.OverallScore -= v.settings.BlockPenalty
		case domain.SeverityWarn:
			if report.Status != domain.StatusBlock {
				report.Status = domain.StatusWarn
			}
			report.OverallScore -= v.settings.WarnPenalty
		}
	}
	report.OverallScore = math.Max(report.OverallScore, 0)
	return report
}

func marginFloor(s domain.Scenario, kpi domain.KPI) []domain.ValidationIssue {
	if kpi.TotalSales == 0 {
		return nil
	}
	pct := kpi.MarginPct()
	floor := s.Constraints.MinMargin
	if pct >= floor {
		return nil
	}

	dept := lowestMarginDepartment(kpi.ByDepartment)
	fix := fmt.Sprintf("reduce discount_pct to raise margin above %.1f%%", floor*100)
	if dept != "" {
		fix = fmt.Sprintf("reduce discount_pct for %s to raise margin above %.1f%%", dept, floor*100)
	}
	return []domain.ValidationIssue{{
		Type:               domain.IssueMarginFloor,
		Severity:           domain.SeverityBlock,
		Message:            fmt.Sprintf("margin %.1f%% is below the %.1f%% floor", pct*100, floor*100),
		SuggestedFix:       fix,
		AffectedDepartment: dept,
	}}
}

// lowestMarginDepartment ignores departments without sales; ties go to the first name.
func lowestMarginDepartment(byDepartment map[string]domain.Metrics) string {
	names := make([]string, 0, len(byDepartment))
	for name, m := range byDepartment {
		if m.Sales != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	lowest := ""
	for _, name := range names {
		if lowest == "" || byDepartment[name].MarginPct() < byDepartment[lowest].MarginPct() {
			lowest = name
		}
	}
	return lowest
}

func discountCeiling(s domain.Scenario) []domain.ValidationIssue {
	limit := s.Constraints.MaxDiscount
	var order []string
	worst := map[string]float64{}
	for _, m := range s.Mechanics {
		if m.DiscountPct/100 <= limit+ceilingTolerance {
			continue
		}
		if _, seen := worst[m.Department]; !seen {
			order = append(order, m.Department)
		}
		worst[m.Department] = math.Max(worst[m.Department], m.DiscountPct)
	}

	issues := make([]domain.ValidationIssue, 0, len(order))
	for _, dept := range order {
		issues = append(issues, domain.ValidationIssue{
			Type:     domain.IssueDiscountCeiling,
			Severity: domain.SeverityBlock,
			Message: fmt.Sprintf("discount %g%% for %s exceeds the %g%% ceiling",
				worst[dept], dept, limit*100),
			SuggestedFix:       fmt.Sprintf("lower discount_pct for %s to at most %g", dept, limit*100),
			AffectedDepartment: dept,
		})
	}
	return issues
}

func ebitErosion(kpi domain.KPI) []domain.ValidationIssue {
	if kpi.TotalEBIT >= 0 {
		return nil
	}
	return []domain.ValidationIssue{{
		Type:         domain.IssueEBITErosion,
		Severity:     domain.SeverityWarn,
		Message:      fmt.Sprintf("EBIT is negative (%.2f)", kpi.TotalEBIT),
		SuggestedFix: "reduce discount depth or narrow the department scope to restore positive EBIT",
	}}
}

func coverage(s domain.Scenario) []domain.ValidationIssue {
	var issues []domain.ValidationIssue
	var seen []string
	for _, dept := range s.FocusDepartments {
		if slices.Contains(s.Departments, dept) || slices.Contains(seen, dept) {
			continue
		}
		seen = append(seen, dept)
		issues = append(issues, domain.ValidationIssue{
			Type:               domain.IssueCoverage,
			Severity:           domain.SeverityWarn,
			Message:            fmt.Sprintf("focus department %s is not covered by the scenario", dept),
			SuggestedFix:       fmt.Sprintf("add mechanics for %s", dept),
			AffectedDepartment: dept,
		})
	}
	return issues
}

func noMechanics(s domain.Scenario) []domain.ValidationIssue {
	if len(s.Mechanics) > 0 {
		return nil
	}
	return []domain.ValidationIssue{{
		Type:         domain.IssueNoMechanics,
		Severity:     domain.SeverityBlock,
		Message:      "scenario has no mechanics",
		SuggestedFix: "add at least one department and channel mechanic",
	}}
}
