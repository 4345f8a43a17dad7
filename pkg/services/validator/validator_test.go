package validator

import (
	"testing"

	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func electronicsScenario(discount float64) domain.Scenario {
	return domain.Scenario{
		ID:          "s-1",
		Departments: []string{"Electronics"},
		Mechanics: []domain.Mechanic{
			{Department: "Electronics", Channel: "online", DiscountPct: discount},
			{Department: "Electronics", Channel: "offline", DiscountPct: discount},
		},
		Constraints:      domain.Constraints{MaxDiscount: 0.25, MinMargin: 0.18},
		FocusDepartments: []string{"Electronics"},
	}
}

func kpiWith(sales, margin, ebit float64) domain.KPI {
	return domain.KPI{
		ScenarioID:  "s-1",
		TotalSales:  sales,
		TotalMargin: margin,
		TotalEBIT:   ebit,
		ByDepartment: map[string]domain.Metrics{
			"Electronics": {Sales: sales, Margin: margin},
		},
	}
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(DefaultSettings())

	tests := []struct {
		name     string
		scenario domain.Scenario
		kpi      domain.KPI
		status   domain.ValidationStatus
		score    float64
		types    []string
	}{
		{
			name:     "healthy scenario passes",
			scenario: electronicsScenario(10),
			kpi:      kpiWith(1000, 250, 150),
			status:   domain.StatusPass,
			score:    100,
			types:    []string{},
		},
		{
			name:     "margin below floor blocks",
			scenario: electronicsScenario(25),
			kpi:      kpiWith(3780, 516.6, -233.4),
			status:   domain.StatusBlock,
			score:    45,
			types:    []string{domain.IssueMarginFloor, domain.IssueEBITErosion},
		},
		{
			name:     "margin exactly at floor passes",
			scenario: electronicsScenario(10),
			kpi:      kpiWith(1000, 180, 10),
			status:   domain.StatusPass,
			score:    100,
			types:    []string{},
		},
		{
			name:     "zero sales skips margin floor",
			scenario: electronicsScenario(10),
			kpi:      kpiWith(0, 0, 0),
			status:   domain.StatusPass,
			score:    100,
			types:    []string{},
		},
		{
			name:     "discount above ceiling blocks once per department",
			scenario: electronicsScenario(30),
			kpi:      kpiWith(1000, 250, 10),
			status:   domain.StatusBlock,
			score:    60,
			types:    []string{domain.IssueDiscountCeiling},
		},
		{
			name: "missing focus department warns",
			scenario: func() domain.Scenario {
				s := electronicsScenario(10)
				s.FocusDepartments = []string{"Electronics", "Toys"}
				return s
			}(),
			kpi:    kpiWith(1000, 250, 10),
			status: domain.StatusWarn,
			score:  85,
			types:  []string{domain.IssueCoverage},
		},
		{
			name:     "no mechanics blocks",
			scenario: domain.Scenario{ID: "s-1", Constraints: domain.Constraints{MaxDiscount: 0.2, MinMargin: 0.1}},
			kpi:      domain.KPI{ScenarioID: "s-1"},
			status:   domain.StatusBlock,
			score:    60,
			types:    []string{domain.IssueNoMechanics},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := v.Validate(tt.scenario, tt.kpi)
			assert.Equal(t, tt.status, report.Status)
			assert.Equal(t, tt.score, report.OverallScore)

			types := make([]string, 0, len(report.Issues))
			for _, issue := range report.Issues {
				types = append(types, issue.Type)
				assert.NotEmpty(t, issue.SuggestedFix)
			}
			assert.Equal(t, tt.types, types)
		})
	}
}

func TestValidator_IssueDetails(t *testing.T) {
	v := NewValidator(DefaultSettings())

	s := electronicsScenario(20)
	s.Departments = []string{"Electronics", "Home"}
	s.Mechanics = append(s.Mechanics, domain.Mechanic{Department: "Home", Channel: "online", DiscountPct: 40})
	kpi := domain.KPI{
		TotalSales:  2000,
		TotalMargin: 200,
		TotalEBIT:   -5,
		ByDepartment: map[string]domain.Metrics{
			"Electronics": {Sales: 1000, Margin: 150},
			"Home":        {Sales: 1000, Margin: 50},
		},
	}

	report := v.Validate(s, kpi)
	require.Len(t, report.Issues, 3)

	assert.Equal(t, "Home", report.Issues[0].AffectedDepartment)
	assert.Equal(t, "reduce discount_pct for Home to raise margin above 18.0%", report.Issues[0].SuggestedFix)
	assert.Equal(t, "margin 10.0% is below the 18.0% floor", report.Issues[0].Message)

	assert.Equal(t, domain.IssueDiscountCeiling, report.Issues[1].Type)
	assert.Equal(t, "Home", report.Issues[1].AffectedDepartment)
	assert.Equal(t, "lower discount_pct for Home to at most 25", report.Issues[1].SuggestedFix)

	assert.Equal(t, domain.IssueEBITErosion, report.Issues[2].Type)
	assert.Equal(t, "s-1", report.ScenarioID)
	assert.Equal(t, 5.0, report.OverallScore)
}

func TestValidator_ScoreFloorsAtZero(t *testing.T) {
	s := domain.Scenario{
		FocusDepartments: []string{"A", "B", "C"},
		Constraints:      domain.Constraints{MinMargin: 0.5},
	}
	report := NewValidator(DefaultSettings()).Validate(s, domain.KPI{TotalSales: 10, TotalMargin: 1, TotalEBIT: -1})
	assert.Equal(t, domain.StatusBlock, report.Status)
	assert.Equal(t, 0.0, report.OverallScore)
}

func TestValidator_CustomPenalties(t *testing.T) {
	report := NewValidator(Settings{BlockPenalty: 50, WarnPenalty: 5}).Validate(
		electronicsScenario(10), kpiWith(1000, 250, -1))
	assert.Equal(t, 95.0, report.OverallScore)
}

func TestValidator_PrecedenceProperty(t *testing.T) {
	v := NewValidator(DefaultSettings())

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("any BLOCK issue yields BLOCK status", prop.ForAll(
		func(discount, margin, ebit float64, missing int) bool {
			s := electronicsScenario(discount)
			for i := 0; i < missing; i++ {
				s.FocusDepartments = append(s.FocusDepartments, string(rune('A'+i)))
			}
			report := v.Validate(s, kpiWith(1000, margin, ebit))

			hasBlock, hasWarn := false, false
			for _, issue := range report.Issues {
				hasBlock = hasBlock || issue.Severity == domain.SeverityBlock
				hasWarn = hasWarn || issue.Severity == domain.SeverityWarn
			}
			switch {
			case hasBlock:
				return report.Status == domain.StatusBlock
			case hasWarn:
				return report.Status == domain.StatusWarn
			default:
				return report.Status == domain.StatusPass
			}
		},
		gen.Float64Range(0, 50),
		gen.Float64Range(-100, 500),
		gen.Float64Range(-100, 100),
		gen.IntRange(0, 4),
	))

	properties.Property("validation is idempotent", prop.ForAll(
		func(discount, margin float64) bool {
			s := electronicsScenario(discount)
			k := kpiWith(1000, margin, margin-discount*10)
			return assert.ObjectsAreEqual(v.Validate(s, k), v.Validate(s, k))
		},
		gen.Float64Range(0, 50),
		gen.Float64Range(0, 500),
	))

	properties.TestingRun(t)
}
