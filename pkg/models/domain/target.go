package domain

import "time"

// Target holds the goals of one month (YYYY-MM). MarginPctTarget is a fraction.
type Target struct {
	Month           string
	SalesTarget     float64
	MarginPctTarget float64
	UnitsTarget     *float64
}

func (t Target) MarginTarget() float64 {
	return t.SalesTarget * t.MarginPctTarget
}

// Gap percentage keys.
const (
	GapSales  = "sales"
	GapMargin = "margin"
	GapUnits  = "units"
)

// GapAnalysis compares a month's target with its baseline facts. Gaps are
// target minus baseline, so a positive gap is a shortfall.
type GapAnalysis struct {
	Month          string
	Target         Target
	BaselineSales  float64
	BaselineMargin float64
	BaselineUnits  float64
	SalesGap       float64
	MarginGap      float64
	UnitsGap       *float64
	GapPercentage  map[string]float64
}

// QualityReport scores the recent sales facts; every score is within [0, 1].
type QualityReport struct {
	WindowStart     time.Time
	WindowEnd       time.Time
	Rows            int64
	Completeness    float64
	Accuracy        float64
	Consistency     float64
	Timeliness      float64
	Issues          []string
	Recommendations []string
}

func (q QualityReport) Overall() float64 {
	return (q.Completeness + q.Accuracy + q.Consistency + q.Timeliness) / 4
}
