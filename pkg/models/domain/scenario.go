package domain

import (
	"slices"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

type ScenarioType string

const (
	ScenarioTypeBalanced     ScenarioType = "balanced"
	ScenarioTypeAggressive   ScenarioType = "aggressive"
	ScenarioTypeConservative ScenarioType = "conservative"
)

var ScenarioTypes = []ScenarioType{
	ScenarioTypeBalanced,
	ScenarioTypeAggressive,
	ScenarioTypeConservative,
}

func (t ScenarioType) Valid() bool {
	return slices.Contains(ScenarioTypes, t)
}

const (
	ChannelOnline  = "online"
	ChannelOffline = "offline"
)

var DefaultChannels = []string{ChannelOnline, ChannelOffline}

// DateRange is an inclusive range of calendar dates (UTC midnight).
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Valid() bool {
	return !r.End.Before(r.Start)
}

// Days returns the number of calendar days covered, both ends included.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Before returns the window of equal length ending the day before r starts.
func (r DateRange) Before() DateRange {
	days := r.Days()
	return DateRange{
		Start: r.Start.AddDate(0, 0, -days),
		End:   r.Start.AddDate(0, 0, -1),
	}
}

// After returns the window of equal length starting the day after r ends.
func (r DateRange) After() DateRange {
	days := r.Days()
	return DateRange{
		Start: r.End.AddDate(0, 0, 1),
		End:   r.End.AddDate(0, 0, days),
	}
}

// Constraints are fractions except DepartmentDiscounts, which holds percent points.
type Constraints struct {
	MaxDiscount         float64
	MinMargin           float64
	DepartmentDiscounts map[string]float64
}

// DefaultConstraints apply when a brief carries no constraints.
func DefaultConstraints() Constraints {
	return Constraints{MaxDiscount: 0.3, MinMargin: 0.15}
}

// Objectives carries optional scoring weights; Notes is passed through untouched.
type Objectives struct {
	Weights *ObjectiveWeights
	Notes   map[string]any
}

type ObjectiveWeights struct {
	Sales  float64
	Margin float64
	EBIT   float64
}

func DefaultObjectiveWeights() ObjectiveWeights {
	return ObjectiveWeights{Sales: 0.4, Margin: 0.3, EBIT: 0.3}
}

type Brief struct {
	Month            string
	PromoDateRange   DateRange
	FocusDepartments []string
	Channels         []string
	Objectives       Objectives
	Constraints      Constraints
}

// BuildParameters are the optional per-call overrides accepted by the builder.
// Discounts are percent points.
type BuildParameters struct {
	Label               string
	Name                string
	DepartmentDiscounts map[string]float64
	DiscountPct         *float64
	Channels            []string
	Segments            []string
}

type Mechanic struct {
	Department  string
	Channel     string
	DiscountPct float64
	Segments    []string
}

type Scenario struct {
	ID                 string
	Label              string
	DateRange          DateRange
	Mechanics          []Mechanic
	Type               ScenarioType
	Departments        []string
	Channels           []string
	DiscountPercentage *float64
	Constraints        Constraints
	FocusDepartments   []string
	Notes              []string
}

// TotalDiscount sums discount_pct over all mechanics.
func (s Scenario) TotalDiscount() float64 {
	total := 0.0
	for _, m := range s.Mechanics {
		total += m.DiscountPct
	}
	return total
}
