package domain

import "math"

const (
	MetricSales  = "sales"
	MetricMargin = "margin"
	MetricEBIT   = "ebit"
	MetricUnits  = "units"
)

type Metrics struct {
	Sales  float64
	Margin float64
	Units  float64
}

func (m Metrics) Add(o Metrics) Metrics {
	return Metrics{
		Sales:  m.Sales + o.Sales,
		Margin: m.Margin + o.Margin,
		Units:  m.Units + o.Units,
	}
}

// MarginPct is margin over sales, 0 when there are no sales.
func (m Metrics) MarginPct() float64 {
	if m.Sales == 0 {
		return 0
	}
	return m.Margin / m.Sales
}

type KPI struct {
	ScenarioID   string
	TotalSales   float64
	TotalMargin  float64
	TotalEBIT    float64
	TotalUnits   float64
	ByDepartment map[string]Metrics
	ByChannel    map[string]Metrics
	BySegment    map[string]Metrics
	VsBaseline   map[string]float64
	Caveats      []string
}

func (k KPI) MarginPct() float64 {
	if k.TotalSales == 0 {
		return 0
	}
	return k.TotalMargin / k.TotalSales
}

// Finite reports whether every number in the KPI is finite.
func (k KPI) Finite() bool {
	values := []float64{k.TotalSales, k.TotalMargin, k.TotalEBIT, k.TotalUnits}
	for _, breakdown := range []map[string]Metrics{k.ByDepartment, k.ByChannel, k.BySegment} {
		for _, m := range breakdown {
			values = append(values, m.Sales, m.Margin, m.Units)
		}
	}
	for _, v := range k.VsBaseline {
		values = append(values, v)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Baseline is the unmodified historical outcome for one slice of the business.
type Baseline struct {
	Sales  float64
	Margin float64
	Units  float64
}

func (b Baseline) Add(o Baseline) Baseline {
	return Baseline{Sales: b.Sales + o.Sales, Margin: b.Margin + o.Margin, Units: b.Units + o.Units}
}
