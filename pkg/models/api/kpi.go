package api

type Metrics struct {
	Sales  float64 `json:"sales"`
	Margin float64 `json:"margin"`
	Units  float64 `json:"units"`
}

type KPI struct {
	ScenarioID            string             `json:"scenario_id"`
	TotalSales            float64            `json:"total_sales"`
	TotalMargin           float64            `json:"total_margin"`
	TotalEBIT             float64            `json:"total_ebit"`
	TotalUnits            float64            `json:"total_units"`
	BreakdownByDepartment map[string]Metrics `json:"breakdown_by_department"`
	BreakdownByChannel    map[string]Metrics `json:"breakdown_by_channel"`
	BreakdownBySegment    map[string]Metrics `json:"breakdown_by_segment,omitempty"`
	VsBaseline            map[string]float64 `json:"vs_baseline"`
	Caveats               []string           `json:"caveats,omitempty"`
}

// KPIInput accepts the canonical KPI plus the field names older clients send.
type KPIInput struct {
	KPI
	Sales                *float64           `json:"sales,omitempty"`
	Total                map[string]float64 `json:"total,omitempty"`
	ComparisonVsBaseline map[string]float64 `json:"comparison_vs_baseline,omitempty"`
}

type ValidateRequest struct {
	Scenario Scenario  `json:"scenario"`
	KPI      *KPIInput `json:"kpi,omitempty"`
}
