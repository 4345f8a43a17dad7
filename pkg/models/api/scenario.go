package api

// DateRange uses YYYY-MM-DD strings. StartDate and EndDate are accepted as
// aliases on input and never emitted.
type DateRange struct {
	Start     string `json:"start,omitempty"`
	End       string `json:"end,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type Constraints struct {
	MaxDiscount         *float64           `json:"max_discount,omitempty"`
	MinMargin           *float64           `json:"min_margin,omitempty"`
	DepartmentDiscounts map[string]float64 `json:"department_discounts,omitempty"`
}

type ObjectiveWeights struct {
	Sales  float64 `json:"sales"`
	Margin float64 `json:"margin"`
	EBIT   float64 `json:"ebit"`
}

type Brief struct {
	Month            string         `json:"month"`
	PromoDateRange   *DateRange     `json:"promo_date_range,omitempty"`
	FocusDepartments []string       `json:"focus_departments,omitempty"`
	Channels         []string       `json:"channels,omitempty"`
	Objectives       map[string]any `json:"objectives,omitempty"`
	Constraints      *Constraints   `json:"constraints,omitempty"`
}

type BuildParameters struct {
	Label               string             `json:"label,omitempty"`
	Name                string             `json:"name,omitempty"`
	DepartmentDiscounts map[string]float64 `json:"department_discounts,omitempty"`
	DiscountPct         *float64           `json:"discount_pct,omitempty"`
	Channels            []string           `json:"channels,omitempty"`
	Segments            []string           `json:"segments,omitempty"`
}

type Mechanic struct {
	Department  string   `json:"department"`
	Channel     string   `json:"channel"`
	DiscountPct float64  `json:"discount_pct"`
	Segments    []string `json:"segments,omitempty"`
}

type Scenario struct {
	ID                 string      `json:"id"`
	Label              string      `json:"label"`
	DateRange          DateRange   `json:"date_range"`
	Mechanics          []Mechanic  `json:"mechanics"`
	ScenarioType       string      `json:"scenario_type"`
	Departments        []string    `json:"departments"`
	Channels           []string    `json:"channels"`
	DiscountPercentage *float64    `json:"discount_percentage,omitempty"`
	Constraints        Constraints `json:"constraints"`
	FocusDepartments   []string    `json:"focus_departments,omitempty"`
	Notes              []string    `json:"notes,omitempty"`
}

type CreateScenarioRequest struct {
	Brief        Brief            `json:"brief"`
	ScenarioType string           `json:"scenario_type"`
	Parameters   *BuildParameters `json:"parameters,omitempty"`
}

type ScenarioBundle struct {
	Scenario   Scenario          `json:"scenario"`
	KPI        *KPI              `json:"kpi,omitempty"`
	Validation *ValidationReport `json:"validation,omitempty"`
}

type ReevaluateResponse struct {
	KPI        KPI              `json:"kpi"`
	Validation ValidationReport `json:"validation"`
}

type DeleteResponse struct {
	Deleted    bool   `json:"deleted"`
	ScenarioID string `json:"scenario_id"`
}

type ScenarioSetRequest struct {
	Scenarios   []Scenario `json:"scenarios,omitempty"`
	ScenarioIDs []string   `json:"scenario_ids,omitempty"`
}

type CompareResult struct {
	ScenarioID string           `json:"scenario_id"`
	Label      string           `json:"label"`
	KPI        KPI              `json:"kpi"`
	Validation ValidationReport `json:"validation"`
}

type CompareSummary struct {
	BestSales       string   `json:"best_sales,omitempty"`
	BestMargin      string   `json:"best_margin,omitempty"`
	BestEBIT        string   `json:"best_ebit,omitempty"`
	Recommendations []string `json:"recommendations"`
}

type CompareResponse struct {
	Results []CompareResult `json:"results"`
	Summary CompareSummary  `json:"summary"`
}
