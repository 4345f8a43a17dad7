package api

type Actuals struct {
	SalesValue  float64  `json:"sales_value"`
	MarginValue float64  `json:"margin_value"`
	EBIT        *float64 `json:"ebit,omitempty"`
	Units       float64  `json:"units"`
}

type PostMortemRequest struct {
	ScenarioID string    `json:"scenario_id"`
	ActualData *Actuals  `json:"actual_data,omitempty"`
	Period     DateRange `json:"period"`
}

type CannibalizationSignal struct {
	Department string  `json:"department"`
	ChangePct  float64 `json:"change_pct"`
}

type PostMortemReport struct {
	ScenarioID             string                  `json:"scenario_id"`
	Period                 DateRange               `json:"period"`
	ForecastKPI            KPI                     `json:"forecast_kpi"`
	ActualKPI              Actuals                 `json:"actual_kpi"`
	ActualSource           string                  `json:"actual_source"`
	VsForecast             map[string]float64      `json:"vs_forecast"`
	PostPromoDip           *float64                `json:"post_promo_dip,omitempty"`
	CannibalizationSignals []CannibalizationSignal `json:"cannibalization_signals,omitempty"`
	Insights               []string                `json:"insights"`
}
