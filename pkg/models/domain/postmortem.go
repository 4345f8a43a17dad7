package domain

const (
	ActualSalesValue  = "sales_value"
	ActualMarginValue = "margin_value"
	ActualEBIT        = "ebit"
	ActualUnits       = "units"
)

// Actuals are observed campaign outcomes. A nil EBIT means it was not reported.
type Actuals struct {
	SalesValue  float64
	MarginValue float64
	EBIT        *float64
	Units       float64
}

type CannibalizationSignal struct {
	Department string
	ChangePct  float64
}

type PostMortemReport struct {
	ScenarioID             string
	Period                 DateRange
	ForecastKPI            KPI
	ActualKPI              Actuals
	ActualSource           string
	VsForecast             map[string]float64
	PostPromoDip           *float64
	CannibalizationSignals []CannibalizationSignal
	Insights               []string
}

// LearnedCurve records the factor applied to one department and channel curve.
type LearnedCurve struct {
	Department   string
	Channel      string
	Factor       float64
	Reports      int
	ModelVersion string
}

// LearnResult summarizes one calibration of the uplift model from post-mortems.
// AverageError is the mean of (forecast - actual) / forecast over the reports.
type LearnResult struct {
	Reports      int
	AverageError float64
	Coefficients int
	Curves       []LearnedCurve
}
