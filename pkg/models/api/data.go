package api

type BaselineTotals struct {
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Department  string  `json:"department,omitempty"`
	Channel     string  `json:"channel,omitempty"`
	Rows        int64   `json:"rows"`
	SalesValue  float64 `json:"sales_value"`
	MarginValue float64 `json:"margin_value"`
	MarginPct   float64 `json:"margin_pct"`
	Units       float64 `json:"units"`
}

type BandCoefficient struct {
	Band            string  `json:"discount_band"`
	UpliftSalesPct  float64 `json:"uplift_sales_pct"`
	UpliftUnitsPct  float64 `json:"uplift_units_pct"`
	MarginImpactPct float64 `json:"margin_impact_pct"`
	Confidence      float64 `json:"confidence"`
	SampleSize      int     `json:"sample_size"`
	ModelVersion    string  `json:"model_version"`
}

type UpliftCurve struct {
	Department string            `json:"department"`
	Channel    string            `json:"channel"`
	Bands      []BandCoefficient `json:"bands"`
}

type UpliftModel struct {
	Curves []UpliftCurve `json:"curves"`
}

type Segment struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Description         string  `json:"description,omitempty"`
	ShareOfCustomers    float64 `json:"share_of_customers"`
	ShareOfRevenue      float64 `json:"share_of_revenue"`
	AvgBasketValue      float64 `json:"avg_basket_value"`
	DiscountSensitivity string  `json:"discount_sensitivity,omitempty"`
}

type SegmentPage struct {
	Segments []Segment `json:"segments"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Total    int64     `json:"total"`
}

type Target struct {
	Month           string   `json:"month"`
	SalesTarget     float64  `json:"sales_target"`
	MarginPctTarget float64  `json:"margin_pct_target"`
	MarginTarget    float64  `json:"margin_target"`
	UnitsTarget     *float64 `json:"units_target,omitempty"`
}

type GapAnalysis struct {
	Month          string             `json:"month"`
	Target         Target             `json:"target"`
	BaselineSales  float64            `json:"baseline_sales"`
	BaselineMargin float64            `json:"baseline_margin"`
	BaselineUnits  float64            `json:"baseline_units"`
	SalesGap       float64            `json:"sales_gap"`
	MarginGap      float64            `json:"margin_gap"`
	UnitsGap       *float64           `json:"units_gap,omitempty"`
	GapPercentage  map[string]float64 `json:"gap_percentage"`
}

type Months struct {
	Months []string `json:"months"`
}

type QualityReport struct {
	WindowStart     string   `json:"window_start"`
	WindowEnd       string   `json:"window_end"`
	Rows            int64    `json:"rows"`
	Completeness    float64  `json:"completeness"`
	Accuracy        float64  `json:"accuracy"`
	Consistency     float64  `json:"consistency"`
	Timeliness      float64  `json:"timeliness"`
	OverallScore    float64  `json:"overall_score"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

type LearnedCurve struct {
	Department   string  `json:"department"`
	Channel      string  `json:"channel"`
	Factor       float64 `json:"factor"`
	Reports      int     `json:"reports"`
	ModelVersion string  `json:"model_version"`
}

type LearnResult struct {
	Reports      int            `json:"reports"`
	AverageError float64        `json:"average_error"`
	Coefficients int            `json:"coefficients"`
	Curves       []LearnedCurve `json:"curves"`
}

type Health struct {
	Status string `json:"status"`
}

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
