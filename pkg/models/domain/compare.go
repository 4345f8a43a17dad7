package domain

type ComparisonEntry struct {
	Scenario   Scenario
	KPI        KPI
	Validation ValidationReport
}

type ComparisonSummary struct {
	BestSales       string
	BestMargin      string
	BestEBIT        string
	Recommendations []string
}

type Comparison struct {
	Results []ComparisonEntry
	Summary ComparisonSummary
}
