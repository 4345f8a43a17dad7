package export

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"text/template"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/runtime/terminal/commands"
)

type TableConfig struct {
	NameWidth   int
	ValueWidth  int
	DetailWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		NameWidth:   28,
		ValueWidth:  14,
		DetailWidth: 60,
	}
}

// Reporter prints command results as fixed width text tables.
type Reporter struct {
	writer io.Writer
	config TableConfig
	tmpl   *template.Template
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	r := &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
	r.tmpl = template.Must(template.New("report").Funcs(r.funcs()).Parse(templates))
	return r
}

var _ commands.Reporter = (*Reporter)(nil)

func (c *Reporter) funcs() template.FuncMap {
	return template.FuncMap{
		"row": func(name string, value interface{}, detail string) string {
			return fmt.Sprintf("| %-*s | %*v | %-*s |",
				c.config.NameWidth, truncate(name, c.config.NameWidth),
				c.config.ValueWidth, value,
				c.config.DetailWidth, truncate(detail, c.config.DetailWidth))
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+",
				strings.Repeat("-", c.config.NameWidth+2),
				strings.Repeat("-", c.config.ValueWidth+2),
				strings.Repeat("-", c.config.DetailWidth+2))
		},
		"money":    func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"pct":      func(v float64) string { return fmt.Sprintf("%+.1f%%", v*100) },
		"status":   func(s domain.ValidationStatus) string { return string(adapters.MapStatusDomainToApi(s)) },
		"severity": func(s domain.Severity) string { return string(adapters.MapSeverityDomainToApi(s)) },
		"date": func(r domain.DateRange) string {
			return r.Start.Format(domain.DateLayout) + " to " + r.End.Format(domain.DateLayout)
		},
		"metrics":  sortedMetrics,
		"mechanic": func(m domain.Mechanic) string { return m.Department + "/" + m.Channel },
		"join":     func(ss []string) string { return strings.Join(ss, ",") },
		"star": func(ids []string, id string) string {
			if slices.Contains(ids, id) {
				return " *"
			}
			return ""
		},
	}
}

const templates = `
{{define "kpi"}}
KPI forecast{{if .ScenarioID}} for {{.ScenarioID}}{{end}}
{{separator}}
{{row "Metric" "Value" "vs baseline"}}
{{separator}}
{{row "Sales" (money .TotalSales) (pct (index .VsBaseline "sales"))}}
{{row "Margin" (money .TotalMargin) (pct (index .VsBaseline "margin"))}}
{{row "EBIT" (money .TotalEBIT) (pct (index .VsBaseline "ebit"))}}
{{row "Units" (money .TotalUnits) (pct (index .VsBaseline "units"))}}
{{separator}}
{{range metrics .ByDepartment}}{{row .Name (money .Sales) (printf "margin %s, units %.0f" (money .Margin) .Units)}}
{{end}}{{if .ByDepartment}}{{separator}}
{{end}}{{range .Caveats}}! {{.}}
{{end}}{{end}}

{{define "validation"}}
Validation{{if .ScenarioID}} for {{.ScenarioID}}{{end}}: {{status .Status}} (score {{printf "%.0f" .OverallScore}})
{{if .Issues}}{{separator}}
{{row "Issue" "Severity" "Message"}}
{{separator}}
{{range .Issues}}{{row .Type (severity .Severity) .Message}}
{{if .SuggestedFix}}{{row "" "" (printf "fix: %s" .SuggestedFix)}}
{{end}}{{end}}{{separator}}
{{end}}{{end}}

{{define "bundle"}}
Scenario {{.Scenario.ID}} ({{.Scenario.Type}}) {{.Scenario.Label}}
Period: {{date .Scenario.DateRange}}
{{separator}}
{{row "Mechanic" "Discount %" "Segments"}}
{{separator}}
{{range .Scenario.Mechanics}}{{row (mechanic .) .DiscountPct (join .Segments)}}
{{end}}{{separator}}
{{with .KPI}}{{template "kpi" .}}{{end}}{{with .Validation}}{{template "validation" .}}{{end}}{{end}}

{{define "optimization"}}
Ranked candidates
{{separator}}
{{row "Candidate" "Score" "Sales / Margin / EBIT"}}
{{separator}}
{{range .Scenarios}}{{row (printf "%d. %s" .Rank .Scenario.Label) (printf "%.3f %s" .Score (status .Validation.Status)) (printf "%s / %s / %s%s" (money .KPI.TotalSales) (money .KPI.TotalMargin) (money .KPI.TotalEBIT) (star $.Frontier.ParetoOptimal .Scenario.ID))}}
{{end}}{{separator}}
* on the efficient frontier
{{end}}

{{define "learned"}}
Uplift model learned from {{.Reports}} post-mortems (average sales error {{pct .AverageError}}), {{.Coefficients}} coefficients written
{{separator}}
{{row "Curve" "Factor" "Model version"}}
{{separator}}
{{range .Curves}}{{row (printf "%s/%s" .Department .Channel) (printf "%.3f" .Factor) (printf "%s (%d reports)" .ModelVersion .Reports)}}
{{end}}{{separator}}
{{end}}

{{define "seed"}}
Seeded baseline: {{.SalesRows}} sales rows, {{.Coefficients}} coefficients, {{.Segments}} segments, {{.Targets}} targets
{{end}}
`

func (c *Reporter) execute(name string, data interface{}) error {
	if err := c.tmpl.ExecuteTemplate(c.writer, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}

func (c *Reporter) Seeded(summary commands.SeedSummary) error {
	return c.execute("seed", summary)
}

func (c *Reporter) Bundle(bundle domain.ScenarioBundle) error {
	return c.execute("bundle", bundle)
}

func (c *Reporter) KPI(kpi domain.KPI) error {
	return c.execute("kpi", kpi)
}

func (c *Reporter) Validation(report domain.ValidationReport) error {
	return c.execute("validation", report)
}

func (c *Reporter) Optimization(result domain.OptimizationResult) error {
	return c.execute("optimization", result)
}

func (c *Reporter) Learned(result domain.LearnResult) error {
	return c.execute("learned", result)
}

type namedMetrics struct {
	Name string
	domain.Metrics
}

func sortedMetrics(m map[string]domain.Metrics) []namedMetrics {
	res := make([]namedMetrics, 0, len(m))
	for name, v := range m {
		res = append(res, namedMetrics{Name: name, Metrics: v})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-1] + "~"
}
