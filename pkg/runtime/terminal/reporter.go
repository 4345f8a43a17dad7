package terminal

import (
	"encoding/json"
	"io"
	"os"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/runtime/terminal/commands"
)

// JSONReporter prints results in the same schema the HTTP API returns.
type JSONReporter struct {
	encoder *json.Encoder
}

func NewJSONReporter(writer io.Writer) *JSONReporter {
	if writer == nil {
		writer = os.Stdout
	}
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	return &JSONReporter{encoder: enc}
}

func (r *JSONReporter) Seeded(summary commands.SeedSummary) error {
	return r.encoder.Encode(map[string]any{
		"sales_rows":   summary.SalesRows,
		"coefficients": summary.Coefficients,
		"segments":     summary.Segments,
		"targets":      summary.Targets,
	})
}

func (r *JSONReporter) Bundle(bundle domain.ScenarioBundle) error {
	return r.encoder.Encode(adapters.MapScenarioBundleDomainToApi(bundle))
}

func (r *JSONReporter) KPI(kpi domain.KPI) error {
	return r.encoder.Encode(adapters.MapKPIDomainToApi(kpi))
}

func (r *JSONReporter) Validation(report domain.ValidationReport) error {
	return r.encoder.Encode(adapters.MapValidationReportDomainToApi(report))
}

func (r *JSONReporter) Optimization(result domain.OptimizationResult) error {
	return r.encoder.Encode(adapters.MapOptimizationResultDomainToApi(result))
}

func (r *JSONReporter) Learned(result domain.LearnResult) error {
	return r.encoder.Encode(adapters.MapLearnResultDomainToApi(result))
}
