package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/services/ingest"
	"github.com/de-tools/promo-lab/pkg/services/scenario"
)

type Seeder interface {
	LoadSales(ctx context.Context, r io.Reader) (int64, error)
	LoadModel(ctx context.Context, r io.Reader) (ingest.ModelStats, error)
}

type Learner interface {
	Learn(ctx context.Context) (domain.LearnResult, error)
}

type SeedSummary struct {
	SalesRows    int64
	Coefficients int
	Segments     int
	Targets      int
}

// Reporter renders command results.
type Reporter interface {
	Seeded(summary SeedSummary) error
	Bundle(bundle domain.ScenarioBundle) error
	KPI(kpi domain.KPI) error
	Validation(report domain.ValidationReport) error
	Optimization(result domain.OptimizationResult) error
	Learned(result domain.LearnResult) error
}

// Runtime is filled in by the root command before any subcommand runs.
type Runtime struct {
	Scenarios scenario.Service
	Seeder    Seeder
	Learner   Learner
	Reporter  Reporter
}

func readJSONFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
