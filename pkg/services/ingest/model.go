package ingest

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/models/store"
	"github.com/de-tools/promo-lab/pkg/store/sqldb"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ModelFile is the YAML layout of an uplift model with its customer segments
// and monthly targets.
type ModelFile struct {
	ModelVersion string             `yaml:"model_version"`
	Coefficients []CoefficientEntry `yaml:"coefficients"`
	Segments     []SegmentEntry     `yaml:"segments"`
	Targets      []TargetEntry      `yaml:"targets"`
}

type CoefficientEntry struct {
	Department      string  `yaml:"department"`
	Channel         string  `yaml:"channel"`
	Band            string  `yaml:"band"`
	UpliftSalesPct  float64 `yaml:"uplift_sales_pct"`
	UpliftUnitsPct  float64 `yaml:"uplift_units_pct"`
	MarginImpactPct float64 `yaml:"margin_impact_pct"`
	Confidence      float64 `yaml:"confidence"`
	SampleSize      int     `yaml:"sample_size"`
}

type SegmentEntry struct {
	ID                  string  `yaml:"id"`
	Name                string  `yaml:"name"`
	Description         string  `yaml:"description"`
	ShareOfCustomers    float64 `yaml:"share_of_customers"`
	ShareOfRevenue      float64 `yaml:"share_of_revenue"`
	AvgBasketValue      float64 `yaml:"avg_basket_value"`
	DiscountSensitivity string  `yaml:"discount_sensitivity"`
}

// TargetEntry holds the goals of one YAML month (YYYY-MM).
type TargetEntry struct {
	Month           string   `yaml:"month"`
	SalesTarget     float64  `yaml:"sales_target"`
	MarginPctTarget float64  `yaml:"margin_pct_target"`
	UnitsTarget     *float64 `yaml:"units_target"`
}

type ModelStats struct {
	Coefficients int
	Segments     int
	Targets      int
}

// LoadModel upserts the coefficients, segments and targets of a model file in
// a single transaction.
func (l *Loader) LoadModel(ctx context.Context, r io.Reader) (ModelStats, error) {
	var file ModelFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return ModelStats{}, fmt.Errorf("decode model file: %w", err)
	}

	coefficients, err := file.coefficients()
	if err != nil {
		return ModelStats{}, err
	}
	segments, err := file.segments()
	if err != nil {
		return ModelStats{}, err
	}
	targets, err := file.targets()
	if err != nil {
		return ModelStats{}, err
	}

	err = sqldb.InTransaction(ctx, l.db, func(ctx context.Context) error {
		if err := l.store.AddCoefficients(ctx, coefficients); err != nil {
			return err
		}
		if err := l.store.AddSegments(ctx, segments); err != nil {
			return err
		}
		return l.store.AddTargets(ctx, targets)
	})
	if err != nil {
		return ModelStats{}, fmt.Errorf("store model: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("model_version", file.ModelVersion).
		Int("coefficients", len(coefficients)).
		Int("segments", len(segments)).
		Int("targets", len(targets)).
		Msg("uplift model loaded")
	return ModelStats{Coefficients: len(coefficients), Segments: len(segments), Targets: len(targets)}, nil
}

func (f ModelFile) coefficients() ([]store.UpliftCoefficient, error) {
	version := f.ModelVersion
	if version == "" {
		version = "seed"
	}
	out := make([]store.UpliftCoefficient, 0, len(f.Coefficients))
	for i, c := range f.Coefficients {
		if c.Department == "" || c.Channel == "" {
			return nil, fmt.Errorf("coefficient %d: department and channel are required", i)
		}
		if !slices.Contains(domain.DiscountBands, domain.DiscountBand(c.Band)) {
			return nil, fmt.Errorf("coefficient %d: unknown discount band %q", i, c.Band)
		}
		out = append(out, store.UpliftCoefficient{
			Department:      c.Department,
			Channel:         c.Channel,
			DiscountBand:    c.Band,
			UpliftSalesPct:  c.UpliftSalesPct,
			UpliftUnitsPct:  c.UpliftUnitsPct,
			MarginImpactPct: c.MarginImpactPct,
			Confidence:      c.Confidence,
			SampleSize:      c.SampleSize,
			ModelVersion:    version,
		})
	}
	return out, nil
}

func (f ModelFile) segments() ([]store.Segment, error) {
	out := make([]store.Segment, 0, len(f.Segments))
	for i, s := range f.Segments {
		if s.ID == "" {
			return nil, fmt.Errorf("segment %d: id is required", i)
		}
		if s.ShareOfCustomers < 0 || s.ShareOfCustomers > 1 {
			return nil, fmt.Errorf("segment %s: share_of_customers %v must be within [0, 1]", s.ID, s.ShareOfCustomers)
		}
		out = append(out, store.Segment{
			SegmentID:           s.ID,
			Name:                s.Name,
			Description:         s.Description,
			ShareOfCustomers:    s.ShareOfCustomers,
			ShareOfRevenue:      s.ShareOfRevenue,
			AvgBasketValue:      s.AvgBasketValue,
			DiscountSensitivity: s.DiscountSensitivity,
		})
	}
	return out, nil
}

func (f ModelFile) targets() ([]store.Target, error) {
	out := make([]store.Target, 0, len(f.Targets))
	for i, t := range f.Targets {
		if _, err := time.Parse(domain.MonthLayout, t.Month); err != nil {
			return nil, fmt.Errorf("target %d: month %q must be formatted YYYY-MM", i, t.Month)
		}
		if t.SalesTarget < 0 {
			return nil, fmt.Errorf("target %s: sales_target %v must not be negative", t.Month, t.SalesTarget)
		}
		if t.MarginPctTarget < 0 || t.MarginPctTarget > 1 {
			return nil, fmt.Errorf("target %s: margin_pct_target %v must be within [0, 1]", t.Month, t.MarginPctTarget)
		}
		if t.UnitsTarget != nil && *t.UnitsTarget < 0 {
			return nil, fmt.Errorf("target %s: units_target %v must not be negative", t.Month, *t.UnitsTarget)
		}
		out = append(out, store.Target{
			Month:           t.Month,
			SalesTarget:     t.SalesTarget,
			MarginPctTarget: t.MarginPctTarget,
			UnitsTarget:     t.UnitsTarget,
		})
	}
	return out, nil
}
