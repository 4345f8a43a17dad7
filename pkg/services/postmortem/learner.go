package postmortem

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/models/store"
	"github.com/rs/zerolog"
)

// LearnedSuffix marks the model version of calibrated coefficients.
const LearnedSuffix = "-learned"

type LearnerSettings struct {
	// Rate turns the average forecast error into a factor: 1 - Rate*error (default: 0.1)
	Rate float64
	// Floor is the smallest factor applied to a curve (default: 0.8)
	Floor float64
	// Cap is the largest factor applied to a curve (default: 1.2)
	Cap float64
	// Sentinel marks ratios against a zero forecast, which are skipped (default: 1e6)
	Sentinel float64
}

func DefaultLearnerSettings() LearnerSettings {
	return LearnerSettings{
		Rate:     0.1,
		Floor:    0.8,
		Cap:      1.2,
		Sentinel: 1e6,
	}
}

// Reports gives access to stored post-mortems and the scenarios they review.
type Reports interface {
	ListPostMortems(ctx context.Context) ([]domain.PostMortemReport, error)
	GetScenario(ctx context.Context, id string) (domain.Scenario, error)
}

type CoefficientStore interface {
	ListCoefficients(ctx context.Context, departments, channels []string) ([]store.UpliftCoefficient, error)
	AddCoefficients(ctx context.Context, coefficients []store.UpliftCoefficient) error
}

// Learner calibrates the uplift curves from the sales forecast error of
// stored post-mortems.
type Learner struct {
	reports      Reports
	coefficients CoefficientStore
	settings     LearnerSettings
}

func NewLearner(reports Reports, coefficients CoefficientStore, settings LearnerSettings) *Learner {
	return &Learner{
		reports:      reports,
		coefficients: coefficients,
		settings:     settings,
	}
}

// Learn scales the sales and units uplift of every stored curve, and of every
// curve a reviewed scenario touched, by 1 - Rate*error clamped to
// [Floor, Cap]. The error of a department and channel averages the reports of
// scenarios with a mechanic on it; other curves use the average of all
// reports. Learned rows replace the current ones under a "-learned" version.
func (l *Learner) Learn(ctx context.Context) (domain.LearnResult, error) {
	reports, err := l.reports.ListPostMortems(ctx)
	if err != nil {
		return domain.LearnResult{}, fmt.Errorf("list post-mortems: %w", err)
	}

	var all []float64
	perPair := make(map[[2]string][]float64)
	for _, report := range reports {
		e, ok := l.salesError(report)
		if !ok {
			continue
		}
		all = append(all, e)

		s, err := l.reports.GetScenario(ctx, report.ScenarioID)
		if domain.IsKind(err, domain.KindScenarioNotFound) {
			continue
		}
		if err != nil {
			return domain.LearnResult{}, err
		}
		for pair := range scopeOf(s) {
			perPair[pair] = append(perPair[pair], e)
		}
	}
	if len(all) == 0 {
		return domain.LearnResult{}, domain.NewError(domain.KindInvalidInput,
			"no post-mortem reports with a sales forecast error to learn from")
	}

	rows, err := l.coefficients.ListCoefficients(ctx, nil, nil)
	if err != nil {
		return domain.LearnResult{}, fmt.Errorf("list uplift coefficients: %w", err)
	}
	curves := make(map[[2]string]domain.CoefficientCurve)
	for _, row := range rows {
		c := adapters.MapUpliftCoefficientStoreToDomain(row)
		pair := [2]string{c.Department, c.Channel}
		if curves[pair] == nil {
			curves[pair] = domain.CoefficientCurve{}
		}
		curves[pair][c.Band] = c.Coefficient
	}
	for pair := range perPair {
		if curves[pair] == nil {
			curves[pair] = domain.DefaultCoefficientCurve()
		}
	}

	pairs := make([][2]string, 0, len(curves))
	for pair := range curves {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})

	average := mean(all)
	result := domain.LearnResult{
		Reports:      len(all),
		AverageError: average,
		Curves:       make([]domain.LearnedCurve, 0, len(pairs)),
	}
	var learned []store.UpliftCoefficient
	for _, pair := range pairs {
		errs := perPair[pair]
		factor := l.Factor(average)
		if len(errs) > 0 {
			factor = l.Factor(mean(errs))
		}
		curve := LearnedCurve(curves[pair], factor)
		for _, band := range domain.DiscountBands {
			learned = append(learned, adapters.MapUpliftCoefficientDomainToStore(domain.UpliftCoefficient{
				Department:  pair[0],
				Channel:     pair[1],
				Band:        band,
				Coefficient: curve[band],
			}))
		}
		result.Curves = append(result.Curves, domain.LearnedCurve{
			Department:   pair[0],
			Channel:      pair[1],
			Factor:       factor,
			Reports:      len(errs),
			ModelVersion: curve[domain.BandNone].ModelVersion,
		})
	}

	if err := l.coefficients.AddCoefficients(ctx, learned); err != nil {
		return domain.LearnResult{}, fmt.Errorf("store learned coefficients: %w", err)
	}
	result.Coefficients = len(learned)

	zerolog.Ctx(ctx).Info().
		Int("reports", result.Reports).
		Float64("average_error", average).
		Int("curves", len(result.Curves)).
		Msg("uplift model learned")
	return result, nil
}

// Factor clamps 1 - Rate*avgError to [Floor, Cap].
func (l *Learner) Factor(avgError float64) float64 {
	f := 1 - l.settings.Rate*avgError
	return math.Max(l.settings.Floor, math.Min(l.settings.Cap, f))
}

// salesError is (forecast - actual) / forecast of the sales value.
func (l *Learner) salesError(report domain.PostMortemReport) (float64, bool) {
	vs, ok := report.VsForecast[domain.ActualSalesValue]
	if !ok || math.IsNaN(vs) || math.IsInf(vs, 0) || math.Abs(vs) >= l.settings.Sentinel {
		return 0, false
	}
	return -vs, true
}

// LearnedCurve scales the sales and units uplift of a complete curve. Every
// band takes the learned version of the first stored band's model version.
func LearnedCurve(curve domain.CoefficientCurve, factor float64) domain.CoefficientCurve {
	version := learnedVersion(curveVersion(curve))
	out := make(domain.CoefficientCurve, len(domain.DiscountBands))
	for band, c := range curve.Monotone() {
		c.UpliftSalesPct *= factor
		c.UpliftUnitsPct *= factor
		c.ModelVersion = version
		out[band] = c
	}
	return out.Monotone()
}

func curveVersion(curve domain.CoefficientCurve) string {
	for _, band := range domain.DiscountBands {
		if c, ok := curve[band]; ok && c.ModelVersion != "" {
			return c.ModelVersion
		}
	}
	return domain.DefaultModelVersion
}

func learnedVersion(version string) string {
	return strings.TrimSuffix(version, LearnedSuffix) + LearnedSuffix
}

func mean(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
