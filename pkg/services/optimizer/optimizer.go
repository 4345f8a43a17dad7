package optimizer

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/services/builder"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// candidateNamespace seeds the name-based ids of generated candidates.
var candidateNamespace = uuid.MustParse("6b1f3c2e-5d4a-4e8b-9c7f-0a2d1e3b4c5d")

type Settings struct {
	// Workers bounds concurrent candidate evaluations (default: 4)
	Workers int
	// MaxCandidates caps the candidate set (default: 50)
	MaxCandidates int
	// Levels are sweep multipliers of max_discount
	Levels []float64
	// ReducedLevels replace Levels when the full sweep would exceed MaxCandidates
	ReducedLevels []float64
}

func DefaultSettings() Settings {
	return Settings{
		Workers:       4,
		MaxCandidates: 50,
		Levels:        []float64{0, 0.25, 0.5, 0.75, 1},
		ReducedLevels: []float64{0, 0.5, 1},
	}
}

type Evaluator interface {
	Evaluate(ctx context.Context, s domain.Scenario) (domain.KPI, error)
}

type Validator interface {
	Validate(s domain.Scenario, kpi domain.KPI) domain.ValidationReport
}

type Optimizer struct {
	departments builder.DepartmentSource
	evaluator   Evaluator
	validator   Validator
	settings    Settings
}

func NewOptimizer(
	departments builder.DepartmentSource,
	evaluator Evaluator,
	validator Validator,
	settings Settings,
) *Optimizer {
	defaults := DefaultSettings()
	if settings.Workers <= 0 {
		settings.Workers = 1
	}
	if settings.MaxCandidates <= 0 {
		settings.MaxCandidates = defaults.MaxCandidates
	}
	if len(settings.Levels) == 0 {
		settings.Levels = defaults.Levels
	}
	if len(settings.ReducedLevels) == 0 {
		settings.ReducedLevels = defaults.ReducedLevels
	}
	return &Optimizer{
		departments: departments,
		evaluator:   evaluator,
		validator:   validator,
		settings:    settings,
	}
}

// Optimize generates candidate scenarios for the brief, evaluates and
// validates each of them, then scores and ranks the set.
func (o *Optimizer) Optimize(
	ctx context.Context,
	brief domain.Brief,
	objectives domain.Objectives,
) (domain.OptimizationResult, error) {
	weights, err := ResolveWeights(objectives.Weights)
	if err != nil {
		return domain.OptimizationResult{}, err
	}

	known, err := o.departments.ListDepartments(ctx)
	if err != nil {
		return domain.OptimizationResult{}, fmt.Errorf("list departments: %w", err)
	}

	scenarios, err := o.Candidates(brief, known)
	if err != nil {
		return domain.OptimizationResult{}, err
	}
	zerolog.Ctx(ctx).Debug().Int("candidates", len(scenarios)).Msg("evaluating candidates")

	candidates := make([]domain.Candidate, len(scenarios))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.settings.Workers)
	for i, s := range scenarios {
		g.Go(func() error {
			kpi, err := o.evaluator.Evaluate(gCtx, s)
			if err != nil {
				return fmt.Errorf("evaluate candidate %s: %w", s.Label, err)
			}
			candidates[i] = domain.Candidate{
				Scenario:   s,
				KPI:        kpi,
				Validation: o.validator.Validate(s, kpi),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.OptimizationResult{}, err
	}

	score(candidates, weights)
	rank(candidates)

	points := make([]domain.FrontierPoint, len(candidates))
	for i, c := range candidates {
		points[i] = domain.FrontierPoint{
			ScenarioID: c.Scenario.ID,
			Sales:      c.KPI.TotalSales,
			Margin:     c.KPI.TotalMargin,
			EBIT:       c.KPI.TotalEBIT,
		}
	}

	return domain.OptimizationResult{
		Scenarios: candidates,
		Frontier:  Frontier(points),
	}, nil
}

// Candidates builds the de-duplicated candidate set: the three scenario
// types followed by a per-department discount sweep over the balanced plan.
func (o *Optimizer) Candidates(brief domain.Brief, known []string) ([]domain.Scenario, error) {
	var out []domain.Scenario
	seen := map[string]bool{}
	fingerprint := briefFingerprint(brief)

	add := func(s domain.Scenario) {
		signature := mechanicsSignature(s.Mechanics)
		if seen[signature] {
			return
		}
		seen[signature] = true
		s.ID = uuid.NewSHA1(candidateNamespace, []byte(fingerprint+"|"+signature)).String()
		out = append(out, s)
	}

	var balanced domain.Scenario
	for _, t := range domain.ScenarioTypes {
		s, err := builder.Compose(brief, t, domain.BuildParameters{Label: fmt.Sprintf("%s plan", t)}, known)
		if err != nil {
			return nil, err
		}
		if t == domain.ScenarioTypeBalanced {
			balanced = s
		}
		add(s)
	}

	departments := balanced.Departments
	levels := o.settings.Levels
	if len(domain.ScenarioTypes)+len(departments)*len(levels) > o.settings.MaxCandidates {
		levels = o.settings.ReducedLevels
	}
	if len(levels) > 0 {
		room := (o.settings.MaxCandidates - len(domain.ScenarioTypes)) / len(levels)
		if len(departments) > room {
			departments = departments[:max(room, 0)]
		}
	}

	for _, dept := range departments {
		for _, level := range levels {
			pct := math.Round(level*brief.Constraints.MaxDiscount*100*1e9) / 1e9
			s, err := builder.Compose(brief, domain.ScenarioTypeBalanced, domain.BuildParameters{
				Label:               fmt.Sprintf("%s at %g%%", dept, pct),
				DepartmentDiscounts: map[string]float64{dept: pct},
			}, known)
			if err != nil {
				return nil, err
			}
			add(s)
		}
	}
	return out, nil
}

// ResolveWeights applies defaults and normalizes the weights to sum to one.
func ResolveWeights(w *domain.ObjectiveWeights) (domain.ObjectiveWeights, error) {
	if w == nil {
		return domain.DefaultObjectiveWeights(), nil
	}
	for _, v := range []float64{w.Sales, w.Margin, w.EBIT} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.ObjectiveWeights{}, domain.NewError(domain.KindInvalidInput, "objective weights must be finite and non-negative")
		}
	}
	total := w.Sales + w.Margin + w.EBIT
	if total == 0 {
		return domain.ObjectiveWeights{}, domain.NewError(domain.KindInvalidInput, "objective weights must not all be zero")
	}
	return domain.ObjectiveWeights{
		Sales:  w.Sales / total,
		Margin: w.Margin / total,
		EBIT:   w.EBIT / total,
	}, nil
}

// score min-max normalizes each metric over the non-BLOCK candidates.
func score(candidates []domain.Candidate, w domain.ObjectiveWeights) {
	var sales, margin, ebit []float64
	for _, c := range candidates {
		if c.Validation.Status == domain.StatusBlock {
			continue
		}
		sales = append(sales, c.KPI.TotalSales)
		margin = append(margin, c.KPI.TotalMargin)
		ebit = append(ebit, c.KPI.TotalEBIT)
	}

	for i := range candidates {
		c := &candidates[i]
		if c.Validation.Status == domain.StatusBlock {
			c.Score = 0
			continue
		}
		c.Score = w.Sales*normalize(c.KPI.TotalSales, sales) +
			w.Margin*normalize(c.KPI.TotalMargin, margin) +
			w.EBIT*normalize(c.KPI.TotalEBIT, ebit)
	}
}

func normalize(v float64, population []float64) float64 {
	lo, hi := slices.Min(population), slices.Max(population)
	if hi == lo {
		return 1
	}
	return (v - lo) / (hi - lo)
}

func rank(candidates []domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aBlocked := a.Validation.Status == domain.StatusBlock
		bBlocked := b.Validation.Status == domain.StatusBlock
		if aBlocked != bBlocked {
			return bBlocked
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ta, tb := a.Scenario.TotalDiscount(), b.Scenario.TotalDiscount(); ta != tb {
			return ta < tb
		}
		return a.Scenario.ID < b.Scenario.ID
	})
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
}

// Frontier keeps every point and marks the ones no other point dominates.
// Points that tie on all three axes are both kept.
func Frontier(points []domain.FrontierPoint) domain.Frontier {
	optimal := make([]string, 0, len(points))
	for i, p := range points {
		dominated := false
		for j, q := range points {
			if i != j && q.Dominates(p) {
				dominated = true
				break
			}
		}
		if !dominated {
			optimal = append(optimal, p.ScenarioID)
		}
	}
	return domain.Frontier{
		Points:        slices.Clone(points),
		ParetoOptimal: optimal,
	}
}

func mechanicsSignature(mechanics []domain.Mechanic) string {
	var sb strings.Builder
	for _, m := range mechanics {
		fmt.Fprintf(&sb, "%s/%s=%g[%s];", m.Department, m.Channel, m.DiscountPct, strings.Join(m.Segments, ","))
	}
	return sb.String()
}

func briefFingerprint(b domain.Brief) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%s|", b.Month,
		b.PromoDateRange.Start.Format(domain.DateLayout), b.PromoDateRange.End.Format(domain.DateLayout))
	fmt.Fprintf(&sb, "%s|%s|%g|%g|",
		strings.Join(b.FocusDepartments, ","), strings.Join(b.Channels, ","),
		b.Constraints.MaxDiscount, b.Constraints.MinMargin)
	for _, dept := range slices.Sorted(maps.Keys(b.Constraints.DepartmentDiscounts)) {
		fmt.Fprintf(&sb, "%s=%g,", dept, b.Constraints.DepartmentDiscounts[dept])
	}
	return sb.String()
}
