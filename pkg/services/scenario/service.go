package scenario

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/services/archive"
	"github.com/de-tools/promo-lab/pkg/services/events"
	"github.com/de-tools/promo-lab/pkg/store/cache"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/de-tools/promo-lab/pkg/services/scenario")

type Builder interface {
	Build(ctx context.Context, brief domain.Brief, scenarioType domain.ScenarioType, params domain.BuildParameters) (domain.Scenario, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, s domain.Scenario) (domain.KPI, error)
}

type Validator interface {
	Validate(s domain.Scenario, kpi domain.KPI) domain.ValidationReport
}

type Optimizer interface {
	Optimize(ctx context.Context, brief domain.Brief, objectives domain.Objectives) (domain.OptimizationResult, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, scenarioID string, actuals *domain.Actuals, period domain.DateRange) (domain.PostMortemReport, error)
}

type Repository interface {
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
	SaveScenario(ctx context.Context, s domain.Scenario) error
	GetScenario(ctx context.Context, id string) (domain.Scenario, error)
	DeleteScenario(ctx context.Context, id string) (bool, error)
	SaveKPI(ctx context.Context, kpi domain.KPI, period domain.DateRange) error
	LatestKPI(ctx context.Context, scenarioID string) (domain.KPI, error)
	SaveValidation(ctx context.Context, report domain.ValidationReport) error
	LatestValidation(ctx context.Context, scenarioID string) (domain.ValidationReport, error)
	SavePostMortem(ctx context.Context, report domain.PostMortemReport) error
	LatestPostMortem(ctx context.Context, scenarioID string) (domain.PostMortemReport, error)
}

// RevisionSource fingerprints the baseline so cached KPIs expire when it changes.
type RevisionSource interface {
	Revision(ctx context.Context) (string, error)
}

// Service runs the scenario pipeline and keeps its results.
type Service interface {
	Create(ctx context.Context, brief domain.Brief, scenarioType domain.ScenarioType, params domain.BuildParameters) (domain.ScenarioBundle, error)
	Evaluate(ctx context.Context, s domain.Scenario) (domain.KPI, error)
	Validate(ctx context.Context, s domain.Scenario, kpi *domain.KPI) (domain.ValidationReport, error)
	Compare(ctx context.Context, set Set) (domain.Comparison, error)
	Get(ctx context.Context, id string) (domain.ScenarioBundle, error)
	Reevaluate(ctx context.Context, id string) (domain.KPI, domain.ValidationReport, error)
	Delete(ctx context.Context, id string) (bool, error)
	Optimize(ctx context.Context, brief domain.Brief, objectives domain.Objectives) (domain.OptimizationResult, error)
	Frontier(ctx context.Context, set Set) ([]domain.Scenario, domain.Frontier, error)
	AnalyzePostMortem(ctx context.Context, scenarioID string, actuals *domain.Actuals, period domain.DateRange) (domain.PostMortemReport, error)
	LatestPostMortem(ctx context.Context, scenarioID string) (domain.PostMortemReport, error)
}

// Set names scenarios either inline or by stored id; inline scenarios come first.
type Set struct {
	Scenarios []domain.Scenario
	IDs       []string
}

type Settings struct {
	// Workers bounds concurrent evaluations in compare and frontier (default: 4)
	Workers int
	// CacheTTL is how long evaluation results stay cached (default: 10m)
	CacheTTL time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Workers:  4,
		CacheTTL: 10 * time.Minute,
	}
}

type Dependencies struct {
	Builder    Builder
	Evaluator  Evaluator
	Validator  Validator
	Optimizer  Optimizer
	Analyzer   Analyzer
	Repository Repository
	Revisions  RevisionSource
	Cache      cache.Cache
	Publisher  events.Publisher
	Archiver   archive.Archiver
}

type service struct {
	Dependencies
	settings Settings
	now      func() time.Time
}

func NewService(deps Dependencies, settings Settings) Service {
	if settings.Workers <= 0 {
		settings.Workers = 1
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemory()
	}
	if deps.Publisher == nil {
		deps.Publisher = &events.LogPublisher{}
	}
	if deps.Archiver == nil {
		deps.Archiver = archive.NopArchiver{}
	}
	return &service{
		Dependencies: deps,
		settings:     settings,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(
	ctx context.Context,
	brief domain.Brief,
	scenarioType domain.ScenarioType,
	params domain.BuildParameters,
) (res domain.ScenarioBundle, err error) {
	ctx, span := tracer.Start(ctx, "scenario.Create", trace.WithAttributes(
		attribute.String("scenario.type", string(scenarioType)),
	))
	defer func() { finish(span, err) }()

	sc, err := s.Builder.Build(ctx, brief, scenarioType, params)
	if err != nil {
		return domain.ScenarioBundle{}, err
	}
	span.SetAttributes(attribute.String("scenario.id", sc.ID))

	kpi, err := s.evaluate(ctx, sc)
	if err != nil {
		return domain.ScenarioBundle{}, err
	}
	report, err := s.validate(ctx, sc, kpi)
	if err != nil {
		return domain.ScenarioBundle{}, err
	}

	err = s.Repository.Atomic(ctx, func(ctx context.Context) error {
		if err := s.Repository.SaveScenario(ctx, sc); err != nil {
			return err
		}
		if err := s.Repository.SaveKPI(ctx, kpi, sc.DateRange); err != nil {
			return err
		}
		return s.Repository.SaveValidation(ctx, report)
	})
	if err != nil {
		return domain.ScenarioBundle{}, fmt.Errorf("persist scenario %s: %w", sc.ID, err)
	}

	s.publish(ctx, events.ScenarioCreated, sc.ID, map[string]any{
		"label":  sc.Label,
		"status": adapters.MapStatusDomainToApi(report.Status),
	})
	return domain.ScenarioBundle{Scenario: sc, KPI: &kpi, Validation: &report}, nil
}

func (s *service) Evaluate(ctx context.Context, sc domain.Scenario) (kpi domain.KPI, err error) {
	ctx, span := tracer.Start(ctx, "scenario.Evaluate")
	defer func() { finish(span, err) }()
	return s.evaluate(ctx, sc)
}

// Validate evaluates the scenario first when no KPI is supplied.
func (s *service) Validate(ctx context.Context, sc domain.Scenario, kpi *domain.KPI) (report domain.ValidationReport, err error) {
	ctx, span := tracer.Start(ctx, "scenario.Validate")
	defer func() { finish(span, err) }()

	var k domain.KPI
	if kpi != nil {
		k = *kpi
	} else {
		k, err = s.evaluate(ctx, sc)
		if err != nil {
			return domain.ValidationReport{}, err
		}
	}
	return s.validate(ctx, sc, k)
}

func (s *service) Get(ctx context.Context, id string) (domain.ScenarioBundle, error) {
	sc, err := s.Repository.GetScenario(ctx, id)
	if err != nil {
		return domain.ScenarioBundle{}, err
	}
	bundle := domain.ScenarioBundle{Scenario: sc}

	kpi, err := s.Repository.LatestKPI(ctx, id)
	switch {
	case err == nil:
		bundle.KPI = &kpi
	case !domain.IsKind(err, domain.KindScenarioNotFound):
		return domain.ScenarioBundle{}, err
	}

	report, err := s.Repository.LatestValidation(ctx, id)
	switch {
	case err == nil:
		bundle.Validation = &report
	case !domain.IsKind(err, domain.KindScenarioNotFound):
		return domain.ScenarioBundle{}, err
	}
	return bundle, nil
}

func (s *service) Reevaluate(ctx context.Context, id string) (kpi domain.KPI, report domain.ValidationReport, err error) {
	ctx, span := tracer.Start(ctx, "scenario.Reevaluate", trace.WithAttributes(attribute.String("scenario.id", id)))
	defer func() { finish(span, err) }()

	sc, err := s.Repository.GetScenario(ctx, id)
	if err != nil {
		return domain.KPI{}, domain.ValidationReport{}, err
	}
	kpi, err = s.evaluate(ctx, sc)
	if err != nil {
		return domain.KPI{}, domain.ValidationReport{}, err
	}
	report, err = s.validate(ctx, sc, kpi)
	if err != nil {
		return domain.KPI{}, domain.ValidationReport{}, err
	}

	err = s.Repository.Atomic(ctx, func(ctx context.Context) error {
		if err := s.Repository.SaveKPI(ctx, kpi, sc.DateRange); err != nil {
			return err
		}
		return s.Repository.SaveValidation(ctx, report)
	})
	if err != nil {
		return domain.KPI{}, domain.ValidationReport{}, fmt.Errorf("persist evaluation of %s: %w", id, err)
	}

	s.publish(ctx, events.ScenarioEvaluated, id, map[string]any{
		"total_sales": kpi.TotalSales,
		"total_ebit":  kpi.TotalEBIT,
		"status":      adapters.MapStatusDomainToApi(report.Status),
	})
	return kpi, report, nil
}

func (s *service) Delete(ctx context.Context, id string) (bool, error) {
	keys := s.cachedKeys(ctx, id)

	deleted, err := s.Repository.DeleteScenario(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete scenario %s: %w", id, err)
	}
	if !deleted {
		return false, nil
	}

	if len(keys) > 0 {
		if err := s.Cache.Delete(ctx, keys...); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("scenario_id", id).Msg("failed to evict cached results")
		}
	}
	s.publish(ctx, events.ScenarioDeleted, id, nil)
	return true, nil
}

// cachedKeys lists the cache keys a stored scenario's latest results live
// under. Lookup failures only shrink the list.
func (s *service) cachedKeys(ctx context.Context, id string) []string {
	sc, err := s.Repository.GetScenario(ctx, id)
	if err != nil {
		return nil
	}
	var keys []string
	if revision, err := s.Revisions.Revision(ctx); err == nil {
		keys = append(keys, kpiKey(revision, sc))
	}
	if kpi, err := s.Repository.LatestKPI(ctx, id); err == nil {
		keys = append(keys, validationKey(sc, kpi))
	}
	return keys
}

func (s *service) Optimize(
	ctx context.Context,
	brief domain.Brief,
	objectives domain.Objectives,
) (res domain.OptimizationResult, err error) {
	ctx, span := tracer.Start(ctx, "scenario.Optimize")
	defer func() { finish(span, err) }()

	res, err = s.Optimizer.Optimize(ctx, brief, objectives)
	if err != nil {
		return domain.OptimizationResult{}, err
	}
	span.SetAttributes(attribute.Int("optimizer.candidates", len(res.Scenarios)))
	return res, nil
}

func (s *service) AnalyzePostMortem(
	ctx context.Context,
	scenarioID string,
	actuals *domain.Actuals,
	period domain.DateRange,
) (report domain.PostMortemReport, err error) {
	ctx, span := tracer.Start(ctx, "scenario.AnalyzePostMortem", trace.WithAttributes(attribute.String("scenario.id", scenarioID)))
	defer func() { finish(span, err) }()

	report, err = s.Analyzer.Analyze(ctx, scenarioID, actuals, period)
	if err != nil {
		return domain.PostMortemReport{}, err
	}
	if err := s.Repository.SavePostMortem(ctx, report); err != nil {
		return domain.PostMortemReport{}, fmt.Errorf("persist post-mortem of %s: %w", scenarioID, err)
	}

	payload := map[string]any{"actual_source": report.ActualSource}
	key, err := s.Archiver.ArchivePostMortem(ctx, report)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("scenario_id", scenarioID).Msg("failed to archive post-mortem")
	} else if key != "" {
		payload["archive_key"] = key
	}
	s.publish(ctx, events.PostMortemCompleted, scenarioID, payload)
	return report, nil
}

func (s *service) LatestPostMortem(ctx context.Context, scenarioID string) (domain.PostMortemReport, error) {
	return s.Repository.LatestPostMortem(ctx, scenarioID)
}

// evaluate serves the KPI from cache when the scenario and the baseline
// revision are unchanged.
func (s *service) evaluate(ctx context.Context, sc domain.Scenario) (domain.KPI, error) {
	logger := zerolog.Ctx(ctx)

	revision, err := s.Revisions.Revision(ctx)
	if err != nil {
		return domain.KPI{}, fmt.Errorf("baseline revision: %w", err)
	}
	key := kpiKey(revision, sc)

	var cached api.KPI
	if s.load(ctx, key, &cached) {
		return adapters.MapKPIApiToDomain(cached), nil
	}

	kpi, err := s.Evaluator.Evaluate(ctx, sc)
	if err != nil {
		return domain.KPI{}, err
	}
	s.store(ctx, key, adapters.MapKPIDomainToApi(kpi))
	logger.Debug().Str("scenario_id", sc.ID).Float64("total_sales", kpi.TotalSales).Msg("scenario evaluated")
	return kpi, nil
}

func (s *service) validate(ctx context.Context, sc domain.Scenario, kpi domain.KPI) (domain.ValidationReport, error) {
	key := validationKey(sc, kpi)

	var cached api.ValidationReport
	if s.load(ctx, key, &cached) {
		return adapters.MapValidationReportApiToDomain(cached), nil
	}

	report := s.Validator.Validate(sc, kpi)
	s.store(ctx, key, adapters.MapValidationReportDomainToApi(report))
	return report, nil
}

// load and store treat the cache as best effort: failures are logged only.
func (s *service) load(ctx context.Context, key string, v any) bool {
	data, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("discarding malformed cache entry")
		return false
	}
	return true
}

func (s *service) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = s.Cache.Set(ctx, key, data, s.settings.CacheTTL)
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (s *service) publish(ctx context.Context, eventType, scenarioID string, payload any) {
	err := s.Publisher.Publish(ctx, events.Event{
		Type:       eventType,
		ScenarioID: scenarioID,
		OccurredAt: s.now(),
		Payload:    payload,
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("event", eventType).Str("scenario_id", scenarioID).Msg("failed to publish event")
	}
}

// resolve loads the scenarios of a set and evaluates and validates each one.
func (s *service) resolve(ctx context.Context, set Set) ([]domain.ComparisonEntry, error) {
	scenarios := append([]domain.Scenario{}, set.Scenarios...)
	for _, id := range set.IDs {
		sc, err := s.Repository.GetScenario(ctx, id)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	if len(scenarios) == 0 {
		return nil, domain.NewError(domain.KindInvalidInput, "at least one scenario or scenario id is required")
	}

	entries := make([]domain.ComparisonEntry, len(scenarios))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Workers)
	for i, sc := range scenarios {
		g.Go(func() error {
			kpi, err := s.evaluate(gCtx, sc)
			if err != nil {
				return err
			}
			report, err := s.validate(gCtx, sc, kpi)
			if err != nil {
				return err
			}
			entries[i] = domain.ComparisonEntry{Scenario: sc, KPI: kpi, Validation: report}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func kpiKey(revision string, sc domain.Scenario) string {
	return "kpi:" + revision + ":" + fingerprint(adapters.MapScenarioDomainToApi(sc))
}

func validationKey(sc domain.Scenario, kpi domain.KPI) string {
	return "validation:" + fingerprint(struct {
		Scenario api.Scenario `json:"scenario"`
		KPI      api.KPI      `json:"kpi"`
	}{adapters.MapScenarioDomainToApi(sc), adapters.MapKPIDomainToApi(kpi)})
}

func fingerprint(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", v))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
