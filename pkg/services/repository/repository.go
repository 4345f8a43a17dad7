package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/store/scenario"
	"github.com/de-tools/promo-lab/pkg/store/sqldb"
	"github.com/google/uuid"
)

// Repository stores domain scenarios and their reports. Missing records come
// back as ScenarioNotFound errors.
type Repository struct {
	db    *sql.DB
	store scenario.Store
	now   func() time.Time
}

func NewRepository(db *sql.DB, store scenario.Store) *Repository {
	return &Repository{
		db:    db,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Atomic runs fn in one transaction; every Save made with the ctx it receives
// commits or rolls back together.
func (r *Repository) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return sqldb.InTransaction(ctx, r.db, fn)
}

func (r *Repository) SaveScenario(ctx context.Context, s domain.Scenario) error {
	row, err := adapters.MapScenarioDomainToStore(s, r.now())
	if err != nil {
		return err
	}
	return r.store.SaveScenario(ctx, row)
}

func (r *Repository) GetScenario(ctx context.Context, id string) (domain.Scenario, error) {
	row, err := r.store.GetScenario(ctx, id)
	if err != nil {
		return domain.Scenario{}, notFound(err, "scenario %s not found", id)
	}
	return adapters.MapScenarioStoreToDomain(*row)
}

func (r *Repository) DeleteScenario(ctx context.Context, id string) (bool, error) {
	return r.store.DeleteScenario(ctx, id)
}

func (r *Repository) SaveKPI(ctx context.Context, kpi domain.KPI, period domain.DateRange) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate kpi id: %w", err)
	}
	row, err := adapters.MapKPIDomainToStore(id.String(), kpi, period, r.now())
	if err != nil {
		return err
	}
	return r.store.SaveKPI(ctx, row)
}

func (r *Repository) LatestKPI(ctx context.Context, scenarioID string) (domain.KPI, error) {
	row, err := r.store.LatestKPI(ctx, scenarioID)
	if err != nil {
		return domain.KPI{}, notFound(err, "no forecast KPI for scenario %s", scenarioID)
	}
	return adapters.MapKPIStoreToDomain(*row)
}

func (r *Repository) SaveValidation(ctx context.Context, report domain.ValidationReport) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate validation id: %w", err)
	}
	row, err := adapters.MapValidationDomainToStore(id.String(), report, r.now())
	if err != nil {
		return err
	}
	return r.store.SaveValidation(ctx, row)
}

func (r *Repository) LatestValidation(ctx context.Context, scenarioID string) (domain.ValidationReport, error) {
	row, err := r.store.LatestValidation(ctx, scenarioID)
	if err != nil {
		return domain.ValidationReport{}, notFound(err, "no validation for scenario %s", scenarioID)
	}
	return adapters.MapValidationStoreToDomain(*row)
}

func (r *Repository) SavePostMortem(ctx context.Context, report domain.PostMortemReport) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate post-mortem id: %w", err)
	}
	row, err := adapters.MapPostMortemDomainToStore(id.String(), report, r.now())
	if err != nil {
		return err
	}
	return r.store.SavePostMortem(ctx, row)
}

func (r *Repository) LatestPostMortem(ctx context.Context, scenarioID string) (domain.PostMortemReport, error) {
	row, err := r.store.LatestPostMortem(ctx, scenarioID)
	if err != nil {
		return domain.PostMortemReport{}, notFound(err, "no post-mortem for scenario %s", scenarioID)
	}
	return adapters.MapPostMortemStoreToDomain(*row)
}

// ListPostMortems returns the most recent post-mortem of every scenario.
func (r *Repository) ListPostMortems(ctx context.Context) ([]domain.PostMortemReport, error) {
	rows, err := r.store.ListPostMortems(ctx)
	if err != nil {
		return nil, err
	}
	var (
		out   []domain.PostMortemReport
		index = make(map[string]int)
	)
	for _, row := range rows {
		report, err := adapters.MapPostMortemStoreToDomain(row)
		if err != nil {
			return nil, err
		}
		if i, ok := index[row.ScenarioID]; ok {
			out[i] = report
			continue
		}
		index[row.ScenarioID] = len(out)
		out = append(out, report)
	}
	return out, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, scenario.ErrNotFound) {
		return domain.WrapError(domain.KindScenarioNotFound, err, format, args...)
	}
	return err
}
