package adapters

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/models/store"
)

// Persisted payloads are the canonical API JSON so stored rows and responses never drift.

func MapScenarioDomainToStore(s domain.Scenario, createdAt time.Time) (store.ScenarioRow, error) {
	payload, err := json.Marshal(MapScenarioDomainToApi(s))
	if err != nil {
		return store.ScenarioRow{}, fmt.Errorf("marshal scenario: %w", err)
	}
	return store.ScenarioRow{
		ID:             s.ID,
		Label:          s.Label,
		ScenarioType:   string(s.Type),
		DateRangeStart: s.DateRange.Start,
		DateRangeEnd:   s.DateRange.End,
		Payload:        payload,
		CreatedAt:      createdAt,
	}, nil
}

func MapScenarioStoreToDomain(row store.ScenarioRow) (domain.Scenario, error) {
	var s api.Scenario
	if err := json.Unmarshal(row.Payload, &s); err != nil {
		return domain.Scenario{}, fmt.Errorf("unmarshal scenario %s: %w", row.ID, err)
	}
	return MapScenarioApiToDomain(s)
}

func MapKPIDomainToStore(id string, k domain.KPI, period domain.DateRange, createdAt time.Time) (store.KPIRow, error) {
	payload, err := json.Marshal(MapKPIDomainToApi(k))
	if err != nil {
		return store.KPIRow{}, fmt.Errorf("marshal kpi: %w", err)
	}
	return store.KPIRow{
		ID:               id,
		ScenarioID:       k.ScenarioID,
		PeriodStart:      period.Start,
		PeriodEnd:        period.End,
		TotalSalesValue:  k.TotalSales,
		TotalMarginValue: k.TotalMargin,
		TotalMarginPct:   k.MarginPct(),
		TotalEBIT:        k.TotalEBIT,
		TotalUnits:       k.TotalUnits,
		Payload:          payload,
		CreatedAt:        createdAt,
	}, nil
}

func MapKPIStoreToDomain(row store.KPIRow) (domain.KPI, error) {
	var k api.KPI
	if err := json.Unmarshal(row.Payload, &k); err != nil {
		return domain.KPI{}, fmt.Errorf("unmarshal kpi %s: %w", row.ID, err)
	}
	return MapKPIApiToDomain(k), nil
}

func MapValidationDomainToStore(id string, r domain.ValidationReport, createdAt time.Time) (store.ValidationRow, error) {
	report := MapValidationReportDomainToApi(r)
	payload, err := json.Marshal(report)
	if err != nil {
		return store.ValidationRow{}, fmt.Errorf("marshal validation: %w", err)
	}
	return store.ValidationRow{
		ID:           id,
		ScenarioID:   r.ScenarioID,
		Status:       string(report.Status),
		OverallScore: r.OverallScore,
		Payload:      payload,
		CreatedAt:    createdAt,
	}, nil
}

func MapValidationStoreToDomain(row store.ValidationRow) (domain.ValidationReport, error) {
	var r api.ValidationReport
	if err := json.Unmarshal(row.Payload, &r); err != nil {
		return domain.ValidationReport{}, fmt.Errorf("unmarshal validation %s: %w", row.ID, err)
	}
	return MapValidationReportApiToDomain(r), nil
}

func MapPostMortemDomainToStore(id string, r domain.PostMortemReport, createdAt time.Time) (store.PostMortemRow, error) {
	payload, err := json.Marshal(MapPostMortemDomainToApi(r))
	if err != nil {
		return store.PostMortemRow{}, fmt.Errorf("marshal post-mortem: %w", err)
	}
	return store.PostMortemRow{
		ID:          id,
		ScenarioID:  r.ScenarioID,
		PeriodStart: r.Period.Start,
		PeriodEnd:   r.Period.End,
		Payload:     payload,
		CreatedAt:   createdAt,
	}, nil
}

func MapPostMortemStoreToDomain(row store.PostMortemRow) (domain.PostMortemReport, error) {
	var r api.PostMortemReport
	if err := json.Unmarshal(row.Payload, &r); err != nil {
		return domain.PostMortemReport{}, fmt.Errorf("unmarshal post-mortem %s: %w", row.ID, err)
	}
	return MapPostMortemApiToDomain(r)
}
