package scenario

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/promo-lab/pkg/models/store"
	"github.com/de-tools/promo-lab/pkg/store/sqldb"
)

var ErrNotFound = errors.New("record not found")

// Store persists scenarios together with their KPI, validation and
// post-mortem history. Latest* return the most recently saved row.
type Store interface {
	SaveScenario(ctx context.Context, row store.ScenarioRow) error
	GetScenario(ctx context.Context, id string) (*store.ScenarioRow, error)
	DeleteScenario(ctx context.Context, id string) (bool, error)

	SaveKPI(ctx context.Context, row store.KPIRow) error
	LatestKPI(ctx context.Context, scenarioID string) (*store.KPIRow, error)

	SaveValidation(ctx context.Context, row store.ValidationRow) error
	LatestValidation(ctx context.Context, scenarioID string) (*store.ValidationRow, error)

	SavePostMortem(ctx context.Context, row store.PostMortemRow) error
	LatestPostMortem(ctx context.Context, scenarioID string) (*store.PostMortemRow, error)
	ListPostMortems(ctx context.Context) ([]store.PostMortemRow, error)
}

type scenarioStore struct {
	db      *sql.DB
	dialect sqldb.Dialect
}

func NewStore(db *sql.DB, dialect sqldb.Dialect) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &scenarioStore{
		db:      db,
		dialect: dialect,
	}, nil
}

func (s *scenarioStore) SaveScenario(ctx context.Context, row store.ScenarioRow) error {
	query := `
		INSERT INTO promo_scenarios (
			id, label, scenario_type, date_range_start, date_range_end, payload, created_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?
		)`

	_, err := sqldb.Conn(ctx, s.db).ExecContext(ctx, s.dialect.Rebind(query),
		row.ID,
		row.Label,
		row.ScenarioType,
		row.DateRangeStart,
		row.DateRangeEnd,
		string(row.Payload),
		createdAt(row.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert scenario %s: %w", row.ID, err)
	}
	return nil
}

func (s *scenarioStore) GetScenario(ctx context.Context, id string) (*store.ScenarioRow, error) {
	query := `
		SELECT id, label, COALESCE(scenario_type, ''), date_range_start, date_range_end, payload, created_at
		FROM promo_scenarios
		WHERE id = ?`

	var (
		row     store.ScenarioRow
		payload string
	)
	err := sqldb.Conn(ctx, s.db).QueryRowContext(ctx, s.dialect.Rebind(query), id).Scan(
		&row.ID,
		&row.Label,
		&row.ScenarioType,
		&row.DateRangeStart,
		&row.DateRangeEnd,
		&payload,
		&row.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scenario %s: %w", id, err)
	}
	row.Payload = []byte(payload)
	return &row, nil
}

// DeleteScenario removes the scenario and every report that references it.
func (s *scenarioStore) DeleteScenario(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := sqldb.InTransaction(ctx, s.db, func(ctx context.Context) error {
		conn := sqldb.Conn(ctx, s.db)
		for _, table := range []string{"scenario_kpis", "validation_reports", "postmortem_reports"} {
			query := s.dialect.Rebind("DELETE FROM " + table + " WHERE scenario_id = ?")
			if _, err := conn.ExecContext(ctx, query, id); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}

		res, err := conn.ExecContext(ctx, s.dialect.Rebind("DELETE FROM promo_scenarios WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("delete scenario: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *scenarioStore) SaveKPI(ctx context.Context, row store.KPIRow) error {
	query := `
		INSERT INTO scenario_kpis (
			id, scenario_id, period_start, period_end, total_sales_value, total_margin_value,
			total_margin_pct, total_ebit, total_units, payload, created_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)`

	_, err := sqldb.Conn(ctx, s.db).ExecContext(ctx, s.dialect.Rebind(query),
		row.ID,
		row.ScenarioID,
		row.PeriodStart,
		row.PeriodEnd,
		row.TotalSalesValue,
		row.TotalMarginValue,
		row.TotalMarginPct,
		row.TotalEBIT,
		row.TotalUnits,
		string(row.Payload),
		createdAt(row.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert kpi for %s: %w", row.ScenarioID, err)
	}
	return nil
}

func (s *scenarioStore) LatestKPI(ctx context.Context, scenarioID string) (*store.KPIRow, error) {
	query := `
		SELECT id, scenario_id, period_start, period_end, total_sales_value, total_margin_value,
			total_margin_pct, total_ebit, total_units, payload, created_at
		FROM scenario_kpis
		WHERE scenario_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var (
		row     store.KPIRow
		payload string
	)
	err := sqldb.Conn(ctx, s.db).QueryRowContext(ctx, s.dialect.Rebind(query), scenarioID).Scan(
		&row.ID,
		&row.ScenarioID,
		&row.PeriodStart,
		&row.PeriodEnd,
		&row.TotalSalesValue,
		&row.TotalMarginValue,
		&row.TotalMarginPct,
		&row.TotalEBIT,
		&row.TotalUnits,
		&payload,
		&row.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest kpi for %s: %w", scenarioID, err)
	}
	row.Payload = []byte(payload)
	return &row, nil
}

func (s *scenarioStore) SaveValidation(ctx context.Context, row store.ValidationRow) error {
	query := `
		INSERT INTO validation_reports (
			id, scenario_id, status, overall_score, payload, created_at
		) VALUES (
			?, ?, ?, ?, ?, ?
		)`

	_, err := sqldb.Conn(ctx, s.db).ExecContext(ctx, s.dialect.Rebind(query),
		row.ID,
		row.ScenarioID,
		row.Status,
		row.OverallScore,
		string(row.Payload),
		createdAt(row.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert validation for %s: %w", row.ScenarioID, err)
	}
	return nil
}

func (s *scenarioStore) LatestValidation(ctx context.Context, scenarioID string) (*store.ValidationRow, error) {
	query := `
		SELECT id, scenario_id, status, overall_score, payload, created_at
		FROM validation_reports
		WHERE scenario_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var (
		row     store.ValidationRow
		payload string
	)
	err := sqldb.Conn(ctx, s.db).QueryRowContext(ctx, s.dialect.Rebind(query), scenarioID).Scan(
		&row.ID,
		&row.ScenarioID,
		&row.Status,
		&row.OverallScore,
		&payload,
		&row.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest validation for %s: %w", scenarioID, err)
	}
	row.Payload = []byte(payload)
	return &row, nil
}

func (s *scenarioStore) SavePostMortem(ctx context.Context, row store.PostMortemRow) error {
	query := `
		INSERT INTO postmortem_reports (
			id, scenario_id, period_start, period_end, payload, created_at
		) VALUES (
			?, ?, ?, ?, ?, ?
		)`

	_, err := sqldb.Conn(ctx, s.db).ExecContext(ctx, s.dialect.Rebind(query),
		row.ID,
		row.ScenarioID,
		row.PeriodStart,
		row.PeriodEnd,
		string(row.Payload),
		createdAt(row.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert post-mortem for %s: %w", row.ScenarioID, err)
	}
	return nil
}

func (s *scenarioStore) LatestPostMortem(ctx context.Context, scenarioID string) (*store.PostMortemRow, error) {
	query := `
		SELECT id, scenario_id, period_start, period_end, payload, created_at
		FROM postmortem_reports
		WHERE scenario_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var (
		row     store.PostMortemRow
		payload string
	)
	err := sqldb.Conn(ctx, s.db).QueryRowContext(ctx, s.dialect.Rebind(query), scenarioID).Scan(
		&row.ID,
		&row.ScenarioID,
		&row.PeriodStart,
		&row.PeriodEnd,
		&payload,
		&row.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest post-mortem for %s: %w", scenarioID, err)
	}
	row.Payload = []byte(payload)
	return &row, nil
}

// ListPostMortems returns every stored post-mortem, oldest first.
func (s *scenarioStore) ListPostMortems(ctx context.Context) ([]store.PostMortemRow, error) {
	query := `
		SELECT id, scenario_id, period_start, period_end, payload, created_at
		FROM postmortem_reports
		ORDER BY created_at, id`

	rows, err := sqldb.Conn(ctx, s.db).QueryContext(ctx, s.dialect.Rebind(query))
	if err != nil {
		return nil, fmt.Errorf("list post-mortems: %w", err)
	}
	defer rows.Close()

	var out []store.PostMortemRow
	for rows.Next() {
		var (
			row     store.PostMortemRow
			payload string
		)
		if err := rows.Scan(&row.ID, &row.ScenarioID, &row.PeriodStart, &row.PeriodEnd, &payload, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post-mortem row: %w", err)
		}
		row.Payload = []byte(payload)
		out = append(out, row)
	}
	return out, rows.Err()
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
