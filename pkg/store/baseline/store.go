package baseline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/de-tools/promo-lab/pkg/models/store"
	"github.com/de-tools/promo-lab/pkg/store/sqldb"
)

// Store is the read contract over historical sales facts, uplift coefficients
// and customer segments. The Add* methods back the ingestion path and are
// rejected on read-only sources.
type Store interface {
	GetTotals(ctx context.Context, filter store.SalesFilter) (store.SalesTotals, error)
	GetBreakdown(ctx context.Context, filter store.SalesFilter) ([]store.SalesSlice, error)
	ListDepartments(ctx context.Context) ([]string, error)
	ListCoefficients(ctx context.Context, departments, channels []string) ([]store.UpliftCoefficient, error)
	ListSegments(ctx context.Context, offset, limit int) ([]store.Segment, int64, error)
	GetSegments(ctx context.Context, ids []string) ([]store.Segment, error)
	Revision(ctx context.Context) (string, error)
	ListMonths(ctx context.Context) ([]string, error)
	ListTargets(ctx context.Context) ([]store.Target, error)
	GetTarget(ctx context.Context, month string) (*store.Target, error)
	GetQualityStats(ctx context.Context, lookbackDays int) (store.QualityStats, error)

	AddSales(ctx context.Context, records []store.SalesRecord) error
	AddCoefficients(ctx context.Context, coefficients []store.UpliftCoefficient) error
	AddSegments(ctx context.Context, segments []store.Segment) error
	AddTargets(ctx context.Context, targets []store.Target) error
}

type baselineStore struct {
	db       *sql.DB
	dialect  sqldb.Dialect
	readOnly bool
}

func NewStore(db *sql.DB, dialect sqldb.Dialect) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &baselineStore{
		db:       db,
		dialect:  dialect,
		readOnly: dialect == sqldb.DialectDatabricks,
	}, nil
}

func (s *baselineStore) GetTotals(ctx context.Context, filter store.SalesFilter) (store.SalesTotals, error) {
	where, args := salesWhere(filter)
	query := `
		SELECT COUNT(*), COALESCE(SUM(sales_value), 0), COALESCE(SUM(margin_value), 0), COALESCE(SUM(units), 0)
		FROM sales_aggregated
		WHERE ` + where

	var totals store.SalesTotals
	err := sqldb.Conn(ctx, s.db).QueryRowContext(ctx, s.dialect.Rebind(query), args...).
		Scan(&totals.Rows, &totals.SalesValue, &totals.MarginValue, &totals.Units)
	if err != nil {
		return store.SalesTotals{}, fmt.Errorf("query sales totals: %w", err)
	}
	return totals, nil
}

func (s *baselineStore) GetBreakdown(ctx context.Context, filter store.SalesFilter) ([]store.SalesSlice, error) {
	where, args := salesWhere(filter)
	query := `
		SELECT department, channel, COUNT(*), SUM(sales_value), SUM(margin_value), SUM(units)
		FROM sales_aggregated
		WHERE ` + where + `
		GROUP BY department, channel
		ORDER BY department, channel`

	rows, err := sqldb.Conn(ctx, s.db).QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query sales breakdown: %w", err)
	}
	defer rows.Close()

	slices := make([]store.SalesSlice, 0)
	for rows.Next() {
		var slice store.SalesSlice
		if err := rows.Scan(
			&slice.Department,
			&slice.Channel,
			&slice.Rows,
			&slice.SalesValue,
			&slice.MarginValue,
			&slice.Units,
		); err != nil {
			return nil, err
		}
		slices = append(slices, slice)
	}
	return slices, rows.Err()
}

func (s *baselineStore) ListDepartments(ctx context.Context) ([]string, error) {
	query := `
		SELECT department FROM sales_aggregated
		UNION
		SELECT department FROM uplift_coefficients
		ORDER BY 1`

	rows, err := sqldb.Conn(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query departments: %w", err)
	}
	defer rows.Close()

	departments := make([]string, 0)
	for rows.Next() {
		var department string
		if err := rows.Scan(&department); err != nil {
			return nil, err
		}
		departments = append(departments, department)
	}
	return departments, rows.Err()
}

func (s *baselineStore) ListCoefficients(
	ctx context.Context,
	departments, channels []string,
) ([]store.UpliftCoefficient, error) {
	conditions := []string{"1 = 1"}
	args := make([]any, 0, len(departments)+len(channels))
	if len(departments) > 0 {
		conditions = append(conditions, fmt.Sprintf("department IN (%s)", sqldb.Placeholders(len(departments))))
		args = append(args, toAny(departments)...)
	}
	if len(channels) > 0 {
		conditions = append(conditions, fmt.Sprintf("channel IN (%s)", sqldb.Placeholders(len(channels))))
		args = append(args, toAny(channels)...)
	}

	query := `
		SELECT department, channel, discount_band, uplift_sales_pct, uplift_units_pct,
			margin_impact_pct, COALESCE(confidence, 0), COALESCE(sample_size, 0), model_version
		FROM uplift_coefficients
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY department, channel, discount_band`

	rows, err := sqldb.Conn(ctx, s.db).QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query uplift coefficients: %w", err)
	}
	defer rows.Close()
	return scanCoefficientRows(rows)
}

func (s *baselineStore) ListSegments(ctx context.Context, offset, limit int) ([]store.Segment, int64, error) {
	conn := sqldb.Conn(ctx, s.db)

	var total int64
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM segments").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count segments: %w", err)
	}

	query := segmentColumns + `
		FROM segments
		ORDER BY segment_id
		LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, s.dialect.Rebind(query), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	segments, err := scanSegmentRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return segments, total, nil
}

func (s *baselineStore) GetSegments(ctx context.Context, ids []string) ([]store.Segment, error) {
	if len(ids) == 0 {
		return []store.Segment{}, nil
	}
	query := segmentColumns + fmt.Sprintf(`
		FROM segments
		WHERE segment_id IN (%s)
		ORDER BY segment_id`, sqldb.Placeholders(len(ids)))

	rows, err := sqldb.Conn(ctx, s.db).QueryContext(ctx, s.dialect.Rebind(query), toAny(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query segments by id: %w", err)
	}
	defer rows.Close()
	return scanSegmentRows(rows)
}

// Revision fingerprints the current baseline content. It changes whenever
// facts, coefficients or segments are added.
func (s *baselineStore) Revision(ctx context.Context) (string, error) {
	conn := sqldb.Conn(ctx, s.db)

	var (
		salesRows, coefRows, segmentRows int64
		salesSum, coefSum                float64
	)
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(sales_value), 0) FROM sales_aggregated`,
	).Scan(&salesRows, &salesSum)
	if err != nil {
		return "", fmt.Errorf("sales revision: %w", err)
	}
	err = conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(uplift_sales_pct + uplift_units_pct + margin_impact_pct), 0) FROM uplift_coefficients`,
	).Scan(&coefRows, &coefSum)
	if err != nil {
		return "", fmt.Errorf("coefficient revision: %w", err)
	}
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM segments`).Scan(&segmentRows); err != nil {
		return "", fmt.Errorf("segment revision: %w", err)
	}

	return fmt.Sprintf("s%d-%.4f.c%d-%.6f.g%d", salesRows, salesSum, coefRows, coefSum, segmentRows), nil
}

// ListMonths returns the YYYY-MM months that hold sales facts, newest first.
func (s *baselineStore) ListMonths(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT CAST(EXTRACT(YEAR FROM date) AS INTEGER), CAST(EXTRACT(MONTH FROM date) AS INTEGER)
		FROM sales_aggregated
		ORDER BY 1 DESC, 2 DESC`

	rows, err := sqldb.Conn(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query months: %w", err)
	}
	defer rows.Close()

	months := make([]string, 0)
	for rows.Next() {
		var year, month int64
		if err := rows.Scan(&year, &month); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, fmt.Sprintf("%04d-%02d", year, month))
	}
	return months, rows.Err()
}

func (s *baselineStore) ListTargets(ctx context.Context) ([]store.Target, error) {
	rows, err := sqldb.Conn(ctx, s.db).QueryContext(ctx, targetColumns+`
		FROM targets
		ORDER BY month`)
	if err != nil {
		return nil, fmt.Errorf("query targets: %w", err)
	}
	defer rows.Close()

	targets := make([]store.Target, 0)
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// GetTarget returns nil when no target is stored for month.
func (s *baselineStore) GetTarget(ctx context.Context, month string) (*store.Target, error) {
	row := sqldb.Conn(ctx, s.db).QueryRowContext(ctx, s.dialect.Rebind(targetColumns+`
		FROM targets
		WHERE month = ?`), month)
	t, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetQualityStats summarizes the facts of the lookbackDays days ending at the
// latest fact date. Rows is zero when no facts are loaded.
func (s *baselineStore) GetQualityStats(ctx context.Context, lookbackDays int) (store.QualityStats, error) {
	conn := sqldb.Conn(ctx, s.db)

	var latest sql.NullTime
	if err := conn.QueryRowContext(ctx, `SELECT MAX(date) FROM sales_aggregated`).Scan(&latest); err != nil {
		return store.QualityStats{}, fmt.Errorf("query latest fact date: %w", err)
	}
	if !latest.Valid {
		return store.QualityStats{}, nil
	}

	query := `
		SELECT COUNT(*), COUNT(DISTINCT date), MIN(date), MAX(date),
			COUNT(CASE WHEN sales_value < 0 OR units < 0 OR margin_value > sales_value
				OR COALESCE(discount_pct, 0) < 0 OR COALESCE(discount_pct, 0) > 100 THEN 1 END),
			COUNT(CASE WHEN COALESCE(promo_flag, FALSE) <> (COALESCE(discount_pct, 0) > 0) THEN 1 END)
		FROM sales_aggregated
		WHERE date >= ? AND date <= ?`

	start := latest.Time.AddDate(0, 0, 1-lookbackDays)
	var stats store.QualityStats
	err := conn.QueryRowContext(ctx, s.dialect.Rebind(query), start, latest.Time).Scan(
		&stats.Rows,
		&stats.Days,
		&stats.First,
		&stats.Last,
		&stats.InvalidRows,
		&stats.InconsistentRows,
	)
	if err != nil {
		return store.QualityStats{}, fmt.Errorf("query quality stats: %w", err)
	}
	return stats, nil
}

func (s *baselineStore) AddSales(ctx context.Context, records []store.SalesRecord) error {
	if len(records) == 0 {
		return nil
	}
	if s.readOnly {
		return fmt.Errorf("baseline source %s is read-only", s.dialect)
	}

	query := `
		INSERT INTO sales_aggregated (
			date, channel, department, promo_flag, discount_pct, sales_value, margin_value, units
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?
		)`

	stmt, err := sqldb.Conn(ctx, s.db).PrepareContext(ctx, s.dialect.Rebind(query))
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		_, err = stmt.ExecContext(ctx,
			record.Date,
			record.Channel,
			record.Department,
			record.PromoFlag,
			record.DiscountPct,
			record.SalesValue,
			record.MarginValue,
			record.Units,
		)
		if err != nil {
			return fmt.Errorf("insert sales record: %w", err)
		}
	}
	return nil
}

func (s *baselineStore) AddCoefficients(ctx context.Context, coefficients []store.UpliftCoefficient) error {
	if len(coefficients) == 0 {
		return nil
	}
	if s.readOnly {
		return fmt.Errorf("baseline source %s is read-only", s.dialect)
	}

	query := `
		INSERT INTO uplift_coefficients (
			department, channel, discount_band, uplift_sales_pct, uplift_units_pct,
			margin_impact_pct, confidence, sample_size, model_version
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?
		)
		ON CONFLICT (department, channel, discount_band) DO UPDATE SET
			uplift_sales_pct = EXCLUDED.uplift_sales_pct,
			uplift_units_pct = EXCLUDED.uplift_units_pct,
			margin_impact_pct = EXCLUDED.margin_impact_pct,
			confidence = EXCLUDED.confidence,
			sample_size = EXCLUDED.sample_size,
			model_version = EXCLUDED.model_version`

	return sqldb.InTransaction(ctx, s.db, func(ctx context.Context) error {
		stmt, err := sqldb.Conn(ctx, s.db).PrepareContext(ctx, s.dialect.Rebind(query))
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, c := range coefficients {
			_, err = stmt.ExecContext(ctx,
				c.Department,
				c.Channel,
				c.DiscountBand,
				c.UpliftSalesPct,
				c.UpliftUnitsPct,
				c.MarginImpactPct,
				c.Confidence,
				c.SampleSize,
				c.ModelVersion,
			)
			if err != nil {
				return fmt.Errorf("upsert coefficient %s/%s/%s: %w", c.Department, c.Channel, c.DiscountBand, err)
			}
		}
		return nil
	})
}

func (s *baselineStore) AddSegments(ctx context.Context, segments []store.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	if s.readOnly {
		return fmt.Errorf("baseline source %s is read-only", s.dialect)
	}

	query := `
		INSERT INTO segments (
			segment_id, name, description, share_of_customers, share_of_revenue,
			avg_basket_value, discount_sensitivity
		) VALUES (
			?, ?, ?, ?, ?, ?, ?
		)
		ON CONFLICT (segment_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			share_of_customers = EXCLUDED.share_of_customers,
			share_of_revenue = EXCLUDED.share_of_revenue,
			avg_basket_value = EXCLUDED.avg_basket_value,
			discount_sensitivity = EXCLUDED.discount_sensitivity`

	return sqldb.InTransaction(ctx, s.db, func(ctx context.Context) error {
		stmt, err := sqldb.Conn(ctx, s.db).PrepareContext(ctx, s.dialect.Rebind(query))
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, seg := range segments {
			_, err = stmt.ExecContext(ctx,
				seg.SegmentID,
				seg.Name,
				seg.Description,
				seg.ShareOfCustomers,
				seg.ShareOfRevenue,
				seg.AvgBasketValue,
				seg.DiscountSensitivity,
			)
			if err != nil {
				return fmt.Errorf("upsert segment %s: %w", seg.SegmentID, err)
			}
		}
		return nil
	})
}

func (s *baselineStore) AddTargets(ctx context.Context, targets []store.Target) error {
	if len(targets) == 0 {
		return nil
	}
	if s.readOnly {
		return fmt.Errorf("baseline source %s is read-only", s.dialect)
	}

	query := `
		INSERT INTO targets (
			month, sales_target, margin_pct_target, units_target
		) VALUES (
			?, ?, ?, ?
		)
		ON CONFLICT (month) DO UPDATE SET
			sales_target = EXCLUDED.sales_target,
			margin_pct_target = EXCLUDED.margin_pct_target,
			units_target = EXCLUDED.units_target`

	return sqldb.InTransaction(ctx, s.db, func(ctx context.Context) error {
		stmt, err := sqldb.Conn(ctx, s.db).PrepareContext(ctx, s.dialect.Rebind(query))
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, t := range targets {
			var units sql.NullFloat64
			if t.UnitsTarget != nil {
				units = sql.NullFloat64{Float64: *t.UnitsTarget, Valid: true}
			}
			if _, err = stmt.ExecContext(ctx, t.Month, t.SalesTarget, t.MarginPctTarget, units); err != nil {
				return fmt.Errorf("upsert target %s: %w", t.Month, err)
			}
		}
		return nil
	})
}

const targetColumns = `
		SELECT month, sales_target, margin_pct_target, units_target`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTarget(row rowScanner) (store.Target, error) {
	var (
		t     store.Target
		units sql.NullFloat64
	)
	if err := row.Scan(&t.Month, &t.SalesTarget, &t.MarginPctTarget, &units); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Target{}, err
		}
		return store.Target{}, fmt.Errorf("scan target: %w", err)
	}
	if units.Valid {
		v := units.Float64
		t.UnitsTarget = &v
	}
	return t, nil
}

const segmentColumns = `
		SELECT segment_id, name, COALESCE(description, ''), share_of_customers, share_of_revenue,
			avg_basket_value, COALESCE(discount_sensitivity, '')`

func salesWhere(filter store.SalesFilter) (string, []any) {
	conditions := []string{"date >= ?", "date <= ?"}
	args := []any{filter.Start, filter.End}
	if len(filter.Departments) > 0 {
		conditions = append(conditions, fmt.Sprintf("department IN (%s)", sqldb.Placeholders(len(filter.Departments))))
		args = append(args, toAny(filter.Departments)...)
	}
	if len(filter.Channels) > 0 {
		conditions = append(conditions, fmt.Sprintf("channel IN (%s)", sqldb.Placeholders(len(filter.Channels))))
		args = append(args, toAny(filter.Channels)...)
	}
	return strings.Join(conditions, " AND "), args
}

func scanCoefficientRows(rows *sql.Rows) ([]store.UpliftCoefficient, error) {
	coefficients := make([]store.UpliftCoefficient, 0)
	for rows.Next() {
		var c store.UpliftCoefficient
		if err := rows.Scan(
			&c.Department,
			&c.Channel,
			&c.DiscountBand,
			&c.UpliftSalesPct,
			&c.UpliftUnitsPct,
			&c.MarginImpactPct,
			&c.Confidence,
			&c.SampleSize,
			&c.ModelVersion,
		); err != nil {
			return nil, err
		}
		coefficients = append(coefficients, c)
	}
	return coefficients, rows.Err()
}

func scanSegmentRows(rows *sql.Rows) ([]store.Segment, error) {
	segments := make([]store.Segment, 0)
	for rows.Next() {
		var seg store.Segment
		if err := rows.Scan(
			&seg.SegmentID,
			&seg.Name,
			&seg.Description,
			&seg.ShareOfCustomers,
			&seg.ShareOfRevenue,
			&seg.AvgBasketValue,
			&seg.DiscountSensitivity,
		); err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

func toAny(ss []string) []any {
	res := make([]any, len(ss))
	for i, s := range ss {
		res[i] = s
	}
	return res
}
