package data

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/models/store"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// Wildcard names the department and channel of the fallback uplift curve.
	Wildcard = "*"
)

type BaselineSource interface {
	GetTotals(ctx context.Context, filter store.SalesFilter) (store.SalesTotals, error)
	ListCoefficients(ctx context.Context, departments, channels []string) ([]store.UpliftCoefficient, error)
	ListSegments(ctx context.Context, offset, limit int) ([]store.Segment, int64, error)
	ListMonths(ctx context.Context) ([]string, error)
	GetTarget(ctx context.Context, month string) (*store.Target, error)
	GetQualityStats(ctx context.Context, lookbackDays int) (store.QualityStats, error)
}

type Curve struct {
	Department string
	Channel    string
	Bands      domain.CoefficientCurve
}

type SegmentPage struct {
	Segments []domain.Segment
	Page     int
	PageSize int
	Total    int64
}

// Service exposes read-only views of the baseline data.
type Service struct {
	baseline BaselineSource
	now      func() time.Time
}

func NewService(baseline BaselineSource) *Service {
	return &Service{
		baseline: baseline,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Totals(ctx context.Context, filter store.SalesFilter) (store.SalesTotals, error) {
	if filter.Start.IsZero() || filter.End.IsZero() {
		return store.SalesTotals{}, domain.NewError(domain.KindInvalidDateRange, "start_date and end_date are required")
	}
	if filter.End.Before(filter.Start) {
		return store.SalesTotals{}, domain.NewError(domain.KindInvalidDateRange, "end_date %s is before start_date %s",
			filter.End.Format(domain.DateLayout), filter.Start.Format(domain.DateLayout))
	}
	totals, err := s.baseline.GetTotals(ctx, filter)
	if err != nil {
		return store.SalesTotals{}, fmt.Errorf("baseline totals: %w", err)
	}
	return totals, nil
}

// UpliftModel returns the stored curves for the optional department and
// channel filters. Without stored coefficients the default curve is returned
// for the requested pair, or for the wildcard pair when unfiltered.
func (s *Service) UpliftModel(ctx context.Context, department, channel string) ([]Curve, error) {
	var departments, channels []string
	if department != "" {
		departments = []string{department}
	}
	if channel != "" {
		channels = []string{channel}
	}

	rows, err := s.baseline.ListCoefficients(ctx, departments, channels)
	if err != nil {
		return nil, fmt.Errorf("list uplift coefficients: %w", err)
	}

	if len(rows) == 0 {
		curve := Curve{Department: department, Channel: channel, Bands: domain.DefaultCoefficientCurve()}
		if curve.Department == "" {
			curve.Department = Wildcard
		}
		if curve.Channel == "" {
			curve.Channel = Wildcard
		}
		return []Curve{curve}, nil
	}

	// rows arrive ordered by department and channel
	var curves []Curve
	for _, row := range rows {
		c := adapters.MapUpliftCoefficientStoreToDomain(row)
		if n := len(curves); n == 0 || curves[n-1].Department != c.Department || curves[n-1].Channel != c.Channel {
			curves = append(curves, Curve{Department: c.Department, Channel: c.Channel, Bands: domain.CoefficientCurve{}})
		}
		curves[len(curves)-1].Bands[c.Band] = c.Coefficient
	}
	return curves, nil
}

// Segments pages through customer segments; page is 1-based.
func (s *Service) Segments(ctx context.Context, page, pageSize int) (SegmentPage, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return SegmentPage{}, domain.NewError(domain.KindInvalidInput, "page must be >= 1 and page_size within [1, %d]", MaxPageSize)
	}

	rows, total, err := s.baseline.ListSegments(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return SegmentPage{}, fmt.Errorf("list segments: %w", err)
	}
	segments := make([]domain.Segment, 0, len(rows))
	for _, row := range rows {
		segments = append(segments, adapters.MapSegmentStoreToDomain(row))
	}
	return SegmentPage{
		Segments: segments,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

// Months lists the YYYY-MM months that hold sales facts, newest first.
func (s *Service) Months(ctx context.Context) ([]string, error) {
	months, err := s.baseline.ListMonths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	return months, nil
}
