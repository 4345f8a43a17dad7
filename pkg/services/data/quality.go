package data

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/de-tools/promo-lab/pkg/models/domain"
)

const (
	// QualityLookbackDays is the window of facts a quality report covers.
	QualityLookbackDays = 90
	// FreshDays is the fact age up to which timeliness stays at 1.
	FreshDays        = 7
	qualityThreshold = 0.9
)

// Quality scores the facts of the last QualityLookbackDays days ending at the
// latest fact date.
func (s *Service) Quality(ctx context.Context) (domain.QualityReport, error) {
	stats, err := s.baseline.GetQualityStats(ctx, QualityLookbackDays)
	if err != nil {
		return domain.QualityReport{}, fmt.Errorf("quality stats: %w", err)
	}
	if stats.Rows == 0 {
		return domain.QualityReport{}, domain.NewError(domain.KindBaselineNotFound, "no sales facts loaded")
	}

	span := daysBetween(stats.First, stats.Last) + 1
	age := daysBetween(stats.Last, s.now())
	rows := float64(stats.Rows)

	report := domain.QualityReport{
		WindowStart:  stats.First,
		WindowEnd:    stats.Last,
		Rows:         stats.Rows,
		Completeness: math.Min(1, float64(stats.Days)/float64(span)),
		Accuracy:     1 - float64(stats.InvalidRows)/rows,
		Consistency:  1 - float64(stats.InconsistentRows)/rows,
		Timeliness:   timeliness(age),
		Issues:       []string{},
	}

	if missing := span - stats.Days; missing > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d of %d days between %s and %s have no sales facts",
			missing, span, stats.First.Format(domain.DateLayout), stats.Last.Format(domain.DateLayout)))
	}
	if stats.InvalidRows > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf(
			"%d rows have negative values, margin above sales or a discount outside [0, 100]", stats.InvalidRows))
	}
	if stats.InconsistentRows > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf(
			"%d rows have a promo_flag that disagrees with discount_pct", stats.InconsistentRows))
	}
	if age > FreshDays {
		report.Issues = append(report.Issues, fmt.Sprintf("latest sales fact is %d days old", age))
	}

	report.Recommendations = recommendations(report)
	return report, nil
}

func recommendations(r domain.QualityReport) []string {
	out := []string{}
	if r.Completeness < qualityThreshold {
		out = append(out, "Address missing values in critical columns")
	}
	if r.Accuracy < qualityThreshold {
		out = append(out, "Review data accuracy and validate ranges")
	}
	if r.Consistency < qualityThreshold {
		out = append(out, "Check data consistency across records")
	}
	if r.Timeliness < qualityThreshold {
		out = append(out, "Ensure data is up-to-date and timely")
	}
	return out
}

// timeliness falls linearly from 1 at FreshDays to 0 at QualityLookbackDays.
func timeliness(ageDays int64) float64 {
	switch {
	case ageDays <= FreshDays:
		return 1
	case ageDays >= QualityLookbackDays:
		return 0
	}
	return 1 - float64(ageDays-FreshDays)/float64(QualityLookbackDays-FreshDays)
}

func daysBetween(from, to time.Time) int64 {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int64(to.Sub(from).Hours() / 24)
}
