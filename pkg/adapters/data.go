package adapters

import (
	"sort"

	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/models/store"
)

func MapUpliftCoefficientStoreToDomain(c store.UpliftCoefficient) domain.UpliftCoefficient {
	return domain.UpliftCoefficient{
		Department: c.Department,
		Channel:    c.Channel,
		Band:       domain.DiscountBand(c.DiscountBand),
		Coefficient: domain.Coefficient{
			UpliftSalesPct:  c.UpliftSalesPct,
			UpliftUnitsPct:  c.UpliftUnitsPct,
			MarginImpactPct: c.MarginImpactPct,
			Confidence:      c.Confidence,
			SampleSize:      c.SampleSize,
			ModelVersion:    c.ModelVersion,
		},
	}
}

func MapUpliftCoefficientDomainToStore(c domain.UpliftCoefficient) store.UpliftCoefficient {
	return store.UpliftCoefficient{
		Department:      c.Department,
		Channel:         c.Channel,
		DiscountBand:    string(c.Band),
		UpliftSalesPct:  c.UpliftSalesPct,
		UpliftUnitsPct:  c.UpliftUnitsPct,
		MarginImpactPct: c.MarginImpactPct,
		Confidence:      c.Confidence,
		SampleSize:      c.SampleSize,
		ModelVersion:    c.ModelVersion,
	}
}

func MapSegmentStoreToDomain(s store.Segment) domain.Segment {
	return domain.Segment{
		ID:                  s.SegmentID,
		Name:                s.Name,
		Description:         s.Description,
		ShareOfCustomers:    s.ShareOfCustomers,
		ShareOfRevenue:      s.ShareOfRevenue,
		AvgBasketValue:      s.AvgBasketValue,
		DiscountSensitivity: s.DiscountSensitivity,
	}
}

func MapSegmentDomainToStore(s domain.Segment) store.Segment {
	return store.Segment{
		SegmentID:           s.ID,
		Name:                s.Name,
		Description:         s.Description,
		ShareOfCustomers:    s.ShareOfCustomers,
		ShareOfRevenue:      s.ShareOfRevenue,
		AvgBasketValue:      s.AvgBasketValue,
		DiscountSensitivity: s.DiscountSensitivity,
	}
}

func MapSegmentDomainToApi(s domain.Segment) api.Segment {
	return api.Segment{
		ID:                  s.ID,
		Name:                s.Name,
		Description:         s.Description,
		ShareOfCustomers:    s.ShareOfCustomers,
		ShareOfRevenue:      s.ShareOfRevenue,
		AvgBasketValue:      s.AvgBasketValue,
		DiscountSensitivity: s.DiscountSensitivity,
	}
}

func MapSalesTotalsStoreToApi(t store.SalesTotals, f store.SalesFilter) api.BaselineTotals {
	res := api.BaselineTotals{
		StartDate:   f.Start.Format(domain.DateLayout),
		EndDate:     f.End.Format(domain.DateLayout),
		Rows:        t.Rows,
		SalesValue:  t.SalesValue,
		MarginValue: t.MarginValue,
		Units:       t.Units,
	}
	if len(f.Departments) == 1 {
		res.Department = f.Departments[0]
	}
	if len(f.Channels) == 1 {
		res.Channel = f.Channels[0]
	}
	if t.SalesValue != 0 {
		res.MarginPct = t.MarginValue / t.SalesValue
	}
	return res
}

// MapCurveDomainToApi lists the curve's bands in ascending discount order.
func MapCurveDomainToApi(department, channel string, curve domain.CoefficientCurve) api.UpliftCurve {
	res := api.UpliftCurve{
		Department: department,
		Channel:    channel,
		Bands:      make([]api.BandCoefficient, 0, len(curve)),
	}
	bands := make([]domain.DiscountBand, 0, len(curve))
	for band := range curve {
		bands = append(bands, band)
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i].Index() < bands[j].Index() })

	for _, band := range bands {
		c := curve[band]
		res.Bands = append(res.Bands, api.BandCoefficient{
			Band:            string(band),
			UpliftSalesPct:  c.UpliftSalesPct,
			UpliftUnitsPct:  c.UpliftUnitsPct,
			MarginImpactPct: c.MarginImpactPct,
			Confidence:      c.Confidence,
			SampleSize:      c.SampleSize,
			ModelVersion:    c.ModelVersion,
		})
	}
	return res
}

func MapTargetStoreToDomain(t store.Target) domain.Target {
	res := domain.Target{
		Month:           t.Month,
		SalesTarget:     t.SalesTarget,
		MarginPctTarget: t.MarginPctTarget,
	}
	if t.UnitsTarget != nil {
		units := *t.UnitsTarget
		res.UnitsTarget = &units
	}
	return res
}

func MapTargetDomainToApi(t domain.Target) api.Target {
	return api.Target{
		Month:           t.Month,
		SalesTarget:     t.SalesTarget,
		MarginPctTarget: t.MarginPctTarget,
		MarginTarget:    t.MarginTarget(),
		UnitsTarget:     t.UnitsTarget,
	}
}

func MapGapDomainToApi(g domain.GapAnalysis) api.GapAnalysis {
	return api.GapAnalysis{
		Month:          g.Month,
		Target:         MapTargetDomainToApi(g.Target),
		BaselineSales:  g.BaselineSales,
		BaselineMargin: g.BaselineMargin,
		BaselineUnits:  g.BaselineUnits,
		SalesGap:       g.SalesGap,
		MarginGap:      g.MarginGap,
		UnitsGap:       g.UnitsGap,
		GapPercentage:  g.GapPercentage,
	}
}

func MapQualityDomainToApi(q domain.QualityReport) api.QualityReport {
	res := api.QualityReport{
		WindowStart:     q.WindowStart.Format(domain.DateLayout),
		WindowEnd:       q.WindowEnd.Format(domain.DateLayout),
		Rows:            q.Rows,
		Completeness:    q.Completeness,
		Accuracy:        q.Accuracy,
		Consistency:     q.Consistency,
		Timeliness:      q.Timeliness,
		OverallScore:    q.Overall(),
		Issues:          q.Issues,
		Recommendations: q.Recommendations,
	}
	if res.Issues == nil {
		res.Issues = []string{}
	}
	if res.Recommendations == nil {
		res.Recommendations = []string{}
	}
	return res
}

func MapLearnResultDomainToApi(r domain.LearnResult) api.LearnResult {
	res := api.LearnResult{
		Reports:      r.Reports,
		AverageError: r.AverageError,
		Coefficients: r.Coefficients,
		Curves:       make([]api.LearnedCurve, 0, len(r.Curves)),
	}
	for _, c := range r.Curves {
		res.Curves = append(res.Curves, api.LearnedCurve{
			Department:   c.Department,
			Channel:      c.Channel,
			Factor:       c.Factor,
			Reports:      c.Reports,
			ModelVersion: c.ModelVersion,
		})
	}
	return res
}
