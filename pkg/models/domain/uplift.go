package domain

// DiscountBand buckets a discount_pct (percent points). Edges are
// lower-inclusive and upper-exclusive; BandNone is exactly zero.
type DiscountBand string

const (
	BandNone    DiscountBand = "none"
	Band0To5    DiscountBand = "0-5"
	Band5To10   DiscountBand = "5-10"
	Band10To15  DiscountBand = "10-15"
	Band15To20  DiscountBand = "15-20"
	Band20To30  DiscountBand = "20-30"
	Band30AndUp DiscountBand = "30+"
)

// DiscountBands lists every band in ascending discount order.
var DiscountBands = []DiscountBand{BandNone, Band0To5, Band5To10, Band10To15, Band15To20, Band20To30, Band30AndUp}

var bandUpperEdges = []struct {
	upper float64
	band  DiscountBand
}{
	{5, Band0To5},
	{10, Band5To10},
	{15, Band10To15},
	{20, Band15To20},
	{30, Band20To30},
}

func BandFor(discountPct float64) DiscountBand {
	if discountPct <= 0 {
		return BandNone
	}
	for _, e := range bandUpperEdges {
		if discountPct < e.upper {
			return e.band
		}
	}
	return Band30AndUp
}

func (b DiscountBand) Index() int {
	for i, band := range DiscountBands {
		if band == b {
			return i
		}
	}
	return -1
}

// Coefficient values are fractions: 0.12 means +12%.
type Coefficient struct {
	UpliftSalesPct  float64
	UpliftUnitsPct  float64
	MarginImpactPct float64
	Confidence      float64
	SampleSize      int
	ModelVersion    string
}

type CoefficientCurve map[DiscountBand]Coefficient

const DefaultModelVersion = "default-1"

func DefaultCoefficientCurve() CoefficientCurve {
	return CoefficientCurve{
		BandNone:    {ModelVersion: DefaultModelVersion},
		Band0To5:    {UpliftSalesPct: 0.02, UpliftUnitsPct: 0.03, MarginImpactPct: -0.01, ModelVersion: DefaultModelVersion},
		Band5To10:   {UpliftSalesPct: 0.06, UpliftUnitsPct: 0.08, MarginImpactPct: -0.03, ModelVersion: DefaultModelVersion},
		Band10To15:  {UpliftSalesPct: 0.12, UpliftUnitsPct: 0.15, MarginImpactPct: -0.06, ModelVersion: DefaultModelVersion},
		Band15To20:  {UpliftSalesPct: 0.18, UpliftUnitsPct: 0.22, MarginImpactPct: -0.09, ModelVersion: DefaultModelVersion},
		Band20To30:  {UpliftSalesPct: 0.26, UpliftUnitsPct: 0.32, MarginImpactPct: -0.13, ModelVersion: DefaultModelVersion},
		Band30AndUp: {UpliftSalesPct: 0.35, UpliftUnitsPct: 0.45, MarginImpactPct: -0.18, ModelVersion: DefaultModelVersion},
	}
}

// Monotone returns a complete curve: missing bands come from the default
// curve, the none band has no effect, and margin impact never increases
// with the band.
func (c CoefficientCurve) Monotone() CoefficientCurve {
	defaults := DefaultCoefficientCurve()
	out := make(CoefficientCurve, len(DiscountBands))
	floor := 0.0
	for _, band := range DiscountBands {
		coef, ok := c[band]
		if !ok {
			coef = defaults[band]
		}
		if band == BandNone {
			coef = Coefficient{ModelVersion: coef.ModelVersion}
		}
		if coef.MarginImpactPct > floor {
			coef.MarginImpactPct = floor
		}
		floor = coef.MarginImpactPct
		out[band] = coef
	}
	return out
}

// UpliftCoefficient is one row of the coefficient table.
type UpliftCoefficient struct {
	Department string
	Channel    string
	Band       DiscountBand
	Coefficient
}
