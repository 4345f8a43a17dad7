package store

import "time"

// SalesRecord is one row of the sales_aggregated fact table.
type SalesRecord struct {
	Date        time.Time
	Channel     string
	Department  string
	PromoFlag   bool
	DiscountPct float64
	SalesValue  float64
	MarginValue float64
	Units       float64
}

type SalesTotals struct {
	Rows        int64
	SalesValue  float64
	MarginValue float64
	Units       float64
}

type UpliftCoefficient struct {
	Department      string
	Channel         string
	DiscountBand    string
	UpliftSalesPct  float64
	UpliftUnitsPct  float64
	MarginImpactPct float64
	Confidence      float64
	SampleSize      int
	ModelVersion    string
}

type Segment struct {
	SegmentID           string
	Name                string
	Description         string
	ShareOfCustomers    float64
	ShareOfRevenue      float64
	AvgBasketValue      float64
	DiscountSensitivity string
}

// SalesSlice is the aggregate of sales facts for one department and channel.
type SalesSlice struct {
	Department string
	Channel    string
	SalesTotals
}

// SalesFilter selects facts by inclusive date range; empty slices match everything.
type SalesFilter struct {
	Start       time.Time
	End         time.Time
	Departments []string
	Channels    []string
}

// Target is one row of the monthly targets table. Month is YYYY-MM.
type Target struct {
	Month           string
	SalesTarget     float64
	MarginPctTarget float64
	UnitsTarget     *float64
}

// QualityStats summarizes the sales facts between First and Last.
type QualityStats struct {
	Rows             int64
	Days             int64
	First            time.Time
	Last             time.Time
	InvalidRows      int64
	InconsistentRows int64
}
