package domain

const SegmentAll = "ALL"

type Segment struct {
	ID                  string
	Name                string
	Description         string
	ShareOfCustomers    float64
	ShareOfRevenue      float64
	AvgBasketValue      float64
	DiscountSensitivity string
}
