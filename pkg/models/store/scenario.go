package store

import "time"

// ScenarioRow keeps the canonical scenario JSON alongside its indexed columns.
type ScenarioRow struct {
	ID             string
	Label          string
	ScenarioType   string
	DateRangeStart time.Time
	DateRangeEnd   time.Time
	Payload        []byte
	CreatedAt      time.Time
}

type KPIRow struct {
	ID               string
	ScenarioID       string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	TotalSalesValue  float64
	TotalMarginValue float64
	TotalMarginPct   float64
	TotalEBIT        float64
	TotalUnits       float64
	Payload          []byte
	CreatedAt        time.Time
}

type ValidationRow struct {
	ID           string
	ScenarioID   string
	Status       string
	OverallScore float64
	Payload      []byte
	CreatedAt    time.Time
}

type PostMortemRow struct {
	ID          string
	ScenarioID  string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Payload     []byte
	CreatedAt   time.Time
}
