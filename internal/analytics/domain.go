package analytics

import "time"

// StatusCount is the number of companies in one registration status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// MonthlyRegistrations is the number of new registrations in one month.
type MonthlyRegistrations struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// TopIndustry is one NACE division ranked by total turnover.
type TopIndustry struct {
	NACECode string   `json:"nace_code"`
	Label    string   `json:"label"`
	Turnover *float64 `json:"turnover"`
}

// TopRegion is one region ranked by total turnover.
type TopRegion struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Turnover *float64 `json:"turnover"`
}

// Overview backs the market dashboard. All sections refer to the same
// reference year except registrations, which cover a trailing window.
type Overview struct {
	Year          int                    `json:"year"`
	StatusCounts  []StatusCount          `json:"status_counts"`
	Registrations []MonthlyRegistrations `json:"registrations_per_month"`
	TopIndustries []TopIndustry          `json:"top_industries"`
	TopRegions    []TopRegion            `json:"top_regions"`
	GeneratedAt   time.Time              `json:"generated_at"`
}
