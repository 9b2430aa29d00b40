package industries

// Aggregate is the per-NACE-division rollup for the reference year.
type Aggregate struct {
	NACECode       string   `json:"nace_code"`
	Label          string   `json:"label"`
	CompanyCount   int      `json:"company_count"`
	TotalTurnover  *float64 `json:"total_turnover"`
	MedianTurnover *float64 `json:"median_turnover"`
	Employees      *float64 `json:"employees"`
	TurnoverGrowth *float64 `json:"turnover_growth"`
}

// Leader is a top company within an industry, ranked by turnover.
type Leader struct {
	Regcode   string   `json:"regcode"`
	Name      string   `json:"name"`
	Turnover  *float64 `json:"turnover"`
	Employees *float64 `json:"employees"`
}

// OverviewResponse is the industry overview payload.
type OverviewResponse struct {
	Year  int         `json:"year"`
	Items []Aggregate `json:"items"`
}

// DetailResponse is a single industry with its leaders.
type DetailResponse struct {
	Year    int       `json:"year"`
	Stats   Aggregate `json:"stats"`
	Leaders []Leader  `json:"leaders"`
}
