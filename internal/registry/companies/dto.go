package companies

import "github.com/firmlens/firmlens/internal/shared"

// Summary is the list/compare row: identity plus latest reported figures.
type Summary struct {
	Regcode    string   `json:"regcode"`
	Name       string   `json:"name"`
	Status     string   `json:"status"`
	NACECode   string   `json:"nace_code"`
	RegionCode string   `json:"region_code"`
	City       string   `json:"city"`
	Employees  *float64 `json:"employees"`
	Turnover   *float64 `json:"turnover"`
	Profit     *float64 `json:"profit"`
	RiskCount  int      `json:"risk_count"`
}

// ListResponse is the paginated list payload.
type ListResponse struct {
	Items      []Summary         `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// Detail is the full company payload.
type Detail struct {
	Company
	LatestFinancials *Financials `json:"latest_financials"`
	Risks            []RiskFlag  `json:"risks"`
}

// FinancialsResponse is the per-year financial history payload.
type FinancialsResponse struct {
	Regcode string       `json:"regcode"`
	Items   []Financials `json:"items"`
}

// CompareResponse aligns summaries in the order they were requested.
type CompareResponse struct {
	Items []Summary `json:"items"`
}
