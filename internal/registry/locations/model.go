package locations

// Location kinds.
const (
	KindRegion = "REGION"
	KindCity   = "CITY"
)

// Aggregate is the rollup for one region or city.
type Aggregate struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	CompanyCount  int      `json:"company_count"`
	TotalTurnover *float64 `json:"total_turnover"`
	Employees     *float64 `json:"employees"`
}

// TopCompany is a company ranked by turnover within a location.
type TopCompany struct {
	Regcode  string   `json:"regcode"`
	Name     string   `json:"name"`
	NACECode string   `json:"nace_code"`
	Turnover *float64 `json:"turnover"`
}

// OverviewResponse is the location overview payload.
type OverviewResponse struct {
	Year  int         `json:"year"`
	Items []Aggregate `json:"items"`
}

// DetailResponse is a single location with its top companies.
type DetailResponse struct {
	Year         int          `json:"year"`
	Stats        Aggregate    `json:"stats"`
	TopCompanies []TopCompany `json:"top_companies"`
}
