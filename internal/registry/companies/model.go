package companies

import "time"

// Company status values as stored in the register.
const (
	StatusActive     = "ACTIVE"
	StatusLiquidated = "LIQUIDATED"
	StatusSuspended  = "SUSPENDED"
)

// Company represents a registered enterprise.
type Company struct {
	Regcode      string     `json:"regcode"`
	Name         string     `json:"name"`
	LegalForm    string     `json:"legal_form"`
	Status       string     `json:"status"`
	VATNumber    *string    `json:"vat_number"`
	NACECode     string     `json:"nace_code"`
	RegionCode   string     `json:"region_code"`
	City         string     `json:"city"`
	Address      string     `json:"address"`
	RegisteredAt time.Time  `json:"registered_at"`
	TerminatedAt *time.Time `json:"terminated_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Financials holds the reported figures for one closed year. Missing figures
// stay nil and render as JSON null.
type Financials struct {
	Year      int      `json:"year"`
	Employees *float64 `json:"employees"`
	Turnover  *float64 `json:"turnover"`
	Balance   *float64 `json:"balance"`
	Profit    *float64 `json:"profit"`
	Equity    *float64 `json:"equity"`
	TaxesPaid *float64 `json:"taxes_paid"`
}

// RiskFlag marks a company-level risk signal.
type RiskFlag struct {
	Kind      string    `json:"kind"`
	Severity  string    `json:"severity"`
	Note      string    `json:"note,omitempty"`
	FlaggedAt time.Time `json:"flagged_at"`
}
