package persons

import "time"

// Person is a natural person from the registry. The hash is the only
// public identifier; national identity numbers never leave the ingest
// pipeline.
type Person struct {
	Hash        string    `json:"hash"`
	FullName    string    `json:"full_name"`
	BirthYear   *int      `json:"birth_year"`
	WealthTotal *float64  `json:"wealth_total"`
	WealthCash  *float64  `json:"wealth_cash"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Role is a board or officer position a person holds in a company.
type Role struct {
	Regcode     string     `json:"regcode"`
	CompanyName string     `json:"company_name"`
	Role        string     `json:"role"`
	AppointedAt time.Time  `json:"appointed_at"`
	ResignedAt  *time.Time `json:"resigned_at"`
}

// Shareholding is a direct ownership stake a person holds in a company.
type Shareholding struct {
	Regcode      string     `json:"regcode"`
	CompanyName  string     `json:"company_name"`
	SharePercent float64    `json:"share_percent"`
	VotesPercent *float64   `json:"votes_percent"`
	Since        *time.Time `json:"since"`
}
