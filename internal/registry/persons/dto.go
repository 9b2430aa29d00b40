package persons

import "github.com/firmlens/firmlens/internal/shared"

// Summary is one row of a person search result.
type Summary struct {
	Hash        string   `json:"hash"`
	FullName    string   `json:"full_name"`
	BirthYear   *int     `json:"birth_year"`
	WealthTotal *float64 `json:"wealth_total"`
	RoleCount   int      `json:"role_count"`
}

// SearchResponse is the paginated person search payload.
type SearchResponse struct {
	Items      []Summary         `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// Detail is the person profile with active and historical positions.
type Detail struct {
	Person
	Roles         []Role         `json:"roles"`
	Shareholdings []Shareholding `json:"shareholdings"`
}
