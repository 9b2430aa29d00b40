package shared

const (
	// Default pagination
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	// Sort directions
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilters represents standard list endpoint filters.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string

	// Entity specific filters
	Status     string
	NACECode   string
	RegionCode string
	City       string
	Role       string
	MinWealth  *float64
	RiskOnly   bool
}

// Normalize clamps pagination values into their allowed ranges.
func (f *ListFilters) Normalize() {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.SortDir != SortDesc {
		f.SortDir = SortAsc
	}
}

// Offset returns the row offset for the current page.
func (f ListFilters) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
