// Package mvk builds SME declarations under EU Regulation 651/2014 Annex I
// from the registry's ownership graph.
package mvk

import "time"

// Enterprise size categories per Annex I Article 2.
const (
	CategoryMicro  = "MICRO"
	CategorySmall  = "SMALL"
	CategoryMedium = "MEDIUM"
	CategoryLarge  = "LARGE"
)

// Company types per Annex I Article 3.
const (
	TypeAutonomous = "AUTONOMOUS"
	TypePartner    = "PARTNER"
	TypeLinked     = "LINKED"
)

// Linked enterprise bases: B1 inside the consolidation perimeter, B2 outside.
const (
	BasisConsolidated = "B1"
	BasisAggregated   = "B2"
)

// Figures are the three size criteria of Annex I Article 2. Employees are
// annual work units and may be fractional. Amounts are EUR.
type Figures struct {
	Employees float64 `json:"employees"`
	Turnover  float64 `json:"turnover"`
	Balance   float64 `json:"balance"`
}

// Add returns the component-wise sum.
func (f Figures) Add(other Figures) Figures {
	return Figures{
		Employees: f.Employees + other.Employees,
		Turnover:  f.Turnover + other.Turnover,
		Balance:   f.Balance + other.Balance,
	}
}

// Scale returns the figures weighted by a holding percentage.
func (f Figures) Scale(percent float64) Figures {
	factor := percent / 100
	return Figures{
		Employees: f.Employees * factor,
		Turnover:  f.Turnover * factor,
		Balance:   f.Balance * factor,
	}
}

// Scenario states which Article 3 relationships the enterprise has.
type Scenario struct {
	CompanyType  string `json:"company_type"`
	PartnerCount int    `json:"partner_count"`
	LinkedCount  int    `json:"linked_count"`
}

// Identification is section 0 of the declaration form.
type Identification struct {
	Regcode   string  `json:"regcode"`
	Name      string  `json:"name"`
	VATNumber *string `json:"vat_number"`
	Address   string  `json:"address"`
	Year      int     `json:"year"`
	Figures   Figures `json:"figures"`
}

// PartnerRow is one section A row: a partner enterprise with its own
// figures and the share-weighted contribution.
type PartnerRow struct {
	Regcode      string  `json:"regcode"`
	Name         string  `json:"name"`
	SharePercent float64 `json:"share_percent"`
	Figures      Figures `json:"figures"`
	Weighted     Figures `json:"weighted"`
}

// LinkedRow is one section B row: a linked enterprise counted at 100%.
type LinkedRow struct {
	Regcode string  `json:"regcode"`
	Name    string  `json:"name"`
	Basis   string  `json:"basis"`
	Figures Figures `json:"figures"`
}

// SummaryRow is one row of the final aggregation table.
type SummaryRow struct {
	Row       string  `json:"row"`
	Employees float64 `json:"employees"`
	Turnover  float64 `json:"turnover"`
	Balance   float64 `json:"balance"`
}

// Summary is the aggregation table: 2.1 own figures, 2.2 partner
// contributions, 2.3 linked contributions, and their total.
type Summary struct {
	Own     SummaryRow `json:"own"`
	Partner SummaryRow `json:"partner"`
	Linked  SummaryRow `json:"linked"`
	Total   SummaryRow `json:"total"`
}

// CategoryResult carries the raw reference-year category and the effective
// category after the Article 4(2) two-period rule.
type CategoryResult struct {
	Raw       string  `json:"raw"`
	Effective string  `json:"effective"`
	Previous  *string `json:"previous"`
}

// Declaration is the complete computed SME declaration for one enterprise
// and reference year.
type Declaration struct {
	Regcode        string         `json:"regcode"`
	Year           int            `json:"year"`
	Scenario       Scenario       `json:"scenario"`
	Identification Identification `json:"identification"`
	Partners       []PartnerRow   `json:"partners"`
	Linked         []LinkedRow    `json:"linked"`
	Summary        Summary        `json:"summary"`
	Category       CategoryResult `json:"category"`
	Warnings       []string       `json:"warnings"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// Edge is one ownership stake in the shareholding graph.
type Edge struct {
	HolderType     string
	HolderID       string
	SubjectRegcode string
	SharePercent   float64
	VotesPercent   *float64
	Consolidated   bool
}

// HolderCompany reports whether the holding side is an enterprise.
func (e Edge) HolderCompany() bool { return e.HolderType == HolderTypeCompany }

// ControlPercent is the percentage used for Article 3 classification:
// voting rights when recorded, capital share otherwise.
func (e Edge) ControlPercent() float64 {
	if e.VotesPercent != nil {
		return *e.VotesPercent
	}
	return e.SharePercent
}

// Holder types on shareholding edges.
const (
	HolderTypeCompany = "company"
	HolderTypePerson  = "person"
)

// Enterprise is a graph node with the identity fields the declaration needs.
type Enterprise struct {
	Regcode   string
	Name      string
	VATNumber *string
	Address   string
}

// Snapshot is a stored declaration for one (regcode, year).
type Snapshot struct {
	Regcode     string
	Year        int
	Payload     Declaration
	GeneratedAt time.Time
}

// SnapshotKey addresses one stored snapshot.
type SnapshotKey struct {
	Regcode string
	Year    int
}
