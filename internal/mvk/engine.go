package mvk

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/firmlens/firmlens/internal/platform/httpx"
)

// GraphRepository is the ownership-graph access the engine needs.
type GraphRepository interface {
	// Enterprise resolves a node's identity fields.
	Enterprise(ctx context.Context, regcode string) (Enterprise, error)
	// Edges returns every shareholding touching the regcode, as holder or
	// as subject.
	Edges(ctx context.Context, regcode string) ([]Edge, error)
	// Figures returns the reported figures for a year; found is false when
	// no accounts were filed.
	Figures(ctx context.Context, regcode string, year int) (Figures, bool, error)
}

// Engine computes declarations from the shareholding graph.
type Engine struct {
	repo GraphRepository
	now  func() time.Time
}

// NewEngine constructs an Engine.
func NewEngine(repo GraphRepository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (e *Engine) WithNow(now func() time.Time) {
	e.now = now
}

// Build computes the declaration for one enterprise and reference year.
func (e *Engine) Build(ctx context.Context, regcode string, year int) (Declaration, error) {
	root, err := e.repo.Enterprise(ctx, regcode)
	if err != nil {
		return Declaration{}, err
	}

	b := &graphWalk{ctx: ctx, repo: e.repo, edgeCache: map[string][]Edge{}}

	perimeter, err := b.linkedPerimeter(regcode)
	if err != nil {
		return Declaration{}, err
	}
	partnerShares, err := b.partnerShares(perimeter)
	if err != nil {
		return Declaration{}, err
	}

	// Empty sections serialize as [] rather than null.
	decl := Declaration{
		Regcode:     regcode,
		Year:        year,
		GeneratedAt: e.now().UTC(),
		Partners:    []PartnerRow{},
		Linked:      []LinkedRow{},
		Warnings:    []string{},
	}

	ownFigures, ownFound, err := e.repo.Figures(ctx, regcode, year)
	if err != nil {
		return Declaration{}, err
	}
	if !ownFound {
		decl.Warnings = append(decl.Warnings, missingFiguresWarning(regcode, year))
	}
	decl.Identification = Identification{
		Regcode:   root.Regcode,
		Name:      root.Name,
		VATNumber: root.VATNumber,
		Address:   root.Address,
		Year:      year,
		Figures:   ownFigures,
	}

	// Section A: partners one hop from the perimeter, proportionally
	// weighted by the higher holding of the two directions.
	partnerRegcodes := sortedKeys(partnerShares)
	var partnerSum Figures
	for _, rc := range partnerRegcodes {
		row, warn, err := e.partnerRow(ctx, rc, partnerShares[rc], year)
		if err != nil {
			return Declaration{}, err
		}
		if warn != "" {
			decl.Warnings = append(decl.Warnings, warn)
		}
		partnerSum = partnerSum.Add(row.Weighted)
		decl.Partners = append(decl.Partners, row)
	}

	// Section B: linked enterprises at 100%.
	linkedRegcodes := make([]string, 0, len(perimeter))
	for rc := range perimeter {
		if rc != regcode {
			linkedRegcodes = append(linkedRegcodes, rc)
		}
	}
	sort.Strings(linkedRegcodes)
	var linkedSum Figures
	for _, rc := range linkedRegcodes {
		row, warn, err := e.linkedRow(ctx, b, rc, year)
		if err != nil {
			return Declaration{}, err
		}
		if warn != "" {
			decl.Warnings = append(decl.Warnings, warn)
		}
		linkedSum = linkedSum.Add(row.Figures)
		decl.Linked = append(decl.Linked, row)
	}

	total := ownFigures.Add(partnerSum).Add(linkedSum)
	decl.Summary = Summary{
		Own:     summaryRow("2.1", ownFigures),
		Partner: summaryRow("2.2", partnerSum),
		Linked:  summaryRow("2.3", linkedSum),
		Total:   summaryRow("total", total),
	}

	decl.Scenario = Scenario{
		CompanyType:  scenarioType(len(decl.Partners), len(decl.Linked)),
		PartnerCount: len(decl.Partners),
		LinkedCount:  len(decl.Linked),
	}

	raw := categoryFor(total)
	previous, prevWarn, err := e.previousCategory(ctx, regcode, partnerShares, linkedRegcodes, year-1)
	if err != nil {
		return Declaration{}, err
	}
	if prevWarn != "" {
		decl.Warnings = append(decl.Warnings, prevWarn)
	}
	decl.Category = CategoryResult{
		Raw:       raw,
		Effective: effectiveCategory(raw, previous),
		Previous:  previous,
	}
	return decl, nil
}

func (e *Engine) partnerRow(ctx context.Context, regcode string, share float64, year int) (PartnerRow, string, error) {
	row := PartnerRow{Regcode: regcode, SharePercent: share}
	ent, err := e.repo.Enterprise(ctx, regcode)
	if err != nil && !errors.Is(err, httpx.ErrNotFound) {
		return PartnerRow{}, "", err
	}
	row.Name = ent.Name

	figures, found, err := e.repo.Figures(ctx, regcode, year)
	if err != nil {
		return PartnerRow{}, "", err
	}
	row.Figures = figures
	row.Weighted = figures.Scale(share)
	if !found {
		return row, missingFiguresWarning(regcode, year), nil
	}
	return row, "", nil
}

func (e *Engine) linkedRow(ctx context.Context, b *graphWalk, regcode string, year int) (LinkedRow, string, error) {
	row := LinkedRow{Regcode: regcode, Basis: BasisAggregated}
	ent, err := e.repo.Enterprise(ctx, regcode)
	if err != nil && !errors.Is(err, httpx.ErrNotFound) {
		return LinkedRow{}, "", err
	}
	row.Name = ent.Name

	consolidated, err := b.insideConsolidation(regcode)
	if err != nil {
		return LinkedRow{}, "", err
	}
	if consolidated {
		row.Basis = BasisConsolidated
	}

	figures, found, err := e.repo.Figures(ctx, regcode, year)
	if err != nil {
		return LinkedRow{}, "", err
	}
	row.Figures = figures
	if !found {
		return row, missingFiguresWarning(regcode, year), nil
	}
	return row, "", nil
}

// previousCategory recomputes the aggregated category against the prior
// year's accounts over the same relationship structure. Missing accounts
// for the enterprise itself disable the two-period rule.
func (e *Engine) previousCategory(ctx context.Context, regcode string, partnerShares map[string]float64, linkedRegcodes []string, year int) (*string, string, error) {
	ownFigures, found, err := e.repo.Figures(ctx, regcode, year)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, fmt.Sprintf("no accounts for %d; category reported from the reference year alone", year), nil
	}

	total := ownFigures
	for _, rc := range sortedKeys(partnerShares) {
		figures, _, err := e.repo.Figures(ctx, rc, year)
		if err != nil {
			return nil, "", err
		}
		total = total.Add(figures.Scale(partnerShares[rc]))
	}
	for _, rc := range linkedRegcodes {
		figures, _, err := e.repo.Figures(ctx, rc, year)
		if err != nil {
			return nil, "", err
		}
		total = total.Add(figures)
	}
	category := categoryFor(total)
	return &category, "", nil
}

// graphWalk caches edge lookups for one Build call.
type graphWalk struct {
	ctx       context.Context
	repo      GraphRepository
	edgeCache map[string][]Edge
}

func (b *graphWalk) edgesOf(regcode string) ([]Edge, error) {
	if edges, ok := b.edgeCache[regcode]; ok {
		return edges, nil
	}
	edges, err := b.repo.Edges(b.ctx, regcode)
	if err != nil {
		return nil, err
	}
	b.edgeCache[regcode] = edges
	return edges, nil
}

// linkedPerimeter walks majority-control edges in both directions from the
// root. The visited set makes ownership cycles terminate.
func (b *graphWalk) linkedPerimeter(root string) (map[string]bool, error) {
	perimeter := map[string]bool{root: true}
	queue := []string{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		edges, err := b.edgesOf(current)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			other, ok := counterpart(edge, current)
			if !ok || perimeter[other] {
				continue
			}
			if linkedControl(edge.ControlPercent()) {
				perimeter[other] = true
				queue = append(queue, other)
			}
		}
	}
	return perimeter, nil
}

// partnerShares finds partner enterprises one hop outside the perimeter
// and the weighting share per Article 6(2)(a): the higher of capital and
// voting percentages across both directions.
func (b *graphWalk) partnerShares(perimeter map[string]bool) (map[string]float64, error) {
	shares := map[string]float64{}
	for inside := range perimeter {
		edges, err := b.edgesOf(inside)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			other, ok := counterpart(edge, inside)
			if !ok || perimeter[other] {
				continue
			}
			if !partnerHolding(edge.ControlPercent()) {
				continue
			}
			weight := edge.SharePercent
			if edge.VotesPercent != nil && *edge.VotesPercent > weight {
				weight = *edge.VotesPercent
			}
			if weight > shares[other] {
				shares[other] = weight
			}
		}
	}
	return shares, nil
}

// insideConsolidation reports whether any majority-control edge touching
// the enterprise carries the consolidated-accounts flag.
func (b *graphWalk) insideConsolidation(regcode string) (bool, error) {
	edges, err := b.edgesOf(regcode)
	if err != nil {
		return false, err
	}
	for _, edge := range edges {
		if edge.Consolidated && linkedControl(edge.ControlPercent()) {
			return true, nil
		}
	}
	return false, nil
}

// counterpart resolves the enterprise on the other end of an edge. Person
// holders and self-edges yield no counterpart.
func counterpart(edge Edge, current string) (string, bool) {
	if !edge.HolderCompany() {
		return "", false
	}
	if edge.HolderID == edge.SubjectRegcode {
		return "", false
	}
	switch current {
	case edge.HolderID:
		return edge.SubjectRegcode, true
	case edge.SubjectRegcode:
		return edge.HolderID, true
	default:
		return "", false
	}
}

func scenarioType(partnerCount, linkedCount int) string {
	switch {
	case linkedCount > 0:
		return TypeLinked
	case partnerCount > 0:
		return TypePartner
	default:
		return TypeAutonomous
	}
}

func summaryRow(label string, f Figures) SummaryRow {
	return SummaryRow{Row: label, Employees: f.Employees, Turnover: f.Turnover, Balance: f.Balance}
}

func missingFiguresWarning(regcode string, year int) string {
	return fmt.Sprintf("no financials for %s in %d; contributing zeros", regcode, year)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
