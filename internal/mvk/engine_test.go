package mvk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/firmlens/firmlens/internal/platform/httpx"
)

type fakeGraph struct {
	mu          sync.Mutex
	enterprises map[string]Enterprise
	edges       []Edge
	figures     map[string]Figures
	walkDelay   time.Duration
	walkErr     error
	walks       int
}

func (f *fakeGraph) Enterprise(ctx context.Context, regcode string) (Enterprise, error) {
	f.mu.Lock()
	f.walks++
	delay := f.walkDelay
	failure := f.walkErr
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if failure != nil {
		return Enterprise{}, failure
	}
	ent, ok := f.enterprises[regcode]
	if !ok {
		return Enterprise{}, fmt.Errorf("enterprise %s: %w", regcode, httpx.ErrNotFound)
	}
	return ent, nil
}

func (f *fakeGraph) walkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.walks
}

func (f *fakeGraph) Edges(ctx context.Context, regcode string) ([]Edge, error) {
	var out []Edge
	for _, e := range f.edges {
		if e.SubjectRegcode == regcode || (e.HolderType == HolderTypeCompany && e.HolderID == regcode) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeGraph) Figures(ctx context.Context, regcode string, year int) (Figures, bool, error) {
	fig, ok := f.figures[figureKey(regcode, year)]
	return fig, ok, nil
}

func figureKey(regcode string, year int) string {
	return fmt.Sprintf("%s:%d", regcode, year)
}

func pct(v float64) *float64 { return &v }

func companyEdge(holder, subject string, share float64, votes *float64) Edge {
	return Edge{
		HolderType:     HolderTypeCompany,
		HolderID:       holder,
		SubjectRegcode: subject,
		SharePercent:   share,
		VotesPercent:   votes,
	}
}

func newFakeGraph(regcodes ...string) *fakeGraph {
	f := &fakeGraph{
		enterprises: map[string]Enterprise{},
		figures:     map[string]Figures{},
	}
	for i, rc := range regcodes {
		f.enterprises[rc] = Enterprise{
			Regcode: rc,
			Name:    fmt.Sprintf("SIA Uzņēmums %d", i+1),
			Address: "Rīga",
		}
	}
	return f
}

const (
	rootRC = "40003000001"
	bRC    = "40003000002"
	cRC    = "40003000003"
	dRC    = "40003000004"
)

func TestBuildAutonomousEnterprise(t *testing.T) {
	graph := newFakeGraph(rootRC, bRC)
	graph.edges = []Edge{
		companyEdge(bRC, rootRC, 10, nil),
		{HolderType: HolderTypePerson, HolderID: "ab12cd34ef56ab78", SubjectRegcode: rootRC, SharePercent: 90},
	}
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 5, Turnover: 1_000_000, Balance: 800_000}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if decl.Scenario.CompanyType != TypeAutonomous {
		t.Fatalf("expected AUTONOMOUS got %s", decl.Scenario.CompanyType)
	}
	if len(decl.Partners) != 0 || len(decl.Linked) != 0 {
		t.Fatalf("expected no relationships, got %d partners %d linked", len(decl.Partners), len(decl.Linked))
	}
	if decl.Partners == nil || decl.Linked == nil {
		t.Fatal("empty sections must serialize as [] rather than null")
	}
	if decl.Summary.Total.Employees != 5 || decl.Summary.Total.Turnover != 1_000_000 {
		t.Fatalf("total must equal own figures, got %+v", decl.Summary.Total)
	}
	if decl.Category.Raw != CategoryMicro {
		t.Fatalf("expected MICRO got %s", decl.Category.Raw)
	}
}

func TestBuildPartnerWeighting(t *testing.T) {
	graph := newFakeGraph(rootRC, bRC)
	graph.edges = []Edge{companyEdge(bRC, rootRC, 40, nil)}
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 20, Turnover: 4_000_000, Balance: 3_000_000}
	graph.figures[figureKey(bRC, 2024)] = Figures{Employees: 100, Turnover: 1_000_000, Balance: 500_000}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if decl.Scenario.CompanyType != TypePartner || decl.Scenario.PartnerCount != 1 {
		t.Fatalf("expected one PARTNER, got %+v", decl.Scenario)
	}
	row := decl.Partners[0]
	if row.SharePercent != 40 {
		t.Fatalf("expected share 40 got %v", row.SharePercent)
	}
	if row.Weighted.Employees != 40 || row.Weighted.Turnover != 400_000 || row.Weighted.Balance != 200_000 {
		t.Fatalf("expected proportional contribution, got %+v", row.Weighted)
	}
	if decl.Summary.Partner.Employees != 40 {
		t.Fatalf("summary row 2.2 must carry the weighted figures, got %+v", decl.Summary.Partner)
	}
	if decl.Summary.Total.Employees != 60 || decl.Summary.Total.Turnover != 4_400_000 {
		t.Fatalf("unexpected aggregate %+v", decl.Summary.Total)
	}
}

func TestBuildLinkedTransitive(t *testing.T) {
	graph := newFakeGraph(rootRC, bRC, cRC)
	graph.edges = []Edge{
		companyEdge(rootRC, bRC, 60, nil),
		companyEdge(bRC, cRC, 80, nil),
	}
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 10, Turnover: 2_000_000, Balance: 1_000_000}
	graph.figures[figureKey(bRC, 2024)] = Figures{Employees: 30, Turnover: 3_000_000, Balance: 2_000_000}
	graph.figures[figureKey(cRC, 2024)] = Figures{Employees: 15, Turnover: 1_000_000, Balance: 500_000}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if decl.Scenario.CompanyType != TypeLinked || decl.Scenario.LinkedCount != 2 {
		t.Fatalf("expected two LINKED enterprises, got %+v", decl.Scenario)
	}
	if decl.Summary.Linked.Employees != 45 || decl.Summary.Linked.Turnover != 4_000_000 {
		t.Fatalf("linked enterprises count at 100%%, got %+v", decl.Summary.Linked)
	}
	if decl.Summary.Total.Employees != 55 {
		t.Fatalf("unexpected aggregate %+v", decl.Summary.Total)
	}
}

func TestBuildUpwardControlIsLinked(t *testing.T) {
	graph := newFakeGraph(rootRC, bRC)
	graph.edges = []Edge{companyEdge(bRC, rootRC, 75, nil)}
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 5}
	graph.figures[figureKey(bRC, 2024)] = Figures{Employees: 300}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(decl.Linked) != 1 || decl.Linked[0].Regcode != bRC {
		t.Fatalf("a majority holder is a linked enterprise, got %+v", decl.Linked)
	}
	if decl.Category.Raw != CategoryLarge {
		t.Fatalf("the parent's staff pushes the group to LARGE, got %s", decl.Category.Raw)
	}
}

func TestBuildThresholdBoundaries(t *testing.T) {
	graph := newFakeGraph(rootRC, bRC, cRC, dRC)
	graph.edges = []Edge{
		companyEdge(rootRC, bRC, 50, nil),   // partner: at most half
		companyEdge(rootRC, cRC, 50.1, nil), // linked: above half
		companyEdge(rootRC, dRC, 24.9, nil), // ignored: below a quarter
	}
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 1}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(decl.Partners) != 1 || decl.Partners[0].Regcode != bRC {
		t.Fatalf("expected %s as the only partner, got %+v", bRC, decl.Partners)
	}
	if len(decl.Linked) != 1 || decl.Linked[0].Regcode != cRC {
		t.Fatalf("expected %s as the only linked enterprise, got %+v", cRC, decl.Linked)
	}
}

func TestBuildVotingRightsOverrideCapital(t *testing.T) {
	graph := newFakeGraph(rootRC, bRC, cRC)
	graph.edges = []Edge{
		companyEdge(bRC, rootRC, 10, pct(60)), // votes decide: linked
		companyEdge(cRC, rootRC, 40, pct(10)), // votes decide: ignored
	}
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 1}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(decl.Linked) != 1 || decl.Linked[0].Regcode != bRC {
		t.Fatalf("voting rights must classify the relationship, got %+v", decl.Linked)
	}
	if len(decl.Partners) != 0 {
		t.Fatalf("a 10%% voting stake is no partner, got %+v", decl.Partners)
	}
}

func TestBuildPartnerWeightUsesHigherPercent(t *testing.T) {
	graph := newFakeGraph(rootRC, bRC)
	graph.edges = []Edge{companyEdge(bRC, rootRC, 30, pct(45))}
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 1}
	graph.figures[figureKey(bRC, 2024)] = Figures{Employees: 100, Turnover: 1_000_000}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(decl.Partners) != 1 {
		t.Fatalf("expected one partner got %+v", decl.Partners)
	}
	row := decl.Partners[0]
	if row.SharePercent != 45 {
		t.Fatalf("the higher of capital and votes weights the contribution, got %v", row.SharePercent)
	}
	if row.Weighted.Employees != 45 || row.Weighted.Turnover != 450_000 {
		t.Fatalf("unexpected weighted figures %+v", row.Weighted)
	}
}

func TestBuildOwnershipCycleTerminates(t *testing.T) {
	graph := newFakeGraph(rootRC, bRC)
	graph.edges = []Edge{
		companyEdge(rootRC, bRC, 60, nil),
		companyEdge(bRC, rootRC, 60, nil),
	}
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 5}
	graph.figures[figureKey(bRC, 2024)] = Figures{Employees: 7}

	done := make(chan Declaration, 1)
	errCh := make(chan error, 1)
	go func() {
		decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
		if err != nil {
			errCh <- err
			return
		}
		done <- decl
	}()
	select {
	case err := <-errCh:
		t.Fatalf("Build() error = %v", err)
	case decl := <-done:
		if len(decl.Linked) != 1 || decl.Linked[0].Regcode != bRC {
			t.Fatalf("each cycle member appears once, got %+v", decl.Linked)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Build() did not terminate on a cyclic graph")
	}
}

func TestBuildConsolidationBasis(t *testing.T) {
	graph := newFakeGraph(rootRC, bRC, cRC)
	graph.edges = []Edge{
		{HolderType: HolderTypeCompany, HolderID: rootRC, SubjectRegcode: bRC, SharePercent: 60, Consolidated: true},
		companyEdge(rootRC, cRC, 70, nil),
	}
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 1}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	basis := map[string]string{}
	for _, row := range decl.Linked {
		basis[row.Regcode] = row.Basis
	}
	if basis[bRC] != BasisConsolidated {
		t.Fatalf("consolidated member must report B1, got %s", basis[bRC])
	}
	if basis[cRC] != BasisAggregated {
		t.Fatalf("unconsolidated member must report B2, got %s", basis[cRC])
	}
}

func TestBuildMissingFinancialsWarns(t *testing.T) {
	graph := newFakeGraph(rootRC, bRC)
	graph.edges = []Edge{companyEdge(rootRC, bRC, 60, nil)}
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 5, Turnover: 100_000}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if decl.Summary.Total.Employees != 5 {
		t.Fatalf("a missing report contributes zeros, got %+v", decl.Summary.Total)
	}
	found := false
	for _, w := range decl.Warnings {
		if strings.Contains(w, bRC) && strings.Contains(w, "2024") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a warning naming %s, got %v", bRC, decl.Warnings)
	}
}

func TestBuildTwoPeriodRule(t *testing.T) {
	graph := newFakeGraph(rootRC)
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 60, Turnover: 5_000_000, Balance: 5_000_000}
	graph.figures[figureKey(rootRC, 2023)] = Figures{Employees: 40, Turnover: 5_000_000, Balance: 5_000_000}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if decl.Category.Raw != CategoryMedium {
		t.Fatalf("expected raw MEDIUM got %s", decl.Category.Raw)
	}
	if decl.Category.Previous == nil || *decl.Category.Previous != CategorySmall {
		t.Fatalf("expected previous SMALL got %v", decl.Category.Previous)
	}
	if decl.Category.Effective != CategorySmall {
		t.Fatalf("a one-year change must not take effect, got %s", decl.Category.Effective)
	}
}

func TestBuildTwoPeriodRuleWithoutPriorAccounts(t *testing.T) {
	graph := newFakeGraph(rootRC)
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 60}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if decl.Category.Previous != nil {
		t.Fatalf("expected no previous category, got %v", *decl.Category.Previous)
	}
	if decl.Category.Effective != decl.Category.Raw {
		t.Fatalf("without prior accounts the raw category stands, got %s", decl.Category.Effective)
	}
	found := false
	for _, w := range decl.Warnings {
		if strings.Contains(w, "2023") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a warning about the missing prior year, got %v", decl.Warnings)
	}
}

func TestBuildPartnerOfLinkedMember(t *testing.T) {
	graph := newFakeGraph(rootRC, bRC, cRC)
	graph.edges = []Edge{
		companyEdge(rootRC, bRC, 60, nil),
		companyEdge(cRC, bRC, 30, nil),
	}
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 1}
	graph.figures[figureKey(cRC, 2024)] = Figures{Employees: 10}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(decl.Partners) != 1 || decl.Partners[0].Regcode != cRC {
		t.Fatalf("partners of perimeter members count, got %+v", decl.Partners)
	}
	if decl.Partners[0].Weighted.Employees != 3 {
		t.Fatalf("expected 30%% of 10 AWU, got %v", decl.Partners[0].Weighted.Employees)
	}
}

func TestBuildIgnoresPersonsAndSelfEdges(t *testing.T) {
	graph := newFakeGraph(rootRC)
	graph.edges = []Edge{
		{HolderType: HolderTypePerson, HolderID: "ab12cd34ef56ab78", SubjectRegcode: rootRC, SharePercent: 80},
		companyEdge(rootRC, rootRC, 100, nil),
	}
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 3}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if decl.Scenario.CompanyType != TypeAutonomous {
		t.Fatalf("person holders and self references never form relationships, got %+v", decl.Scenario)
	}
}

func TestBuildOrdersRowsByRegcode(t *testing.T) {
	graph := newFakeGraph(rootRC, bRC, cRC, dRC)
	graph.edges = []Edge{
		companyEdge(dRC, rootRC, 30, nil),
		companyEdge(bRC, rootRC, 30, nil),
		companyEdge(cRC, rootRC, 30, nil),
	}
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 1}

	decl, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(decl.Partners) != 3 {
		t.Fatalf("expected three partners got %d", len(decl.Partners))
	}
	for i := 1; i < len(decl.Partners); i++ {
		if decl.Partners[i-1].Regcode > decl.Partners[i].Regcode {
			t.Fatalf("partner rows must be ordered by regcode, got %+v", decl.Partners)
		}
	}
}

func TestBuildUnknownEnterprise(t *testing.T) {
	graph := newFakeGraph()
	_, err := NewEngine(graph).Build(context.Background(), rootRC, 2024)
	if !errors.Is(err, httpx.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
