package mvk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/firmlens/firmlens/internal/platform/httpx"
)

type fakeSnapshots struct {
	mu        sync.Mutex
	snapshots map[string]Snapshot
	saveErr   error
	saves     int
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{snapshots: map[string]Snapshot{}}
}

func (f *fakeSnapshots) Snapshot(ctx context.Context, regcode string, year int) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[figureKey(regcode, year)]
	if !ok {
		return Snapshot{}, fmt.Errorf("snapshot %s/%d: %w", regcode, year, httpx.ErrNotFound)
	}
	return snap, nil
}

func (f *fakeSnapshots) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.snapshots[figureKey(snap.Regcode, snap.Year)] = snap
	return nil
}

func (f *fakeSnapshots) SnapshotKeys(ctx context.Context) ([]SnapshotKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]SnapshotKey, 0, len(f.snapshots))
	for _, snap := range f.snapshots {
		keys = append(keys, SnapshotKey{Regcode: snap.Regcode, Year: snap.Year})
	}
	return keys, nil
}

func (f *fakeSnapshots) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedNow is late enough in the year that the reference year is now-1.
var fixedNow = time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC)

func newTestService(graph *fakeGraph, snaps *fakeSnapshots, maxAge time.Duration) *Service {
	svc := NewService(NewEngine(graph), snaps, maxAge, testLogger())
	svc.WithNow(func() time.Time { return fixedNow })
	return svc
}

func singleCompanyGraph() *fakeGraph {
	graph := newFakeGraph(rootRC)
	graph.figures[figureKey(rootRC, 2024)] = Figures{Employees: 5, Turnover: 1_000_000, Balance: 800_000}
	return graph
}

func TestResolveYearDefaultsToReferenceYear(t *testing.T) {
	svc := newTestService(singleCompanyGraph(), newFakeSnapshots(), time.Hour)

	year, err := svc.ResolveYear(0)
	if err != nil {
		t.Fatalf("ResolveYear(0) error = %v", err)
	}
	if year != 2024 {
		t.Fatalf("expected reference year 2024 got %d", year)
	}
	if _, err := svc.ResolveYear(2025); err == nil {
		t.Fatal("the current year has no filed accounts yet")
	}
	if _, err := svc.ResolveYear(1980); err == nil {
		t.Fatal("years before the register's records must be rejected")
	}
	if year, err := svc.ResolveYear(2010); err != nil || year != 2010 {
		t.Fatalf("a valid explicit year passes through, got %d %v", year, err)
	}
}

func TestDeclarationServesFreshSnapshot(t *testing.T) {
	graph := singleCompanyGraph()
	snaps := newFakeSnapshots()
	snaps.snapshots[figureKey(rootRC, 2024)] = Snapshot{
		Regcode:     rootRC,
		Year:        2024,
		Payload:     Declaration{Regcode: rootRC, Year: 2024},
		GeneratedAt: fixedNow.Add(-time.Minute),
	}
	svc := newTestService(graph, snaps, time.Hour)

	decl, err := svc.Declaration(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Declaration() error = %v", err)
	}
	if decl.Regcode != rootRC {
		t.Fatalf("unexpected payload %+v", decl)
	}
	if graph.walkCount() != 0 {
		t.Fatalf("a fresh snapshot must not trigger a graph walk, got %d", graph.walkCount())
	}
}

func TestDeclarationRecomputesStaleSnapshot(t *testing.T) {
	graph := singleCompanyGraph()
	snaps := newFakeSnapshots()
	snaps.snapshots[figureKey(rootRC, 2024)] = Snapshot{
		Regcode:     rootRC,
		Year:        2024,
		Payload:     Declaration{Regcode: rootRC, Year: 2024},
		GeneratedAt: fixedNow.Add(-48 * time.Hour),
	}
	svc := newTestService(graph, snaps, 24*time.Hour)

	decl, err := svc.Declaration(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Declaration() error = %v", err)
	}
	if graph.walkCount() == 0 {
		t.Fatal("a stale snapshot must be recomputed")
	}
	if decl.Identification.Figures.Employees != 5 {
		t.Fatalf("expected recomputed figures, got %+v", decl.Identification.Figures)
	}
	if snaps.saveCount() != 1 {
		t.Fatalf("the recomputed declaration must be stored, saves = %d", snaps.saveCount())
	}
}

func TestDeclarationServesStaleSnapshotWhenRebuildFails(t *testing.T) {
	graph := singleCompanyGraph()
	graph.walkErr = errors.New("db down")
	snaps := newFakeSnapshots()
	snaps.snapshots[figureKey(rootRC, 2024)] = Snapshot{
		Regcode:     rootRC,
		Year:        2024,
		Payload:     Declaration{Regcode: rootRC, Year: 2024},
		GeneratedAt: fixedNow.Add(-48 * time.Hour),
	}
	svc := newTestService(graph, snaps, 24*time.Hour)

	decl, err := svc.Declaration(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("a failed rebuild must fall back to the stale snapshot, got %v", err)
	}
	if decl.Regcode != rootRC || decl.Year != 2024 {
		t.Fatalf("unexpected payload %+v", decl)
	}
	if graph.walkCount() == 0 {
		t.Fatal("the rebuild must still be attempted before falling back")
	}
}

func TestDeclarationFailsWithoutFallbackSnapshot(t *testing.T) {
	graph := singleCompanyGraph()
	graph.walkErr = errors.New("db down")
	svc := newTestService(graph, newFakeSnapshots(), time.Hour)

	if _, err := svc.Declaration(context.Background(), rootRC, 2024); err == nil {
		t.Fatal("with no snapshot to fall back on the rebuild error must surface")
	}
}

func TestDeclarationComputesWhenSnapshotMissing(t *testing.T) {
	graph := singleCompanyGraph()
	svc := newTestService(graph, newFakeSnapshots(), time.Hour)

	decl, err := svc.Declaration(context.Background(), rootRC, 0)
	if err != nil {
		t.Fatalf("Declaration() error = %v", err)
	}
	if decl.Year != 2024 {
		t.Fatalf("expected default reference year, got %d", decl.Year)
	}
	if graph.walkCount() != 1 {
		t.Fatalf("expected one graph walk, got %d", graph.walkCount())
	}
}

func TestDeclarationCollapsesConcurrentComputes(t *testing.T) {
	graph := singleCompanyGraph()
	graph.walkDelay = 50 * time.Millisecond
	svc := newTestService(graph, newFakeSnapshots(), time.Hour)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Declaration(context.Background(), rootRC, 2024)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if got := graph.walkCount(); got != 1 {
		t.Fatalf("concurrent reads must share one computation, got %d walks", got)
	}
}

func TestDeclarationToleratesSnapshotStoreFailure(t *testing.T) {
	graph := singleCompanyGraph()
	snaps := newFakeSnapshots()
	snaps.saveErr = errors.New("disk full")
	svc := newTestService(graph, snaps, time.Hour)

	if _, err := svc.Declaration(context.Background(), rootRC, 2024); err != nil {
		t.Fatalf("reads must not fail on storage errors, got %v", err)
	}
}

func TestRefreshPersistsSnapshot(t *testing.T) {
	graph := singleCompanyGraph()
	snaps := newFakeSnapshots()
	svc := newTestService(graph, snaps, time.Hour)

	decl, err := svc.Refresh(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	stored, err := snaps.Snapshot(context.Background(), rootRC, 2024)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if stored.GeneratedAt != decl.GeneratedAt {
		t.Fatalf("stored timestamp %v != declaration %v", stored.GeneratedAt, decl.GeneratedAt)
	}
}

func TestRefreshFailsWhenStoreFails(t *testing.T) {
	graph := singleCompanyGraph()
	snaps := newFakeSnapshots()
	snaps.saveErr = errors.New("disk full")
	svc := newTestService(graph, snaps, time.Hour)

	if _, err := svc.Refresh(context.Background(), rootRC, 2024); err == nil {
		t.Fatal("a refresh that cannot store its result must fail")
	}
}

func TestRefreshRejectsInvalidYear(t *testing.T) {
	svc := newTestService(singleCompanyGraph(), newFakeSnapshots(), time.Hour)
	if _, err := svc.Refresh(context.Background(), rootRC, 2999); err == nil {
		t.Fatal("expected year validation error")
	}
}
