package mvk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/firmlens/firmlens/internal/platform/httpx"
	"github.com/firmlens/firmlens/internal/shared"
)

// Service serves declarations from stored snapshots, recomputing when the
// snapshot is absent or older than the freshness window. Concurrent
// recomputations for the same (regcode, year) are collapsed into one.
type Service struct {
	engine    *Engine
	snapshots SnapshotRepository
	maxAge    time.Duration
	logger    *slog.Logger
	group     singleflight.Group
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(engine *Engine, snapshots SnapshotRepository, maxAge time.Duration, logger *slog.Logger) *Service {
	return &Service{
		engine:    engine,
		snapshots: snapshots,
		maxAge:    maxAge,
		logger:    logger,
		now:       time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	s.now = now
	s.engine.WithNow(now)
}

// ResolveYear fills in the default reference year and validates
// caller-supplied ones.
func (s *Service) ResolveYear(year int) (int, error) {
	now := s.now()
	if year == 0 {
		return shared.ReferenceYear(now), nil
	}
	if err := shared.ValidateYear(year, now); err != nil {
		return 0, err
	}
	return year, nil
}

// Declaration returns the declaration for the regcode and year, serving the
// stored snapshot when it is fresh enough. A stale snapshot still beats no
// answer: when the rebuild fails, the old payload is served instead.
func (s *Service) Declaration(ctx context.Context, regcode string, year int) (Declaration, error) {
	year, err := s.ResolveYear(year)
	if err != nil {
		return Declaration{}, err
	}

	var stale *Snapshot
	snapshot, err := s.snapshots.Snapshot(ctx, regcode, year)
	switch {
	case err == nil:
		if s.fresh(snapshot.GeneratedAt) {
			return snapshot.Payload, nil
		}
		stale = &snapshot
	case !errors.Is(err, httpx.ErrNotFound):
		return Declaration{}, err
	}

	decl, err := s.compute(ctx, regcode, year)
	if err != nil {
		if stale != nil {
			if s.logger != nil {
				s.logger.Warn("serving stale declaration snapshot",
					slog.String("regcode", regcode), slog.Int("year", year),
					slog.Time("generated_at", stale.GeneratedAt), slog.Any("error", err))
			}
			return stale.Payload, nil
		}
		return Declaration{}, err
	}
	return decl, nil
}

// Refresh recomputes the declaration and persists the snapshot. Used by the
// background refresh job; unlike reads, a failed save fails the refresh.
func (s *Service) Refresh(ctx context.Context, regcode string, year int) (Declaration, error) {
	year, err := s.ResolveYear(year)
	if err != nil {
		return Declaration{}, err
	}
	decl, err := s.engine.Build(ctx, regcode, year)
	if err != nil {
		return Declaration{}, err
	}
	if err := s.snapshots.SaveSnapshot(ctx, Snapshot{
		Regcode:     regcode,
		Year:        year,
		Payload:     decl,
		GeneratedAt: decl.GeneratedAt,
	}); err != nil {
		return Declaration{}, err
	}
	return decl, nil
}

// compute builds the declaration behind a singleflight gate so that a burst
// of reads for the same stale key performs one graph walk.
func (s *Service) compute(ctx context.Context, regcode string, year int) (Declaration, error) {
	key := fmt.Sprintf("%s:%d", regcode, year)
	resultChan := s.group.DoChan(key, func() (any, error) {
		decl, err := s.engine.Build(ctx, regcode, year)
		if err != nil {
			return nil, err
		}
		// Reads should not fail because the snapshot could not be stored.
		if err := s.snapshots.SaveSnapshot(ctx, Snapshot{
			Regcode:     regcode,
			Year:        year,
			Payload:     decl,
			GeneratedAt: decl.GeneratedAt,
		}); err != nil && s.logger != nil {
			s.logger.Warn("store declaration snapshot",
				slog.String("regcode", regcode), slog.Int("year", year), slog.Any("error", err))
		}
		return decl, nil
	})

	select {
	case <-ctx.Done():
		return Declaration{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Declaration{}, res.Err
		}
		return res.Val.(Declaration), nil
	}
}

func (s *Service) fresh(generatedAt time.Time) bool {
	if s.maxAge <= 0 {
		return true
	}
	return s.now().Sub(generatedAt) <= s.maxAge
}
