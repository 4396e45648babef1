// Package dedup enforces one-extraction-per-ISBN. A claim writes a tentative
// registry entry before extraction starts; completion finalizes it, failure
// rolls it back. Claims on the same ISBN serialize on a per-ISBN mutex so
// concurrent sessions race the registry in a defined order.
package dedup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PadsterH2012/extractor/internal/docstore"
	"github.com/PadsterH2012/extractor/internal/types"
)

// lockTimeout bounds the wait on a contended ISBN mutex. Exceeding it is
// reported as a store failure rather than hanging the session.
const lockTimeout = 5 * time.Second

// Registry is the document-store surface the guard drives.
type Registry interface {
	RegistryLookup(ctx context.Context, isbn13 string) (*docstore.RegistryEntry, error)
	RegistryPutTentative(ctx context.Context, e docstore.RegistryEntry) (existing *docstore.RegistryEntry, created bool, err error)
	RegistrySupersede(ctx context.Context, e docstore.RegistryEntry) error
	RegistryFinalize(ctx context.Context, isbn13, sessionID string, sections, words int) error
	RegistryDropTentative(ctx context.Context, isbn13, sessionID string) error
}

// Guard runs duplicate checks for the pipeline.
type Guard struct {
	reg     Registry
	logger  *slog.Logger
	timeout time.Duration

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// New creates a Guard over a registry.
func New(reg Registry, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		reg:     reg,
		logger:  logger,
		timeout: lockTimeout,
		locks:   make(map[string]chan struct{}),
	}
}

// Claim records a tentative extraction for an ISBN. Documents without an
// ISBN pass through unchecked. An existing entry rejects the claim as a
// duplicate, with the rejection naming the first ingestion date; a manual
// override instead supersedes a prior finished entry and takes over its row.
// In-flight tentative entries are never superseded.
func (g *Guard) Claim(ctx context.Context, e docstore.RegistryEntry, override bool) error {
	if e.ISBN13 == "" {
		return nil
	}

	release, err := g.acquire(ctx, e.ISBN13)
	if err != nil {
		return err
	}
	defer release()

	existing, created, err := g.reg.RegistryPutTentative(ctx, e)
	if err != nil {
		return err
	}
	if created {
		return nil
	}
	if override && existing.Status != docstore.StatusTentative {
		g.logger.Info("override supersedes prior extraction",
			"isbn13", e.ISBN13, "prior_session", existing.SessionID,
			"first_ingested_at", existing.FirstIngestedAt)
		return g.reg.RegistrySupersede(ctx, e)
	}
	g.logger.Info("duplicate claim rejected",
		"isbn13", e.ISBN13, "held_by", existing.SessionID, "status", existing.Status)
	return types.Errorf(types.KindRejectedDuplicate, "dedup_check",
		"isbn %s already ingested on %s into %s", e.ISBN13,
		existing.FirstIngestedAt.Format("2006-01-02"), existing.Collection).
		WithHint("re-run with a manual override to supersede the prior extraction")
}

// Finalize marks the session's claim completed after persistence succeeds,
// recording the artifact's section and word counts on the entry.
func (g *Guard) Finalize(ctx context.Context, isbn13, sessionID string, sections, words int) error {
	if isbn13 == "" {
		return nil
	}
	return g.reg.RegistryFinalize(ctx, isbn13, sessionID, sections, words)
}

// Release rolls back the session's tentative claim after a failed run. Best
// effort: the error is logged, not propagated, since the run already failed.
func (g *Guard) Release(ctx context.Context, isbn13, sessionID string) {
	if isbn13 == "" {
		return
	}
	if err := g.reg.RegistryDropTentative(ctx, isbn13, sessionID); err != nil {
		g.logger.Warn("failed to roll back tentative claim",
			"isbn13", isbn13, "session", sessionID, "error", err)
	}
}

// Lookup reads the registry entry for an ISBN without claiming it.
func (g *Guard) Lookup(ctx context.Context, isbn13 string) (*docstore.RegistryEntry, error) {
	if isbn13 == "" {
		return nil, nil
	}
	return g.reg.RegistryLookup(ctx, isbn13)
}

// acquire takes the per-ISBN mutex, waiting at most the guard timeout.
func (g *Guard) acquire(ctx context.Context, isbn13 string) (func(), error) {
	g.mu.Lock()
	lock, ok := g.locks[isbn13]
	if !ok {
		lock = make(chan struct{}, 1)
		g.locks[isbn13] = lock
	}
	g.mu.Unlock()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	case <-timer.C:
		return nil, types.Errorf(types.KindStoreUnreachable, "dedup_check",
			"timed out waiting for duplicate check on %s", isbn13)
	case <-ctx.Done():
		return nil, types.NewError(types.KindCancelled, "dedup_check", ctx.Err())
	}
}
