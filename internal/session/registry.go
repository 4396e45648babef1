package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/PadsterH2012/extractor/internal/types"
)

// sweepInterval is how often the registry scans for expired sessions.
const sweepInterval = time.Minute

// Registry owns all live sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *slog.Logger
}

// NewRegistry creates a registry whose terminal sessions expire after ttl.
func NewRegistry(ttl time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
	}
}

// Create registers a new session.
func (r *Registry) Create() *Session {
	s := newSession()
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	r.logger.Info("session created", "session", s.ID)
	return s
}

// Get looks up a session, failing with bad_session for unknown IDs.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, types.Errorf(types.KindBadSession, "", "unknown session %q", id)
	}
	return s, nil
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Recent returns up to n session snapshots, newest first.
func (r *Registry) Recent(n int) []Status {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	out := make([]Status, len(all))
	for i, s := range all {
		out[i] = s.Snapshot()
	}
	return out
}

// StartSweeper evicts expired sessions until ctx ends. Running sessions are
// never evicted regardless of age.
func (r *Registry) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep(time.Now())
			}
		}
	}()
}

func (r *Registry) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		snap := s.Snapshot()
		if !snap.State.Terminal() {
			continue
		}
		if now.Sub(snap.UpdatedAt) > r.ttl {
			delete(r.sessions, id)
			r.logger.Debug("session expired", "session", id, "state", snap.State)
		}
	}
}
