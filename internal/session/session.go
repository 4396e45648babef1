// Package session holds the extraction session model: a monotonic state
// machine, progress event broadcast with full replay, and a TTL-swept
// registry keyed by UUID.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PadsterH2012/extractor/internal/types"
)

// State is a session lifecycle state.
type State string

// Pipeline states, in order. Failure states are terminal and absorbing.
const (
	StateCreated         State = "created"
	StateUploaded        State = "uploaded"
	StateIdentifying     State = "identifying"
	StateIdentified      State = "identified"
	StateDedupCheck      State = "dedup_check"
	StateExtracting      State = "extracting"
	StateEnhancing       State = "enhancing"
	StateCategorizing    State = "categorizing"
	StateScoring         State = "scoring"
	StateNovelCharacters State = "novel_characters"
	StatePersisting      State = "persisting"
	StateCompleted       State = "completed"

	StateFailedIdentification State = "failed_identification"
	StateFailedExtraction     State = "failed_extraction"
	StateFailedPersistence    State = "failed_persistence"
	StateRejectedDuplicate    State = "rejected_duplicate"
	StateCancelled            State = "cancelled"
)

// stateOrder gives forward-only ordering for the happy path.
var stateOrder = map[State]int{
	StateCreated:         0,
	StateUploaded:        1,
	StateIdentifying:     2,
	StateIdentified:      3,
	StateDedupCheck:      4,
	StateExtracting:      5,
	StateEnhancing:       6,
	StateCategorizing:    7,
	StateScoring:         8,
	StateNovelCharacters: 9,
	StatePersisting:      10,
	StateCompleted:       11,
}

// Terminal reports whether a state absorbs all further transitions.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailedIdentification, StateFailedExtraction,
		StateFailedPersistence, StateRejectedDuplicate, StateCancelled:
		return true
	}
	return false
}

// Failed reports whether a terminal state is a failure.
func (s State) Failed() bool {
	return s.Terminal() && s != StateCompleted
}

// Event is one progress update. Subscribers receive the full event history
// on attach, then live events.
type Event struct {
	SessionID string    `json:"session_id"`
	State     State     `json:"state"`
	Percent   float64   `json:"percent"`
	Message   string    `json:"message,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	At        time.Time `json:"at"`
}

// Status is a point-in-time session snapshot for the API.
type Status struct {
	ID          string         `json:"id"`
	State       State          `json:"state"`
	Percent     float64        `json:"percent"`
	Document    string         `json:"document,omitempty"`
	ErrorKind   string         `json:"error_kind,omitempty"`
	ErrorMsg    string         `json:"error,omitempty"`
	ErrorHint   string         `json:"hint,omitempty"`
	Verdict     *types.Verdict `json:"verdict,omitempty"`
	HasArtifact bool           `json:"has_artifact"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// RunOptions are the per-run knobs chosen at analyze or extract time. Empty
// fields fall back to the server configuration.
type RunOptions struct {
	Provider string `json:"provider,omitempty"`
	Enhance  string `json:"enhance,omitempty"`
	Layout   string `json:"layout,omitempty"`
}

// Session is one extraction run. All mutation goes through its methods.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	state     State
	percent   float64
	updatedAt time.Time

	doc      *types.Document
	override types.Override
	opts     RunOptions
	verdict  *types.Verdict
	artifact *types.Artifact

	errKind types.ErrorKind
	errMsg  string
	errHint string

	cancel  context.CancelFunc
	events  []Event
	subs    map[int]chan Event
	nextSub int
}

func newSession() *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		state:     StateCreated,
		updatedAt: now,
		subs:      make(map[int]chan Event),
	}
	s.emitLocked("session created")
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetDocument attaches the uploaded blob and moves to uploaded.
func (s *Session) SetDocument(doc *types.Document, override types.Override) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.override = override
	s.advanceLocked(StateUploaded, 5, "document uploaded")
}

// Document returns the uploaded document, nil before upload.
func (s *Session) Document() (*types.Document, types.Override) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, s.override
}

// MergeOverride layers non-empty override fields over the ones recorded at
// upload.
func (s *Session) MergeOverride(o types.Override) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Game != "" {
		s.override.Game = o.Game
	}
	if o.Edition != "" {
		s.override.Edition = o.Edition
	}
	if o.Book != "" {
		s.override.Book = o.Book
	}
	if o.Kind != "" {
		s.override.Kind = o.Kind
	}
}

// SetOptions layers non-empty run options over the current ones.
func (s *Session) SetOptions(opts RunOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if opts.Provider != "" {
		s.opts.Provider = opts.Provider
	}
	if opts.Enhance != "" {
		s.opts.Enhance = opts.Enhance
	}
	if opts.Layout != "" {
		s.opts.Layout = opts.Layout
	}
}

// Options returns the per-run options.
func (s *Session) Options() RunOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// SetVerdict records the identification result.
func (s *Session) SetVerdict(v types.Verdict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdict = &v
}

// Verdict returns the identification result, nil before identification.
func (s *Session) Verdict() *types.Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verdict
}

// SetArtifact records the finished artifact.
func (s *Session) SetArtifact(a *types.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact = a
}

// Artifact returns the artifact, nil until the run completes.
func (s *Session) Artifact() *types.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact
}

// Advance moves the session forward. Backward transitions and transitions
// out of a terminal state are ignored, and percent never decreases.
func (s *Session) Advance(state State, percent float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked(state, percent, message)
}

func (s *Session) advanceLocked(state State, percent float64, message string) {
	if s.state.Terminal() {
		return
	}
	if cur, ok := stateOrder[s.state]; ok {
		if next, ok := stateOrder[state]; !ok || next < cur {
			return
		}
	}
	s.state = state
	if percent > s.percent {
		s.percent = percent
	}
	if state == StateCompleted {
		s.percent = 100
	}
	s.updatedAt = time.Now().UTC()
	s.emitLocked(message)
}

// Fail moves the session to the failure state implied by the error and the
// stage it failed in. Terminal states absorb repeated failures.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}

	kind := types.KindOf(err)
	s.errKind = kind
	s.errMsg = err.Error()
	var pe *types.PipelineError
	if errors.As(err, &pe) {
		s.errHint = pe.Hint
	}

	s.state = failureState(kind, s.state)
	s.updatedAt = time.Now().UTC()
	s.emitLocked(s.errMsg)
}

// failureState maps an error to the terminal state for the stage it
// happened in.
func failureState(kind types.ErrorKind, at State) State {
	switch kind {
	case types.KindRejectedDuplicate:
		return StateRejectedDuplicate
	case types.KindCancelled:
		return StateCancelled
	}
	switch {
	case stateOrder[at] <= stateOrder[StateIdentified]:
		return StateFailedIdentification
	case at == StateDedupCheck, at == StatePersisting:
		return StateFailedPersistence
	default:
		return StateFailedExtraction
	}
}

// BindCancel attaches the run's cancel function.
func (s *Session) BindCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
}

// Cancel requests cooperative cancellation of the running pipeline. The
// session reaches the cancelled state when the pipeline observes it.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Running reports whether the session is mid-pipeline.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.state.Terminal()
}

// Snapshot returns the current status.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		ID:          s.ID,
		State:       s.state,
		Percent:     s.percent,
		ErrorKind:   string(s.errKind),
		ErrorMsg:    s.errMsg,
		ErrorHint:   s.errHint,
		Verdict:     s.verdict,
		HasArtifact: s.artifact != nil,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.updatedAt,
	}
	if s.doc != nil {
		st.Document = s.doc.OriginName
	}
	return st
}

// Subscribe attaches a progress listener. The returned channel first
// replays every past event, then delivers live ones. The cancel function
// detaches and closes the channel.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	replay := make([]Event, len(s.events))
	copy(replay, s.events)

	ch := make(chan Event, len(replay)+64)
	for _, e := range replay {
		ch <- e
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// emitLocked appends and fans out an event. Slow subscribers drop events
// rather than blocking the pipeline; the replay buffer keeps the full
// history for late joiners.
func (s *Session) emitLocked(message string) {
	e := Event{
		SessionID: s.ID,
		State:     s.state,
		Percent:   s.percent,
		Message:   message,
		ErrorKind: string(s.errKind),
		At:        time.Now().UTC(),
	}
	s.events = append(s.events, e)
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
