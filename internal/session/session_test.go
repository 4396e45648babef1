package session

import (
	"testing"
	"time"

	"github.com/PadsterH2012/extractor/internal/types"
)

func TestAdvanceIsMonotonic(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	s := r.Create()

	s.Advance(StateUploaded, 5, "")
	s.Advance(StateIdentifying, 10, "")
	s.Advance(StateExtracting, 30, "")

	// Backward transition is ignored.
	s.Advance(StateUploaded, 1, "")
	if s.State() != StateExtracting {
		t.Errorf("state = %q after backward advance", s.State())
	}

	// Percent never decreases.
	s.Advance(StateEnhancing, 20, "")
	if snap := s.Snapshot(); snap.Percent != 30 {
		t.Errorf("percent = %v, want 30", snap.Percent)
	}
}

func TestTerminalStatesAbsorb(t *testing.T) {
	r := NewRegistry(time.Hour, nil)

	s := r.Create()
	s.Advance(StatePersisting, 90, "")
	s.Fail(types.Errorf(types.KindStoreUnreachable, "persist", "down"))
	if s.State() != StateFailedPersistence {
		t.Fatalf("state = %q", s.State())
	}
	s.Advance(StateCompleted, 100, "")
	if s.State() != StateFailedPersistence {
		t.Errorf("terminal state not absorbing: %q", s.State())
	}
	s.Fail(types.Errorf(types.KindCancelled, "", "late cancel"))
	if s.State() != StateFailedPersistence {
		t.Errorf("terminal state overwritten by later failure: %q", s.State())
	}
}

func TestFailureStateByStage(t *testing.T) {
	cases := []struct {
		at   State
		kind types.ErrorKind
		want State
	}{
		{StateIdentifying, types.KindAIUnreachable, StateFailedIdentification},
		{StateExtracting, types.KindPageFailed, StateFailedExtraction},
		{StateCategorizing, types.KindAITimeout, StateFailedExtraction},
		{StatePersisting, types.KindStoreUnreachable, StateFailedPersistence},
		{StateDedupCheck, types.KindStoreUnreachable, StateFailedPersistence},
		{StateDedupCheck, types.KindRejectedDuplicate, StateRejectedDuplicate},
		{StateExtracting, types.KindCancelled, StateCancelled},
	}
	for _, tc := range cases {
		if got := failureState(tc.kind, tc.at); got != tc.want {
			t.Errorf("failureState(%v, %v) = %v, want %v", tc.kind, tc.at, got, tc.want)
		}
	}
}

func TestSubscribeReplaysHistory(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	s := r.Create()
	s.Advance(StateUploaded, 5, "up")
	s.Advance(StateIdentifying, 10, "id")

	ch, cancel := s.Subscribe()
	defer cancel()

	// Replay: created + two advances.
	var got []Event
	for i := 0; i < 3; i++ {
		select {
		case e := <-ch:
			got = append(got, e)
		case <-time.After(time.Second):
			t.Fatalf("replay stalled after %d events", len(got))
		}
	}
	if got[0].State != StateCreated || got[2].State != StateIdentifying {
		t.Errorf("replay order wrong: %v, %v", got[0].State, got[2].State)
	}

	// Live events follow.
	s.Advance(StateExtracting, 30, "extract")
	select {
	case e := <-ch:
		if e.State != StateExtracting {
			t.Errorf("live event = %v", e.State)
		}
	case <-time.After(time.Second):
		t.Fatal("live event not delivered")
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	_, err := r.Get("nope")
	if !types.IsKind(err, types.KindBadSession) {
		t.Fatalf("kind = %v, want bad_session", types.KindOf(err))
	}
}

func TestSweepSkipsRunningSessions(t *testing.T) {
	r := NewRegistry(time.Millisecond, nil)
	running := r.Create()
	running.Advance(StateExtracting, 30, "")

	done := r.Create()
	done.Advance(StateCompleted, 100, "")

	time.Sleep(5 * time.Millisecond)
	r.sweep(time.Now())

	if _, err := r.Get(running.ID); err != nil {
		t.Error("running session evicted")
	}
	if _, err := r.Get(done.ID); err == nil {
		t.Error("expired terminal session not evicted")
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	a := r.Create()
	time.Sleep(2 * time.Millisecond)
	b := r.Create()

	recent := r.Recent(10)
	if len(recent) != 2 {
		t.Fatalf("recent = %d", len(recent))
	}
	if recent[0].ID != b.ID || recent[1].ID != a.ID {
		t.Errorf("order = %s, %s", recent[0].ID, recent[1].ID)
	}
}

func TestCompletedForcesFullPercent(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	s := r.Create()
	s.Advance(StateCompleted, 97, "")
	if snap := s.Snapshot(); snap.Percent != 100 {
		t.Errorf("percent = %v, want 100", snap.Percent)
	}
}

func TestOptionsAndOverrideMerge(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	s := r.Create()
	s.SetDocument(&types.Document{OriginName: "a.pdf"}, types.Override{Game: "dnd"})

	s.MergeOverride(types.Override{Edition: "5th"})
	s.SetOptions(RunOptions{Provider: "mock"})
	s.SetOptions(RunOptions{Enhance: "aggressive"})

	_, override := s.Document()
	if override.Game != "dnd" || override.Edition != "5th" {
		t.Errorf("override = %+v", override)
	}
	opts := s.Options()
	if opts.Provider != "mock" || opts.Enhance != "aggressive" {
		t.Errorf("options = %+v", opts)
	}
}
