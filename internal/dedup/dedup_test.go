package dedup

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PadsterH2012/extractor/internal/docstore"
	"github.com/PadsterH2012/extractor/internal/types"
)

// memRegistry is an in-memory Registry with the document store's insert
// semantics.
type memRegistry struct {
	mu      sync.Mutex
	entries map[string]docstore.RegistryEntry
}

func newMemRegistry() *memRegistry {
	return &memRegistry{entries: make(map[string]docstore.RegistryEntry)}
}

func (m *memRegistry) RegistryLookup(ctx context.Context, isbn13 string) (*docstore.RegistryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[isbn13]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *memRegistry) RegistryPutTentative(ctx context.Context, e docstore.RegistryEntry) (*docstore.RegistryEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prior, ok := m.entries[e.ISBN13]; ok {
		return &prior, false, nil
	}
	e.Status = docstore.StatusTentative
	e.FirstIngestedAt = time.Now()
	m.entries[e.ISBN13] = e
	return nil, true, nil
}

func (m *memRegistry) RegistrySupersede(ctx context.Context, e docstore.RegistryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prior, ok := m.entries[e.ISBN13]
	if !ok {
		return types.Errorf(types.KindStoreConflict, "persist", "entry vanished")
	}
	prior.Status = docstore.StatusSuperseded
	prior.SessionID = e.SessionID
	prior.Collection = e.Collection
	prior.Title = e.Title
	prior.Author = e.Author
	m.entries[e.ISBN13] = prior
	return nil
}

func (m *memRegistry) RegistryFinalize(ctx context.Context, isbn13, sessionID string, sections, words int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[isbn13]
	if !ok || e.SessionID != sessionID {
		return types.Errorf(types.KindStoreConflict, "persist", "entry not owned")
	}
	e.Status = docstore.StatusCompleted
	e.Sections = sections
	e.Words = words
	m.entries[isbn13] = e
	return nil
}

func (m *memRegistry) RegistryDropTentative(ctx context.Context, isbn13, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[isbn13]
	if ok && e.SessionID == sessionID && e.Status == docstore.StatusTentative {
		delete(m.entries, isbn13)
	}
	return nil
}

const isbn = "9780786965618"

func entry(isbn13, collection, sessionID string) docstore.RegistryEntry {
	return docstore.RegistryEntry{ISBN13: isbn13, Collection: collection, SessionID: sessionID}
}

func TestClaimFinalizeLifecycle(t *testing.T) {
	reg := newMemRegistry()
	g := New(reg, nil)
	ctx := context.Background()

	if err := g.Claim(ctx, entry(isbn, "source_material.dnd.1st.phb.dnd_1st_phb", "s1"), false); err != nil {
		t.Fatal(err)
	}
	if err := g.Finalize(ctx, isbn, "s1", 42, 1700); err != nil {
		t.Fatal(err)
	}

	e, err := g.Lookup(ctx, isbn)
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || e.Status != docstore.StatusCompleted {
		t.Fatalf("entry = %+v, want completed", e)
	}
	if e.Sections != 42 || e.Words != 1700 {
		t.Errorf("counts = %d sections, %d words", e.Sections, e.Words)
	}
	if e.FirstIngestedAt.IsZero() {
		t.Error("first ingestion time not recorded")
	}
}

func TestSecondClaimRejected(t *testing.T) {
	reg := newMemRegistry()
	g := New(reg, nil)
	ctx := context.Background()

	if err := g.Claim(ctx, entry(isbn, "coll", "s1"), false); err != nil {
		t.Fatal(err)
	}
	err := g.Claim(ctx, entry(isbn, "coll", "s2"), false)
	if !types.IsKind(err, types.KindRejectedDuplicate) {
		t.Fatalf("kind = %v, want rejected_duplicate", types.KindOf(err))
	}
}

func TestRejectionReportsFirstIngestionDate(t *testing.T) {
	reg := newMemRegistry()
	reg.entries[isbn] = docstore.RegistryEntry{
		ISBN13:          isbn,
		Collection:      "source_material.dnd.5th.phb.dnd_5th_phb",
		Status:          docstore.StatusCompleted,
		SessionID:       "s1",
		FirstIngestedAt: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
	}
	g := New(reg, nil)

	err := g.Claim(context.Background(), entry(isbn, "coll", "s2"), false)
	if !types.IsKind(err, types.KindRejectedDuplicate) {
		t.Fatalf("kind = %v, want rejected_duplicate", types.KindOf(err))
	}
	if !strings.Contains(err.Error(), "2024-01-15") {
		t.Errorf("rejection does not name the first ingestion date: %v", err)
	}
}

func TestOverrideSupersedesCompletedEntry(t *testing.T) {
	first := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	reg := newMemRegistry()
	reg.entries[isbn] = docstore.RegistryEntry{
		ISBN13:          isbn,
		Collection:      "old_coll",
		Status:          docstore.StatusCompleted,
		SessionID:       "s1",
		Sections:        10,
		Words:           500,
		FirstIngestedAt: first,
	}
	g := New(reg, nil)
	ctx := context.Background()

	e := entry(isbn, "new_coll", "s2")
	e.Title = "Player's Handbook"
	if err := g.Claim(ctx, e, true); err != nil {
		t.Fatal(err)
	}

	got, _ := g.Lookup(ctx, isbn)
	if got.Status != docstore.StatusSuperseded || got.SessionID != "s2" {
		t.Fatalf("entry after override = %+v", got)
	}
	if !got.FirstIngestedAt.Equal(first) {
		t.Errorf("first ingestion time rewritten: %v", got.FirstIngestedAt)
	}

	if err := g.Finalize(ctx, isbn, "s2", 20, 900); err != nil {
		t.Fatal(err)
	}
	got, _ = g.Lookup(ctx, isbn)
	if got.Status != docstore.StatusCompleted || got.Sections != 20 || got.Words != 900 {
		t.Errorf("entry after finalize = %+v", got)
	}
}

func TestOverrideNeverSupersedesTentative(t *testing.T) {
	reg := newMemRegistry()
	g := New(reg, nil)
	ctx := context.Background()

	if err := g.Claim(ctx, entry(isbn, "coll", "s1"), false); err != nil {
		t.Fatal(err)
	}
	err := g.Claim(ctx, entry(isbn, "coll", "s2"), true)
	if !types.IsKind(err, types.KindRejectedDuplicate) {
		t.Fatalf("kind = %v, want rejected_duplicate for in-flight entry", types.KindOf(err))
	}
}

func TestReleaseAllowsReclaim(t *testing.T) {
	reg := newMemRegistry()
	g := New(reg, nil)
	ctx := context.Background()

	if err := g.Claim(ctx, entry(isbn, "coll", "s1"), false); err != nil {
		t.Fatal(err)
	}
	g.Release(ctx, isbn, "s1")

	if err := g.Claim(ctx, entry(isbn, "coll", "s2"), false); err != nil {
		t.Fatalf("reclaim after release failed: %v", err)
	}
}

func TestReleaseNeverDropsCompleted(t *testing.T) {
	reg := newMemRegistry()
	g := New(reg, nil)
	ctx := context.Background()

	if err := g.Claim(ctx, entry(isbn, "coll", "s1"), false); err != nil {
		t.Fatal(err)
	}
	if err := g.Finalize(ctx, isbn, "s1", 5, 250); err != nil {
		t.Fatal(err)
	}
	g.Release(ctx, isbn, "s1")

	e, _ := g.Lookup(ctx, isbn)
	if e == nil || e.Status != docstore.StatusCompleted {
		t.Errorf("completed entry dropped: %+v", e)
	}
}

func TestEmptyISBNPassesThrough(t *testing.T) {
	g := New(newMemRegistry(), nil)
	ctx := context.Background()
	if err := g.Claim(ctx, entry("", "coll", "s1"), false); err != nil {
		t.Fatal(err)
	}
	if err := g.Finalize(ctx, "", "s1", 0, 0); err != nil {
		t.Fatal(err)
	}
}

func TestConcurrentClaimsExactlyOneWins(t *testing.T) {
	reg := newMemRegistry()
	g := New(reg, nil)
	ctx := context.Background()

	const n = 8
	results := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- g.Claim(ctx, entry(isbn, "coll", string(rune('a'+i))), false)
		}(i)
	}
	wg.Wait()
	close(results)

	wins, rejects := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case types.IsKind(err, types.KindRejectedDuplicate):
			rejects++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 || rejects != n-1 {
		t.Errorf("wins = %d, rejects = %d, want 1 and %d", wins, rejects, n-1)
	}
}

func TestLockTimeoutReportsStoreFailure(t *testing.T) {
	g := New(newMemRegistry(), nil)
	g.timeout = 20 * time.Millisecond

	// Hold the per-ISBN lock so a second claim cannot proceed.
	release, err := g.acquire(context.Background(), isbn)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	err = g.Claim(context.Background(), entry(isbn, "coll", "s1"), false)
	if !types.IsKind(err, types.KindStoreUnreachable) {
		t.Fatalf("kind = %v, want store_unreachable", types.KindOf(err))
	}
}
