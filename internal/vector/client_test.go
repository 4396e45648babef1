package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PadsterH2012/extractor/internal/types"
)

// fakeStore is a minimal in-memory stand-in for the store's REST surface.
type fakeStore struct {
	collections map[string]string            // name -> id
	records     map[string]map[string]Record // collection id -> record id -> record
	upserts     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: make(map[string]string),
		records:     make(map[string]map[string]Record),
	}
}

func (f *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"nanosecond heartbeat": 1})
	})
	mux.HandleFunc("POST /api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		id, ok := f.collections[body.Name]
		if !ok {
			id = "id-" + body.Name
			f.collections[body.Name] = id
			f.records[id] = make(map[string]Record)
		}
		json.NewEncoder(w).Encode(CollectionInfo{ID: id, Name: body.Name})
	})
	mux.HandleFunc("POST /api/v1/collections/{id}/upsert", func(w http.ResponseWriter, r *http.Request) {
		f.upserts++
		var body struct {
			IDs       []string         `json:"ids"`
			Documents []string         `json:"documents"`
			Metadatas []map[string]any `json:"metadatas"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		coll := f.records[r.PathValue("id")]
		for i, id := range body.IDs {
			coll[id] = Record{ID: id, Text: body.Documents[i], Metadata: body.Metadatas[i]}
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/v1/collections/{id}/count", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(len(f.records[r.PathValue("id")]))
	})
	return mux
}

func TestUpsertIsIdempotent(t *testing.T) {
	store := newFakeStore()
	srv := httptest.NewServer(store.handler())
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	records := []Record{
		{ID: RecordID("rulebooks", 1, 0), Text: "combat rules", Metadata: map[string]any{"page": 1}},
		{ID: RecordID("rulebooks", 1, 1), Text: "more rules", Metadata: map[string]any{"page": 1}},
	}
	if err := c.Upsert(ctx, "rulebooks", records); err != nil {
		t.Fatal(err)
	}
	if err := c.Upsert(ctx, "rulebooks", records); err != nil {
		t.Fatal(err)
	}

	n, err := c.Count(ctx, "rulebooks")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2 after double upsert", n)
	}
}

func TestEnsureCollectionCachesID(t *testing.T) {
	store := newFakeStore()
	srv := httptest.NewServer(store.handler())
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	a, err := c.EnsureCollection(ctx, "rpger", nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.EnsureCollection(ctx, "rpger", nil)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("ids differ: %q vs %q", a, b)
	}
}

func TestUpsertOversizeRejectedLocally(t *testing.T) {
	// No server: the preflight check must fire before any request.
	c := NewClient("http://127.0.0.1:0")
	err := c.Upsert(context.Background(), "x", []Record{
		{ID: "big", Text: strings.Repeat("a", MaxDocumentBytes+1)},
	})
	if !types.IsKind(err, types.KindStoreOversize) {
		t.Fatalf("kind = %v, want store_oversize", types.KindOf(err))
	}
}

func TestUnreachableStore(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	err := c.HealthCheck(context.Background())
	if !types.IsKind(err, types.KindStoreUnreachable) {
		t.Fatalf("kind = %v, want store_unreachable", types.KindOf(err))
	}
}

func TestStatusMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/conflict"):
			w.WriteHeader(http.StatusConflict)
		case strings.HasSuffix(r.URL.Path, "/oversize"):
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	if err := c.do(ctx, http.MethodGet, "/conflict", nil, nil); !types.IsKind(err, types.KindStoreConflict) {
		t.Errorf("409 kind = %v", types.KindOf(err))
	}
	if err := c.do(ctx, http.MethodGet, "/oversize", nil, nil); !types.IsKind(err, types.KindStoreOversize) {
		t.Errorf("413 kind = %v", types.KindOf(err))
	}
	if err := c.do(ctx, http.MethodGet, "/boom", nil, nil); !types.IsKind(err, types.KindStoreUnreachable) {
		t.Errorf("500 kind = %v", types.KindOf(err))
	}
}

func TestRecordID(t *testing.T) {
	got := RecordID("source_material.dnd.1st.phb.dnd_1st_phb", 12, 3)
	want := "source_material.dnd.1st.phb.dnd_1st_phb_page12_3"
	if got != want {
		t.Errorf("RecordID = %q, want %q", got, want)
	}
}
