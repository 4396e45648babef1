package endpoints

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/PadsterH2012/extractor/internal/api"
	"github.com/PadsterH2012/extractor/internal/catalog"
	"github.com/PadsterH2012/extractor/internal/config"
	"github.com/PadsterH2012/extractor/internal/pipeline"
	"github.com/PadsterH2012/extractor/internal/providers"
	"github.com/PadsterH2012/extractor/internal/session"
	"github.com/PadsterH2012/extractor/internal/svcctx"
	"github.com/PadsterH2012/extractor/internal/types"
)

// newTestServer wires the endpoint set behind an svcctx-enriched mux, with
// no backing stores.
func newTestServer(t *testing.T, uploadMax int64) (*httptest.Server, *svcctx.Services) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  upload_max_bytes: " + strconv.FormatInt(uploadMax, 10) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalog.New()
	registry := providers.NewRegistry(cat, logger)
	services := &svcctx.Services{
		ConfigManager: mgr,
		Catalog:       cat,
		Providers:     registry,
		Sessions:      session.NewRegistry(time.Hour, logger),
		Orchestrator: &pipeline.Orchestrator{
			Catalog:   cat,
			Providers: registry,
			Logger:    logger,
		},
		Logger: logger,
	}

	apiRegistry := api.NewRegistry()
	for _, ep := range All() {
		apiRegistry.Register(ep)
	}
	mux := http.NewServeMux()
	apiRegistry.RegisterRoutes(mux, func(h http.HandlerFunc) http.HandlerFunc { return h })

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), services)))
	})
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts, services
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func uploadFile(t *testing.T, url, filename string, payload []byte, fields map[string]string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(payload)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, 1<<20)
	var resp HealthResponse
	if code := getJSON(t, ts.URL+"/health", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t, 1<<20)

	var created SessionCreateResponse
	if code := postJSON(t, ts.URL+"/api/sessions", &created); code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if created.ID == "" || created.State != session.StateCreated {
		t.Fatalf("created = %+v", created)
	}

	var status session.Status
	if code := getJSON(t, ts.URL+"/api/sessions/"+created.ID, &status); code != http.StatusOK {
		t.Fatalf("get status = %d", code)
	}
	if status.State != session.StateCreated {
		t.Errorf("state = %q", status.State)
	}

	var listing SessionListResponse
	getJSON(t, ts.URL+"/api/sessions", &listing)
	if len(listing.Sessions) != 1 || listing.Sessions[0].ID != created.ID {
		t.Errorf("listing = %+v", listing)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	ts, _ := newTestServer(t, 1<<20)
	var errResp ErrorResponse
	if code := getJSON(t, ts.URL+"/api/sessions/nope", &errResp); code != http.StatusNotFound {
		t.Fatalf("status = %d", code)
	}
	if errResp.Kind != string(types.KindBadSession) {
		t.Errorf("kind = %q", errResp.Kind)
	}
}

func TestUploadAndOverride(t *testing.T) {
	ts, services := newTestServer(t, 1<<20)
	s := services.Sessions.Create()

	resp, _ := uploadFile(t, ts.URL+"/api/sessions/"+s.ID+"/upload", "phb.pdf",
		[]byte("%PDF-1.4 test"), map[string]string{"game": "dnd", "kind": "source_material"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}

	if s.State() != session.StateUploaded {
		t.Errorf("state = %q", s.State())
	}
	doc, override := s.Document()
	if doc == nil || doc.OriginName != "phb.pdf" || doc.SHA256 == "" {
		t.Errorf("document = %+v", doc)
	}
	if override.Game != "dnd" || override.Kind != types.KindSourceMaterial {
		t.Errorf("override = %+v", override)
	}
}

func TestUploadTooLarge(t *testing.T) {
	ts, services := newTestServer(t, 512)
	s := services.Sessions.Create()

	resp, body := uploadFile(t, ts.URL+"/api/sessions/"+s.ID+"/upload", "big.pdf",
		bytes.Repeat([]byte("x"), 4096), nil)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var errResp ErrorResponse
	json.Unmarshal(body, &errResp)
	if errResp.Kind != string(types.KindUploadTooLarge) {
		t.Errorf("kind = %q", errResp.Kind)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	ts, services := newTestServer(t, 1<<20)
	s := services.Sessions.Create()

	resp, _ := uploadFile(t, ts.URL+"/api/sessions/"+s.ID+"/upload", "notes.txt",
		[]byte("plain text"), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestExtractRequiresUpload(t *testing.T) {
	ts, services := newTestServer(t, 1<<20)
	s := services.Sessions.Create()

	var errResp ErrorResponse
	code := postJSON(t, ts.URL+"/api/sessions/"+s.ID+"/extract", &errResp)
	if code != http.StatusNotFound {
		t.Fatalf("status = %d", code)
	}
	if errResp.Kind != string(types.KindBadSession) {
		t.Errorf("kind = %q", errResp.Kind)
	}
}

func TestProgressStreamReplaysAndCloses(t *testing.T) {
	ts, services := newTestServer(t, 1<<20)
	s := services.Sessions.Create()
	s.Advance(session.StateUploaded, 5, "up")

	resp, err := http.Get(ts.URL + "/api/sessions/" + s.ID + "/progress")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		s.Advance(session.StateCompleted, 100, "done")
	}()

	var states []session.State
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event session.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			t.Fatal(err)
		}
		states = append(states, event.State)
	}

	// Replay: created, uploaded; live: completed terminates the stream.
	if len(states) < 3 {
		t.Fatalf("states = %v", states)
	}
	if states[0] != session.StateCreated || states[len(states)-1] != session.StateCompleted {
		t.Errorf("states = %v", states)
	}
}

func TestAnalyzeRequiresUpload(t *testing.T) {
	ts, services := newTestServer(t, 1<<20)
	s := services.Sessions.Create()

	var errResp ErrorResponse
	code := postJSON(t, ts.URL+"/api/sessions/"+s.ID+"/analyze", &errResp)
	if code != http.StatusNotFound {
		t.Fatalf("status = %d", code)
	}
	if errResp.Kind != string(types.KindBadSession) {
		t.Errorf("kind = %q", errResp.Kind)
	}
}

func TestAnalyzeRejectsUnknownProvider(t *testing.T) {
	ts, services := newTestServer(t, 1<<20)
	s := services.Sessions.Create()
	s.SetDocument(&types.Document{OriginName: "phb.pdf", Bytes: []byte("%PDF-1.4")}, types.Override{})

	body := strings.NewReader(`{"provider":"nonsense"}`)
	resp, err := http.Post(ts.URL+"/api/sessions/"+s.ID+"/analyze", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestExtractRejectsBadEnhanceMode(t *testing.T) {
	ts, services := newTestServer(t, 1<<20)
	s := services.Sessions.Create()
	s.SetDocument(&types.Document{OriginName: "phb.pdf", Bytes: []byte("%PDF-1.4")}, types.Override{})

	body := strings.NewReader(`{"enhance":"maximal"}`)
	resp, err := http.Post(ts.URL+"/api/sessions/"+s.ID+"/extract", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestStatusReportsProvidersAndRecent(t *testing.T) {
	ts, services := newTestServer(t, 1<<20)
	services.Sessions.Create()

	var resp StatusResponse
	if code := getJSON(t, ts.URL+"/status", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Active != providers.MockName {
		t.Errorf("active = %q", resp.Active)
	}
	if resp.Providers[providers.MockName] != "ok" {
		t.Errorf("mock status = %q", resp.Providers[providers.MockName])
	}
	if resp.Stores.Vector != "not_configured" || resp.Stores.Document != "not_configured" {
		t.Errorf("stores = %+v", resp.Stores)
	}
	if resp.Sessions != 1 || len(resp.Recent) != 1 {
		t.Errorf("sessions = %d, recent = %d", resp.Sessions, len(resp.Recent))
	}
}

func TestCollectionsRejectsUnknownStore(t *testing.T) {
	ts, _ := newTestServer(t, 1<<20)
	var errResp ErrorResponse
	if code := getJSON(t, ts.URL+"/api/collections?store=bogus", &errResp); code != http.StatusBadRequest {
		t.Fatalf("status = %d", code)
	}
}

func TestBrowseWithoutVectorStoreIs503(t *testing.T) {
	ts, _ := newTestServer(t, 1<<20)
	var errResp ErrorResponse
	if code := getJSON(t, ts.URL+"/api/collections/rpg_dnd/browse", &errResp); code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", code)
	}
}

func TestProviderStatus(t *testing.T) {
	if got := providerStatus(nil); got != "ok" {
		t.Errorf("nil = %q", got)
	}
	timeout := types.Errorf(types.KindAITimeout, "health", "deadline")
	if got := providerStatus(timeout); got != "degraded" {
		t.Errorf("timeout = %q", got)
	}
	down := types.Errorf(types.KindAIUnreachable, "health", "refused")
	if got := providerStatus(down); got != "down" {
		t.Errorf("unreachable = %q", got)
	}
}

func TestStatusForKind(t *testing.T) {
	cases := []struct {
		kind types.ErrorKind
		want int
	}{
		{types.KindBadSession, http.StatusNotFound},
		{types.KindUploadTooLarge, http.StatusRequestEntityTooLarge},
		{types.KindRejectedDuplicate, http.StatusConflict},
		{types.KindPDFEncrypted, http.StatusBadRequest},
		{types.KindAITimeout, http.StatusBadGateway},
		{types.KindStoreUnreachable, http.StatusServiceUnavailable},
		{types.ErrorKind(""), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusForKind(tc.kind); got != tc.want {
			t.Errorf("statusForKind(%q) = %d, want %d", tc.kind, got, tc.want)
		}
	}
}
