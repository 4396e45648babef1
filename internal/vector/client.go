// Package vector is the HTTP client for the vector store's REST surface.
// Collections hold one document per extracted section, keyed by
// deterministic IDs so re-runs upsert instead of duplicating.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PadsterH2012/extractor/internal/types"
)

// MaxDocumentBytes is the per-record payload ceiling. Records above it are
// rejected as store_oversize before any request is sent, so the caller can
// truncate and retry.
const MaxDocumentBytes = 1 << 20

// Record is one stored section.
type Record struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CollectionInfo describes one collection.
type CollectionInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client talks to the store over its v1 REST API. Collection name-to-ID
// resolution is cached; everything else is stateless.
type Client struct {
	url        string
	httpClient *http.Client

	mu  sync.Mutex
	ids map[string]string // collection name -> id
}

// NewClient creates a client for the store at url.
func NewClient(url string) *Client {
	return &Client{
		url: strings.TrimSuffix(url, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		ids: make(map[string]string),
	}
}

// HealthCheck probes the store's heartbeat endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/v1/heartbeat", nil, &out); err != nil {
		return err
	}
	return nil
}

// EnsureCollection creates the collection if absent and returns its ID.
func (c *Client) EnsureCollection(ctx context.Context, name string, metadata map[string]any) (string, error) {
	c.mu.Lock()
	if id, ok := c.ids[name]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	body := map[string]any{"name": name, "get_or_create": true}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}
	var out CollectionInfo
	if err := c.do(ctx, http.MethodPost, "/api/v1/collections", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", types.Errorf(types.KindStoreUnreachable, "persist",
			"store returned no collection id for %q", name)
	}

	c.mu.Lock()
	c.ids[name] = out.ID
	c.mu.Unlock()
	return out.ID, nil
}

// Upsert writes records into a collection. Writes are idempotent by record
// ID; re-running a document overwrites its own records.
func (c *Client) Upsert(ctx context.Context, collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if len(r.Text) > MaxDocumentBytes {
			return types.Errorf(types.KindStoreOversize, "persist",
				"record %s is %d bytes, limit %d", r.ID, len(r.Text), MaxDocumentBytes)
		}
	}

	id, err := c.EnsureCollection(ctx, collection, nil)
	if err != nil {
		return err
	}

	ids := make([]string, len(records))
	docs := make([]string, len(records))
	metas := make([]map[string]any, len(records))
	for i, r := range records {
		ids[i] = r.ID
		docs[i] = r.Text
		metas[i] = r.Metadata
	}
	body := map[string]any{"ids": ids, "documents": docs, "metadatas": metas}
	return c.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/upsert", body, nil)
}

// Count returns the number of records in a collection.
func (c *Client) Count(ctx context.Context, collection string) (int, error) {
	id, err := c.EnsureCollection(ctx, collection, nil)
	if err != nil {
		return 0, err
	}
	var out int
	if err := c.do(ctx, http.MethodGet, "/api/v1/collections/"+id+"/count", nil, &out); err != nil {
		return 0, err
	}
	return out, nil
}

// getResponse is the store's columnar get/query result shape.
type getResponse struct {
	IDs       []string         `json:"ids"`
	Documents []string         `json:"documents"`
	Metadatas []map[string]any `json:"metadatas"`
}

// Sample returns up to n records from a collection, for the browse surface.
func (c *Client) Sample(ctx context.Context, collection string, n int) ([]Record, error) {
	return c.Browse(ctx, collection, 0, n)
}

// Browse returns a window of records from a collection.
func (c *Client) Browse(ctx context.Context, collection string, offset, limit int) ([]Record, error) {
	id, err := c.EnsureCollection(ctx, collection, nil)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"limit":   limit,
		"include": []string{"documents", "metadatas"},
	}
	if offset > 0 {
		body["offset"] = offset
	}
	var out getResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/get", body, &out); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(out.IDs))
	for i, rid := range out.IDs {
		r := Record{ID: rid}
		if i < len(out.Documents) {
			r.Text = out.Documents[i]
		}
		if i < len(out.Metadatas) {
			r.Metadata = out.Metadatas[i]
		}
		records = append(records, r)
	}
	return records, nil
}

// ListCollections returns all collections in the store.
func (c *Client) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	var out []CollectionInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/collections", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCollection removes a collection and forgets its cached ID.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/v1/collections/"+name, nil, nil); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.ids, name)
	c.mu.Unlock()
	return nil
}

// do runs one request and maps failures onto the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.NewError(types.KindStoreUnreachable, "persist", err).
			WithHint("check VECTOR_STORE_URL")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return types.NewError(types.KindStoreUnreachable, "persist", err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return types.Errorf(types.KindStoreConflict, "persist",
			"store conflict: %s", string(respBody))
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return types.Errorf(types.KindStoreOversize, "persist",
			"store rejected payload size")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return types.Errorf(types.KindStoreUnreachable, "persist",
			"store returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return types.Errorf(types.KindStoreUnreachable, "persist",
			"failed to parse store response: %v", err)
	}
	return nil
}

// RecordID builds the deterministic record ID for a section.
func RecordID(collection string, page, ordinal int) string {
	return fmt.Sprintf("%s_page%d_%d", collection, page, ordinal)
}
