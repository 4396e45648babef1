// Package endpoints defines the session API surface. Each endpoint is both
// an HTTP route and a CLI command per the api.Endpoint contract.
package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/PadsterH2012/extractor/internal/api"
	"github.com/PadsterH2012/extractor/internal/session"
	"github.com/PadsterH2012/extractor/internal/svcctx"
	"github.com/PadsterH2012/extractor/internal/types"
)

// All returns every endpoint the server registers.
func All() []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{},
		&StatusEndpoint{},
		&SessionCreateEndpoint{},
		&SessionListEndpoint{},
		&SessionGetEndpoint{},
		&SessionUploadEndpoint{},
		&SessionAnalyzeEndpoint{},
		&SessionExtractEndpoint{},
		&SessionCancelEndpoint{},
		&SessionArtifactEndpoint{},
		&SessionProgressEndpoint{},
		&CollectionListEndpoint{},
		&CollectionBrowseEndpoint{},
	}
}

// HealthResponse is the response for the basic health check.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

var _ api.Endpoint = (*HealthEndpoint)(nil)

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresStores() bool { return false }

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// StatusResponse is the detailed status response. Provider and store values
// are ok, degraded, down or not_configured.
type StatusResponse struct {
	Server    string            `json:"server"`
	Providers map[string]string `json:"providers"`
	Active    string            `json:"active_provider"`
	Stores    StoresStatus      `json:"stores"`
	Sessions  int               `json:"sessions"`
	Recent    []session.Status  `json:"recent,omitempty"`
}

// StoresStatus reports reachability of the two backing stores.
type StoresStatus struct {
	Vector   string `json:"vector"`
	Document string `json:"document"`
}

// StatusEndpoint handles GET /status: provider health, store reachability,
// and the live session count.
type StatusEndpoint struct{}

var _ api.Endpoint = (*StatusEndpoint)(nil)

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresStores() bool { return false }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Server:    "running",
		Providers: map[string]string{},
		Stores:    StoresStatus{Vector: "not_configured", Document: "not_configured"},
	}

	if registry := svcctx.ProvidersFrom(r.Context()); registry != nil {
		resp.Active = registry.Active().Name()
		for name, err := range registry.Health(r.Context()) {
			resp.Providers[name] = providerStatus(err)
		}
	}
	if vec := svcctx.VectorFrom(r.Context()); vec != nil {
		resp.Stores.Vector = "ok"
		if err := vec.HealthCheck(r.Context()); err != nil {
			resp.Stores.Vector = "down"
		}
	}
	if docs := svcctx.DocsFrom(r.Context()); docs != nil {
		resp.Stores.Document = "ok"
		if err := docs.Ping(r.Context()); err != nil {
			resp.Stores.Document = "down"
		}
	}
	if sessions := svcctx.SessionsFrom(r.Context()); sessions != nil {
		resp.Sessions = sessions.Len()
		resp.Recent = sessions.Recent(10)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// providerStatus folds a health error into ok, degraded or down. Timeouts
// count as degraded: the provider answered enough to be retried.
func providerStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case types.IsKind(err, types.KindAITimeout):
		return "degraded"
	default:
		return "down"
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response. Kind carries the pipeline
// error taxonomy for machine consumers.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeKindError maps a pipeline error onto an HTTP status and response.
func writeKindError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error(), Kind: string(types.KindOf(err))}
	var pe *types.PipelineError
	if errors.As(err, &pe) {
		resp.Hint = pe.Hint
	}
	writeJSON(w, statusForKind(types.KindOf(err)), resp)
}

// statusForKind maps the error taxonomy to HTTP statuses.
func statusForKind(kind types.ErrorKind) int {
	switch kind {
	case types.KindBadSession:
		return http.StatusNotFound
	case types.KindUploadTooLarge, types.KindStoreOversize:
		return http.StatusRequestEntityTooLarge
	case types.KindRejectedDuplicate, types.KindStoreConflict, types.KindCancelled:
		return http.StatusConflict
	case types.KindPDFUnreadable, types.KindPDFEncrypted, types.KindPDFEmpty:
		return http.StatusBadRequest
	case types.KindAIUnreachable, types.KindAITimeout, types.KindAIMalformed, types.KindProviderUnauthorized:
		return http.StatusBadGateway
	case types.KindStoreUnreachable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
