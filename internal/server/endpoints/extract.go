package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/PadsterH2012/extractor/internal/address"
	"github.com/PadsterH2012/extractor/internal/api"
	"github.com/PadsterH2012/extractor/internal/enhance"
	"github.com/PadsterH2012/extractor/internal/session"
	"github.com/PadsterH2012/extractor/internal/svcctx"
	"github.com/PadsterH2012/extractor/internal/types"
)

// ExtractRequest carries the per-run knobs for the extraction pipeline.
// Empty fields fall back to the server configuration.
type ExtractRequest struct {
	Provider string `json:"provider,omitempty"`
	Enhance  string `json:"enhance,omitempty"`
	Layout   string `json:"layout,omitempty"`
}

// SessionExtractEndpoint handles POST /api/sessions/{id}/extract: it starts
// the pipeline in the background and returns 202. Progress is observable via
// the status and progress endpoints.
type SessionExtractEndpoint struct{}

var _ api.Endpoint = (*SessionExtractEndpoint)(nil)

func (e *SessionExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/extract", e.handler
}

func (e *SessionExtractEndpoint) RequiresStores() bool { return true }

func (e *SessionExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	orch := svcctx.OrchestratorFrom(r.Context())
	mgr := svcctx.ConfigFrom(r.Context())
	if orch == nil || mgr == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not initialized")
		return
	}
	if doc, _ := s.Document(); doc == nil {
		writeKindError(w, types.Errorf(types.KindBadSession, "extract",
			"session %s has no uploaded document", s.ID))
		return
	}
	if st := s.State(); st != session.StateUploaded && st != session.StateIdentified {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("session is %s, expected uploaded or identified", st))
		return
	}

	var req ExtractRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	if req.Enhance != "" {
		if _, ok := enhance.ParseMode(req.Enhance); !ok {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("unknown enhance mode %q, expected off, normal or aggressive", req.Enhance))
			return
		}
	}
	if req.Layout != "" {
		if _, ok := address.ParseLayout(req.Layout); !ok {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("unknown layout %q, expected separate or single_with_folder", req.Layout))
			return
		}
	}
	if !validProvider(r, req.Provider) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown provider %q", req.Provider))
		return
	}
	s.SetOptions(session.RunOptions{
		Provider: req.Provider,
		Enhance:  req.Enhance,
		Layout:   req.Layout,
	})

	// The run outlives the request; it is cancelled through the session,
	// not the request context.
	runCtx, cancel := context.WithCancel(context.Background())
	s.BindCancel(cancel)
	logger := svcctx.LoggerFrom(r.Context())
	go func() {
		defer cancel()
		if _, err := orch.Run(runCtx, s, mgr.Get()); err != nil {
			logger.Error("extraction failed", "session", s.ID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, s.Snapshot())
}

func (e *SessionExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req ExtractRequest
	cmd := &cobra.Command{
		Use:   "start <session-id>",
		Short: "Start extraction for an uploaded session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp session.Status
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/extract", req, &resp); err != nil {
				return err
			}
			fmt.Printf("Session %s: %s\n", resp.ID, resp.State)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Provider, "provider", "", "Provider for this run (mock, cloud-a, cloud-b, local)")
	cmd.Flags().StringVar(&req.Enhance, "enhance", "", "Text enhancement mode (off, normal, aggressive)")
	cmd.Flags().StringVar(&req.Layout, "layout", "", "Collection layout (separate, single_with_folder)")
	return cmd
}

// SessionArtifactEndpoint handles GET /api/sessions/{id}/artifact.
type SessionArtifactEndpoint struct{}

var _ api.Endpoint = (*SessionArtifactEndpoint)(nil)

func (e *SessionArtifactEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/artifact", e.handler
}

func (e *SessionArtifactEndpoint) RequiresStores() bool { return false }

func (e *SessionArtifactEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	artifact := s.Artifact()
	if artifact == nil {
		writeError(w, http.StatusNotFound, "session has no artifact yet")
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func (e *SessionArtifactEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "artifact <session-id>",
		Short: "Fetch a completed session's extraction artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var artifact types.Artifact
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0]+"/artifact", &artifact); err != nil {
				return err
			}
			return api.Output(artifact)
		},
	}
}
