package endpoints

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/PadsterH2012/extractor/internal/api"
	"github.com/PadsterH2012/extractor/internal/session"
	"github.com/PadsterH2012/extractor/internal/svcctx"
)

// SessionCreateResponse is the response for session creation.
type SessionCreateResponse struct {
	ID    string        `json:"id"`
	State session.State `json:"state"`
}

// SessionCreateEndpoint handles POST /api/sessions.
type SessionCreateEndpoint struct{}

var _ api.Endpoint = (*SessionCreateEndpoint)(nil)

func (e *SessionCreateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions", e.handler
}

func (e *SessionCreateEndpoint) RequiresStores() bool { return false }

func (e *SessionCreateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session registry not initialized")
		return
	}
	s := sessions.Create()
	writeJSON(w, http.StatusCreated, SessionCreateResponse{ID: s.ID, State: s.State()})
}

func (e *SessionCreateEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new extraction session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionCreateResponse
			if err := client.Post(cmd.Context(), "/api/sessions", nil, &resp); err != nil {
				return err
			}
			fmt.Println(resp.ID)
			return nil
		},
	}
}

// SessionListResponse is the response for the session listing.
type SessionListResponse struct {
	Sessions []session.Status `json:"sessions"`
}

// SessionListEndpoint handles GET /api/sessions, newest first.
type SessionListEndpoint struct{}

var _ api.Endpoint = (*SessionListEndpoint)(nil)

func (e *SessionListEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions", e.handler
}

func (e *SessionListEndpoint) RequiresStores() bool { return false }

func (e *SessionListEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session registry not initialized")
		return
	}
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: sessions.Recent(limit)})
}

func (e *SessionListEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent extraction sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionListResponse
			path := fmt.Sprintf("/api/sessions?limit=%d", limit)
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum sessions to list")
	return cmd
}

// SessionGetEndpoint handles GET /api/sessions/{id}.
type SessionGetEndpoint struct{}

var _ api.Endpoint = (*SessionGetEndpoint)(nil)

func (e *SessionGetEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}", e.handler
}

func (e *SessionGetEndpoint) RequiresStores() bool { return false }

func (e *SessionGetEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (e *SessionGetEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "session <id>",
		Short: "Get one session's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp session.Status
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// SessionCancelEndpoint handles POST /api/sessions/{id}/cancel. Cancellation
// is cooperative: the session reaches cancelled when the pipeline observes
// the context.
type SessionCancelEndpoint struct{}

var _ api.Endpoint = (*SessionCancelEndpoint)(nil)

func (e *SessionCancelEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/cancel", e.handler
}

func (e *SessionCancelEndpoint) RequiresStores() bool { return false }

func (e *SessionCancelEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	s.Cancel()
	writeJSON(w, http.StatusAccepted, s.Snapshot())
}

func (e *SessionCancelEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a running extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp session.Status
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/cancel", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Session %s: %s\n", resp.ID, resp.State)
			return nil
		},
	}
}

// sessionFrom resolves the {id} path value to a session, writing the error
// response itself on failure.
func sessionFrom(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session registry not initialized")
		return nil, false
	}
	s, err := sessions.Get(r.PathValue("id"))
	if err != nil {
		writeKindError(w, err)
		return nil, false
	}
	return s, true
}

// validProvider reports whether a requested provider name is registered.
// An empty name means the configured default and is always valid.
func validProvider(r *http.Request, name string) bool {
	if name == "" {
		return true
	}
	registry := svcctx.ProvidersFrom(r.Context())
	if registry == nil {
		return false
	}
	_, ok := registry.Get(name)
	return ok
}
