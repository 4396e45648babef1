package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/PadsterH2012/extractor/internal/api"
	"github.com/PadsterH2012/extractor/internal/session"
	"github.com/PadsterH2012/extractor/internal/svcctx"
	"github.com/PadsterH2012/extractor/internal/types"
)

// AnalyzeRequest selects the provider and layers manual overrides for the
// identification pass.
type AnalyzeRequest struct {
	Provider string `json:"provider,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Game     string `json:"game,omitempty"`
	Edition  string `json:"edition,omitempty"`
	Book     string `json:"book,omitempty"`
}

// SessionAnalyzeEndpoint handles POST /api/sessions/{id}/analyze: it runs
// identification synchronously and returns the verdict. Extraction started
// afterwards reuses the verdict.
type SessionAnalyzeEndpoint struct{}

var _ api.Endpoint = (*SessionAnalyzeEndpoint)(nil)

func (e *SessionAnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/analyze", e.handler
}

func (e *SessionAnalyzeEndpoint) RequiresStores() bool { return false }

func (e *SessionAnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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
		writeKindError(w, types.Errorf(types.KindBadSession, "analyze",
			"session %s has no uploaded document", s.ID))
		return
	}

	var req AnalyzeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	kind := types.ContentKind(req.Kind)
	if kind != "" && !kind.Valid() {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unknown kind %q, expected source_material or novel", req.Kind))
		return
	}
	if !validProvider(r, req.Provider) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown provider %q", req.Provider))
		return
	}
	s.MergeOverride(types.Override{
		Game:    req.Game,
		Edition: req.Edition,
		Book:    req.Book,
		Kind:    kind,
	})
	s.SetOptions(session.RunOptions{Provider: req.Provider})

	verdict, err := orch.Analyze(r.Context(), s, mgr.Get())
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (e *SessionAnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req AnalyzeRequest
	cmd := &cobra.Command{
		Use:   "analyze <session-id>",
		Short: "Identify an uploaded session's document and print the verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var verdict types.Verdict
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/analyze", req, &verdict); err != nil {
				return err
			}
			return api.Output(verdict)
		},
	}
	cmd.Flags().StringVar(&req.Provider, "provider", "", "Provider to identify with (mock, cloud-a, cloud-b, local)")
	cmd.Flags().StringVar(&req.Game, "game", "", "Override the detected game system")
	cmd.Flags().StringVar(&req.Edition, "edition", "", "Override the detected edition")
	cmd.Flags().StringVar(&req.Book, "book", "", "Override the detected book")
	cmd.Flags().StringVar(&req.Kind, "kind", "", "Override the content kind")
	return cmd
}
