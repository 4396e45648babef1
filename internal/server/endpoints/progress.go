package endpoints

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PadsterH2012/extractor/internal/api"
	"github.com/PadsterH2012/extractor/internal/session"
)

// SessionProgressEndpoint handles GET /api/sessions/{id}/progress as a
// server-sent event stream. Subscribers get the full event history first,
// then live events; the stream closes when the session reaches a terminal
// state or the client disconnects.
type SessionProgressEndpoint struct{}

var _ api.Endpoint = (*SessionProgressEndpoint)(nil)

func (e *SessionProgressEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/progress", e.handler
}

func (e *SessionProgressEndpoint) RequiresStores() bool { return false }

func (e *SessionProgressEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := s.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", payload)
			flusher.Flush()
			if event.State.Terminal() {
				return
			}
		}
	}
}

func (e *SessionProgressEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Stream a session's progress events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			body, err := client.Stream(cmd.Context(), "/api/sessions/"+args[0]+"/progress")
			if err != nil {
				return err
			}
			defer body.Close()

			scanner := bufio.NewScanner(body)
			for scanner.Scan() {
				line := scanner.Text()
				if !strings.HasPrefix(line, "data: ") {
					continue
				}
				var event session.Event
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
					continue
				}
				fmt.Printf("%5.1f%%  %-22s %s\n", event.Percent, event.State, event.Message)
				if event.State.Terminal() {
					return nil
				}
			}
			return scanner.Err()
		},
	}
}
