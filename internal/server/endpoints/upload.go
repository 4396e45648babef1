package endpoints

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/PadsterH2012/extractor/internal/api"
	"github.com/PadsterH2012/extractor/internal/session"
	"github.com/PadsterH2012/extractor/internal/svcctx"
	"github.com/PadsterH2012/extractor/internal/types"
)

// SessionUploadEndpoint handles POST /api/sessions/{id}/upload with a
// multipart PDF upload. Optional form fields game, edition, book, and kind
// become a classification override.
type SessionUploadEndpoint struct{}

var _ api.Endpoint = (*SessionUploadEndpoint)(nil)

func (e *SessionUploadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/upload", e.handler
}

func (e *SessionUploadEndpoint) RequiresStores() bool { return false }

func (e *SessionUploadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	maxBytes := int64(200 << 20)
	if mgr := svcctx.ConfigFrom(r.Context()); mgr != nil {
		maxBytes = mgr.Get().Server.UploadMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeKindError(w, types.Errorf(types.KindUploadTooLarge, "upload",
				"upload exceeds %d bytes", maxBytes))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file %s is not a PDF", header.Filename))
		return
	}

	blob, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeKindError(w, types.Errorf(types.KindUploadTooLarge, "upload",
				"upload exceeds %d bytes", maxBytes))
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	digest := sha256.Sum256(blob)
	doc := &types.Document{
		OriginName: header.Filename,
		Bytes:      blob,
		Size:       int64(len(blob)),
		SHA256:     hex.EncodeToString(digest[:]),
		UploadedAt: time.Now().UTC(),
	}
	override := types.Override{
		Game:    r.FormValue("game"),
		Edition: r.FormValue("edition"),
		Book:    r.FormValue("book"),
		Kind:    types.ContentKind(r.FormValue("kind")),
	}
	if override.Kind != "" && !override.Kind.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown kind %q", override.Kind))
		return
	}

	s.SetDocument(doc, override)
	svcctx.LoggerFrom(r.Context()).Info("document uploaded",
		"session", s.ID, "file", header.Filename, "bytes", doc.Size)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (e *SessionUploadEndpoint) Command(getServerURL func() string) *cobra.Command {
	var game, edition, book, kind string
	cmd := &cobra.Command{
		Use:   "upload <session-id> <pdf-file>",
		Short: "Upload a PDF into a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			fields := map[string]string{
				"game":    game,
				"edition": edition,
				"book":    book,
				"kind":    kind,
			}
			var resp session.Status
			if err := client.PostFile(cmd.Context(), "/api/sessions/"+args[0]+"/upload", args[1], fields, &resp); err != nil {
				return err
			}
			fmt.Printf("Session %s: %s (%s)\n", resp.ID, resp.State, resp.Document)
			return nil
		},
	}
	cmd.Flags().StringVar(&game, "game", "", "Override the detected game system")
	cmd.Flags().StringVar(&edition, "edition", "", "Override the detected edition")
	cmd.Flags().StringVar(&book, "book", "", "Override the detected book")
	cmd.Flags().StringVar(&kind, "kind", "", "Override the content kind (source_material or novel)")
	return cmd
}
