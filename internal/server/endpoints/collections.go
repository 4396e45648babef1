package endpoints

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/PadsterH2012/extractor/internal/api"
	"github.com/PadsterH2012/extractor/internal/svcctx"
	"github.com/PadsterH2012/extractor/internal/types"
	"github.com/PadsterH2012/extractor/internal/vector"
)

// CollectionListResponse carries collection names per store. A store absent
// from the query filter or not connected is omitted.
type CollectionListResponse struct {
	Vector   []string `json:"vector,omitempty"`
	Document []string `json:"document,omitempty"`
}

// CollectionListEndpoint handles GET /api/collections. The optional
// store=vector|document query restricts the listing to one store.
type CollectionListEndpoint struct{}

var _ api.Endpoint = (*CollectionListEndpoint)(nil)

func (e *CollectionListEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/collections", e.handler
}

func (e *CollectionListEndpoint) RequiresStores() bool { return true }

func (e *CollectionListEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := r.URL.Query().Get("store")
	if store != "" && store != "vector" && store != "document" {
		writeError(w, http.StatusBadRequest, "store must be vector or document")
		return
	}

	resp := CollectionListResponse{}
	if store == "" || store == "vector" {
		if vec := svcctx.VectorFrom(r.Context()); vec != nil {
			infos, err := vec.ListCollections(r.Context())
			if err != nil {
				writeKindError(w, err)
				return
			}
			for _, info := range infos {
				resp.Vector = append(resp.Vector, info.Name)
			}
			sort.Strings(resp.Vector)
		}
	}
	if store == "" || store == "document" {
		if docs := svcctx.DocsFrom(r.Context()); docs != nil {
			names, err := docs.ListCollections(r.Context())
			if err != nil {
				writeKindError(w, err)
				return
			}
			sort.Strings(names)
			resp.Document = names
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *CollectionListEndpoint) Command(getServerURL func() string) *cobra.Command {
	var store string
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List extracted collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/collections"
			if store != "" {
				path += "?store=" + store
			}
			var resp CollectionListResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&store, "store", "", "Restrict to one store (vector or document)")
	return cmd
}

// CollectionBrowseResponse is a window into one collection. Records is set
// when browsing the vector store, Sections when browsing the document store.
type CollectionBrowseResponse struct {
	Name     string          `json:"name"`
	Store    string          `json:"store"`
	Count    int             `json:"count,omitempty"`
	Offset   int             `json:"offset"`
	Limit    int             `json:"limit"`
	Records  []vector.Record `json:"records,omitempty"`
	Sections []types.Section `json:"sections,omitempty"`
}

// CollectionBrowseEndpoint handles GET /api/collections/{name}/browse with
// store, offset and limit query parameters.
type CollectionBrowseEndpoint struct{}

var _ api.Endpoint = (*CollectionBrowseEndpoint)(nil)

func (e *CollectionBrowseEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/collections/{name}/browse", e.handler
}

func (e *CollectionBrowseEndpoint) RequiresStores() bool { return true }

func (e *CollectionBrowseEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	store := r.URL.Query().Get("store")
	if store == "" {
		store = "vector"
	}
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 20)

	resp := CollectionBrowseResponse{Name: name, Store: store, Offset: offset, Limit: limit}
	switch store {
	case "vector":
		vec := svcctx.VectorFrom(r.Context())
		if vec == nil {
			writeError(w, http.StatusServiceUnavailable, "vector store not connected")
			return
		}
		count, err := vec.Count(r.Context(), name)
		if err != nil {
			writeKindError(w, err)
			return
		}
		resp.Count = count
		if limit > 0 {
			resp.Records, err = vec.Browse(r.Context(), name, offset, limit)
			if err != nil {
				writeKindError(w, err)
				return
			}
		}
	case "document":
		docs := svcctx.DocsFrom(r.Context())
		if docs == nil {
			writeError(w, http.StatusServiceUnavailable, "document store not connected")
			return
		}
		sections, err := docs.Browse(r.Context(), name, offset, limit)
		if err != nil {
			writeKindError(w, err)
			return
		}
		resp.Sections = sections
	default:
		writeError(w, http.StatusBadRequest, "store must be vector or document")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *CollectionBrowseEndpoint) Command(getServerURL func() string) *cobra.Command {
	var store string
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "browse <name>",
		Short: "Browse a window of one collection's records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/collections/" + args[0] + "/browse?store=" + store +
				"&offset=" + strconv.Itoa(offset) + "&limit=" + strconv.Itoa(limit)
			var resp CollectionBrowseResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&store, "store", "vector", "Store to browse (vector or document)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Records to skip")
	cmd.Flags().IntVar(&limit, "limit", 20, "Records to return")
	return cmd
}

// queryInt parses a non-negative integer query parameter.
func queryInt(r *http.Request, key string, def int) int {
	if q := r.URL.Query().Get(key); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
