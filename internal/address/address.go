// Package address derives deterministic collection names and folder paths
// from a classification verdict. The two layouts mirror the hierarchy the
// document store exposes: distinct dotted collections, or one shared
// collection with a folder path stored as metadata on each document.
package address

import (
	"strings"

	"github.com/PadsterH2012/extractor/internal/types"
)

// Layout selects how collections are organized in the backing stores.
type Layout string

const (
	// LayoutSeparate names a distinct collection per book:
	// <kind>.<game>.<edition>.<book>.<collection>
	LayoutSeparate Layout = "separate"

	// LayoutSingleWithFolder stores everything in one collection with a
	// folder path carried as document metadata.
	LayoutSingleWithFolder Layout = "single_with_folder"
)

// SingleCollectionName is the shared collection used by the
// single-with-folder layout.
const SingleCollectionName = "rpger"

// ParseLayout maps CLI/API spellings onto a Layout.
func ParseLayout(s string) (Layout, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "separate", "":
		return LayoutSeparate, true
	case "single", "single_with_folder", "single-with-folder":
		return LayoutSingleWithFolder, true
	}
	return "", false
}

// Address is the derived location for a document's content.
type Address struct {
	// Collection is the store collection name.
	Collection string `json:"collection"`

	// Folder is the metadata folder path. Empty under the separate layout.
	Folder string `json:"folder,omitempty"`
}

// For derives the address for a verdict under the given layout. Pure and
// deterministic: equal verdicts always yield equal addresses, and sanitizing
// an already-sanitized segment is a no-op.
func For(v types.Verdict, layout Layout) Address {
	segs := []string{
		Segment(string(v.Kind)),
		Segment(v.Game),
		Segment(v.Edition),
		Segment(v.Book),
		collectionSegment(v),
	}
	switch layout {
	case LayoutSingleWithFolder:
		return Address{
			Collection: SingleCollectionName,
			Folder:     strings.Join(segs, "/"),
		}
	default:
		return Address{Collection: strings.Join(segs, ".")}
	}
}

// collectionSegment is the leaf collection name: <game>_<edition>_<book>.
func collectionSegment(v types.Verdict) string {
	return Segment(v.Game) + "_" + Segment(v.Edition) + "_" + Segment(v.Book)
}

// Segment sanitizes one path segment: lowercase, "&" rewritten to "and",
// whitespace to "_", anything outside [a-z0-9_] stripped.
func Segment(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", "and")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteByte('_')
		}
	}
	return b.String()
}
