// Package types defines the shared data model for the extraction pipeline:
// classification verdicts, extracted sections, artifacts, and the error
// taxonomy carried across stage boundaries.
package types

import "time"

// ContentKind classifies what a document is.
type ContentKind string

const (
	KindSourceMaterial ContentKind = "source_material"
	KindNovel          ContentKind = "novel"
)

// Valid reports whether the kind is a known value.
func (k ContentKind) Valid() bool {
	return k == KindSourceMaterial || k == KindNovel
}

// Derivation records how a classification verdict was obtained.
type Derivation string

const (
	DerivationExplicitTitle   Derivation = "explicit_title"
	DerivationAIInference     Derivation = "ai_inference"
	DerivationManualOverride  Derivation = "manual_override"
	DerivationFallbackKeyword Derivation = "fallback_keyword"
)

// Verdict is the classification produced once per document. Every downstream
// stage consumes it: the addresser derives collection names from it, the
// duplicate registry keys on its ISBN, and store metadata carries its fields.
type Verdict struct {
	Kind      ContentKind `json:"kind"`
	Game      string      `json:"game"`
	Edition   string      `json:"edition"`
	Book      string      `json:"book"`
	BookTitle string      `json:"book_title"`
	Publisher string      `json:"publisher,omitempty"`

	// Canonical ISBN forms, attached when found in the document.
	ISBN10 string `json:"isbn_10,omitempty"`
	ISBN13 string `json:"isbn_13,omitempty"`

	Confidence float64    `json:"confidence"` // [0,1]
	Rationale  string     `json:"rationale,omitempty"`
	Derivation Derivation `json:"derivation"`

	// Extra holds open provider metadata. The rest of the schema stays
	// closed to readers.
	Extra map[string]any `json:"extra,omitempty"`
}

// Override holds caller-supplied classification fields. Non-empty fields
// replace the corresponding verdict fields and force manual_override.
type Override struct {
	Game    string      `json:"game,omitempty"`
	Edition string      `json:"edition,omitempty"`
	Book    string      `json:"book,omitempty"`
	Kind    ContentKind `json:"kind,omitempty"`
}

// IsZero reports whether no override fields are set.
func (o Override) IsZero() bool {
	return o.Game == "" && o.Edition == "" && o.Book == "" && o.Kind == ""
}

// Apply merges the override into the verdict, forcing derivation and
// confidence per the manual-override rule.
func (o Override) Apply(v Verdict) Verdict {
	if o.IsZero() {
		return v
	}
	if o.Game != "" {
		v.Game = o.Game
	}
	if o.Edition != "" {
		v.Edition = o.Edition
	}
	if o.Book != "" {
		v.Book = o.Book
	}
	if o.Kind != "" {
		v.Kind = o.Kind
	}
	v.Derivation = DerivationManualOverride
	v.Confidence = 1.0
	return v
}

// Document is an uploaded byte blob with its origin name.
type Document struct {
	OriginName string    `json:"origin_name"`
	Bytes      []byte    `json:"-"`
	Size       int64     `json:"size"`
	SHA256     string    `json:"sha256"`
	UploadedAt time.Time `json:"uploaded_at"`
}
