package types

import "time"

// Summary aggregates counts over an extraction run.
type Summary struct {
	Pages      int            `json:"pages"`
	Words      int            `json:"words"`
	Sections   int            `json:"sections"`
	Categories map[string]int `json:"categories"`
}

// ConfidenceReport holds the scorer's sub-scores, all in [0,100].
type ConfidenceReport struct {
	Text    float64 `json:"text_confidence"`
	Layout  float64 `json:"layout_confidence"`
	OCR     float64 `json:"ocr_confidence"`
	Table   float64 `json:"table_confidence"`
	Overall float64 `json:"overall"`
	Grade   string  `json:"grade"` // A/B/C/D/F
}

// QualityMetrics records the text enhancer's before/after scoring and
// correction counts by kind.
type QualityMetrics struct {
	BeforeScore float64        `json:"before_score"` // 0-100
	AfterScore  float64        `json:"after_score"`  // 0-100
	Grade       string         `json:"grade"`
	Corrections map[string]int `json:"corrections,omitempty"`
	PagesFailed int            `json:"pages_failed,omitempty"` // enhancer exceptions, raw text passed through
}

// Quote is a verbatim character quote with its source page.
type Quote struct {
	Text string `json:"text"`
	Page int    `json:"page"`
}

// Character is one discovered novel character, keyed by canonical name.
type Character struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Pages       []int    `json:"pages"` // distinct pages mentioning the character
	Description string   `json:"description,omitempty"`
	Personality []string `json:"personality,omitempty"`
	Behaviors   []string `json:"behaviors,omitempty"`
	Quotes      []Quote  `json:"quotes,omitempty"`
}

// Relationship links two characters. Relationships live in an adjacency map
// keyed by character name rather than as embedded back-references.
type Relationship struct {
	Other string `json:"other"`
	Kind  string `json:"kind,omitempty"`
}

// CharacterReport is the novel pass output, attached to the artifact as a
// parallel structure. Main pipeline data never depends on it.
type CharacterReport struct {
	Characters    map[string]*Character     `json:"characters"`
	Relationships map[string][]Relationship `json:"relationships,omitempty"`
	Failed        bool                      `json:"failed,omitempty"`
	FailureNote   string                    `json:"failure_note,omitempty"`
}

// Artifact is the complete result of one pipeline run.
type Artifact struct {
	Verdict      Verdict          `json:"verdict"`
	Sections     []Section        `json:"sections"` // ordered by (page, ordinal)
	Summary      Summary          `json:"summary"`
	Confidence   ConfidenceReport `json:"confidence"`
	Quality      QualityMetrics   `json:"quality"`
	Characters   *CharacterReport `json:"characters,omitempty"`
	SourceDigest string           `json:"source_digest"`
	IngestedAt   time.Time        `json:"ingested_at"`

	// PersistNote is set to "partial_persistence" when exactly one backing
	// store failed at persist time.
	PersistNote string `json:"persist_note,omitempty"`
}
