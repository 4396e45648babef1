// Package providers holds the AI capability layer: a single Provider
// interface with three operations (identify, categorize, extract
// characters), concrete backends for two cloud APIs and a local model
// server, and a deterministic mock. Call sites differ only in prompt and
// result schema; transport, retry, concurrency bounding, and response
// caching are shared.
package providers

import (
	"context"
	"strings"
	"time"

	"github.com/PadsterH2012/extractor/internal/types"
)

// Variant selects a provider backend.
type Variant string

const (
	VariantMock   Variant = "mock"
	VariantCloudA Variant = "cloud_a" // OpenAI-compatible chat completions
	VariantCloudB Variant = "cloud_b" // Anthropic messages API
	VariantLocal  Variant = "local"   // Ollama-compatible chat endpoint
)

// ParseVariant maps a config string to a Variant, defaulting to mock.
// Hyphenated spellings are accepted.
func ParseVariant(s string) Variant {
	v := Variant(strings.ReplaceAll(s, "-", "_"))
	switch v {
	case VariantCloudA, VariantCloudB, VariantLocal:
		return v
	default:
		return VariantMock
	}
}

// Generation defaults. Identification wants a little freedom, categorization
// none at all.
const (
	DefaultIdentifyTemperature   = 0.1
	DefaultCategorizeTemperature = 0.0
	DefaultMaxTokens             = 4000
	DefaultTimeout               = 30 * time.Second
	DefaultRetries               = 3
	DefaultRetryBase             = 500 * time.Millisecond
	DefaultMaxConcurrent         = 4
)

// Options are the per-call generation parameters. Construct with
// IdentifyOptions or CategorizeOptions and adjust; the zero value is not
// usable.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Retries     int
	RetryBase   time.Duration
	Cache       bool
}

// IdentifyOptions returns the defaults for document identification.
func IdentifyOptions() Options {
	return Options{
		Temperature: DefaultIdentifyTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
		Retries:     DefaultRetries,
		RetryBase:   DefaultRetryBase,
		Cache:       true,
	}
}

// CategorizeOptions returns the defaults for section categorization and
// character extraction.
func CategorizeOptions() Options {
	o := IdentifyOptions()
	o.Temperature = DefaultCategorizeTemperature
	return o
}

// IdentifyRequest asks a provider what a document is.
type IdentifyRequest struct {
	// Text is the head of the document, already bounded by the caller.
	Text string
	// MetaTitle and MetaAuthor come from the PDF information dictionary
	// and may be empty.
	MetaTitle  string
	MetaAuthor string
	// Games constrains the answer to known game IDs.
	Games []string
	Opts  Options
}

// Identification is a provider's answer to an IdentifyRequest. The caller
// turns it into a Verdict; derivation is not the provider's to decide.
type Identification struct {
	Kind       types.ContentKind `json:"kind"`
	Game       string            `json:"game"`
	Edition    string            `json:"edition"`
	Book       string            `json:"book"`
	BookTitle  string            `json:"book_title"`
	Publisher  string            `json:"publisher"`
	Confidence float64           `json:"confidence"`
	Rationale  string            `json:"rationale"`
}

// CategorizeRequest asks a provider to place one section of text into a
// taxonomy.
type CategorizeRequest struct {
	Text string
	// Categories is the allowed taxonomy; answers outside it are malformed.
	Categories []string
	Game       string
	Kind       types.ContentKind
	Opts       Options
}

// Categorization is a provider's answer to a CategorizeRequest.
type Categorization struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// CharacterPass selects the novel analysis pass.
type CharacterPass string

const (
	PassDiscover CharacterPass = "discover"
	PassEnhance  CharacterPass = "enhance"
)

// CharacterRequest asks a provider to find or enrich novel characters in a
// chunk of text.
type CharacterRequest struct {
	Text string
	// Pages are the 1-based page numbers the chunk spans.
	Pages []int
	Pass  CharacterPass
	// Prior carries discover-pass results into the enhance pass.
	Prior []types.Character
	Opts  Options
}

// CharacterExtraction is a provider's answer to a CharacterRequest.
type CharacterExtraction struct {
	Characters []types.Character `json:"characters"`
}

// Provider is one AI backend. Implementations are safe for concurrent use.
type Provider interface {
	Name() string
	Identify(ctx context.Context, req IdentifyRequest) (*Identification, error)
	Categorize(ctx context.Context, req CategorizeRequest) (*Categorization, error)
	ExtractCharacters(ctx context.Context, req CharacterRequest) (*CharacterExtraction, error)

	// Healthy reports whether the backend is reachable. Used by the
	// health surface, never by the pipeline.
	Healthy(ctx context.Context) error
}
