package providers

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/PadsterH2012/extractor/internal/types"
)

// Result schemas. Model output that fails validation is ai_malformed, never
// a panic or a silent zero value.
var (
	identifySchema = mustCompile("identify.json", `{
		"type": "object",
		"required": ["kind", "game", "confidence"],
		"properties": {
			"kind": {"type": "string", "enum": ["source_material", "novel"]},
			"game": {"type": "string"},
			"edition": {"type": "string"},
			"book": {"type": "string"},
			"book_title": {"type": "string"},
			"publisher": {"type": "string"},
			"confidence": {"type": "number", "minimum": 0, "maximum": 1},
			"rationale": {"type": "string"}
		}
	}`)

	categorizeSchema = mustCompile("categorize.json", `{
		"type": "object",
		"required": ["category", "confidence"],
		"properties": {
			"category": {"type": "string"},
			"confidence": {"type": "number", "minimum": 0, "maximum": 1},
			"rationale": {"type": "string"}
		}
	}`)

	charactersSchema = mustCompile("characters.json", `{
		"type": "object",
		"required": ["characters"],
		"properties": {
			"characters": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["name"],
					"properties": {
						"name": {"type": "string", "minLength": 1},
						"aliases": {"type": "array", "items": {"type": "string"}},
						"pages": {"type": "array", "items": {"type": "integer"}},
						"description": {"type": "string"},
						"personality": {"type": "array", "items": {"type": "string"}},
						"behaviors": {"type": "array", "items": {"type": "string"}},
						"quotes": {
							"type": "array",
							"items": {
								"type": "object",
								"required": ["text"],
								"properties": {
									"text": {"type": "string"},
									"page": {"type": "integer"}
								}
							}
						}
					}
				}
			}
		}
	}`)
)

func mustCompile(name, src string) *jsonschema.Schema {
	return jsonschema.MustCompileString(name, src)
}

// decodeValidated extracts a JSON object from raw model output, validates it
// against schema, and decodes it into out. All failures map to ai_malformed.
func decodeValidated(content string, schema *jsonschema.Schema, out any) error {
	raw, err := extractJSON(content)
	if err != nil {
		return types.NewError(types.KindAIMalformed, "", err).
			WithHint("provider returned no parseable JSON object")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return types.NewError(types.KindAIMalformed, "", err)
	}
	if err := schema.Validate(v); err != nil {
		return types.NewError(types.KindAIMalformed, "", err).
			WithHint("provider response failed schema validation")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return types.NewError(types.KindAIMalformed, "", err)
	}
	return nil
}

// extractJSON recovers a JSON object from model output: verbatim, inside a
// markdown code fence, or embedded in surrounding prose.
func extractJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, types.Errorf(types.KindAIMalformed, "", "empty model output")
	}

	for _, candidate := range []string{content, stripCodeFences(content), braceSpan(content)} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if json.Valid([]byte(candidate)) && strings.HasPrefix(candidate, "{") {
			return json.RawMessage(candidate), nil
		}
	}
	return nil, types.Errorf(types.KindAIMalformed, "", "no JSON object in model output")
}

// stripCodeFences removes a surrounding ``` or ```json fence.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return ""
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop the language tag line
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return s
}

// braceSpan returns the outermost {...} span, if any.
func braceSpan(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
