package providers

import (
	"fmt"
	"strings"

	"github.com/PadsterH2012/extractor/internal/types"
)

// Prompt builders. Every prompt demands a bare JSON object so the shared
// decoder can validate it against the operation's schema.

const identifySystemPrompt = `You classify tabletop RPG documents. Given the ` +
	`opening text of a PDF, decide whether it is rulebook source material or ` +
	`a tie-in novel, and which game system, edition, and book it belongs to. ` +
	`Answer with a single JSON object and nothing else: ` +
	`{"kind": "source_material"|"novel", "game": "...", "edition": "...", ` +
	`"book": "...", "book_title": "...", "publisher": "...", ` +
	`"confidence": 0.0-1.0, "rationale": "..."}. ` +
	`Use only game IDs from the provided list; use an empty string when a ` +
	`field is unknown.`

func identifyUserPrompt(req IdentifyRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Known game IDs: %s\n", strings.Join(req.Games, ", "))
	if req.MetaTitle != "" {
		fmt.Fprintf(&b, "PDF metadata title: %s\n", req.MetaTitle)
	}
	if req.MetaAuthor != "" {
		fmt.Fprintf(&b, "PDF metadata author: %s\n", req.MetaAuthor)
	}
	b.WriteString("\nDocument opening text:\n")
	b.WriteString(req.Text)
	return b.String()
}

const categorizeSystemPrompt = `You categorize a passage from a tabletop RPG ` +
	`document. Choose exactly one category from the allowed list. Answer with ` +
	`a single JSON object and nothing else: ` +
	`{"category": "...", "confidence": 0.0-1.0, "rationale": "..."}.`

func categorizeUserPrompt(req CategorizeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game: %s\nContent kind: %s\n", req.Game, req.Kind)
	fmt.Fprintf(&b, "Allowed categories: %s\n", strings.Join(req.Categories, ", "))
	b.WriteString("\nPassage:\n")
	b.WriteString(req.Text)
	return b.String()
}

const charactersSystemPrompt = `You analyze a chunk of a fantasy novel. ` +
	`Report the named characters present in the chunk. Answer with a single ` +
	`JSON object and nothing else: {"characters": [{"name": "...", ` +
	`"aliases": [], "pages": [], "description": "...", "personality": [], ` +
	`"behaviors": [], "quotes": [{"text": "...", "page": 0}]}]}. ` +
	`Only include characters actually mentioned in the chunk.`

func charactersUserPrompt(req CharacterRequest) string {
	var b strings.Builder
	if len(req.Pages) > 0 {
		fmt.Fprintf(&b, "Chunk spans pages %d-%d.\n", req.Pages[0], req.Pages[len(req.Pages)-1])
	}
	if req.Pass == PassEnhance && len(req.Prior) > 0 {
		b.WriteString("Known characters so far: ")
		b.WriteString(strings.Join(characterNames(req.Prior), ", "))
		b.WriteString("\nEnrich these with personality traits, behaviors, and quotes; add newly appearing characters.\n")
	}
	b.WriteString("\nChunk text:\n")
	b.WriteString(req.Text)
	return b.String()
}

func characterNames(chars []types.Character) []string {
	names := make([]string, 0, len(chars))
	for _, c := range chars {
		names = append(names, c.Name)
	}
	return names
}
