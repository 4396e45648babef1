package providers

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PadsterH2012/extractor/internal/catalog"
	"github.com/PadsterH2012/extractor/internal/types"
)

const MockName = "mock"

// Mock is a deterministic, offline Provider backed by the catalog's keyword
// vocabulary. The same input always yields the same answer, and confidence
// is the keyword hit density, which makes pipeline behavior reproducible in
// tests and air-gapped deployments.
type Mock struct {
	catalog *catalog.Catalog
}

// NewMock creates the mock provider.
func NewMock(cat *catalog.Catalog) *Mock {
	return &Mock{catalog: cat}
}

func (m *Mock) Name() string { return MockName }

// Healthy always succeeds; the mock has no transport.
func (m *Mock) Healthy(ctx context.Context) error { return nil }

// novelMarkers vote for the novel kind when rulebook vocabulary is sparse.
var novelMarkers = []string{"chapter", "prologue", "epilogue", "whispered", "she said", "he said"}

func (m *Mock) Identify(ctx context.Context, req IdentifyRequest) (*Identification, error) {
	if err := ctx.Err(); err != nil {
		return nil, classifyCtx(err)
	}

	text := req.Text
	if req.MetaTitle != "" {
		text = req.MetaTitle + "\n" + text
	}
	norm := catalog.Normalize(text)

	game, density := m.catalog.KeywordVote(text)
	kind := types.KindSourceMaterial
	if m.novelSignal(norm) > density {
		kind = types.KindNovel
	}

	out := &Identification{
		Kind:       kind,
		Game:       game,
		Confidence: density,
		Rationale:  fmt.Sprintf("keyword density %.3f for %s", density, game),
	}

	if syn, ok := m.catalog.FindSynonym(text); ok {
		out.Game = syn.Game
		out.Edition = syn.Edition
		out.Book = syn.Book
		out.BookTitle = syn.Title
		if out.Confidence < 0.5 {
			out.Confidence = 0.5
		}
		out.Rationale = fmt.Sprintf("title fragment %q matched", syn.Fragment)
	} else if game != "" {
		if editions, err := m.catalog.Editions(game); err == nil && len(editions) > 0 {
			out.Edition = editions[len(editions)-1]
		}
		if books, err := m.catalog.Books(game, out.Edition); err == nil && len(books) > 0 {
			out.Book = books[0]
		}
	}
	if g, ok := m.catalog.Game(out.Game); ok {
		out.Publisher = g.Publisher
	}
	return out, nil
}

// novelSignal is the marker hit density, the novel-side analog of
// KeywordVote.
func (m *Mock) novelSignal(norm string) float64 {
	words := len(strings.Fields(norm))
	if words == 0 {
		return 0
	}
	hits := 0
	for _, marker := range novelMarkers {
		hits += strings.Count(norm, marker)
	}
	signal := float64(hits*25) / float64(words)
	if signal > 1 {
		signal = 1
	}
	return signal
}

// categoryVocabulary drives mock categorization. Category names not listed
// here score only on their own name appearing in the text.
var categoryVocabulary = map[string][]string{
	"Combat":             {"attack", "damage", "initiative", "armor", "hit", "round", "melee", "weapon", "thac0"},
	"Magic":              {"spell", "casting", "caster", "arcane", "divine", "scroll", "wand", "ritual"},
	"Character":          {"class", "race", "level", "ability", "strength", "dexterity", "wisdom", "charisma"},
	"Equipment":          {"cost", "weight", "gear", "armor", "weapon", "gold", "item"},
	"Tables":             {"table", "roll", "d100", "d20", "column", "result"},
	"Rules":              {"rule", "referee", "dungeon master", "optional", "check"},
	"Chapter/Section":    {"chapter", "prologue", "epilogue"},
	"Dialogue":           {"said", "asked", "replied", "whispered", "shouted"},
	"Description":        {"stood", "towered", "gleamed", "stretched", "loomed"},
	"Action":             {"ran", "leapt", "struck", "charged", "fled"},
	"Internal Monologue": {"thought", "wondered", "remembered", "knew"},
	"Narrative":          {"then", "after", "journey", "days"},
}

func (m *Mock) Categorize(ctx context.Context, req CategorizeRequest) (*Categorization, error) {
	if err := ctx.Err(); err != nil {
		return nil, classifyCtx(err)
	}

	norm := catalog.Normalize(req.Text)
	words := len(strings.Fields(norm))
	if words == 0 {
		return &Categorization{Category: types.UncategorizedCategory}, nil
	}

	best := &Categorization{Category: types.UncategorizedCategory}
	for _, cat := range req.Categories {
		hits := strings.Count(norm, catalog.Normalize(cat))
		for _, term := range categoryVocabulary[cat] {
			hits += strings.Count(norm, term)
		}
		if hits == 0 {
			continue
		}
		density := float64(hits*10) / float64(words)
		if density > 1 {
			density = 1
		}
		if density > best.Confidence {
			best = &Categorization{
				Category:   cat,
				Confidence: density,
				Rationale:  fmt.Sprintf("%d vocabulary hits", hits),
			}
		}
	}
	return best, nil
}

// properName matches a capitalized token usable as a character name.
var properName = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)

// nameStopwords are capitalized tokens that are never character names.
var nameStopwords = map[string]bool{
	"The": true, "And": true, "But": true, "She": true, "Her": true,
	"His": true, "Him": true, "They": true, "Then": true, "There": true,
	"When": true, "What": true, "With": true, "That": true, "This": true,
	"Chapter": true, "Prologue": true, "Epilogue": true, "After": true,
	"Before": true, "While": true, "From": true, "Into": true, "Once": true,
}

// mockMinMentions is the mention count below which a capitalized token is
// not reported as a character.
const mockMinMentions = 3

func (m *Mock) ExtractCharacters(ctx context.Context, req CharacterRequest) (*CharacterExtraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, classifyCtx(err)
	}

	counts := make(map[string]int)
	for _, tok := range properName.FindAllString(req.Text, -1) {
		if nameStopwords[tok] {
			continue
		}
		counts[tok]++
	}

	names := make([]string, 0, len(counts))
	for name, n := range counts {
		if n >= mockMinMentions {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := &CharacterExtraction{}
	for _, name := range names {
		c := types.Character{
			Name:        name,
			Pages:       append([]int(nil), req.Pages...),
			Description: fmt.Sprintf("mentioned %d times", counts[name]),
		}
		if req.Pass == PassEnhance {
			c.Personality = []string{"recurring"}
		}
		out.Characters = append(out.Characters, c)
	}
	return out, nil
}
