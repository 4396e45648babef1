// Package catalog is the static registry of supported game systems: editions,
// book codes, detection keywords, category taxonomies, and the book-title
// synonym table used by the explicit-title shortcut. The catalog is read-only
// after startup and safe for concurrent reads.
package catalog

import (
	"sort"
	"strings"

	"github.com/PadsterH2012/extractor/internal/types"
)

// Keyword is a detection keyword with its vote weight.
type Keyword struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

// TitleSynonym maps a normalized title fragment to its catalog triple.
type TitleSynonym struct {
	Fragment string `yaml:"fragment"` // normalized: lowercase, whitespace collapsed
	Game     string `yaml:"game"`
	Edition  string `yaml:"edition"`
	Book     string `yaml:"book"`
	Title    string `yaml:"title"` // display title
}

// Game describes one supported game system.
type Game struct {
	ID         string              `yaml:"id"`
	Name       string              `yaml:"name"`
	Editions   []string            `yaml:"editions"`         // ordered, oldest first
	Books      map[string][]string `yaml:"books"`            // edition -> book codes
	Keywords   []Keyword           `yaml:"keywords"`         // detection vocabulary
	Categories []string            `yaml:"categories"`       // source-material taxonomy
	Protected  []string            `yaml:"protected_terms"`  // jargon the spell corrector must not touch
	Publisher  string              `yaml:"publisher,omitempty"`
}

// Catalog holds the full registry. Immutable after New.
type Catalog struct {
	games    map[string]*Game
	order    []string
	synonyms []TitleSynonym
}

// New builds the built-in catalog, optionally extended by overlays.
func New(overlays ...*Overlay) *Catalog {
	c := &Catalog{games: make(map[string]*Game)}
	for _, g := range builtinGames() {
		c.games[g.ID] = g
		c.order = append(c.order, g.ID)
	}
	c.synonyms = builtinSynonyms()
	for _, o := range overlays {
		c.apply(o)
	}
	return c
}

// Games returns game IDs in registration order.
func (c *Catalog) Games() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Game returns a game by ID.
func (c *Catalog) Game(id string) (*Game, bool) {
	g, ok := c.games[id]
	return g, ok
}

// Editions returns the ordered editions for a game. Fails with
// catalog_missing for unknown games.
func (c *Catalog) Editions(game string) ([]string, error) {
	g, ok := c.games[game]
	if !ok {
		return nil, types.Errorf(types.KindCatalogMissing, "", "unknown game %q", game)
	}
	out := make([]string, len(g.Editions))
	copy(out, g.Editions)
	return out, nil
}

// Books returns the book codes for a game edition. When the edition is
// unknown and no fallback edition exists, fails with catalog_missing.
func (c *Catalog) Books(game, edition string) ([]string, error) {
	g, ok := c.games[game]
	if !ok {
		return nil, types.Errorf(types.KindCatalogMissing, "", "unknown game %q", game)
	}
	if books, ok := g.Books[edition]; ok {
		out := make([]string, len(books))
		copy(out, books)
		return out, nil
	}
	// Fall back to the newest edition that has books.
	for i := len(g.Editions) - 1; i >= 0; i-- {
		if books, ok := g.Books[g.Editions[i]]; ok {
			out := make([]string, len(books))
			copy(out, books)
			return out, nil
		}
	}
	return nil, types.Errorf(types.KindCatalogMissing, "", "no books for %s edition %q", game, edition)
}

// Categories returns the content taxonomy for a game and content kind.
// Novels share a single taxonomy across games.
func (c *Catalog) Categories(game string, kind types.ContentKind) []string {
	if kind == types.KindNovel {
		return append([]string(nil), novelCategories...)
	}
	if g, ok := c.games[game]; ok && len(g.Categories) > 0 {
		return append([]string(nil), g.Categories...)
	}
	return append([]string(nil), defaultCategories...)
}

// Keywords returns the detection keywords for a game.
func (c *Catalog) Keywords(game string) []Keyword {
	if g, ok := c.games[game]; ok {
		return append([]Keyword(nil), g.Keywords...)
	}
	return nil
}

// ProtectedTerms returns the union of protected jargon across all games,
// lowercased for dictionary lookup.
func (c *Catalog) ProtectedTerms() map[string]bool {
	out := make(map[string]bool)
	for _, id := range c.order {
		for _, t := range c.games[id].Protected {
			out[strings.ToLower(t)] = true
		}
	}
	return out
}

// FindSynonym scans normalized text for a known book-title fragment. The
// longest matching fragment wins so "player's handbook" beats "handbook".
func (c *Catalog) FindSynonym(text string) (TitleSynonym, bool) {
	norm := Normalize(text)
	best := TitleSynonym{}
	found := false
	for _, syn := range c.synonyms {
		if strings.Contains(norm, syn.Fragment) {
			if !found || len(syn.Fragment) > len(best.Fragment) {
				best = syn
				found = true
			}
		}
	}
	return best, found
}

// KeywordVote scores text against every game's keyword table and returns the
// winning game with its hit density in [0,1]. Density is the weighted hit
// count over total keyword weight, so a perfect vocabulary match scores 1.
func (c *Catalog) KeywordVote(text string) (game string, density float64) {
	norm := Normalize(text)
	bestGame := ""
	bestDensity := 0.0
	for _, id := range c.order {
		g := c.games[id]
		if len(g.Keywords) == 0 {
			continue
		}
		var hit, total float64
		for _, kw := range g.Keywords {
			total += kw.Weight
			if strings.Contains(norm, kw.Term) {
				hit += kw.Weight
			}
		}
		if total == 0 {
			continue
		}
		d := hit / total
		if d > bestDensity {
			bestGame, bestDensity = id, d
		}
	}
	return bestGame, bestDensity
}

// Normalize case-folds and collapses whitespace for matching.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func (c *Catalog) apply(o *Overlay) {
	if o == nil {
		return
	}
	for i := range o.Games {
		g := o.Games[i]
		if existing, ok := c.games[g.ID]; ok {
			existing.merge(&g)
			continue
		}
		gc := g
		c.games[gc.ID] = &gc
		c.order = append(c.order, gc.ID)
	}
	c.synonyms = append(c.synonyms, o.Synonyms...)
	sort.SliceStable(c.synonyms, func(i, j int) bool {
		return len(c.synonyms[i].Fragment) > len(c.synonyms[j].Fragment)
	})
}

func (g *Game) merge(o *Game) {
	if o.Name != "" {
		g.Name = o.Name
	}
	g.Editions = appendMissing(g.Editions, o.Editions)
	for ed, books := range o.Books {
		if g.Books == nil {
			g.Books = make(map[string][]string)
		}
		g.Books[ed] = appendMissing(g.Books[ed], books)
	}
	g.Keywords = append(g.Keywords, o.Keywords...)
	g.Categories = appendMissing(g.Categories, o.Categories)
	g.Protected = appendMissing(g.Protected, o.Protected)
}

func appendMissing(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			dst = append(dst, s)
			seen[s] = true
		}
	}
	return dst
}
