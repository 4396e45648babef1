package catalog

import (
	"testing"

	"github.com/PadsterH2012/extractor/internal/types"
)

func TestEditionsKnownGame(t *testing.T) {
	c := New()
	eds, err := c.Editions("dnd")
	if err != nil {
		t.Fatalf("Editions(dnd) error: %v", err)
	}
	if len(eds) == 0 || eds[0] != "1st" {
		t.Errorf("expected 1st edition first, got %v", eds)
	}
}

func TestEditionsUnknownGame(t *testing.T) {
	c := New()
	_, err := c.Editions("gurps")
	if err == nil {
		t.Fatal("expected error for unknown game")
	}
	if types.KindOf(err) != types.KindCatalogMissing {
		t.Errorf("expected catalog_missing, got %v", types.KindOf(err))
	}
}

func TestBooksEditionFallback(t *testing.T) {
	c := New()
	// Unknown edition falls back to the newest edition that has books.
	books, err := c.Books("dnd", "6th")
	if err != nil {
		t.Fatalf("Books fallback error: %v", err)
	}
	if len(books) == 0 {
		t.Error("expected fallback book list")
	}
}

func TestFindSynonymLongestWins(t *testing.T) {
	c := New()
	syn, ok := c.FindSynonym("  Advanced Dungeons & Dragons\n PLAYER'S   HANDBOOK \n")
	if !ok {
		t.Fatal("expected synonym hit")
	}
	if syn.Game != "dnd" || syn.Edition != "1st" || syn.Book != "phb" {
		t.Errorf("unexpected triple: %+v", syn)
	}
}

func TestKeywordVote(t *testing.T) {
	c := New()
	game, density := c.KeywordVote("roll a saving throw against your armor class, consult THAC0, ask the dungeon master")
	if game != "dnd" {
		t.Errorf("expected dnd, got %q", game)
	}
	if density <= 0 || density > 1 {
		t.Errorf("density out of range: %v", density)
	}
}

func TestCategoriesByKind(t *testing.T) {
	c := New()
	src := c.Categories("dnd", types.KindSourceMaterial)
	if len(src) == 0 {
		t.Fatal("expected source material categories")
	}
	novel := c.Categories("dnd", types.KindNovel)
	found := false
	for _, cat := range novel {
		if cat == "Internal Monologue" {
			found = true
		}
	}
	if !found {
		t.Errorf("novel categories missing Internal Monologue: %v", novel)
	}
}

func TestProtectedTermsLowercased(t *testing.T) {
	c := New()
	terms := c.ProtectedTerms()
	if !terms["thac0"] {
		t.Error("expected thac0 protected")
	}
	if !terms["golarion"] {
		t.Error("expected golarion protected")
	}
}

func TestOverlayMerge(t *testing.T) {
	o := &Overlay{
		Games: []Game{{
			ID:       "dnd",
			Editions: []string{"6th"},
			Books:    map[string][]string{"6th": {"phb"}},
		}},
		Synonyms: []TitleSynonym{
			{Fragment: "heroes of the borderlands", Game: "dnd", Edition: "6th", Book: "phb", Title: "Heroes of the Borderlands"},
		},
	}
	c := New(o)
	eds, err := c.Editions("dnd")
	if err != nil {
		t.Fatal(err)
	}
	if eds[len(eds)-1] != "6th" {
		t.Errorf("expected merged 6th edition, got %v", eds)
	}
	if _, ok := c.FindSynonym("HEROES OF THE BORDERLANDS"); !ok {
		t.Error("expected overlay synonym to match")
	}
}
