package address

import (
	"testing"

	"github.com/PadsterH2012/extractor/internal/types"
)

func verdict() types.Verdict {
	return types.Verdict{
		Kind:    types.KindSourceMaterial,
		Game:    "dnd",
		Edition: "1st",
		Book:    "phb",
	}
}

func TestSeparateLayout(t *testing.T) {
	addr := For(verdict(), LayoutSeparate)
	want := "source_material.dnd.1st.phb.dnd_1st_phb"
	if addr.Collection != want {
		t.Errorf("collection = %q, want %q", addr.Collection, want)
	}
	if addr.Folder != "" {
		t.Errorf("separate layout should have no folder, got %q", addr.Folder)
	}
}

func TestSingleWithFolderLayout(t *testing.T) {
	addr := For(verdict(), LayoutSingleWithFolder)
	if addr.Collection != SingleCollectionName {
		t.Errorf("collection = %q, want %q", addr.Collection, SingleCollectionName)
	}
	want := "source_material/dnd/1st/phb/dnd_1st_phb"
	if addr.Folder != want {
		t.Errorf("folder = %q, want %q", addr.Folder, want)
	}
}

func TestSegmentSanitization(t *testing.T) {
	cases := map[string]string{
		"Dungeons & Dragons": "dungeons_and_dragons",
		"Call of Cthulhu":    "call_of_cthulhu",
		"V5 (Revised)":       "v5_revised",
		"already_clean":      "already_clean",
		"Tabs\tand\nlines":   "tabs_and_lines",
	}
	for in, want := range cases {
		if got := Segment(in); got != want {
			t.Errorf("Segment(%q) = %q, want %q", in, got, want)
		}
	}
}

// Sanitization is idempotent: addressing a verdict built from an address's own
// segments yields the same address.
func TestAddresserIdempotent(t *testing.T) {
	verdicts := []types.Verdict{
		verdict(),
		{Kind: types.KindNovel, Game: "Dungeons & Dragons", Edition: "2nd Edition", Book: "The Crystal Shard"},
		{Kind: types.KindSourceMaterial, Game: "Vampire: The Masquerade", Edition: "V5", Book: "Core Rulebook"},
	}
	for _, layout := range []Layout{LayoutSeparate, LayoutSingleWithFolder} {
		for _, v := range verdicts {
			first := For(v, layout)
			again := For(types.Verdict{
				Kind:    types.ContentKind(Segment(string(v.Kind))),
				Game:    Segment(v.Game),
				Edition: Segment(v.Edition),
				Book:    Segment(v.Book),
			}, layout)
			if first != again {
				t.Errorf("layout %s: not idempotent: %+v vs %+v", layout, first, again)
			}
		}
	}
}

func TestParseLayout(t *testing.T) {
	if l, ok := ParseLayout("single"); !ok || l != LayoutSingleWithFolder {
		t.Errorf("ParseLayout(single) = %v, %v", l, ok)
	}
	if l, ok := ParseLayout(""); !ok || l != LayoutSeparate {
		t.Errorf("ParseLayout(empty) = %v, %v", l, ok)
	}
	if _, ok := ParseLayout("nested"); ok {
		t.Error("expected parse failure for unknown layout")
	}
}
