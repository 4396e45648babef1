package identify

import (
	"context"
	"testing"

	"github.com/PadsterH2012/extractor/internal/catalog"
	"github.com/PadsterH2012/extractor/internal/providers"
	"github.com/PadsterH2012/extractor/internal/types"
)

// failingProvider always errors, forcing the keyword fallback.
type failingProvider struct{ kind types.ErrorKind }

func (f *failingProvider) Name() string { return "failing" }
func (f *failingProvider) Identify(ctx context.Context, req providers.IdentifyRequest) (*providers.Identification, error) {
	return nil, types.Errorf(f.kind, "identify", "scripted failure")
}
func (f *failingProvider) Categorize(ctx context.Context, req providers.CategorizeRequest) (*providers.Categorization, error) {
	return nil, types.Errorf(f.kind, "categorize", "scripted failure")
}
func (f *failingProvider) ExtractCharacters(ctx context.Context, req providers.CharacterRequest) (*providers.CharacterExtraction, error) {
	return nil, types.Errorf(f.kind, "characters", "scripted failure")
}
func (f *failingProvider) Healthy(ctx context.Context) error { return nil }

// scriptedProvider returns a fixed identification.
type scriptedProvider struct {
	failingProvider
	out providers.Identification
}

func (s *scriptedProvider) Identify(ctx context.Context, req providers.IdentifyRequest) (*providers.Identification, error) {
	out := s.out
	return &out, nil
}

func newIdentifier() *Identifier { return New(catalog.New(), nil) }

func TestExplicitTitleWinsOverProvider(t *testing.T) {
	id := newIdentifier()
	in := Input{
		MetaTitle: "Player's Handbook",
		HeadText:  "Advanced rules for characters and combat.",
	}

	// Provider would fail; the title match must never consult it.
	v, err := id.Identify(context.Background(), &failingProvider{kind: types.KindAIUnreachable}, in, types.Override{}, providers.IdentifyOptions())
	if err != nil {
		t.Fatal(err)
	}
	if v.Derivation != types.DerivationExplicitTitle {
		t.Errorf("derivation = %q", v.Derivation)
	}
	if v.Game != "dnd" || v.Edition != "1st" || v.Book != "phb" {
		t.Errorf("got %s/%s/%s", v.Game, v.Edition, v.Book)
	}
	if v.Confidence < 0.95 {
		t.Errorf("confidence = %v, want >= 0.95", v.Confidence)
	}
}

func TestAIInferenceConformsToCatalog(t *testing.T) {
	id := newIdentifier()
	p := &scriptedProvider{out: providers.Identification{
		Kind:       types.KindSourceMaterial,
		Game:       "dnd",
		Edition:    "27th", // not a real edition
		Book:       "xyz",  // not a real book
		Confidence: 0.88,
	}}

	v, err := id.Identify(context.Background(), p, Input{HeadText: "some rules text"}, types.Override{}, providers.IdentifyOptions())
	if err != nil {
		t.Fatal(err)
	}
	if v.Derivation != types.DerivationAIInference {
		t.Errorf("derivation = %q", v.Derivation)
	}
	editions, _ := catalog.New().Editions("dnd")
	if v.Edition != editions[len(editions)-1] {
		t.Errorf("edition = %q, want newest %q", v.Edition, editions[len(editions)-1])
	}
	if v.Book == "xyz" || v.Book == "" {
		t.Errorf("book = %q, want catalog repair", v.Book)
	}
}

func TestUnknownGameFallsBackToKeywords(t *testing.T) {
	id := newIdentifier()
	p := &scriptedProvider{out: providers.Identification{
		Kind: types.KindSourceMaterial,
		Game: "not_a_game",
	}}
	in := Input{HeadText: "THAC0 and armor class and saving throw rules for the dungeon master."}

	v, err := id.Identify(context.Background(), p, in, types.Override{}, providers.IdentifyOptions())
	if err != nil {
		t.Fatal(err)
	}
	if v.Derivation != types.DerivationFallbackKeyword {
		t.Errorf("derivation = %q", v.Derivation)
	}
	if v.Game != "dnd" {
		t.Errorf("game = %q", v.Game)
	}
	if v.Confidence > 0.6 {
		t.Errorf("fallback confidence = %v, want <= 0.6", v.Confidence)
	}
}

func TestIdentifyFailsWhenNothingMatches(t *testing.T) {
	id := newIdentifier()
	in := Input{HeadText: "completely unrelated cookbook text about soup recipes"}

	_, err := id.Identify(context.Background(), &failingProvider{kind: types.KindAIUnreachable}, in, types.Override{}, providers.IdentifyOptions())
	if !types.IsKind(err, types.KindAIUnreachable) {
		t.Fatalf("kind = %v, want provider error surfaced", types.KindOf(err))
	}
}

func TestOverrideForcesVerdict(t *testing.T) {
	id := newIdentifier()
	in := Input{HeadText: "soup recipes"}
	override := types.Override{Game: "coc", Edition: "7th", Book: "keeper", Kind: types.KindSourceMaterial}

	// Identification fails outright, but the override still yields a verdict.
	v, err := id.Identify(context.Background(), &failingProvider{kind: types.KindAIUnreachable}, in, override, providers.IdentifyOptions())
	if err != nil {
		t.Fatal(err)
	}
	if v.Derivation != types.DerivationManualOverride {
		t.Errorf("derivation = %q", v.Derivation)
	}
	if v.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", v.Confidence)
	}
	if v.Game != "coc" {
		t.Errorf("game = %q", v.Game)
	}
}

func TestOverrideStillRecordsISBN(t *testing.T) {
	id := newIdentifier()
	in := Input{
		HeadText: "soup recipes",
		EdgeText: "Copyright 2024. ISBN 978-0-7869-6561-8. All rights reserved.",
	}
	override := types.Override{Game: "dnd"}

	v, err := id.Identify(context.Background(), &failingProvider{kind: types.KindAIUnreachable}, in, override, providers.IdentifyOptions())
	if err != nil {
		t.Fatal(err)
	}
	if v.ISBN13 != "9780786965618" {
		t.Errorf("isbn13 = %q", v.ISBN13)
	}
	if v.Derivation != types.DerivationManualOverride {
		t.Errorf("derivation = %q", v.Derivation)
	}
}

func TestCancellationPropagates(t *testing.T) {
	id := newIdentifier()
	_, err := id.Identify(context.Background(), &failingProvider{kind: types.KindCancelled},
		Input{HeadText: "THAC0 saving throw armor class"}, types.Override{}, providers.IdentifyOptions())
	if !types.IsKind(err, types.KindCancelled) {
		t.Fatalf("kind = %v, want cancelled (no fallback on cancel)", types.KindOf(err))
	}
}

func TestEdgePages(t *testing.T) {
	if got := edgePages(100); len(got) != 6 || got[0] != 1 || got[5] != 100 {
		t.Errorf("edgePages(100) = %v", got)
	}
	// Small documents must not duplicate pages.
	if got := edgePages(4); len(got) != 4 {
		t.Errorf("edgePages(4) = %v", got)
	}
	if got := edgePages(2); len(got) != 2 {
		t.Errorf("edgePages(2) = %v", got)
	}
}
