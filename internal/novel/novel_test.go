package novel

import (
	"context"
	"strings"
	"testing"

	"github.com/PadsterH2012/extractor/internal/providers"
	"github.com/PadsterH2012/extractor/internal/types"
)

// pageProvider reports scripted characters with exact page mentions,
// restricted to the pages each request covers.
type pageProvider struct {
	mentions map[string][]int    // name -> pages mentioning it
	enhanced map[string][]string // name -> personality added in enhance pass
	failPass providers.CharacterPass
	calls    int
}

func (p *pageProvider) Name() string { return "scripted" }

func (p *pageProvider) Healthy(ctx context.Context) error { return nil }

func (p *pageProvider) Identify(ctx context.Context, req providers.IdentifyRequest) (*providers.Identification, error) {
	return nil, types.Errorf(types.KindAIUnreachable, "identify", "not scripted")
}

func (p *pageProvider) Categorize(ctx context.Context, req providers.CategorizeRequest) (*providers.Categorization, error) {
	return nil, types.Errorf(types.KindAIUnreachable, "categorize", "not scripted")
}

func (p *pageProvider) ExtractCharacters(ctx context.Context, req providers.CharacterRequest) (*providers.CharacterExtraction, error) {
	p.calls++
	if p.failPass != "" && req.Pass == p.failPass {
		return nil, types.Errorf(types.KindAIUnreachable, "characters", "scripted failure")
	}
	covered := make(map[int]bool, len(req.Pages))
	for _, pg := range req.Pages {
		covered[pg] = true
	}
	out := &providers.CharacterExtraction{}
	for name, pages := range p.mentions {
		var here []int
		for _, pg := range pages {
			if covered[pg] {
				here = append(here, pg)
			}
		}
		if len(here) == 0 || !strings.Contains(req.Text, name) {
			continue
		}
		c := types.Character{Name: name, Pages: here}
		if req.Pass == providers.PassEnhance {
			c.Personality = p.enhanced[name]
		}
		out.Characters = append(out.Characters, c)
	}
	return out, nil
}

func sectionsFor(pages int, textFor func(page int) string) []types.Section {
	var out []types.Section
	for p := 1; p <= pages; p++ {
		out = append(out, types.Section{Page: p, Ordinal: 0, Text: textFor(p)})
	}
	return out
}

func TestAnalyzeDiscoverAndEnhance(t *testing.T) {
	sections := sectionsFor(5, func(page int) string {
		return "Drizzt walked through the snow with Bruenor beside him."
	})
	p := &pageProvider{
		mentions: map[string][]int{
			"Drizzt":  {1, 2, 3, 4, 5},
			"Bruenor": {1, 2, 3, 4, 5},
		},
		enhanced: map[string][]string{"Drizzt": {"introspective"}},
	}

	report := New(nil).Analyze(context.Background(), p, sections, providers.CategorizeOptions())
	if report.Failed {
		t.Fatalf("report failed: %s", report.FailureNote)
	}
	if len(report.Characters) != 2 {
		t.Fatalf("characters = %d, want 2", len(report.Characters))
	}

	drizzt := report.Characters["drizzt"]
	if drizzt == nil {
		t.Fatal("drizzt missing")
	}
	if len(drizzt.Pages) < minDistinctPages {
		t.Errorf("pages = %v", drizzt.Pages)
	}
	if len(drizzt.Personality) == 0 {
		t.Error("enhance pass did not enrich personality")
	}

	// Characters sharing pages are related both ways.
	if len(report.Relationships["drizzt"]) != 1 || report.Relationships["drizzt"][0].Other != "Bruenor" {
		t.Errorf("relationships = %+v", report.Relationships)
	}
	if len(report.Relationships["bruenor"]) != 1 {
		t.Errorf("relationship not symmetric: %+v", report.Relationships)
	}
}

func TestAnalyzePrunesOneOffMentions(t *testing.T) {
	// Guenhwyvar appears on two pages only, below the threshold.
	sections := sectionsFor(6, func(page int) string {
		if page <= 2 {
			return "Guenhwyvar leapt."
		}
		return "Drizzt pressed on alone."
	})
	p := &pageProvider{mentions: map[string][]int{
		"Drizzt":     {3, 4, 5, 6},
		"Guenhwyvar": {1, 2},
	}}

	report := New(nil).Analyze(context.Background(), p, sections, providers.CategorizeOptions())
	if report.Failed {
		t.Fatalf("report failed: %s", report.FailureNote)
	}
	if _, ok := report.Characters["guenhwyvar"]; ok {
		t.Error("below-threshold character not pruned")
	}
	if _, ok := report.Characters["drizzt"]; !ok {
		t.Error("recurring character missing")
	}
}

func TestAnalyzeFailureIsNonFatal(t *testing.T) {
	sections := sectionsFor(4, func(page int) string { return "Drizzt waited." })
	p := &pageProvider{mentions: map[string][]int{"Drizzt": {1, 2, 3, 4}}, failPass: providers.PassDiscover}

	report := New(nil).Analyze(context.Background(), p, sections, providers.CategorizeOptions())
	if report == nil {
		t.Fatal("report must never be nil")
	}
	if !report.Failed || report.FailureNote == "" {
		t.Errorf("expected failed report, got %+v", report)
	}
}

func TestAnalyzeEnhanceFailureKeepsDiscoveries(t *testing.T) {
	sections := sectionsFor(4, func(page int) string { return "Drizzt waited." })
	p := &pageProvider{mentions: map[string][]int{"Drizzt": {1, 2, 3, 4}}, failPass: providers.PassEnhance}

	report := New(nil).Analyze(context.Background(), p, sections, providers.CategorizeOptions())
	if !report.Failed {
		t.Fatal("expected degraded report")
	}
	if _, ok := report.Characters["drizzt"]; !ok {
		t.Error("discover results dropped on enhance failure")
	}
}

func TestAnalyzeEmptySections(t *testing.T) {
	report := New(nil).Analyze(context.Background(), &pageProvider{}, nil, providers.CategorizeOptions())
	if report.Failed || len(report.Characters) != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestBuildChunksOverlap(t *testing.T) {
	// Pages big enough to force multiple chunks.
	page := strings.Repeat("word ", 1000) // ~5000 chars
	sections := sectionsFor(6, func(int) string { return page })

	chunks := buildChunks(sections)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want multiple", len(chunks))
	}
	// Consecutive chunks share at least one page.
	for i := 1; i < len(chunks); i++ {
		if sharedPages(chunks[i-1].pages, chunks[i].pages) == 0 {
			t.Errorf("chunks %d and %d do not overlap: %v / %v",
				i-1, i, chunks[i-1].pages, chunks[i].pages)
		}
	}
}
