// Package novel runs the optional character analysis for novel-kind
// documents: a discover pass over overlapping text chunks, an enhance pass
// for recurring characters, and a co-occurrence relationship graph. Failure
// here never fails the run; the report records it instead.
package novel

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/PadsterH2012/extractor/internal/providers"
	"github.com/PadsterH2012/extractor/internal/types"
)

const (
	// chunkTargetChars bounds one provider call's text.
	chunkTargetChars = 12000
	// chunkOverlapFraction carries this share of a chunk into the next so
	// scene boundaries are not lost at chunk edges.
	chunkOverlapFraction = 0.03
	// minDistinctPages filters one-off mentions out of the final report.
	minDistinctPages = 3
	// minSharedPages is the co-occurrence threshold for a relationship.
	minSharedPages = 2
)

// Analyzer produces character reports.
type Analyzer struct {
	logger *slog.Logger
}

// New creates an Analyzer.
func New(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger}
}

// chunk is a contiguous page range fed to the provider as one call.
type chunk struct {
	text  string
	pages []int
}

// Analyze runs both passes. The returned report is never nil; provider
// failure marks it Failed with a note and keeps whatever the discover pass
// found.
func (a *Analyzer) Analyze(ctx context.Context, p providers.Provider, sections []types.Section, opts providers.Options) *types.CharacterReport {
	report := &types.CharacterReport{Characters: make(map[string]*types.Character)}

	chunks := buildChunks(sections)
	if len(chunks) == 0 {
		return report
	}

	// Discover pass.
	for _, c := range chunks {
		out, err := p.ExtractCharacters(ctx, providers.CharacterRequest{
			Text:  c.text,
			Pages: c.pages,
			Pass:  providers.PassDiscover,
			Opts:  opts,
		})
		if err != nil {
			a.fail(report, "discover pass failed", err)
			return report
		}
		for _, found := range out.Characters {
			mergeCharacter(report.Characters, found, c.pages)
		}
	}

	prune(report.Characters)
	if len(report.Characters) == 0 {
		return report
	}

	// Enhance pass, only for chunks that mention a surviving character.
	prior := characterList(report.Characters)
	for _, c := range chunks {
		if !mentionsAny(c, report.Characters) {
			continue
		}
		out, err := p.ExtractCharacters(ctx, providers.CharacterRequest{
			Text:  c.text,
			Pages: c.pages,
			Pass:  providers.PassEnhance,
			Prior: prior,
			Opts:  opts,
		})
		if err != nil {
			a.fail(report, "enhance pass failed", err)
			return report
		}
		for _, found := range out.Characters {
			if existing, ok := report.Characters[canon(found.Name)]; ok {
				enrich(existing, found)
			}
		}
	}

	report.Relationships = relationships(report.Characters)
	a.logger.Info("character analysis complete",
		"characters", len(report.Characters), "chunks", len(chunks))
	return report
}

func (a *Analyzer) fail(report *types.CharacterReport, note string, err error) {
	report.Failed = true
	report.FailureNote = note + ": " + err.Error()
	a.logger.Warn("character analysis degraded", "note", note, "error", err)
}

// buildChunks groups section text into page-aligned chunks near
// chunkTargetChars, overlapping consecutive chunks by chunkOverlapFraction.
func buildChunks(sections []types.Section) []chunk {
	pageText := make(map[int]*strings.Builder)
	var pages []int
	for _, s := range sections {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		b, ok := pageText[s.Page]
		if !ok {
			b = &strings.Builder{}
			pageText[s.Page] = b
			pages = append(pages, s.Page)
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s.Text)
	}
	sort.Ints(pages)

	var chunks []chunk
	var cur chunk
	flush := func() {
		if len(cur.pages) > 0 {
			chunks = append(chunks, cur)
			cur = chunk{}
		}
	}
	for _, p := range pages {
		t := pageText[p].String()
		if len(cur.text)+len(t) > chunkTargetChars && len(cur.pages) > 0 {
			overlap := overlapPages(cur, pageText)
			flush()
			for _, op := range overlap {
				cur.pages = append(cur.pages, op)
				cur.text += pageText[op].String() + "\n"
			}
		}
		cur.pages = append(cur.pages, p)
		cur.text += t + "\n"
	}
	flush()
	return chunks
}

// overlapPages picks trailing pages of a chunk covering at least the overlap
// fraction of its text.
func overlapPages(c chunk, pageText map[int]*strings.Builder) []int {
	want := int(float64(len(c.text)) * chunkOverlapFraction)
	var out []int
	got := 0
	for i := len(c.pages) - 1; i >= 0 && got < want; i-- {
		p := c.pages[i]
		out = append([]int{p}, out...)
		got += pageText[p].Len()
	}
	return out
}

// canon is the character map key.
func canon(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func mergeCharacter(chars map[string]*types.Character, found types.Character, pages []int) {
	key := canon(found.Name)
	if key == "" {
		return
	}
	existing, ok := chars[key]
	if !ok {
		c := found
		c.Pages = nil
		chars[key] = &c
		existing = chars[key]
	}
	mentioned := found.Pages
	if len(mentioned) == 0 {
		mentioned = pages
	}
	existing.Pages = unionInts(existing.Pages, mentioned)
	existing.Aliases = unionStrings(existing.Aliases, found.Aliases)
	if existing.Description == "" {
		existing.Description = found.Description
	}
}

// enrich folds enhance-pass detail into a discovered character.
func enrich(dst *types.Character, src types.Character) {
	dst.Aliases = unionStrings(dst.Aliases, src.Aliases)
	dst.Personality = unionStrings(dst.Personality, src.Personality)
	dst.Behaviors = unionStrings(dst.Behaviors, src.Behaviors)
	dst.Pages = unionInts(dst.Pages, src.Pages)
	if src.Description != "" && len(src.Description) > len(dst.Description) {
		dst.Description = src.Description
	}
	for _, q := range src.Quotes {
		if !hasQuote(dst.Quotes, q) {
			dst.Quotes = append(dst.Quotes, q)
		}
	}
}

// prune drops characters below the distinct-page threshold.
func prune(chars map[string]*types.Character) {
	for key, c := range chars {
		if len(c.Pages) < minDistinctPages {
			delete(chars, key)
		}
	}
}

func mentionsAny(c chunk, chars map[string]*types.Character) bool {
	lower := strings.ToLower(c.text)
	for _, ch := range chars {
		if strings.Contains(lower, canon(ch.Name)) {
			return true
		}
	}
	return false
}

// relationships links characters sharing minSharedPages pages. The graph is
// symmetric and keyed by canonical name.
func relationships(chars map[string]*types.Character) map[string][]types.Relationship {
	keys := make([]string, 0, len(chars))
	for k := range chars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string][]types.Relationship)
	for i, a := range keys {
		for _, b := range keys[i+1:] {
			if sharedPages(chars[a].Pages, chars[b].Pages) < minSharedPages {
				continue
			}
			out[a] = append(out[a], types.Relationship{Other: chars[b].Name, Kind: "co-occurs"})
			out[b] = append(out[b], types.Relationship{Other: chars[a].Name, Kind: "co-occurs"})
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sharedPages(a, b []int) int {
	set := make(map[int]bool, len(a))
	for _, p := range a {
		set[p] = true
	}
	n := 0
	for _, p := range b {
		if set[p] {
			n++
		}
	}
	return n
}

func characterList(chars map[string]*types.Character) []types.Character {
	keys := make([]string, 0, len(chars))
	for k := range chars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]types.Character, 0, len(keys))
	for _, k := range keys {
		out = append(out, *chars[k])
	}
	return out
}

func unionInts(dst, src []int) []int {
	seen := make(map[int]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range src {
		if !seen[v] {
			seen[v] = true
			dst = append(dst, v)
		}
	}
	sort.Ints(dst)
	return dst
}

func unionStrings(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range src {
		if v != "" && !seen[v] {
			seen[v] = true
			dst = append(dst, v)
		}
	}
	return dst
}

func hasQuote(quotes []types.Quote, q types.Quote) bool {
	for _, have := range quotes {
		if have.Text == q.Text && have.Page == q.Page {
			return true
		}
	}
	return false
}
