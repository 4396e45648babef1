// Package identify turns an opened document into a classification verdict.
// Resolution order: explicit title match against the catalog, AI inference,
// then weighted keyword fallback. A caller override trumps everything. ISBN
// detection runs regardless of which path decided.
package identify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PadsterH2012/extractor/internal/catalog"
	"github.com/PadsterH2012/extractor/internal/isbn"
	"github.com/PadsterH2012/extractor/internal/pdf"
	"github.com/PadsterH2012/extractor/internal/providers"
	"github.com/PadsterH2012/extractor/internal/types"
)

const (
	// headPages bounds how much of the document feeds identification.
	headPages = 15
	// isbnEdgePages is how many pages from each end are scanned for ISBNs.
	isbnEdgePages = 3

	// explicitTitleConfidence is the floor for a catalog title match.
	explicitTitleConfidence = 0.95
	// fallbackConfidenceCeiling caps the keyword fallback; it can never
	// outrank an AI answer.
	fallbackConfidenceCeiling = 0.6
)

// Input is the evidence identification works from, decoupled from the PDF
// layer for testing.
type Input struct {
	HeadText   string // first headPages pages, char-bounded
	MetaTitle  string
	MetaAuthor string
	// EdgeText is the first and last isbnEdgePages pages, scanned for ISBNs.
	EdgeText string
}

// FromPDF gathers identification evidence from an opened document.
func FromPDF(ctx context.Context, h *pdf.Handle) (Input, error) {
	head, _, err := h.FirstNPagesText(ctx, headPages, 0)
	if err != nil {
		return Input{}, err
	}
	meta := h.Metadata()

	var edge strings.Builder
	total := h.PageCount()
	for _, p := range edgePages(total) {
		pt, err := h.PageText(ctx, p)
		if err != nil {
			continue
		}
		edge.WriteString(pt.Text)
		edge.WriteByte('\n')
	}

	return Input{
		HeadText:   head,
		MetaTitle:  meta.Title,
		MetaAuthor: meta.Author,
		EdgeText:   edge.String(),
	}, nil
}

// edgePages returns the 1-based page numbers of the first and last
// isbnEdgePages pages without duplicates.
func edgePages(total int) []int {
	seen := make(map[int]bool)
	var pages []int
	add := func(p int) {
		if p >= 1 && p <= total && !seen[p] {
			seen[p] = true
			pages = append(pages, p)
		}
	}
	for p := 1; p <= isbnEdgePages; p++ {
		add(p)
	}
	for p := total - isbnEdgePages + 1; p <= total; p++ {
		add(p)
	}
	return pages
}

// Identifier resolves verdicts.
type Identifier struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// New creates an Identifier.
func New(cat *catalog.Catalog, logger *slog.Logger) *Identifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Identifier{catalog: cat, logger: logger}
}

// Identify produces the document verdict. The provider is consulted only
// when no explicit title match exists; provider failure degrades to the
// keyword fallback rather than failing the document outright.
func (i *Identifier) Identify(ctx context.Context, p providers.Provider, in Input, override types.Override, opts providers.Options) (types.Verdict, error) {
	v, err := i.classify(ctx, p, in, opts)
	if err != nil && override.IsZero() {
		return types.Verdict{}, err
	}

	// ISBNs attach regardless of how classification was decided, override
	// included: the duplicate registry keys on them.
	i.attachISBN(&v, in)

	if !override.IsZero() {
		v = override.Apply(v)
		if v.Kind == "" {
			v.Kind = types.KindSourceMaterial
		}
	}
	return v, nil
}

func (i *Identifier) classify(ctx context.Context, p providers.Provider, in Input, opts providers.Options) (types.Verdict, error) {
	if v, ok := i.explicitTitle(in); ok {
		i.logger.Info("identified by explicit title", "game", v.Game, "book", v.Book)
		return v, nil
	}

	v, aiErr := i.aiInference(ctx, p, in, opts)
	if aiErr == nil {
		i.logger.Info("identified by inference", "game", v.Game, "confidence", v.Confidence)
		return v, nil
	}
	if types.IsKind(aiErr, types.KindCancelled) {
		return types.Verdict{}, aiErr
	}
	i.logger.Warn("inference failed, trying keyword fallback", "error", aiErr)

	if v, ok := i.keywordFallback(in); ok {
		i.logger.Info("identified by keyword fallback", "game", v.Game, "confidence", v.Confidence)
		return v, nil
	}
	return types.Verdict{}, aiErr
}

// explicitTitle matches the metadata title and head text against catalog
// title synonyms.
func (i *Identifier) explicitTitle(in Input) (types.Verdict, bool) {
	text := in.MetaTitle + "\n" + in.HeadText
	syn, ok := i.catalog.FindSynonym(text)
	if !ok {
		return types.Verdict{}, false
	}
	v := types.Verdict{
		Kind:       types.KindSourceMaterial,
		Game:       syn.Game,
		Edition:    syn.Edition,
		Book:       syn.Book,
		BookTitle:  syn.Title,
		Confidence: explicitTitleConfidence,
		Rationale:  "catalog title match: " + syn.Fragment,
		Derivation: types.DerivationExplicitTitle,
	}
	if g, ok := i.catalog.Game(syn.Game); ok {
		v.Publisher = g.Publisher
	}
	return v, true
}

func (i *Identifier) aiInference(ctx context.Context, p providers.Provider, in Input, opts providers.Options) (types.Verdict, error) {
	out, err := p.Identify(ctx, providers.IdentifyRequest{
		Text:       in.HeadText,
		MetaTitle:  in.MetaTitle,
		MetaAuthor: in.MetaAuthor,
		Games:      i.catalog.Games(),
		Opts:       opts,
	})
	if err != nil {
		return types.Verdict{}, err
	}

	v := types.Verdict{
		Kind:       out.Kind,
		Game:       out.Game,
		Edition:    out.Edition,
		Book:       out.Book,
		BookTitle:  out.BookTitle,
		Publisher:  out.Publisher,
		Confidence: clamp01(out.Confidence),
		Rationale:  out.Rationale,
		Derivation: types.DerivationAIInference,
	}
	if !v.Kind.Valid() {
		v.Kind = types.KindSourceMaterial
	}
	if err := i.conform(&v); err != nil {
		return types.Verdict{}, err
	}
	return v, nil
}

// conform validates an AI verdict against the catalog, repairing unknown
// editions and books from catalog fallbacks. An unknown game is malformed.
func (i *Identifier) conform(v *types.Verdict) error {
	if v.Game == "" {
		return types.Errorf(types.KindAIMalformed, "identify", "inference named no game")
	}
	g, ok := i.catalog.Game(v.Game)
	if !ok {
		return types.Errorf(types.KindAIMalformed, "identify", "inference named unknown game %q", v.Game)
	}
	if v.Publisher == "" {
		v.Publisher = g.Publisher
	}

	editions, err := i.catalog.Editions(v.Game)
	if err != nil {
		return err
	}
	if !contains(editions, v.Edition) {
		v.Edition = editions[len(editions)-1]
	}
	books, err := i.catalog.Books(v.Game, v.Edition)
	if err != nil {
		return err
	}
	if !contains(books, v.Book) && len(books) > 0 {
		v.Book = books[0]
	}
	return nil
}

// keywordFallback votes on keyword density alone.
func (i *Identifier) keywordFallback(in Input) (types.Verdict, bool) {
	game, density := i.catalog.KeywordVote(in.MetaTitle + "\n" + in.HeadText)
	if game == "" || density == 0 {
		return types.Verdict{}, false
	}
	confidence := density
	if confidence > fallbackConfidenceCeiling {
		confidence = fallbackConfidenceCeiling
	}
	v := types.Verdict{
		Kind:       types.KindSourceMaterial,
		Game:       game,
		Confidence: confidence,
		Rationale:  "keyword density vote",
		Derivation: types.DerivationFallbackKeyword,
	}
	if err := i.conform(&v); err != nil {
		return types.Verdict{}, false
	}
	return v, true
}

func (i *Identifier) attachISBN(v *types.Verdict, in Input) {
	text := in.EdgeText
	if text == "" {
		text = in.HeadText
	}
	isbn10, isbn13 := isbn.Find(text)
	v.ISBN10 = isbn10
	v.ISBN13 = isbn13
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
