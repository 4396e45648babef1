// Package pipeline runs the staged extraction flow for one session: identify,
// duplicate check, page extraction, enhancement, categorization, scoring,
// novel character analysis, and persistence. Stages advance the session's
// state machine and every blocking step honors context cancellation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/PadsterH2012/extractor/internal/address"
	"github.com/PadsterH2012/extractor/internal/catalog"
	"github.com/PadsterH2012/extractor/internal/config"
	"github.com/PadsterH2012/extractor/internal/dedup"
	"github.com/PadsterH2012/extractor/internal/docstore"
	"github.com/PadsterH2012/extractor/internal/enhance"
	"github.com/PadsterH2012/extractor/internal/identify"
	"github.com/PadsterH2012/extractor/internal/novel"
	"github.com/PadsterH2012/extractor/internal/pdf"
	"github.com/PadsterH2012/extractor/internal/providers"
	"github.com/PadsterH2012/extractor/internal/score"
	"github.com/PadsterH2012/extractor/internal/session"
	"github.com/PadsterH2012/extractor/internal/types"
	"github.com/PadsterH2012/extractor/internal/vector"
)

// VectorStore is the slice of the vector client the pipeline uses.
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string, metadata map[string]any) (string, error)
	Upsert(ctx context.Context, collection string, records []vector.Record) error
}

// DocumentStore is the slice of the document store the pipeline uses.
type DocumentStore interface {
	EnsureIndexes(ctx context.Context, collection string) error
	InsertArtifact(ctx context.Context, collection string, artifact *types.Artifact) error
}

// Orchestrator wires the stages together. Nil stores skip their side of
// persistence and a nil guard skips the duplicate registry, which is how the
// CLI runs against a partial deployment.
type Orchestrator struct {
	Catalog   *catalog.Catalog
	Providers *providers.Registry
	Vector    VectorStore
	Docs      DocumentStore
	Guard     *dedup.Guard
	Logger    *slog.Logger
}

// Stage progress percentages. Extraction and categorization interpolate
// between their bound and the next.
const (
	pctIdentifying  = 10
	pctIdentified   = 20
	pctDedup        = 25
	pctExtracting   = 30
	pctEnhancing    = 60
	pctCategorizing = 65
	pctScoring      = 80
	pctNovel        = 85
	pctPersisting   = 90
)

// Analyze drives a session through identification only and returns the
// verdict. A later Run reuses the verdict instead of identifying again.
func (o *Orchestrator) Analyze(ctx context.Context, s *session.Session, cfg *config.Config) (types.Verdict, error) {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	doc, override := s.Document()
	if doc == nil {
		err := types.Errorf(types.KindBadSession, "upload", "session %s has no document", s.ID)
		s.Fail(err)
		return types.Verdict{}, err
	}
	if v := s.Verdict(); v != nil {
		return *v, nil
	}
	logger := o.Logger.With("session", s.ID, "document", doc.OriginName)

	handle, err := o.open(ctx, s, doc)
	if err != nil {
		s.Fail(err)
		return types.Verdict{}, err
	}
	defer handle.Close()

	verdict, err := o.identifyStage(ctx, s, handle, override, cfg, logger)
	if err != nil {
		s.Fail(err)
		return types.Verdict{}, err
	}
	return verdict, nil
}

// Run executes the full pipeline for a session's uploaded document. The
// session is advanced and failed in place; the returned error mirrors the
// session's failure for CLI exit-code mapping.
func (o *Orchestrator) Run(ctx context.Context, s *session.Session, cfg *config.Config) (*types.Artifact, error) {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	artifact, err := o.run(ctx, s, cfg)
	if err != nil {
		s.Fail(err)
		return nil, err
	}
	s.SetArtifact(artifact)
	s.Advance(session.StateCompleted, 100, "extraction complete")
	return artifact, nil
}

// open builds the shared PDF handle, attaching the OCR fallback when one is
// configured.
func (o *Orchestrator) open(ctx context.Context, s *session.Session, doc *types.Document) (*pdf.Handle, error) {
	s.Advance(session.StateIdentifying, pctIdentifying, "opening document")
	opts := pdf.Options{}
	if ocr := o.Providers.OCRClient(); ocr != nil {
		opts.OCR = ocr
	}
	return pdf.Open(ctx, doc.Bytes, opts)
}

// provider resolves the per-run provider choice, falling back to the
// configured active provider.
func (o *Orchestrator) provider(opts session.RunOptions) (providers.Provider, error) {
	if opts.Provider == "" {
		return o.Providers.Active(), nil
	}
	p, ok := o.Providers.Get(opts.Provider)
	if !ok {
		return nil, types.Errorf(types.KindBadSession, "analyze",
			"unknown provider %q", opts.Provider)
	}
	return p, nil
}

func (o *Orchestrator) run(ctx context.Context, s *session.Session, cfg *config.Config) (*types.Artifact, error) {
	doc, override := s.Document()
	if doc == nil {
		return nil, types.Errorf(types.KindBadSession, "upload", "session %s has no document", s.ID)
	}
	logger := o.Logger.With("session", s.ID, "document", doc.OriginName)
	runOpts := s.Options()

	layoutName := cfg.Stores.Layout
	if runOpts.Layout != "" {
		layoutName = runOpts.Layout
	}
	layout, ok := address.ParseLayout(layoutName)
	if !ok {
		layout = address.LayoutSeparate
	}
	modeName := cfg.Extract.EnhanceMode
	if runOpts.Enhance != "" {
		modeName = runOpts.Enhance
	}
	mode, ok := enhance.ParseMode(modeName)
	if !ok {
		mode = enhance.ModeNormal
	}

	// Open once; every stage shares the handle.
	handle, err := o.open(ctx, s, doc)
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	var verdict types.Verdict
	if v := s.Verdict(); v != nil {
		// Identification already ran through Analyze.
		verdict = *v
	} else {
		verdict, err = o.identifyStage(ctx, s, handle, override, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	addr := address.For(verdict, layout)
	if err := o.dedupStage(ctx, s, verdict, addr, logger); err != nil {
		return nil, err
	}
	// A claimed ISBN stays tentative until persistence finalizes it.
	released := false
	defer func() {
		if !released && o.Guard != nil {
			o.Guard.Release(context.WithoutCancel(ctx), verdict.ISBN13, s.ID)
		}
	}()

	sections, pagesFailed, err := o.extractStage(ctx, s, handle, cfg, logger)
	if err != nil {
		return nil, err
	}

	quality := o.enhanceStage(ctx, s, sections, mode, logger)
	quality.PagesFailed += pagesFailed

	if err := o.categorizeStage(ctx, s, sections, verdict, cfg, logger); err != nil {
		return nil, err
	}

	s.Advance(session.StateScoring, pctScoring, "scoring confidence")
	confidence := score.Compute(sections, handle.PageCount())

	artifact := &types.Artifact{
		Verdict:      verdict,
		Sections:     sections,
		Summary:      summarize(sections, handle.PageCount()),
		Confidence:   confidence,
		Quality:      quality,
		SourceDigest: doc.SHA256,
		IngestedAt:   time.Now().UTC(),
	}

	if verdict.Kind == types.KindNovel {
		s.Advance(session.StateNovelCharacters, pctNovel, "analyzing characters")
		provider, err := o.provider(runOpts)
		if err != nil {
			return nil, err
		}
		analyzer := novel.New(logger)
		artifact.Characters = analyzer.Analyze(ctx, provider, sections, cfg.CategorizeOptions())
		if ctx.Err() != nil {
			return nil, types.NewError(types.KindCancelled, "novel_characters", ctx.Err())
		}
	}

	s.Advance(session.StatePersisting, pctPersisting, "persisting to stores")
	if err := o.persistStage(ctx, artifact, addr, logger); err != nil {
		return nil, err
	}

	if o.Guard != nil {
		if err := o.Guard.Finalize(ctx, verdict.ISBN13, s.ID,
			artifact.Summary.Sections, artifact.Summary.Words); err != nil {
			return nil, err
		}
	}
	released = true
	return artifact, nil
}

func (o *Orchestrator) identifyStage(ctx context.Context, s *session.Session, handle *pdf.Handle, override types.Override, cfg *config.Config, logger *slog.Logger) (types.Verdict, error) {
	s.Advance(session.StateIdentifying, pctIdentifying, "identifying document")

	provider, err := o.provider(s.Options())
	if err != nil {
		return types.Verdict{}, err
	}
	in, err := identify.FromPDF(ctx, handle)
	if err != nil {
		return types.Verdict{}, wrapCancel(err, "identify")
	}
	identifier := identify.New(o.Catalog, logger)
	verdict, err := identifier.Identify(ctx, provider, in, override, cfg.IdentifyOptions())
	if err != nil {
		return types.Verdict{}, err
	}

	s.SetVerdict(verdict)
	s.Advance(session.StateIdentified, pctIdentified,
		fmt.Sprintf("identified as %s/%s/%s", verdict.Game, verdict.Edition, verdict.Book))
	logger.Info("document identified",
		"game", verdict.Game, "edition", verdict.Edition, "book", verdict.Book,
		"kind", verdict.Kind, "derivation", verdict.Derivation, "confidence", verdict.Confidence)
	return verdict, nil
}

func (o *Orchestrator) dedupStage(ctx context.Context, s *session.Session, verdict types.Verdict, addr address.Address, logger *slog.Logger) error {
	s.Advance(session.StateDedupCheck, pctDedup, "checking duplicate registry")
	if o.Guard == nil {
		return nil
	}
	entry := docstore.RegistryEntry{
		ISBN13:     verdict.ISBN13,
		Collection: addr.Collection,
		SessionID:  s.ID,
		Title:      verdict.BookTitle,
	}
	if entry.Title == "" {
		entry.Title = verdict.Book
	}
	if author, ok := verdict.Extra["author"].(string); ok {
		entry.Author = author
	}
	override := verdict.Derivation == types.DerivationManualOverride
	if err := o.Guard.Claim(ctx, entry, override); err != nil {
		return err
	}
	if verdict.ISBN13 != "" {
		logger.Info("claimed isbn", "isbn", verdict.ISBN13, "collection", addr.Collection)
	}
	return nil
}

// enhanceStage cleans every section in place and aggregates quality metrics.
// An enhancer crash on one section passes the raw text through and counts the
// page as failed instead of failing the run.
func (o *Orchestrator) enhanceStage(ctx context.Context, s *session.Session, sections []types.Section, mode enhance.Mode, logger *slog.Logger) types.QualityMetrics {
	s.Advance(session.StateEnhancing, pctEnhancing, "enhancing text")

	enhancer := enhance.New(enhance.Options{
		Protected:  o.Catalog.ProtectedTerms(),
		ExtraWords: keywordTerms(o.Catalog),
	})

	metrics := types.QualityMetrics{Corrections: make(map[string]int)}
	var before, after float64
	for i := range sections {
		res, ok := enhanceSection(enhancer, sections[i].RawText, mode)
		if !ok {
			sections[i].Text = sections[i].RawText
			metrics.PagesFailed++
			logger.Warn("enhancement failed, passing raw text through", "page", sections[i].Page)
			continue
		}
		sections[i].Text = res.Text
		before += res.BeforeScore
		after += res.AfterScore
		for k, n := range res.Corrections {
			metrics.Corrections[k] += n
		}
	}
	if n := len(sections); n > 0 {
		metrics.BeforeScore = before / float64(n)
		metrics.AfterScore = after / float64(n)
	}
	metrics.Grade = enhance.GradeFor(metrics.AfterScore)
	return metrics
}

// enhanceSection isolates one section so a panic in the cleanup passes cannot
// take the run down.
func enhanceSection(e *enhance.Enhancer, text string, mode enhance.Mode) (res enhance.Result, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return e.Enhance(text, mode), true
}

// categorizeStage assigns a taxonomy category to every section. Provider
// exhaustion on a section yields Uncategorized at zero confidence; only
// cancellation aborts the stage.
func (o *Orchestrator) categorizeStage(ctx context.Context, s *session.Session, sections []types.Section, verdict types.Verdict, cfg *config.Config, logger *slog.Logger) error {
	s.Advance(session.StateCategorizing, pctCategorizing, "categorizing sections")

	categories := o.Catalog.Categories(verdict.Game, verdict.Kind)
	provider, err := o.provider(s.Options())
	if err != nil {
		return err
	}
	opts := cfg.CategorizeOptions()

	for i := range sections {
		if ctx.Err() != nil {
			return types.NewError(types.KindCancelled, "categorize", ctx.Err())
		}
		if sections[i].Text == "" {
			sections[i].Category = types.UncategorizedCategory
			continue
		}
		out, err := provider.Categorize(ctx, providers.CategorizeRequest{
			Text:       sections[i].Text,
			Categories: categories,
			Game:       verdict.Game,
			Kind:       verdict.Kind,
			Opts:       opts,
		})
		if err != nil {
			if types.IsKind(err, types.KindCancelled) {
				return err
			}
			logger.Warn("categorization exhausted for section",
				"page", sections[i].Page, "ordinal", sections[i].Ordinal, "error", err)
			sections[i].Category = types.UncategorizedCategory
			sections[i].CategoryConfidence = 0
			continue
		}
		sections[i].Category = out.Category
		sections[i].CategoryConfidence = out.Confidence

		pct := pctCategorizing + (pctScoring-pctCategorizing-2)*float64(i+1)/float64(len(sections))
		s.Advance(session.StateCategorizing, pct, "")
	}
	return nil
}

// summarize builds the artifact's aggregate counts.
func summarize(sections []types.Section, pages int) types.Summary {
	sum := types.Summary{
		Pages:      pages,
		Sections:   len(sections),
		Categories: make(map[string]int),
	}
	for _, s := range sections {
		sum.Words += wordCount(s.Text)
		if s.Category != "" {
			sum.Categories[s.Category]++
		}
	}
	return sum
}

func wordCount(text string) int {
	n, inWord := 0, false
	for i := 0; i < len(text); i++ {
		sp := text[i] == ' ' || text[i] == '\n' || text[i] == '\t' || text[i] == '\r'
		if !sp && !inWord {
			n++
		}
		inWord = !sp
	}
	return n
}

// keywordTerms flattens every game's keyword list for the enhancer
// dictionary.
func keywordTerms(cat *catalog.Catalog) []string {
	var terms []string
	for _, game := range cat.Games() {
		for _, kw := range cat.Keywords(game) {
			terms = append(terms, kw.Term)
		}
	}
	sort.Strings(terms)
	return terms
}

// wrapCancel rewrites bare context errors into the pipeline taxonomy.
// Errors already carrying a kind pass through untouched.
func wrapCancel(err error, stage string) error {
	if err == nil || types.KindOf(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return types.NewError(types.KindCancelled, stage, err)
	case errors.Is(err, context.DeadlineExceeded):
		return types.NewError(types.KindDeadlineExceeded, stage, err)
	}
	return err
}
