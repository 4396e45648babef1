package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/PadsterH2012/extractor/internal/config"
	"github.com/PadsterH2012/extractor/internal/pdf"
	"github.com/PadsterH2012/extractor/internal/session"
	"github.com/PadsterH2012/extractor/internal/types"

	"log/slog"
)

// largeDocPages is the page count above which the worker pool shrinks to
// largeDocWorkers to keep memory bounded on big scans.
const (
	largeDocPages   = 400
	largeDocWorkers = 4
)

// pageSource is the slice of the PDF handle the extract pool reads.
type pageSource interface {
	PageCount() int
	PageText(ctx context.Context, page int) (pdf.PageText, error)
}

// pageResult is one worker's output for a single page.
type pageResult struct {
	page    int
	section types.Section
	err     error
}

// extractStage pulls text and tables from every page through a bounded worker
// pool and returns sections ordered by (page, ordinal). Individual page
// failures yield empty sections and a failed-page count; the stage fails only
// when no page produced anything or the run was cancelled.
func (o *Orchestrator) extractStage(ctx context.Context, s *session.Session, src pageSource, cfg *config.Config, logger *slog.Logger) ([]types.Section, int, error) {
	total := src.PageCount()
	s.Advance(session.StateExtracting, pctExtracting, fmt.Sprintf("extracting %d pages", total))

	workers := poolSize(cfg.Extract.MaxPageWorkers, total)
	pages := make(chan int, 2*workers)
	results := make(chan pageResult, 2*workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range pages {
				results <- extractPage(ctx, src, page)
			}
		}()
	}

	go func() {
		defer close(pages)
		for p := 1; p <= total; p++ {
			select {
			case pages <- p:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		sections    []types.Section
		pagesFailed int
		done        int
	)
	for res := range results {
		done++
		if res.err != nil {
			pagesFailed++
			logger.Warn("page extraction failed", "page", res.page, "error", res.err)
		} else {
			sections = append(sections, res.section)
		}
		pct := pctExtracting + (pctEnhancing-pctExtracting-2)*float64(done)/float64(total)
		s.Advance(session.StateExtracting, pct, "")
	}

	if ctx.Err() != nil {
		return nil, 0, types.NewError(types.KindCancelled, "extract", ctx.Err())
	}
	if len(sections) == 0 {
		return nil, 0, types.Errorf(types.KindPageFailed, "extract",
			"no pages extractable (%d of %d failed)", pagesFailed, total)
	}

	sort.Slice(sections, func(i, j int) bool { return sections[i].Less(sections[j]) })
	return sections, pagesFailed, nil
}

// extractPage builds the section for one page: page text with OCR provenance
// plus detected tables.
func extractPage(ctx context.Context, src pageSource, page int) pageResult {
	if ctx.Err() != nil {
		return pageResult{page: page, err: ctx.Err()}
	}
	pt, err := src.PageText(ctx, page)
	if err != nil {
		return pageResult{page: page, err: err}
	}
	tables := pdf.DetectTables(pt.Text, page)

	return pageResult{
		page: page,
		section: types.Section{
			Page:           page,
			Ordinal:        0,
			RawText:        pt.Text,
			HasTable:       len(tables) > 0,
			Tables:         tables,
			OCRUsed:        pt.OCRUsed,
			OCRConfidence:  pt.OCRConfidence,
			OCRUnavailable: pt.OCRUnavailable,
		},
	}
}

// poolSize bounds page workers: never more than pages, never more than the
// configured maximum, and reduced on very large documents.
func poolSize(max, pages int) int {
	if max <= 0 {
		max = 1
	}
	if pages > largeDocPages && max > largeDocWorkers {
		max = largeDocWorkers
	}
	if pages < max {
		max = pages
	}
	if max < 1 {
		max = 1
	}
	return max
}
