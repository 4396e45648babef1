package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/PadsterH2012/extractor/internal/config"
	"github.com/PadsterH2012/extractor/internal/pdf"
	"github.com/PadsterH2012/extractor/internal/types"
)

// fakePages serves synthetic page text with a configurable per-page delay so
// pool workers finish out of order.
type fakePages struct {
	count int
	delay func(page int) time.Duration
	fail  map[int]bool
}

func (f *fakePages) PageCount() int { return f.count }

func (f *fakePages) PageText(ctx context.Context, page int) (pdf.PageText, error) {
	if f.delay != nil {
		time.Sleep(f.delay(page))
	}
	if f.fail[page] {
		return pdf.PageText{}, fmt.Errorf("page %d unreadable", page)
	}
	return pdf.PageText{Text: fmt.Sprintf("text of page %d", page)}, nil
}

func TestExtractOrdersSectionsByPage(t *testing.T) {
	o := testOrchestrator(t)
	s := testSession(t)
	cfg := config.DefaultConfig()

	// Early pages sleep longest, so completions arrive roughly reversed.
	src := &fakePages{
		count: 24,
		delay: func(page int) time.Duration {
			return time.Duration(24-page) * time.Millisecond
		},
	}

	sections, failed, err := o.extractStage(context.Background(), s, src, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if failed != 0 {
		t.Errorf("pages failed = %d", failed)
	}
	if len(sections) != src.count {
		t.Fatalf("sections = %d, want %d", len(sections), src.count)
	}
	for i, sec := range sections {
		if sec.Page != i+1 {
			t.Fatalf("section %d has page %d, want %d", i, sec.Page, i+1)
		}
	}
	for i := 1; i < len(sections); i++ {
		if !sections[i-1].Less(sections[i]) {
			t.Fatalf("sections %d and %d out of order: (%d,%d) before (%d,%d)",
				i-1, i, sections[i-1].Page, sections[i-1].Ordinal,
				sections[i].Page, sections[i].Ordinal)
		}
	}
}

func TestExtractCountsFailedPages(t *testing.T) {
	o := testOrchestrator(t)
	s := testSession(t)
	cfg := config.DefaultConfig()

	src := &fakePages{count: 6, fail: map[int]bool{2: true, 5: true}}

	sections, failed, err := o.extractStage(context.Background(), s, src, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if failed != 2 {
		t.Errorf("pages failed = %d, want 2", failed)
	}
	if len(sections) != 4 {
		t.Errorf("sections = %d, want 4", len(sections))
	}
	for _, sec := range sections {
		if sec.Page == 2 || sec.Page == 5 {
			t.Errorf("failed page %d produced a section", sec.Page)
		}
	}
}

func TestExtractFailsWhenNoPageYieldsText(t *testing.T) {
	o := testOrchestrator(t)
	s := testSession(t)
	cfg := config.DefaultConfig()

	src := &fakePages{count: 3, fail: map[int]bool{1: true, 2: true, 3: true}}

	_, _, err := o.extractStage(context.Background(), s, src, cfg, testLogger())
	if !types.IsKind(err, types.KindPageFailed) {
		t.Fatalf("kind = %v, want page_failed", types.KindOf(err))
	}
}
