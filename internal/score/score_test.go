package score

import (
	"testing"

	"github.com/PadsterH2012/extractor/internal/types"
)

const cleanText = `The fighter makes an attack roll against the target's armor
class. On a hit, the weapon deals its damage dice plus the strength modifier.`

func section(page int, text string) types.Section {
	return types.Section{Page: page, Ordinal: 0, Text: text}
}

func TestComputeCleanNativeDocument(t *testing.T) {
	sections := []types.Section{
		section(1, cleanText),
		section(2, cleanText),
		section(3, cleanText),
	}
	r := Compute(sections, 3)

	if r.OCR != 100 {
		t.Errorf("ocr = %v, want 100 for native text", r.OCR)
	}
	if r.Table != 100 {
		t.Errorf("table = %v, want 100 with no tables", r.Table)
	}
	if r.Layout != 100 {
		t.Errorf("layout = %v, want full coverage", r.Layout)
	}
	if r.Overall <= 0 || r.Overall > 100 {
		t.Errorf("overall = %v", r.Overall)
	}
	if r.Grade == "" {
		t.Error("grade not assigned")
	}
}

func TestComputeEmpty(t *testing.T) {
	r := Compute(nil, 10)
	if r.Overall != 0 && r.Table != 100 {
		// Table defaults to 100; everything else is zero.
		t.Errorf("report = %+v", r)
	}
	if r.Text != 0 || r.Layout != 0 || r.OCR != 0 {
		t.Errorf("expected zero sub-scores, got %+v", r)
	}
}

func TestOCRScoreMixesProvenance(t *testing.T) {
	sections := []types.Section{
		section(1, cleanText),
		{Page: 2, Text: cleanText, OCRUsed: true, OCRConfidence: 0.5},
		{Page: 3, Text: "", OCRUnavailable: true},
	}
	got := ocrScore(sections)
	want := (100 + 50 + 0) / 3.0
	if got != want {
		t.Errorf("ocr = %v, want %v", got, want)
	}
}

func TestLayoutScorePenalizesGaps(t *testing.T) {
	// Two of four pages covered, no empty sections.
	sections := []types.Section{section(1, cleanText), section(2, cleanText)}
	if got := layoutScore(sections, 4); got != 50 {
		t.Errorf("layout = %v, want 50", got)
	}

	// Empty sections reduce the score further.
	withEmpty := append(sections, section(3, ""))
	got := layoutScore(withEmpty, 4)
	if got >= 50 {
		t.Errorf("layout = %v, want < 50 with an empty section", got)
	}
}

func TestTableScoreCountsRectangular(t *testing.T) {
	good := types.Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}}
	bad := types.Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}}
	sections := []types.Section{
		{Page: 1, Text: cleanText, HasTable: true, Tables: []types.Table{good, bad}},
	}
	if got := tableScore(sections); got != 50 {
		t.Errorf("table = %v, want 50", got)
	}
}

func TestWeightsSumToOne(t *testing.T) {
	if w := textWeight + layoutWeight + ocrWeight + tableWeight; w != 1.0 {
		t.Errorf("weights sum to %v", w)
	}
}
