// Package score computes the per-run confidence report from extracted
// sections. Sub-scores are heuristic and cheap; nothing here calls a
// provider.
package score

import (
	"github.com/PadsterH2012/extractor/internal/enhance"
	"github.com/PadsterH2012/extractor/internal/types"
)

// Sub-score weights. Text dominates because every downstream consumer reads
// text; table shape matters least.
const (
	textWeight   = 0.4
	layoutWeight = 0.3
	ocrWeight    = 0.2
	tableWeight  = 0.1
)

// Compute builds the confidence report for a run. pages is the source
// document page count, which may exceed the number of pages that produced
// sections.
func Compute(sections []types.Section, pages int) types.ConfidenceReport {
	r := types.ConfidenceReport{
		Text:   textScore(sections),
		Layout: layoutScore(sections, pages),
		OCR:    ocrScore(sections),
		Table:  tableScore(sections),
	}
	r.Overall = textWeight*r.Text + layoutWeight*r.Layout + ocrWeight*r.OCR + tableWeight*r.Table
	r.Grade = enhance.GradeFor(r.Overall)
	return r
}

// textScore is the mean text quality across sections.
func textScore(sections []types.Section) float64 {
	if len(sections) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sections {
		sum += enhance.Score(s.Text)
	}
	return sum / float64(len(sections))
}

// layoutScore measures how much of the document yielded usable sections:
// the fraction of pages with at least one non-empty section, with a penalty
// for sections that came back empty.
func layoutScore(sections []types.Section, pages int) float64 {
	if pages <= 0 || len(sections) == 0 {
		return 0
	}
	covered := make(map[int]bool)
	empty := 0
	for _, s := range sections {
		if s.Text == "" {
			empty++
			continue
		}
		covered[s.Page] = true
	}
	coverage := float64(len(covered)) / float64(pages)
	emptyRate := float64(empty) / float64(len(sections))
	score := 100 * coverage * (1 - emptyRate)
	if score < 0 {
		return 0
	}
	return score
}

// ocrScore is 100 for fully native documents; OCR'd pages contribute their
// recognition confidence and unavailable pages contribute zero.
func ocrScore(sections []types.Section) float64 {
	if len(sections) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sections {
		switch {
		case s.OCRUnavailable:
			// contributes zero
		case s.OCRUsed:
			sum += 100 * s.OCRConfidence
		default:
			sum += 100
		}
	}
	return sum / float64(len(sections))
}

// tableScore is the fraction of detected tables that are rectangular, or a
// full score when the document has no tables to judge.
func tableScore(sections []types.Section) float64 {
	total, rectangular := 0, 0
	for _, s := range sections {
		for _, t := range s.Tables {
			total++
			if t.Rectangular() {
				rectangular++
			}
		}
	}
	if total == 0 {
		return 100
	}
	return 100 * float64(rectangular) / float64(total)
}
