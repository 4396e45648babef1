package enhance

import (
	"regexp"
	"strings"
)

// Grade letter thresholds, shared with the confidence scorer.
const (
	gradeA = 90
	gradeB = 80
	gradeC = 70
	gradeD = 60
)

// GradeFor maps a 0-100 score onto a letter grade.
func GradeFor(score float64) string {
	switch {
	case score >= gradeA:
		return "A"
	case score >= gradeB:
		return "B"
	case score >= gradeC:
		return "C"
	case score >= gradeD:
		return "D"
	default:
		return "F"
	}
}

// defaultEnhancer backs the package-level Score for callers without domain
// vocabulary.
var defaultEnhancer = New(Options{})

// Score rates text quality with the built-in dictionary only.
func Score(text string) float64 {
	return defaultEnhancer.Score(text)
}

// Suspicious OCR damage patterns: stray single characters between words,
// digit/letter mixtures inside words, repeated punctuation.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[a-zA-Z]\b\s+\b[a-zA-Z]\b`),
	regexp.MustCompile(`[a-zA-Z]\d[a-zA-Z]`),
	regexp.MustCompile(`[.]{3,}|[,]{2,}|[;]{2,}`),
	regexp.MustCompile(`[^\s\w.,;:!?"'()\[\]&/%$#@+*=-]`),
}

var headingLine = regexp.MustCompile(`(?m)^\s*([A-Z][A-Z\s\d:&'-]{3,}|\d+\.\d*\s+\S+)\s*$`)

// Score rates text quality 0-100: a weighted blend of dictionary coverage,
// substantial-line fraction, structural markers, and the inverse suspicious
// pattern rate.
func (e *Enhancer) Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	tokens := strings.Fields(text)
	hits := 0
	for _, tok := range tokens {
		if e.InDictionary(tok) {
			hits++
		}
	}
	dictCoverage := 0.0
	if len(tokens) > 0 {
		dictCoverage = float64(hits) / float64(len(tokens))
	}

	// Fraction of non-empty lines carrying real prose.
	lines := strings.Split(text, "\n")
	substantial, nonEmpty := 0, 0
	for _, line := range lines {
		words := len(strings.Fields(line))
		if words == 0 {
			continue
		}
		nonEmpty++
		if words >= 10 {
			substantial++
		}
	}
	lineScore := 0.0
	if nonEmpty > 0 {
		lineScore = float64(substantial) / float64(nonEmpty)
	}

	// Structural markers: headings and paragraph breaks.
	structure := 0.0
	if headingLine.MatchString(text) {
		structure += 0.5
	}
	if strings.Contains(text, "\n\n") {
		structure += 0.5
	}

	suspicious := 0
	for _, p := range suspiciousPatterns {
		suspicious += len(p.FindAllString(text, -1))
	}
	suspiciousRate := float64(suspicious) / float64(len(tokens)+1)
	if suspiciousRate > 1 {
		suspiciousRate = 1
	}

	score := 100 * (0.45*dictCoverage + 0.2*lineScore + 0.15*structure + 0.2*(1-suspiciousRate))
	if score > 100 {
		score = 100
	}
	return score
}
