// Package enhance cleans OCR artifacts out of extracted page text and scores
// text quality. All enhancements are idempotent on already-clean text: a page
// whose tokens are all dictionary hits passes through byte-identical.
package enhance

import (
	"regexp"
	"strings"
	"unicode"
)

// Mode selects how aggressively the enhancer rewrites text.
type Mode string

const (
	ModeOff        Mode = "off"
	ModeNormal     Mode = "normal"
	ModeAggressive Mode = "aggressive"
)

// ParseMode maps CLI/API spellings onto a Mode.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return ModeOff, true
	case "normal", "":
		return ModeNormal, true
	case "aggressive":
		return ModeAggressive, true
	}
	return "", false
}

// Correction kinds recorded in the metrics map.
const (
	CorrectionRunOn        = "run_on_split"
	CorrectionMissingSpace = "missing_space"
	CorrectionWhitespace   = "whitespace"
	CorrectionOCRSub       = "ocr_substitution"
	CorrectionSpelling     = "spelling"
)

// Result is one enhancement pass over a block of text.
type Result struct {
	Text        string
	BeforeScore float64 // 0-100
	AfterScore  float64 // 0-100
	Corrections map[string]int
}

// Enhancer applies the cleanup passes against a domain dictionary.
type Enhancer struct {
	dict      map[string]bool
	protected map[string]bool
	ocrSubs   map[string]string
}

// Options configures an Enhancer.
type Options struct {
	// Protected terms (game jargon from the catalog) are never "corrected"
	// and always count as dictionary hits.
	Protected map[string]bool

	// ExtraWords extends the built-in dictionary.
	ExtraWords []string
}

// New creates an Enhancer with the built-in dictionary plus options.
func New(opts Options) *Enhancer {
	e := &Enhancer{
		dict:      make(map[string]bool, len(baseDictionary)+len(opts.ExtraWords)),
		protected: make(map[string]bool, len(opts.Protected)),
		ocrSubs: map[string]string{
			"rn": "m",
			"vv": "w",
			"cl": "d",
			"li": "h",
		},
	}
	for _, w := range baseDictionary {
		e.dict[w] = true
	}
	for _, w := range opts.ExtraWords {
		e.dict[strings.ToLower(w)] = true
	}
	for t := range opts.Protected {
		e.protected[strings.ToLower(t)] = true
	}
	return e
}

// InDictionary reports whether a token counts as known text.
func (e *Enhancer) InDictionary(token string) bool {
	t := strings.ToLower(strings.Trim(token, ".,;:!?\"'()[]"))
	if t == "" {
		return true
	}
	if e.dict[t] || e.protected[t] {
		return true
	}
	// Numbers and dice notation are always fine.
	if numericToken(t) {
		return true
	}
	return false
}

// Enhance runs the cleanup passes in order and scores before/after quality.
func (e *Enhancer) Enhance(text string, mode Mode) Result {
	res := Result{Text: text, Corrections: make(map[string]int)}
	res.BeforeScore = e.Score(text)
	if mode == ModeOff || text == "" {
		res.AfterScore = res.BeforeScore
		return res
	}

	out := e.normalizeWhitespace(text, res.Corrections)
	out = e.splitRunOns(out, res.Corrections)
	out = e.insertMissingSpaces(out, res.Corrections)
	out = e.applyOCRSubstitutions(out, res.Corrections)
	out = e.correctSpelling(out, mode, res.Corrections)

	res.Text = out
	res.AfterScore = e.Score(out)
	return res
}

var (
	spaceRuns    = regexp.MustCompile(`[ \t]{2,}`)
	trailingWS   = regexp.MustCompile(`[ \t]+\n`)
	paragraphGap = regexp.MustCompile(`\n{3,}`)
)

// normalizeWhitespace collapses runs of spaces, normalizes line endings,
// strips trailing spaces, and preserves paragraph breaks as exactly one
// blank line.
func (e *Enhancer) normalizeWhitespace(text string, corrections map[string]int) string {
	out := strings.ReplaceAll(text, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	out = spaceRuns.ReplaceAllString(out, " ")
	out = trailingWS.ReplaceAllString(out, "\n")
	out = paragraphGap.ReplaceAllString(out, "\n\n")
	if out != text {
		corrections[CorrectionWhitespace]++
	}
	return out
}

var runOnBoundary = regexp.MustCompile(`[a-z][A-Z]`)

// splitRunOns inserts a space at a lowercase/uppercase boundary when both
// halves are dictionary words and the joined form is not.
func (e *Enhancer) splitRunOns(text string, corrections map[string]int) string {
	return e.mapTokens(text, func(token string) string {
		if e.InDictionary(token) {
			return token
		}
		loc := runOnBoundary.FindStringIndex(token)
		if loc == nil {
			return token
		}
		left, right := token[:loc[0]+1], token[loc[0]+1:]
		if e.InDictionary(left) && e.InDictionary(right) {
			corrections[CorrectionRunOn]++
			return left + " " + right
		}
		return token
	})
}

var letterDigitBoundary = regexp.MustCompile(`^([A-Za-z]+)(\d+)$`)

// insertMissingSpaces splits tokens like "Level1" where the letter part is a
// dictionary word.
func (e *Enhancer) insertMissingSpaces(text string, corrections map[string]int) string {
	return e.mapTokens(text, func(token string) string {
		m := letterDigitBoundary.FindStringSubmatch(token)
		if m == nil {
			return token
		}
		if e.InDictionary(m[1]) {
			corrections[CorrectionMissingSpace]++
			return m[1] + " " + m[2]
		}
		return token
	})
}

// applyOCRSubstitutions tries the configured substitution set on tokens that
// miss the dictionary, keeping a substitution only when it produces a hit.
func (e *Enhancer) applyOCRSubstitutions(text string, corrections map[string]int) string {
	return e.mapTokens(text, func(token string) string {
		if e.InDictionary(token) {
			return token
		}
		for from, to := range e.ocrSubs {
			if !strings.Contains(strings.ToLower(token), from) {
				continue
			}
			candidate := replaceFold(token, from, to)
			if e.InDictionary(candidate) {
				corrections[CorrectionOCRSub]++
				return candidate
			}
		}
		return token
	})
}

// correctSpelling proposes a replacement only when the original misses the
// dictionary, the proposal is within the edit-distance budget, and the term
// is not protected jargon. Aggressive mode widens the budget to 3 and also
// considers capitalized proper-noun-looking tokens.
func (e *Enhancer) correctSpelling(text string, mode Mode, corrections map[string]int) string {
	maxDist := 2
	if mode == ModeAggressive {
		maxDist = 3
	}
	return e.mapTokens(text, func(token string) string {
		core, prefix, suffix := trimPunct(token)
		if len(core) < 4 || e.InDictionary(core) {
			return token
		}
		lower := strings.ToLower(core)
		if e.protected[lower] {
			return token
		}
		if looksProperNoun(core) && mode != ModeAggressive {
			return token
		}
		if best, ok := e.nearestWord(lower, maxDist); ok {
			corrections[CorrectionSpelling]++
			return prefix + matchCase(core, best) + suffix
		}
		return token
	})
}

// nearestWord finds the closest dictionary word within maxDist edits.
func (e *Enhancer) nearestWord(token string, maxDist int) (string, bool) {
	best := ""
	bestDist := maxDist + 1
	for w := range e.dict {
		if abs(len(w)-len(token)) > maxDist {
			continue
		}
		d := editDistance(token, w, bestDist-1)
		if d < bestDist {
			best, bestDist = w, d
			if bestDist == 1 {
				break
			}
		}
	}
	return best, bestDist <= maxDist
}

// mapTokens applies fn to each whitespace-delimited token, preserving the
// original separators.
func (e *Enhancer) mapTokens(text string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(text))
	start := 0
	for i := 0; i <= len(text); i++ {
		if i == len(text) || text[i] == ' ' || text[i] == '\n' || text[i] == '\t' {
			if i > start {
				b.WriteString(fn(text[start:i]))
			}
			if i < len(text) {
				b.WriteByte(text[i])
			}
			start = i + 1
		}
	}
	return b.String()
}

func trimPunct(token string) (core, prefix, suffix string) {
	start := 0
	for start < len(token) && !isWordByte(token[start]) {
		start++
	}
	end := len(token)
	for end > start && !isWordByte(token[end-1]) {
		end--
	}
	return token[start:end], token[:start], token[end:]
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '\''
}

func looksProperNoun(token string) bool {
	r := []rune(token)
	return len(r) > 0 && unicode.IsUpper(r[0])
}

func matchCase(original, replacement string) string {
	if looksProperNoun(original) {
		return strings.ToUpper(replacement[:1]) + replacement[1:]
	}
	return replacement
}

func replaceFold(token, from, to string) string {
	lower := strings.ToLower(token)
	idx := strings.Index(lower, from)
	if idx < 0 {
		return token
	}
	return token[:idx] + to + token[idx+len(from):]
}

func numericToken(t string) bool {
	if t == "" {
		return false
	}
	for _, r := range t {
		if !unicode.IsDigit(r) && r != 'd' && r != '+' && r != '-' && r != '%' && r != '/' {
			return false
		}
	}
	// Require at least one digit so lone "d" tokens don't pass.
	return strings.IndexFunc(t, unicode.IsDigit) >= 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// editDistance computes Levenshtein distance with an early-exit bound.
func editDistance(a, b string, bound int) int {
	if a == b {
		return 0
	}
	la, lb := len(a), len(b)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if curr[j] < rowMin {
				rowMin = curr[j]
			}
		}
		if bound >= 0 && rowMin > bound {
			return rowMin
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
