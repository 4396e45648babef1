// Package isbn validates and canonicalizes ISBN-10 and ISBN-13 identifiers.
// The canonical form is always ISBN-13: ISBN-10 values are converted after
// checksum validation so two printings of the same book collide in the
// duplicate registry.
package isbn

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalid is returned for strings that fail structural or checksum checks.
var ErrInvalid = errors.New("invalid isbn")

// pattern matches candidate ISBNs in free text, tolerating hyphens and
// spaces between digit groups.
var pattern = regexp.MustCompile(`(?i)(?:ISBN(?:-1[03])?:?\s*)?((?:97[89][-\s]?)?\d{1,5}[-\s]?\d{1,7}[-\s]?\d{1,7}[-\s]?[\dXx])`)

// Canonical strips separators from s and returns the validated ISBN-13 form.
func Canonical(s string) (string, error) {
	digits := strip(s)
	switch len(digits) {
	case 10:
		if !validISBN10(digits) {
			return "", ErrInvalid
		}
		return toISBN13(digits), nil
	case 13:
		if !validISBN13(digits) {
			return "", ErrInvalid
		}
		return digits, nil
	}
	return "", ErrInvalid
}

// Find scans text for ISBN candidates and returns validated (isbn10, isbn13)
// forms. Either may be empty; when only an ISBN-13 appears, isbn10 stays
// empty since downconversion is not always possible.
func Find(text string) (isbn10, isbn13 string) {
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		digits := strip(m[1])
		switch len(digits) {
		case 10:
			if isbn10 == "" && validISBN10(digits) {
				isbn10 = digits
				if isbn13 == "" {
					isbn13 = toISBN13(digits)
				}
			}
		case 13:
			if isbn13 == "" && validISBN13(digits) {
				isbn13 = digits
			}
		}
		if isbn10 != "" && isbn13 != "" {
			break
		}
	}
	return isbn10, isbn13
}

// strip removes everything except digits and a trailing X check digit.
func strip(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	// An ISBN-10 may end in X; keep it only in final position.
	if n := len(s); n > 0 {
		last := s[n-1]
		if (last == 'X' || last == 'x') && b.Len() == 9 {
			b.WriteByte('X')
		}
	}
	return b.String()
}

func validISBN10(s string) bool {
	if len(s) != 10 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		var v int
		switch {
		case s[i] >= '0' && s[i] <= '9':
			v = int(s[i] - '0')
		case s[i] == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(s string) bool {
	if len(s) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 13; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		v := int(s[i] - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return sum%10 == 0
}

// toISBN13 converts a validated ISBN-10 to its 978-prefixed ISBN-13 form.
func toISBN13(s string) string {
	body := "978" + s[:9]
	sum := 0
	for i := 0; i < 12; i++ {
		v := int(body[i] - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	check := (10 - sum%10) % 10
	return body + string(rune('0'+check))
}
