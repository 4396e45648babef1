package isbn

import "testing"

func TestCanonicalISBN10(t *testing.T) {
	// The AD&D Player's Handbook.
	got, err := Canonical("0-935696-01-6")
	if err != nil {
		t.Fatalf("Canonical error: %v", err)
	}
	if len(got) != 13 || got[:3] != "978" {
		t.Errorf("expected 978-prefixed ISBN-13, got %q", got)
	}
}

func TestCanonicalISBN13(t *testing.T) {
	got, err := Canonical("978-0-7869-6561-8")
	if err != nil {
		t.Fatalf("Canonical error: %v", err)
	}
	if got != "9780786965618" {
		t.Errorf("got %q", got)
	}
}

func TestCanonicalTrailingX(t *testing.T) {
	// 043942089X has a valid X check digit.
	got, err := Canonical("0-439-42089-X")
	if err != nil {
		t.Fatalf("Canonical error: %v", err)
	}
	if len(got) != 13 {
		t.Errorf("got %q", got)
	}
}

func TestCanonicalRejectsBadChecksum(t *testing.T) {
	if _, err := Canonical("978-0-7869-6561-9"); err == nil {
		t.Error("expected checksum rejection")
	}
	if _, err := Canonical("123"); err == nil {
		t.Error("expected length rejection")
	}
}

// Canonicalization is idempotent and both forms of the same book collide.
func TestCanonicalRoundTrip(t *testing.T) {
	inputs := []string{
		"0 935696 01 6",
		"0-935696-01-6",
		"0935696016",
	}
	var first string
	for _, in := range inputs {
		c, err := Canonical(in)
		if err != nil {
			t.Fatalf("Canonical(%q) error: %v", in, err)
		}
		again, err := Canonical(c)
		if err != nil {
			t.Fatalf("Canonical(Canonical(%q)) error: %v", in, err)
		}
		if c != again {
			t.Errorf("not idempotent for %q: %q vs %q", in, c, again)
		}
		if first == "" {
			first = c
		} else if c != first {
			t.Errorf("forms diverge: %q vs %q", c, first)
		}
	}
}

func TestFindInText(t *testing.T) {
	text := `First published 1978.
ISBN 0-935696-01-6
Printed in the United States of America.`
	i10, i13 := Find(text)
	if i10 != "0935696016" {
		t.Errorf("isbn10 = %q", i10)
	}
	if len(i13) != 13 {
		t.Errorf("isbn13 = %q", i13)
	}
}

func TestFindNothing(t *testing.T) {
	i10, i13 := Find("no identifiers in this text, just 12345 numbers")
	if i10 != "" || i13 != "" {
		t.Errorf("unexpected find: %q %q", i10, i13)
	}
}
