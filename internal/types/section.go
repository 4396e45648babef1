package types

// UncategorizedCategory is assigned when AI categorization is exhausted for a
// section. It never fails the run.
const UncategorizedCategory = "Uncategorized"

// TableLocator identifies an extracted table within a document.
type TableLocator struct {
	ID      string `json:"id"`
	Page    int    `json:"page"`
	Ordinal int    `json:"ordinal"`
}

// Table is a detected table with its header row and cell matrix.
type Table struct {
	Locator TableLocator `json:"locator"`
	Headers []string     `json:"headers"`
	Rows    [][]string   `json:"rows"`
}

// Rectangular reports whether every row has the same width as the header.
// The confidence scorer uses this as its table-shape heuristic.
func (t Table) Rectangular() bool {
	if len(t.Headers) == 0 {
		return false
	}
	for _, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return false
		}
	}
	return true
}

// Section is one extraction unit. (Page, Ordinal) uniquely identifies a
// section within a document; Page is 1-based, Ordinal is 0-based within the
// page.
type Section struct {
	Page    int `json:"page"`
	Ordinal int `json:"ordinal"`

	RawText string `json:"raw_text"`
	Text    string `json:"text"` // post-enhancement

	Category           string  `json:"category"`
	CategoryConfidence float64 `json:"category_confidence"` // [0,1]

	HasTable bool    `json:"has_table"`
	Tables   []Table `json:"tables,omitempty"`

	// OCR provenance for the source page.
	OCRUsed        bool    `json:"ocr_used,omitempty"`
	OCRConfidence  float64 `json:"ocr_confidence,omitempty"` // [0,1]
	OCRUnavailable bool    `json:"ocr_unavailable,omitempty"`
}

// Less orders sections by (page, ordinal).
func (s Section) Less(other Section) bool {
	if s.Page != other.Page {
		return s.Page < other.Page
	}
	return s.Ordinal < other.Ordinal
}
