package pdf

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PadsterH2012/extractor/internal/types"
)

// columnGap splits a table line into cells: two or more spaces, a tab, or a
// pipe separator.
var columnGap = regexp.MustCompile(`\s{2,}|\t+|\s*\|\s*`)

// minTableRows is the minimum number of body rows under a header for a run
// of lines to count as a table.
const minTableRows = 2

// DetectTables finds column-aligned regions in page text. A table is a run
// of three or more consecutive non-empty lines that split into the same
// number (>= 2) of cells; the first line of the run becomes the header row.
func DetectTables(text string, pageNum int) []types.Table {
	lines := strings.Split(text, "\n")

	var tables []types.Table
	var run [][]string

	flush := func() {
		if len(run) >= minTableRows+1 {
			ordinal := len(tables)
			t := types.Table{
				Locator: types.TableLocator{
					ID:      fmt.Sprintf("p%d_t%d", pageNum, ordinal),
					Page:    pageNum,
					Ordinal: ordinal,
				},
				Headers: run[0],
			}
			for _, row := range run[1:] {
				t.Rows = append(t.Rows, row)
			}
			tables = append(tables, t)
		}
		run = nil
	}

	for _, line := range lines {
		cells := splitCells(line)
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(run) > 0 && len(cells) != len(run[0]) {
			flush()
		}
		run = append(run, cells)
	}
	flush()

	return tables
}

func splitCells(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	parts := columnGap.Split(trimmed, -1)
	var cells []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}
