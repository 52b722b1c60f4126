package extractor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is the extracted content of one PDF page.
type Page struct {
	Number    int
	TableRows [][]string // cell values per row; empty when no table was detected
	Lines     []string   // positional text lines, top to bottom
	RawChars  string     // diagnostic dump, only set when the page has nothing else
}

// Render concatenates pages into the annotated blob consumed by the line filter:
//
//	--- PAGE 1 TABLE 1 ---
//	ROW_0: 01/15/2024	STARBUCKS	-$5.75	$1,994.25
//	--- END TABLE 1 ---
//
// A page with a table is rendered from its table rows only. Otherwise its
// positional text is used, and failing that its raw characters.
func Render(pages []Page) string {
	var b strings.Builder
	for _, p := range pages {
		switch {
		case len(p.TableRows) > 0:
			fmt.Fprintf(&b, "--- PAGE %d TABLE 1 ---\n", p.Number)
			for i, row := range p.TableRows {
				fmt.Fprintf(&b, "ROW_%d: %s\n", i, strings.Join(row, "\t"))
			}
			b.WriteString("--- END TABLE 1 ---\n")
		case len(p.Lines) > 0:
			fmt.Fprintf(&b, "--- PAGE %d TEXT ---\n", p.Number)
			for _, line := range p.Lines {
				b.WriteString(line)
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "--- END PAGE %d TEXT ---\n", p.Number)
		case p.RawChars != "":
			fmt.Fprintf(&b, "--- PAGE %d CHARS ---\n%s\n", p.Number, p.RawChars)
		}
	}
	return b.String()
}

// SplitCells breaks one row of text runs into cells wherever the horizontal
// gap between runs exceeds gap points.
func SplitCells(row pdf.TextHorizontal, gap float64) []string {
	items := make([]pdf.Text, 0, len(row))
	for _, t := range row {
		if strings.TrimSpace(t.S) != "" {
			items = append(items, t)
		}
	}
	if len(items) == 0 {
		return nil
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].X < items[j].X })

	var cells []string
	var cur strings.Builder
	end := items[0].X
	for i, t := range items {
		space := t.X - end
		if i > 0 && space > gap {
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		} else if i > 0 && space > 1 {
			cur.WriteByte(' ')
		}
		cur.WriteString(t.S)
		end = math.Max(end, t.X+t.W)
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	return cells
}

// IsTable reports whether rows look tabular: at least two rows with two or more cells.
func IsTable(rows [][]string) bool {
	multi := 0
	for _, r := range rows {
		if len(r) >= 2 {
			multi++
		}
	}
	return multi >= 2
}

// GroupLines rebuilds text lines from positioned text runs. Runs are grouped
// by rounded Y (PDF Y grows upwards, so lines are emitted by descending Y)
// and ordered by X within a line.
func GroupLines(texts []pdf.Text) []string {
	rows := make(map[int][]pdf.Text)
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		y := int(math.Round(t.Y))
		rows[y] = append(rows[y], t)
	}

	ys := make([]int, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	lines := make([]string, 0, len(ys))
	for _, y := range ys {
		items := rows[y]
		sort.SliceStable(items, func(i, j int) bool { return items[i].X < items[j].X })

		var b strings.Builder
		end := items[0].X
		for i, t := range items {
			if i > 0 && t.X-end > 1 {
				b.WriteByte(' ')
			}
			b.WriteString(t.S)
			end = math.Max(end, t.X+t.W)
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
