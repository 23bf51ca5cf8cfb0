package display

import (
	"strings"
	"unicode/utf8"
)

// RowStyle selects how a table row is drawn.
type RowStyle int

const (
	RowNormal RowStyle = iota
	RowMuted           // e.g. prayers that already passed
	RowHighlight       // e.g. the next prayer
)

// Table renders an aligned text table. Column widths are measured in runes
// so labels like "Öğle" line up.
type Table struct {
	headers []string
	rows    [][]string
	styles  []RowStyle
}

// NewTable creates a table with the given column headers.
func NewTable(headers []string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row of values.
func (t *Table) AddRow(values []string) {
	t.AddStyledRow(values, RowNormal)
}

// AddStyledRow appends a row drawn with style.
func (t *Table) AddStyledRow(values []string, style RowStyle) {
	t.rows = append(t.rows, values)
	t.styles = append(t.styles, style)
}

// Render produces the table with a two-space indent.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cell))
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("  " + Bold(formatRow(t.headers, widths)) + "\n")

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("─", w)
	}
	sb.WriteString(Dim("  "+strings.Join(sep, "  ")) + "\n")

	for i, row := range t.rows {
		line := formatRow(row, widths)
		switch t.styles[i] {
		case RowMuted:
			line = Dim(line)
		case RowHighlight:
			line = Accent(line)
		}
		sb.WriteString("  " + line + "\n")
	}
	return sb.String()
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = cell + strings.Repeat(" ", w-utf8.RuneCountInString(cell))
	}
	return strings.Join(parts, "  ")
}
