package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Column defines a table column. Right-aligned columns suit numbers.
type Column struct {
	Title string
	Width int
	Right bool
}

// Row is a slice of cell values.
type Row []string

// Table renders a lipgloss-styled table.
type Table struct {
	Columns []Column
	Rows    []Row
	SelIdx  int // selected row index (-1 = none)
}

// NewTable creates a new table.
func NewTable(cols []Column) *Table {
	return &Table{Columns: cols, SelIdx: -1}
}

// AddRow appends a row.
func (t *Table) AddRow(r Row) {
	t.Rows = append(t.Rows, r)
}

var (
	tableHeader = lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	tableCell   = lipgloss.NewStyle().Foreground(ColorValue)
	tableRule   = lipgloss.NewStyle().Foreground(ColorMeta)
)

// fit pads or truncates s to exactly width visible cells.
func fit(s string, width int, right bool) string {
	w := lipgloss.Width(s)
	if w > width {
		return ansi.Truncate(s, width, "")
	}
	fill := strings.Repeat(" ", width-w)
	if right {
		return fill + s
	}
	return s + fill
}

// Render returns the full table as a string. Cells may already be styled;
// widths are measured on visible characters.
func (t *Table) Render() string {
	var sb strings.Builder
	line := func(cells []string) {
		sb.WriteString(strings.Join(cells, " "))
		sb.WriteByte('\n')
	}

	head := make([]string, len(t.Columns))
	rule := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		head[i] = tableHeader.Render(fit(col.Title, col.Width, col.Right))
		rule[i] = tableRule.Render(strings.Repeat("-", col.Width))
	}
	line(head)
	line(rule)

	for i, row := range t.Rows {
		style := tableCell
		if i == t.SelIdx {
			style = StyleSelected
		}
		cells := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			var v string
			if j < len(row) {
				v = row[j]
			}
			cells[j] = style.Render(fit(v, col.Width, col.Right))
		}
		line(cells)
	}
	return sb.String()
}

// KeyValueBlock renders key-value pairs in a bordered box, keys padded to
// the longest one.
func KeyValueBlock(title string, pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0])+1)
	}

	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title) + "\n")
	}
	for _, p := range pairs {
		sb.WriteString("  " + StyleMeta.Render(fit(p[0]+":", width, false)) + " " + StyleValue.Render(p[1]) + "\n")
	}
	return StyleBorder.Render(sb.String())
}
