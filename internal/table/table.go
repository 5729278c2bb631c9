// Package table renders simple ASCII tables with alignment control.
// Cell contents may contain ANSI color codes; widths are computed on the
// stripped text so colored cells do not break alignment.
package table

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Alignment controls how cell content is padded within its column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripAnsi(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// Table accumulates rows and renders them to a writer.
type Table struct {
	writer      io.Writer
	header      []string
	rows        [][]string
	colAlign    []Alignment
	headerAlign []Alignment
}

// NewTable creates a table that renders to the given writer.
func NewTable(writer io.Writer) *Table {
	return &Table{writer: writer}
}

// WithHeader sets the header row.
func (t *Table) WithHeader(header []string) *Table {
	t.header = header
	return t
}

// WithColumnAlignment sets per-column alignment for body rows.
func (t *Table) WithColumnAlignment(align []Alignment) *Table {
	t.colAlign = align
	return t
}

// WithHeaderAlignment sets per-column alignment for the header row.
func (t *Table) WithHeaderAlignment(align []Alignment) *Table {
	t.headerAlign = align
	return t
}

// Append adds one body row.
func (t *Table) Append(row []string) *Table {
	t.rows = append(t.rows, row)
	return t
}

// WithRows replaces all body rows.
func (t *Table) WithRows(rows [][]string) *Table {
	t.rows = rows
	return t
}

func (t *Table) columnCount() int {
	count := len(t.header)
	for _, row := range t.rows {
		if len(row) > count {
			count = len(row)
		}
	}
	return count
}

func (t *Table) columnWidths() []int {
	widths := make([]int, t.columnCount())
	measure := func(row []string) {
		for i, cell := range row {
			if w := len(stripAnsi(cell)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.header)
	for _, row := range t.rows {
		measure(row)
	}
	return widths
}

func alignCell(content string, width int, align Alignment) string {
	pad := width - len(stripAnsi(content))
	if pad < 0 {
		pad = 0
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", pad) + content
	case AlignCenter:
		left := pad / 2
		return strings.Repeat(" ", left) + content + strings.Repeat(" ", pad-left)
	default:
		return content + strings.Repeat(" ", pad)
	}
}

func (t *Table) alignmentFor(aligns []Alignment, col int) Alignment {
	if col < len(aligns) {
		return aligns[col]
	}
	return AlignLeft
}

func (t *Table) writeBorder(widths []int) {
	var sb strings.Builder
	sb.WriteString("+")
	for _, w := range widths {
		sb.WriteString(strings.Repeat("-", w+2))
		sb.WriteString("+")
	}
	fmt.Fprintln(t.writer, sb.String())
}

func (t *Table) writeRow(row []string, widths []int, aligns []Alignment) {
	var sb strings.Builder
	sb.WriteString("|")
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		sb.WriteString(" ")
		sb.WriteString(alignCell(cell, w, t.alignmentFor(aligns, i)))
		sb.WriteString(" |")
	}
	fmt.Fprintln(t.writer, sb.String())
}

// Render writes the table.
func (t *Table) Render() {
	widths := t.columnWidths()
	t.writeBorder(widths)
	if len(t.header) > 0 {
		t.writeRow(t.header, widths, t.headerAlign)
		t.writeBorder(widths)
	}
	for _, row := range t.rows {
		t.writeRow(row, widths, t.colAlign)
	}
	t.writeBorder(widths)
}
