// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = cellStyle.Foreground(lipgloss.Color("#6B7280"))
)

// Table is a bordered table of strings.
type Table struct {
	headers []string
	rows    [][]string
	muted   map[int]bool
}

// NewTable returns a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, muted: make(map[int]bool)}
}

// Row appends a row.
func (t *Table) Row(cells ...string) *Table {
	t.rows = append(t.rows, cells)
	return t
}

// MutedRow appends a row rendered in a dimmed color.
func (t *Table) MutedRow(cells ...string) *Table {
	t.muted[len(t.rows)] = true
	return t.Row(cells...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// String renders the table.
func (t *Table) String() string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#4B5563"))).
		Headers(t.headers...).
		Rows(t.rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case t.muted[row]:
				return mutedStyle
			default:
				return cellStyle
			}
		}).
		String()
}
