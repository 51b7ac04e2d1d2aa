package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column with title and width.
type Column struct {
	Title string
	Width int
}

// NewTable creates a Bubbles table with hop's default styling.
func NewTable(columns []Column, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(string(ColorMuted))).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color(string(ColorPrimary)))
	s.Cell = s.Cell.
		Foreground(lipgloss.Color(string(ColorPrimary)))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(string(ColorPrimary))).
		Bold(false)

	t.SetStyles(s)
	return t
}

// HostRow is one line of the inventory listing.
type HostRow struct {
	Name    string
	ID      string
	State   string
	Region  string
	Address string
	Route   string // profile name, or "direct"
	Probe   string // latency or failure reason, empty when not probed
}

// RenderHostTable renders the inventory as a formatted table. Probe column
// appears only when at least one row carries a probe result.
func RenderHostTable(rows []HostRow) string {
	if len(rows) == 0 {
		return "No hosts in inventory"
	}

	withProbe := false
	for _, r := range rows {
		if r.Probe != "" {
			withProbe = true
			break
		}
	}

	columns := []Column{
		{Title: "NAME", Width: widthFor(rows, func(r HostRow) string { return r.Name }, 4)},
		{Title: "ID", Width: widthFor(rows, func(r HostRow) string { return r.ID }, 2)},
		{Title: "STATE", Width: widthFor(rows, func(r HostRow) string { return r.State }, 5)},
		{Title: "REGION", Width: widthFor(rows, func(r HostRow) string { return r.Region }, 6)},
		{Title: "ADDRESS", Width: widthFor(rows, func(r HostRow) string { return r.Address }, 7)},
		{Title: "ROUTE", Width: widthFor(rows, func(r HostRow) string { return r.Route }, 5)},
	}
	if withProbe {
		columns = append(columns, Column{Title: "PROBE", Width: widthFor(rows, func(r HostRow) string { return r.Probe }, 5)})
	}

	tableRows := make([]table.Row, len(rows))
	for i, r := range rows {
		row := table.Row{r.Name, r.ID, r.State, r.Region, r.Address, r.Route}
		if withProbe {
			row = append(row, r.Probe)
		}
		tableRows[i] = row
	}

	t := NewTable(columns, tableRows)
	return strings.TrimRight(t.View(), "\n")
}

func widthFor(rows []HostRow, field func(HostRow) string, min int) int {
	width := min
	for _, r := range rows {
		if l := len([]rune(field(r))); l > width {
			width = l
		}
	}
	return width
}
