package output

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableFormatter renders sections as rounded ASCII tables.
type TableFormatter struct{}

// Format renders each section as a table, separated by blank lines.
func (f *TableFormatter) Format(doc Document) (string, error) {
	rendered := make([]string, 0, len(doc.Sections))
	for _, section := range doc.Sections {
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.Style().Format.Footer = text.FormatDefault
		if section.Title != "" {
			t.SetTitle(section.Title)
		}
		if len(section.Header) > 0 {
			t.AppendHeader(toRow(section.Header))
		}
		for _, row := range section.Rows {
			t.AppendRow(toRow(row))
		}
		if section.Footer != "" {
			footer := make([]string, max(len(section.Header), 1))
			footer[len(footer)-1] = section.Footer
			t.AppendFooter(toRow(footer))
		}
		rendered = append(rendered, t.Render())
	}
	return strings.Join(rendered, "\n\n"), nil
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
