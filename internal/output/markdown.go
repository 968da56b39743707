package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders sections as markdown tables.
type MarkdownFormatter struct{}

// Format renders each section under a level-two heading.
func (f *MarkdownFormatter) Format(doc Document) (string, error) {
	var sb strings.Builder
	for i, section := range doc.Sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		if section.Title != "" {
			sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(section.Title)))
		}
		if len(section.Header) > 0 {
			sb.WriteString(markdownRow(section.Header))
			sep := make([]string, len(section.Header))
			for j, h := range section.Header {
				sep[j] = strings.Repeat("-", max(len(h), 3))
			}
			sb.WriteString("|" + strings.Join(sep, "|") + "|\n")
		}
		for _, row := range section.Rows {
			sb.WriteString(markdownRow(row))
		}
		if section.Footer != "" {
			sb.WriteString(fmt.Sprintf("\n**%s**\n", escapeMarkdownCell(section.Footer)))
		}
	}
	return sb.String(), nil
}

func markdownRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = escapeMarkdownCell(c)
	}
	return "| " + strings.Join(escaped, " | ") + " |\n"
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
