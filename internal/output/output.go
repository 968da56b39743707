package output

import (
	"fmt"
	"strings"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formats lists the accepted --output-format values.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatMarkdown}

// Section is one titled table of a Document.
type Section struct {
	Title  string
	Header []string
	Rows   [][]string
	Footer string
}

// Document pairs the machine-readable value with its human-readable sections.
// JSON and YAML render Data; table and markdown render Sections.
type Document struct {
	Data     any
	Sections []Section
}

// Formatter renders a Document.
type Formatter interface {
	Format(doc Document) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// Render formats doc in one call.
func Render(format Format, doc Document) (string, error) {
	return NewFormatter(format).Format(doc)
}
