package output

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter renders Document.Data as YAML with two-space indentation.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(doc Document) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc.Data); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
