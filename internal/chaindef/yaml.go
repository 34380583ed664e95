package chaindef

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML chain definition. YAML keeps the int/float
// distinction of the source: 1 is an integer and 1.0 a real.
func ParseYAML(src []byte, filename string) (*Definition, error) {
	var tree map[string]any
	decoder := yaml.NewDecoder(bytes.NewReader(src))
	if err := decoder.Decode(&tree); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: err.Error(), Pos: Pos{Filename: filename}}
	}
	return FromTree(tree)
}

// FromTree decodes a definition already parsed into generic values, such as
// a chain embedded in a larger YAML document.
func FromTree(tree map[string]any) (*Definition, error) {
	n, err := normalize(tree)
	if err != nil {
		return nil, err
	}
	m, _ := n.(map[string]any)
	return decode(m)
}
