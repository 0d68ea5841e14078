package controller

import (
	"bytes"
	_ "embed"
)

//go:embed widgets.yaml
var defaultWidgets []byte

// DefaultProperties returns the built-in page layout used when no widgets
// file is configured.
func DefaultProperties() ([]Properties, error) {
	return ParseProperties(bytes.NewReader(defaultWidgets))
}
