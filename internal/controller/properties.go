package controller

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/geom"
	"github.com/eyedraw/eyedraw/internal/syncer"
)

// Properties configures one drawing widget on a page.
type Properties struct {
	DrawingName string `yaml:"drawingName" json:"drawingName"`
	IDSuffix    string `yaml:"idSuffix" json:"idSuffix"`
	Eye         string `yaml:"eye" json:"eye"`
	IsEditable  bool   `yaml:"isEditable" json:"isEditable"`

	Scale   float64 `yaml:"scale" json:"scale"`
	OffsetX float64 `yaml:"offsetX" json:"offsetX"`
	OffsetY float64 `yaml:"offsetY" json:"offsetY"`

	OnReadyCommands         []engine.Command `yaml:"onReadyCommands" json:"onReadyCommands"`
	OnDoodlesLoadedCommands []engine.Command `yaml:"onDoodlesLoadedCommands" json:"onDoodlesLoadedCommands"`
	SyncArray               syncer.Table     `yaml:"syncArray" json:"syncArray"`

	AutoReport         bool `yaml:"autoReport" json:"autoReport"`
	AutoReportEditable bool `yaml:"autoReportEditable" json:"autoReportEditable"`

	// Input is previously saved drawing JSON. When present it is loaded
	// instead of running OnReadyCommands.
	Input string `yaml:"input" json:"input,omitempty"`
}

// View returns the initial pan and zoom. Scale multiplies the default zoom.
func (p Properties) View() geom.View {
	v := geom.DefaultView()
	if p.Scale > 0 {
		v.Scale *= p.Scale
	}
	v.OffsetX += p.OffsetX
	v.OffsetY += p.OffsetY
	return v
}

// LoadProperties reads the widgets of a page from a YAML or JSON file.
func LoadProperties(path string) ([]Properties, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseProperties(f)
}

func ParseProperties(r io.Reader) ([]Properties, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var props []Properties
	if err := yaml.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("parse widget properties: %w", err)
	}
	for i, p := range props {
		if p.DrawingName == "" {
			return nil, fmt.Errorf("widget %d: drawingName is required", i)
		}
	}
	return props, nil
}
