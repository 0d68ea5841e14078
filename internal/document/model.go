package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/eyedraw/eyedraw/internal/geom"
)

const (
	keyClass     = "subclass"
	keySquiggles = "squiggleArray"
	keyPoints    = "pointsArray"
)

// Drawing is the persisted state of one canvas.
type Drawing struct {
	ID        string   `json:"id,omitempty" msgpack:"id,omitempty"`
	Name      string   `json:"drawingName" msgpack:"drawingName"`
	IDSuffix  string   `json:"idSuffix,omitempty" msgpack:"idSuffix,omitempty"`
	Eye       string   `json:"eye,omitempty" msgpack:"eye,omitempty"`
	Version   int      `json:"version" msgpack:"version"`
	UpdatedAt string   `json:"updatedAt,omitempty" msgpack:"updatedAt,omitempty"`
	Doodles   []Doodle `json:"doodles" msgpack:"doodles"`
	Tags      []Tag    `json:"tags,omitempty" msgpack:"tags,omitempty"`
}

// Doodle is a saved doodle: its class, saved parameters and squiggles. On the
// wire the parameters sit flat beside the class name.
type Doodle struct {
	Class     string
	Params    map[string]any
	Squiggles [][]geom.Point
}

// Tag is a coded annotation attached to a drawing.
type Tag struct {
	ID   string `json:"id" msgpack:"id"`
	Text string `json:"text" msgpack:"text"`
	Code string `json:"code,omitempty" msgpack:"code,omitempty"`
}

// NewEmptyDrawing creates an empty drawing document.
func NewEmptyDrawing(id, name, idSuffix, eye string) *Drawing {
	return &Drawing{
		ID:       id,
		Name:     name,
		IDSuffix: idSuffix,
		Eye:      eye,
		Version:  1,
		Doodles:  []Doodle{},
	}
}

func (d Doodle) flatten() map[string]any {
	out := maps.Clone(d.Params)
	if out == nil {
		out = make(map[string]any)
	}
	out[keyClass] = d.Class
	if len(d.Squiggles) > 0 {
		squiggles := make([]map[string]any, 0, len(d.Squiggles))
		for _, pts := range d.Squiggles {
			squiggles = append(squiggles, map[string]any{keyPoints: pts})
		}
		out[keySquiggles] = squiggles
	}
	return out
}

func (d *Doodle) unflatten(m map[string]any) error {
	class, ok := m[keyClass].(string)
	if !ok || class == "" {
		return fmt.Errorf("doodle record without %s", keyClass)
	}
	d.Class = class
	d.Params = make(map[string]any, len(m))
	d.Squiggles = nil
	for k, v := range m {
		switch k {
		case keyClass:
		case keySquiggles:
			squiggles, err := squigglesFrom(v)
			if err != nil {
				return fmt.Errorf("%s %s: %w", class, keySquiggles, err)
			}
			d.Squiggles = squiggles
		default:
			d.Params[k] = v
		}
	}
	return nil
}

func squigglesFrom(v any) ([][]geom.Point, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	out := make([][]geom.Point, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected a squiggle object, got %T", item)
		}
		raw, _ := m[keyPoints].([]any)
		pts := make([]geom.Point, 0, len(raw))
		for _, rp := range raw {
			pm, ok := rp.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected a point, got %T", rp)
			}
			pts = append(pts, geom.Pt(number(pm["x"]), number(pm["y"])))
		}
		out = append(out, pts)
	}
	return out, nil
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}

func (d Doodle) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.flatten())
}

func (d *Doodle) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	return d.unflatten(m)
}

var (
	_ msgpack.CustomEncoder = Doodle{}
	_ msgpack.CustomDecoder = (*Doodle)(nil)
)

func (d Doodle) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(d.flatten())
}

func (d *Doodle) DecodeMsgpack(dec *msgpack.Decoder) error {
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	return d.unflatten(m)
}

// EncodeJSON serialises a drawing document.
func EncodeJSON(doc *Drawing) ([]byte, error) {
	return json.Marshal(doc)
}

// DecodeJSON parses a drawing document. A bare array of doodles, the format
// older form fields hold, is accepted too.
func DecodeJSON(data []byte) (*Drawing, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &Drawing{Version: 1, Doodles: []Doodle{}}, nil
	}
	if trimmed[0] == '[' {
		var doodles []Doodle
		if err := json.Unmarshal(trimmed, &doodles); err != nil {
			return nil, fmt.Errorf("decode doodle list: %w", err)
		}
		return &Drawing{Version: 1, Doodles: doodles}, nil
	}
	var doc Drawing
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode drawing: %w", err)
	}
	return &doc, nil
}

// EncodeMsgpack serialises a drawing document in the compact binary format.
func EncodeMsgpack(doc *Drawing) ([]byte, error) {
	return msgpack.Marshal(doc)
}

// DecodeMsgpack parses a document written by EncodeMsgpack.
func DecodeMsgpack(data []byte) (*Drawing, error) {
	var doc Drawing
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode drawing: %w", err)
	}
	return &doc, nil
}
