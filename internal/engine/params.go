package engine

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/eyedraw/eyedraw/internal/geom"
)

// Kind says how a parameter relates to the rest of a doodle's state.
type Kind int

const (
	// KindSimple is raw geometric state (origin, apex, scale, rotation...).
	KindSimple Kind = iota
	// KindDerived is computed from simple parameters through the dependency function.
	KindDerived
	// KindOther is stored state that is neither geometric nor derived.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindDerived:
		return "derived"
	default:
		return "other"
	}
}

// ValueType is the storage type of a parameter value.
type ValueType int

const (
	TypeFloat ValueType = iota
	TypeInt
	TypeBool
	TypeString
)

// ParamSpec declares one parameter of a doodle.
type ParamSpec struct {
	Name    string
	Kind    Kind
	Type    ValueType
	Range   *geom.Range
	List    []string
	Animate bool
	// Circular wraps the value into Range instead of clamping (rotation).
	Circular bool
}

// Numeric reports whether the parameter holds a number.
func (s *ParamSpec) Numeric() bool {
	return s.Type == TypeFloat || s.Type == TypeInt
}

// Parse converts a form/string value into a typed, validated value.
func (s *ParamSpec) Parse(raw string) (any, error) {
	switch s.Type {
	case TypeFloat, TypeInt:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, &ValidationError{Parameter: s.Name, Value: raw, Reason: "not a number", Err: err}
		}
		return s.number(f, raw)
	case TypeBool:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "1":
			return true, nil
		case "false", "0", "":
			return false, nil
		}
		return nil, &ValidationError{Parameter: s.Name, Value: raw, Reason: "not a boolean"}
	default:
		return s.checkList(raw)
	}
}

// Coerce validates an already-typed value. Numbers arriving from decoders
// (ints, float32, numeric strings) are normalised to float64 and clamped.
func (s *ParamSpec) Coerce(v any) (any, error) {
	switch s.Type {
	case TypeFloat, TypeInt:
		f, ok := toFloat(v)
		if !ok {
			if str, isStr := v.(string); isStr {
				return s.Parse(str)
			}
			return nil, &ValidationError{Parameter: s.Name, Value: v, Reason: "not a number"}
		}
		return s.number(f, v)
	case TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return s.Parse(b)
		}
		return nil, &ValidationError{Parameter: s.Name, Value: v, Reason: "not a boolean"}
	default:
		switch str := v.(type) {
		case string:
			return s.checkList(str)
		case fmt.Stringer:
			return s.checkList(str.String())
		}
		if f, ok := toFloat(v); ok {
			return s.checkList(strconv.FormatFloat(f, 'f', -1, 64))
		}
		return nil, &ValidationError{Parameter: s.Name, Value: v, Reason: "not a string"}
	}
}

// number clamps f. NaN and infinities cannot be clamped and are rejected.
func (s *ParamSpec) number(f float64, raw any) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &ValidationError{Parameter: s.Name, Value: raw, Reason: "not a finite number"}
	}
	return s.clampNumber(f), nil
}

func (s *ParamSpec) clampNumber(f float64) float64 {
	if s.Type == TypeInt {
		f = math.Round(f)
	}
	if s.Range == nil {
		return f
	}
	if s.Circular {
		span := s.Range.Max - s.Range.Min
		if span <= 0 {
			return s.Range.Min
		}
		f = math.Mod(f-s.Range.Min, span)
		if f < 0 {
			f += span
		}
		return f + s.Range.Min
	}
	return s.Range.Clamp(f)
}

func (s *ParamSpec) checkList(v string) (any, error) {
	if len(s.List) == 0 || slices.Contains(s.List, v) {
		return v, nil
	}
	return nil, &ValidationError{
		Parameter: s.Name,
		Value:     v,
		Reason:    fmt.Sprintf("must be one of %q", s.List),
	}
}

// Params is an ordered parameter registry.
type Params struct {
	specs map[string]*ParamSpec
	order []string
}

// NewParams returns an empty registry.
func NewParams() *Params {
	return &Params{specs: make(map[string]*ParamSpec)}
}

// NewBaseParams declares the simple parameters every doodle carries.
func NewBaseParams() *Params {
	p := NewParams()
	for _, name := range []string{"originX", "originY"} {
		p.Define(ParamSpec{Name: name, Kind: KindSimple, Type: TypeFloat, Range: rangePtr(-1000, 1000)})
	}
	p.Define(ParamSpec{Name: "radius", Kind: KindSimple, Type: TypeFloat, Range: rangePtr(100, 450)})
	p.Define(ParamSpec{Name: "apexX", Kind: KindSimple, Type: TypeFloat, Range: rangePtr(-500, 500)})
	p.Define(ParamSpec{Name: "apexY", Kind: KindSimple, Type: TypeFloat, Range: rangePtr(-500, 500)})
	p.Define(ParamSpec{Name: "scaleX", Kind: KindSimple, Type: TypeFloat, Range: rangePtr(0.5, 4)})
	p.Define(ParamSpec{Name: "scaleY", Kind: KindSimple, Type: TypeFloat, Range: rangePtr(0.5, 4)})
	p.Define(ParamSpec{Name: "arc", Kind: KindSimple, Type: TypeFloat, Range: rangePtr(math.Pi/12, 2*math.Pi)})
	p.Define(ParamSpec{Name: "rotation", Kind: KindSimple, Type: TypeFloat, Range: rangePtr(0, 2*math.Pi), Circular: true})
	p.Define(ParamSpec{Name: "width", Kind: KindSimple, Type: TypeFloat, Range: rangePtr(50, 500)})
	p.Define(ParamSpec{Name: "height", Kind: KindSimple, Type: TypeFloat, Range: rangePtr(50, 500)})
	return p
}

func rangePtr(min, max float64) *geom.Range {
	r := geom.NewRange(min, max)
	return &r
}

// Define adds or replaces a spec, keeping the original position when replacing.
func (p *Params) Define(spec ParamSpec) {
	if _, ok := p.specs[spec.Name]; !ok {
		p.order = append(p.order, spec.Name)
	}
	s := spec
	if spec.List != nil {
		s.List = slices.Clone(spec.List)
	}
	p.specs[spec.Name] = &s
}

// Spec looks up a parameter.
func (p *Params) Spec(name string) (*ParamSpec, bool) {
	s, ok := p.specs[name]
	return s, ok
}

// SetRange narrows or widens a numeric parameter.
func (p *Params) SetRange(name string, min, max float64) {
	if s, ok := p.specs[name]; ok {
		s.Range = rangePtr(min, max)
	}
}

// SetList replaces an enumeration.
func (p *Params) SetList(name string, list []string) {
	if s, ok := p.specs[name]; ok {
		s.List = slices.Clone(list)
	}
}

// Names returns parameter names in declaration order.
func (p *Params) Names() []string {
	return slices.Clone(p.order)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func valuesEqual(a, b any) bool {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return fa == fb
	}
	return a == b
}

// FormatValue renders a parameter value the way form fields display it.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
