package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/eyedraw/eyedraw/internal/document"
	"github.com/eyedraw/eyedraw/internal/geom"
)

// maxDependencyDepth bounds recursive dependency resolution. A well formed
// dependency function reaches a fixed point long before this.
const maxDependencyDepth = 32

// Code is an external clinical code attached to a doodle's report.
type Code struct {
	System    string `json:"system"`
	Value     int64  `json:"value"`
	Hierarchy int    `json:"hierarchy"`
}

// SNOMED builds a SNOMED CT code.
func SNOMED(value int64, hierarchy int) Code {
	return Code{System: "SNOMED", Value: value, Hierarchy: hierarchy}
}

// Shape is implemented by every doodle class. Concrete classes embed Doodle,
// which supplies defaults for everything but the class-specific behaviour.
type Shape interface {
	ClassName() string
	Base() *Doodle
	// Dependents maps a changed parameter to the other parameters it drives.
	Dependents(parameter string, value any) map[string]any
	Description() string
	Codes() []Code
}

// Defaulter sets the parameter values of a freshly added doodle.
type Defaulter interface {
	SetParameterDefaults()
}

// Constrainer recomputes handle ranges that depend on other doodles.
type Constrainer interface {
	SetHandleConstraints()
}

// Listener doodles subscribe to their drawing's bus when added.
type Listener interface {
	Events() []Event
	OnNotification(n Notification)
}

// HandleMover is told after one of its handles was dragged.
type HandleMover interface {
	HandleMoved(index int)
}

// Refresher recomputes cached geometry (handle locations) on repaint.
type Refresher interface {
	Refresh()
}

// Animator receives changes to animated parameters. The value has already been
// written when Animate is called; implementations only interpolate presentation.
type Animator interface {
	Animate(d *Doodle, parameter string, from, to any)
}

// Doodle is the state shared by every shape class.
type Doodle struct {
	ID      string
	Created time.Time

	class   string
	self    Shape
	drawing *Drawing
	params  *Params
	values  map[string]any

	Handles   []*Handle
	Ranges    map[int]geom.VectorRange
	Squiggles []*Squiggle

	SavedParameters   []string
	ControlParameters map[string]string
	// BehindClasses lists classes this doodle is kept behind when added.
	BehindClasses []string

	Locked    bool
	Selected  bool
	Deletable bool
	Moveable  bool
	Rotatable bool
	Scaleable bool
	Unique    bool
	Saveable  bool
	WillSync  bool

	silent int
	depth  int
}

// Setup initialises the base state. Shape constructors call it first.
func (d *Doodle) Setup(class string) {
	d.class = class
	d.params = NewBaseParams()
	d.values = map[string]any{
		"originX":  0.0,
		"originY":  0.0,
		"radius":   120.0,
		"apexX":    0.0,
		"apexY":    0.0,
		"scaleX":   1.0,
		"scaleY":   1.0,
		"arc":      math.Pi,
		"rotation": 0.0,
		"width":    100.0,
		"height":   100.0,
	}
	d.Ranges = make(map[int]geom.VectorRange)
	d.ControlParameters = make(map[string]string)
	d.Deletable = true
	d.Moveable = true
	d.Rotatable = true
	d.Scaleable = true
	d.Saveable = true
	d.WillSync = true
	d.Created = time.Now()
}

// Define declares a parameter and its initial value.
func (d *Doodle) Define(spec ParamSpec, initial any) {
	d.params.Define(spec)
	d.values[spec.Name] = initial
}

// SetDefault writes a value without validation or notification.
func (d *Doodle) SetDefault(name string, v any) {
	d.values[name] = v
}

func (d *Doodle) ClassName() string { return d.class }

func (d *Doodle) Base() *Doodle { return d }

func (d *Doodle) Dependents(string, any) map[string]any { return nil }

func (d *Doodle) Description() string { return "" }

func (d *Doodle) Codes() []Code { return nil }

// Self returns the concrete shape wrapping this doodle.
func (d *Doodle) Self() Shape {
	if d.self == nil {
		return d
	}
	return d.self
}

// Drawing returns the owning drawing, nil while detached.
func (d *Doodle) Drawing() *Drawing { return d.drawing }

func (d *Doodle) Params() *Params { return d.params }

// Value returns a parameter's current value.
func (d *Doodle) Value(name string) (any, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Values returns a copy of every parameter value.
func (d *Doodle) Values() map[string]any {
	return maps.Clone(d.values)
}

// Float returns a numeric parameter, zero if absent.
func (d *Doodle) Float(name string) float64 {
	f, _ := toFloat(d.values[name])
	return f
}

// Str returns a string parameter, empty if absent.
func (d *Doodle) Str(name string) string {
	s, _ := d.values[name].(string)
	return s
}

// Bool returns a boolean parameter.
func (d *Doodle) Bool(name string) bool {
	b, _ := d.values[name].(bool)
	return b
}

func (d *Doodle) logger() *slog.Logger {
	if d.drawing != nil {
		return d.drawing.logger
	}
	return slog.Default()
}

// Logger returns the owning drawing's logger, or the default while detached.
func (d *Doodle) Logger() *slog.Logger { return d.logger() }

func (d *Doodle) validation(err error) error {
	if ve, ok := err.(*ValidationError); ok {
		ve.Class = d.class
	}
	return err
}

func (d *Doodle) spec(name string, v any) (*ParamSpec, error) {
	spec, ok := d.params.Spec(name)
	if !ok {
		return nil, &ValidationError{Class: d.class, Parameter: name, Value: v, Reason: "not declared", Err: ErrUnknownParameter}
	}
	return spec, nil
}

// SetParameterFromString parses a form value, applies it and resolves
// dependent parameters. notify controls whether parameterChanged is published.
func (d *Doodle) SetParameterFromString(name, raw string, notify bool) error {
	spec, err := d.spec(name, raw)
	if err != nil {
		return err
	}
	v, err := spec.Parse(raw)
	if err != nil {
		return d.validation(err)
	}
	d.apply(spec, v, notify)
	return nil
}

// SetParameter applies a typed value and resolves dependent parameters.
func (d *Doodle) SetParameter(name string, v any) error {
	spec, err := d.spec(name, v)
	if err != nil {
		return err
	}
	cv, err := spec.Coerce(v)
	if err != nil {
		return d.validation(err)
	}
	d.apply(spec, cv, true)
	return nil
}

// SetSimpleParameter clamps and writes a numeric value and publishes the
// change. Dependent parameters are left alone; callers follow up with
// UpdateDependentParameters.
func (d *Doodle) SetSimpleParameter(name string, v float64) error {
	spec, err := d.spec(name, v)
	if err != nil {
		return err
	}
	if !spec.Numeric() {
		return &ValidationError{Class: d.class, Parameter: name, Value: v, Reason: "not numeric"}
	}
	nv, err := spec.number(v, v)
	if err != nil {
		return d.validation(err)
	}
	cv := nv.(float64)
	old := d.values[name]
	if valuesEqual(old, cv) {
		return nil
	}
	d.write(spec, old, cv, true)
	return nil
}

// UpdateDependentParameters re-runs the dependency function for name's current value.
func (d *Doodle) UpdateDependentParameters(name string) {
	v, ok := d.values[name]
	if !ok {
		return
	}
	d.applyDependents(name, v, true)
}

func (d *Doodle) apply(spec *ParamSpec, v any, notify bool) {
	old, had := d.values[spec.Name]
	changed := !had || !valuesEqual(old, v)
	if !changed && spec.Kind != KindDerived {
		return
	}
	if d.depth >= maxDependencyDepth {
		d.logger().Warn("dependency resolution too deep", "class", d.class, "parameter", spec.Name)
		return
	}
	d.depth++
	defer func() { d.depth-- }()

	if changed {
		d.write(spec, old, v, notify)
	}
	d.applyDependents(spec.Name, v, notify)
}

func (d *Doodle) write(spec *ParamSpec, old, v any, notify bool) {
	d.values[spec.Name] = v
	if spec.Animate && d.drawing != nil && d.drawing.animator != nil {
		d.drawing.animator.Animate(d, spec.Name, old, v)
	}
	if notify {
		d.publish(Notification{
			Event: EventParameterChanged,
			Change: &ParameterChange{
				Parameter: spec.Name,
				OldValue:  old,
				Value:     v,
			},
		})
	}
}

func (d *Doodle) applyDependents(name string, v any, notify bool) {
	deps := d.Self().Dependents(name, v)
	for _, dep := range slices.Sorted(maps.Keys(deps)) {
		spec, err := d.spec(dep, deps[dep])
		if err != nil {
			d.logger().Warn("dependent parameter skipped", "class", d.class, "parameter", dep, "error", err)
			continue
		}
		cv, err := spec.Coerce(deps[dep])
		if err != nil {
			d.logger().Warn("dependent parameter skipped", "class", d.class, "parameter", dep, "error", d.validation(err))
			continue
		}
		d.apply(spec, cv, notify)
	}
}

func (d *Doodle) publish(n Notification) {
	if d.drawing == nil || d.silent > 0 {
		return
	}
	n.Doodle = d.Self()
	d.drawing.Notify(n)
}

// Quietly runs fn with notifications from this doodle suppressed.
func (d *Doodle) Quietly(fn func()) {
	d.silent++
	defer func() { d.silent-- }()
	fn()
}

// LocalTransform maps local doodle space to drawing space.
func (d *Doodle) LocalTransform() geom.Matrix2D {
	return geom.FromPlacement(d.Float("originX"), d.Float("originY"), d.Float("rotation"), d.Float("scaleX"), d.Float("scaleY"))
}

// CanvasTransform maps local doodle space to canvas pixels.
func (d *Doodle) CanvasTransform() geom.Matrix2D {
	view := geom.DefaultView()
	if d.drawing != nil {
		view = d.drawing.view
	}
	return view.Matrix().Multiply(d.LocalTransform())
}

// ToLocal converts a canvas point into local doodle space.
func (d *Doodle) ToLocal(p geom.Point) geom.Point {
	return d.CanvasTransform().Invert().TransformPoint(p)
}

// ResolveHandlePosition returns handle i in local space.
func (d *Doodle) ResolveHandlePosition(i int) geom.Point {
	if i < 0 || i >= len(d.Handles) || d.Handles[i] == nil {
		return geom.Point{}
	}
	h := d.Handles[i]
	switch {
	case h.Squiggle >= 0:
		if h.Squiggle < len(d.Squiggles) && h.Point < len(d.Squiggles[h.Squiggle].Points) {
			return d.Squiggles[h.Squiggle].Points[h.Point]
		}
		return geom.Point{}
	case h.Mode == ModeApex:
		return geom.Pt(d.Float("apexX"), d.Float("apexY"))
	default:
		return h.Location
	}
}

// ApplyVectorRangeConstraints clamps handle i into its vector range, if it has one.
func (d *Doodle) ApplyVectorRangeConstraints(i int) {
	r, ok := d.Ranges[i]
	if !ok {
		return
	}
	p := d.ResolveHandlePosition(i)
	if r.Contains(p) {
		return
	}
	d.writeHandle(i, r.Constrain(p))
}

// ApplyAllConstraints clamps every constrained handle.
func (d *Doodle) ApplyAllConstraints() {
	for _, i := range slices.Sorted(maps.Keys(d.Ranges)) {
		d.ApplyVectorRangeConstraints(i)
	}
}

func (d *Doodle) writeHandle(i int, p geom.Point) {
	h := d.Handles[i]
	switch {
	case h.Squiggle >= 0:
		if h.Squiggle < len(d.Squiggles) && h.Point < len(d.Squiggles[h.Squiggle].Points) {
			d.Squiggles[h.Squiggle].Points[h.Point] = p
		}
	case h.Mode == ModeApex:
		if err := d.SetParameter("apexX", p.X); err != nil {
			d.logger().Warn("apex update skipped", "class", d.class, "error", err)
		}
		if err := d.SetParameter("apexY", p.Y); err != nil {
			d.logger().Warn("apex update skipped", "class", d.class, "error", err)
		}
	default:
		h.Location = p
	}
}

// MoveHandle drags handle i to a canvas position.
func (d *Doodle) MoveHandle(i int, canvas geom.Point) error {
	return d.MoveHandleLocal(i, d.ToLocal(canvas))
}

// MoveHandleLocal drags handle i to a local position, clamped into its range.
func (d *Doodle) MoveHandleLocal(i int, local geom.Point) error {
	if i < 0 || i >= len(d.Handles) || d.Handles[i] == nil {
		return fmt.Errorf("%s: handle %d: %w", d.class, i, ErrNotFound)
	}
	if d.Locked {
		return nil
	}
	if r, ok := d.Ranges[i]; ok {
		local = r.Constrain(local)
	}
	d.writeHandle(i, local)
	if m, ok := d.Self().(HandleMover); ok {
		m.HandleMoved(i)
	}
	return nil
}

// AddSquiggle appends an empty squiggle and returns it.
func (d *Doodle) AddSquiggle(thickness float64, filled bool) *Squiggle {
	s := &Squiggle{Thickness: thickness, Filled: filled}
	d.Squiggles = append(d.Squiggles, s)
	return s
}

// ClockHour returns the clock position of the doodle's rotation, offset by
// the given number of hours and mirrored for left eyes.
func (d *Doodle) ClockHour(offset int) int {
	hour := int(math.Round(d.Float("rotation")*6/math.Pi)) + offset
	hour = ((hour % 12) + 12) % 12
	if d.drawing != nil && d.drawing.eye == EyeLeft {
		hour = (12 - hour) % 12
	}
	if hour == 0 {
		hour = 12
	}
	return hour
}

// Save returns the persisted form of the doodle.
func (d *Doodle) Save() document.Doodle {
	rec := document.Doodle{
		Class:  d.class,
		Params: make(map[string]any, len(d.SavedParameters)),
	}
	for _, name := range d.SavedParameters {
		if v, ok := d.values[name]; ok {
			rec.Params[name] = v
		}
	}
	for _, s := range d.Squiggles {
		rec.Squiggles = append(rec.Squiggles, slices.Clone(s.Points))
	}
	return rec
}

// restore applies saved values then re-runs dependency resolution for the
// derived ones, so state they drive is consistent with what was persisted.
// Simple parameters are taken as saved.
func (d *Doodle) restore(rec document.Doodle) {
	d.Quietly(func() {
		var applied []string
		for _, name := range d.SavedParameters {
			raw, ok := rec.Params[name]
			if !ok {
				continue
			}
			spec, err := d.spec(name, raw)
			if err != nil {
				d.logger().Warn("saved parameter skipped", "error", err)
				continue
			}
			v, err := spec.Coerce(raw)
			if err != nil {
				d.logger().Warn("saved parameter skipped", "error", d.validation(err))
				continue
			}
			d.values[name] = v
			if spec.Kind == KindDerived {
				applied = append(applied, name)
			}
		}
		for name := range rec.Params {
			if !slices.Contains(d.SavedParameters, name) {
				d.logger().Debug("unsaved parameter ignored", "class", d.class, "parameter", name)
			}
		}
		for i, pts := range rec.Squiggles {
			if i < len(d.Squiggles) {
				d.Squiggles[i].Points = slices.Clone(pts)
			} else {
				d.Squiggles = append(d.Squiggles, &Squiggle{Points: slices.Clone(pts)})
			}
		}
		for _, name := range applied {
			d.applyDependents(name, d.values[name], false)
		}
	})
}
