package shapes

import (
	"fmt"
	"math"
	"strings"

	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/geom"
)

// ChildNameParameter names the parameter that distinguishes the parts of the
// lacrimal system from each other.
const ChildNameParameter = "lacrimalChildName"

var (
	ductNames    = []string{"upperDuct", "lowerDuct", "horizontalDuct"}
	punctumNames = []string{"upperPunctum", "lowerPunctum"}
	ductFlows    = []string{"patent", "partial flow", "blocked"}
	punctumFlows = []string{"blocked", "stenosed", "patent", "everted"}
)

type segment struct{ x1, y1, x2, y2 float64 }

// Lacrimal positions, shifted down by the same offset as the drawing of the sac.
const lacrimalYShift = 100.0

var lacrimalLayout = map[string]segment{
	"lowerPunctum":   {-50, 55 + lacrimalYShift, -90, -10 + lacrimalYShift},
	"upperPunctum":   {-50, -250 + lacrimalYShift, -85, -190 + lacrimalYShift},
	"lowerDuct":      {-60, 55 + lacrimalYShift, 200, -100 + lacrimalYShift},
	"upperDuct":      {-60, -250 + lacrimalYShift, 200, -100 + lacrimalYShift},
	"horizontalDuct": {200, -100 + lacrimalYShift, 440, -100 + lacrimalYShift},
}

// Lacrimal is the lacrimal drainage system. On ready it adds its puncta and
// ducts as child doodles and from then on mirrors their state.
type Lacrimal struct {
	engine.Doodle
	loaded bool
}

func NewLacrimal() engine.Shape {
	l := &Lacrimal{}
	l.Setup("Lacrimal")
	l.Moveable = false
	l.Rotatable = false
	l.Scaleable = false
	l.Unique = true

	l.Define(listParam("flowType_lowerPunctum", engine.KindOther, punctumFlows...), "patent")
	l.Define(listParam("flowType_upperPunctum", engine.KindOther, punctumFlows[:3]...), "patent")
	l.SavedParameters = []string{"flowType_lowerPunctum", "flowType_upperPunctum"}
	for _, duct := range ductNames {
		l.Define(listParam("flowType_"+duct, engine.KindOther, ductFlows...), "patent")
		l.Define(intParam("flowPct_"+duct, engine.KindOther, 0, 100), 100.0)
		l.Define(intParam("flowPosition_"+duct, engine.KindOther, 0, 100), 50.0)
		l.Define(intParam("flowDirection_"+duct, engine.KindOther, -1, 1), -1.0)
		l.SavedParameters = append(l.SavedParameters,
			"flowType_"+duct, "flowPct_"+duct, "flowPosition_"+duct, "flowDirection_"+duct)
	}
	return l
}

func (l *Lacrimal) SetParameterDefaults() {
	if isLeft(&l.Doodle) {
		for _, duct := range ductNames {
			l.SetDefault("flowDirection_"+duct, 1.0)
		}
	}
}

func (l *Lacrimal) Events() []engine.Event {
	return []engine.Event{engine.EventReady, engine.EventParameterChanged}
}

func (l *Lacrimal) OnNotification(n engine.Notification) {
	switch n.Event {
	case engine.EventReady:
		l.addChildren()
	case engine.EventParameterChanged:
		l.track(n)
	}
}

// LowerLid is the lower lid margin ending at the lower punctum, which sits
// further out when everted.
func (l *Lacrimal) LowerLid() LidCurve {
	lid := LidCurve{
		Start: geom.Pt(-450, 10),
		C1:    geom.Pt(-375, 150),
		C2:    geom.Pt(-175, 150),
		End:   geom.Pt(-80, 80),
	}
	if l.Str("flowType_lowerPunctum") == "everted" {
		lid.End = geom.Pt(-125, 140)
	}
	return lid
}

// Loaded reports whether the child doodles have been added.
func (l *Lacrimal) Loaded() bool { return l.loaded }

func (l *Lacrimal) addChildren() {
	drawing := l.Drawing()
	if l.loaded || drawing == nil {
		return
	}
	if drawing.Eye() == engine.EyeLeft && !drawing.View().Flipped {
		drawing.FlipHorizontally()
	}
	for _, name := range punctumNames {
		params := layoutParams(name)
		params["flowType"] = l.Str("flowType_" + name)
		if _, err := drawing.AddDoodle("LacrimalPunctum", params); err != nil {
			l.Logger().Warn("lacrimal punctum not added", "punctum", name, "error", err)
		}
	}
	for _, name := range []string{"horizontalDuct", "upperDuct", "lowerDuct"} {
		params := layoutParams(name)
		params["flowType"] = l.Str("flowType_" + name)
		params["flowPct"] = l.Float("flowPct_" + name)
		params["flowPosition"] = l.Float("flowPosition_" + name)
		params["flowDirection"] = l.Float("flowDirection_" + name)
		if _, err := drawing.AddDoodle("LacrimalDuct", params); err != nil {
			l.Logger().Warn("lacrimal duct not added", "duct", name, "error", err)
		}
	}
	drawing.Deselect()
	l.loaded = true
}

func layoutParams(name string) map[string]any {
	s := lacrimalLayout[name]
	return map[string]any{
		ChildNameParameter: name,
		"x1":               s.x1,
		"y1":               s.y1,
		"x2":               s.x2,
		"y2":               s.y2,
	}
}

// Child returns the child doodle playing role, or nil.
func (l *Lacrimal) Child(role string) *engine.Doodle {
	return ChildOf(&l.Doodle, role)
}

// ChildOf finds the part playing role in the drawing that holds parent.
func ChildOf(parent *engine.Doodle, role string) *engine.Doodle {
	drawing := parent.Drawing()
	if drawing == nil {
		return nil
	}
	for _, class := range []string{"LacrimalDuct", "LacrimalPunctum"} {
		for _, s := range drawing.AllOfClass(class) {
			if s.Base().Str(ChildNameParameter) == role {
				return s.Base()
			}
		}
	}
	return nil
}

func (l *Lacrimal) track(n engine.Notification) {
	if !l.loaded || n.Change == nil || n.Doodle == nil || n.Doodle.Base() == l.Base() {
		return
	}
	child := n.Doodle.Base()
	role := child.Str(ChildNameParameter)
	if role == "" {
		return
	}
	field := n.Change.Parameter + "_" + role
	if _, ok := l.Params().Spec(field); ok {
		l.Quietly(func() { set(&l.Doodle, field, n.Change.Value) })
	}
	l.balanceHorizontal()
}

// balanceHorizontal keeps the horizontal duct consistent with what can reach
// it: nothing if both canaliculi are closed, otherwise whichever one is open.
func (l *Lacrimal) balanceHorizontal() {
	upper, lower, horizontal := l.Child("upperDuct"), l.Child("lowerDuct"), l.Child("horizontalDuct")
	if upper == nil || lower == nil || horizontal == nil {
		return
	}
	up, lo := upper.Float("flowPct"), lower.Float("flowPct")
	switch {
	case up == 0 && lo == 0:
		if horizontal.Str("flowType") != "blocked" {
			set(horizontal, "flowPct", 0.0)
		}
	case up == 0 && lo > 0:
		if horizontal.Float("flowPct") != lo {
			set(horizontal, "flowPct", lo)
		}
	case lo == 0 && up > 0:
		if horizontal.Float("flowPct") != up {
			set(horizontal, "flowPct", up)
		}
	}
}

func (l *Lacrimal) Description() string {
	if !l.loaded {
		return ""
	}
	var b strings.Builder
	for _, duct := range []struct{ label, role string }{
		{"Upper duct", "upperDuct"}, {"Lower duct", "lowerDuct"}, {"Horizontal duct", "horizontalDuct"},
	} {
		if c := l.Child(duct.role); c != nil {
			fmt.Fprintf(&b, "%s: %s, flow %d%%. ", duct.label, c.Str("flowType"), int(c.Float("flowPct")))
		}
	}
	for _, punctum := range []struct{ label, role string }{
		{"Upper punctum", "upperPunctum"}, {"Lower punctum", "lowerPunctum"},
	} {
		if c := l.Child(punctum.role); c != nil {
			fmt.Fprintf(&b, "%s: %s. ", punctum.label, c.Str("flowType"))
		}
	}
	return strings.TrimSpace(b.String())
}

// LacrimalDuct is one canaliculus. Its handle marks where along the duct the
// flow is shown and in which direction it runs.
type LacrimalDuct struct {
	engine.Doodle
	lastX    float64
	hasLastX bool
}

func NewLacrimalDuct() engine.Shape {
	d := &LacrimalDuct{}
	d.Setup("LacrimalDuct")
	setChildFlags(&d.Doodle)

	d.Define(listParam(ChildNameParameter, engine.KindOther, ductNames...), "")
	d.Define(listParam("flowType", engine.KindOther, ductFlows...), "patent")
	d.Define(intParam("flowPct", engine.KindOther, 0, 100), 100.0)
	d.Define(intParam("flowPosition", engine.KindOther, 0, 100), 50.0)
	d.Define(intParam("flowDirection", engine.KindOther, -1, 1), -1.0)
	for _, name := range []string{"x1", "y1", "x2", "y2"} {
		d.Define(intParam(name, engine.KindDerived, -500, 500), 0.0)
	}
	d.SavedParameters = []string{
		"flowType", "flowPct", "flowDirection", "flowPosition",
		"x1", "x2", "y1", "y2", ChildNameParameter,
	}
	d.ControlParameters = map[string]string{"flowType": "Flow", "flowPct": "Flow percentage"}

	marker := d.AddSquiggle(1, false)
	marker.Add(geom.Point{})
	d.Handles = []*engine.Handle{engine.NewSquiggleHandle(0, 0, true)}
	return d
}

func setChildFlags(d *engine.Doodle) {
	d.Saveable = false
	d.Deletable = false
	d.Moveable = false
	d.Rotatable = false
	d.Scaleable = false
	d.Unique = false
}

func (d *LacrimalDuct) Dependents(parameter string, value any) map[string]any {
	switch parameter {
	case "flowType":
		pct := d.Float("flowPct")
		switch value {
		case "patent":
			if pct != 100 {
				return map[string]any{"flowPct": 100.0}
			}
		case "partial flow":
			if pct == 0 || pct == 100 {
				return map[string]any{"flowPct": 50.0}
			}
		case "blocked":
			if pct != 0 {
				return map[string]any{"flowPct": 0.0}
			}
		}
	case "flowPct":
		pct, _ := value.(float64)
		flow := "partial flow"
		switch pct {
		case 100:
			flow = "patent"
		case 0:
			flow = "blocked"
		}
		if d.Str("flowType") != flow {
			return map[string]any{"flowType": flow}
		}
	case "x1", "y1", "x2", "y2", "flowPosition":
		d.layout()
	}
	return nil
}

func (d *LacrimalDuct) line() geom.Point {
	return geom.Pt(d.Float("x2")-d.Float("x1"), d.Float("y2")-d.Float("y1"))
}

// layout anchors the duct at (x1, y1) and puts the flow marker flowPosition
// percent of the way along it.
func (d *LacrimalDuct) layout() {
	d.SetDefault("originX", d.Float("x1"))
	d.SetDefault("originY", d.Float("y1"))
	line := d.line()
	d.Ranges[0] = geom.VectorRange{
		Length: geom.NewRange(0, line.Length()),
		Angle:  geom.AngleRange{Min: 0, Max: 2 * math.Pi},
	}
	d.Squiggles[0].Points[0] = line.Mul(d.Float("flowPosition") / 100)
}

func (d *LacrimalDuct) Refresh() { d.layout() }

// HandleMoved projects the marker onto the duct and records the new position
// and the direction it was dragged in.
func (d *LacrimalDuct) HandleMoved(int) {
	p := d.Squiggles[0].Points[0]
	line := d.line()
	t := 0.0
	if l2 := line.X*line.X + line.Y*line.Y; l2 > 0 {
		t = geom.NewRange(0, 1).Clamp((p.X*line.X + p.Y*line.Y) / l2)
	}
	d.Squiggles[0].Points[0] = line.Mul(t)

	if d.hasLastX && p.X != d.lastX {
		dir := 1.0
		if p.X > d.lastX {
			dir = -1
		}
		set(&d.Doodle, "flowDirection", dir)
	}
	d.lastX, d.hasLastX = p.X, true
	set(&d.Doodle, "flowPosition", math.Round(t*100))
}

// LacrimalPunctum is the opening of a canaliculus on the lid margin.
type LacrimalPunctum struct {
	engine.Doodle
}

func NewLacrimalPunctum() engine.Shape {
	p := &LacrimalPunctum{}
	p.Setup("LacrimalPunctum")
	setChildFlags(&p.Doodle)

	p.Define(listParam(ChildNameParameter, engine.KindDerived, punctumNames...), "")
	p.Define(listParam("flowType", engine.KindOther, punctumFlows...), "patent")
	for _, name := range []string{"x1", "y1", "x2", "y2"} {
		p.Define(intParam(name, engine.KindDerived, -500, 500), 0.0)
	}
	p.SavedParameters = []string{"flowType", "x1", "x2", "y1", "y2", ChildNameParameter}
	p.ControlParameters = map[string]string{"flowType": "Flow"}
	return p
}

func (p *LacrimalPunctum) Dependents(parameter string, value any) map[string]any {
	switch parameter {
	case ChildNameParameter:
		// only the lower punctum can evert
		if value != "lowerPunctum" {
			p.Params().SetList("flowType", punctumFlows[:3])
		} else {
			p.Params().SetList("flowType", punctumFlows)
		}
	case "x1", "y1":
		p.SetDefault("originX", p.Float("x1"))
		p.SetDefault("originY", p.Float("y1"))
	}
	return nil
}
