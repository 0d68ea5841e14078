package shapes

import (
	"math"
	"strings"

	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/geom"
)

// LidCurve is a cubic bezier along a lid margin.
type LidCurve struct {
	Start, C1, C2, End geom.Point
}

// At returns the point a fraction t of the way along the curve.
func (c LidCurve) At(t float64) geom.Point {
	return geom.CubicBezier(t, c.Start, c.C1, c.C2, c.End)
}

// Length is the horizontal extent from Start to End.
func (c LidCurve) Length() float64 { return c.End.X - c.Start.X }

const (
	lidArc       = 250.0
	lidPunctumY  = 45.0
	lowerLidRest = 115.0
	upperLidRest = -90.0
)

var (
	lowerLidBox = [2]geom.Range{geom.NewRange(-260, 260), geom.NewRange(30, 300)}
	upperLidBox = [2]geom.Range{geom.NewRange(0, 0), geom.NewRange(-120, 110)}
)

// Lids draws both eyelids. Handle 0 drags the lower lid margin (ectropion),
// handle 1 the upper (ptosis).
type Lids struct {
	engine.Doodle
}

func NewLids() engine.Shape {
	l := &Lids{}
	l.Setup("Lids")
	l.Deletable = false
	l.Moveable = false
	l.Rotatable = false
	l.Scaleable = false

	l.Define(intParam("dir", engine.KindOther, -1, 1), 1.0)
	l.SavedParameters = []string{"dir"}

	margins := l.AddSquiggle(4, true)
	margins.Add(geom.Pt(0, lowerLidRest))
	margins.Add(geom.Pt(0, upperLidRest))
	l.Handles = []*engine.Handle{
		engine.NewSquiggleHandle(0, 0, true),
		engine.NewSquiggleHandle(0, 1, true),
	}
	return l
}

func (l *Lids) Events() []engine.Event {
	return []engine.Event{engine.EventDoodleAdded, engine.EventDoodlesLoaded}
}

func (l *Lids) OnNotification(n engine.Notification) {
	if n.Event == engine.EventDoodleAdded && n.Doodle != engine.Shape(l) {
		return
	}
	drawing := l.Drawing()
	if drawing.Eye() == engine.EyeLeft && !drawing.View().Flipped {
		drawing.FlipHorizontally()
	}
}

// HandleMoved keeps each margin handle inside its box.
func (l *Lids) HandleMoved(i int) {
	box := lowerLidBox
	if i == 1 {
		box = upperLidBox
	}
	pts := l.Squiggles[0].Points
	if i < len(pts) {
		pts[i] = geom.Pt(box[0].Clamp(pts[i].X), box[1].Clamp(pts[i].Y))
	}
}

func (l *Lids) margin(i int, rest float64) geom.Point {
	if len(l.Squiggles) == 0 || i >= len(l.Squiggles[0].Points) {
		return geom.Pt(0, rest)
	}
	return l.Squiggles[0].Points[i]
}

// LowerLid follows the lower lid margin from the lateral canthus to the
// punctum.
func (l *Lids) LowerLid() LidCurve {
	dir := l.Float("dir")
	mp := l.margin(0, lowerLidRest)
	end := geom.Pt(lidArc*dir, lidPunctumY+(mp.Y-lowerLidRest)/5)
	if mp.X*dir > 20 {
		end.X += (mp.X - 20) / 5
	}
	return LidCurve{
		Start: geom.Pt(-lidArc*dir, 0),
		C1:    geom.Pt(mp.X-170*dir, mp.Y*1.38),
		C2:    geom.Pt(mp.X+70*dir, mp.Y*1.45),
		End:   end,
	}
}

// UpperLid follows the upper lid margin.
func (l *Lids) UpperLid() LidCurve {
	dir := l.Float("dir")
	mp := l.margin(1, upperLidRest)
	return LidCurve{
		Start: geom.Pt(-lidArc*dir, 0),
		C1:    geom.Pt(-85*dir, mp.Y*1.3),
		C2:    geom.Pt(85*dir, mp.Y*1.35),
		End:   geom.Pt(lidArc*dir, mp.Y/5+19),
	}
}

func (l *Lids) Description() string {
	lower, upper := l.margin(0, lowerLidRest), l.margin(1, upperLidRest)
	dir := l.Float("dir")

	var ptosis string
	switch {
	case upper.Y >= -57 && upper.Y < -38:
		ptosis = "Mild ptosis"
	case upper.Y >= -38 && upper.Y < -19:
		ptosis = "Moderate ptosis"
	case upper.Y >= -19:
		ptosis = "Severe ptosis"
	}

	var ectropion string
	switch {
	case lower.Y > 132 && lower.X*dir > 90:
		ectropion = "Medial ectropion"
	case lower.Y > 132 && lower.X*dir < -90:
		ectropion = "Lateral ectropion"
	case lower.Y > 132:
		ectropion = "Ectropion"
	}
	return joinDescription([]string{ptosis, ectropion})
}

// lowerLidOf returns the lower lid of the first Lids doodle in drawing.
func lowerLidOf(drawing *engine.Drawing) (LidCurve, bool) {
	if drawing == nil {
		return LidCurve{}, false
	}
	lids, ok := drawing.FirstOfClass("Lids").(*Lids)
	if !ok {
		return LidCurve{}, false
	}
	return lids.LowerLid(), true
}

const (
	laxityLateral = 0.25
	laxityMedial  = 0.75
	minLaxity     = 20.0
)

// LidLaxity marks a lax stretch of the lower lid drawn by Lacrimal. center
// and size are fractions of the lid length; originX and apexX carry the same
// positions in drawing units.
type LidLaxity struct {
	engine.Doodle
}

func NewLidLaxity() engine.Shape {
	l := &LidLaxity{}
	l.Setup("LidLaxity")
	l.Rotatable = false
	l.Unique = true

	l.Define(fractionParam("center"), 0.5)
	l.Define(fractionParam("size"), 0.4)
	l.SavedParameters = []string{"center", "size"}

	l.Handles = []*engine.Handle{
		engine.NewHandle(engine.ModeMove, true),
		engine.NewHandle(engine.ModeApex, true),
	}
	return l
}

func fractionParam(name string) engine.ParamSpec {
	r := geom.NewRange(0, 1)
	return engine.ParamSpec{Name: name, Kind: engine.KindDerived, Type: engine.TypeFloat, Range: &r}
}

// fraction rounds so converting between fractions and drawing units settles.
func fraction(v float64) float64 { return math.Round(v*1e4) / 1e4 }

// lid returns the lower lid of the drawing's Lacrimal, if there is one.
func (l *LidLaxity) lid() (LidCurve, bool) {
	drawing := l.Drawing()
	if drawing == nil {
		return LidCurve{}, false
	}
	lac, ok := drawing.FirstOfClass("Lacrimal").(*Lacrimal)
	if !ok {
		return LidCurve{}, false
	}
	return lac.LowerLid(), true
}

func (l *LidLaxity) SetParameterDefaults() { l.fitToLid() }

func (l *LidLaxity) Events() []engine.Event {
	return []engine.Event{engine.EventDoodleAdded, engine.EventDoodlesLoaded, engine.EventParameterChanged}
}

func (l *LidLaxity) OnNotification(n engine.Notification) {
	switch n.Event {
	case engine.EventParameterChanged:
		// an everted punctum moves the end of the lid
		if _, ok := n.Doodle.(*Lacrimal); ok && n.Change.Parameter == "flowType_lowerPunctum" {
			l.fitToLid()
		}
	case engine.EventDoodleAdded:
		switch n.Doodle.(type) {
		case *Lacrimal, *LidLaxity:
			l.fitToLid()
		}
	default:
		l.fitToLid()
	}
}

// fitToLid bounds the laxity to the lid and places it from center and size.
func (l *LidLaxity) fitToLid() {
	lid, ok := l.lid()
	if !ok {
		return
	}
	length := lid.Length()
	size := l.Float("size")
	l.Params().SetRange("apexX", minLaxity, length)
	l.Params().SetRange("originX", lid.Start.X+length*size/2, lid.End.X-length*size/2)
	set(&l.Doodle, "apexX", size*length)
	set(&l.Doodle, "originX", lid.Start.X+l.Float("center")*length)
	l.Refresh()
}

func (l *LidLaxity) Dependents(parameter string, value any) map[string]any {
	v, ok := value.(float64)
	if !ok {
		return nil
	}
	lid, ok := l.lid()
	if !ok || lid.Length() == 0 {
		return nil
	}
	length := lid.Length()
	switch parameter {
	case "center":
		return map[string]any{"originX": lid.Start.X + v*length}
	case "size":
		return map[string]any{"apexX": v * length}
	case "originX":
		return map[string]any{"center": fraction((v - lid.Start.X) / length)}
	case "apexX":
		l.Params().SetRange("originX", lid.Start.X+v/2, lid.End.X-v/2)
		return map[string]any{"size": fraction(v / length)}
	}
	return nil
}

// Refresh puts the move handle on the lid at the laxity's centre.
func (l *LidLaxity) Refresh() {
	lid, ok := l.lid()
	if !ok {
		return
	}
	l.Handles[0].Location = geom.Pt(0, lid.At(l.Float("center")).Y)
}

func (l *LidLaxity) HandleMoved(int) { l.Refresh() }

func (l *LidLaxity) Description() string {
	center, size := l.Float("center"), l.Float("size")
	from, to := center-size/2, center+size/2

	var lateral, central, medial bool
	switch {
	case from < laxityLateral:
		lateral = true
	case from < laxityMedial:
		central = true
	default:
		medial = true
	}
	switch {
	case to > laxityMedial:
		medial = true
	case to > laxityLateral:
		central = true
	default:
		lateral = true
	}
	if medial && lateral {
		central = true
	}

	var parts []string
	if lateral {
		parts = append(parts, "lateral")
	}
	if central {
		parts = append(parts, "central")
	}
	if medial {
		parts = append(parts, "medial")
	}
	return capitalize(strings.Join(parts, ", ")) + " lid laxity"
}
