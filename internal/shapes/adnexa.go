package shapes

import (
	"math"

	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/geom"
)

var mucoceleScaleRest = geom.FromPolar(90, -math.Pi/4)

// Mucocele is a swelling of the lacrimal sac.
type Mucocele struct {
	engine.Doodle
}

func NewMucocele() engine.Shape {
	m := &Mucocele{}
	m.Setup("Mucocele")
	m.Moveable = false
	m.Rotatable = false
	m.Unique = true

	m.Params().SetRange("scaleX", 0.25, 1.5)
	m.Params().SetRange("scaleY", 0.25, 1.5)
	m.SetDefault("originX", 430.0)
	m.SetDefault("originY", 150.0)
	m.Define(boolParam("inflamed"), false)
	m.SavedParameters = []string{"originX", "originY", "scaleX", "scaleY", "inflamed"}
	m.ControlParameters = map[string]string{"inflamed": "Inflamed"}

	scale := engine.NewHandle(engine.ModeScale, true)
	scale.Location = mucoceleScaleRest
	m.Handles = []*engine.Handle{scale}
	return m
}

func (m *Mucocele) HandleMoved(i int) {
	rescale(&m.Doodle, i, mucoceleScaleRest, true)
}

func (m *Mucocele) Description() string {
	if m.Bool("inflamed") {
		return "Inflamed mucocele"
	}
	return "Mucocele"
}

var epiphoraSizes = map[string]float64{"+": 50, "++": 75, "+++": 100}

// Epiphora is overflow of tears; degree sets how far down the cheek it runs.
type Epiphora struct {
	engine.Doodle
}

func NewEpiphora() engine.Shape {
	e := &Epiphora{}
	e.Setup("Epiphora")
	e.Rotatable = false
	e.Scaleable = false
	e.Unique = true

	e.Define(listParam("degree", engine.KindDerived, "+", "++", "+++"), "+")
	e.Define(engine.ParamSpec{Name: "size", Kind: engine.KindOther, Type: engine.TypeFloat, Range: &geom.Range{Min: 50, Max: 100}}, 50.0)
	e.SavedParameters = []string{"degree", "originX"}
	e.ControlParameters = map[string]string{"degree": "Degree"}
	return e
}

func (e *Epiphora) SetParameterDefaults() {
	e.SetParameterFromString("degree", "+", false)
	e.attachToLid()
}

func (e *Epiphora) Events() []engine.Event {
	return []engine.Event{engine.EventDoodleAdded, engine.EventDoodleDeleted, engine.EventDoodlesLoaded, engine.EventMouseDragged}
}

func (e *Epiphora) OnNotification(n engine.Notification) {
	switch n.Event {
	case engine.EventDoodleAdded, engine.EventDoodleDeleted:
		switch n.Doodle.(type) {
		case *Lids, *Epiphora:
			e.attachToLid()
		}
	case engine.EventMouseDragged:
		if _, ok := n.Doodle.(*Lids); ok {
			e.attachToLid()
		}
	default:
		e.attachToLid()
	}
}

// attachToLid keeps originX within the span of the lower lid, when one is
// drawn.
func (e *Epiphora) attachToLid() {
	lid, ok := lowerLidOf(e.Drawing())
	if !ok {
		e.Params().SetRange("originX", -1000, 1000)
		return
	}
	lo, hi := lid.Start.X/2, lid.End.X/2
	if lo > hi {
		lo, hi = hi, lo
	}
	e.Params().SetRange("originX", lo, hi)
	set(&e.Doodle, "originX", e.Float("originX"))
}

// Anchor is the point on the lower lid the tears run from.
func (e *Epiphora) Anchor() (geom.Point, bool) {
	lid, ok := lowerLidOf(e.Drawing())
	if !ok || lid.End.X == lid.Start.X {
		return geom.Point{}, false
	}
	t := (e.Float("originX") - lid.Start.X/2) / (lid.End.X - lid.Start.X) * 2
	return lid.At(t), true
}

func (e *Epiphora) Dependents(parameter string, value any) map[string]any {
	if parameter != "degree" {
		return nil
	}
	degree, _ := value.(string)
	if size, ok := epiphoraSizes[degree]; ok {
		return map[string]any{"size": size}
	}
	return nil
}

func (e *Epiphora) Description() string {
	return "Epiphora " + e.Str("degree")
}

func (e *Epiphora) Codes() []engine.Code {
	return []engine.Code{engine.SNOMED(193982009, 0)}
}
