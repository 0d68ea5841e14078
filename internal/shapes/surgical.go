package shapes

import (
	"math"
	"strconv"

	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/geom"
)

// Patch is a graft of donor tissue sutured over the globe.
type Patch struct {
	engine.Doodle
}

func NewPatch() engine.Shape {
	p := &Patch{}
	p.Setup("Patch")
	p.Define(listParam("material", engine.KindOther, "Sclera", "Tenons", "Cornea", "Pericardium", "Fascia lata", "Other"), "Sclera")
	p.SetDefault("width", 200.0)
	p.SetDefault("height", 200.0)
	p.SavedParameters = []string{"originX", "originY", "width", "height", "apexX", "material"}
	p.ControlParameters = map[string]string{"material": "Material"}

	p.Handles = []*engine.Handle{engine.NewHandle(engine.ModeSize, true)}
	p.Refresh()
	return p
}

func (p *Patch) Refresh() {
	p.Handles[0].Location = geom.Pt(p.Float("width")/2, -p.Float("height")/2)
}

// HandleMoved resizes the patch symmetrically about its centre.
func (p *Patch) HandleMoved(int) {
	at := p.Handles[0].Location
	set(&p.Doodle, "width", 2*math.Abs(at.X))
	set(&p.Doodle, "height", 2*math.Abs(at.Y))
	p.Refresh()
}

func (p *Patch) Description() string {
	if m := p.Str("material"); m != "Other" {
		return m + " patch"
	}
	return "patch"
}

var stentPercents = func() []string {
	out := make([]string, 0, 11)
	for i := 0; i <= 100; i += 10 {
		out = append(out, strconv.Itoa(i))
	}
	return out
}()

// IntraluminalStent is a suture left in a drainage tube to restrict flow.
type IntraluminalStent struct {
	engine.Doodle
}

func NewIntraluminalStent() engine.Shape {
	s := &IntraluminalStent{}
	s.Setup("IntraluminalStent")
	s.Moveable = false
	s.Rotatable = false

	s.Params().SetRange("apexX", -800, 800)
	s.Params().SetRange("apexY", -800, 800)
	s.Define(listParam("percent", engine.KindOther, stentPercents...), "80")
	s.Define(listParam("material", engine.KindOther, "Supramid", "Ethilon", "Prolene"), "Supramid")
	s.Define(listParam("size", engine.KindOther, "3-0", "4-0", "5-0", "6-0"), "3-0")
	s.SavedParameters = []string{"apexX", "apexY", "rotation", "percent", "material", "size"}
	s.ControlParameters = map[string]string{"percent": "Percent", "material": "Material", "size": "Size"}

	s.Handles = []*engine.Handle{engine.NewHandle(engine.ModeApex, true)}
	return s
}

func (s *IntraluminalStent) SetParameterDefaults() {
	set(&s.Doodle, "apexX", -660.0)
	set(&s.Doodle, "apexY", 30.0)
	set(&s.Doodle, "percent", "80")
}

func (s *IntraluminalStent) Description() string {
	return s.Str("size") + " " + s.Str("material") + " intraluminal stent " + s.Str("percent") + "% along tube"
}
