package shapes

import (
	"fmt"
	"math"

	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/geom"
)

// rescale turns a dragged scale handle into a new scale and puts the handle
// back at its rest position. Squeezable shapes scale each axis separately.
func rescale(d *engine.Doodle, i int, rest geom.Point, squeeze bool) {
	p := d.Handles[i].Location
	d.Handles[i].Location = rest
	if squeeze {
		if rest.X != 0 {
			set(d, "scaleX", d.Float("scaleX")*math.Abs(p.X/rest.X))
		}
		if rest.Y != 0 {
			set(d, "scaleY", d.Float("scaleY")*math.Abs(p.Y/rest.Y))
		}
		return
	}
	if l := rest.Length(); l > 0 {
		r := p.Length() / l
		set(d, "scaleX", d.Float("scaleX")*r)
		set(d, "scaleY", d.Float("scaleY")*r)
	}
}

// Hypopyon is a fluid level of pus in the anterior chamber.
type Hypopyon struct {
	engine.Doodle
}

func NewHypopyon() engine.Shape {
	h := &Hypopyon{}
	h.Setup("Hypopyon")
	h.Moveable = false
	h.Rotatable = false
	h.Unique = true
	h.BehindClasses = []string{"KeraticPrecipitates"}

	h.Params().SetRange("apexX", 460, 460)
	h.Params().SetRange("apexY", -380, 304)
	h.SetDefault("apexX", 460.0)
	h.SetDefault("apexY", 260.0)
	h.Define(floatParam("csOriginY"), 0.0)
	h.Define(floatParam("csApexX"), 0.0)
	h.Define(floatParam("csOriginX"), 50.0)
	h.SavedParameters = []string{"apexX", "apexY", "csOriginY", "csApexX", "csOriginX"}
	h.Handles = []*engine.Handle{engine.NewHandle(engine.ModeApex, true)}
	return h
}

// Height is the fluid level in millimetres.
func (h *Hypopyon) Height() int {
	return int(math.Round(10 * (limbusRadius - h.Float("apexY")) / (2 * limbusRadius)))
}

func (h *Hypopyon) Description() string {
	return fmt.Sprintf("%dmm hypopyon", h.Height())
}

func (h *Hypopyon) Codes() []engine.Code {
	return []engine.Code{engine.SNOMED(87807004, 0)}
}

var scarScaleRest = geom.FromPolar(100, math.Pi/4)

// CornealScar is an opacity of the cornea; the apex sets its density.
type CornealScar struct {
	engine.Doodle
}

func NewCornealScar() engine.Shape {
	c := &CornealScar{}
	c.Setup("CornealScar")
	c.Rotatable = false

	c.Params().SetRange("apexX", 0, 0)
	c.Params().SetRange("apexY", -100, -10)
	c.SetDefault("apexY", -50.0)
	c.SetDefault("scaleX", 0.7)
	c.SetDefault("scaleY", 0.5)
	c.SavedParameters = []string{"originX", "originY", "apexY", "scaleX", "scaleY"}

	scale := engine.NewHandle(engine.ModeScale, true)
	scale.Location = scarScaleRest
	c.Handles = []*engine.Handle{scale, engine.NewHandle(engine.ModeApex, true)}
	return c
}

// SetParameterDefaults offsets each new scar from the previous one.
func (c *CornealScar) SetParameterDefaults() {
	n := 0
	if drawing := c.Drawing(); drawing != nil {
		n = len(drawing.AllOfClass("CornealScar"))
	}
	set(&c.Doodle, "originY", 25.0*float64(n+1))
}

func (c *CornealScar) HandleMoved(i int) {
	if c.Handles[i].Mode == engine.ModeScale {
		rescale(&c.Doodle, i, scarScaleRest, true)
	}
}

// InVisualAxis reports whether the scar covers the centre of the cornea.
func (c *CornealScar) InVisualAxis() bool {
	reach := 100 * min(c.Float("scaleX"), c.Float("scaleY"))
	return geom.Pt(c.Float("originX"), c.Float("originY")).Length() < reach
}

func (c *CornealScar) Description() string {
	size := "Large"
	switch total := c.Float("scaleX") + c.Float("scaleY"); {
	case total < 2:
		size = "Small"
	case total < 4:
		size = "Medium"
	}
	desc := size + " corneal scar"
	if c.InVisualAxis() {
		desc += " involving visual axis"
	}
	return desc
}

func (c *CornealScar) Codes() []engine.Code {
	return []engine.Code{engine.SNOMED(95726001, 0)}
}

type speeLayout struct {
	density      float64
	originY      float64
	apexX, apexY float64
}

var speeConfigurations = map[string]speeLayout{
	"Lower 1/3 light":   {density: 50, originY: 220, apexX: 300, apexY: 125},
	"Lower 1/3 dense":   {density: 150, originY: 220, apexX: 300, apexY: 125},
	"Middle 1/3 light":  {density: 50, apexX: 370, apexY: 100},
	"Middle 1/3 dense":  {density: 150, apexX: 370, apexY: 100},
	"Diffuse, light":    {density: 50, apexX: 370, apexY: 370},
	"Diffuse, moderate": {density: 100, apexX: 370, apexY: 370},
	"Diffuse, heavy":    {density: 150, apexX: 370, apexY: 370},
}

var speeOrder = []string{
	"Lower 1/3 light", "Lower 1/3 dense", "Middle 1/3 light", "Middle 1/3 dense",
	"Diffuse, light", "Diffuse, moderate", "Diffuse, heavy",
}

// SPEE is superficial punctate epithelial erosions. The apex gives the
// extent of the affected area and the squiggle handle its density.
type SPEE struct {
	engine.Doodle
}

func NewSPEE() engine.Shape {
	s := &SPEE{}
	s.Setup("SPEE")
	s.Params().SetRange("apexX", -400, 400)
	s.Params().SetRange("apexY", -400, 400)
	s.SetDefault("apexX", 370.0)
	s.SetDefault("apexY", 370.0)
	s.Define(listParam("configuration", engine.KindDerived, speeOrder...), "Diffuse, moderate")
	s.Define(engine.ParamSpec{Name: "previousConfiguration", Kind: engine.KindOther, Type: engine.TypeString}, "Diffuse, moderate")
	s.SavedParameters = []string{
		"originX", "originY", "apexY", "apexX", "scaleX", "scaleY",
		"rotation", "configuration", "previousConfiguration",
	}
	s.ControlParameters = map[string]string{"configuration": "Set configuration"}

	density := s.AddSquiggle(1, false)
	density.Add(geom.Pt(100, 0))
	s.Handles = []*engine.Handle{
		engine.NewSquiggleHandle(0, 0, true),
		engine.NewHandle(engine.ModeApex, true),
	}
	s.Handles[1].Rotatable = true
	s.Ranges[0] = geom.VectorRange{
		Length: geom.NewRange(20, 350),
		Angle:  geom.AngleRange{Min: math.Pi / 2, Max: math.Pi / 2},
	}
	return s
}

// Density is the squiggle handle's distance from the centre.
func (s *SPEE) Density() float64 {
	return s.Squiggles[0].Points[0].X
}

func (s *SPEE) Dependents(parameter string, value any) map[string]any {
	if parameter != "configuration" {
		return nil
	}
	name, _ := value.(string)
	if name == s.Str("previousConfiguration") {
		return nil
	}
	cfg, ok := speeConfigurations[name]
	if !ok {
		return nil
	}
	s.Squiggles[0].Points[0].X = cfg.density
	return map[string]any{
		"originX":               0.0,
		"originY":               cfg.originY,
		"apexX":                 cfg.apexX,
		"apexY":                 cfg.apexY,
		"previousConfiguration": name,
	}
}

func (s *SPEE) Description() string { return "" }

func (s *SPEE) GroupDescription() string {
	return "Superficial punctate epithelial erosions"
}
