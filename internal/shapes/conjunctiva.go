package shapes

import (
	"math"
	"slices"
	"strings"

	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/geom"
)

var grades = []string{"None", "+", "++", "+++"}

// ConjunctivalHaem records conjunctival haemorrhage, hyperaemia and swelling
// over a sector of the conjunctiva set by its two arc handles.
type ConjunctivalHaem struct {
	engine.Doodle
}

func NewConjunctivalHaem() engine.Shape {
	c := &ConjunctivalHaem{}
	c.Setup("ConjunctivalHaem")
	c.Moveable = false

	c.Define(listParam("haemorrhageGrade", engine.KindOther, grades...), "None")
	c.Define(listParam("hyperaemia", engine.KindOther, grades...), "++")
	c.Define(listParam("swellingGrade", engine.KindOther, grades[:3]...), "None")
	c.Define(listParam("conjunctivitisType", engine.KindOther, "None", "Follicular", "Papillary", "Giant papillary"), "None")
	c.Define(boolParam("mucopurulent"), false)
	c.SavedParameters = []string{
		"haemorrhageGrade", "swellingGrade", "conjunctivitisType",
		"hyperaemia", "mucopurulent", "arc", "rotation",
	}
	c.ControlParameters = map[string]string{
		"haemorrhageGrade":   "Haemorrhage",
		"hyperaemia":         "Hyperaemia",
		"swellingGrade":      "Swelling",
		"conjunctivitisType": "Conjunctivitis",
		"mucopurulent":       "Mucopurulent",
	}

	c.Handles = []*engine.Handle{
		engine.NewHandle(engine.ModeArc, true),
		engine.NewHandle(engine.ModeArc, true),
	}
	c.Refresh()
	return c
}

func (c *ConjunctivalHaem) SetParameterDefaults() {
	set(&c.Doodle, "arc", deg(120))
	set(&c.Doodle, "rotation", math.Pi)
	c.Refresh()
}

// Refresh puts the arc handles at either end of the sector.
func (c *ConjunctivalHaem) Refresh() {
	half := c.Float("arc") / 2
	c.Handles[0].Location = geom.FromPolar(limbusRadius, -half)
	c.Handles[1].Location = geom.FromPolar(limbusRadius, half)
}

// HandleMoved widens or narrows the arc symmetrically.
func (c *ConjunctivalHaem) HandleMoved(i int) {
	dir := c.Handles[i].Location.Direction()
	set(&c.Doodle, "arc", 2*geom.RadianDiff(dir, 0))
	c.Refresh()
}

func (c *ConjunctivalHaem) Description() string {
	extent := clockHourExtent(&c.Doodle) + " o'clock"
	var parts []string
	if t := c.Str("conjunctivitisType"); t != "None" {
		parts = append(parts, t+" conjunctivitis")
	}
	if h := c.Str("hyperaemia"); h != "None" {
		parts = append(parts, "hyperaemia "+h+" "+extent)
	}
	if c.Str("haemorrhageGrade") != "None" {
		parts = append(parts, "haemorrhage "+extent)
	}
	if c.Str("swellingGrade") != "None" {
		parts = append(parts, "swelling "+extent)
	}
	if c.Bool("mucopurulent") {
		parts = append(parts, "mucopurulent")
	}
	return strings.Join(parts, ", ")
}

// GroupDescription lists each distinct instance description once.
func (c *ConjunctivalHaem) GroupDescription() string {
	drawing := c.Drawing()
	if drawing == nil {
		return c.Description()
	}
	var seen []string
	for _, s := range drawing.AllOfClass(c.ClassName()) {
		if d := s.Description(); d != "" && !slices.Contains(seen, d) {
			seen = append(seen, d)
		}
	}
	return strings.Join(seen, ", ")
}

func (c *ConjunctivalHaem) Codes() []engine.Code {
	var codes []engine.Code
	if c.Str("haemorrhageGrade") != "None" {
		codes = append(codes, engine.SNOMED(1117005, 3))
	}
	if c.Str("swellingGrade") != "None" {
		codes = append(codes, engine.SNOMED(84178004, 3))
	}
	switch c.Str("conjunctivitisType") {
	case "Papillary":
		codes = append(codes, engine.SNOMED(416878008, 3))
	case "Follicular":
		codes = append(codes, engine.SNOMED(86402005, 3))
	}
	return codes
}
