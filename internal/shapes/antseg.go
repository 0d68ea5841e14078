package shapes

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/geom"
)

const (
	pupilPoints        = 8
	limbusRadius       = 380.0
	iridectomyRadius   = 280.0
	initialPupilRadius = 250.0
	minPupilRadius     = 50.0
)

// AntSeg is the anterior segment: iris, pupil and limbus. The pupil is either
// round, sized by the apex handle, or distorted, shaped by eight handles on
// its margin.
type AntSeg struct {
	engine.Doodle
	apexHandle int
	// margin before aniridia shrank the iris away, restored when it is cleared
	beforeAniridia []geom.Point
}

func NewAntSeg() engine.Shape {
	a := &AntSeg{apexHandle: pupilPoints}
	a.Setup("AntSeg")
	a.Deletable = false
	a.Moveable = false
	a.Rotatable = false
	a.Unique = true

	p := a.Params()
	p.SetRange("apexX", 0, 0)
	p.SetRange("apexY", -300, -60)
	if s, ok := p.Spec("apexY"); ok {
		s.Animate = true
	}
	a.SetDefault("apexY", -260.0)

	size := listParam("pupilSize", engine.KindDerived, "Large", "Medium", "Small", "")
	size.Animate = true
	a.Define(size, "Large")
	a.Define(listParam("pupilShape", engine.KindDerived, "Round", "Distorted"), "Round")
	for _, name := range []string{"pxe", "aniridia", "coloboma", "ectropion", "irisTrauma"} {
		a.Define(boolParam(name), false)
	}
	a.Define(listParam("colour", engine.KindOther, "Blue", "Brown", "Gray", "Green"), "Blue")
	a.Define(listParam("cornealSize", engine.KindOther, "Not Checked", "Micro", "Normal", "Macro"), "Not Checked")
	a.Define(floatParam("csApexX"), 0.0)

	a.SavedParameters = []string{
		"pupilSize", "pupilShape", "apexY", "rotation", "pxe", "aniridia",
		"irisTrauma", "coloboma", "colour", "ectropion", "cornealSize", "csApexX",
	}
	a.ControlParameters = map[string]string{
		"pupilSize":   "Pupil size",
		"pupilShape":  "Pupil shape",
		"pxe":         "Pseudoexfoliation",
		"aniridia":    "Aniridia",
		"coloboma":    "Coloboma",
		"colour":      "Colour",
		"ectropion":   "Ectropion uveae",
		"irisTrauma":  "Iris trauma",
		"cornealSize": "Corneal size",
	}

	margin := a.AddSquiggle(4, true)
	for i := 0; i < pupilPoints; i++ {
		margin.Add(geom.FromPolar(initialPupilRadius, float64(i)*2*math.Pi/pupilPoints))
		a.Handles = append(a.Handles, engine.NewSquiggleHandle(0, i, false))
	}
	a.Handles = append(a.Handles, engine.NewHandle(engine.ModeApex, true))
	a.sectorRanges()
	return a
}

func (a *AntSeg) SetParameterDefaults() {
	a.SetParameterFromString("apexY", "-260", false)
	a.SetParameterFromString("pupilSize", "Large", false)
	a.SetParameterFromString("pupilShape", "Round", false)
}

func pupilSizeFor(apexY float64) string {
	switch {
	case apexY < -200:
		return "Large"
	case apexY < -100:
		return "Medium"
	default:
		return "Small"
	}
}

func (a *AntSeg) Dependents(parameter string, value any) map[string]any {
	switch parameter {
	case "apexY":
		y, _ := value.(float64)
		return map[string]any{"pupilSize": pupilSizeFor(y)}

	case "pupilSize":
		out := map[string]any{}
		y := a.Float("apexY")
		switch value {
		case "Large":
			if y >= -200 {
				out["apexY"] = -260.0
			}
		case "Medium":
			if y < -200 || y >= -100 {
				out["apexY"] = -200.0
			}
		case "Small":
			if y < -100 {
				out["apexY"] = -100.0
			}
		}
		if value != "" {
			if a.Str("pupilShape") != "Round" {
				out["pupilShape"] = "Round"
			}
			if a.Bool("aniridia") {
				out["aniridia"] = false
			}
		}
		return out

	case "pupilShape":
		var out map[string]any
		switch value {
		case "Distorted":
			out = map[string]any{"pupilSize": ""}
		case "Round":
			out = map[string]any{"pupilSize": pupilSizeFor(a.Float("apexY"))}
		}
		a.resetHandles()
		return out

	case "aniridia":
		var out map[string]any
		if value == true {
			out = map[string]any{"pupilShape": "Distorted", "coloboma": false}
			a.shrinkToLimbus()
		} else if a.beforeAniridia != nil {
			a.Squiggles[0].Points = a.beforeAniridia
			a.beforeAniridia = nil
		}
		a.resetHandles()
		a.ApplyAllConstraints()
		return out

	case "coloboma":
		a.Rotatable = value == true
		a.resetHandles()
		if value == true {
			return map[string]any{"aniridia": false}
		}
		return map[string]any{"rotation": 0.0}
	}
	return nil
}

// shrinkToLimbus scales the margin so its widest point sits just inside the limbus.
func (a *AntSeg) shrinkToLimbus() {
	pts := a.Squiggles[0].Points
	if a.beforeAniridia == nil {
		a.beforeAniridia = slices.Clone(pts)
	}
	widest := 0.0
	for _, p := range pts {
		widest = max(widest, p.Length())
	}
	if widest == 0 {
		return
	}
	mult := (limbusRadius - 10) / widest
	for i, p := range pts {
		pts[i] = p.WithLength(p.Length() * mult)
	}
}

func (a *AntSeg) resetHandles() {
	distorted := a.Str("pupilShape") == "Distorted"
	for i := 0; i < pupilPoints; i++ {
		a.Handles[i].Visible = distorted
	}
	a.Handles[a.apexHandle].Visible = !distorted && !a.Bool("aniridia")
	if a.Bool("coloboma") {
		a.Handles[4].Visible = false
	}
}

// sectorRanges gives each margin handle its own sector of the circle.
func (a *AntSeg) sectorRanges() {
	half := math.Pi / pupilPoints
	for i := 0; i < pupilPoints; i++ {
		centre := float64(i) * 2 * math.Pi / pupilPoints
		a.Ranges[i] = geom.VectorRange{
			Length: geom.NewRange(minPupilRadius, limbusRadius),
			Angle:  geom.AngleRange{Min: geom.NormalizeAngle(centre - half), Max: geom.NormalizeAngle(centre + half)},
		}
	}
}

// SetHandleConstraints keeps the pupil margin clear of every peripheral
// iridectomy: the two handles nearest each one may not pass its radius.
func (a *AntSeg) SetHandleConstraints() {
	a.sectorRanges()
	drawing := a.Drawing()
	if drawing == nil {
		a.ApplyAllConstraints()
		return
	}
	pts := a.Squiggles[0].Points
	pis := drawing.AllOfClass("PI")
	for _, pi := range pis {
		rot := pi.Base().Float("rotation")
		idx := make([]int, len(pts))
		for i := range idx {
			idx[i] = i
		}
		slices.SortStableFunc(idx, func(i, j int) int {
			return cmp.Compare(geom.RadianDiff(pts[i].Direction(), rot), geom.RadianDiff(pts[j].Direction(), rot))
		})
		for _, k := range idx[:min(2, len(idx))] {
			r := a.Ranges[k]
			r.Length.Max = iridectomyRadius
			a.Ranges[k] = r
			if pts[k].Length() > iridectomyRadius {
				pts[k] = pts[k].WithLength(iridectomyRadius)
			}
		}
	}
	a.ApplyAllConstraints()
	if len(pis) > 0 {
		drawing.Repaint()
	}
}

func (a *AntSeg) Events() []engine.Event {
	return []engine.Event{engine.EventReady, engine.EventMouseUp}
}

func (a *AntSeg) OnNotification(n engine.Notification) {
	switch n.Event {
	case engine.EventReady:
		a.SetHandleConstraints()
	case engine.EventMouseUp:
		if n.Doodle != nil && n.Doodle.ClassName() == "PI" {
			a.SetHandleConstraints()
		}
	}
}

// peakHour is the clock hour of the margin point furthest from the centre.
func (a *AntSeg) peakHour() int {
	var peak geom.Point
	for _, p := range a.Squiggles[0].Points {
		if p.Length() > peak.Length() {
			peak = p
		}
	}
	hour := int(math.Ceil((peak.Direction() - math.Pi/12) * 6 / math.Pi))
	if isLeft(&a.Doodle) {
		hour = 12 - hour
	}
	if hour <= 0 {
		hour += 12
	}
	return hour
}

func (a *AntSeg) Description() string {
	var parts []string
	if a.Str("pupilShape") == "Round" {
		parts = append(parts, fmt.Sprintf("%s pupil (diameter: %dmm)",
			strings.ToLower(a.Str("pupilSize")), int(math.Round(-a.Float("apexY")*0.03))))
	}
	if cs := a.Str("cornealSize"); cs != "" && cs != "Not Checked" {
		parts = append(parts, "corneal size: "+strings.ToLower(cs))
	}
	if a.Bool("coloboma") {
		parts = append(parts, fmt.Sprintf("coloboma at %d o'clock", a.ClockHour(6)))
	}
	if a.Bool("ectropion") {
		parts = append(parts, "ectropion uveae")
	}
	if a.Bool("pxe") {
		parts = append(parts, "pseudoexfoliation")
	}
	if a.Bool("aniridia") {
		parts = append(parts, "aniridia")
	}
	if a.Bool("irisTrauma") {
		parts = append(parts, "iris trauma")
	}
	if a.Str("pupilShape") == "Distorted" {
		parts = append(parts, fmt.Sprintf("pupil peaked at %d o'clock", a.peakHour()))
	}
	if len(parts) == 0 && a.Drawing() != nil && a.Drawing().Len() == 1 {
		return "No abnormality"
	}
	return joinDescription(parts)
}

func (a *AntSeg) Codes() []engine.Code {
	var codes []engine.Code
	if a.Bool("pxe") {
		codes = append(codes, engine.SNOMED(44219007, 3))
	}
	if a.Bool("aniridia") {
		codes = append(codes, engine.SNOMED(69278003, 3))
	}
	return codes
}
