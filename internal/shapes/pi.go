package shapes

import (
	"fmt"
	"math"

	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/geom"
)

// PI is a peripheral iridectomy, placed by rotation around the limbus.
type PI struct {
	engine.Doodle
}

func NewPI() engine.Shape {
	p := &PI{}
	p.Setup("PI")
	p.Scaleable = false
	p.Moveable = false
	p.Define(listParam("type", engine.KindDerived, "Surgical", "Laser"), "Laser")
	p.Define(boolParam("patent"), true)
	p.SavedParameters = []string{"rotation", "type", "patent"}
	p.ControlParameters = map[string]string{"type": "Type", "patent": "Patent"}
	return p
}

// SetParameterDefaults starts at 11 o'clock and steps round by two hours
// until the position is free of other iridectomies.
func (p *PI) SetParameterDefaults() {
	start, step := deg(-30), deg(-60)
	if isLeft(&p.Doodle) {
		start, step = -start, -step
	}
	rotation := geom.NormalizeAngle(start)
	if drawing := p.Drawing(); drawing != nil {
		others := drawing.AllOfClass("PI")
		for range 6 {
			if !rotationTaken(others, rotation) {
				break
			}
			rotation = geom.NormalizeAngle(rotation + step)
		}
	}
	set(&p.Doodle, "rotation", rotation)
}

func rotationTaken(others []engine.Shape, rotation float64) bool {
	for _, o := range others {
		if geom.RadianDiff(o.Base().Float("rotation"), rotation) < math.Pi/180 {
			return true
		}
	}
	return false
}

func (p *PI) Description() string {
	return fmt.Sprintf("Peripheral iridectomy at %d o'clock", p.ClockHour(0))
}
