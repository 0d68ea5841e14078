package engine

import "github.com/eyedraw/eyedraw/internal/geom"

// Mode is the interaction a handle drives.
type Mode int

const (
	ModeNone Mode = iota
	ModeMove
	ModeScale
	ModeArc
	ModeRotate
	ModeApex
	ModeHandles
	ModeSize
)

var modeNames = map[Mode]string{
	ModeNone:    "none",
	ModeMove:    "move",
	ModeScale:   "scale",
	ModeArc:     "arc",
	ModeRotate:  "rotate",
	ModeApex:    "apex",
	ModeHandles: "handles",
	ModeSize:    "size",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// Handle is a draggable control point. Location is in the doodle's local space
// and is only authoritative for handles not bound to a squiggle point or apex.
type Handle struct {
	Location  geom.Point
	Visible   bool
	Mode      Mode
	Rotatable bool
	// Squiggle and Point bind the handle to a squiggle vertex when Squiggle >= 0.
	Squiggle int
	Point    int
}

// NewHandle returns an unbound handle.
func NewHandle(mode Mode, visible bool) *Handle {
	return &Handle{Mode: mode, Visible: visible, Squiggle: -1}
}

// NewSquiggleHandle returns a handle driving point p of squiggle s.
func NewSquiggleHandle(s, p int, visible bool) *Handle {
	return &Handle{Mode: ModeHandles, Visible: visible, Squiggle: s, Point: p}
}

// Squiggle is an ordered point sequence in local space.
type Squiggle struct {
	Points    []geom.Point
	Thickness float64
	Filled    bool
}

// Add appends a point.
func (s *Squiggle) Add(p geom.Point) {
	s.Points = append(s.Points, p)
}

func (s *Squiggle) clone() *Squiggle {
	c := *s
	c.Points = append([]geom.Point(nil), s.Points...)
	return &c
}
