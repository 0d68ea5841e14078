package engine

import (
	"encoding/json"

	"github.com/eyedraw/eyedraw/internal/geom"
)

// HandleRadius is the pick radius of a handle, in canvas pixels.
const HandleRadius = 15

// Rect is an axis-aligned box in canvas space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Contains(p geom.Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func boundsOf(pts []geom.Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// HandleView is a handle resolved into canvas space.
type HandleView struct {
	Index   int        `json:"index"`
	Mode    string     `json:"mode"`
	At      geom.Point `json:"at"`
	Visible bool       `json:"visible"`
}

// DoodleView is what a front end needs to overlay one doodle: its transform,
// handles and squiggles in canvas space, and a pick box.
type DoodleView struct {
	ID        string         `json:"id"`
	Class     string         `json:"class"`
	Transform []float64      `json:"transform"`
	Selected  bool           `json:"selected"`
	Locked    bool           `json:"locked"`
	Handles   []HandleView   `json:"handles"`
	Squiggles [][]geom.Point `json:"squiggles,omitempty"`
	Bounds    Rect           `json:"bounds"`
}

// Scene compiles every doodle into a view, back to front.
func (d *Drawing) Scene() []DoodleView {
	views := make([]DoodleView, 0, len(d.doodles))
	for _, s := range d.doodles {
		views = append(views, viewOf(s.Base()))
	}
	return views
}

func viewOf(b *Doodle) DoodleView {
	m := b.CanvasTransform()
	v := DoodleView{
		ID:        b.ID,
		Class:     b.class,
		Transform: m.ToSlice(),
		Selected:  b.Selected,
		Locked:    b.Locked,
	}
	pts := []geom.Point{m.TransformPoint(geom.Point{})}
	for i, h := range b.Handles {
		if h == nil {
			continue
		}
		at := m.TransformPoint(b.ResolveHandlePosition(i))
		v.Handles = append(v.Handles, HandleView{Index: i, Mode: h.Mode.String(), At: at, Visible: h.Visible})
		pts = append(pts, at)
	}
	for _, sq := range b.Squiggles {
		cs := make([]geom.Point, len(sq.Points))
		for i, p := range sq.Points {
			cs[i] = m.TransformPoint(p)
		}
		v.Squiggles = append(v.Squiggles, cs)
		pts = append(pts, cs...)
	}
	v.Bounds = boundsOf(pts)
	return v
}

// HitTest finds what lies under a canvas point, front to back: first a visible
// handle of the selected doodle, then any doodle whose pick box contains p.
// handle is -1 when a doodle body was hit.
func (d *Drawing) HitTest(p geom.Point) (s Shape, handle int, ok bool) {
	if d.selected != nil {
		v := viewOf(d.selected.Base())
		for _, h := range v.Handles {
			if h.Visible && h.At.Distance(p) <= HandleRadius {
				return d.selected, h.Index, true
			}
		}
	}
	for i := len(d.doodles) - 1; i >= 0; i-- {
		if viewOf(d.doodles[i].Base()).Bounds.Contains(p) {
			return d.doodles[i], -1, true
		}
	}
	return nil, -1, false
}

// SceneJSON serialises Scene for a front end.
func (d *Drawing) SceneJSON() (string, error) {
	data, err := json.Marshal(d.Scene())
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
