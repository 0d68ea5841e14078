package engine

import "sync"

// Easing names an interpolation curve.
type Easing string

const (
	EasingLinear     Easing = "linear"
	EasingEaseIn     Easing = "easeIn"
	EasingEaseOut    Easing = "easeOut"
	EasingEaseInOut  Easing = "easeInOut"
	EasingCubicInOut Easing = "cubicInOut"
)

// Ease maps t in [0, 1] through the curve.
func Ease(t float64, e Easing) float64 {
	switch e {
	case EasingEaseIn:
		return t * t
	case EasingEaseOut:
		return t * (2 - t)
	case EasingEaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t
	case EasingCubicInOut:
		if t < 0.5 {
			return 4 * t * t * t
		}
		t2 := -2*t + 2
		return 1 - t2*t2*t2/2
	default:
		return t
	}
}

// Frame is one interpolated presentation value.
type Frame struct {
	DoodleID  string  `json:"doodleId"`
	Parameter string  `json:"parameter"`
	Value     float64 `json:"value"`
	Done      bool    `json:"done"`
}

type tween struct {
	doodleID  string
	parameter string
	from, to  float64
	frame     int
}

// Tweener is an Animator that interpolates numeric parameters over a fixed
// number of frames. The model value is already final; Step only yields what
// a renderer should show in between. Non-numeric changes are not tweened.
type Tweener struct {
	mu     sync.Mutex
	frames int
	easing Easing
	active []*tween
}

// NewTweener creates a tweener running each change over frames steps.
func NewTweener(frames int, easing Easing) *Tweener {
	if frames < 1 {
		frames = 1
	}
	return &Tweener{frames: frames, easing: easing}
}

func (t *Tweener) Animate(d *Doodle, parameter string, from, to any) {
	f, fok := toFloat(from)
	g, gok := toFloat(to)
	if !fok || !gok {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tw := range t.active {
		if tw.doodleID == d.ID && tw.parameter == parameter {
			tw.from = tw.current(t.frames, t.easing)
			tw.to = g
			tw.frame = 0
			return
		}
	}
	t.active = append(t.active, &tween{doodleID: d.ID, parameter: parameter, from: f, to: g})
}

func (tw *tween) current(frames int, e Easing) float64 {
	p := Ease(float64(tw.frame)/float64(frames), e)
	return tw.from + (tw.to-tw.from)*p
}

// Step advances every tween by one frame.
func (t *Tweener) Step() []Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Frame, 0, len(t.active))
	live := t.active[:0]
	for _, tw := range t.active {
		tw.frame++
		done := tw.frame >= t.frames
		out = append(out, Frame{
			DoodleID:  tw.doodleID,
			Parameter: tw.parameter,
			Value:     tw.current(t.frames, t.easing),
			Done:      done,
		})
		if !done {
			live = append(live, tw)
		}
	}
	t.active = live
	return out
}

// Active reports how many tweens are running.
func (t *Tweener) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}
