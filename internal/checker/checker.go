package checker

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/eyedraw/eyedraw/internal/engine"
)

// Checker tracks which drawings on a page have finished loading and runs
// callbacks once every known drawing is ready.
//
// A Checker is not safe for concurrent use. A page drives it from a single
// loop.
type Checker struct {
	logger    *slog.Logger
	known     map[string]struct{}
	ready     map[string]struct{}
	callbacks []func()

	instances map[string]*engine.Drawing
	order     []string
	subs      map[string]engine.Subscription
}

// State is a snapshot of the barrier for diagnostics.
type State struct {
	Known   []string `json:"known"`
	Ready   []string `json:"ready"`
	Pending int      `json:"pending"`
}

func New(logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Checker{logger: logger.With("component", "checker")}
	c.Reset()
	return c
}

// Register makes id known. A known id holds the barrier until it is marked
// ready or deregistered.
func (c *Checker) Register(id string) {
	c.known[id] = struct{}{}
}

// Attach registers drawing under its name and follows its ready and
// destroyed events.
func (c *Checker) Attach(drawing *engine.Drawing) {
	id := drawing.Name
	if _, ok := c.instances[id]; ok {
		c.logger.Warn("drawing attached twice", "drawing", id)
		c.detach(id)
	}
	c.instances[id] = drawing
	c.order = append(c.order, id)
	c.Register(id)

	router := engine.NewRouter("checker", c.logger).
		On(engine.EventReady, func(engine.Notification) { c.MarkReady(id) }).
		On(engine.EventDestroyed, func(engine.Notification) { c.Deregister(id) })
	c.subs[id] = drawing.Register(router, router.Events()...)
}

// MarkReady records that id finished loading. When that completes the
// barrier every queued callback runs once, in the order queued.
func (c *Checker) MarkReady(id string) {
	if _, ok := c.known[id]; !ok {
		c.logger.Warn("ready reported for unknown canvas", "canvas", id)
		return
	}
	if _, ok := c.ready[id]; ok {
		return
	}
	c.ready[id] = struct{}{}
	c.drain()
}

// OnAllReady runs fn now if every known drawing is ready, otherwise once
// they all are.
func (c *Checker) OnAllReady(fn func()) {
	if c.IsAllReady() {
		fn()
		return
	}
	c.callbacks = append(c.callbacks, fn)
}

// Deregister forgets id in both the known and ready sets. Removing the last
// drawing that was still loading completes the barrier.
func (c *Checker) Deregister(id string) {
	c.detach(id)
	delete(c.known, id)
	delete(c.ready, id)
	c.drain()
}

func (c *Checker) detach(id string) {
	if sub, ok := c.subs[id]; ok {
		c.instances[id].Unregister(sub)
		delete(c.subs, id)
	}
	delete(c.instances, id)
	c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == id })
}

// IsAllReady reports whether the ready set equals the known set.
func (c *Checker) IsAllReady() bool {
	if len(c.ready) != len(c.known) {
		return false
	}
	for id := range c.ready {
		if _, ok := c.known[id]; !ok {
			return false
		}
	}
	return true
}

func (c *Checker) drain() {
	if len(c.callbacks) == 0 || !c.IsAllReady() {
		return
	}
	queued := c.callbacks
	c.callbacks = nil
	c.logger.Debug("all drawings ready", "callbacks", len(queued))
	for _, fn := range queued {
		fn()
	}
}

// Reset drops every drawing, id and queued callback.
func (c *Checker) Reset() {
	for id, sub := range c.subs {
		c.instances[id].Unregister(sub)
	}
	c.known = make(map[string]struct{})
	c.ready = make(map[string]struct{})
	c.callbacks = nil
	c.instances = make(map[string]*engine.Drawing)
	c.order = nil
	c.subs = make(map[string]engine.Subscription)
}

// Instance returns the attached drawing with the given name.
func (c *Checker) Instance(name string) (*engine.Drawing, bool) {
	d, ok := c.instances[name]
	return d, ok
}

// InstanceByIDSuffix returns the first attached drawing with the suffix.
func (c *Checker) InstanceByIDSuffix(suffix string) (*engine.Drawing, bool) {
	for _, id := range c.order {
		if d := c.instances[id]; d.IDSuffix == suffix {
			return d, true
		}
	}
	return nil, false
}

// Instances returns the attached drawings in attach order.
func (c *Checker) Instances() []*engine.Drawing {
	out := make([]*engine.Drawing, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.instances[id])
	}
	return out
}

// Resync deregisters every known id for which live returns false.
func (c *Checker) Resync(live func(id string) bool) {
	for _, id := range slices.Sorted(maps.Keys(c.known)) {
		if !live(id) {
			c.logger.Info("dropping missing canvas", "canvas", id)
			c.Deregister(id)
		}
	}
}

func (c *Checker) Inspect() State {
	return State{
		Known:   slices.Sorted(maps.Keys(c.known)),
		Ready:   slices.Sorted(maps.Keys(c.ready)),
		Pending: len(c.callbacks),
	}
}
