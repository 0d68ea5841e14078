package engine

import (
	"log/slog"
	"slices"
)

// Event identifies a drawing notification.
type Event int

const (
	EventReady Event = iota + 1
	EventDoodlesLoaded
	EventParameterChanged
	EventDoodleAdded
	EventDoodleDeleted
	EventDoodleSelected
	EventDoodleDeselected
	EventMouseUp
	EventMouseDragged
	EventTagAdded
	EventTagDeleted
	EventDrawingZoom
	EventDrawingFlipped
	EventRepaint
	EventDestroyed
)

var eventNames = map[Event]string{
	EventReady:            "ready",
	EventDoodlesLoaded:    "doodlesLoaded",
	EventParameterChanged: "parameterChanged",
	EventDoodleAdded:      "doodleAdded",
	EventDoodleDeleted:    "doodleDeleted",
	EventDoodleSelected:   "doodleSelected",
	EventDoodleDeselected: "doodleDeselected",
	EventMouseUp:          "mouseup",
	EventMouseDragged:     "mouseDragged",
	EventTagAdded:         "tagAdded",
	EventTagDeleted:       "tagDeleted",
	EventDrawingZoom:      "drawingZoom",
	EventDrawingFlipped:   "drawingFlipped",
	EventRepaint:          "repaint",
	EventDestroyed:        "destroyed",
}

func (e Event) String() string {
	if s, ok := eventNames[e]; ok {
		return s
	}
	return "unknown"
}

// ParseEvent maps a wire name back to its Event.
func ParseEvent(name string) (Event, bool) {
	for e, s := range eventNames {
		if s == name {
			return e, true
		}
	}
	return 0, false
}

// ParameterChange is the payload of EventParameterChanged.
type ParameterChange struct {
	Parameter string
	OldValue  any
	Value     any
}

// Notification is one bus message. Doodle is the subject for doodle events and
// the selected doodle for mouse events.
type Notification struct {
	Event   Event
	Drawing *Drawing
	Doodle  Shape
	Change  *ParameterChange
	Tag     *Tag
	Zoom    float64
}

// Observer receives notifications it registered for.
type Observer interface {
	HandleNotification(n Notification)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(n Notification)

func (f ObserverFunc) HandleNotification(n Notification) { f(n) }

// Subscription identifies a registration so it can be removed.
type Subscription int

type subscription struct {
	id       Subscription
	observer Observer
	events   []Event
	removed  bool
}

// Bus delivers notifications synchronously, in registration order. Handlers
// may notify again from inside a delivery.
type Bus struct {
	subs   []*subscription
	nextID Subscription
}

// Register subscribes observer to events. No events means every event.
func (b *Bus) Register(observer Observer, events ...Event) Subscription {
	b.nextID++
	b.subs = append(b.subs, &subscription{id: b.nextID, observer: observer, events: slices.Clone(events)})
	return b.nextID
}

// Unregister removes a subscription. Removal during a dispatch takes effect
// immediately for the rest of that dispatch.
func (b *Bus) Unregister(id Subscription) {
	b.subs = slices.DeleteFunc(b.subs, func(s *subscription) bool {
		if s.id == id {
			s.removed = true
			return true
		}
		return false
	})
}

// Notify delivers n to every matching subscriber before returning.
func (b *Bus) Notify(n Notification) {
	for _, s := range slices.Clone(b.subs) {
		if s.removed {
			continue
		}
		if len(s.events) > 0 && !slices.Contains(s.events, n.Event) {
			continue
		}
		s.observer.HandleNotification(n)
	}
}

// Len reports the number of live subscriptions.
func (b *Bus) Len() int { return len(b.subs) }

func (b *Bus) clear() {
	for _, s := range b.subs {
		s.removed = true
	}
	b.subs = nil
}

// Router dispatches notifications to per-event handlers. Events with no
// handler are logged rather than dropped silently.
type Router struct {
	name     string
	handlers map[Event]func(Notification)
	logger   *slog.Logger
	missed   int
}

// NewRouter creates a router named for log output.
func NewRouter(name string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{name: name, handlers: make(map[Event]func(Notification)), logger: logger}
}

// On installs the handler for an event.
func (r *Router) On(e Event, fn func(Notification)) *Router {
	r.handlers[e] = fn
	return r
}

// Events lists the events that have handlers.
func (r *Router) Events() []Event {
	events := make([]Event, 0, len(r.handlers))
	for e := range r.handlers {
		events = append(events, e)
	}
	slices.Sort(events)
	return events
}

func (r *Router) HandleNotification(n Notification) {
	fn, ok := r.handlers[n.Event]
	if !ok {
		r.missed++
		r.logger.Warn("no handler for notification", "observer", r.name, "event", n.Event.String())
		return
	}
	fn(n)
}

// Missed counts notifications that arrived without a handler.
func (r *Router) Missed() int { return r.missed }
