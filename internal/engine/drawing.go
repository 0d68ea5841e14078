package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/eyedraw/eyedraw/internal/document"
	"github.com/eyedraw/eyedraw/internal/geom"
	"github.com/eyedraw/eyedraw/internal/typeid"
)

// Eye is the laterality a drawing depicts.
type Eye int

const (
	EyeRight Eye = iota
	EyeLeft
)

func (e Eye) String() string {
	if e == EyeLeft {
		return "Left"
	}
	return "Right"
}

// ParseEye accepts "Left"/"L"/"1" for the left eye; anything else is right.
func ParseEye(s string) Eye {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l", "1":
		return EyeLeft
	}
	return EyeRight
}

// Option configures a Drawing.
type Option func(*Drawing)

// WithLogger sets the drawing's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Drawing) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithView sets the initial pan/zoom.
func WithView(v geom.View) Option {
	return func(d *Drawing) { d.view = v }
}

// WithEditable marks the drawing as editable.
func WithEditable(editable bool) Option {
	return func(d *Drawing) { d.Editable = editable }
}

// WithAnimator routes animated parameter changes to a.
func WithAnimator(a Animator) Option {
	return func(d *Drawing) { d.animator = a }
}

// WithID sets the drawing's storage id.
func WithID(id string) Option {
	return func(d *Drawing) { d.ID = id }
}

// Drawing is one canvas session: an ordered list of doodles, the selection,
// the view transform and a notification bus.
type Drawing struct {
	ID       string
	Name     string
	IDSuffix string
	Editable bool

	eye      Eye
	catalog  *Catalog
	doodles  []Shape
	selected Shape
	view     geom.View
	tags     []Tag
	bus      Bus
	animator Animator
	logger   *slog.Logger

	initialized bool
	ready       bool
	repaints    int
	listeners   map[*Doodle]Subscription
}

// NewDrawing creates an empty drawing whose doodles come from catalog.
func NewDrawing(name, idSuffix string, eye Eye, catalog *Catalog, opts ...Option) *Drawing {
	d := &Drawing{
		Name:      name,
		IDSuffix:  idSuffix,
		Editable:  true,
		eye:       eye,
		catalog:   catalog,
		view:      geom.DefaultView(),
		logger:    slog.Default(),
		listeners: make(map[*Doodle]Subscription),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("drawing", name)
	return d
}

func (d *Drawing) Eye() Eye { return d.eye }

func (d *Drawing) Catalog() *Catalog { return d.catalog }

func (d *Drawing) Logger() *slog.Logger { return d.logger }

func (d *Drawing) View() geom.View { return d.view }

// IsReady reports whether the controller finished its ready processing.
func (d *Drawing) IsReady() bool { return d.ready }

// SetReady records readiness. It does not notify.
func (d *Drawing) SetReady(ready bool) { d.ready = ready }

// Register subscribes an observer to events on this drawing.
func (d *Drawing) Register(o Observer, events ...Event) Subscription {
	return d.bus.Register(o, events...)
}

// Unregister removes a subscription.
func (d *Drawing) Unregister(id Subscription) {
	d.bus.Unregister(id)
}

// Notify publishes n synchronously to every matching observer.
func (d *Drawing) Notify(n Notification) {
	n.Drawing = d
	d.bus.Notify(n)
}

// Init announces that the drawing has loaded.
func (d *Drawing) Init() {
	d.initialized = true
	d.Notify(Notification{Event: EventReady})
}

// Teardown announces destruction and drops every subscription.
func (d *Drawing) Teardown() {
	d.Notify(Notification{Event: EventDestroyed})
	d.bus.clear()
	clear(d.listeners)
	d.ready = false
}

// Doodles returns the doodles in painting order.
func (d *Drawing) Doodles() []Shape {
	return slices.Clone(d.doodles)
}

// Len is the number of doodles.
func (d *Drawing) Len() int { return len(d.doodles) }

// Selected returns the selected doodle or nil.
func (d *Drawing) Selected() Shape { return d.selected }

// FirstOfClass returns the first doodle of class, or nil.
func (d *Drawing) FirstOfClass(class string) Shape {
	for _, s := range d.doodles {
		if s.ClassName() == class {
			return s
		}
	}
	return nil
}

// LastOfClass returns the last doodle of class, or nil.
func (d *Drawing) LastOfClass(class string) Shape {
	for i := len(d.doodles) - 1; i >= 0; i-- {
		if d.doodles[i].ClassName() == class {
			return d.doodles[i]
		}
	}
	return nil
}

// AllOfClass returns every doodle of class in order.
func (d *Drawing) AllOfClass(class string) []Shape {
	var out []Shape
	for _, s := range d.doodles {
		if s.ClassName() == class {
			out = append(out, s)
		}
	}
	return out
}

// HasDoodleOfClass reports whether any doodle has class.
func (d *Drawing) HasDoodleOfClass(class string) bool {
	return d.FirstOfClass(class) != nil
}

// DoodleByID finds a doodle by id.
func (d *Drawing) DoodleByID(id string) (Shape, bool) {
	for _, s := range d.doodles {
		if s.Base().ID == id {
			return s, true
		}
	}
	return nil, false
}

// AddDoodle creates a doodle of class with its defaults, applies params on
// top without publishing them, appends it and selects it. Adding a second instance of a unique class
// returns the existing one.
func (d *Drawing) AddDoodle(class string, params map[string]any) (Shape, error) {
	if existing := d.FirstOfClass(class); existing != nil && existing.Base().Unique {
		d.logger.Debug("unique doodle already present", "class", class)
		return existing, nil
	}
	s, err := d.catalog.New(d, class)
	if err != nil {
		return nil, err
	}
	base := s.Base()
	base.Quietly(func() {
		for _, name := range slices.Sorted(maps.Keys(params)) {
			if err := base.SetParameter(name, params[name]); err != nil {
				d.logger.Warn("initial parameter skipped", "class", class, "error", err)
			}
		}
	})
	d.attach(s)
	if d.Editable {
		d.Select(s)
	}
	d.Notify(Notification{Event: EventDoodleAdded, Doodle: s})
	return s, nil
}

// attach appends a constructed doodle and subscribes it if it listens.
func (d *Drawing) attach(s Shape) {
	base := s.Base()
	base.drawing = d
	if base.ID == "" {
		base.ID = typeid.NewDoodleID()
	}
	d.doodles = append(d.doodles, s)
	l, ok := s.(Listener)
	if !ok {
		return
	}
	events := l.Events()
	d.listeners[base] = d.bus.Register(ObserverFunc(l.OnNotification), events...)
	// A doodle added after the drawing announced readiness still needs its
	// ready processing.
	if d.initialized && slices.Contains(events, EventReady) {
		l.OnNotification(Notification{Event: EventReady, Drawing: d})
	}
}

// DeleteDoodle removes s regardless of its Deletable flag.
func (d *Drawing) DeleteDoodle(s Shape) bool {
	i := slices.Index(d.doodles, s)
	if i < 0 {
		return false
	}
	d.doodles = slices.Delete(d.doodles, i, i+1)
	base := s.Base()
	if sub, ok := d.listeners[base]; ok {
		d.bus.Unregister(sub)
		delete(d.listeners, base)
	}
	if d.selected == s {
		base.Selected = false
		d.selected = nil
	}
	d.Notify(Notification{Event: EventDoodleDeleted, Doodle: s})
	return true
}

// DeleteSelected removes the selected doodle if it is deletable.
func (d *Drawing) DeleteSelected() bool {
	if d.selected == nil || !d.selected.Base().Deletable {
		return false
	}
	return d.DeleteDoodle(d.selected)
}

// DeleteAllOfClass removes every doodle of class.
func (d *Drawing) DeleteAllOfClass(class string) int {
	n := 0
	for _, s := range d.AllOfClass(class) {
		if d.DeleteDoodle(s) {
			n++
		}
	}
	return n
}

// Select makes s the selected doodle.
func (d *Drawing) Select(s Shape) {
	if s == nil || d.selected == s {
		return
	}
	if !slices.Contains(d.doodles, s) {
		return
	}
	d.Deselect()
	d.selected = s
	s.Base().Selected = true
	d.Notify(Notification{Event: EventDoodleSelected, Doodle: s})
}

// Deselect clears the selection.
func (d *Drawing) Deselect() {
	if d.selected == nil {
		return
	}
	prev := d.selected
	prev.Base().Selected = false
	d.selected = nil
	d.Notify(Notification{Event: EventDoodleDeselected, Doodle: prev})
}

// MoveToFront paints s last.
func (d *Drawing) MoveToFront(s Shape) {
	if i := slices.Index(d.doodles, s); i >= 0 {
		d.doodles = append(slices.Delete(d.doodles, i, i+1), s)
	}
}

// MoveToBack paints s first.
func (d *Drawing) MoveToBack(s Shape) {
	if i := slices.Index(d.doodles, s); i >= 0 {
		d.doodles = slices.Insert(slices.Delete(d.doodles, i, i+1), 0, s)
	}
}

// MoveNextTo places s directly behind (or in front of) the first doodle of class.
func (d *Drawing) MoveNextTo(s Shape, class string, inFront bool) bool {
	target := d.FirstOfClass(class)
	if target == nil || target == s {
		return false
	}
	i := slices.Index(d.doodles, s)
	if i < 0 {
		return false
	}
	d.doodles = slices.Delete(d.doodles, i, i+1)
	j := slices.Index(d.doodles, target)
	if inFront {
		j++
	}
	d.doodles = slices.Insert(d.doodles, j, s)
	return true
}

// MouseUp ends a drag. Observers see the selected doodle.
func (d *Drawing) MouseUp() {
	d.Notify(Notification{Event: EventMouseUp, Doodle: d.selected})
}

// DragHandle moves handle i of the selected doodle to a canvas point.
func (d *Drawing) DragHandle(i int, canvas geom.Point) error {
	if d.selected == nil {
		return fmt.Errorf("drag handle %d: no selection: %w", i, ErrNotFound)
	}
	if err := d.selected.Base().MoveHandle(i, canvas); err != nil {
		return err
	}
	d.Notify(Notification{Event: EventMouseDragged, Doodle: d.selected})
	return nil
}

// Repaint recomputes cached doodle geometry.
func (d *Drawing) Repaint() {
	d.repaints++
	for _, s := range d.doodles {
		if r, ok := s.(Refresher); ok {
			r.Refresh()
		}
	}
	d.Notify(Notification{Event: EventRepaint})
}

// RepaintCount reports how often Repaint ran.
func (d *Drawing) RepaintCount() int { return d.repaints }

// Zoom sets the view scale.
func (d *Drawing) Zoom(scale float64) {
	if scale <= 0 {
		return
	}
	d.view.Scale = scale
	d.Notify(Notification{Event: EventDrawingZoom, Zoom: scale})
}

// Pan shifts the view offset.
func (d *Drawing) Pan(dx, dy float64) {
	d.view.OffsetX += dx
	d.view.OffsetY += dy
}

// FlipHorizontally mirrors the view.
func (d *Drawing) FlipHorizontally() {
	d.view.Flipped = !d.view.Flipped
	d.Notify(Notification{Event: EventDrawingFlipped})
}

// SetParameterForDoodleOfClass sets a form value on the first doodle of class.
func (d *Drawing) SetParameterForDoodleOfClass(class, parameter, value string) error {
	s := d.FirstOfClass(class)
	if s == nil {
		return fmt.Errorf("%s: %w", class, ErrNotFound)
	}
	return s.Base().SetParameterFromString(parameter, value, true)
}

// Save returns the persisted form of every saveable doodle plus tags.
func (d *Drawing) Save() *document.Drawing {
	doc := document.NewEmptyDrawing(d.ID, d.Name, d.IDSuffix, d.eye.String())
	for _, s := range d.doodles {
		if !s.Base().Saveable {
			continue
		}
		doc.Doodles = append(doc.Doodles, s.Base().Save())
	}
	for _, t := range d.tags {
		doc.Tags = append(doc.Tags, document.Tag{ID: t.ID, Text: t.Text, Code: t.Code})
	}
	return doc
}

// Load replaces the drawing's contents with doc and publishes doodlesLoaded.
// Records of unknown classes are skipped.
func (d *Drawing) Load(doc *document.Drawing) error {
	for _, s := range d.Doodles() {
		d.DeleteDoodle(s)
	}
	d.tags = nil
	var errs []error
	for _, rec := range doc.Doodles {
		s, err := d.catalog.Restore(d, rec)
		if err != nil {
			d.logger.Warn("saved doodle skipped", "class", rec.Class, "error", err)
			errs = append(errs, err)
			continue
		}
		d.attach(s)
	}
	for _, t := range doc.Tags {
		d.tags = append(d.tags, Tag{ID: t.ID, Text: t.Text, Code: t.Code})
	}
	d.Deselect()
	d.Notify(Notification{Event: EventDoodlesLoaded})
	if len(errs) > 0 {
		return fmt.Errorf("load %s: %d doodle(s) skipped: %w", d.Name, len(errs), errs[0])
	}
	return nil
}

// LoadJSON decodes and loads a saved drawing.
func (d *Drawing) LoadJSON(data []byte) error {
	doc, err := document.DecodeJSON(data)
	if err != nil {
		return err
	}
	return d.Load(doc)
}

// SaveJSON encodes the drawing.
func (d *Drawing) SaveJSON() ([]byte, error) {
	return document.EncodeJSON(d.Save())
}
