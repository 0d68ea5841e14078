package controller

import (
	"log/slog"
	"time"

	"github.com/eyedraw/eyedraw/internal/checker"
	"github.com/eyedraw/eyedraw/internal/deferred"
	"github.com/eyedraw/eyedraw/internal/document"
	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/syncer"
)

// ReportDelay is how long the report waits for edits to settle.
const ReportDelay = 200 * time.Millisecond

// Sink receives a drawing's saved state and report once edits settle. The
// report is empty unless the widget generates one.
type Sink interface {
	Save(doc *document.Drawing, report string) error
}

// Controller wires one drawing into its page: readiness, sync, scripted
// setup commands, saving and the text report.
type Controller struct {
	props   Properties
	drawing *engine.Drawing
	checker *checker.Checker
	sync    *syncer.Synchronizer
	sink    Sink
	logger  *slog.Logger

	debounce *deferred.Debouncer
	delay    time.Duration

	drawingID string
	animator  engine.Animator
	router    *engine.Router
	saved     []byte
	report    string
	previous  string
}

type Option func(*Controller)

func WithSink(s Sink) Option {
	return func(c *Controller) { c.sink = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDebouncer defers report and sink writes through d. Without one they
// happen on every change.
func WithDebouncer(d *deferred.Debouncer, delay time.Duration) Option {
	return func(c *Controller) {
		c.debounce = d
		c.delay = delay
	}
}

// WithDrawingID sets the storage id of the drawing.
func WithDrawingID(id string) Option {
	return func(c *Controller) { c.drawingID = id }
}

// WithAnimator interpolates animated parameter changes through a.
func WithAnimator(a engine.Animator) Option {
	return func(c *Controller) { c.animator = a }
}

// New builds the drawing described by props and registers it with the
// page's checker and synchronizer. Call Start to bring it up.
func New(props Properties, catalog *engine.Catalog, chk *checker.Checker, sync *syncer.Synchronizer, opts ...Option) *Controller {
	c := &Controller{
		props:   props,
		checker: chk,
		sync:    sync,
		logger:  slog.Default(),
		delay:   ReportDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	dopts := []engine.Option{
		engine.WithID(c.drawingID),
		engine.WithEditable(props.IsEditable),
		engine.WithView(props.View()),
		engine.WithLogger(c.logger),
	}
	if c.animator != nil {
		dopts = append(dopts, engine.WithAnimator(c.animator))
	}
	c.drawing = engine.NewDrawing(props.DrawingName, props.IDSuffix, engine.ParseEye(props.Eye), catalog, dopts...)
	c.logger = c.logger.With("drawing", props.DrawingName)

	// the controller loads the drawing before the checker hears it is ready
	c.router = engine.NewRouter("controller", c.logger).
		On(engine.EventReady, c.onReady).
		On(engine.EventDoodlesLoaded, c.onDoodlesLoaded).
		On(engine.EventDoodleAdded, c.onDoodleAdded).
		On(engine.EventParameterChanged, c.changed).
		On(engine.EventDoodleDeleted, c.changed).
		On(engine.EventTagAdded, c.changed).
		On(engine.EventTagDeleted, c.changed).
		On(engine.EventMouseUp, c.changed).
		On(engine.EventDrawingZoom, c.changed)
	c.drawing.Register(c.router, c.router.Events()...)

	chk.Attach(c.drawing)
	if sync != nil {
		sync.Attach(c.drawing, props.SyncArray)
	}
	return c
}

func (c *Controller) Drawing() *engine.Drawing { return c.drawing }

func (c *Controller) Properties() Properties { return c.props }

// Start announces the drawing as loaded, which runs the ready processing.
func (c *Controller) Start() {
	c.drawing.Init()
}

// Close tears the drawing down and drops it from the page.
func (c *Controller) Close() {
	if c.debounce != nil {
		c.debounce.Cancel()
	}
	if c.sync != nil {
		c.sync.Detach(c.drawing)
	}
	c.drawing.Teardown()
}

func (c *Controller) onReady(engine.Notification) {
	if c.props.Input != "" {
		if err := c.drawing.LoadJSON([]byte(c.props.Input)); err != nil {
			c.logger.Warn("saved drawing loaded with errors", "error", err)
		}
		c.drawing.Repaint()
	} else {
		c.runCommands("onReady", c.props.OnReadyCommands)
	}

	if c.props.AutoReport {
		c.AutoReport()
	}
	c.drawing.SetReady(true)
	c.save()
}

func (c *Controller) onDoodlesLoaded(engine.Notification) {
	c.runCommands("onDoodlesLoaded", c.props.OnDoodlesLoadedCommands)
}

func (c *Controller) runCommands(stage string, cmds []engine.Command) {
	if len(cmds) == 0 {
		return
	}
	if err := c.drawing.RunCommands(cmds); err != nil {
		c.logger.Warn("setup commands failed", "stage", stage, "error", err)
	}
}

func (c *Controller) onDoodleAdded(n engine.Notification) {
	if n.Doodle != nil {
		for _, class := range n.Doodle.Base().BehindClasses {
			c.drawing.MoveNextTo(n.Doodle, class, false)
		}
	}
	c.changed(n)
}

func (c *Controller) changed(engine.Notification) {
	c.save()
}

// save records the drawing and schedules the report and sink writes.
func (c *Controller) save() {
	if !c.drawing.IsReady() {
		return
	}
	data, err := c.drawing.SaveJSON()
	if err != nil {
		c.logger.Error("drawing not saved", "error", err)
		return
	}
	c.saved = data

	if c.debounce == nil {
		c.settle()
		return
	}
	c.debounce.Schedule(c.delay, c.settle)
}

func (c *Controller) settle() {
	if c.props.AutoReport {
		c.AutoReport()
	}
	if c.sink == nil {
		return
	}
	if err := c.sink.Save(c.drawing.Save(), c.report); err != nil {
		c.logger.Error("drawing not stored", "error", err)
	}
}

// Saved returns the drawing JSON as of the last change.
func (c *Controller) Saved() []byte { return c.saved }

// Flush runs any pending report and sink writes now.
func (c *Controller) Flush() {
	if c.debounce != nil {
		c.debounce.Flush()
	}
}

// DeselectSyncedDoodles clears the selection in every drawing this one
// syncs into.
func (c *Controller) DeselectSyncedDoodles() {
	for _, suffix := range c.props.SyncArray.Targets() {
		d, ok := c.checker.InstanceByIDSuffix(suffix)
		if !ok {
			c.logger.Warn("sync target not found", "target", suffix)
			continue
		}
		d.Deselect()
	}
}

// Missed counts notifications the controller had no handler for.
func (c *Controller) Missed() int { return c.router.Missed() }
