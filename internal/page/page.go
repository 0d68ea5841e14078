// Package page hosts the drawings of one clinical page. Every drawing,
// controller and the page's readiness and sync state belong to a single
// event loop; other goroutines reach them through Do.
package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eyedraw/eyedraw/internal/checker"
	"github.com/eyedraw/eyedraw/internal/controller"
	"github.com/eyedraw/eyedraw/internal/deferred"
	"github.com/eyedraw/eyedraw/internal/document"
	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/store"
	"github.com/eyedraw/eyedraw/internal/syncer"
	"github.com/eyedraw/eyedraw/internal/typeid"
)

var ErrNoDrawing = errors.New("drawing not on page")

type Page struct {
	ID string

	logger      *slog.Logger
	loop        *deferred.Loop
	checker     *checker.Checker
	sync        *syncer.Synchronizer
	controllers []*controller.Controller
	byName      map[string]*controller.Controller

	mu        sync.Mutex
	watchers  map[int]func(Change)
	nextWatch int

	cancel context.CancelFunc
	done   chan struct{}
}

type config struct {
	logger  *slog.Logger
	store   store.Store
	delay   time.Duration
	catalog *engine.Catalog
}

type Option func(*config)

func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithStore saves settled drawings as snapshots.
func WithStore(s store.Store) Option {
	return func(c *config) { c.store = s }
}

// WithDelay sets how long saves wait for edits to settle.
func WithDelay(d time.Duration) Option {
	return func(c *config) { c.delay = d }
}

func WithCatalog(cat *engine.Catalog) Option {
	return func(c *config) { c.catalog = cat }
}

// New builds a controller per widget. Nothing runs until Run and Start.
func New(id string, widgets []controller.Properties, opts ...Option) (*Page, error) {
	cfg := config{logger: slog.Default(), delay: controller.ReportDelay}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.catalog == nil {
		return nil, errors.New("page needs a doodle catalog")
	}

	logger := cfg.logger.With("page", id)
	p := &Page{
		ID:       id,
		logger:   logger,
		loop:     deferred.NewLoop(logger),
		byName:   make(map[string]*controller.Controller),
		watchers: make(map[int]func(Change)),
		done:     make(chan struct{}),
	}
	p.checker = checker.New(logger)
	p.sync = syncer.New(p.checker, logger)

	for _, props := range widgets {
		if _, dup := p.byName[props.DrawingName]; dup {
			return nil, fmt.Errorf("drawing %s: declared twice", props.DrawingName)
		}
		copts := []controller.Option{
			controller.WithLogger(logger),
			controller.WithDrawingID(drawingID(props)),
			controller.WithDebouncer(deferred.NewDebouncer(p.loop), cfg.delay),
		}
		if cfg.store != nil {
			copts = append(copts, controller.WithSink(&storeSink{store: cfg.store, pageID: id}))
		}
		c := controller.New(props, cfg.catalog, p.checker, p.sync, copts...)
		c.Drawing().Register(engine.ObserverFunc(p.forward), WatchedEvents...)
		p.controllers = append(p.controllers, c)
		p.byName[props.DrawingName] = c
	}
	p.checker.OnAllReady(func() { p.broadcast(Change{Type: ChangeReady}) })
	return p, nil
}

// drawingID keeps the id of a restored drawing.
func drawingID(props controller.Properties) string {
	if props.Input != "" {
		if doc, err := document.DecodeJSON([]byte(props.Input)); err == nil && doc.ID != "" {
			return doc.ID
		}
	}
	return typeid.NewDrawingID()
}

// Run drives the page's loop in the background until Close.
func (p *Page) Run(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go func() {
		defer close(p.done)
		if err := p.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("page loop stopped", "error", err)
		}
	}()
}

// Start brings every drawing up in declaration order.
func (p *Page) Start(ctx context.Context) error {
	return p.loop.Do(ctx, func() {
		for _, c := range p.controllers {
			c.Start()
		}
	})
}

// Do runs fn on the page's loop and waits for it.
func (p *Page) Do(ctx context.Context, fn func()) error {
	return p.loop.Do(ctx, fn)
}

// Controller runs fn with the named drawing's controller on the loop.
func (p *Page) Controller(ctx context.Context, name string, fn func(c *controller.Controller) error) error {
	c, ok := p.byName[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNoDrawing)
	}
	var err error
	if derr := p.loop.Do(ctx, func() { err = fn(c) }); derr != nil {
		return derr
	}
	return err
}

// Drawings lists the page's drawing names in declaration order.
func (p *Page) Drawings() []string {
	out := make([]string, 0, len(p.controllers))
	for _, c := range p.controllers {
		out = append(out, c.Properties().DrawingName)
	}
	return out
}

// State reports the page's readiness.
func (p *Page) State(ctx context.Context) (checker.State, error) {
	var s checker.State
	err := p.loop.Do(ctx, func() { s = p.checker.Inspect() })
	return s, err
}

// Watch calls fn for every change on the page until the returned cancel
// runs. fn is called on the page loop and must not block.
func (p *Page) Watch(fn func(Change)) (cancel func()) {
	p.mu.Lock()
	id := p.nextWatch
	p.nextWatch++
	p.watchers[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.watchers, id)
		p.mu.Unlock()
	}
}

func (p *Page) forward(n engine.Notification) {
	if c, ok := ChangeOf(n); ok {
		p.broadcast(c)
	}
}

func (p *Page) broadcast(c Change) {
	p.mu.Lock()
	fns := make([]func(Change), 0, len(p.watchers))
	for _, fn := range p.watchers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// Close flushes pending saves, tears every drawing down and stops the loop.
func (p *Page) Close(ctx context.Context) error {
	err := p.loop.Do(ctx, func() {
		for _, c := range p.controllers {
			c.Flush()
		}
		for _, c := range p.controllers {
			c.Close()
		}
		p.checker.Reset()
	})
	if p.cancel != nil {
		p.cancel()
		select {
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
