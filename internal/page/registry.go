package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/eyedraw/eyedraw/internal/controller"
	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/store"
	"github.com/eyedraw/eyedraw/internal/syncer"
)

// Registry opens pages on demand from a shared widget layout and keeps
// them running until released.
type Registry struct {
	ctx     context.Context
	widgets []controller.Properties
	tables  syncer.PageTable
	store   store.Store
	catalog *engine.Catalog
	delay   time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	pages map[string]*Page
}

type RegistryConfig struct {
	Widgets []controller.Properties
	// Tables replaces the sync table of the named drawings.
	Tables  syncer.PageTable
	Store   store.Store
	Catalog *engine.Catalog
	Delay   time.Duration
	Logger  *slog.Logger
}

// NewRegistry returns a registry whose page loops live as long as ctx.
func NewRegistry(ctx context.Context, cfg RegistryConfig) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := cfg.Delay
	if delay == 0 {
		delay = controller.ReportDelay
	}
	return &Registry{
		ctx:     ctx,
		widgets: cfg.Widgets,
		tables:  cfg.Tables,
		store:   cfg.Store,
		catalog: cfg.Catalog,
		delay:   delay,
		logger:  logger,
		pages:   make(map[string]*Page),
	}
}

// Open returns the running page, creating it from the latest stored
// snapshots when it is not open yet.
func (r *Registry) Open(ctx context.Context, pageID string) (*Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pages[pageID]; ok {
		return p, nil
	}

	widgets, err := r.layout(ctx, pageID)
	if err != nil {
		return nil, err
	}
	opts := []Option{WithLogger(r.logger), WithCatalog(r.catalog), WithDelay(r.delay)}
	if r.store != nil {
		opts = append(opts, WithStore(r.store))
	}
	p, err := New(pageID, widgets, opts...)
	if err != nil {
		return nil, err
	}
	p.Run(r.ctx)
	if err := p.Start(ctx); err != nil {
		p.Close(context.Background())
		return nil, fmt.Errorf("start page %s: %w", pageID, err)
	}
	r.pages[pageID] = p
	r.logger.Info("page opened", "page", pageID, "drawings", len(widgets))
	return p, nil
}

func (r *Registry) layout(ctx context.Context, pageID string) ([]controller.Properties, error) {
	saved := map[string]string{}
	if r.store != nil {
		snaps, err := r.store.ListSnapshots(ctx, pageID)
		if err != nil {
			return nil, fmt.Errorf("load page %s: %w", pageID, err)
		}
		for _, s := range snaps {
			saved[s.Drawing] = string(s.Data)
		}
	}

	widgets := slices.Clone(r.widgets)
	for i := range widgets {
		w := &widgets[i]
		if table, ok := r.tables[w.DrawingName]; ok {
			w.SyncArray = table
		}
		if data, ok := saved[w.DrawingName]; ok {
			w.Input = data
		}
	}
	return widgets, nil
}

// Lookup returns a page only if it is already open.
func (r *Registry) Lookup(pageID string) (*Page, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[pageID]
	return p, ok
}

// Release flushes and closes one page.
func (r *Registry) Release(ctx context.Context, pageID string) error {
	r.mu.Lock()
	p, ok := r.pages[pageID]
	delete(r.pages, pageID)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	r.logger.Info("page released", "page", pageID)
	return p.Close(ctx)
}

// Close releases every open page.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	ids := slices.Sorted(maps.Keys(r.pages))
	r.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := r.Release(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("page %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
