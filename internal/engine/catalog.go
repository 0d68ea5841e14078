package engine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/eyedraw/eyedraw/internal/document"
)

// Constructor builds an unattached doodle with its class defaults declared.
type Constructor func() Shape

// Catalog maps class names to constructors. It is safe for concurrent
// registration and lookup; drawings built from it are not.
type Catalog struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{ctors: make(map[string]Constructor)}
}

// Register adds or replaces a class.
func (c *Catalog) Register(class string, ctor Constructor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctors[class] = ctor
}

// Has reports whether class is registered.
func (c *Catalog) Has(class string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ctors[class]
	return ok
}

// Classes lists registered classes alphabetically.
func (c *Catalog) Classes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.ctors))
	for name := range c.ctors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (c *Catalog) construct(class string) (Shape, error) {
	c.mu.RLock()
	ctor, ok := c.ctors[class]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", class, ErrUnknownClass)
	}
	s := ctor()
	d := s.Base()
	d.self = s
	if d.class == "" {
		d.class = class
	}
	return s, nil
}

// New builds a doodle for drawing with its class defaults applied. The
// doodle is not added to the drawing.
func (c *Catalog) New(drawing *Drawing, class string) (Shape, error) {
	s, err := c.construct(class)
	if err != nil {
		return nil, err
	}
	d := s.Base()
	d.drawing = drawing
	if df, ok := s.(Defaulter); ok {
		d.Quietly(df.SetParameterDefaults)
	}
	return s, nil
}

// Restore rebuilds a saved doodle for drawing and re-runs dependency
// resolution over the saved values.
func (c *Catalog) Restore(drawing *Drawing, rec document.Doodle) (Shape, error) {
	s, err := c.construct(rec.Class)
	if err != nil {
		return nil, err
	}
	d := s.Base()
	d.drawing = drawing
	d.restore(rec)
	return s, nil
}
