// Package drawings serves the REST view of pages: their drawings, reports
// and saved history, plus scripted edits.
package drawings

import (
	"context"
	"errors"
	"fmt"

	"github.com/eyedraw/eyedraw/internal/checker"
	"github.com/eyedraw/eyedraw/internal/controller"
	"github.com/eyedraw/eyedraw/internal/document"
	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/page"
	"github.com/eyedraw/eyedraw/internal/store"
)

var ErrNoHistory = errors.New("no saved history")

// Pages opens the page a request names.
type Pages interface {
	Open(ctx context.Context, pageID string) (*page.Page, error)
}

type Service struct {
	pages Pages
	store store.Store
}

func NewService(pages Pages, st store.Store) *Service {
	return &Service{pages: pages, store: st}
}

type DrawingSummary struct {
	Name     string `json:"drawingName"`
	IDSuffix string `json:"idSuffix,omitempty"`
	Eye      string `json:"eye"`
	Editable bool   `json:"isEditable"`
	Doodles  int    `json:"doodles"`
	Ready    bool   `json:"ready"`
}

type PageSummary struct {
	ID        string           `json:"id"`
	Drawings  []DrawingSummary `json:"drawings"`
	Readiness checker.State    `json:"readiness"`
}

type Report struct {
	Drawing string        `json:"drawing"`
	Text    string        `json:"text"`
	Lines   []string      `json:"lines"`
	Codes   []engine.Code `json:"codes"`
}

func (s *Service) Page(ctx context.Context, pageID string) (*PageSummary, error) {
	p, err := s.pages.Open(ctx, pageID)
	if err != nil {
		return nil, err
	}
	summary := &PageSummary{ID: p.ID, Drawings: []DrawingSummary{}}
	err = s.each(ctx, p, func(c *controller.Controller) error {
		d := c.Drawing()
		summary.Drawings = append(summary.Drawings, DrawingSummary{
			Name:     d.Name,
			IDSuffix: d.IDSuffix,
			Eye:      d.Eye().String(),
			Editable: d.Editable,
			Doodles:  d.Len(),
			Ready:    d.IsReady(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	summary.Readiness, err = p.State(ctx)
	return summary, err
}

// Drawing returns the saved form of one drawing.
func (s *Service) Drawing(ctx context.Context, pageID, name string) (*document.Drawing, error) {
	var doc *document.Drawing
	err := s.with(ctx, pageID, name, func(c *controller.Controller) error {
		doc = c.Drawing().Save()
		return nil
	})
	return doc, err
}

func (s *Service) Scene(ctx context.Context, pageID, name string) ([]engine.DoodleView, error) {
	var scene []engine.DoodleView
	err := s.with(ctx, pageID, name, func(c *controller.Controller) error {
		scene = c.Drawing().Scene()
		return nil
	})
	return scene, err
}

// Reports regenerates the report of every drawing on the page.
func (s *Service) Reports(ctx context.Context, pageID string) ([]Report, error) {
	p, err := s.pages.Open(ctx, pageID)
	if err != nil {
		return nil, err
	}
	out := []Report{}
	err = s.each(ctx, p, func(c *controller.Controller) error {
		d := c.Drawing()
		lines := d.ReportData()
		if lines == nil {
			lines = []string{}
		}
		out = append(out, Report{
			Drawing: d.Name,
			Text:    c.AutoReport(),
			Lines:   lines,
			Codes:   c.Codes(),
		})
		return nil
	})
	return out, err
}

// RunCommands runs scripted calls against one drawing. Every command runs;
// the failures come back joined.
func (s *Service) RunCommands(ctx context.Context, pageID, name string, cmds []engine.Command) error {
	return s.with(ctx, pageID, name, func(c *controller.Controller) error {
		return c.Drawing().RunCommands(cmds)
	})
}

// SetParameters sets form values on the first doodle of class.
func (s *Service) SetParameters(ctx context.Context, pageID, name, class string, values map[string]string) error {
	return s.with(ctx, pageID, name, func(c *controller.Controller) error {
		var errs []error
		for _, param := range sortedKeys(values) {
			if err := c.Drawing().SetParameterForDoodleOfClass(class, param, values[param]); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// History lists the latest stored snapshot of every drawing on the page.
func (s *Service) History(ctx context.Context, pageID string) ([]store.Snapshot, error) {
	if s.store == nil {
		return nil, ErrNoHistory
	}
	snaps, err := s.store.ListSnapshots(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if snaps == nil {
		snaps = []store.Snapshot{}
	}
	return snaps, nil
}

func (s *Service) with(ctx context.Context, pageID, name string, fn func(c *controller.Controller) error) error {
	p, err := s.pages.Open(ctx, pageID)
	if err != nil {
		return err
	}
	return p.Controller(ctx, name, fn)
}

func (s *Service) each(ctx context.Context, p *page.Page, fn func(c *controller.Controller) error) error {
	for _, name := range p.Drawings() {
		if err := p.Controller(ctx, name, fn); err != nil {
			return err
		}
	}
	return nil
}
