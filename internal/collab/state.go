package collab

import (
	"context"
	"fmt"

	"github.com/eyedraw/eyedraw/internal/controller"
	"github.com/eyedraw/eyedraw/internal/page"
)

// pageState captures every drawing on p for a joining client.
func pageState(ctx context.Context, p *page.Page) (*PageStatePayload, error) {
	state := &PageStatePayload{Drawings: []DrawingState{}}
	for _, name := range p.Drawings() {
		err := p.Controller(ctx, name, func(c *controller.Controller) error {
			d := c.Drawing()
			data, err := d.SaveJSON()
			if err != nil {
				return err
			}
			state.Drawings = append(state.Drawings, DrawingState{
				Name:     d.Name,
				IDSuffix: d.IDSuffix,
				Eye:      d.Eye().String(),
				Editable: d.Editable,
				Document: data,
				Report:   c.Report(),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("drawing %s: %w", name, err)
		}
	}

	readiness, err := p.State(ctx)
	if err != nil {
		return nil, err
	}
	state.Readiness = readiness
	return state, nil
}
