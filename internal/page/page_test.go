package page

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eyedraw/eyedraw/internal/controller"
	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/shapes"
	"github.com/eyedraw/eyedraw/internal/store"
	"github.com/eyedraw/eyedraw/internal/syncer"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func pxeTable(target string) syncer.Table {
	return syncer.Table{target: {"AntSeg": {"AntSeg": {Parameters: []string{"pxe"}}}}}
}

func widgets() []controller.Properties {
	ready := []engine.Command{{Method: "addDoodle", Args: []any{"AntSeg"}}}
	return []controller.Properties{
		{DrawingName: "ed_right", IDSuffix: "right", Eye: "Right", IsEditable: true, AutoReport: true,
			OnReadyCommands: ready, SyncArray: pxeTable("left")},
		{DrawingName: "ed_left", IDSuffix: "left", Eye: "Left", IsEditable: true,
			OnReadyCommands: ready, SyncArray: pxeTable("right")},
	}
}

func startPage(t *testing.T) (*Page, *[]Change) {
	t.Helper()
	ctx := context.Background()
	p, err := New("page_1", widgets(), WithLogger(discard), WithCatalog(shapes.Catalog()), WithDelay(time.Hour))
	require.NoError(t, err)

	var seen []Change
	p.Watch(func(c Change) { seen = append(seen, c) })
	p.Run(ctx)
	t.Cleanup(func() { p.Close(ctx) })
	require.NoError(t, p.Start(ctx))
	return p, &seen
}

func ofType(changes []Change, typ string) []Change {
	var out []Change
	for _, c := range changes {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func setPXE(ctx context.Context, p *Page, drawing string) error {
	return p.Controller(ctx, drawing, func(c *controller.Controller) error {
		return c.Drawing().SetParameterForDoodleOfClass("AntSeg", "pxe", "true")
	})
}

func TestPageStartsAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	p, seen := startPage(t)

	require.NotEmpty(t, *seen)
	assert.Equal(t, ChangeReady, (*seen)[len(*seen)-1].Type)
	added := ofType(*seen, ChangeAdded)
	require.Len(t, added, 2)
	assert.Equal(t, "ed_right", added[0].Drawing)
	assert.Equal(t, "AntSeg", added[0].Class)

	state, err := p.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ed_left", "ed_right"}, state.Ready)
	assert.Zero(t, state.Pending)
	assert.Equal(t, []string{"ed_right", "ed_left"}, p.Drawings())

	*seen = nil
	require.NoError(t, setPXE(ctx, p, "ed_right"))
	params := ofType(*seen, ChangeParameter)
	require.Len(t, params, 2, "the change and its synced copy")
	assert.ElementsMatch(t, []string{"ed_right", "ed_left"}, []string{params[0].Drawing, params[1].Drawing})
	for _, c := range params {
		assert.Equal(t, "pxe", c.Parameter)
		assert.Equal(t, true, c.Value)
	}
}

func TestWatchCancel(t *testing.T) {
	ctx := context.Background()
	p, seen := startPage(t)

	var late []Change
	stop := p.Watch(func(c Change) { late = append(late, c) })
	stop()
	*seen = nil
	require.NoError(t, setPXE(ctx, p, "ed_left"))
	assert.NotEmpty(t, *seen)
	assert.Empty(t, late)
}

func TestControllerUnknownDrawing(t *testing.T) {
	p, _ := startPage(t)
	err := p.Controller(context.Background(), "ed_nowhere", func(*controller.Controller) error { return nil })
	assert.ErrorIs(t, err, ErrNoDrawing)
}

func TestNewRejectsBadLayouts(t *testing.T) {
	_, err := New("p", widgets())
	assert.Error(t, err, "no catalog")

	twice := append(widgets(), widgets()[0])
	_, err = New("p", twice, WithCatalog(shapes.Catalog()))
	assert.Error(t, err)
}

func TestRegistryPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(ctx, filepath.Join(t.TempDir(), "eyedraw.db"))
	require.NoError(t, err)
	defer st.Close()

	reg := NewRegistry(ctx, RegistryConfig{
		Widgets: widgets(),
		Store:   st,
		Catalog: shapes.Catalog(),
		Delay:   time.Hour,
		Logger:  discard,
	})
	defer reg.Close(ctx)

	p, err := reg.Open(ctx, "page_1")
	require.NoError(t, err)
	again, err := reg.Open(ctx, "page_1")
	require.NoError(t, err)
	assert.Same(t, p, again)

	require.NoError(t, setPXE(ctx, p, "ed_right"))
	require.NoError(t, reg.Release(ctx, "page_1"))
	_, open := reg.Lookup("page_1")
	assert.False(t, open)

	snap, err := st.LatestSnapshot(ctx, "page_1", "ed_left")
	require.NoError(t, err)
	assert.Contains(t, string(snap.Data), `"pxe":true`)
	right, err := st.LatestSnapshot(ctx, "page_1", "ed_right")
	require.NoError(t, err)
	assert.NotEmpty(t, right.Report)

	p, err = reg.Open(ctx, "page_1")
	require.NoError(t, err)
	err = p.Controller(ctx, "ed_left", func(c *controller.Controller) error {
		assert.Len(t, c.Drawing().AllOfClass("AntSeg"), 1)
		assert.True(t, c.Drawing().FirstOfClass("AntSeg").Base().Bool("pxe"))
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, reg.Release(ctx, "missing"))
}
