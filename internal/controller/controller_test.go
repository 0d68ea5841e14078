package controller

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eyedraw/eyedraw/internal/checker"
	"github.com/eyedraw/eyedraw/internal/deferred"
	"github.com/eyedraw/eyedraw/internal/document"
	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/shapes"
	"github.com/eyedraw/eyedraw/internal/syncer"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type memorySink struct {
	docs    []*document.Drawing
	reports []string
}

func (m *memorySink) Save(doc *document.Drawing, report string) error {
	m.docs = append(m.docs, doc)
	m.reports = append(m.reports, report)
	return nil
}

func cmd(method string, args ...any) engine.Command {
	return engine.Command{Method: method, Args: args}
}

type page struct {
	catalog *engine.Catalog
	checker *checker.Checker
	sync    *syncer.Synchronizer
}

func newPage() *page {
	c := checker.New(discard)
	return &page{catalog: shapes.Catalog(), checker: c, sync: syncer.New(c, discard)}
}

func (p *page) controller(props Properties, opts ...Option) *Controller {
	opts = append([]Option{WithLogger(discard)}, opts...)
	return New(props, p.catalog, p.checker, p.sync, opts...)
}

func classes(d *engine.Drawing) []string {
	var out []string
	for _, s := range d.Doodles() {
		out = append(out, s.ClassName())
	}
	return out
}

func TestReadyRunsCommands(t *testing.T) {
	p := newPage()
	sink := &memorySink{}
	c := p.controller(Properties{
		DrawingName: "ed_right",
		IsEditable:  true,
		OnReadyCommands: []engine.Command{
			cmd("addDoodle", "AntSeg"),
			cmd("addDoodle", "PI"),
			cmd("deselectDoodles"),
		},
	}, WithSink(sink))

	assert.False(t, c.Drawing().IsReady())
	c.Start()

	assert.True(t, c.Drawing().IsReady())
	assert.True(t, p.checker.IsAllReady())
	assert.Equal(t, []string{"AntSeg", "PI"}, classes(c.Drawing()))
	assert.Nil(t, c.Drawing().Selected())
	require.Len(t, sink.docs, 1, "saved once, when ready")
	assert.Len(t, sink.docs[0].Doodles, 2)
	assert.NotEmpty(t, c.Saved())
	assert.Zero(t, c.Missed())
}

func TestSavedInputReplacesReadyCommands(t *testing.T) {
	src := engine.NewDrawing("src", "", engine.EyeRight, shapes.Catalog(), engine.WithLogger(discard))
	_, err := src.AddDoodle("AntSeg", nil)
	require.NoError(t, err)
	input, err := src.SaveJSON()
	require.NoError(t, err)

	p := newPage()
	c := p.controller(Properties{
		DrawingName:             "ed_right",
		Input:                   string(input),
		OnReadyCommands:         []engine.Command{cmd("addDoodle", "PI")},
		OnDoodlesLoadedCommands: []engine.Command{cmd("setParameterForDoodleOfClass", "AntSeg", "pxe", "true")},
	})
	c.Start()

	assert.Equal(t, []string{"AntSeg"}, classes(c.Drawing()))
	assert.True(t, c.Drawing().FirstOfClass("AntSeg").Base().Bool("pxe"))
	assert.Contains(t, string(c.Saved()), `"pxe":true`)
}

func TestAutoReport(t *testing.T) {
	p := newPage()
	c := p.controller(Properties{DrawingName: "ed_right", IsEditable: true, AutoReport: true})
	c.Start()
	assert.Equal(t, "No abnormality", c.Report())

	_, err := c.Drawing().AddDoodle("Hypopyon", nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(c.Drawing().ReportData(), "\n"), c.Report())
	assert.Contains(t, c.Report(), "hypopyon")
}

func TestEditableReportKeepsClinicianText(t *testing.T) {
	p := newPage()
	c := p.controller(Properties{
		DrawingName:        "ed_right",
		IsEditable:         true,
		AutoReport:         true,
		AutoReportEditable: true,
	})
	c.Start()
	c.SetReport("Seen today.")

	antseg, err := c.Drawing().AddDoodle("AntSeg", nil)
	require.NoError(t, err)
	first := strings.Join(c.Drawing().ReportData(), "\n")
	assert.Equal(t, "Seen today.\n"+first, c.Report())

	require.NoError(t, antseg.Base().SetParameter("pxe", true))
	second := strings.Join(c.Drawing().ReportData(), "\n")
	assert.NotEqual(t, first, second)
	assert.Equal(t, "Seen today.\n"+second, c.Report())

	// regenerating without changes leaves the text alone
	assert.Equal(t, "Seen today.\n"+second, c.AutoReport())
}

func TestBehindClasses(t *testing.T) {
	p := newPage()
	p.catalog.Register("Overlay", func() engine.Shape {
		d := &engine.Doodle{}
		d.Setup("Overlay")
		d.BehindClasses = []string{"AntSeg"}
		return d
	})
	c := p.controller(Properties{
		DrawingName:     "ed_right",
		OnReadyCommands: []engine.Command{cmd("addDoodle", "AntSeg"), cmd("addDoodle", "Overlay")},
	})
	c.Start()
	assert.Equal(t, []string{"Overlay", "AntSeg"}, classes(c.Drawing()))
}

func TestDeselectSyncedDoodles(t *testing.T) {
	p := newPage()
	right := p.controller(Properties{
		DrawingName: "ed_right",
		IDSuffix:    "right",
		SyncArray:   syncer.Table{"left": {"AntSeg": {"AntSeg": {Parameters: []string{"pupilSize"}}}}},
	})
	left := p.controller(Properties{DrawingName: "ed_left", IDSuffix: "left", IsEditable: true})
	right.Start()
	left.Start()

	_, err := left.Drawing().AddDoodle("AntSeg", nil)
	require.NoError(t, err)
	require.NotNil(t, left.Drawing().Selected())

	right.DeselectSyncedDoodles()
	assert.Nil(t, left.Drawing().Selected())
}

func TestSyncBetweenControllers(t *testing.T) {
	p := newPage()
	table := func(target string) syncer.Table {
		return syncer.Table{target: {"AntSeg": {"AntSeg": {Parameters: []string{"pxe"}}}}}
	}
	right := p.controller(Properties{DrawingName: "ed_right", IDSuffix: "right", SyncArray: table("left"),
		OnReadyCommands: []engine.Command{cmd("addDoodle", "AntSeg")}})
	left := p.controller(Properties{DrawingName: "ed_left", IDSuffix: "left", SyncArray: table("right"),
		OnReadyCommands: []engine.Command{cmd("addDoodle", "AntSeg")}})
	right.Start()
	left.Start()

	require.NoError(t, right.Drawing().SetParameterForDoodleOfClass("AntSeg", "pxe", "true"))
	assert.True(t, left.Drawing().FirstOfClass("AntSeg").Base().Bool("pxe"))
}

func TestDebouncedSink(t *testing.T) {
	loop := deferred.NewLoop(discard)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go loop.Run(ctx)

	p := newPage()
	sink := &memorySink{}
	c := p.controller(Properties{DrawingName: "ed_right", AutoReport: true},
		WithSink(sink), WithDebouncer(deferred.NewDebouncer(loop), time.Hour))

	require.NoError(t, loop.Do(ctx, c.Start))
	require.NoError(t, loop.Do(ctx, func() {}))
	assert.Empty(t, sink.docs)

	require.NoError(t, loop.Do(ctx, c.Flush))
	assert.Len(t, sink.docs, 1)
	assert.Equal(t, []string{"No abnormality"}, sink.reports)
}

func TestClose(t *testing.T) {
	p := newPage()
	a := p.controller(Properties{DrawingName: "ed_a"})
	b := p.controller(Properties{DrawingName: "ed_b"})
	a.Start()
	assert.False(t, p.checker.IsAllReady())

	b.Close()
	assert.True(t, p.checker.IsAllReady())
	_, ok := p.checker.Instance("ed_b")
	assert.False(t, ok)
	assert.Nil(t, p.sync.Table(b.Drawing()))
}

const widgets = `
- drawingName: ed_drawing_edit_right
  idSuffix: right
  eye: Right
  isEditable: true
  scale: 0.5
  onReadyCommands:
    - [addDoodle, [AntSeg]]
    - [deselectDoodles, []]
  syncArray:
    left:
      AntSeg:
        AntSeg:
          parameters: [pupilSize]
- drawingName: ed_drawing_edit_left
  idSuffix: left
  eye: Left
`

func TestParseProperties(t *testing.T) {
	props, err := ParseProperties(strings.NewReader(widgets))
	require.NoError(t, err)
	require.Len(t, props, 2)

	right := props[0]
	assert.Equal(t, "right", right.IDSuffix)
	assert.True(t, right.IsEditable)
	assert.Equal(t, []engine.Command{cmd("addDoodle", "AntSeg"), {Method: "deselectDoodles", Args: []any{}}}, right.OnReadyCommands)
	assert.Equal(t, []string{"pupilSize"}, right.SyncArray["left"]["AntSeg"]["AntSeg"].Parameters)
	assert.InDelta(t, 0.15, right.View().Scale, 1e-9)
	assert.Equal(t, engine.EyeLeft, engine.ParseEye(props[1].Eye))

	_, err = ParseProperties(strings.NewReader("- idSuffix: right\n"))
	assert.Error(t, err)
}

func TestDefaultProperties(t *testing.T) {
	props, err := DefaultProperties()
	require.NoError(t, err)
	require.Len(t, props, 4)

	catalog := shapes.Catalog()
	for _, p := range props {
		assert.NoError(t, p.SyncArray.Validate(catalog), p.DrawingName)
	}

	pg := newPage()
	var controllers []*Controller
	for _, p := range props {
		controllers = append(controllers, pg.controller(p))
	}
	for _, c := range controllers {
		c.Start()
	}
	assert.True(t, pg.checker.IsAllReady())
	assert.Equal(t, []string{"AntSeg"}, classes(controllers[0].Drawing()))
	assert.Contains(t, controllers[0].Report(), "pupil")
}
