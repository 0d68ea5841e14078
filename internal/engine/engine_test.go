package engine

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/eyedraw/eyedraw/internal/geom"
)

// widget is a minimal shape: amount drives level and level drives amount.
type widget struct {
	Doodle
	readies int
}

func newWidget() Shape {
	w := &widget{}
	w.Setup("Widget")
	r := geom.NewRange(0, 100)
	w.Define(ParamSpec{Name: "amount", Kind: KindOther, Type: TypeFloat, Range: &r}, 0.0)
	w.Define(ParamSpec{Name: "level", Kind: KindDerived, Type: TypeString, List: []string{"Low", "High"}}, "Low")
	w.SavedParameters = []string{"amount", "level", "originX"}
	return w
}

func (w *widget) Dependents(parameter string, value any) map[string]any {
	switch parameter {
	case "amount":
		if value.(float64) > 50 {
			return map[string]any{"level": "High"}
		}
		return map[string]any{"level": "Low"}
	case "level":
		amount := w.Float("amount")
		if value == "High" && amount <= 50 {
			return map[string]any{"amount": 75.0}
		}
		if value == "Low" && amount > 50 {
			return map[string]any{"amount": 25.0}
		}
	}
	return nil
}

func (w *widget) Description() string { return "widget " + w.Str("level") }

func (w *widget) Events() []Event { return []Event{EventReady} }

func (w *widget) OnNotification(Notification) { w.readies++ }

func newSolo() Shape {
	s := &Doodle{}
	s.Setup("Solo")
	s.Unique = true
	return s
}

func testDrawing(t *testing.T) *Drawing {
	t.Helper()
	c := NewCatalog()
	c.Register("Widget", newWidget)
	c.Register("Solo", newSolo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDrawing("test", "A", EyeRight, c, WithLogger(logger))
}

func record(d *Drawing, events ...Event) *[]Notification {
	var got []Notification
	d.Register(ObserverFunc(func(n Notification) { got = append(got, n) }), events...)
	return &got
}

func TestSetParameterClampsAndPublishesInOrder(t *testing.T) {
	d := testDrawing(t)
	s, err := d.AddDoodle("Widget", nil)
	require.NoError(t, err)
	changes := record(d, EventParameterChanged)

	require.NoError(t, s.Base().SetParameter("amount", 150))
	assert.Equal(t, 100.0, s.Base().Float("amount"))
	assert.Equal(t, "High", s.Base().Str("level"))

	require.Len(t, *changes, 2)
	first, second := (*changes)[0].Change, (*changes)[1].Change
	assert.Equal(t, "amount", first.Parameter)
	assert.Equal(t, 0.0, first.OldValue)
	assert.Equal(t, 100.0, first.Value)
	assert.Equal(t, "level", second.Parameter)
	assert.Same(t, s.(*widget), (*changes)[0].Doodle.(*widget))
}

func TestSetParameterFromStringValidates(t *testing.T) {
	d := testDrawing(t)
	s, _ := d.AddDoodle("Widget", nil)
	b := s.Base()

	err := b.SetParameterFromString("level", "Medium", true)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Widget", ve.Class)
	assert.Equal(t, "Low", b.Str("level"))

	err = b.SetParameterFromString("colour", "Blue", true)
	assert.ErrorIs(t, err, ErrUnknownParameter)

	assert.Error(t, b.SetParameterFromString("amount", "lots", true))
	assert.Equal(t, 0.0, b.Float("amount"))

	require.NoError(t, b.SetParameterFromString("level", "High", true))
	assert.Equal(t, 75.0, b.Float("amount"))
}

func TestNonFiniteNumbersRejected(t *testing.T) {
	d := testDrawing(t)
	s, _ := d.AddDoodle("Widget", nil)
	b := s.Base()
	require.NoError(t, b.SetParameter("amount", 40.0))

	for _, raw := range []string{"NaN", "Inf", "-Inf", "+Inf"} {
		var ve *ValidationError
		require.ErrorAs(t, b.SetParameterFromString("amount", raw, true), &ve, raw)
		assert.Equal(t, "Widget", ve.Class)
	}
	assert.Error(t, b.SetParameter("amount", "NaN"))
	assert.Error(t, b.SetParameter("amount", math.Inf(1)))
	assert.Error(t, b.SetSimpleParameter("amount", math.NaN()))

	assert.Equal(t, 40.0, b.Float("amount"))
	_, err := d.SaveJSON()
	assert.NoError(t, err)
}

func TestSetSimpleParameterLeavesDependents(t *testing.T) {
	d := testDrawing(t)
	s, _ := d.AddDoodle("Widget", nil)
	b := s.Base()
	changes := record(d, EventParameterChanged)

	require.NoError(t, b.SetSimpleParameter("amount", 80))
	assert.Equal(t, "Low", b.Str("level"))
	assert.Len(t, *changes, 1)

	b.UpdateDependentParameters("amount")
	assert.Equal(t, "High", b.Str("level"))
	assert.Len(t, *changes, 2)

	require.NoError(t, b.SetSimpleParameter("amount", -30))
	assert.Equal(t, 0.0, b.Float("amount"))

	var ve *ValidationError
	assert.ErrorAs(t, b.SetSimpleParameter("level", 1), &ve)
}

func TestQuietlySuppressesNotifications(t *testing.T) {
	d := testDrawing(t)
	s, _ := d.AddDoodle("Widget", map[string]any{"amount": 90})
	changes := record(d, EventParameterChanged)
	assert.Equal(t, "High", s.Base().Str("level"))

	s.Base().Quietly(func() {
		require.NoError(t, s.Base().SetParameter("amount", 10))
	})
	assert.Empty(t, *changes)
	assert.Equal(t, "Low", s.Base().Str("level"))
}

func TestBusDeliversInRegistrationOrderAndReenters(t *testing.T) {
	d := testDrawing(t)
	var order []string
	d.Register(ObserverFunc(func(n Notification) {
		order = append(order, "first:"+n.Event.String())
		if n.Event == EventRepaint {
			d.Notify(Notification{Event: EventDrawingZoom})
		}
	}))
	d.Register(ObserverFunc(func(n Notification) {
		order = append(order, "second:"+n.Event.String())
	}), EventRepaint, EventDrawingZoom)

	d.Notify(Notification{Event: EventRepaint})
	assert.Equal(t, []string{
		"first:repaint",
		"first:drawingZoom",
		"second:drawingZoom",
		"second:repaint",
	}, order)
}

func TestBusUnregisterDuringDispatch(t *testing.T) {
	d := testDrawing(t)
	var calls int
	var second Subscription
	d.Register(ObserverFunc(func(Notification) { d.Unregister(second) }))
	second = d.Register(ObserverFunc(func(Notification) { calls++ }))

	d.Notify(Notification{Event: EventRepaint})
	d.Notify(Notification{Event: EventRepaint})
	assert.Zero(t, calls)
	assert.Equal(t, 1, d.bus.Len())
}

func TestRouterCountsMissedEvents(t *testing.T) {
	var readies int
	r := NewRouter("test", slog.New(slog.NewTextHandler(io.Discard, nil))).
		On(EventReady, func(Notification) { readies++ })
	r.HandleNotification(Notification{Event: EventReady})
	r.HandleNotification(Notification{Event: EventMouseUp})

	assert.Equal(t, 1, readies)
	assert.Equal(t, 1, r.Missed())
	assert.Equal(t, []Event{EventReady}, r.Events())
}

func TestParseEvent(t *testing.T) {
	e, ok := ParseEvent("parameterChanged")
	assert.True(t, ok)
	assert.Equal(t, EventParameterChanged, e)
	_, ok = ParseEvent("nope")
	assert.False(t, ok)
}

func TestAddDoodleUniqueAndSelection(t *testing.T) {
	d := testDrawing(t)
	added := record(d, EventDoodleAdded)
	first, err := d.AddDoodle("Solo", nil)
	require.NoError(t, err)
	second, err := d.AddDoodle("Solo", nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, d.Len())
	assert.Len(t, *added, 1)
	assert.Same(t, first, d.Selected())
	assert.NotEmpty(t, first.Base().ID)

	_, err = d.AddDoodle("Nope", nil)
	assert.ErrorIs(t, err, ErrUnknownClass)
}

func TestUniqueDoodleNotRebuilt(t *testing.T) {
	d := testDrawing(t)
	built := 0
	d.catalog.Register("Solo", func() Shape {
		built++
		return newSolo()
	})

	for range 3 {
		_, err := d.AddDoodle("Solo", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, built)
	assert.Equal(t, 1, d.Len())
}

func TestListenerAddedAfterInitGetsReady(t *testing.T) {
	d := testDrawing(t)
	early, _ := d.AddDoodle("Widget", nil)
	d.Init()
	late, _ := d.AddDoodle("Widget", nil)

	assert.Equal(t, 1, early.(*widget).readies)
	assert.Equal(t, 1, late.(*widget).readies)

	d.DeleteDoodle(late)
	d.Notify(Notification{Event: EventReady})
	assert.Equal(t, 1, late.(*widget).readies)
	assert.Equal(t, 2, early.(*widget).readies)
}

func TestOrdering(t *testing.T) {
	d := testDrawing(t)
	a, _ := d.AddDoodle("Widget", nil)
	b, _ := d.AddDoodle("Solo", nil)
	c, _ := d.AddDoodle("Widget", nil)

	assert.True(t, d.MoveNextTo(c, "Solo", false))
	assert.Equal(t, []Shape{a, c, b}, d.Doodles())
	d.MoveToFront(a)
	assert.Equal(t, []Shape{c, b, a}, d.Doodles())
	d.MoveToBack(b)
	assert.Equal(t, []Shape{b, c, a}, d.Doodles())
	assert.Same(t, c, d.FirstOfClass("Widget"))
	assert.Same(t, a, d.LastOfClass("Widget"))
}

func TestDeleteSelectedRespectsDeletable(t *testing.T) {
	d := testDrawing(t)
	s, _ := d.AddDoodle("Widget", nil)
	s.Base().Deletable = false
	assert.False(t, d.DeleteSelected())
	s.Base().Deletable = true
	assert.True(t, d.DeleteSelected())
	assert.Zero(t, d.Len())
	assert.Nil(t, d.Selected())
}

func TestSaveAndLoad(t *testing.T) {
	src := testDrawing(t)
	_, err := src.AddDoodle("Widget", map[string]any{"amount": 60, "originX": 12})
	require.NoError(t, err)
	src.AddTag("t1", "Cataract", "193570009")
	data, err := src.SaveJSON()
	require.NoError(t, err)

	dst := testDrawing(t)
	loaded := record(dst, EventDoodlesLoaded)
	require.NoError(t, dst.LoadJSON(data))
	require.Equal(t, 1, dst.Len())
	w := dst.FirstOfClass("Widget").Base()
	assert.Equal(t, 60.0, w.Float("amount"))
	assert.Equal(t, "High", w.Str("level"))
	assert.Equal(t, 12.0, w.Float("originX"))
	assert.Equal(t, []Tag{{ID: "t1", Text: "Cataract", Code: "193570009"}}, dst.Tags())
	assert.Len(t, *loaded, 1)
	assert.Equal(t, []string{"widget High"}, dst.ReportData())
}

func TestLoadSkipsUnknownClasses(t *testing.T) {
	d := testDrawing(t)
	err := d.LoadJSON([]byte(`[{"subclass":"Widget","amount":20},{"subclass":"Gone"}]`))
	assert.ErrorIs(t, err, ErrUnknownClass)
	assert.Equal(t, 1, d.Len())
}

func TestTags(t *testing.T) {
	d := testDrawing(t)
	events := record(d, EventTagAdded, EventTagDeleted)
	assert.True(t, d.AddTag("1", "Glaucoma", ""))
	assert.False(t, d.AddTag("2", "Glaucoma", ""))
	assert.True(t, d.RemoveTag("Glaucoma"))
	assert.False(t, d.RemoveTag("Glaucoma"))
	require.Len(t, *events, 2)
	assert.Equal(t, EventTagAdded, (*events)[0].Event)
	assert.Equal(t, "Glaucoma", (*events)[1].Tag.Text)
}

func TestRunCommandsContinuesPastFailures(t *testing.T) {
	var cmds []Command
	require.NoError(t, json.Unmarshal([]byte(`[
		["addDoodle", ["Widget"]],
		["explode", []],
		["setParameterForDoodleOfClass", ["Widget", "amount", 70]],
		["selectDoodleOfClass", ["Solo"]],
		["zoom", [2]]
	]`), &cmds))

	d := testDrawing(t)
	err := d.RunCommands(cmds)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 70.0, d.FirstOfClass("Widget").Base().Float("amount"))
	assert.Equal(t, 2.0, d.View().Scale)
}

func TestCommandEncodings(t *testing.T) {
	var fromYAML []Command
	require.NoError(t, yaml.Unmarshal([]byte(`
- [addDoodle, [Widget, {amount: 55}]]
- [deselectDoodles]
`), &fromYAML))
	require.Len(t, fromYAML, 2)
	assert.Equal(t, "addDoodle", fromYAML[0].Method)
	assert.Nil(t, fromYAML[1].Args)

	d := testDrawing(t)
	require.NoError(t, d.RunCommands(fromYAML))
	assert.Equal(t, "High", d.FirstOfClass("Widget").Base().Str("level"))
	assert.Nil(t, d.Selected())

	out, err := json.Marshal(Command{Method: "repaint"})
	require.NoError(t, err)
	assert.JSONEq(t, `["repaint", []]`, string(out))

	var obj Command
	require.NoError(t, json.Unmarshal([]byte(`{"method":"zoom","args":[1.5]}`), &obj))
	assert.Equal(t, []any{1.5}, obj.Args)
}

func TestTweener(t *testing.T) {
	tw := NewTweener(4, EasingLinear)
	d := testDrawing(t)
	d.animator = tw
	tw.Animate(&Doodle{ID: "w"}, "amount", 0.0, 100.0)
	tw.Animate(&Doodle{ID: "w"}, "level", "Low", "High")
	assert.Equal(t, 1, tw.Active())

	var values []float64
	for tw.Active() > 0 {
		for _, f := range tw.Step() {
			values = append(values, f.Value)
		}
	}
	assert.Equal(t, []float64{25, 50, 75, 100}, values)
	assert.InDelta(t, 0.5, Ease(0.5, EasingEaseInOut), 1e-9)
	assert.InDelta(t, 1, Ease(1, EasingCubicInOut), 1e-9)
}

func TestClockHourMirrorsLeftEye(t *testing.T) {
	right := testDrawing(t)
	s, _ := right.AddDoodle("Widget", map[string]any{"rotation": math.Pi / 2})
	assert.Equal(t, 3, s.Base().ClockHour(0))
	assert.Equal(t, 9, s.Base().ClockHour(6))

	right.eye = EyeLeft
	assert.Equal(t, 9, s.Base().ClockHour(0))
}

func TestHitTestFindsSelectedHandleFirst(t *testing.T) {
	d := testDrawing(t)
	s, _ := d.AddDoodle("Widget", nil)
	h := NewHandle(ModeScale, true)
	h.Location = geom.Pt(100, 0)
	s.Base().Handles = []*Handle{h}

	at := s.Base().CanvasTransform().TransformPoint(h.Location)
	got, handle, ok := d.HitTest(at)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 0, handle)

	_, _, ok = d.HitTest(geom.Pt(-1e6, -1e6))
	assert.False(t, ok)
}

func TestErrorsWrap(t *testing.T) {
	err := &ValidationError{Parameter: "x", Reason: "bad", Err: ErrUnknownParameter}
	assert.True(t, errors.Is(err, ErrUnknownParameter))
	assert.Contains(t, err.Error(), "invalid value")
}
