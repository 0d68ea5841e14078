//go:build js && wasm

package main

import (
	"encoding/json"
	"strings"
	"syscall/js"

	"github.com/eyedraw/eyedraw/internal/checker"
	"github.com/eyedraw/eyedraw/internal/controller"
	"github.com/eyedraw/eyedraw/internal/document"
	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/geom"
	"github.com/eyedraw/eyedraw/internal/page"
	"github.com/eyedraw/eyedraw/internal/shapes"
	"github.com/eyedraw/eyedraw/internal/syncer"
)

const tweenFrames = 12

// browserPage is a page driven directly from JS callbacks. The browser is
// single threaded so no event loop is needed.
type browserPage struct {
	checker     *checker.Checker
	controllers map[string]*controller.Controller
	order       []string
	tweener     *engine.Tweener
	onChange    js.Value
	onSave      js.Value
}

var current *browserPage

type jsSink struct{}

func (jsSink) Save(doc *document.Drawing, report string) error {
	if current == nil || current.onSave.Type() != js.TypeFunction {
		return nil
	}
	data, err := document.EncodeJSON(doc)
	if err != nil {
		return err
	}
	current.onSave.Invoke(doc.Name, string(data), report)
	return nil
}

func main() {
	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("init", js.FuncOf(initPage))
	api.Set("onChange", js.FuncOf(onChange))
	api.Set("onSave", js.FuncOf(onSave))
	api.Set("runCommands", js.FuncOf(runCommands))
	api.Set("setParameter", js.FuncOf(setParameter))
	api.Set("load", js.FuncOf(load))
	api.Set("select", js.FuncOf(selectAt))
	api.Set("dragHandle", js.FuncOf(dragHandle))
	api.Set("mouseUp", js.FuncOf(mouseUp))
	api.Set("setReport", js.FuncOf(setReport))
	api.Set("tick", js.FuncOf(tick))

	// --- Queries (frontend ← engine) ---
	api.Set("drawings", js.FuncOf(drawingNames))
	api.Set("getScene", js.FuncOf(getScene))
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getReport", js.FuncOf(getReport))
	api.Set("isReady", js.FuncOf(isReady))

	js.Global().Set("eyedraw", api)
	js.Global().Set("eyedrawWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func failf(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// initPage builds the page from a widgets YAML or JSON string, or the
// built-in layout when none is given, and starts every drawing.
func initPage(this js.Value, args []js.Value) interface{} {
	var (
		props []controller.Properties
		err   error
	)
	if len(args) > 0 && args[0].Type() == js.TypeString && args[0].String() != "" {
		props, err = controller.ParseProperties(strings.NewReader(args[0].String()))
	} else {
		props, err = controller.DefaultProperties()
	}
	if err != nil {
		return fail(err)
	}

	catalog := shapes.Catalog()
	chk := checker.New(nil)
	sync := syncer.New(chk, nil)
	p := &browserPage{
		checker:     chk,
		controllers: make(map[string]*controller.Controller),
		tweener:     engine.NewTweener(tweenFrames, engine.EasingEaseInOut),
	}
	if current != nil {
		p.onChange, p.onSave = current.onChange, current.onSave
		for _, c := range current.controllers {
			c.Close()
		}
	}
	current = p

	for _, pr := range props {
		c := controller.New(pr, catalog, chk, sync,
			controller.WithSink(jsSink{}),
			controller.WithAnimator(p.tweener),
		)
		c.Drawing().Register(engine.ObserverFunc(p.forward), page.WatchedEvents...)
		p.controllers[pr.DrawingName] = c
		p.order = append(p.order, pr.DrawingName)
	}
	chk.OnAllReady(func() { p.emit(page.Change{Type: page.ChangeReady}) })
	for _, name := range p.order {
		p.controllers[name].Start()
	}
	return ok()
}

func (p *browserPage) forward(n engine.Notification) {
	if c, ok := page.ChangeOf(n); ok {
		p.emit(c)
	}
}

func (p *browserPage) emit(c page.Change) {
	if p.onChange.Type() != js.TypeFunction {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	p.onChange.Invoke(string(data))
}

func onChange(this js.Value, args []js.Value) interface{} {
	if current == nil || len(args) < 1 {
		return failf("call init first")
	}
	current.onChange = args[0]
	return ok()
}

func onSave(this js.Value, args []js.Value) interface{} {
	if current == nil || len(args) < 1 {
		return failf("call init first")
	}
	current.onSave = args[0]
	return ok()
}

func lookup(args []js.Value) (*controller.Controller, interface{}) {
	if current == nil {
		return nil, failf("call init first")
	}
	if len(args) < 1 {
		return nil, failf("missing drawing name")
	}
	c, found := current.controllers[args[0].String()]
	if !found {
		return nil, failf("unknown drawing " + args[0].String())
	}
	return c, nil
}

// runCommands takes a drawing name and a JSON list of ["method", [args]].
func runCommands(this js.Value, args []js.Value) interface{} {
	c, errVal := lookup(args)
	if errVal != nil {
		return errVal
	}
	if len(args) < 2 {
		return failf("missing commands JSON")
	}
	var cmds []engine.Command
	if err := json.Unmarshal([]byte(args[1].String()), &cmds); err != nil {
		return fail(err)
	}
	if err := c.Drawing().RunCommands(cmds); err != nil {
		return fail(err)
	}
	return ok()
}

func setParameter(this js.Value, args []js.Value) interface{} {
	c, errVal := lookup(args)
	if errVal != nil {
		return errVal
	}
	if len(args) < 4 {
		return failf("expected drawing, class, parameter, value")
	}
	if err := c.Drawing().SetParameterForDoodleOfClass(args[1].String(), args[2].String(), args[3].String()); err != nil {
		return fail(err)
	}
	return ok()
}

func load(this js.Value, args []js.Value) interface{} {
	c, errVal := lookup(args)
	if errVal != nil {
		return errVal
	}
	if len(args) < 2 {
		return failf("missing drawing JSON")
	}
	err := c.Drawing().LoadJSON([]byte(args[1].String()))
	c.Drawing().Repaint()
	if err != nil {
		return fail(err)
	}
	return ok()
}

func point(args []js.Value, i int) geom.Point {
	return geom.Point{X: args[i].Float(), Y: args[i+1].Float()}
}

// selectAt selects whatever lies under a canvas point and reports the hit.
func selectAt(this js.Value, args []js.Value) interface{} {
	c, errVal := lookup(args)
	if errVal != nil {
		return errVal
	}
	if len(args) < 3 {
		return failf("expected drawing, x, y")
	}
	d := c.Drawing()
	s, handle, hit := d.HitTest(point(args, 1))
	if !hit {
		d.Deselect()
		return js.ValueOf(map[string]interface{}{"hit": false})
	}
	d.Select(s)
	return js.ValueOf(map[string]interface{}{
		"hit":    true,
		"id":     s.Base().ID,
		"class":  s.ClassName(),
		"handle": handle,
	})
}

func dragHandle(this js.Value, args []js.Value) interface{} {
	c, errVal := lookup(args)
	if errVal != nil {
		return errVal
	}
	if len(args) < 4 {
		return failf("expected drawing, handle, x, y")
	}
	if err := c.Drawing().DragHandle(args[1].Int(), point(args, 2)); err != nil {
		return fail(err)
	}
	return ok()
}

func mouseUp(this js.Value, args []js.Value) interface{} {
	c, errVal := lookup(args)
	if errVal != nil {
		return errVal
	}
	c.Drawing().MouseUp()
	return ok()
}

func setReport(this js.Value, args []js.Value) interface{} {
	c, errVal := lookup(args)
	if errVal != nil {
		return errVal
	}
	if len(args) < 2 {
		return failf("missing report text")
	}
	c.SetReport(args[1].String())
	return ok()
}

// tick advances animations one frame and returns the frames as JSON.
func tick(this js.Value, args []js.Value) interface{} {
	if current == nil {
		return js.ValueOf("[]")
	}
	data, err := json.Marshal(current.tweener.Step())
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(string(data))
}

func drawingNames(this js.Value, args []js.Value) interface{} {
	if current == nil {
		return js.ValueOf([]interface{}{})
	}
	out := make([]interface{}, 0, len(current.order))
	for _, name := range current.order {
		out = append(out, name)
	}
	return js.ValueOf(out)
}

func getScene(this js.Value, args []js.Value) interface{} {
	c, errVal := lookup(args)
	if errVal != nil {
		return errVal
	}
	scene, err := c.Drawing().SceneJSON()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(scene)
}

func getDocument(this js.Value, args []js.Value) interface{} {
	c, errVal := lookup(args)
	if errVal != nil {
		return errVal
	}
	return js.ValueOf(string(c.Saved()))
}

func getReport(this js.Value, args []js.Value) interface{} {
	c, errVal := lookup(args)
	if errVal != nil {
		return errVal
	}
	return js.ValueOf(c.AutoReport())
}

func isReady(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(current != nil && current.checker.IsAllReady())
}
