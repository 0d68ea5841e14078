package checker

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eyedraw/eyedraw/internal/engine"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func drawing(name, suffix string) *engine.Drawing {
	return engine.NewDrawing(name, suffix, engine.EyeRight, engine.NewCatalog(), engine.WithLogger(discard))
}

func TestThreeCanvasBarrier(t *testing.T) {
	c := New(discard)
	a, b, d := drawing("ed_a", "a"), drawing("ed_b", "b"), drawing("ed_c", "c")
	c.Attach(a)
	c.Attach(b)
	c.Attach(d)

	fired := 0
	c.OnAllReady(func() { fired++ })

	a.Init()
	b.Init()
	assert.False(t, c.IsAllReady())
	assert.Equal(t, 0, fired)

	d.Init()
	assert.True(t, c.IsAllReady())
	assert.Equal(t, 1, fired, "callback runs inside the third ready dispatch")

	d.Init()
	assert.Equal(t, 1, fired)
}

func TestBarrierCompleteness(t *testing.T) {
	c := New(discard)
	const n = 5
	ids := []string{"1", "2", "3", "4", "5"}
	for _, id := range ids {
		c.Register(id)
	}

	counts := make([]int, 3)
	for i := range counts {
		c.OnAllReady(func() { counts[i]++ })
	}
	for _, id := range ids {
		c.MarkReady(id)
	}
	assert.Equal(t, []int{1, 1, 1}, counts)
	assert.Equal(t, n, len(c.Inspect().Ready))

	c.Register("6")
	assert.False(t, c.IsAllReady())

	late := 0
	c.OnAllReady(func() { late++ })
	assert.Equal(t, 0, late)
	c.MarkReady("6")
	assert.Equal(t, 1, late)
	assert.Equal(t, []int{1, 1, 1}, counts)
}

func TestOnAllReadyWhenSatisfied(t *testing.T) {
	c := New(discard)
	ran := false
	c.OnAllReady(func() { ran = true })
	assert.True(t, ran, "no known canvases means the barrier is open")

	c.Register("x")
	c.MarkReady("x")
	ran = false
	c.OnAllReady(func() { ran = true })
	assert.True(t, ran)
}

func TestDeregisterRemovesBothSets(t *testing.T) {
	c := New(discard)
	for _, id := range []string{"a", "b", "c"} {
		c.Register(id)
	}
	c.MarkReady("a")
	c.Deregister("a")

	st := c.Inspect()
	assert.Equal(t, []string{"b", "c"}, st.Known)
	assert.Empty(t, st.Ready)
	assert.False(t, c.IsAllReady())

	fired := 0
	c.OnAllReady(func() { fired++ })
	c.MarkReady("b")
	assert.Equal(t, 0, fired)

	// the only canvas still loading goes away
	c.Deregister("c")
	assert.True(t, c.IsAllReady())
	assert.Equal(t, 1, fired)
}

func TestMarkReadyUnknown(t *testing.T) {
	c := New(discard)
	c.Register("a")
	c.MarkReady("ghost")
	st := c.Inspect()
	assert.Empty(t, st.Ready)
	assert.Equal(t, []string{"a"}, st.Known)
	assert.False(t, c.IsAllReady())
}

func TestCallbackQueuedDuringDrain(t *testing.T) {
	c := New(discard)
	c.Register("a")
	var order []string
	c.OnAllReady(func() {
		order = append(order, "first")
		c.OnAllReady(func() { order = append(order, "nested") })
	})
	c.OnAllReady(func() { order = append(order, "second") })
	c.MarkReady("a")
	assert.Equal(t, []string{"first", "nested", "second"}, order)
	assert.Zero(t, c.Inspect().Pending)
}

func TestTeardownDeregisters(t *testing.T) {
	c := New(discard)
	a, b := drawing("ed_a", "a"), drawing("ed_b", "b")
	c.Attach(a)
	c.Attach(b)
	a.Init()

	fired := 0
	c.OnAllReady(func() { fired++ })
	b.Teardown()

	assert.Equal(t, 1, fired)
	_, ok := c.Instance("ed_b")
	assert.False(t, ok)
	assert.Equal(t, []string{"ed_a"}, c.Inspect().Known)
}

func TestInstanceLookup(t *testing.T) {
	c := New(discard)
	right := drawing("ed_right", "right")
	left := drawing("ed_left", "left")
	c.Attach(right)
	c.Attach(left)

	got, ok := c.InstanceByIDSuffix("left")
	require.True(t, ok)
	assert.Same(t, left, got)

	got, ok = c.Instance("ed_right")
	require.True(t, ok)
	assert.Same(t, right, got)

	_, ok = c.InstanceByIDSuffix("missing")
	assert.False(t, ok)
	assert.Equal(t, []*engine.Drawing{right, left}, c.Instances())
}

func TestReset(t *testing.T) {
	c := New(discard)
	a := drawing("ed_a", "a")
	c.Attach(a)
	c.Register("b")
	c.OnAllReady(func() { t.Fatal("reset must drop queued callbacks") })

	c.Reset()
	st := c.Inspect()
	assert.Empty(t, st.Known)
	assert.Empty(t, st.Ready)
	assert.Zero(t, st.Pending)

	// the drawing no longer reports to this checker
	a.Init()
	assert.Empty(t, c.Inspect().Ready)
}

func TestResync(t *testing.T) {
	c := New(discard)
	for _, id := range []string{"a", "b", "c"} {
		c.Register(id)
	}
	c.Resync(func(id string) bool { return id != "b" })
	assert.Equal(t, []string{"a", "c"}, c.Inspect().Known)
}
