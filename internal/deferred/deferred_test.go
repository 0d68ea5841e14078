package deferred

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := NewLoop(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l
}

func TestLoopRunsInOrder(t *testing.T) {
	l := startLoop(t)
	var got []int
	for i := range 5 {
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestPostFromInsideLoop(t *testing.T) {
	l := startLoop(t)
	var got []string
	require.NoError(t, l.Do(context.Background(), func() {
		got = append(got, "outer")
		l.Post(func() { got = append(got, "inner") })
	}))
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.Equal(t, []string{"outer", "inner"}, got)
}

func TestLoopSurvivesPanic(t *testing.T) {
	l := startLoop(t)
	err := l.Do(context.Background(), func() { panic("boom") })
	require.NoError(t, err)

	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestStoppedLoop(t *testing.T) {
	l := NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Run(ctx), context.Canceled)
	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrStopped)
}

func TestDebounceLastWriteWins(t *testing.T) {
	l := startLoop(t)
	d := NewDebouncer(l)
	fired := make(chan string, 3)
	for _, name := range []string{"a", "b", "c"} {
		d.Schedule(20*time.Millisecond, func() { fired <- name })
	}
	assert.True(t, d.Pending())

	select {
	case got := <-fired:
		assert.Equal(t, "c", got)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced callback never fired")
	}
	select {
	case got := <-fired:
		t.Fatalf("replaced callback %q fired", got)
	case <-time.After(100 * time.Millisecond):
	}
	assert.False(t, d.Pending())
}

func TestDebounceCancel(t *testing.T) {
	l := startLoop(t)
	d := NewDebouncer(l)
	fired := make(chan struct{}, 1)
	d.Schedule(10*time.Millisecond, func() { fired <- struct{}{} })
	d.Cancel()
	assert.False(t, d.Pending())

	select {
	case <-fired:
		t.Fatal("cancelled callback fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebounceFlush(t *testing.T) {
	l := startLoop(t)
	d := NewDebouncer(l)
	count := 0
	d.Schedule(time.Hour, func() { count++ })
	require.NoError(t, l.Do(context.Background(), d.Flush))
	assert.Equal(t, 1, count)

	// nothing left to flush
	require.NoError(t, l.Do(context.Background(), d.Flush))
	assert.Equal(t, 1, count)
}
