package board

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveAnnotate/internal/state"
)

type fakeLocator struct {
	mu      sync.Mutex
	surface state.Surface
	ok      bool
}

func (l *fakeLocator) set(s state.Surface, ok bool) {
	l.mu.Lock()
	l.surface, l.ok = s, ok
	l.mu.Unlock()
}

func (l *fakeLocator) Surface() (state.Surface, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.surface, l.ok
}

func TestSetSurfaceLetterbox(t *testing.T) {
	b, err := New(Options{Identity: "Teacher"})
	require.NoError(t, err)

	b.SetSurface(state.Surface{Width: 1000, Height: 1000, IntrinsicWidth: 1920, IntrinsicHeight: 1080, Fit: state.FitContain})
	m := b.Metrics()
	assert.InDelta(t, 562.5, m.ContentHeight, 1e-9)
	assert.InDelta(t, 218.75, m.OffsetY, 1e-9)

	b.PointerDown(500, 218.75)
	b.PointerUp(500, 218.75)
	a := b.LocalActions()[0]
	assert.InDelta(t, 0.5, a.Points[0].X, 1e-9)
	assert.InDelta(t, 0, a.Points[0].Y, 1e-9)

	b.ClearSurface()
	assert.Equal(t, state.VideoMetrics{}, b.Metrics())
	assert.Equal(t, 1, b.Frame().Image.Bounds().Dx())
	assert.Len(t, b.LocalActions(), 1, "state survives losing the surface")
}

func TestDiscoverSurface(t *testing.T) {
	b, err := New(Options{Identity: "Teacher"})
	require.NoError(t, err)
	loc := &fakeLocator{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.DiscoverSurface(ctx, loc, 5*time.Millisecond) }()

	loc.set(state.Surface{Width: 800, Height: 600}, true)
	require.Eventually(t, func() bool { return b.Metrics().CSSWidth == 800 }, time.Second, 5*time.Millisecond)

	loc.set(state.Surface{Width: 640, Height: 480}, true)
	require.Eventually(t, func() bool { return b.Metrics().CSSWidth == 640 }, time.Second, 5*time.Millisecond)

	loc.set(state.Surface{}, false)
	require.Eventually(t, func() bool { return b.Metrics().CSSWidth == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("discovery did not stop")
	}
}
