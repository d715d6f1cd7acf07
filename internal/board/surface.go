package board

import (
	"context"
	"time"

	"LiveAnnotate/internal/state"
)

// DefaultDiscoveryInterval is how often DiscoverSurface polls its locator.
const DefaultDiscoveryInterval = 500 * time.Millisecond

// SurfaceLocator finds the rendered shared-content surface, if there is one.
type SurfaceLocator interface {
	Surface() (state.Surface, bool)
}

// SetSurface attaches the board to s and redraws.
func (b *Board) SetSurface(s state.Surface) {
	b.apply(func(e *effect) {
		b.mapper.SetSurface(s)
		e.redraw = true
	})
}

// ClearSurface detaches the board. Nothing is drawn and pointer input is
// ignored until a surface is set again.
func (b *Board) ClearSurface() {
	b.apply(func(e *effect) {
		e.redraw = b.endGestureLocked() || b.mapper.Ready()
		b.mapper.Reset()
	})
}

// DiscoverSurface polls locator every interval, attaching the board when a
// surface appears, following size changes, and detaching when it goes away.
// It returns when ctx is done.
func (b *Board) DiscoverSurface(ctx context.Context, locator SurfaceLocator, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultDiscoveryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		current state.Surface
		found   bool
	)
	poll := func() {
		s, ok := locator.Surface()
		switch {
		case ok && (!found || s != current):
			b.logger.Debug("surface attached", "width", s.Width, "height", s.Height, "fit", s.Fit)
			b.SetSurface(s)
		case !ok && found:
			b.logger.Debug("surface lost")
			b.ClearSurface()
		}
		current, found = s, ok
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			poll()
		}
	}
}
