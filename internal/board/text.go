package board

import (
	"math"
	"strings"

	"LiveAnnotate/internal/net"
	"LiveAnnotate/internal/render"
	"LiveAnnotate/internal/state"
)

// EditSession is the prefilled state of a text edit.
type EditSession struct {
	ID     string
	Point  state.Point
	Text   string
	Color  string
	FontPx float64
}

// drag tracks a text action being moved with the pointer tool.
type drag struct {
	id         string
	offX, offY float64 // pointer minus anchor, in pixels
	moved      bool
}

// HitTest returns the topmost text action whose rendered bounds contain
// pixel (px, py).
func (b *Board) HitTest(px, py float64) (state.Action, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hitTestLocked(px, py)
}

func (b *Board) hitTestLocked(px, py float64) (state.Action, bool) {
	for i := len(b.texts) - 1; i >= 0; i-- {
		tb := b.texts[i]
		if !tb.Bounds.Contains(px, py, state.HitPadding) {
			continue
		}
		if a, ok := b.lookupLocked(tb.ID); ok && a.Tool == state.ToolText {
			return a, true
		}
	}
	return state.Action{}, false
}

// HitControl returns the id of the topmost editable text whose edit
// control lies under pixel (px, py).
func (b *Board) HitControl(px, py float64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hitControlLocked(px, py)
}

func (b *Board) hitControlLocked(px, py float64) (string, bool) {
	if b.viewOnly {
		return "", false
	}
	reach := float64(render.ControlRadius + state.HitPadding)
	for i := len(b.texts) - 1; i >= 0; i-- {
		tb := b.texts[i]
		if math.Hypot(px-tb.Control.X, py-tb.Control.Y) > reach {
			continue
		}
		if a, ok := b.lookupLocked(tb.ID); ok && a.Tool == state.ToolText && b.actor.CanEdit(a) {
			return a.ID, true
		}
	}
	return "", false
}

// editableText reports whether the local participant gets an edit control
// for a. Called by the renderer with the lock held.
func (b *Board) editableText(a state.Action) bool {
	return !b.viewOnly && b.actor.CanEdit(a)
}

// lookupLocked finds a visible action by id in either store.
func (b *Board) lookupLocked(id string) (state.Action, bool) {
	if a, ok := b.history.Find(id); ok {
		return a, true
	}
	return b.remote.Get(id)
}

// storeLocked writes a back into whichever store holds its id.
func (b *Board) storeLocked(a state.Action) bool {
	if _, ok := b.history.Find(a.ID); ok {
		return b.history.Update(a)
	}
	return b.remote.Update(a)
}

// CanEdit reports whether the local participant may edit, move or delete a.
func (b *Board) CanEdit(a state.Action) bool {
	return !b.viewOnly && b.actor.CanEdit(a)
}

// editableLocked resolves id to an action the local participant may change.
func (b *Board) editableLocked(id string) (state.Action, bool) {
	if b.viewOnly {
		return state.Action{}, false
	}
	a, ok := b.lookupLocked(id)
	if !ok {
		return state.Action{}, false
	}
	if !b.actor.CanEdit(a) {
		b.logger.Debug("edit permission denied", "id", id, "author", a.Author)
		return state.Action{}, false
	}
	return a, true
}

// BeginEdit returns the prefilled edit session for text action id.
func (b *Board) BeginEdit(id string) (EditSession, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.editSessionLocked(id)
}

func (b *Board) editSessionLocked(id string) (EditSession, bool) {
	a, ok := b.editableLocked(id)
	if !ok {
		return EditSession{}, false
	}
	return EditSession{
		ID:     a.ID,
		Point:  *a.StartPoint,
		Text:   a.Text,
		Color:  a.Color,
		FontPx: b.fontPxLocked(a.FontSize),
	}, true
}

func (b *Board) fontPxLocked(size float64) float64 {
	if size <= 0 || !b.mapper.Ready() {
		return render.DefaultFontPx
	}
	return min(b.mapper.ScaleLength(size), render.MaxFontPx)
}

// FontSizeFromPx converts a pixel font size on the current surface to the
// normalized size stored on text actions. It fails while no surface is
// attached or when px is not a usable size.
func (b *Board) FontSizeFromPx(px float64) (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mapper.Ready() || !state.Finite(px) || px < 1 || px > render.MaxFontPx {
		return 0, false
	}
	size := b.mapper.NormalizeLength(px)
	return size, state.Finite(size) && size <= 1
}

// CommitEdit applies f to text action id in place and broadcasts the result.
// Blank text and out-of-range font sizes are rejected.
func (b *Board) CommitEdit(id string, f state.TextFields) bool {
	if f.Text != nil && strings.TrimSpace(*f.Text) == "" {
		return false
	}
	ok := false
	b.apply(func(e *effect) {
		a, found := b.editableLocked(id)
		if !found {
			return
		}
		next := a.WithText(f)
		if err := next.Validate(); err != nil {
			b.logger.Debug("rejecting text edit", "id", id, "error", err)
			return
		}
		if !b.storeLocked(next) {
			return
		}
		e.redraw = true
		e.broadcast(net.Annotate(next))
		ok = true
	})
	return ok
}

// AddText creates a text action at p with the current brush and broadcasts
// it. Blank text is ignored.
func (b *Board) AddText(p state.Point, text string) (state.Action, bool) {
	if strings.TrimSpace(text) == "" {
		return state.Action{}, false
	}
	var out state.Action
	ok := false
	b.apply(func(e *effect) {
		if b.viewOnly {
			return
		}
		out = state.NewText(p, text, b.brush.FontSize, b.brush.Color, b.actor.Identity, b.ids.Next(b.actor.Identity))
		b.history.Append(out)
		e.redraw = true
		e.broadcast(net.Annotate(out))
		ok = true
	})
	return out, ok
}

// BeginDrag grabs text action id at pixel (px, py).
func (b *Board) BeginDrag(id string, px, py float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mapper.Ready() {
		return false
	}
	a, ok := b.editableLocked(id)
	if !ok {
		return false
	}
	b.beginDragLocked(a, px, py)
	return true
}

func (b *Board) beginDragLocked(a state.Action, px, py float64) {
	x, y := b.mapper.Denormalize(*a.StartPoint)
	b.drag = &drag{id: a.ID, offX: px - x, offY: py - y}
}

// UpdateDrag moves the grabbed text so it follows the pointer.
func (b *Board) UpdateDrag(px, py float64) {
	b.apply(func(e *effect) {
		if b.drag == nil {
			return
		}
		b.drag.moved = true
		b.updateDragLocked(e, px, py)
	})
}

func (b *Board) updateDragLocked(e *effect, px, py float64) {
	a, ok := b.lookupLocked(b.drag.id)
	if !ok {
		b.drag = nil
		return
	}
	next := a.WithStart(b.mapper.Normalize(px-b.drag.offX, py-b.drag.offY))
	if !b.storeLocked(next) {
		return
	}
	e.redraw = true
	e.broadcast(net.Annotate(next))
}

// EndDrag releases the grabbed text.
func (b *Board) EndDrag() {
	b.mu.Lock()
	b.drag = nil
	if b.gesture.tool == state.ToolPointer {
		b.gesture = gesture{}
	}
	b.mu.Unlock()
}

// Delete removes text action id from whichever store holds it and
// broadcasts the deletion.
func (b *Board) Delete(id string) bool {
	ok := false
	b.apply(func(e *effect) {
		if _, found := b.editableLocked(id); !found {
			return
		}
		b.removeLocked(id)
		e.redraw = true
		e.broadcast(net.Delete(id))
		ok = true
	})
	return ok
}

func (b *Board) removeLocked(id string) bool {
	h := b.history.Remove(id)
	r := b.remote.Remove(id)
	if b.drag != nil && b.drag.id == id {
		b.drag = nil
	}
	kept := b.texts[:0:0]
	for _, tb := range b.texts {
		if tb.ID != id {
			kept = append(kept, tb)
		}
	}
	b.texts = kept
	return h || r
}
