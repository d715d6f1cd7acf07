package board

import (
	"LiveAnnotate/internal/net"
	"LiveAnnotate/internal/state"
)

// gesture is the pointer interaction in progress, if any.
type gesture struct {
	active bool
	tool   state.Tool
	start  state.Point
	id     string // freehand action being extended
}

// endGestureLocked abandons the current gesture without committing it and
// reports whether a preview was discarded.
func (b *Board) endGestureLocked() bool {
	b.gesture = gesture{}
	b.drag = nil
	had := b.preview != nil
	b.preview = nil
	return had
}

// PointerDown starts a gesture at pixel (px, py) with the current tool.
// Freehand tools create their action immediately; shapes wait for release;
// the text tool asks the host for text; the pointer tool picks up text.
// A press on a text's edit control opens the edit whatever the tool.
func (b *Board) PointerDown(px, py float64) {
	b.apply(func(e *effect) {
		if b.viewOnly || !b.mapper.Ready() {
			return
		}
		b.endGestureLocked()
		p := b.mapper.Normalize(px, py)
		tool := b.brush.Tool

		if id, ok := b.hitControlLocked(px, py); ok {
			if s, ok := b.editSessionLocked(id); ok {
				e.request = &TextRequest{Point: s.Point, Edit: &s}
			}
			return
		}

		switch {
		case tool.Freehand():
			a := state.NewFreehand(tool, p, b.brush.Color, b.brush.Width, b.actor.Identity, b.ids.Next(b.actor.Identity))
			b.history.Append(a)
			b.gesture = gesture{active: true, tool: tool, start: p, id: a.ID}
			e.redraw = true
			e.broadcast(net.Annotate(a))
		case tool.Shape():
			b.gesture = gesture{active: true, tool: tool, start: p}
		case tool == state.ToolText:
			e.request = &TextRequest{Point: p}
		case tool == state.ToolPointer:
			hit, ok := b.hitTestLocked(px, py)
			if !ok || !b.actor.CanEdit(hit) {
				return
			}
			b.beginDragLocked(hit, px, py)
			b.gesture = gesture{active: true, tool: tool, start: p, id: hit.ID}
		}
	})
}

// PointerMove extends the current gesture to pixel (px, py).
func (b *Board) PointerMove(px, py float64) {
	b.apply(func(e *effect) {
		if !b.gesture.active {
			return
		}
		p := b.mapper.Normalize(px, py)
		g := b.gesture

		switch {
		case g.tool.Freehand():
			last, ok := b.history.Last()
			if !ok || last.ID != g.id {
				// The stroke was cleared or deleted underneath us.
				b.gesture = gesture{}
				return
			}
			next := last.WithPoint(p)
			b.history.ReplaceLast(next)
			e.redraw = true
			e.broadcast(net.Annotate(next))
		case g.tool.Shape():
			preview := state.NewShape(g.tool, g.start, p, b.brush.Color, b.brush.Width, b.actor.Identity, "")
			b.preview = &preview
			e.redraw = true
		case g.tool == state.ToolPointer:
			if b.drag != nil {
				b.drag.moved = true
				b.updateDragLocked(e, px, py)
			}
		}
	})
}

// PointerUp commits the current gesture at pixel (px, py).
func (b *Board) PointerUp(px, py float64) {
	b.apply(func(e *effect) {
		if !b.gesture.active {
			return
		}
		p := b.mapper.Normalize(px, py)
		g := b.gesture
		b.gesture = gesture{}

		switch {
		case g.tool.Freehand():
			if last, ok := b.history.Last(); ok && last.ID == g.id {
				e.broadcast(net.Annotate(last))
			}
		case g.tool.Shape():
			a := state.NewShape(g.tool, g.start, p, b.brush.Color, b.brush.Width, b.actor.Identity, b.ids.Next(b.actor.Identity))
			b.preview = nil
			b.history.Append(a)
			e.redraw = true
			e.broadcast(net.Annotate(a))
		case g.tool == state.ToolPointer:
			d := b.drag
			b.drag = nil
			if d != nil && !d.moved {
				if s, ok := b.editSessionLocked(d.id); ok {
					e.request = &TextRequest{Point: s.Point, Edit: &s}
				}
			}
		}
	})
}

// PointerLeave ends the gesture when the pointer leaves the surface,
// committing whatever was captured up to (px, py).
func (b *Board) PointerLeave(px, py float64) {
	b.mu.Lock()
	pointerDrag := b.gesture.tool == state.ToolPointer
	b.mu.Unlock()
	if pointerDrag {
		b.EndDrag()
		return
	}
	b.PointerUp(px, py)
}
