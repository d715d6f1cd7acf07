// Package board is the collaborative annotation engine. A Board owns one
// participant's Local History and Remote Action Set, turns pointer input
// and inbound protocol messages into state changes, renders the overlay
// after every change, and broadcasts local changes.
//
// Every exported method runs to completion under the board's mutex.
// Outbound messages and redraw callbacks are issued after it is released.
package board

import (
	"log/slog"
	"sync"
	"time"

	"LiveAnnotate/internal/net"
	"LiveAnnotate/internal/render"
	"LiveAnnotate/internal/state"
)

// Sender broadcasts protocol messages. *net.Adapter implements it.
type Sender interface {
	Send(m net.Message)
}

// Brush holds the tool settings applied to newly created actions. Width
// and FontSize are normalized to the content width.
type Brush struct {
	Tool     state.Tool
	Color    string
	Width    float64
	FontSize float64
}

// DefaultBrush is a thin red pencil.
var DefaultBrush = Brush{Tool: state.ToolPencil, Color: "#e11d48", Width: 0.004, FontSize: 0.02}

// Options configures a Board.
type Options struct {
	Identity   string
	Privileged bool
	ViewOnly   bool
	Brush      Brush
	Logger     *slog.Logger
	Renderer   *render.Renderer
	Now        func() time.Time
}

// TextRequest asks the host to collect text from the user: either a new
// text at Point, or an edit of an existing action when Edit is set.
type TextRequest struct {
	Point state.Point
	Edit  *EditSession
}

// Board is one participant's annotation engine.
type Board struct {
	mu sync.Mutex

	actor    state.Actor
	viewOnly bool
	brush    Brush
	ids      *state.IDSource
	logger   *slog.Logger
	renderer *render.Renderer

	mapper  state.Mapper
	history *state.History
	remote  *state.RemoteSet
	texts   []state.TextBounds
	frame   render.Frame
	preview *state.Action
	gesture gesture
	drag    *drag

	sender        Sender
	onRedraw      func(render.Frame)
	onTextRequest func(TextRequest)
}

// New builds a board. A renderer with default settings is created when
// opts.Renderer is nil.
func New(opts Options) (*Board, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := opts.Renderer
	if r == nil {
		var err error
		if r, err = render.New(render.WithLogger(logger)); err != nil {
			return nil, err
		}
	}
	brush := opts.Brush
	if brush.Tool == "" {
		brush = DefaultBrush
	}
	b := &Board{
		actor:    state.Actor{Identity: opts.Identity, Privileged: opts.Privileged},
		viewOnly: opts.ViewOnly,
		brush:    brush,
		ids:      state.NewIDSource(opts.Now),
		logger:   logger.With("component", "board", "identity", opts.Identity),
		renderer: r,
		history:  state.NewHistory(),
		remote:   state.NewRemoteSet(),
	}
	b.frame = b.renderLocked()
	return b, nil
}

// effect collects what a mutation needs done once the lock is released.
type effect struct {
	redraw  bool
	send    []net.Message
	request *TextRequest
}

func (e *effect) broadcast(m net.Message) {
	e.send = append(e.send, m)
}

// apply runs fn under the lock, re-renders if fn asked for it, then
// notifies the host and broadcasts outside the lock.
func (b *Board) apply(fn func(e *effect)) {
	var e effect
	b.mu.Lock()
	fn(&e)
	var frame render.Frame
	if e.redraw {
		frame = b.renderLocked()
	}
	sender, onRedraw, onText := b.sender, b.onRedraw, b.onTextRequest
	b.mu.Unlock()

	if e.redraw && onRedraw != nil {
		onRedraw(frame)
	}
	if sender != nil {
		for _, m := range e.send {
			sender.Send(m)
		}
	}
	if e.request != nil && onText != nil {
		onText(*e.request)
	}
}

func (b *Board) renderLocked() render.Frame {
	scene := render.Scene{
		Metrics:  b.mapper.Metrics(),
		Actions:  append(b.history.Kept(), b.remote.All()...),
		Preview:  b.preview,
		Editable: b.editableText,
	}
	if !b.mapper.Ready() {
		scene.Metrics = state.VideoMetrics{}
	}
	b.frame = b.renderer.Paint(scene)
	b.texts = b.frame.Texts
	return b.frame
}

// Attach sets the broadcast sender. Messages produced while no sender is
// attached are discarded.
func (b *Board) Attach(s Sender) {
	b.mu.Lock()
	b.sender = s
	b.mu.Unlock()
}

// OnRedraw registers the callback receiving every new frame.
func (b *Board) OnRedraw(fn func(render.Frame)) {
	b.mu.Lock()
	b.onRedraw = fn
	b.mu.Unlock()
}

// OnTextRequest registers the callback asked to collect text input.
func (b *Board) OnTextRequest(fn func(TextRequest)) {
	b.mu.Lock()
	b.onTextRequest = fn
	b.mu.Unlock()
}

// Invalidate forces a redraw.
func (b *Board) Invalidate() {
	b.apply(func(e *effect) { e.redraw = true })
}

// Frame returns the most recent render.
func (b *Board) Frame() render.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame
}

// Identity returns the local participant's identity.
func (b *Board) Identity() string { return b.actor.Identity }

// Privileged reports whether the local participant is privileged.
func (b *Board) Privileged() bool { return b.actor.Privileged }

// ViewOnly reports whether pointer interaction is disabled.
func (b *Board) ViewOnly() bool { return b.viewOnly }

// LocalActions returns the visible part of the Local History.
func (b *Board) LocalActions() []state.Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.Kept()
}

// RemoteActions returns the Remote Action Set in arrival order.
func (b *Board) RemoteActions() []state.Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remote.All()
}

// Actions returns every visible action in paint order.
func (b *Board) Actions() []state.Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append(b.history.Kept(), b.remote.All()...)
}

// Step returns the Local History position and length.
func (b *Board) Step() (step, length int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.Step(), b.history.Len()
}

// Metrics returns the current surface metrics.
func (b *Board) Metrics() state.VideoMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mapper.Metrics()
}

// Append records a locally created action and broadcasts it.
func (b *Board) Append(a state.Action) bool {
	if err := a.Validate(); err != nil {
		b.logger.Debug("rejecting local action", "error", err)
		return false
	}
	ok := false
	b.apply(func(e *effect) {
		if b.viewOnly {
			return
		}
		a = a.Normalized()
		if a.ID == "" {
			a.ID = b.ids.Next(b.actor.Identity)
		}
		if a.Author == "" {
			a.Author = b.actor.Identity
		}
		b.history.Append(a)
		e.redraw = true
		e.broadcast(net.Annotate(a))
		ok = true
	})
	return ok
}

// Undo hides the most recent local action. It is not broadcast.
func (b *Board) Undo() bool {
	moved := false
	b.apply(func(e *effect) {
		if b.viewOnly {
			return
		}
		b.endGestureLocked()
		moved = b.history.Undo()
		e.redraw = moved
	})
	return moved
}

// Redo restores the most recently undone local action. It is not broadcast.
func (b *Board) Redo() bool {
	moved := false
	b.apply(func(e *effect) {
		if b.viewOnly {
			return
		}
		b.endGestureLocked()
		moved = b.history.Redo()
		e.redraw = moved
	})
	return moved
}

// Brush returns the current brush.
func (b *Board) Brush() Brush {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.brush
}

// SetTool selects the tool for the next gesture, ending any gesture in progress.
func (b *Board) SetTool(t state.Tool) {
	b.apply(func(e *effect) {
		e.redraw = b.endGestureLocked()
		b.brush.Tool = t
	})
}

// SetColor sets the colour for new actions.
func (b *Board) SetColor(c string) {
	b.mu.Lock()
	b.brush.Color = c
	b.mu.Unlock()
}

// SetWidth sets the normalized stroke width for new actions. Values
// outside [0,1] are ignored.
func (b *Board) SetWidth(w float64) {
	if !unitSize(w) {
		return
	}
	b.mu.Lock()
	b.brush.Width = w
	b.mu.Unlock()
}

// SetWidthPx sets the stroke width from a pixel value on the current
// surface. It is ignored while no surface is attached.
func (b *Board) SetWidthPx(px float64) {
	b.mu.Lock()
	if b.mapper.Ready() {
		if w := b.mapper.NormalizeLength(px); unitSize(w) {
			b.brush.Width = w
		}
	}
	b.mu.Unlock()
}

// SetFontSize sets the normalized font size for new text. Values outside
// [0,1] are ignored.
func (b *Board) SetFontSize(s float64) {
	if !unitSize(s) {
		return
	}
	b.mu.Lock()
	b.brush.FontSize = s
	b.mu.Unlock()
}

func unitSize(v float64) bool { return state.Finite(v) && v >= 0 && v <= 1 }
