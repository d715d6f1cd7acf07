package ui

import (
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"LiveAnnotate/internal/board"
	"LiveAnnotate/internal/render"
	"LiveAnnotate/internal/state"
)

// Overlay is the annotation layer drawn over the shared content. It feeds
// pointer events to the board and shows the frames the board renders. It
// is also the board's SurfaceLocator.
type Overlay struct {
	widget.BaseWidget
	board *board.Board

	intrinsicW, intrinsicH float64
	fit                    state.FitMode

	mu      sync.Mutex
	size    fyne.Size
	frame   image.Image
	pressed bool
	last    fyne.Position
}

var _ fyne.Widget = (*Overlay)(nil)
var _ fyne.Draggable = (*Overlay)(nil)
var _ desktop.Mouseable = (*Overlay)(nil)
var _ desktop.Hoverable = (*Overlay)(nil)
var _ board.SurfaceLocator = (*Overlay)(nil)

// NewOverlay builds an overlay for content of the given intrinsic size
// fitted into the widget with fit.
func NewOverlay(b *board.Board, intrinsicW, intrinsicH int, fit state.FitMode) *Overlay {
	o := &Overlay{
		board:      b,
		intrinsicW: float64(intrinsicW),
		intrinsicH: float64(intrinsicH),
		fit:        fit,
		frame:      b.Frame().Image,
	}
	o.ExtendBaseWidget(o)
	b.OnRedraw(o.showFrame)
	return o
}

// Surface reports the widget's current box and the content it shows.
func (o *Overlay) Surface() (state.Surface, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.size.Width <= 0 || o.size.Height <= 0 {
		return state.Surface{}, false
	}
	return state.Surface{
		Width:           float64(o.size.Width),
		Height:          float64(o.size.Height),
		IntrinsicWidth:  o.intrinsicW,
		IntrinsicHeight: o.intrinsicH,
		Fit:             o.fit,
	}, true
}

// Resize records the new box and attaches the board to it straight away.
func (o *Overlay) Resize(size fyne.Size) {
	o.BaseWidget.Resize(size)
	o.mu.Lock()
	changed := o.size != size
	o.size = size
	o.mu.Unlock()
	if changed {
		if s, ok := o.Surface(); ok {
			o.board.SetSurface(s)
		}
	}
}

func (o *Overlay) showFrame(f render.Frame) {
	o.mu.Lock()
	o.frame = f.Image
	o.mu.Unlock()
	fyne.Do(o.Refresh)
}

func (o *Overlay) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	o.mu.Lock()
	o.pressed = true
	o.last = e.Position
	o.mu.Unlock()
	o.board.PointerDown(float64(e.Position.X), float64(e.Position.Y))
}

func (o *Overlay) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	o.release(e.Position)
}

func (o *Overlay) Dragged(e *fyne.DragEvent) {
	o.move(e.Position)
}

func (o *Overlay) DragEnd() {
	o.mu.Lock()
	last := o.last
	o.mu.Unlock()
	o.release(last)
}

func (o *Overlay) MouseIn(*desktop.MouseEvent) {}

func (o *Overlay) MouseMoved(e *desktop.MouseEvent) {
	o.move(e.Position)
}

func (o *Overlay) MouseOut() {
	o.mu.Lock()
	pressed, last := o.pressed, o.last
	o.pressed = false
	o.mu.Unlock()
	if pressed {
		o.board.PointerLeave(float64(last.X), float64(last.Y))
	}
}

func (o *Overlay) move(p fyne.Position) {
	o.mu.Lock()
	pressed := o.pressed
	if pressed {
		if p == o.last {
			pressed = false
		}
		o.last = p
	}
	o.mu.Unlock()
	if pressed {
		o.board.PointerMove(float64(p.X), float64(p.Y))
	}
}

// release ends the gesture once, whichever of MouseUp and DragEnd comes first.
func (o *Overlay) release(p fyne.Position) {
	o.mu.Lock()
	pressed := o.pressed
	o.pressed = false
	o.mu.Unlock()
	if pressed {
		o.board.PointerUp(float64(p.X), float64(p.Y))
	}
}

func (o *Overlay) CreateRenderer() fyne.WidgetRenderer {
	img := canvas.NewImageFromImage(o.currentFrame())
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScalePixels
	r := &overlayRenderer{
		overlay:    o,
		background: canvas.NewRectangle(color.NRGBA{R: 32, G: 32, B: 36, A: 255}),
		content:    canvas.NewRectangle(color.White),
		image:      img,
	}
	return r
}

func (o *Overlay) currentFrame() image.Image {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frame
}

// overlayRenderer stacks the letterbox background, the content rectangle
// and the annotation frame.
type overlayRenderer struct {
	overlay    *Overlay
	background *canvas.Rectangle
	content    *canvas.Rectangle
	image      *canvas.Image
}

func (r *overlayRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.background, r.content, r.image}
}

func (r *overlayRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	r.image.Resize(size)

	m := r.overlay.board.Metrics()
	r.content.Move(fyne.NewPos(float32(m.OffsetX), float32(m.OffsetY)))
	r.content.Resize(fyne.NewSize(float32(m.ContentWidth), float32(m.ContentHeight)))
}

func (r *overlayRenderer) Refresh() {
	r.image.Image = r.overlay.currentFrame()
	r.Layout(r.overlay.Size())
	canvas.Refresh(r.image)
	canvas.Refresh(r.content)
}

func (r *overlayRenderer) MinSize() fyne.Size {
	return fyne.NewSize(320, 180)
}

func (r *overlayRenderer) Destroy() {}
