// Package render rasterises annotation actions onto a transparent overlay
// the size of the shared surface.
package render

import (
	"image"
	"image/color"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/fogleman/gg"

	"LiveAnnotate/internal/state"
)

// EraserScale widens eraser strokes relative to their nominal width.
const EraserScale = 3

// ControlRadius is the pixel radius of the edit control drawn beside
// editable text.
const ControlRadius = 8

// Scene is everything one render pass draws, in paint order.
type Scene struct {
	Metrics  state.VideoMetrics
	Actions  []state.Action
	Preview  *state.Action
	// Editable selects the text actions that get an edit control. No
	// controls are drawn when it is nil.
	Editable func(state.Action) bool
}

// Frame is the result of a render pass.
type Frame struct {
	Image *image.RGBA
	Texts []state.TextBounds
}

// Observer receives render durations in seconds. A prometheus Histogram
// satisfies it.
type Observer interface {
	Observe(float64)
}

// Renderer paints scenes. It is safe for use by one goroutine at a time.
type Renderer struct {
	fonts    *FontCache
	logger   *slog.Logger
	observer Observer
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger used for skipped actions.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithObserver records the duration of each Paint.
func WithObserver(o Observer) Option {
	return func(r *Renderer) { r.observer = o }
}

// New returns a Renderer using the embedded Go Regular font.
func New(opts ...Option) (*Renderer, error) {
	fonts, err := NewFontCache()
	if err != nil {
		return nil, err
	}
	r := &Renderer{fonts: fonts, logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	r.logger = r.logger.With("component", "render")
	return r, nil
}

// Paint draws s onto a fresh transparent image and records the bounds of
// every text action that has an id.
func (r *Renderer) Paint(s Scene) Frame {
	start := time.Now()
	defer func() {
		if r.observer != nil {
			r.observer.Observe(time.Since(start).Seconds())
		}
	}()

	w, h := int(math.Ceil(s.Metrics.CSSWidth)), int(math.Ceil(s.Metrics.CSSHeight))
	if w <= 0 || h <= 0 {
		return Frame{Image: image.NewRGBA(image.Rect(0, 0, 1, 1))}
	}

	im := image.NewRGBA(image.Rect(0, 0, w, h))
	p := &painter{
		dc:     gg.NewContextForRGBA(im),
		im:     im,
		mapper: state.NewMapper(s.Metrics),
		fonts:  r.fonts,
		edit:   s.Editable,
	}
	for _, a := range s.Actions {
		if err := a.Visit(p); err != nil {
			r.logger.Warn("skipping action", "id", a.ID, "error", err)
		}
	}
	if s.Preview != nil {
		if err := s.Preview.Visit(p); err != nil {
			r.logger.Warn("skipping preview", "error", err)
		}
	}
	return Frame{Image: im, Texts: p.texts}
}

// painter draws one action at a time onto a gg context.
type painter struct {
	dc     *gg.Context
	im     *image.RGBA
	mapper *state.Mapper
	fonts  *FontCache
	edit   func(state.Action) bool
	texts  []state.TextBounds
}

func (p *painter) lineWidth(a state.Action) float64 {
	w := p.mapper.ScaleLength(a.Width)
	if !state.Finite(w) {
		return 1
	}
	return min(max(1, w), max(1, p.mapper.ScaleLength(1)))
}

func (p *painter) fontPx(a state.Action) float64 {
	if a.FontSize <= 0 {
		return DefaultFontPx
	}
	px := p.mapper.ScaleLength(a.FontSize)
	if !state.Finite(px) {
		return DefaultFontPx
	}
	return min(px, MaxFontPx)
}

func (p *painter) polyline(dc *gg.Context, pts []state.Point, width float64) {
	if len(pts) == 0 {
		return
	}
	x, y := p.mapper.Denormalize(pts[0])
	if len(pts) == 1 {
		dc.DrawCircle(x, y, width/2)
		dc.Fill()
		return
	}
	dc.SetLineWidth(width)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	dc.MoveTo(x, y)
	for _, pt := range pts[1:] {
		dc.LineTo(p.mapper.Denormalize(pt))
	}
	dc.Stroke()
}

func (p *painter) Pointer(state.Action) {}

func (p *painter) Pencil(a state.Action) {
	p.dc.SetColor(ParseColor(a.Color))
	p.polyline(p.dc, a.Points, p.lineWidth(a))
}

func (p *painter) Eraser(a state.Action) {
	b := p.im.Bounds()
	mask := image.NewRGBA(b)
	mc := gg.NewContextForRGBA(mask)
	mc.SetRGB(1, 1, 1)
	p.polyline(mc, a.Points, p.lineWidth(a)*EraserScale)
	eraseWith(p.im, mask)
}

func (p *painter) Rectangle(a state.Action) {
	if a.StartPoint == nil || a.EndPoint == nil {
		return
	}
	x0, y0 := p.mapper.Denormalize(*a.StartPoint)
	x1, y1 := p.mapper.Denormalize(*a.EndPoint)
	p.dc.SetColor(ParseColor(a.Color))
	p.dc.SetLineWidth(p.lineWidth(a))
	p.dc.DrawRectangle(min(x0, x1), min(y0, y1), math.Abs(x1-x0), math.Abs(y1-y0))
	p.dc.Stroke()
}

func (p *painter) Circle(a state.Action) {
	if a.StartPoint == nil || a.EndPoint == nil {
		return
	}
	cx, cy := p.mapper.Denormalize(*a.StartPoint)
	ex, ey := p.mapper.Denormalize(*a.EndPoint)
	p.dc.SetColor(ParseColor(a.Color))
	p.dc.SetLineWidth(p.lineWidth(a))
	p.dc.DrawCircle(cx, cy, math.Hypot(ex-cx, ey-cy))
	p.dc.Stroke()
}

func (p *painter) Text(a state.Action) {
	if a.StartPoint == nil {
		return
	}
	px := p.fontPx(a)
	x, y := p.mapper.Denormalize(*a.StartPoint)
	lh := px * LineHeight

	p.dc.SetFontFace(p.fonts.Face(px))
	p.dc.SetColor(ParseColor(a.Color))
	lines := strings.Split(a.Text, "\n")
	width := 0.0
	for i, line := range lines {
		p.dc.DrawStringAnchored(line, x, y+float64(i)*lh, 0, 1)
		lw, _ := p.dc.MeasureString(line)
		width = max(width, lw)
	}
	if a.ID == "" {
		return
	}
	tb := state.NewTextBounds(a.ID, state.Rect{X: x, Y: y, W: width, H: float64(len(lines)) * lh})
	p.texts = append(p.texts, tb)
	if p.edit != nil && p.edit(a) {
		p.control(tb.Control, ParseColor(a.Color))
	}
}

// control draws the edit handle: a filled dot with a white ring.
func (p *painter) control(at state.Point, c color.Color) {
	p.dc.SetColor(c)
	p.dc.DrawCircle(at.X, at.Y, ControlRadius)
	p.dc.Fill()
	p.dc.SetRGB(1, 1, 1)
	p.dc.SetLineWidth(2)
	p.dc.DrawCircle(at.X, at.Y, ControlRadius-1)
	p.dc.Stroke()
}
