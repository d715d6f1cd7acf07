// Package export writes annotation snapshots to files.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"LiveAnnotate/internal/render"
	"LiveAnnotate/internal/state"
)

// ErrNoSurface is returned when there is no surface size to export at.
var ErrNoSurface = errors.New("no surface to export")

// PDF writes actions as vector drawing on a white page the size of the
// surface, one point per pixel. Eraser strokes are painted white since
// PDF has no destination-out compositing.
func PDF(w io.Writer, metrics state.VideoMetrics, actions []state.Action) error {
	if metrics.CSSWidth <= 0 || metrics.CSSHeight <= 0 {
		return ErrNoSurface
	}
	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: metrics.CSSWidth, Ht: metrics.CSSHeight},
	})
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddPage()
	p.SetFillColor(255, 255, 255)
	p.Rect(0, 0, metrics.CSSWidth, metrics.CSSHeight, "F")

	v := &pdfVisitor{
		pdf:    p,
		mapper: state.NewMapper(metrics),
		tr:     p.UnicodeTranslatorFromDescriptor(""),
	}
	for _, a := range actions {
		if err := a.Visit(v); err != nil {
			return fmt.Errorf("export %s: %w", a.ID, err)
		}
	}
	if err := p.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

type pdfVisitor struct {
	pdf    *gofpdf.Fpdf
	mapper *state.Mapper
	tr     func(string) string
}

func (v *pdfVisitor) setColor(name string) {
	r, g, b, a := render.ParseColor(name).RGBA()
	if a == 0 {
		v.pdf.SetAlpha(0, "Normal")
		return
	}
	// un-premultiply to 8 bit
	r8, g8, b8 := int(r*255/a), int(g*255/a), int(b*255/a)
	v.pdf.SetDrawColor(r8, g8, b8)
	v.pdf.SetFillColor(r8, g8, b8)
	v.pdf.SetTextColor(r8, g8, b8)
	v.pdf.SetAlpha(float64(a)/0xffff, "Normal")
}

func (v *pdfVisitor) polyline(pts []state.Point, width float64) {
	if len(pts) == 0 {
		return
	}
	x, y := v.mapper.Denormalize(pts[0])
	if len(pts) == 1 {
		v.pdf.Circle(x, y, width/2, "F")
		return
	}
	v.pdf.SetLineWidth(width)
	v.pdf.SetLineCapStyle("round")
	v.pdf.SetLineJoinStyle("round")
	v.pdf.MoveTo(x, y)
	for _, pt := range pts[1:] {
		v.pdf.LineTo(v.mapper.Denormalize(pt))
	}
	v.pdf.DrawPath("D")
}

func (v *pdfVisitor) width(a state.Action) float64 {
	return max(1, v.mapper.ScaleLength(a.Width))
}

func (v *pdfVisitor) Pointer(state.Action) {}

func (v *pdfVisitor) Pencil(a state.Action) {
	v.setColor(a.Color)
	v.polyline(a.Points, v.width(a))
}

func (v *pdfVisitor) Eraser(a state.Action) {
	v.setColor("white")
	v.polyline(a.Points, v.width(a)*render.EraserScale)
}

func (v *pdfVisitor) Rectangle(a state.Action) {
	if a.StartPoint == nil || a.EndPoint == nil {
		return
	}
	x0, y0 := v.mapper.Denormalize(*a.StartPoint)
	x1, y1 := v.mapper.Denormalize(*a.EndPoint)
	v.setColor(a.Color)
	v.pdf.SetLineWidth(v.width(a))
	v.pdf.Rect(min(x0, x1), min(y0, y1), math.Abs(x1-x0), math.Abs(y1-y0), "D")
}

func (v *pdfVisitor) Circle(a state.Action) {
	if a.StartPoint == nil || a.EndPoint == nil {
		return
	}
	cx, cy := v.mapper.Denormalize(*a.StartPoint)
	ex, ey := v.mapper.Denormalize(*a.EndPoint)
	v.setColor(a.Color)
	v.pdf.SetLineWidth(v.width(a))
	v.pdf.Circle(cx, cy, math.Hypot(ex-cx, ey-cy), "D")
}

func (v *pdfVisitor) Text(a state.Action) {
	if a.StartPoint == nil {
		return
	}
	px := float64(render.DefaultFontPx)
	if a.FontSize > 0 {
		px = v.mapper.ScaleLength(a.FontSize)
	}
	x, y := v.mapper.Denormalize(*a.StartPoint)
	v.setColor(a.Color)
	v.pdf.SetFont("Helvetica", "", px)
	for i, line := range strings.Split(a.Text, "\n") {
		// Text positions the baseline; shift down by the ascent.
		v.pdf.Text(x, y+float64(i)*px*render.LineHeight+px*0.8, v.tr(line))
	}
}
