package state

// FitMode is how the shared content is fitted into its rendering box.
type FitMode string

const (
	FitContain FitMode = "contain"
	FitCover   FitMode = "cover"
	FitFill    FitMode = "fill"
)

// Surface describes the rendered box of the shared content and the
// content's intrinsic resolution.
type Surface struct {
	Width           float64 // rendered box width in pixels
	Height          float64 // rendered box height in pixels
	IntrinsicWidth  float64 // 0 when unknown
	IntrinsicHeight float64
	Fit             FitMode
}

// VideoMetrics locates the content rectangle inside the rendered box.
type VideoMetrics struct {
	CSSWidth      float64 `json:"cssWidth"`
	CSSHeight     float64 `json:"cssHeight"`
	ContentWidth  float64 `json:"contentWidth"`
	ContentHeight float64 `json:"contentHeight"`
	OffsetX       float64 `json:"offsetX"`
	OffsetY       float64 `json:"offsetY"`
}

// ComputeMetrics derives the letterbox-aware content rectangle for s.
func ComputeMetrics(s Surface) VideoMetrics {
	m := VideoMetrics{
		CSSWidth:      s.Width,
		CSSHeight:     s.Height,
		ContentWidth:  s.Width,
		ContentHeight: s.Height,
	}
	if s.Width <= 0 || s.Height <= 0 || s.IntrinsicWidth <= 0 || s.IntrinsicHeight <= 0 {
		return m
	}

	var scale float64
	switch s.Fit {
	case FitFill:
		return m
	case FitCover:
		scale = max(s.Width/s.IntrinsicWidth, s.Height/s.IntrinsicHeight)
	default:
		scale = min(s.Width/s.IntrinsicWidth, s.Height/s.IntrinsicHeight)
	}
	m.ContentWidth = s.IntrinsicWidth * scale
	m.ContentHeight = s.IntrinsicHeight * scale
	m.OffsetX = (s.Width - m.ContentWidth) / 2
	m.OffsetY = (s.Height - m.ContentHeight) / 2
	return m
}

// Mapper converts between surface pixels and normalized points. The zero
// value is the degenerate 1x1 mapping used before a surface is known.
type Mapper struct {
	metrics VideoMetrics
	ready   bool
}

// SetSurface recomputes the metrics for s.
func (m *Mapper) SetSurface(s Surface) {
	m.metrics = ComputeMetrics(s)
	m.ready = s.Width > 0 && s.Height > 0
}

// Reset drops back to the degenerate mapping.
func (m *Mapper) Reset() {
	m.metrics = VideoMetrics{}
	m.ready = false
}

// Ready reports whether a usable surface is attached.
func (m *Mapper) Ready() bool { return m.ready }

// Metrics returns the current metrics.
func (m *Mapper) Metrics() VideoMetrics { return m.metrics }

func (m *Mapper) contentSize() (float64, float64) {
	return effective(m.metrics.ContentWidth, m.metrics.CSSWidth), effective(m.metrics.ContentHeight, m.metrics.CSSHeight)
}

// Normalize maps a pixel position to the unit square, clamped.
func (m *Mapper) Normalize(px, py float64) Point {
	w, h := m.contentSize()
	return Point{
		X: clamp01((px - m.metrics.OffsetX) / w),
		Y: clamp01((py - m.metrics.OffsetY) / h),
	}
}

// Denormalize maps a normalized point back to pixels.
func (m *Mapper) Denormalize(p Point) (float64, float64) {
	w, h := m.contentSize()
	return m.metrics.OffsetX + p.X*w, m.metrics.OffsetY + p.Y*h
}

// ScaleLength converts a normalized length (stroke width, font size) to pixels.
func (m *Mapper) ScaleLength(n float64) float64 {
	w, _ := m.contentSize()
	return n * w
}

// NormalizeLength converts a pixel length to a normalized one.
func (m *Mapper) NormalizeLength(px float64) float64 {
	w, _ := m.contentSize()
	return px / w
}

// NewMapper returns a mapper already attached to metrics.
func NewMapper(metrics VideoMetrics) *Mapper {
	return &Mapper{metrics: metrics, ready: metrics.CSSWidth > 0 && metrics.CSSHeight > 0}
}

func effective(content, css float64) float64 {
	if content > 0 {
		return content
	}
	if css > 0 {
		return css
	}
	return 1
}
