package state

// HitPadding is the slack, in pixels, around text bounds that still counts as a hit.
const HitPadding = 5

// ControlOffset places a text action's edit control above its right edge.
const ControlOffset = 8

// Rect is an axis-aligned box in surface pixels.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether (px, py) lies inside r grown by pad on every side.
func (r Rect) Contains(px, py, pad float64) bool {
	return px >= r.X-pad && px <= r.X+r.W+pad &&
		py >= r.Y-pad && py <= r.Y+r.H+pad
}

// TextBounds is the on-screen footprint of one rendered text action. It is
// rebuilt on every render pass.
type TextBounds struct {
	ID      string
	Bounds  Rect
	Control Point // pixel position of the edit control
}

// NewTextBounds computes the bounds entry for a text box at r.
func NewTextBounds(id string, r Rect) TextBounds {
	return TextBounds{
		ID:      id,
		Bounds:  r,
		Control: Point{X: r.X + r.W + ControlOffset, Y: r.Y - ControlOffset},
	}
}
