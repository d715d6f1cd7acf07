package state

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownTool is returned when an action carries a tool tag outside the closed set.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidAction is returned when an action lacks the geometry its tool needs.
	ErrInvalidAction = errors.New("invalid action")
)

// Tool tags the kind of annotation an Action describes.
type Tool string

const (
	ToolPointer   Tool = "pointer"
	ToolPencil    Tool = "pencil"
	ToolEraser    Tool = "eraser"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolText      Tool = "text"
)

// Tools lists every tool in toolbar order.
var Tools = []Tool{ToolPointer, ToolPencil, ToolEraser, ToolRectangle, ToolCircle, ToolText}

// Freehand reports whether the tool draws a polyline.
func (t Tool) Freehand() bool { return t == ToolPencil || t == ToolEraser }

// Shape reports whether the tool draws from a start point to an end point.
func (t Tool) Shape() bool { return t == ToolRectangle || t == ToolCircle }

// Point is a position normalized to the content area, each axis in [0,1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp returns p with both axes forced into [0,1].
func (p Point) Clamp() Point {
	return Point{X: clamp01(p.X), Y: clamp01(p.Y)}
}

// Action is one annotation. Values are treated as immutable: every change
// goes through a method that returns a modified copy.
type Action struct {
	Tool       Tool    `json:"tool"`
	Color      string  `json:"color"`
	Width      float64 `json:"width"`
	Points     []Point `json:"points,omitempty"`
	StartPoint *Point  `json:"startPoint,omitempty"`
	EndPoint   *Point  `json:"endPoint,omitempty"`
	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Author     string  `json:"author,omitempty"`
	ID         string  `json:"id,omitempty"`
}

// NewFreehand starts a pencil or eraser stroke with a single point.
func NewFreehand(tool Tool, p Point, color string, width float64, author, id string) Action {
	return Action{
		Tool:   tool,
		Color:  color,
		Width:  width,
		Points: []Point{p.Clamp()},
		Author: author,
		ID:     id,
	}
}

// NewShape builds a rectangle or circle spanning start to end.
func NewShape(tool Tool, start, end Point, color string, width float64, author, id string) Action {
	s, e := start.Clamp(), end.Clamp()
	return Action{
		Tool:       tool,
		Color:      color,
		Width:      width,
		StartPoint: &s,
		EndPoint:   &e,
		Author:     author,
		ID:         id,
	}
}

// NewText builds a text annotation anchored (top-left) at p.
func NewText(p Point, text string, fontSize float64, color, author, id string) Action {
	s := p.Clamp()
	return Action{
		Tool:       ToolText,
		Color:      color,
		StartPoint: &s,
		Text:       text,
		FontSize:   fontSize,
		Author:     author,
		ID:         id,
	}
}

// Clone returns a deep copy of a.
func (a Action) Clone() Action {
	c := a
	if a.Points != nil {
		c.Points = make([]Point, len(a.Points))
		copy(c.Points, a.Points)
	}
	if a.StartPoint != nil {
		p := *a.StartPoint
		c.StartPoint = &p
	}
	if a.EndPoint != nil {
		p := *a.EndPoint
		c.EndPoint = &p
	}
	return c
}

// WithPoint returns a copy of a freehand action with p appended.
func (a Action) WithPoint(p Point) Action {
	c := a.Clone()
	c.Points = append(c.Points, p.Clamp())
	return c
}

// WithStart returns a copy of a with its anchor moved to p.
func (a Action) WithStart(p Point) Action {
	c := a.Clone()
	s := p.Clamp()
	c.StartPoint = &s
	return c
}

// TextFields holds the editable properties of a text action. Nil fields are left as they are.
type TextFields struct {
	Text     *string
	Color    *string
	FontSize *float64
}

// WithText returns a copy of a with the non-nil fields applied.
func (a Action) WithText(f TextFields) Action {
	c := a.Clone()
	if f.Text != nil {
		c.Text = *f.Text
	}
	if f.Color != nil {
		c.Color = *f.Color
	}
	if f.FontSize != nil {
		c.FontSize = *f.FontSize
	}
	return c
}

// Validate checks that a carries the geometry its tool requires and that
// every number in it is finite. Width and FontSize are fractions of the
// content width and must lie in [0,1].
func (a Action) Validate() error {
	if err := a.validateNumbers(); err != nil {
		return err
	}
	switch a.Tool {
	case ToolPointer:
		return nil
	case ToolPencil, ToolEraser:
		if len(a.Points) == 0 {
			return fmt.Errorf("%w: %s without points", ErrInvalidAction, a.Tool)
		}
	case ToolRectangle, ToolCircle:
		if a.StartPoint == nil || a.EndPoint == nil {
			return fmt.Errorf("%w: %s without start/end", ErrInvalidAction, a.Tool)
		}
	case ToolText:
		if a.StartPoint == nil {
			return fmt.Errorf("%w: text without startPoint", ErrInvalidAction)
		}
		if a.ID == "" {
			return fmt.Errorf("%w: text without id", ErrInvalidAction)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTool, a.Tool)
	}
	return nil
}

func (a Action) validateNumbers() error {
	if !unit(a.Width) {
		return fmt.Errorf("%w: width %v outside [0,1]", ErrInvalidAction, a.Width)
	}
	if !unit(a.FontSize) {
		return fmt.Errorf("%w: fontSize %v outside [0,1]", ErrInvalidAction, a.FontSize)
	}
	for i, p := range a.Points {
		if !p.finite() {
			return fmt.Errorf("%w: points[%d] is not finite", ErrInvalidAction, i)
		}
	}
	if a.StartPoint != nil && !a.StartPoint.finite() {
		return fmt.Errorf("%w: startPoint is not finite", ErrInvalidAction)
	}
	if a.EndPoint != nil && !a.EndPoint.finite() {
		return fmt.Errorf("%w: endPoint is not finite", ErrInvalidAction)
	}
	return nil
}

func (p Point) finite() bool { return Finite(p.X) && Finite(p.Y) }

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// unit reports whether v is a finite value in [0,1].
func unit(v float64) bool { return Finite(v) && v >= 0 && v <= 1 }

// Normalized returns a copy with every coordinate clamped into the unit square.
func (a Action) Normalized() Action {
	c := a.Clone()
	for i := range c.Points {
		c.Points[i] = c.Points[i].Clamp()
	}
	if c.StartPoint != nil {
		*c.StartPoint = c.StartPoint.Clamp()
	}
	if c.EndPoint != nil {
		*c.EndPoint = c.EndPoint.Clamp()
	}
	return c
}

// ToolVisitor has one method per tool. Anything that must handle every
// tool (renderers, exporters) implements it, so adding a tool breaks the
// build until each of them is updated.
type ToolVisitor interface {
	Pointer(a Action)
	Pencil(a Action)
	Eraser(a Action)
	Rectangle(a Action)
	Circle(a Action)
	Text(a Action)
}

// Visit dispatches a to the visitor method matching its tool.
func (a Action) Visit(v ToolVisitor) error {
	switch a.Tool {
	case ToolPointer:
		v.Pointer(a)
	case ToolPencil:
		v.Pencil(a)
	case ToolEraser:
		v.Eraser(a)
	case ToolRectangle:
		v.Rectangle(a)
	case ToolCircle:
		v.Circle(a)
	case ToolText:
		v.Text(a)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTool, a.Tool)
	}
	return nil
}

// Actor is a participant performing an operation.
type Actor struct {
	Identity   string
	Privileged bool
}

// CanEdit reports whether the actor may edit, move or delete a.
// Only text actions are individually editable.
func (act Actor) CanEdit(a Action) bool {
	if a.Tool != ToolText {
		return false
	}
	return act.Privileged || a.Author == act.Identity
}

func clamp01(v float64) float64 {
	if v != v { // NaN
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
