package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"LiveAnnotate/internal/board"
	"LiveAnnotate/internal/net"
	"LiveAnnotate/internal/render"
	"LiveAnnotate/internal/state"
)

// palette is the swatch row, as hex strings so they go on the wire unchanged.
var palette = []string{"#e11d48", "#000000", "#ffffff", "#16a34a", "#2563eb", "#facc15"}

type colorSwatch struct {
	widget.BaseWidget
	Color    string
	OnTapped func(string)
}

func newColorSwatch(c string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(render.ParseColor(s.Color))
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

var toolLabels = map[state.Tool]string{
	state.ToolPointer:   "Select",
	state.ToolPencil:    "Pen",
	state.ToolEraser:    "Eraser",
	state.ToolRectangle: "Box",
	state.ToolCircle:    "Circle",
	state.ToolText:      "Text",
}

// NewToolbar builds the tool, colour and width controls plus the history,
// clear and export actions for b.
func NewToolbar(win fyne.Window, b *board.Board, status *widget.Label) fyne.CanvasObject {
	if b.ViewOnly() {
		return container.NewHBox(widget.NewLabel("View only"), layout.NewSpacer(), exportToolbar(win, b, status))
	}

	names := make([]string, 0, len(state.Tools))
	byName := make(map[string]state.Tool, len(state.Tools))
	for _, t := range state.Tools {
		names = append(names, toolLabels[t])
		byName[toolLabels[t]] = t
	}
	tools := widget.NewRadioGroup(names, func(name string) {
		if t, ok := byName[name]; ok {
			b.SetTool(t)
		}
	})
	tools.Horizontal = true
	tools.Required = true
	tools.SetSelected(toolLabels[b.Brush().Tool])

	colorBox := container.NewHBox()
	for _, c := range palette {
		colorBox.Add(newColorSwatch(c, b.SetColor))
	}

	widthSlider := widget.NewSlider(1, 30)
	widthSlider.SetValue(4)
	widthSlider.OnChanged = b.SetWidthPx
	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(140, 35)), widthSlider)

	history := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { b.Undo() }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { b.Redo() }),
	)

	return container.NewHBox(
		tools,
		widget.NewSeparator(),
		colorBox,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		sliderContainer,
		widget.NewSeparator(),
		history,
		clearControl(b),
		layout.NewSpacer(),
		exportToolbar(win, b, status),
	)
}

// clearControl is a plain clear button, or the scoped clear menu for
// privileged participants.
func clearControl(b *board.Board) fyne.CanvasObject {
	if !b.Privileged() {
		return widget.NewButtonWithIcon("Clear", theme.ContentClearIcon(), func() { b.ClearMineAndBroadcast() })
	}
	scopes := map[string]net.ClearScope{
		"Clear mine":   net.ScopeTeacher,
		"Clear others": net.ScopeStudents,
		"Clear all":    net.ScopeAll,
	}
	sel := widget.NewSelect([]string{"Clear mine", "Clear others", "Clear all"}, nil)
	sel.PlaceHolder = "Clear..."
	sel.OnChanged = func(choice string) {
		if scope, ok := scopes[choice]; ok {
			b.ClearByAuthor(scope)
		}
		sel.ClearSelected()
	}
	return sel
}
