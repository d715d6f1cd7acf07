package ui

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"LiveAnnotate/internal/board"
	"LiveAnnotate/internal/state"
)

// handleTextRequest collects text for a new annotation or an edit of an
// existing one.
func handleTextRequest(win fyne.Window, b *board.Board, req board.TextRequest) {
	entry := widget.NewMultiLineEntry()
	entry.SetMinRowsVisible(3)
	items := []*widget.FormItem{widget.NewFormItem("Text", entry)}

	if req.Edit == nil {
		dialog.ShowForm("Add text", "Add", "Cancel", items, func(ok bool) {
			if ok {
				b.AddText(req.Point, entry.Text)
			}
		}, win)
		win.Canvas().Focus(entry)
		return
	}

	s := *req.Edit
	entry.SetText(s.Text)
	color := widget.NewEntry()
	color.SetText(s.Color)
	size := widget.NewEntry()
	size.SetText(strconv.FormatFloat(math.Round(s.FontPx), 'f', -1, 64))
	size.Validator = func(v string) error {
		_, err := parseFontPx(b, v)
		return err
	}
	remove := widget.NewCheck("Delete this text", nil)
	items = append(items,
		widget.NewFormItem("Colour", color),
		widget.NewFormItem("Size (px)", size),
		widget.NewFormItem("", remove),
	)
	dialog.ShowForm("Edit text", "Save", "Cancel", items, func(ok bool) {
		switch {
		case !ok:
		case remove.Checked:
			b.Delete(s.ID)
		default:
			text, c := entry.Text, color.Text
			f := state.TextFields{Text: &text, Color: &c}
			if fs, err := parseFontPx(b, size.Text); err == nil {
				f.FontSize = &fs
			}
			b.CommitEdit(s.ID, f)
		}
	}, win)
}

var errFontPx = errors.New("enter a size between 1 and 512")

// parseFontPx turns the size field into a normalized font size.
func parseFontPx(b *board.Board, v string) (float64, error) {
	px, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, errFontPx
	}
	fs, ok := b.FontSizeFromPx(px)
	if !ok {
		return 0, errFontPx
	}
	return fs, nil
}
