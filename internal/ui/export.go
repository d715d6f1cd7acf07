package ui

import (
	"fmt"
	"io"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"LiveAnnotate/internal/board"
	"LiveAnnotate/internal/export"
)

func exportToolbar(win fyne.Window, b *board.Board, status *widget.Label) fyne.CanvasObject {
	return widget.NewToolbar(
		widget.NewToolbarAction(theme.FileImageIcon(), func() {
			saveAs(win, status, "annotations.png", func(w io.Writer) error {
				return export.PNG(w, b.Frame())
			})
		}),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() {
			saveAs(win, status, "annotations.pdf", func(w io.Writer) error {
				return export.PDF(w, b.Metrics(), b.Actions())
			})
		}),
	)
}

func saveAs(win fyne.Window, status *widget.Label, name string, write func(io.Writer) error) {
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		if w == nil {
			return
		}
		defer func() {
			if err := w.Close(); err != nil {
				slog.Warn("closing export", "uri", w.URI().String(), "error", err)
			}
		}()
		if err := write(w); err != nil {
			slog.Error("export failed", "uri", w.URI().String(), "error", err)
			dialog.ShowError(err, win)
			return
		}
		status.SetText(fmt.Sprintf("Saved %s", w.URI().Name()))
	}, win)
	d.SetFileName(name)
	d.Show()
}
