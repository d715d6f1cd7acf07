package ui

import (
	"context"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"LiveAnnotate/internal/board"
	"LiveAnnotate/internal/state"
)

// AppOptions configures the desktop window.
type AppOptions struct {
	Title         string
	Status        string // initial status line, usually the share link
	ContentWidth  int
	ContentHeight int
	Fit           state.FitMode
	Logger        *slog.Logger
}

// RunApp shows the annotation window for b and blocks until it is closed.
// The board follows the overlay's surface until ctx is cancelled.
func RunApp(ctx context.Context, b *board.Board, opts AppOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := app.NewWithID("io.liveannotate")
	win := a.NewWindow(opts.Title)
	win.Resize(fyne.NewSize(1024, 768))

	status := widget.NewLabel(opts.Status)
	overlay := NewOverlay(b, opts.ContentWidth, opts.ContentHeight, opts.Fit)
	b.OnTextRequest(func(req board.TextRequest) {
		fyne.Do(func() { handleTextRequest(win, b, req) })
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := b.DiscoverSurface(ctx, overlay, 0); err != nil && ctx.Err() == nil {
			logger.Warn("surface discovery stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		fyne.Do(win.Close)
	}()

	content := container.NewBorder(NewToolbar(win, b, status), status, nil, nil, overlay)
	win.SetContent(content)
	win.ShowAndRun()
}
