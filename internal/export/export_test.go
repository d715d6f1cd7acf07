package export

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveAnnotate/internal/render"
	"LiveAnnotate/internal/state"
)

func sample() []state.Action {
	pencil := state.NewFreehand(state.ToolPencil, state.Point{X: 0.1, Y: 0.1}, "#ff0000", 0.01, "me", "p").
		WithPoint(state.Point{X: 0.4, Y: 0.4})
	eraser := state.NewFreehand(state.ToolEraser, state.Point{X: 0.2, Y: 0.2}, "", 0.01, "me", "e")
	rect := state.NewShape(state.ToolRectangle, state.Point{X: 0.5, Y: 0.5}, state.Point{X: 0.7, Y: 0.9}, "blue", 0.01, "me", "r")
	circle := state.NewShape(state.ToolCircle, state.Point{X: 0.5, Y: 0.5}, state.Point{X: 0.6, Y: 0.5}, "green", 0.01, "me", "c")
	text := state.NewText(state.Point{X: 0.1, Y: 0.8}, "hello\nwörld", 0.03, "black", "me", "t")
	return []state.Action{pencil, eraser, rect, circle, text, {Tool: state.ToolPointer}}
}

func TestPDF(t *testing.T) {
	metrics := state.ComputeMetrics(state.Surface{Width: 640, Height: 360})
	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, metrics, sample()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPDFWithoutSurface(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, PDF(&buf, state.VideoMetrics{}, sample()), ErrNoSurface)
	assert.Zero(t, buf.Len())
}

func TestPDFRejectsUnknownTool(t *testing.T) {
	metrics := state.ComputeMetrics(state.Surface{Width: 10, Height: 10})
	var buf bytes.Buffer
	assert.ErrorIs(t, PDF(&buf, metrics, []state.Action{{Tool: "laser"}}), state.ErrUnknownTool)
}

func TestPNGRoundTrip(t *testing.T) {
	r, err := render.New()
	require.NoError(t, err)
	metrics := state.ComputeMetrics(state.Surface{Width: 320, Height: 180})
	frame := r.Paint(render.Scene{Metrics: metrics, Actions: sample()})

	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, frame))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, frame.Image.Bounds(), img.Bounds())
}

func TestPNGWithoutImage(t *testing.T) {
	assert.ErrorIs(t, PNG(&bytes.Buffer{}, render.Frame{}), ErrNoSurface)
}
