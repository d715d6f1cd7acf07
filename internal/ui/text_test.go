package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveAnnotate/internal/board"
	"LiveAnnotate/internal/state"
)

func TestParseFontPx(t *testing.T) {
	b, err := board.New(board.Options{Identity: "Teacher"})
	require.NoError(t, err)

	_, err = parseFontPx(b, "24")
	assert.ErrorIs(t, err, errFontPx, "no surface yet")

	b.SetSurface(state.Surface{Width: 800, Height: 600})
	fs, err := parseFontPx(b, " 40 ")
	require.NoError(t, err)
	assert.InDelta(t, 0.05, fs, 1e-9)

	for _, v := range []string{"", "big", "0", "-3", "1e9", "NaN"} {
		_, err := parseFontPx(b, v)
		assert.ErrorIs(t, err, errFontPx, v)
	}
}
