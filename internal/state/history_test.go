package state

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stroke(id string) Action {
	return NewFreehand(ToolPencil, Point{0.5, 0.5}, "black", 0.01, "me", id)
}

func ids(actions []Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.ID
	}
	return out
}

func TestHistoryUndoRedoSymmetry(t *testing.T) {
	h := NewHistory()
	for i := range 5 {
		h.Append(stroke(fmt.Sprint(i)))
	}
	before := h.Kept()

	for k := 0; k <= 5; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			for range k {
				require.True(t, h.Undo())
			}
			assert.Equal(t, 5-k, h.Step())
			for range k {
				require.True(t, h.Redo())
			}
			assert.Equal(t, before, h.Kept())
		})
	}
	assert.False(t, h.Redo())
}

func TestHistoryUndoAtZero(t *testing.T) {
	h := NewHistory()
	assert.False(t, h.Undo())
	assert.Equal(t, 0, h.Step())
}

func TestHistoryAppendTruncatesFuture(t *testing.T) {
	h := NewHistory()
	h.Append(stroke("a"))
	h.Append(stroke("b"))
	h.Append(stroke("c"))
	require.True(t, h.Undo())
	require.True(t, h.Undo())

	h.Append(stroke("d"))
	assert.Equal(t, []string{"a", "d"}, ids(h.All()))
	assert.Equal(t, 2, h.Step())
	assert.False(t, h.Redo())
}

func TestHistoryReplaceLast(t *testing.T) {
	h := NewHistory()
	assert.False(t, h.ReplaceLast(stroke("x")))

	first := stroke("a")
	h.Append(first)
	h.ReplaceLast(first.WithPoint(Point{0.6, 0.6}))

	last, ok := h.Last()
	require.True(t, ok)
	assert.Len(t, last.Points, 2)
	assert.Len(t, first.Points, 1)
}

func TestHistoryRemoveKeepsPartition(t *testing.T) {
	h := NewHistory()
	for _, id := range []string{"a", "b", "c", "d"} {
		h.Append(stroke(id))
	}
	h.Undo() // d undone

	assert.True(t, h.Remove("a"))
	assert.Equal(t, []string{"b", "c"}, ids(h.Kept()))
	assert.True(t, h.Redo())
	assert.Equal(t, []string{"b", "c", "d"}, ids(h.Kept()))

	assert.True(t, h.Remove("d"))
	assert.Equal(t, 2, h.Step())
	assert.False(t, h.Remove("zzz"))
}

func TestHistoryFilterAndFind(t *testing.T) {
	h := NewHistory()
	h.Append(stroke("a"))
	h.Append(NewText(Point{}, "hi", 0, "black", "me", "t"))
	h.Append(stroke("b"))
	h.Undo()

	_, ok := h.Find("b")
	assert.False(t, ok, "undone entries are not visible")
	assert.True(t, h.Contains("b"))

	h.Filter(func(a Action) bool { return a.Tool != ToolText })
	assert.Equal(t, []string{"a", "b"}, ids(h.All()))
	assert.Equal(t, 1, h.Step())

	updated := stroke("a")
	updated.Color = "red"
	assert.True(t, h.Update(updated))
	got, ok := h.Find("a")
	require.True(t, ok)
	assert.Equal(t, "red", got.Color)
}

func TestHistoryLoadClampsStep(t *testing.T) {
	h := NewHistory()
	h.Load([]Action{stroke("a"), stroke("b")}, 7)
	assert.Equal(t, 2, h.Step())
	h.Load([]Action{stroke("a")}, -3)
	assert.Equal(t, 0, h.Step())
	h.Clear()
	assert.Equal(t, 0, h.Len())
}
