package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteSetUpsertDedups(t *testing.T) {
	r := NewRemoteSet()
	a := NewFreehand(ToolPencil, Point{0.1, 0.1}, "black", 0.01, "bob", "bob-1")

	assert.True(t, r.Upsert(a))
	assert.False(t, r.Upsert(a.WithPoint(Point{0.2, 0.2})))
	require.Equal(t, 1, r.Len())

	got, ok := r.Get("bob-1")
	require.True(t, ok)
	assert.Len(t, got.Points, 2)
}

func TestRemoteSetKeepsArrivalOrder(t *testing.T) {
	r := NewRemoteSet()
	r.Upsert(stroke("a"))
	r.Upsert(stroke("b"))
	r.Upsert(Action{Tool: ToolPencil, Points: []Point{{}}}) // no id
	r.Upsert(stroke("c"))
	r.Upsert(stroke("a"))

	assert.Equal(t, []string{"a", "b", "", "c"}, ids(r.All()))

	assert.True(t, r.Remove("b"))
	assert.False(t, r.Remove("b"))
	assert.Equal(t, []string{"a", "", "c"}, ids(r.All()))

	_, ok := r.Get("c")
	assert.True(t, ok)
}

func TestRemoteSetUpdateNeverInserts(t *testing.T) {
	r := NewRemoteSet()
	assert.False(t, r.Update(stroke("x")))
	assert.Equal(t, 0, r.Len())
}

func TestRemoteSetFilterAndClear(t *testing.T) {
	r := NewRemoteSet()
	r.Upsert(NewText(Point{}, "a", 0, "black", "alice", "t1"))
	r.Upsert(NewText(Point{}, "b", 0, "black", "bob", "t2"))
	r.Upsert(NewText(Point{}, "c", 0, "black", "alice", "t3"))

	r.Filter(func(a Action) bool { return a.Author != "alice" })
	assert.Equal(t, []string{"t2"}, ids(r.All()))

	_, ok := r.Get("t3")
	assert.False(t, ok)
	got, ok := r.Get("t2")
	require.True(t, ok)
	assert.Equal(t, "b", got.Text)

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.True(t, r.Upsert(stroke("t2")))
}
