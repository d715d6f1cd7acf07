package board

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveAnnotate/internal/net"
	"LiveAnnotate/internal/state"
)

func TestAddText(t *testing.T) {
	b, out := newTestBoard(t, "StudentX", false, false)

	_, ok := b.AddText(pt(0.1, 0.1), "  \n\t")
	assert.False(t, ok)
	assert.Empty(t, out.all())

	a, ok := b.AddText(pt(0.1, 0.1), "hello")
	require.True(t, ok)
	assert.Equal(t, state.ToolText, a.Tool)
	assert.Equal(t, "StudentX", a.Author)
	assert.Equal(t, DefaultBrush.FontSize, a.FontSize)
	assert.Equal(t, []net.Kind{net.KindAnnotate}, out.kinds())

	hit, ok := b.HitTest(105, 60)
	require.True(t, ok)
	assert.Equal(t, a.ID, hit.ID)

	_, ok = b.HitTest(900, 450)
	assert.False(t, ok)
}

func TestHitTestPrefersTopmost(t *testing.T) {
	b, _ := newTestBoard(t, "StudentX", false, false)
	_, ok := b.AddText(pt(0.1, 0.1), "mine")
	require.True(t, ok)
	b.HandleMessage(net.Annotate(state.NewText(pt(0.1, 0.1), "theirs", 0.02, "#000", "Teacher", "t-1")))

	hit, ok := b.HitTest(105, 60)
	require.True(t, ok)
	assert.Equal(t, "t-1", hit.ID)
}

func TestBeginAndCommitEdit(t *testing.T) {
	b, out := newTestBoard(t, "StudentX", false, false)
	a, _ := b.AddText(pt(0.1, 0.1), "hello")
	out.reset()

	s, ok := b.BeginEdit(a.ID)
	require.True(t, ok)
	assert.Equal(t, "hello", s.Text)
	assert.Equal(t, DefaultBrush.Color, s.Color)
	assert.InDelta(t, 20, s.FontPx, 1e-9)

	assert.False(t, b.CommitEdit(a.ID, state.TextFields{Text: ptr(" ")}))
	assert.Empty(t, out.all())

	require.True(t, b.CommitEdit(a.ID, state.TextFields{Text: ptr("bye"), Color: ptr("blue")}))
	got := b.LocalActions()[0]
	assert.Equal(t, "bye", got.Text)
	assert.Equal(t, "blue", got.Color)
	assert.Equal(t, a.FontSize, got.FontSize)

	msgs := out.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, got, *msgs[0].Action)
}

func TestTextPermissions(t *testing.T) {
	theirs := state.NewText(pt(0.5, 0.5), "teacher note", 0.02, "#000", "Teacher", "t-1")

	t.Run("student cannot touch others' text", func(t *testing.T) {
		b, out := newTestBoard(t, "StudentX", false, false)
		b.HandleMessage(net.Annotate(theirs))
		before := b.Actions()

		_, ok := b.BeginEdit("t-1")
		assert.False(t, ok)
		assert.False(t, b.CommitEdit("t-1", state.TextFields{Text: ptr("hacked")}))
		assert.False(t, b.BeginDrag("t-1", 505, 255))
		assert.False(t, b.Delete("t-1"))
		assert.False(t, b.CanEdit(theirs))

		assert.Equal(t, before, b.Actions())
		assert.Empty(t, out.all())
	})

	t.Run("privileged edits anyone's text", func(t *testing.T) {
		b, out := newTestBoard(t, "Teacher", true, false)
		student := state.NewText(pt(0.5, 0.5), "student note", 0.02, "#000", "StudentX", "s-1")
		b.HandleMessage(net.Annotate(student))

		require.True(t, b.CommitEdit("s-1", state.TextFields{Text: ptr("graded")}))
		assert.Equal(t, "graded", b.RemoteActions()[0].Text)
		assert.Empty(t, b.LocalActions())

		require.True(t, b.Delete("s-1"))
		assert.Empty(t, b.Actions())
		assert.Equal(t, []net.Kind{net.KindAnnotate, net.KindDelete}, out.kinds())
	})

	t.Run("only text is editable", func(t *testing.T) {
		b, _ := newTestBoard(t, "Teacher", true, false)
		b.HandleMessage(net.Annotate(pencil("StudentX", "p-1", pt(0.1, 0.1))))
		assert.False(t, b.Delete("p-1"))
		assert.Len(t, b.Actions(), 1)
	})
}

func TestPointerDragMovesText(t *testing.T) {
	b, out := newTestBoard(t, "StudentX", false, false)
	a, _ := b.AddText(pt(0.1, 0.1), "hello")
	out.reset()
	requested := false
	b.OnTextRequest(func(TextRequest) { requested = true })

	b.SetTool(state.ToolPointer)
	b.PointerDown(105, 60)
	b.PointerMove(305, 160)
	b.PointerUp(305, 160)

	got := b.LocalActions()[0]
	assert.Equal(t, a.ID, got.ID)
	assert.InDelta(t, 0.3, got.StartPoint.X, 1e-9)
	assert.InDelta(t, 0.3, got.StartPoint.Y, 1e-9)
	assert.Equal(t, []net.Kind{net.KindAnnotate}, out.kinds())
	assert.False(t, requested)

	_, ok := b.HitTest(105, 60)
	assert.False(t, ok)
	_, ok = b.HitTest(305, 160)
	assert.True(t, ok)
}

func TestExplicitDrag(t *testing.T) {
	b, out := newTestBoard(t, "StudentX", false, false)
	a, _ := b.AddText(pt(0.1, 0.1), "hello")
	out.reset()

	require.True(t, b.BeginDrag(a.ID, 100, 50))
	b.UpdateDrag(200, 100)
	b.UpdateDrag(300, 150)
	b.EndDrag()
	b.UpdateDrag(900, 450)

	got := b.LocalActions()[0]
	assert.InDelta(t, 0.3, got.StartPoint.X, 1e-9)
	assert.Len(t, out.all(), 2)
}

func TestPointerClickRequestsEdit(t *testing.T) {
	b, _ := newTestBoard(t, "StudentX", false, false)
	a, _ := b.AddText(pt(0.1, 0.1), "hello")

	var req *TextRequest
	b.OnTextRequest(func(r TextRequest) { req = &r })
	b.SetTool(state.ToolPointer)
	b.PointerDown(105, 60)
	b.PointerUp(105, 60)

	require.NotNil(t, req)
	require.NotNil(t, req.Edit)
	assert.Equal(t, a.ID, req.Edit.ID)
	assert.Equal(t, "hello", req.Edit.Text)
}

func TestPointerIgnoresOthersText(t *testing.T) {
	b, out := newTestBoard(t, "StudentX", false, false)
	b.HandleMessage(net.Annotate(state.NewText(pt(0.1, 0.1), "theirs", 0.02, "#000", "Teacher", "t-1")))
	requested := false
	b.OnTextRequest(func(TextRequest) { requested = true })

	b.SetTool(state.ToolPointer)
	b.PointerDown(105, 60)
	b.PointerMove(305, 160)
	b.PointerUp(305, 160)

	assert.InDelta(t, 0.1, b.RemoteActions()[0].StartPoint.X, 1e-9)
	assert.Empty(t, out.all())
	assert.False(t, requested)
}

func TestTextToolRequestsInput(t *testing.T) {
	b, out := newTestBoard(t, "StudentX", false, false)
	var req *TextRequest
	b.OnTextRequest(func(r TextRequest) { req = &r })

	b.SetTool(state.ToolText)
	b.PointerDown(500, 250)

	require.NotNil(t, req)
	assert.Nil(t, req.Edit)
	assert.Equal(t, pt(0.5, 0.5), req.Point)
	assert.Empty(t, b.Actions())
	assert.Empty(t, out.all())
}

func TestEditControlOpensEdit(t *testing.T) {
	b, out := newTestBoard(t, "StudentX", false, false)
	a, _ := b.AddText(pt(0.1, 0.1), "hello")
	out.reset()

	f := b.Frame()
	require.Len(t, f.Texts, 1)
	c := f.Texts[0].Control
	assert.NotZero(t, f.Image.RGBAAt(int(c.X), int(c.Y)).A, "control is drawn")

	id, ok := b.HitControl(c.X+3, c.Y-3)
	require.True(t, ok)
	assert.Equal(t, a.ID, id)
	_, ok = b.HitControl(c.X+40, c.Y)
	assert.False(t, ok)

	var req *TextRequest
	b.OnTextRequest(func(r TextRequest) { req = &r })
	b.SetTool(state.ToolPencil)
	b.PointerDown(c.X, c.Y)
	b.PointerUp(c.X, c.Y)

	require.NotNil(t, req)
	require.NotNil(t, req.Edit)
	assert.Equal(t, a.ID, req.Edit.ID)
	assert.Len(t, b.Actions(), 1, "press on the control draws nothing")
	assert.Empty(t, out.all())
}

func TestEditControlOnlyForEditableText(t *testing.T) {
	b, _ := newTestBoard(t, "StudentX", false, false)
	b.HandleMessage(net.Annotate(state.NewText(pt(0.1, 0.1), "theirs", 0.02, "#000", "Teacher", "t-1")))

	f := b.Frame()
	require.Len(t, f.Texts, 1)
	c := f.Texts[0].Control
	assert.Zero(t, f.Image.RGBAAt(int(c.X), int(c.Y)).A)
	_, ok := b.HitControl(c.X, c.Y)
	assert.False(t, ok)

	teacher, _ := newTestBoard(t, "Teacher", true, false)
	teacher.HandleMessage(net.Annotate(state.NewText(pt(0.1, 0.1), "student", 0.02, "#000", "StudentX", "s-1")))
	c = teacher.Frame().Texts[0].Control
	id, ok := teacher.HitControl(c.X, c.Y)
	require.True(t, ok)
	assert.Equal(t, "s-1", id)

	viewer, _ := newTestBoard(t, "Viewer", true, true)
	viewer.HandleMessage(net.Annotate(state.NewText(pt(0.1, 0.1), "x", 0.02, "#000", "Viewer", "v-1")))
	c = viewer.Frame().Texts[0].Control
	_, ok = viewer.HitControl(c.X, c.Y)
	assert.False(t, ok)
}

func TestCommitEditFontSize(t *testing.T) {
	b, out := newTestBoard(t, "StudentX", false, false)
	a, _ := b.AddText(pt(0.1, 0.1), "hello")
	out.reset()

	size, ok := b.FontSizeFromPx(40)
	require.True(t, ok)
	assert.InDelta(t, 0.04, size, 1e-9)

	require.True(t, b.CommitEdit(a.ID, state.TextFields{FontSize: &size}))
	s, ok := b.BeginEdit(a.ID)
	require.True(t, ok)
	assert.InDelta(t, 40, s.FontPx, 1e-9)
	assert.InDelta(t, 40*1.2, b.Frame().Texts[0].Bounds.H, 1e-9)

	assert.False(t, b.CommitEdit(a.ID, state.TextFields{FontSize: ptr(8.0)}))
	assert.InDelta(t, 0.04, b.LocalActions()[0].FontSize, 1e-9)
	assert.Len(t, out.all(), 1)

	for _, px := range []float64{0, -4, 1e6, math.NaN(), math.Inf(1)} {
		_, ok := b.FontSizeFromPx(px)
		assert.False(t, ok, "%v", px)
	}
}
