package board

import (
	"LiveAnnotate/internal/net"
)

// HandleMessage applies an inbound protocol message. Invalid messages are
// logged and ignored.
func (b *Board) HandleMessage(m net.Message) {
	if err := m.Validate(); err != nil {
		b.logger.Warn("ignoring inbound message", "type", m.Type, "error", err)
		return
	}
	b.apply(func(e *effect) {
		switch m.Type {
		case net.KindAnnotate:
			a := *m.Action
			if b.history.Contains(a.ID) {
				b.history.Update(a)
			} else {
				b.remote.Upsert(a)
			}
		case net.KindClear:
			b.clearLocked(net.ScopeAll, "")
		case net.KindClearByType:
			b.clearLocked(m.AuthorType, m.TeacherIdentity)
		case net.KindDelete:
			b.removeLocked(m.ID)
		case net.KindSync:
			if !b.viewOnly {
				return
			}
			b.history.Load(m.History, m.HistoryStep)
			b.remote.Clear()
		}
		e.redraw = true
	})
}

// PublishSnapshot broadcasts the local history so view-only participants
// can replace their state with it. View-only boards publish nothing.
func (b *Board) PublishSnapshot() {
	b.apply(func(e *effect) {
		if b.viewOnly {
			return
		}
		e.broadcast(net.Sync(b.history.All(), b.history.Step()))
	})
}
