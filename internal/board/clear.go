package board

import (
	"LiveAnnotate/internal/net"
	"LiveAnnotate/internal/state"
)

// ClearKeep returns the predicate deciding which actions survive a clear
// of scope relative to the reference identity. ScopeAll keeps nothing.
func ClearKeep(scope net.ClearScope, reference string) func(state.Action) bool {
	switch scope {
	case net.ScopeTeacher:
		return func(a state.Action) bool { return a.Author != reference }
	case net.ScopeStudents:
		return func(a state.Action) bool { return a.Author == reference }
	default:
		return func(state.Action) bool { return false }
	}
}

// ApplyClearFilter removes the actions selected by scope from both stores.
// It is run by the privileged sender and by every receiver.
func (b *Board) ApplyClearFilter(scope net.ClearScope, reference string) {
	b.apply(func(e *effect) {
		b.clearLocked(scope, reference)
		e.redraw = true
	})
}

func (b *Board) clearLocked(scope net.ClearScope, reference string) {
	if scope == net.ScopeAll {
		b.history.Clear()
		b.remote.Clear()
		b.texts = nil
		b.drag = nil
		return
	}
	keep := ClearKeep(scope, reference)
	b.history.Filter(keep)
	b.remote.Filter(keep)
	if b.drag != nil {
		if _, ok := b.lookupLocked(b.drag.id); !ok {
			b.drag = nil
		}
	}
}

// ClearByAuthor clears by scope with the local identity as reference and
// broadcasts one clearAnnotationsByType. Only privileged participants may
// do this.
func (b *Board) ClearByAuthor(scope net.ClearScope) bool {
	if !scope.Valid() {
		return false
	}
	ok := false
	b.apply(func(e *effect) {
		if b.viewOnly || !b.actor.Privileged {
			b.logger.Debug("selective clear denied", "scope", scope)
			return
		}
		b.clearLocked(scope, b.actor.Identity)
		e.redraw = true
		e.broadcast(net.ClearByType(scope, b.actor.Identity))
		ok = true
	})
	return ok
}

// ClearMineAndBroadcast empties both stores and asks everyone else to do
// the same.
func (b *Board) ClearMineAndBroadcast() bool {
	ok := false
	b.apply(func(e *effect) {
		if b.viewOnly {
			return
		}
		b.endGestureLocked()
		b.clearLocked(net.ScopeAll, "")
		e.redraw = true
		e.broadcast(net.Clear())
		ok = true
	})
	return ok
}
