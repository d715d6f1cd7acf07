package state

// History is the undo/redo-capable list of locally authored actions.
// Actions at indices below Step are visible; the rest can be redone.
type History struct {
	actions []Action
	step    int
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Len returns the number of recorded actions, including undone ones.
func (h *History) Len() int { return len(h.actions) }

// Step returns the current position.
func (h *History) Step() int { return h.step }

// Append truncates any redoable future and records a.
func (h *History) Append(a Action) {
	h.actions = append(h.actions[:h.step:h.step], a)
	h.step = len(h.actions)
}

// Undo moves one step back. It reports whether anything changed.
func (h *History) Undo() bool {
	if h.step == 0 {
		return false
	}
	h.step--
	return true
}

// Redo moves one step forward. It reports whether anything changed.
func (h *History) Redo() bool {
	if h.step >= len(h.actions) {
		return false
	}
	h.step++
	return true
}

// Last returns the most recent visible action.
func (h *History) Last() (Action, bool) {
	if h.step == 0 {
		return Action{}, false
	}
	return h.actions[h.step-1], true
}

// ReplaceLast swaps the most recent visible action for a.
func (h *History) ReplaceLast(a Action) bool {
	if h.step == 0 {
		return false
	}
	h.actions[h.step-1] = a
	return true
}

// Kept returns a copy of the visible actions, oldest first.
func (h *History) Kept() []Action {
	out := make([]Action, h.step)
	copy(out, h.actions[:h.step])
	return out
}

// All returns a copy of every recorded action, including undone ones.
func (h *History) All() []Action {
	out := make([]Action, len(h.actions))
	copy(out, h.actions)
	return out
}

// Find returns the visible action with the given id.
func (h *History) Find(id string) (Action, bool) {
	if i := h.indexOf(id); i >= 0 && i < h.step {
		return h.actions[i], true
	}
	return Action{}, false
}

// Contains reports whether any recorded action, visible or not, has id.
func (h *History) Contains(id string) bool {
	return h.indexOf(id) >= 0
}

// Update replaces the action with the same id.
func (h *History) Update(a Action) bool {
	i := h.indexOf(a.ID)
	if i < 0 {
		return false
	}
	h.actions[i] = a
	return true
}

// Remove deletes the action with id. Removing a visible action moves the
// step back so the visible/undone split is unchanged.
func (h *History) Remove(id string) bool {
	removed := false
	h.Filter(func(a Action) bool {
		if id != "" && a.ID == id {
			removed = true
			return false
		}
		return true
	})
	return removed
}

// Filter keeps only the actions for which keep returns true. The step
// becomes the number of kept actions that were visible.
func (h *History) Filter(keep func(Action) bool) {
	kept := make([]Action, 0, len(h.actions))
	step := 0
	for i, a := range h.actions {
		if !keep(a) {
			continue
		}
		kept = append(kept, a)
		if i < h.step {
			step++
		}
	}
	h.actions = kept
	h.step = step
}

// Clear empties the history.
func (h *History) Clear() {
	h.actions = nil
	h.step = 0
}

// Load replaces the history wholesale; step is clamped into range.
func (h *History) Load(actions []Action, step int) {
	h.actions = make([]Action, len(actions))
	copy(h.actions, actions)
	h.step = max(0, min(step, len(h.actions)))
}

func (h *History) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, a := range h.actions {
		if a.ID == id {
			return i
		}
	}
	return -1
}
