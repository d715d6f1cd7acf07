package state

// RemoteSet holds actions received from other participants, in arrival
// order, indexed by id. Actions without an id are kept but cannot be
// addressed afterwards.
type RemoteSet struct {
	actions []Action
	index   map[string]int
}

// NewRemoteSet returns an empty set.
func NewRemoteSet() *RemoteSet {
	return &RemoteSet{index: make(map[string]int)}
}

// Len returns the number of stored actions.
func (r *RemoteSet) Len() int { return len(r.actions) }

// Upsert stores a, replacing an existing action with the same id in
// place. It reports whether a was new.
func (r *RemoteSet) Upsert(a Action) bool {
	if a.ID != "" {
		if i, ok := r.index[a.ID]; ok {
			r.actions[i] = a
			return false
		}
		r.index[a.ID] = len(r.actions)
	}
	r.actions = append(r.actions, a)
	return true
}

// Update replaces the action with the same id; it never inserts.
func (r *RemoteSet) Update(a Action) bool {
	i, ok := r.index[a.ID]
	if !ok || a.ID == "" {
		return false
	}
	r.actions[i] = a
	return true
}

// Get returns the action with id.
func (r *RemoteSet) Get(id string) (Action, bool) {
	if i, ok := r.index[id]; ok {
		return r.actions[i], true
	}
	return Action{}, false
}

// Remove deletes the action with id.
func (r *RemoteSet) Remove(id string) bool {
	if _, ok := r.index[id]; !ok {
		return false
	}
	r.Filter(func(a Action) bool { return a.ID != id })
	return true
}

// Filter keeps only the actions for which keep returns true, preserving order.
func (r *RemoteSet) Filter(keep func(Action) bool) {
	kept := r.actions[:0]
	for _, a := range r.actions {
		if keep(a) {
			kept = append(kept, a)
		}
	}
	for i := len(kept); i < len(r.actions); i++ {
		r.actions[i] = Action{}
	}
	r.actions = kept
	r.reindex()
}

// Clear empties the set.
func (r *RemoteSet) Clear() {
	r.actions = nil
	r.index = make(map[string]int)
}

// All returns a copy of the stored actions in arrival order.
func (r *RemoteSet) All() []Action {
	out := make([]Action, len(r.actions))
	copy(out, r.actions)
	return out
}

func (r *RemoteSet) reindex() {
	r.index = make(map[string]int, len(r.actions))
	for i, a := range r.actions {
		if a.ID != "" {
			r.index[a.ID] = i
		}
	}
}
