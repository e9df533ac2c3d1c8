package buffer

// Tracker decides whether a store has unsaved changes
type Tracker struct {
	store *Store
}

// NewTracker creates a tracker reading from store
func NewTracker(store *Store) *Tracker {
	return &Tracker{store: store}
}

// IsModified reports whether any buffer differs from its baseline
func (t *Tracker) IsModified() bool {
	for _, id := range all {
		if t.store.Get(id) != t.store.Baseline(id) {
			return true
		}
	}
	return false
}

// Modified lists the buffers that differ from their baseline
func (t *Tracker) Modified() []ID {
	var ids []ID
	for _, id := range all {
		if t.store.Get(id) != t.store.Baseline(id) {
			ids = append(ids, id)
		}
	}
	return ids
}
