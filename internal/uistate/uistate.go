// Package uistate owns transient per-device UI state that outlives a single
// request, most importantly which list row currently has its swipe actions
// exposed. The tracker is handed to screen flows explicitly; nothing here is
// ambient or global.
package uistate

import "sync"

// Focus identifies the one row whose swipe actions are exposed.
type Focus struct {
	List string `json:"list"`
	Row  uint   `json:"row"`
}

// Tracker is the single owner of the exposed swipe row. Opening a row closes
// whichever row was exposed before; Close returns the tracker to its empty
// state. Safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	focus *Focus
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Restore seeds the tracker from persisted state.
func (t *Tracker) Restore(focus Focus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if focus.List == "" && focus.Row == 0 {
		t.focus = nil
		return
	}
	t.focus = &focus
}

// Open exposes the given row, implicitly closing any other, and returns the
// now-current focus.
func (t *Tracker) Open(list string, row uint) Focus {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.focus = &Focus{List: list, Row: row}
	return *t.focus
}

// Current reports the exposed row, if any.
func (t *Tracker) Current() (Focus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.focus == nil {
		return Focus{}, false
	}
	return *t.focus, true
}

// Close retracts whatever row is exposed.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.focus = nil
}

// CloseIf retracts the exposed row only when it matches, reporting whether
// anything changed. Row-level close buttons use it so a stale close cannot
// collapse a newer row.
func (t *Tracker) CloseIf(list string, row uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.focus == nil || t.focus.List != list || t.focus.Row != row {
		return false
	}
	t.focus = nil
	return true
}
