package session

import "sync"

// contextTable is the controller-side mapping from context id to the Task
// it was assigned to, used to route incoming worker messages. It also
// keeps a last-task slot, the fallback target for messages that carry a
// context id that has already been retired (e.g. a display update issued
// by code scheduled after the owning request ended).
type contextTable struct {
	mu       sync.Mutex
	entries  map[int64]*Task
	lastTask *Task
	lastID   int64
}

func newContextTable() *contextTable {
	return &contextTable{entries: make(map[int64]*Task)}
}

func (t *contextTable) add(id int64, task *Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = task
	t.lastTask = task
	t.lastID = id
}

func (t *contextTable) get(id int64) (*Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if task, ok := t.entries[id]; ok {
		return task, true
	}
	if t.lastTask != nil {
		return t.lastTask, true
	}
	return nil, false
}

// remove deletes the entry for id. It returns nothing; clearing the
// in-flight slot is left to the caller.
func (t *contextTable) remove(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

// DisplayMirror receives a best-effort copy of display-table open/close
// events for out-of-process inspection (e.g. "what is session X currently
// displaying"). It is never consulted to route messages or to resume
// worker state; Controller's own in-memory displayTable remains the only
// source of truth for that.
type DisplayMirror interface {
	Open(sessionID, displayID string)
	Close(sessionID, displayID string)
}

// displayTable is the controller-side mapping from opaque display id to
// the Task that owns it, so a later execute can update an earlier
// display. An entry is added on display.open and removed on
// display.close.
type displayTable struct {
	mu        sync.Mutex
	entries   map[string]*Task
	sessionID string
	mirror    DisplayMirror
}

func newDisplayTable() *displayTable {
	return &displayTable{entries: make(map[string]*Task)}
}

// setMirror installs a mirror that is notified, best-effort, of every
// subsequent open/close. sessionID identifies the owning session to the
// mirror; it is meaningless to the table itself.
func (d *displayTable) setMirror(sessionID string, mirror DisplayMirror) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessionID = sessionID
	d.mirror = mirror
}

func (d *displayTable) open(displayID string, task *Task) {
	d.mu.Lock()
	d.entries[displayID] = task
	mirror, sessionID := d.mirror, d.sessionID
	d.mu.Unlock()
	if mirror != nil {
		mirror.Open(sessionID, displayID)
	}
}

func (d *displayTable) owner(displayID string) (*Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, ok := d.entries[displayID]
	return task, ok
}

func (d *displayTable) close(displayID string) {
	d.mu.Lock()
	delete(d.entries, displayID)
	mirror, sessionID := d.mirror, d.sessionID
	d.mu.Unlock()
	if mirror != nil {
		mirror.Close(sessionID, displayID)
	}
}
