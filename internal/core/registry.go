package core

import (
	"slices"
	"strings"
	"sync"
)

// Registry is the single owner of connection metadata. All access goes
// through its methods; the lock is never held across I/O.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register inserts a pending entry with no outbound path.
func (r *Registry) Register(id string, userID, sessionID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = Entry{ID: id, UserID: userID, SessionID: sessionID}
}

// Attach binds the live send path to an existing entry. Returns false if id is unknown.
func (r *Registry) Attach(id string, out Sender) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.Outbound = out
	r.entries[id] = e
	return true
}

// Unregister removes the entry. Returns true if one was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// SetSession moves an entry to another session. Returns false if id is unknown.
func (r *Registry) SetSession(id string, sessionID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.SessionID = sessionID
	r.entries[id] = e
	return true
}

// Lookup returns a copy of the entry for id.
func (r *Registry) Lookup(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// SnapshotMatching copies every entry accepted by match, ordered by id.
// The copies share the outbound handle, not the socket.
func (r *Registry) SnapshotMatching(match func(Entry) bool) []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if match == nil || match(e) {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Len returns the number of registered entries, attached or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Attached returns the number of entries with a live connection.
func (r *Registry) Attached() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if e.Outbound != nil {
			n++
		}
	}
	return n
}
