package httpapi

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formbuilder/pkg/session"
)

type sessionEntry struct {
	id       string
	formID   string
	runtime  *session.Runtime
	lastSeen time.Time
}

// registry tracks open sessions. The runtime serializes edits itself; the
// registry lock only guards the map.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	now      func() time.Time
	onClose  func()
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[string]*sessionEntry),
		now:      time.Now,
		onClose:  func() {},
	}
}

func (r *registry) add(formID string, rt *session.Runtime) *sessionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireLocked()
	entry := &sessionEntry{
		id:       uuid.NewString(),
		formID:   formID,
		runtime:  rt,
		lastSeen: r.now(),
	}
	r.sessions[entry.id] = entry
	return entry
}

func (r *registry) get(id string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireLocked()
	entry, ok := r.sessions[id]
	if ok {
		entry.lastSeen = r.now()
	}
	return entry, ok
}

func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.onClose()
	}
	return ok
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *registry) expireLocked() {
	if r.ttl <= 0 {
		return
	}
	cutoff := r.now().Add(-r.ttl)
	for id, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			r.onClose()
		}
	}
}
