package hub

import (
	"hash/fnv"
	"sync"

	"github.com/Naveenchinthakindi/whatsapp-application/internal/metrics"
)

const registryShards = 16

// Registry maps a user id to its live session. Access is serialized per
// shard rather than behind one coarse lock, so a slow broadcast over one
// shard never blocks connects on the others.
type Registry struct {
	shards [registryShards]registryShard
}

type registryShard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].sessions = make(map[string]*Session)
	}
	return r
}

func (r *Registry) shard(userID string) *registryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &r.shards[h.Sum32()%registryShards]
}

// Register installs the session as the user's only connection. Any prior
// session for the same user is returned already closed, so a reconnect
// storm cannot leak transports.
func (r *Registry) Register(s *Session) *Session {
	sh := r.shard(s.UserID)
	sh.mu.Lock()
	prev := sh.sessions[s.UserID]
	sh.sessions[s.UserID] = s
	sh.mu.Unlock()
	if prev != nil {
		prev.Close()
	} else {
		metrics.ActiveConnections.Inc()
	}
	return prev
}

// Unregister removes the session only if it is still the current one for
// the user; a session superseded by a later connect is a no-op here. Returns
// whether the user actually went offline.
func (r *Registry) Unregister(userID, connID string) bool {
	sh := r.shard(userID)
	sh.mu.Lock()
	cur, ok := sh.sessions[userID]
	if !ok || cur.ConnID != connID {
		sh.mu.Unlock()
		return false
	}
	delete(sh.sessions, userID)
	sh.mu.Unlock()
	metrics.ActiveConnections.Dec()
	return true
}

// Lookup is non-blocking; absence means never connected or disconnected.
func (r *Registry) Lookup(userID string) (*Session, bool) {
	sh := r.shard(userID)
	sh.mu.RLock()
	s, ok := sh.sessions[userID]
	sh.mu.RUnlock()
	return s, ok
}

func (r *Registry) IsConnected(userID string) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// SendToUser pushes an event to the user's session if one exists. Offline
// peers are silently skipped.
func (r *Registry) SendToUser(userID string, ev Event) bool {
	s, ok := r.Lookup(userID)
	if !ok {
		return false
	}
	return s.Push(ev)
}

// Broadcast pushes an event to every registered session except exceptUserID.
func (r *Registry) Broadcast(ev Event, exceptUserID string) {
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		targets := make([]*Session, 0, len(sh.sessions))
		for id, s := range sh.sessions {
			if id == exceptUserID {
				continue
			}
			targets = append(targets, s)
		}
		sh.mu.RUnlock()
		for _, s := range targets {
			s.Push(ev)
		}
	}
}

func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
