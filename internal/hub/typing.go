package hub

import (
	"hash/fnv"
	"sync"
	"time"
)

// Notifier delivers an event to a single user if currently connected.
type Notifier interface {
	SendToUser(userID string, ev Event) bool
}

const typingShards = 16

type typingKey struct {
	userID         string
	conversationID string
}

// typingEntry owns its expiry timer: one timer pending per key, cancelled
// and replaced on every refresh. gen guards against a timer that already
// fired racing a refresh or an explicit stop.
type typingEntry struct {
	timer      *time.Timer
	gen        uint64
	receiverID string
}

type typingShard struct {
	mu      sync.Mutex
	entries map[typingKey]*typingEntry
}

// TypingCoordinator tracks per (user, conversation) typing state with
// auto-expiry. State is striped across shards so two users' typing events
// never contend on one lock. Start debounces repeated events; an explicit
// stop and a concurrently firing expiry resolve to a single stopped
// notification.
type TypingCoordinator struct {
	shards [typingShards]typingShard
	ttl    time.Duration
	notify Notifier
}

func NewTypingCoordinator(ttl time.Duration, notify Notifier) *TypingCoordinator {
	t := &TypingCoordinator{ttl: ttl, notify: notify}
	for i := range t.shards {
		t.shards[i].entries = make(map[typingKey]*typingEntry)
	}
	return t
}

func (t *TypingCoordinator) shard(key typingKey) *typingShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.userID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key.conversationID))
	return &t.shards[h.Sum32()%typingShards]
}

// Start marks the user as typing and (re)schedules expiry. The receiver is
// notified point-to-point; repeated starts refresh the timer without
// re-emitting a started event for an already-typing user.
func (t *TypingCoordinator) Start(userID, conversationID, receiverID string) {
	key := typingKey{userID: userID, conversationID: conversationID}
	sh := t.shard(key)

	sh.mu.Lock()
	e, resumed := sh.entries[key]
	if resumed {
		e.timer.Stop()
	} else {
		e = &typingEntry{}
		sh.entries[key] = e
	}
	e.gen++
	e.receiverID = receiverID
	gen := e.gen
	e.timer = time.AfterFunc(t.ttl, func() { t.expire(key, gen) })
	sh.mu.Unlock()

	if !resumed {
		t.notify.SendToUser(receiverID, Event{
			Type:    EventUserTyping,
			Payload: UserTypingPayload{UserID: userID, ConversationID: conversationID, IsTyping: true},
		})
	}
}

// Stop clears typing state and notifies the receiver. Calling it for an
// idle key is a no-op, so a stop racing an already-fired expiry never
// emits a duplicate stopped notification.
func (t *TypingCoordinator) Stop(userID, conversationID, receiverID string) {
	key := typingKey{userID: userID, conversationID: conversationID}
	sh := t.shard(key)

	sh.mu.Lock()
	e, ok := sh.entries[key]
	if ok {
		e.timer.Stop()
		delete(sh.entries, key)
	}
	sh.mu.Unlock()

	if ok {
		t.notify.SendToUser(receiverID, Event{
			Type:    EventUserTyping,
			Payload: UserTypingPayload{UserID: userID, ConversationID: conversationID, IsTyping: false},
		})
	}
}

func (t *TypingCoordinator) expire(key typingKey, gen uint64) {
	sh := t.shard(key)

	sh.mu.Lock()
	e, ok := sh.entries[key]
	if !ok || e.gen != gen {
		// refreshed or explicitly stopped after this timer was scheduled
		sh.mu.Unlock()
		return
	}
	receiverID := e.receiverID
	delete(sh.entries, key)
	sh.mu.Unlock()

	t.notify.SendToUser(receiverID, Event{
		Type:    EventUserTyping,
		Payload: UserTypingPayload{UserID: key.userID, ConversationID: key.conversationID, IsTyping: false},
	})
}

// CancelAll drops every pending typing entry for the user without emitting
// stopped events; peers learn the user left via the presence broadcast.
func (t *TypingCoordinator) CancelAll(userID string) {
	for i := range t.shards {
		sh := &t.shards[i]
		sh.mu.Lock()
		for key, e := range sh.entries {
			if key.userID == userID {
				e.timer.Stop()
				delete(sh.entries, key)
			}
		}
		sh.mu.Unlock()
	}
}

// IsTyping reports current state, mainly for tests and introspection.
func (t *TypingCoordinator) IsTyping(userID, conversationID string) bool {
	key := typingKey{userID: userID, conversationID: conversationID}
	sh := t.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.entries[key]
	return ok
}
