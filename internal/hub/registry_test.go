package hub

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error              { return nil }
func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestSession(userID, connID string) (*Session, *fakeConn) {
	fc := &fakeConn{}
	return NewSession(userID, connID, fc, 8), fc
}

// drainEvent pops one queued event off the session's send buffer.
func drainEvent(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case b := <-s.send:
		var ev Event
		require.NoError(t, json.Unmarshal(b, &ev))
		return ev
	default:
		t.Fatal("no event queued")
		return Event{}
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	s, _ := newTestSession("u1", "conn-1")

	require.Nil(t, r.Register(s))

	got, ok := r.Lookup("u1")
	require.True(t, ok)
	require.Equal(t, "conn-1", got.ConnID)
	require.True(t, r.IsConnected("u1"))
	require.Equal(t, 1, r.Len())

	_, ok = r.Lookup("u2")
	require.False(t, ok)
}

func TestRegistryLastConnectionWins(t *testing.T) {
	r := NewRegistry()
	s1, c1 := newTestSession("u1", "conn-1")
	s2, _ := newTestSession("u1", "conn-2")

	r.Register(s1)
	prev := r.Register(s2)

	require.Same(t, s1, prev)
	require.True(t, c1.isClosed(), "superseded transport must be closed")

	got, ok := r.Lookup("u1")
	require.True(t, ok)
	require.Equal(t, "conn-2", got.ConnID)
	require.Equal(t, 1, r.Len())
}

func TestRegistryUnregisterIgnoresSupersededSession(t *testing.T) {
	r := NewRegistry()
	s1, _ := newTestSession("u1", "conn-1")
	s2, _ := newTestSession("u1", "conn-2")

	r.Register(s1)
	r.Register(s2)

	// the old connection's teardown must not knock the new session out
	require.False(t, r.Unregister("u1", "conn-1"))
	require.True(t, r.IsConnected("u1"))

	require.True(t, r.Unregister("u1", "conn-2"))
	require.False(t, r.IsConnected("u1"))
}

func TestRegistryUnregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	s, _ := newTestSession("u1", "conn-1")
	r.Register(s)

	require.True(t, r.Unregister("u1", "conn-1"))
	require.False(t, r.Unregister("u1", "conn-1"))
	require.False(t, r.Unregister("nobody", "conn-9"))
}

func TestRegistrySendToUser(t *testing.T) {
	r := NewRegistry()
	s, _ := newTestSession("u1", "conn-1")
	r.Register(s)

	require.True(t, r.SendToUser("u1", Event{Type: EventUserStatus}))
	require.False(t, r.SendToUser("offline-user", Event{Type: EventUserStatus}))

	ev := drainEvent(t, s)
	require.Equal(t, EventUserStatus, ev.Type)
}

func TestRegistryBroadcastExceptsOrigin(t *testing.T) {
	r := NewRegistry()
	s1, _ := newTestSession("u1", "conn-1")
	s2, _ := newTestSession("u2", "conn-2")
	s3, _ := newTestSession("u3", "conn-3")
	r.Register(s1)
	r.Register(s2)
	r.Register(s3)

	r.Broadcast(Event{Type: EventUserStatus}, "u1")

	require.Empty(t, s1.send)
	require.Len(t, s2.send, 1)
	require.Len(t, s3.send, 1)
}

func TestSessionPushDropsWhenBufferFull(t *testing.T) {
	s := NewSession("u1", "conn-1", &fakeConn{}, 1)

	require.True(t, s.Push(Event{Type: EventUserStatus}))
	require.False(t, s.Push(Event{Type: EventUserStatus}), "full buffer drops, never blocks")
}

func TestSessionPushAfterClose(t *testing.T) {
	s, _ := newTestSession("u1", "conn-1")
	s.Close()
	s.Close() // safe to repeat

	require.False(t, s.Push(Event{Type: EventUserStatus}))
}
