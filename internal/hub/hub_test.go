package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Naveenchinthakindi/whatsapp-application/internal/models"
)

type fakeUserStore struct {
	mu      sync.Mutex
	online  map[string]bool
	seen    map[string]time.Time
	failSet bool
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{online: make(map[string]bool), seen: make(map[string]time.Time)}
}

func (f *fakeUserStore) SetUserOnline(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errors.New("write failed")
	}
	f.online[userID] = true
	return nil
}

func (f *fakeUserStore) SetUserOffline(ctx context.Context, userID string, lastSeen time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[userID] = false
	f.seen[userID] = lastSeen
	return nil
}

func (f *fakeUserStore) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.User{ID: userID, IsOnline: f.online[userID], LastSeen: f.seen[userID]}, nil
}

func (f *fakeUserStore) isOnline(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[userID]
}

func newTestHub(users *fakeUserStore) *Hub {
	return New(users, nil, zap.NewNop().Sugar(), Options{TypingTTL: time.Minute, SendBuffer: 8})
}

func TestHubConnectBroadcastsPresence(t *testing.T) {
	users := newFakeUserStore()
	h := newTestHub(users)
	ctx := context.Background()

	peer, err := h.Connect(ctx, "u2", &fakeConn{})
	require.NoError(t, err)

	_, err = h.Connect(ctx, "u1", &fakeConn{})
	require.NoError(t, err)
	require.True(t, users.isOnline("u1"))

	ev := drainEvent(t, peer)
	require.Equal(t, EventUserStatus, ev.Type)
	payload := ev.Payload.(map[string]any)
	require.Equal(t, "u1", payload["user_id"])
	require.Equal(t, true, payload["is_online"])
}

func TestHubDisconnectIdempotent(t *testing.T) {
	users := newFakeUserStore()
	h := newTestHub(users)
	ctx := context.Background()

	s, err := h.Connect(ctx, "u1", &fakeConn{})
	require.NoError(t, err)
	peer, err := h.Connect(ctx, "u2", &fakeConn{})
	require.NoError(t, err)
	drainEvent(t, s) // u2's online broadcast

	h.Disconnect(ctx, s)
	require.False(t, h.Registry.IsConnected("u1"))
	require.False(t, users.isOnline("u1"))

	ev := drainEvent(t, peer)
	require.Equal(t, EventUserStatus, ev.Type)
	payload := ev.Payload.(map[string]any)
	require.Equal(t, false, payload["is_online"])
	require.NotNil(t, payload["last_seen"])

	// double teardown during abrupt transport close is a no-op
	h.Disconnect(ctx, s)
	require.Empty(t, peer.send)
}

func TestHubDisconnectOfSupersededSessionKeepsUserOnline(t *testing.T) {
	users := newFakeUserStore()
	h := newTestHub(users)
	ctx := context.Background()

	old, err := h.Connect(ctx, "u1", &fakeConn{})
	require.NoError(t, err)
	_, err = h.Connect(ctx, "u1", &fakeConn{})
	require.NoError(t, err)

	h.Disconnect(ctx, old)

	require.True(t, h.Registry.IsConnected("u1"))
	require.True(t, users.isOnline("u1"))
}

func TestHubConnectPersistenceFailure(t *testing.T) {
	users := newFakeUserStore()
	users.failSet = true
	h := newTestHub(users)

	_, err := h.Connect(context.Background(), "u1", &fakeConn{})
	require.Error(t, err)
	require.False(t, h.Registry.IsConnected("u1"), "no session without a committed online write")
}

func TestHubDisconnectCancelsTyping(t *testing.T) {
	users := newFakeUserStore()
	h := newTestHub(users)
	ctx := context.Background()

	s, err := h.Connect(ctx, "u1", &fakeConn{})
	require.NoError(t, err)
	h.Typing.Start("u1", "c1", "u2")
	require.True(t, h.Typing.IsTyping("u1", "c1"))

	h.Disconnect(ctx, s)
	require.False(t, h.Typing.IsTyping("u1", "c1"))
}

func TestHubUserStatus(t *testing.T) {
	users := newFakeUserStore()
	h := newTestHub(users)
	ctx := context.Background()

	s, err := h.Connect(ctx, "u1", &fakeConn{})
	require.NoError(t, err)

	online, _, err := h.UserStatus(ctx, "u1")
	require.NoError(t, err)
	require.True(t, online)

	h.Disconnect(ctx, s)

	online, lastSeen, err := h.UserStatus(ctx, "u1")
	require.NoError(t, err)
	require.False(t, online)
	require.False(t, lastSeen.IsZero())
}

func TestHubPresenceReflectsLatestEvent(t *testing.T) {
	users := newFakeUserStore()
	h := newTestHub(users)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := h.Connect(ctx, "u1", &fakeConn{})
		require.NoError(t, err)
		require.True(t, h.Registry.IsConnected("u1"))
		h.Disconnect(ctx, s)
		require.False(t, h.Registry.IsConnected("u1"))
	}
}
