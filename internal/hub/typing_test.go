package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	userID string
	ev     Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) SendToUser(userID string, ev Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{userID: userID, ev: ev})
	return true
}

func (n *recordingNotifier) typingEvents() []UserTypingPayload {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []UserTypingPayload
	for _, e := range n.events {
		if e.ev.Type == EventUserTyping {
			out = append(out, e.ev.Payload.(UserTypingPayload))
		}
	}
	return out
}

const testTypingTTL = 30 * time.Millisecond

func TestTypingAutoExpiry(t *testing.T) {
	n := &recordingNotifier{}
	tc := NewTypingCoordinator(testTypingTTL, n)

	tc.Start("u1", "c1", "u2")
	require.True(t, tc.IsTyping("u1", "c1"))

	time.Sleep(4 * testTypingTTL)

	require.False(t, tc.IsTyping("u1", "c1"))
	events := n.typingEvents()
	require.Len(t, events, 2)
	require.Equal(t, UserTypingPayload{UserID: "u1", ConversationID: "c1", IsTyping: true}, events[0])
	require.Equal(t, UserTypingPayload{UserID: "u1", ConversationID: "c1", IsTyping: false}, events[1])
}

func TestTypingRefreshDebounce(t *testing.T) {
	n := &recordingNotifier{}
	tc := NewTypingCoordinator(testTypingTTL, n)

	tc.Start("u1", "c1", "u2")
	time.Sleep(2 * testTypingTTL / 3)
	tc.Start("u1", "c1", "u2")
	time.Sleep(2 * testTypingTTL / 3)

	// the refresh pushed expiry out past the original deadline
	require.True(t, tc.IsTyping("u1", "c1"))

	time.Sleep(4 * testTypingTTL)

	events := n.typingEvents()
	require.Len(t, events, 2, "a refresh must not re-emit started or double-fire expiry")
	require.True(t, events[0].IsTyping)
	require.False(t, events[1].IsTyping)
}

func TestTypingExplicitStopWins(t *testing.T) {
	n := &recordingNotifier{}
	tc := NewTypingCoordinator(testTypingTTL, n)

	tc.Start("u1", "c1", "u2")
	tc.Stop("u1", "c1", "u2")
	require.False(t, tc.IsTyping("u1", "c1"))

	// a timer from the earlier start must not fire against idle state
	time.Sleep(4 * testTypingTTL)

	events := n.typingEvents()
	require.Len(t, events, 2)
	require.False(t, events[1].IsTyping)
}

func TestTypingStopWhenIdleIsNoOp(t *testing.T) {
	n := &recordingNotifier{}
	tc := NewTypingCoordinator(testTypingTTL, n)

	tc.Stop("u1", "c1", "u2")

	require.Empty(t, n.typingEvents())
}

func TestTypingCancelAllOnDisconnect(t *testing.T) {
	n := &recordingNotifier{}
	tc := NewTypingCoordinator(testTypingTTL, n)

	tc.Start("u1", "c1", "u2")
	tc.Start("u1", "c2", "u3")
	tc.Start("u9", "c1", "u2")
	tc.CancelAll("u1")

	require.False(t, tc.IsTyping("u1", "c1"))
	require.False(t, tc.IsTyping("u1", "c2"))
	require.True(t, tc.IsTyping("u9", "c1"))

	time.Sleep(4 * testTypingTTL)

	// only u9's entry expired; cancelled entries emit nothing
	var stops int
	for _, e := range n.typingEvents() {
		if !e.IsTyping {
			stops++
			require.Equal(t, "u9", e.UserID)
		}
	}
	require.Equal(t, 1, stops)
}

func TestTypingIndependentConversations(t *testing.T) {
	n := &recordingNotifier{}
	tc := NewTypingCoordinator(testTypingTTL, n)

	tc.Start("u1", "c1", "u2")
	tc.Start("u1", "c2", "u3")
	tc.Stop("u1", "c1", "u2")

	require.False(t, tc.IsTyping("u1", "c1"))
	require.True(t, tc.IsTyping("u1", "c2"))
}
