package hub

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/Naveenchinthakindi/whatsapp-application/internal/metrics"
)

// Conn is the subset of *websocket.Conn the session owns for writing.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session is one user's live connection. A user has at most one session;
// a newer connect supersedes it (the registry closes the old one).
type Session struct {
	UserID      string
	ConnID      string
	ConnectedAt time.Time

	conn      Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewSession(userID, connID string, conn Conn, sendBuffer int) *Session {
	return &Session{
		UserID:      userID,
		ConnID:      connID,
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
	}
}

// Push queues an event for delivery without blocking the caller. A full
// buffer means the peer is draining too slowly; the event is dropped and
// the peer reconciles from persisted state on its next fetch.
func (s *Session) Push(ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- ev.Encode():
		metrics.EventsDispatched.WithLabelValues(ev.Type).Inc()
		return true
	default:
		metrics.EventsDropped.Inc()
		return false
	}
}

// Close tears down the transport. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// WritePump drains the send channel onto the transport and keeps the
// connection alive with pings. Runs in its own goroutine per session.
func (s *Session) WritePump(pingInterval, writeDeadline time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.Close()
	}()
	for {
		select {
		case <-s.done:
			return
		case b := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}
