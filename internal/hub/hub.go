package hub

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Naveenchinthakindi/whatsapp-application/internal/models"
)

// UserStatusStore is the durable side of presence: the record a peer who
// missed the live broadcast reconciles against.
type UserStatusStore interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string, lastSeen time.Time) error
	FindUserByID(ctx context.Context, userID string) (*models.User, error)
}

// PresenceMirror shadows presence into a shared cache for other processes.
type PresenceMirror interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string, lastSeen time.Time) error
}

type Options struct {
	TypingTTL  time.Duration
	SendBuffer int
}

// Hub owns the in-memory coordination state: the session registry and the
// typing coordinator. All of it is ephemeral; on restart every user is
// simply offline until they reconnect.
type Hub struct {
	Registry *Registry
	Typing   *TypingCoordinator

	users    UserStatusStore
	presence PresenceMirror
	log      *zap.SugaredLogger

	sendBuffer int
}

func New(users UserStatusStore, presence PresenceMirror, log *zap.SugaredLogger, opts Options) *Hub {
	if opts.TypingTTL == 0 {
		opts.TypingTTL = 3 * time.Second
	}
	if opts.SendBuffer == 0 {
		opts.SendBuffer = 64
	}
	reg := NewRegistry()
	return &Hub{
		Registry:   reg,
		Typing:     NewTypingCoordinator(opts.TypingTTL, reg),
		users:      users,
		presence:   presence,
		log:        log,
		sendBuffer: opts.SendBuffer,
	}
}

// Connect registers the session for the user, replacing (and closing) any
// prior one, marks the user online durably, and broadcasts presence to all
// other sessions. The broadcast only happens once the durable write commits.
func (h *Hub) Connect(ctx context.Context, userID string, conn Conn) (*Session, error) {
	s := NewSession(userID, uuid.NewString(), conn, h.sendBuffer)

	if err := h.users.SetUserOnline(ctx, userID); err != nil {
		return nil, err
	}
	if prev := h.Registry.Register(s); prev != nil {
		h.log.Infow("session superseded", "user", userID, "old_conn", prev.ConnID, "conn", s.ConnID)
	}
	if h.presence != nil {
		if err := h.presence.SetOnline(ctx, userID); err != nil {
			h.log.Warnw("presence mirror set online", "user", userID, "err", err)
		}
	}

	h.Registry.Broadcast(Event{
		Type:    EventUserStatus,
		Payload: UserStatusPayload{UserID: userID, IsOnline: true},
	}, userID)

	h.log.Infow("user connected", "user", userID, "conn", s.ConnID)
	return s, nil
}

// Disconnect removes the session, cancels its typing timers, marks the user
// offline with a last-seen timestamp, and broadcasts the offline status.
// Idempotent: a session already superseded or removed is a no-op.
func (h *Hub) Disconnect(ctx context.Context, s *Session) {
	s.Close()
	if !h.Registry.Unregister(s.UserID, s.ConnID) {
		return
	}
	h.Typing.CancelAll(s.UserID)

	lastSeen := time.Now()
	if err := h.users.SetUserOffline(ctx, s.UserID, lastSeen); err != nil {
		h.log.Errorw("mark user offline", "user", s.UserID, "err", err)
	}
	if h.presence != nil {
		if err := h.presence.SetOffline(ctx, s.UserID, lastSeen); err != nil {
			h.log.Warnw("presence mirror set offline", "user", s.UserID, "err", err)
		}
	}

	h.Registry.Broadcast(Event{
		Type:    EventUserStatus,
		Payload: UserStatusPayload{UserID: s.UserID, IsOnline: false, LastSeen: &lastSeen},
	}, s.UserID)

	h.log.Infow("user disconnected", "user", s.UserID, "conn", s.ConnID)
}

// UserStatus answers a direct presence query without broadcasting.
func (h *Hub) UserStatus(ctx context.Context, userID string) (bool, time.Time, error) {
	if h.Registry.IsConnected(userID) {
		return true, time.Now(), nil
	}
	u, err := h.users.FindUserByID(ctx, userID)
	if err != nil {
		return false, time.Time{}, err
	}
	return false, u.LastSeen, nil
}
