package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Naveenchinthakindi/whatsapp-application/internal/auth"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/hub"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/service"
)

// envelope is the inbound frame: {"type": "...", "payload": {...}}
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type typingPayload struct {
	ConversationID string `json:"conversation_id"`
	ReceiverID     string `json:"receiver_id"`
}

type messageReadPayload struct {
	MessageIDs []string `json:"message_ids"`
}

type addReactionPayload struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type userStatusQuery struct {
	UserID string `json:"user_id"`
}

type WSConfig struct {
	PingInterval  time.Duration
	WriteDeadline time.Duration
	MaxMsgSize    int64
	EventsPerSec  int
	EventBurst    int
}

type WSHandler struct {
	hub       *hub.Hub
	svc       *service.ChatService
	jwtSecret string
	cfg       WSConfig
	log       *zap.SugaredLogger
}

func NewWSHandler(h *hub.Hub, svc *service.ChatService, jwtSecret string, cfg WSConfig, log *zap.SugaredLogger) *WSHandler {
	return &WSHandler{hub: h, svc: svc, jwtSecret: jwtSecret, cfg: cfg, log: log}
}

// Handle runs one connection's event loop: /ws?token=<jwt>. Events from
// this connection are processed in arrival order; events from other
// connections interleave freely.
func (w *WSHandler) Handle(c *websocket.Conn) {
	token := c.Query("token")
	claims, err := auth.ParseAndValidateToken(w.jwtSecret, token)
	if err != nil {
		_ = c.WriteMessage(websocket.TextMessage, hub.Event{
			Type: hub.EventError, Payload: hub.ErrorPayload{Error: "invalid token"},
		}.Encode())
		_ = c.Close()
		return
	}
	userID := claims.UserID

	ctx := context.Background()
	session, err := w.hub.Connect(ctx, userID, c)
	if err != nil {
		w.log.Errorw("connect", "user", userID, "err", err)
		_ = c.Close()
		return
	}
	defer w.hub.Disconnect(ctx, session)

	go session.WritePump(w.cfg.PingInterval, w.cfg.WriteDeadline)

	limiter := rate.NewLimiter(rate.Limit(w.cfg.EventsPerSec), w.cfg.EventBurst)

	c.SetReadLimit(w.cfg.MaxMsgSize)
	_ = c.SetReadDeadline(time.Now().Add(2 * w.cfg.PingInterval))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(2 * w.cfg.PingInterval))
	})

	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		_ = c.SetReadDeadline(time.Now().Add(2 * w.cfg.PingInterval))
		if !limiter.Allow() {
			session.Push(hub.Event{Type: hub.EventError, Payload: hub.ErrorPayload{Error: "too many events"}})
			continue
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// malformed frames are ignored, not fatal
			continue
		}
		w.dispatch(ctx, session, userID, env)
	}
}

func (w *WSHandler) dispatch(ctx context.Context, session *hub.Session, userID string, env envelope) {
	switch env.Type {
	case "typing_start":
		var p typingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ConversationID == "" || p.ReceiverID == "" {
			return
		}
		w.hub.Typing.Start(userID, p.ConversationID, p.ReceiverID)

	case "typing_stop":
		var p typingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ConversationID == "" || p.ReceiverID == "" {
			return
		}
		w.hub.Typing.Stop(userID, p.ConversationID, p.ReceiverID)

	case "message_read":
		var p messageReadPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		if err := w.svc.MarkRead(ctx, userID, p.MessageIDs); err != nil {
			w.log.Warnw("mark read", "user", userID, "err", err)
			session.Push(hub.Event{Type: hub.EventError, Payload: hub.ErrorPayload{Error: err.Error()}})
		}

	case "add_reaction":
		var p addReactionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		if _, err := w.svc.React(ctx, p.MessageID, userID, p.Emoji); err != nil {
			w.log.Warnw("react", "user", userID, "message", p.MessageID, "err", err)
			session.Push(hub.Event{Type: hub.EventError, Payload: hub.ErrorPayload{Error: err.Error()}})
		}

	case "get_user_status":
		var p userStatusQuery
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.UserID == "" {
			return
		}
		online, lastSeen, err := w.hub.UserStatus(ctx, p.UserID)
		if err != nil {
			session.Push(hub.Event{Type: hub.EventError, Payload: hub.ErrorPayload{Error: err.Error()}})
			return
		}
		payload := hub.UserStatusPayload{UserID: p.UserID, IsOnline: online}
		if !online && !lastSeen.IsZero() {
			payload.LastSeen = &lastSeen
		}
		session.Push(hub.Event{Type: hub.EventUserStatus, Payload: payload})

	default:
		// unknown event types are ignored
	}
}
