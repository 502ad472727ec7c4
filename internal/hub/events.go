package hub

import (
	"encoding/json"
	"time"

	"github.com/Naveenchinthakindi/whatsapp-application/internal/models"
)

// Outbound event types pushed to connected peers. Events are never queued
// for offline users; a reconnecting client reconciles by fetching state.
const (
	EventUserStatus          = "user_status"
	EventUserTyping          = "user_typing"
	EventReceiveMessage      = "receive_message"
	EventMessageStatusUpdate = "message_status_update"
	EventReactionUpdate      = "reaction_update"
	EventMessageDeleted      = "message_deleted"
	EventError               = "error_message"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (e Event) Encode() []byte {
	b, _ := json.Marshal(e)
	return b
}

type UserStatusPayload struct {
	UserID   string     `json:"user_id"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

type UserTypingPayload struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

type MessageStatusPayload struct {
	MessageID string               `json:"message_id"`
	Status    models.MessageStatus `json:"message_status"`
}

type ReactionUpdatePayload struct {
	MessageID string            `json:"message_id"`
	Reactions []models.Reaction `json:"reactions"`
}

type MessageDeletedPayload struct {
	MessageID string `json:"message_id"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
