package service

import (
	"context"

	"github.com/Naveenchinthakindi/whatsapp-application/internal/hub"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/models"
)

// MessageStore and ConversationStore are the slices of the durable store
// the coordinator drives. The persisted document is the single source of
// truth for delivery and reaction state.

type MessageStore interface {
	InsertMessage(ctx context.Context, m *models.Message) error
	FindMessageByID(ctx context.Context, id string) (*models.Message, error)
	FindMessagesByIDs(ctx context.Context, ids []string) ([]models.Message, error)
	FindConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	AdvanceStatus(ctx context.Context, messageID string, from, to models.MessageStatus) (bool, error)
	MarkMessagesRead(ctx context.Context, ids []string, receiverID string) (int64, error)
	SetReactions(ctx context.Context, messageID string, reactions []models.Reaction) error
	DeleteMessage(ctx context.Context, messageID string) error
}

type ConversationStore interface {
	FindConversationByParticipants(ctx context.Context, participants []string) (*models.Conversation, error)
	FindConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	FindConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	CreateConversation(ctx context.Context, c *models.Conversation) error
	SetLastMessage(ctx context.Context, conversationID, messageID string) error
	ResetUnread(ctx context.Context, conversationID string) error
}

// Notifier is the fan-out surface: push to a connected peer, silently skip
// an offline one. The returned bool reports whether the peer was reachable.
type Notifier interface {
	SendToUser(userID string, ev hub.Event) bool
}

// Publisher feeds the message-lifecycle event stream for downstream
// services. Best effort; a publish failure never fails the operation.
type Publisher interface {
	Publish(ctx context.Context, eventType, messageID string, payload any) error
}
