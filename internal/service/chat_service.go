package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Naveenchinthakindi/whatsapp-application/internal/apperr"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/hub"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/kafka"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/models"
)

const reactionLockStripes = 64

// ChatService advances message delivery state, toggles reactions and fans
// results out to connected peers. Notifications are emitted only after the
// corresponding persistence write commits.
type ChatService struct {
	messages      MessageStore
	conversations ConversationStore
	notifier      Notifier
	publisher     Publisher
	log           *zap.SugaredLogger

	// serializes read-modify-write per message for reaction toggles
	reactionLocks [reactionLockStripes]sync.Mutex
}

func NewChatService(messages MessageStore, conversations ConversationStore, notifier Notifier, publisher Publisher, log *zap.SugaredLogger) *ChatService {
	return &ChatService{
		messages:      messages,
		conversations: conversations,
		notifier:      notifier,
		publisher:     publisher,
		log:           log,
	}
}

func (s *ChatService) reactionLock(messageID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(messageID))
	return &s.reactionLocks[h.Sum32()%reactionLockStripes]
}

// SendMessage persists a new message as sent, bumps the conversation's
// unread badge, and immediately attempts delivery: if the receiver is
// connected the payload is pushed and the status advances to delivered.
// Delivery here is best-effort notification, not a client acknowledgement.
func (s *ChatService) SendMessage(ctx context.Context, senderID, receiverID, content string, contentType models.ContentType, mediaURL string) (*models.Message, error) {
	if senderID == "" || receiverID == "" {
		return nil, fmt.Errorf("sender and receiver are required: %w", apperr.ErrValidation)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("cannot message yourself: %w", apperr.ErrValidation)
	}
	if !models.ValidContentType(contentType) {
		return nil, fmt.Errorf("unsupported content type %q: %w", contentType, apperr.ErrValidation)
	}
	if contentType == models.ContentText && strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("message content is required: %w", apperr.ErrValidation)
	}
	if contentType != models.ContentText && mediaURL == "" {
		return nil, fmt.Errorf("media url is required: %w", apperr.ErrValidation)
	}

	conv, err := s.findOrCreateConversation(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		ContentType:    contentType,
		MediaURL:       mediaURL,
		Status:         models.StatusSent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.messages.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if err := s.conversations.SetLastMessage(ctx, conv.ID, msg.ID); err != nil {
		s.log.Errorw("update conversation tail", "conversation", conv.ID, "err", err)
	}
	s.publish(ctx, kafka.EventMessageSent, msg.ID, msg)

	// Fan out after the insert committed. An offline receiver is not an
	// error: the message simply stays sent.
	if s.notifier.SendToUser(receiverID, hub.Event{Type: hub.EventReceiveMessage, Payload: msg}) {
		advanced, err := s.messages.AdvanceStatus(ctx, msg.ID, models.StatusSent, models.StatusDelivered)
		if err != nil {
			s.log.Errorw("advance to delivered", "message", msg.ID, "err", err)
		} else if advanced {
			msg.Status = models.StatusDelivered
		}
	}
	return msg, nil
}

func (s *ChatService) findOrCreateConversation(ctx context.Context, senderID, receiverID string) (*models.Conversation, error) {
	participants := models.CanonicalParticipants(senderID, receiverID)
	conv, err := s.conversations.FindConversationByParticipants(ctx, participants)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	now := time.Now()
	conv = &models.Conversation{
		ID:           uuid.NewString(),
		Participants: participants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.conversations.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// MarkRead is the explicit read acknowledgement from a receiving client.
// Every named message must be addressed to the caller; the messages are
// resolved to full documents first so each notification reaches the actual
// sender of that message.
func (s *ChatService) MarkRead(ctx context.Context, readerID string, messageIDs []string) error {
	if readerID == "" || len(messageIDs) == 0 {
		return fmt.Errorf("reader and message ids are required: %w", apperr.ErrValidation)
	}

	msgs, err := s.messages.FindMessagesByIDs(ctx, messageIDs)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	if len(msgs) == 0 {
		return fmt.Errorf("no messages found: %w", apperr.ErrNotFound)
	}
	for _, m := range msgs {
		if m.ReceiverID != readerID {
			return fmt.Errorf("message %s is not addressed to caller: %w", m.ID, apperr.ErrUnauthorized)
		}
	}

	if _, err := s.messages.MarkMessagesRead(ctx, messageIDs, readerID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}

	for _, m := range msgs {
		if m.Status == models.StatusRead {
			continue
		}
		s.notifier.SendToUser(m.SenderID, hub.Event{
			Type:    hub.EventMessageStatusUpdate,
			Payload: hub.MessageStatusPayload{MessageID: m.ID, Status: models.StatusRead},
		})
		s.publish(ctx, kafka.EventMessageRead, m.ID, hub.MessageStatusPayload{MessageID: m.ID, Status: models.StatusRead})
	}
	return nil
}

// OpenConversation returns the conversation's history for a participant and
// treats the fetch as a read: every returned message addressed to the
// caller transitions to read and the unread badge resets. Only the ids the
// fetch actually returned are updated, so a message arriving mid-fetch is
// never marked read unseen.
func (s *ChatService) OpenConversation(ctx context.Context, userID, conversationID string) ([]models.Message, error) {
	if userID == "" || conversationID == "" {
		return nil, fmt.Errorf("user and conversation ids are required: %w", apperr.ErrValidation)
	}
	conv, err := s.conversations.FindConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, fmt.Errorf("caller is not a participant: %w", apperr.ErrUnauthorized)
	}

	msgs, err := s.messages.FindConversationMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation messages: %w", err)
	}

	var unreadIDs []string
	for _, m := range msgs {
		if m.ReceiverID == userID && m.Status != models.StatusRead {
			unreadIDs = append(unreadIDs, m.ID)
		}
	}
	if len(unreadIDs) > 0 {
		if _, err := s.messages.MarkMessagesRead(ctx, unreadIDs, userID); err != nil {
			return nil, fmt.Errorf("mark read on open: %w", err)
		}
	}
	if err := s.conversations.ResetUnread(ctx, conversationID); err != nil {
		s.log.Errorw("reset unread", "conversation", conversationID, "err", err)
	}

	for i := range msgs {
		m := &msgs[i]
		if m.ReceiverID == userID && m.Status != models.StatusRead {
			m.Status = models.StatusRead
			s.notifier.SendToUser(m.SenderID, hub.Event{
				Type:    hub.EventMessageStatusUpdate,
				Payload: hub.MessageStatusPayload{MessageID: m.ID, Status: models.StatusRead},
			})
		}
	}
	return msgs, nil
}

// React toggles the caller's reaction: absent emoji is added, the same
// emoji removes it, a different one replaces it. The read-modify-write is
// serialized per message, then the full updated set is fanned out to both
// participants.
func (s *ChatService) React(ctx context.Context, messageID, userID, emoji string) ([]models.Reaction, error) {
	if messageID == "" || userID == "" || emoji == "" {
		return nil, fmt.Errorf("message id, user id and emoji are required: %w", apperr.ErrValidation)
	}

	mu := s.reactionLock(messageID)
	mu.Lock()
	defer mu.Unlock()

	msg, err := s.messages.FindMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID && msg.ReceiverID != userID {
		return nil, fmt.Errorf("caller is not a participant of message %s: %w", messageID, apperr.ErrUnauthorized)
	}

	reactions := toggleReaction(msg.Reactions, userID, emoji)
	if err := s.messages.SetReactions(ctx, messageID, reactions); err != nil {
		return nil, fmt.Errorf("persist reactions: %w", err)
	}

	payload := hub.ReactionUpdatePayload{MessageID: messageID, Reactions: reactions}
	s.notifier.SendToUser(msg.SenderID, hub.Event{Type: hub.EventReactionUpdate, Payload: payload})
	s.notifier.SendToUser(msg.ReceiverID, hub.Event{Type: hub.EventReactionUpdate, Payload: payload})
	return reactions, nil
}

func toggleReaction(reactions []models.Reaction, userID, emoji string) []models.Reaction {
	for i, r := range reactions {
		if r.UserID != userID {
			continue
		}
		if r.Emoji == emoji {
			return append(reactions[:i:i], reactions[i+1:]...)
		}
		out := make([]models.Reaction, len(reactions))
		copy(out, reactions)
		out[i].Emoji = emoji
		return out
	}
	return append(reactions[:len(reactions):len(reactions)], models.Reaction{UserID: userID, Emoji: emoji})
}

// DeleteMessage removes a message its sender no longer wants and tells the
// receiver, mirroring the delete in their open view.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID, callerID string) error {
	if messageID == "" || callerID == "" {
		return fmt.Errorf("message id and caller are required: %w", apperr.ErrValidation)
	}
	msg, err := s.messages.FindMessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != callerID {
		return fmt.Errorf("only the sender may delete message %s: %w", messageID, apperr.ErrUnauthorized)
	}
	if err := s.messages.DeleteMessage(ctx, messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	s.notifier.SendToUser(msg.ReceiverID, hub.Event{
		Type:    hub.EventMessageDeleted,
		Payload: hub.MessageDeletedPayload{MessageID: messageID},
	})
	s.publish(ctx, kafka.EventMessageDeleted, messageID, hub.MessageDeletedPayload{MessageID: messageID})
	return nil
}

func (s *ChatService) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", apperr.ErrValidation)
	}
	return s.conversations.FindConversationsForUser(ctx, userID)
}

func (s *ChatService) publish(ctx context.Context, eventType, messageID string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, messageID, payload); err != nil {
		s.log.Warnw("publish event", "type", eventType, "message", messageID, "err", err)
	}
}
