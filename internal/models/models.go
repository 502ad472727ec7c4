package models

import (
	"sort"
	"time"
)

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
)

func ValidContentType(t ContentType) bool {
	switch t {
	case ContentText, ContentImage, ContentVideo:
		return true
	}
	return false
}

type User struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	Username       string    `bson:"username" json:"username"`
	ProfilePicture string    `bson:"profile_picture,omitempty" json:"profile_picture,omitempty"`
	IsOnline       bool      `bson:"is_online" json:"is_online"`
	LastSeen       time.Time `bson:"last_seen" json:"last_seen"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// Reaction is owned by its message; a user holds at most one per message.
type Reaction struct {
	UserID string `bson:"user_id" json:"user_id"`
	Emoji  string `bson:"emoji" json:"emoji"`
}

type Message struct {
	ID             string        `bson:"_id,omitempty" json:"id"`
	ConversationID string        `bson:"conversation_id" json:"conversation_id"`
	SenderID       string        `bson:"sender_id" json:"sender_id"`
	ReceiverID     string        `bson:"receiver_id" json:"receiver_id"`
	Content        string        `bson:"content,omitempty" json:"content,omitempty"`
	ContentType    ContentType   `bson:"content_type" json:"content_type"`
	MediaURL       string        `bson:"media_url,omitempty" json:"media_url,omitempty"`
	Status         MessageStatus `bson:"message_status" json:"message_status"`
	Reactions      []Reaction    `bson:"reactions,omitempty" json:"reactions,omitempty"`
	CreatedAt      time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at" json:"updated_at"`
}

type Conversation struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	Participants  []string  `bson:"participants" json:"participants"`
	LastMessageID string    `bson:"last_message_id,omitempty" json:"last_message_id,omitempty"`
	UnreadCount   int       `bson:"unread_count" json:"unread_count"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// CanonicalParticipants sorts the pair so a conversation is found regardless
// of which participant initiates it.
func CanonicalParticipants(a, b string) []string {
	p := []string{a, b}
	sort.Strings(p)
	return p
}
