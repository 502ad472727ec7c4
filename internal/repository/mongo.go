package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Naveenchinthakindi/whatsapp-application/internal/apperr"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/models"
)

const opTimeout = 5 * time.Second

type MongoRepository struct {
	client        *mongo.Client
	Users         *mongo.Collection
	Conversations *mongo.Collection
	Messages      *mongo.Collection
}

func NewMongoRepository(ctx context.Context, uri, dbName string) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	return &MongoRepository{
		client:        client,
		Users:         db.Collection("users"),
		Conversations: db.Collection("conversations"),
		Messages:      db.Collection("messages"),
	}, nil
}

func (r *MongoRepository) Disconnect(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// Users

func (r *MongoRepository) SetUserOnline(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.Users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"is_online": true, "last_seen": time.Now()}},
	)
	return err
}

func (r *MongoRepository) SetUserOffline(ctx context.Context, userID string, lastSeen time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.Users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"is_online": false, "last_seen": lastSeen}},
	)
	return err
}

func (r *MongoRepository) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var u models.User
	err := r.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Conversations

func (r *MongoRepository) FindConversationByParticipants(ctx context.Context, participants []string) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var c models.Conversation
	err := r.Conversations.FindOne(ctx, bson.M{"participants": participants}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("conversation: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *MongoRepository) FindConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var c models.Conversation
	err := r.Conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("conversation %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *MongoRepository) FindConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	opts := options.Find().SetSort(bson.M{"updated_at": -1})
	cursor, err := r.Conversations.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	var out []models.Conversation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) CreateConversation(ctx context.Context, c *models.Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.Conversations.InsertOne(ctx, c)
	return err
}

// SetLastMessage records the new tail of the conversation and bumps the
// unread badge in one update.
func (r *MongoRepository) SetLastMessage(ctx context.Context, conversationID, messageID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.Conversations.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{
			"$set": bson.M{"last_message_id": messageID, "updated_at": time.Now()},
			"$inc": bson.M{"unread_count": 1},
		},
	)
	return err
}

func (r *MongoRepository) ResetUnread(ctx context.Context, conversationID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.Conversations.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"unread_count": 0}},
	)
	return err
}

// Messages

func (r *MongoRepository) InsertMessage(ctx context.Context, m *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.Messages.InsertOne(ctx, m)
	return err
}

func (r *MongoRepository) FindMessageByID(ctx context.Context, id string) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var m models.Message
	err := r.Messages.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("message %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MongoRepository) FindMessagesByIDs(ctx context.Context, ids []string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	cursor, err := r.Messages.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var out []models.Message
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) FindConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cursor, err := r.Messages.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	var out []models.Message
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdvanceStatus moves a message from exactly `from` to `to`. The filter
// carries the expected current status, so the progression stays monotonic
// under concurrent updates: a message already past `from` is left alone.
func (r *MongoRepository) AdvanceStatus(ctx context.Context, messageID string, from, to models.MessageStatus) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.Messages.UpdateOne(ctx,
		bson.M{"_id": messageID, "message_status": from},
		bson.M{"$set": bson.M{"message_status": to, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// MarkMessagesRead bulk-transitions the given messages to read, touching
// only ones addressed to receiverID that are not yet read.
func (r *MongoRepository) MarkMessagesRead(ctx context.Context, ids []string, receiverID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.Messages.UpdateMany(ctx,
		bson.M{
			"_id":            bson.M{"$in": ids},
			"receiver_id":    receiverID,
			"message_status": bson.M{"$in": bson.A{models.StatusSent, models.StatusDelivered}},
		},
		bson.M{"$set": bson.M{"message_status": models.StatusRead, "updated_at": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoRepository) SetReactions(ctx context.Context, messageID string, reactions []models.Reaction) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.Messages.UpdateOne(ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": bson.M{"reactions": reactions, "updated_at": time.Now()}},
	)
	return err
}

func (r *MongoRepository) DeleteMessage(ctx context.Context, messageID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.Messages.DeleteOne(ctx, bson.M{"_id": messageID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("message %s: %w", messageID, apperr.ErrNotFound)
	}
	return nil
}
