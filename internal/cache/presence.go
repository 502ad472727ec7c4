package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store mirrors presence into Redis so other processes (and a future
// multi-instance backplane) can answer "is this user online" without
// touching the coordinator's memory.
//
// Key: <prefix>:presence:<userID> -> {"is_online":bool,"last_seen":unix}

type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type presenceRecord struct {
	IsOnline bool  `json:"is_online"`
	LastSeen int64 `json:"last_seen"`
}

func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

func (s *Store) SetOnline(ctx context.Context, userID string) error {
	b, _ := json.Marshal(presenceRecord{IsOnline: true, LastSeen: time.Now().Unix()})
	return s.client.Set(ctx, s.key(userID), b, s.ttl).Err()
}

func (s *Store) SetOffline(ctx context.Context, userID string, lastSeen time.Time) error {
	b, _ := json.Marshal(presenceRecord{IsOnline: false, LastSeen: lastSeen.Unix()})
	return s.client.Set(ctx, s.key(userID), b, 0).Err()
}

// Get returns the mirrored presence. A missing key reads as offline with a
// zero last-seen; the durable store is the authority for history.
func (s *Store) Get(ctx context.Context, userID string) (bool, time.Time, error) {
	b, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, err
	}
	var rec presenceRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return false, time.Time{}, err
	}
	return rec.IsOnline, time.Unix(rec.LastSeen, 0), nil
}
