package drafts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studyhelper/internal/redis"
)

const draftKeyPrefix = "draft:"

// RedisStore keeps drafts in Redis so they survive a server restart.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, d *Draft) error {
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.SetJSON(ctx, draftKeyPrefix+d.ID, d, ttl); err != nil {
		return fmt.Errorf("store draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Draft, error) {
	var d Draft
	if err := s.client.GetJSON(ctx, draftKeyPrefix+id, &d); err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return &d, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, draftKeyPrefix+id); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
