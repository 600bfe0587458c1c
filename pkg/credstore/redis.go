package credstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps the pair as two string keys written in one transaction.
// Useful when several client processes on a host share one session.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a store using client. Prefix may be empty.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "portal:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) accessKey() string  { return s.prefix + KeyAccessToken }
func (s *RedisStore) refreshKey() string { return s.prefix + KeyRefreshToken }

func (s *RedisStore) Load(ctx context.Context) (*oauth2.Token, error) {
	vals, err := s.client.MGet(ctx, s.accessKey(), s.refreshKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("credstore.RedisStore.Load: %w", err)
	}
	var rec record
	if v, ok := vals[0].(string); ok {
		rec.AccessToken = v
	}
	if v, ok := vals[1].(string); ok {
		rec.RefreshToken = v
	}
	return rec.token(), nil
}

func (s *RedisStore) Save(ctx context.Context, tok *oauth2.Token) error {
	rec, err := toRecord(tok)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accessKey(), rec.AccessToken, 0)
		pipe.Set(ctx, s.refreshKey(), rec.RefreshToken, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("credstore.RedisStore.Save: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.accessKey(), s.refreshKey()).Err(); err != nil {
		return fmt.Errorf("credstore.RedisStore.Clear: %w", err)
	}
	return nil
}
