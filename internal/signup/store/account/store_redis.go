package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"signup/internal/signup/models"
	"signup/pkg/platform/sentinel"
)

// DefaultKeyPrefix namespaces account records in a shared Redis.
const DefaultKeyPrefix = "users:"

// RedisStore keeps one JSON-encoded account per key.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type RedisOption func(*RedisStore)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return n > 0, nil
}

// Write overwrites any existing record for key.
func (s *RedisStore) Write(ctx context.Context, key string, account models.Account) error {
	payload, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}

// CreateIfAbsent uses SETNX so two sessions racing on one key cannot both win.
func (s *RedisStore) CreateIfAbsent(ctx context.Context, key string, account models.Account) error {
	payload, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	created, err := s.client.SetNX(ctx, s.key(key), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	if !created {
		return fmt.Errorf("create %s: %w", key, sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, key string) (models.Account, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Account{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("redis get %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	var account models.Account
	if err := json.Unmarshal(raw, &account); err != nil {
		return models.Account{}, fmt.Errorf("decode account %s: %w", key, err)
	}
	return account, nil
}
