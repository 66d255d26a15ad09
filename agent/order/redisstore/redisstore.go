// Package redisstore keeps the order in a Redis list so several waiter
// processes can share it.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/tanpawarit/chative-waiter/agent/order"
)

const DefaultKey = "waiter:order"

type Config struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// Store is a Redis-list order backend. Removal uses exact name equality.
// Item IDs are 1-based list positions, not stored identifiers: removing an
// entry renumbers every entry after it.
type Store struct {
	client *redis.Client
	key    string
}

var _ order.Backend = (*Store)(nil)

func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, errors.New("redisstore: address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return NewWithClient(client, cfg.Key), nil
}

// NewWithClient uses an existing client; an empty key selects DefaultKey.
func NewWithClient(client *redis.Client, key string) *Store {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

func (s *Store) Append(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	values := make([]any, 0, len(names))
	for _, name := range names {
		values = append(values, name)
	}
	if err := s.client.RPush(ctx, s.key, values...).Err(); err != nil {
		return fmt.Errorf("redisstore: rpush: %w", err)
	}
	return nil
}

// Remove issues one LREM per name inside a MULTI/EXEC block.
func (s *Store) Remove(ctx context.Context, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	cmds, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, name := range uniq(names) {
			pipe.LRem(ctx, s.key, 0, name)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redisstore: lrem: %w", err)
	}
	removed := 0
	for _, cmd := range cmds {
		if c, ok := cmd.(*redis.IntCmd); ok {
			removed += int(c.Val())
		}
	}
	return removed, nil
}

// Items numbers entries by their current list position.
func (s *Store) Items(ctx context.Context) ([]order.Item, error) {
	values, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: lrange: %w", err)
	}
	out := make([]order.Item, 0, len(values))
	for i, v := range values {
		out = append(out, order.Item{ID: int64(i + 1), Name: v})
	}
	return out, nil
}

// Reset deletes the whole order.
func (s *Store) Reset(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func uniq(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
