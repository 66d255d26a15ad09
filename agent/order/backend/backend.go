// Package backend selects and opens the order backend named in configuration.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/tanpawarit/chative-waiter/agent/order"
	"github.com/tanpawarit/chative-waiter/agent/order/memory"
	"github.com/tanpawarit/chative-waiter/agent/order/redisstore"
	"github.com/tanpawarit/chative-waiter/agent/order/sqlstore"
)

const (
	KindMemory = "memory"
	KindSQL    = "sql"
	KindRedis  = "redis"
)

type Config struct {
	Backend     string `split_words:"true" default:"memory"`
	DSN         string `envconfig:"DSN" default:"orders.db"`
	MatchPolicy string `split_words:"true" default:"containment"`
	UnitPrice   int    `split_words:"true" default:"10"`

	RedisAddress  string `split_words:"true"`
	RedisPassword string `split_words:"true"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisKey      string `split_words:"true" default:"waiter:order"`
}

// Open returns the configured backend. The caller owns it and must Close it.
func Open(ctx context.Context, cfg Config) (order.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", KindMemory:
		policy, err := order.ParseMatchPolicy(cfg.MatchPolicy)
		if err != nil {
			return nil, err
		}
		return memory.New(memory.WithMatchPolicy(policy)), nil
	case KindSQL:
		return sqlstore.Open(ctx, cfg.DSN)
	case KindRedis:
		return redisstore.New(ctx, redisstore.Config{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
	default:
		return nil, fmt.Errorf("unknown order backend %q", cfg.Backend)
	}
}

// OpenLedger opens the backend and wraps it in a ledger priced per cfg.
func OpenLedger(ctx context.Context, cfg Config) (*order.Ledger, error) {
	b, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts := []order.Option{}
	if cfg.UnitPrice > 0 {
		opts = append(opts, order.WithUnitPrice(cfg.UnitPrice))
	}
	l, err := order.New(b, opts...)
	if err != nil {
		b.Close()
		return nil, err
	}
	return l, nil
}
