// Package memory implements an in-process order backend. Its contents live
// as long as the Backend value does.
package memory

import (
	"context"
	"sync"

	"github.com/tanpawarit/chative-waiter/agent/order"
)

type Option func(*Backend)

// WithMatchPolicy replaces the default containment policy used by Remove.
func WithMatchPolicy(policy order.MatchPolicy) Option {
	return func(b *Backend) {
		if policy != nil {
			b.match = policy
		}
	}
}

// Backend keeps the order as an ordered slice.
type Backend struct {
	mu     sync.RWMutex
	items  []order.Item
	nextID int64
	match  order.MatchPolicy
}

var _ order.Backend = (*Backend)(nil)

// New creates an empty backend using order.ContainmentMatch for removals.
func New(opts ...Option) *Backend {
	b := &Backend{
		items: make([]order.Item, 0, 8),
		match: order.ContainmentMatch,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Backend) Append(ctx context.Context, names []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range names {
		b.nextID++
		b.items = append(b.items, order.Item{ID: b.nextID, Name: name})
	}
	return nil
}

// Remove drops every entry the match policy selects and keeps the order of
// the survivors.
func (b *Backend) Remove(ctx context.Context, names []string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.items[:0]
	removed := 0
	for _, it := range b.items {
		if b.match(it.Name, names) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	b.items = kept
	return removed, nil
}

func (b *Backend) Items(ctx context.Context) ([]order.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]order.Item, len(b.items))
	copy(out, b.items)
	return out, nil
}

func (b *Backend) Close() error {
	return nil
}
