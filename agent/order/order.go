// Package order holds the order ledger: the ordered list of items in the
// current order, the four operations the waiter agent calls on it, and the
// contract its storage backends implement.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultUnitPrice is charged for every item in the order.
const DefaultUnitPrice = 10

// Item is one occurrence of a name in the order. Duplicate names are
// distinct items.
type Item struct {
	ID   int64  `json:"id"`
	Name string `json:"item"`
}

// Backend persists the items of the single current order.
//
// Append and Remove are each one atomic mutation. Items returns the entries
// in insertion order.
type Backend interface {
	Append(ctx context.Context, names []string) error
	Remove(ctx context.Context, names []string) (int, error)
	Items(ctx context.Context) ([]Item, error)
	Close() error
}

// MatchPolicy reports whether a stored entry is deleted by a removal
// request carrying the given names.
type MatchPolicy func(entry string, requested []string) bool

// ExactMatch deletes entries equal to one of the requested names.
func ExactMatch(entry string, requested []string) bool {
	for _, name := range requested {
		if entry == name {
			return true
		}
	}
	return false
}

// ContainmentMatch deletes entries that appear inside one of the requested
// names, so a request for "the large soda" removes "soda". The substring
// test applies to every requested name, including each element of a list
// request: removing ["large soda"] also removes a plain "soda" entry. Use
// ExactMatch when list requests must match whole names only.
func ContainmentMatch(entry string, requested []string) bool {
	for _, name := range requested {
		if strings.Contains(name, entry) {
			return true
		}
	}
	return false
}

// ParseMatchPolicy maps a configured policy name to its MatchPolicy.
func ParseMatchPolicy(name string) (MatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "containment":
		return ContainmentMatch, nil
	case "exact":
		return ExactMatch, nil
	default:
		return nil, fmt.Errorf("unknown match policy %q", name)
	}
}

var ErrNilBackend = errors.New("order backend is nil")

// StorageError wraps a backend failure with the ledger operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("order %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Names returns the names of items in order.
func Names(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}
