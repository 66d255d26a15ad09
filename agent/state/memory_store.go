package state

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// MemoryStore keeps conversations in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*Conversation
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]*Conversation)}
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*Conversation, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[sessionID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return clone(c), nil
}

func (s *MemoryStore) Save(ctx context.Context, c *Conversation) error {
	if c == nil {
		return ErrNilConversation
	}
	if strings.TrimSpace(c.SessionID) == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[c.SessionID] = clone(c)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, sessionID)
	return nil
}

func clone(c *Conversation) *Conversation {
	out := *c
	out.Messages = append([]*schema.Message(nil), c.Messages...)
	return &out
}
