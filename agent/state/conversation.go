package state

import (
	"errors"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Conversation is the chat history of one session, replayed to the model
// on every turn.
type Conversation struct {
	SessionID string            `json:"session_id"`
	Messages  []*schema.Message `json:"messages,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

var ErrNilMessage = errors.New("message is nil")

func NewConversation(sessionID string, now time.Time) *Conversation {
	return &Conversation{
		SessionID: sessionID,
		Messages:  make([]*schema.Message, 0, 16),
		UpdatedAt: now.UTC(),
	}
}

func (c *Conversation) Touch(now time.Time) {
	c.UpdatedAt = now.UTC()
}

func (c *Conversation) Append(msgs ...*schema.Message) error {
	for _, m := range msgs {
		if m == nil {
			return ErrNilMessage
		}
	}
	c.Messages = append(c.Messages, msgs...)
	return nil
}

// Trim keeps at most max messages. The kept history always starts at a user
// message so no tool reply is separated from the call that produced it.
// When the last max messages hold no user message, the latest turn is kept
// whole even if it is longer than max. max <= 0 disables trimming.
func (c *Conversation) Trim(max int) {
	if max <= 0 || len(c.Messages) <= max {
		return
	}
	cut := len(c.Messages) - max
	start := cut
	for start < len(c.Messages) && c.Messages[start].Role != schema.User {
		start++
	}
	if start == len(c.Messages) {
		start = cut
		for start > 0 && c.Messages[start].Role != schema.User {
			start--
		}
		if c.Messages[start].Role != schema.User {
			return
		}
	}
	kept := make([]*schema.Message, len(c.Messages)-start)
	copy(kept, c.Messages[start:])
	c.Messages = kept
}

func (c *Conversation) Validate() error {
	if c.SessionID == "" {
		return ErrInvalidSession
	}
	for _, m := range c.Messages {
		if m == nil {
			return ErrNilMessage
		}
	}
	return nil
}
