package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
)

func TestConversationTrimKeepsUserBoundary(t *testing.T) {
	t.Parallel()

	c := NewConversation("s1", time.Now())
	msgs := []*schema.Message{
		schema.UserMessage("one pizza"),
		schema.AssistantMessage("", []schema.ToolCall{{ID: "c1", Function: schema.FunctionCall{Name: "insert_order", Arguments: `{"items":["pizza"]}`}}}),
		schema.ToolMessage(`{"message":"Items added to order"}`, "c1"),
		schema.AssistantMessage("Added pizza, total 10.", nil),
		schema.UserMessage("and a soda"),
		schema.AssistantMessage("Added soda.", nil),
	}
	if err := c.Append(msgs...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	c.Trim(4)
	if len(c.Messages) != 2 {
		t.Fatalf("expected 2 messages after trim, got %d", len(c.Messages))
	}
	if c.Messages[0].Role != schema.User || c.Messages[0].Content != "and a soda" {
		t.Fatalf("history must start at a user message, got %#v", c.Messages[0])
	}
}

func TestConversationTrimKeepsLongLastTurn(t *testing.T) {
	t.Parallel()

	call := func(id string) *schema.Message {
		return schema.AssistantMessage("", []schema.ToolCall{{ID: id, Function: schema.FunctionCall{Name: "search_order", Arguments: `{}`}}})
	}

	c := NewConversation("s1", time.Now())
	msgs := []*schema.Message{
		schema.UserMessage("hi"),
		schema.AssistantMessage("Hello!", nil),
		schema.UserMessage("check my order a few times"),
		call("c1"),
		schema.ToolMessage(`{"current_order":[]}`, "c1"),
		call("c2"),
		schema.ToolMessage(`{"current_order":[]}`, "c2"),
		schema.AssistantMessage("Your order is empty.", nil),
	}
	if err := c.Append(msgs...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	c.Trim(3)
	if len(c.Messages) != 6 {
		t.Fatalf("expected the whole last turn (6 messages), got %d", len(c.Messages))
	}
	if c.Messages[0].Role != schema.User || c.Messages[0].Content != "check my order a few times" {
		t.Fatalf("history must start at the last user message, got %#v", c.Messages[0])
	}
	if c.Messages[5].Content != "Your order is empty." {
		t.Fatalf("latest reply lost: %#v", c.Messages[5])
	}
}

func TestConversationTrimWithoutUserMessage(t *testing.T) {
	t.Parallel()

	c := NewConversation("s1", time.Now())
	_ = c.Append(
		schema.AssistantMessage("a", nil),
		schema.AssistantMessage("b", nil),
		schema.AssistantMessage("c", nil),
	)
	c.Trim(1)
	if len(c.Messages) != 3 {
		t.Fatalf("expected history kept when no user boundary exists, got %d", len(c.Messages))
	}
}

func TestConversationTrimDisabled(t *testing.T) {
	t.Parallel()

	c := NewConversation("s1", time.Now())
	_ = c.Append(schema.UserMessage("a"), schema.AssistantMessage("b", nil))
	c.Trim(0)
	if len(c.Messages) != 2 {
		t.Fatalf("expected untouched history, got %d", len(c.Messages))
	}
}

func TestConversationAppendRejectsNil(t *testing.T) {
	t.Parallel()

	c := NewConversation("s1", time.Now())
	if err := c.Append(schema.UserMessage("a"), nil); !errors.Is(err, ErrNilMessage) {
		t.Fatalf("Append() error = %v, want ErrNilMessage", err)
	}
	if len(c.Messages) != 0 {
		t.Fatalf("partial append happened: %d", len(c.Messages))
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Load(ctx, "s1"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("Load() error = %v, want ErrConversationNotFound", err)
	}

	c := NewConversation("s1", time.Now())
	_ = c.Append(schema.UserMessage("hello"))
	if err := store.Save(ctx, c); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// later appends must not leak into the stored copy
	_ = c.Append(schema.AssistantMessage("hi", nil))

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 stored message, got %d", len(got.Messages))
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("Load() after delete error = %v", err)
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Save(context.Background(), nil); !errors.Is(err, ErrNilConversation) {
		t.Fatalf("Save(nil) error = %v", err)
	}
	if err := store.Save(context.Background(), &Conversation{}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Save(empty) error = %v", err)
	}
	if _, err := store.Load(context.Background(), " "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Load(blank) error = %v", err)
	}
}
