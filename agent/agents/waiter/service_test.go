package waiter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/chative-waiter/agent/contract"
	"github.com/tanpawarit/chative-waiter/agent/order"
	"github.com/tanpawarit/chative-waiter/agent/order/memory"
	statex "github.com/tanpawarit/chative-waiter/agent/state"
	toolx "github.com/tanpawarit/chative-waiter/agent/tool"
)

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
	bound     []*schema.ToolInfo
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.inputs = append(f.inputs, append([]*schema.Message(nil), input...))
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.bound = tools
	return f, nil
}

type saveFailStore struct {
	*statex.MemoryStore
	err error
}

func (s saveFailStore) Save(ctx context.Context, c *statex.Conversation) error {
	return s.err
}

type brokenBackend struct{ err error }

func (b brokenBackend) Append(context.Context, []string) error { return b.err }
func (b brokenBackend) Remove(context.Context, []string) (int, error) { return 0, b.err }
func (b brokenBackend) Items(context.Context) ([]order.Item, error) { return nil, b.err }
func (b brokenBackend) Close() error { return nil }

func toolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{
		ID:   id,
		Type: "function",
		Function: schema.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func toolCallMessage(calls ...schema.ToolCall) *schema.Message {
	return &schema.Message{Role: schema.Assistant, ToolCalls: calls}
}

func newTestWaiter(t *testing.T, store statex.Store, model *fakeToolCallingModel, backend order.Backend, cfg Config) (*Waiter, *order.Ledger) {
	t.Helper()

	if backend == nil {
		backend = memory.New()
	}
	ledger, err := order.New(backend)
	if err != nil {
		t.Fatalf("order.New() error = %v", err)
	}
	gateway, err := toolx.NewGateway(ledger, nil)
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}
	w, err := New(context.Background(), store, model, gateway, "waiter prompt", cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return w, ledger
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	ledger, _ := order.New(memory.New())
	gateway, _ := toolx.NewGateway(ledger, nil)
	model := &fakeToolCallingModel{}
	store := statex.NewMemoryStore()

	if _, err := New(context.Background(), nil, model, gateway, "", Config{}); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := New(context.Background(), store, nil, gateway, "", Config{}); err == nil {
		t.Fatalf("expected error for nil model")
	}
	if _, err := New(context.Background(), store, model, nil, "", Config{}); err == nil {
		t.Fatalf("expected error for nil gateway")
	}
}

func TestNewBindsToolCatalog(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{}
	w, _ := newTestWaiter(t, statex.NewMemoryStore(), model, nil, Config{})

	if len(model.bound) != len(toolx.Infos()) {
		t.Fatalf("expected %d bound tools, got %d", len(toolx.Infos()), len(model.bound))
	}
	if w.maxToolRounds != DefaultMaxToolRounds {
		t.Fatalf("expected default max tool rounds, got %d", w.maxToolRounds)
	}
}

func TestHandleMessageValidation(t *testing.T) {
	t.Parallel()

	w, _ := newTestWaiter(t, statex.NewMemoryStore(), &fakeToolCallingModel{}, nil, Config{})

	_, err := w.HandleMessage(context.Background(), " ", "hello")
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}

	_, err = w.HandleMessage(context.Background(), "s1", "   ")
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestHandleMessagePlainReply(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore()
	model := &fakeToolCallingModel{
		responses: []*schema.Message{
			schema.AssistantMessage("Welcome! What would you like to order?", nil),
		},
	}
	w, _ := newTestWaiter(t, store, model, nil, Config{})

	reply, err := w.HandleMessage(context.Background(), "s1", "hi")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if reply != "Welcome! What would you like to order?" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	input := model.inputs[0]
	if len(input) != 2 || input[0].Role != schema.System || input[0].Content != "waiter prompt" {
		t.Fatalf("unexpected model input: %#v", input)
	}
	if input[1].Role != schema.User || input[1].Content != "hi" {
		t.Fatalf("expected user message last, got %#v", input[1])
	}

	conv, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(conv.Messages))
	}
	if !conv.UpdatedAt.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected updated_at: %v", conv.UpdatedAt)
	}
}

func TestHandleMessageRunsOrderTools(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore()
	model := &fakeToolCallingModel{
		responses: []*schema.Message{
			toolCallMessage(toolCall("call_1", toolx.ToolInsertOrder, `{"items":["pizza","soda"]}`)),
			toolCallMessage(
				toolCall("call_2", toolx.ToolDeleteOrder, `{"item":"soda"}`),
				toolCall("call_3", toolx.ToolOrderCost, `{}`),
			),
			schema.AssistantMessage("One pizza, that will be 10.", nil),
		},
	}
	w, ledger := newTestWaiter(t, store, model, nil, Config{})

	reply, err := w.HandleMessage(context.Background(), "s1", "a pizza and a soda, actually no soda")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if reply != "One pizza, that will be 10." {
		t.Fatalf("unexpected reply: %q", reply)
	}

	list, err := ledger.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list.CurrentOrder) != 1 || list.CurrentOrder[0] != "pizza" {
		t.Fatalf("unexpected order: %#v", list.CurrentOrder)
	}

	// the last model call sees every tool result of the turn
	last := model.inputs[len(model.inputs)-1]
	var toolMsgs []*schema.Message
	for _, m := range last {
		if m.Role == schema.Tool {
			toolMsgs = append(toolMsgs, m)
		}
	}
	if len(toolMsgs) != 3 {
		t.Fatalf("expected 3 tool messages, got %d", len(toolMsgs))
	}
	if toolMsgs[2].ToolCallID != "call_3" || !strings.Contains(toolMsgs[2].Content, `"total_cost":10`) {
		t.Fatalf("unexpected order_cost tool message: %#v", toolMsgs[2])
	}

	conv, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// user, call, result, call, result, result, reply
	if len(conv.Messages) != 7 {
		t.Fatalf("expected 7 stored messages, got %d", len(conv.Messages))
	}
}

func TestHandleMessageReplaysHistory(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore()
	model := &fakeToolCallingModel{
		responses: []*schema.Message{
			schema.AssistantMessage("Hello!", nil),
			schema.AssistantMessage("You said hi before.", nil),
		},
	}
	w, _ := newTestWaiter(t, store, model, nil, Config{})

	if _, err := w.HandleMessage(context.Background(), "s1", "hi"); err != nil {
		t.Fatalf("first turn error = %v", err)
	}
	if _, err := w.HandleMessage(context.Background(), "s1", "what did I say?"); err != nil {
		t.Fatalf("second turn error = %v", err)
	}

	second := model.inputs[1]
	if len(second) != 4 {
		t.Fatalf("expected system + 3 messages, got %d", len(second))
	}
	if second[1].Content != "hi" || second[2].Content != "Hello!" {
		t.Fatalf("history not replayed: %#v", second)
	}
}

func TestHandleMessageToolRoundsExceeded(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore()
	model := &fakeToolCallingModel{
		responses: []*schema.Message{
			toolCallMessage(toolCall("c1", toolx.ToolSearchOrder, `{}`)),
			toolCallMessage(toolCall("c2", toolx.ToolSearchOrder, `{}`)),
			toolCallMessage(toolCall("c3", toolx.ToolSearchOrder, `{}`)),
		},
	}
	w, _ := newTestWaiter(t, store, model, nil, Config{MaxToolRounds: 2})

	_, err := w.HandleMessage(context.Background(), "s1", "what did I order?")
	if !errors.Is(err, contractx.ErrToolRoundsExceeded) {
		t.Fatalf("expected ErrToolRoundsExceeded, got %v", err)
	}
	if _, err := store.Load(context.Background(), "s1"); !errors.Is(err, statex.ErrConversationNotFound) {
		t.Fatalf("failed turn must not be stored, got %v", err)
	}
}

func TestHandleMessageInvalidToolArgumentsJSON(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{
		responses: []*schema.Message{
			toolCallMessage(toolCall("c1", toolx.ToolInsertOrder, `{"items":`)),
		},
	}
	w, _ := newTestWaiter(t, statex.NewMemoryStore(), model, nil, Config{})

	_, err := w.HandleMessage(context.Background(), "s1", "pizza")
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestHandleMessageModelError(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{err: errors.New("upstream 500")}
	w, _ := newTestWaiter(t, statex.NewMemoryStore(), model, nil, Config{})

	_, err := w.HandleMessage(context.Background(), "s1", "pizza")
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func TestHandleMessageStorageFailureAbortsTurn(t *testing.T) {
	t.Parallel()

	cause := errors.New("database is locked")
	model := &fakeToolCallingModel{
		responses: []*schema.Message{
			toolCallMessage(toolCall("c1", toolx.ToolInsertOrder, `{"items":["pizza"]}`)),
			schema.AssistantMessage("should not be reached", nil),
		},
	}
	w, _ := newTestWaiter(t, statex.NewMemoryStore(), model, brokenBackend{err: cause}, Config{})

	_, err := w.HandleMessage(context.Background(), "s1", "pizza")
	if !errors.Is(err, cause) {
		t.Fatalf("expected storage cause, got %v", err)
	}
	var serr *order.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *order.StorageError, got %T", err)
	}
	if model.idx != 1 {
		t.Fatalf("model should not be called after storage failure, calls=%d", model.idx)
	}
}

func TestHandleMessageSaveError(t *testing.T) {
	t.Parallel()

	saveErr := errors.New("save failed")
	store := saveFailStore{MemoryStore: statex.NewMemoryStore(), err: saveErr}
	model := &fakeToolCallingModel{
		responses: []*schema.Message{schema.AssistantMessage("hello", nil)},
	}
	w, _ := newTestWaiter(t, store, model, nil, Config{})

	_, err := w.HandleMessage(context.Background(), "s1", "hi")
	if !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
}

func TestHandleMessageEmptyReply(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{
		responses: []*schema.Message{schema.AssistantMessage("  ", nil)},
	}
	w, _ := newTestWaiter(t, statex.NewMemoryStore(), model, nil, Config{})

	_, err := w.HandleMessage(context.Background(), "s1", "hi")
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
