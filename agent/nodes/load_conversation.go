package waiternode

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-waiter/agent/contract"
	statex "github.com/tanpawarit/chative-waiter/agent/state"
)

func LoadOrCreateConversation(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	conv, err := store.Load(ctx, in.SessionID)
	switch {
	case err == nil:
	case errors.Is(err, statex.ErrConversationNotFound):
		conv = statex.NewConversation(in.SessionID, in.Now)
	default:
		return nil, err
	}

	in.Conversation = conv
	in.Turn = []*schema.Message{schema.UserMessage(in.Text)}
	return in, nil
}
