package waiternode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-waiter/agent/contract"
	statex "github.com/tanpawarit/chative-waiter/agent/state"
)

func SaveConversation(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	maxHistory int,
) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	if err := in.Conversation.Append(in.Turn...); err != nil {
		return nil, err
	}
	in.Conversation.Trim(maxHistory)
	in.Conversation.Touch(in.Now)
	if err := in.Conversation.Validate(); err != nil {
		return nil, fmt.Errorf("conversation validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Conversation); err != nil {
		return nil, err
	}

	return in, nil
}
