package waiternode

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-waiter/agent/contract"
)

// Generator is the part of a tool-bound chat model the turn loop uses.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// RunModel asks the model for a reply, running every tool it calls and
// feeding the results back, until it answers in plain text. A model that
// keeps calling tools past maxRounds fails the turn.
func RunModel(
	ctx context.Context,
	in *GraphState,
	model Generator,
	tools contractx.ToolGateway,
	systemPrompt string,
	maxRounds int,
) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	for round := 0; ; round++ {
		msg, err := model.Generate(ctx, buildInput(systemPrompt, in))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
		}
		if msg == nil {
			return nil, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
		}

		if len(msg.ToolCalls) == 0 {
			in.Turn = append(in.Turn, schema.AssistantMessage(msg.Content, nil))
			in.Reply = strings.TrimSpace(msg.Content)
			return in, nil
		}

		if round >= maxRounds {
			return nil, fmt.Errorf("%w: limit=%d", contractx.ErrToolRoundsExceeded, maxRounds)
		}

		reqs, err := toToolRequests(msg.ToolCalls)
		if err != nil {
			return nil, err
		}
		in.Turn = append(in.Turn, msg)

		results, err := tools.Execute(ctx, reqs)
		if err != nil {
			return nil, err
		}
		in.ToolCalls += len(results)

		for _, res := range results {
			payload, err := json.Marshal(res)
			if err != nil {
				return nil, fmt.Errorf("%w: marshal tool result: %v", contractx.ErrValidation, err)
			}
			log.Debug().
				Str("session_id", in.SessionID).
				Str("tool", res.Tool).
				Str("tool_error", res.Error).
				Msg("tool executed")
			in.Turn = append(in.Turn, schema.ToolMessage(string(payload), res.CallID))
		}
	}
}

func buildInput(systemPrompt string, in *GraphState) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(in.Conversation.Messages)+len(in.Turn)+1)
	if systemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(systemPrompt))
	}
	msgs = append(msgs, in.Conversation.Messages...)
	msgs = append(msgs, in.Turn...)
	return msgs
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
			}
		}

		reqs = append(reqs, contractx.ToolRequest{
			CallID: call.ID,
			Tool:   tool,
			Args:   args,
		})
	}
	return reqs, nil
}
