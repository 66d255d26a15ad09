// Package waiter runs one conversational turn: it replays the session
// history to a tool-calling chat model, executes the order tools the model
// asks for and stores the extended history.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contractx "github.com/tanpawarit/chative-waiter/agent/contract"
	nodex "github.com/tanpawarit/chative-waiter/agent/nodes"
	statex "github.com/tanpawarit/chative-waiter/agent/state"
)

const DefaultMaxToolRounds = 8

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Config struct {
	// MaxToolRounds bounds how many times one turn may go back to the model
	// with tool results.
	MaxToolRounds int
	// MaxHistory is the number of stored messages kept per session.
	// Zero keeps everything.
	MaxHistory int
}

type Waiter struct {
	store        statex.Store
	model        einomodel.ToolCallingChatModel
	tools        contractx.ToolGateway
	systemPrompt string

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]
	tracer      trace.Tracer

	maxToolRounds int
	maxHistory    int

	now func() time.Time
}

func New(
	ctx context.Context,
	store statex.Store,
	chatModel einomodel.ToolCallingChatModel,
	tools contractx.ToolGateway,
	systemPrompt string,
	cfg Config,
) (*Waiter, error) {
	if store == nil {
		return nil, errors.New("conversation store is required")
	}
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}

	bound, err := chatModel.WithTools(tools.Infos())
	if err != nil {
		return nil, fmt.Errorf("bind waiter tools: %w", err)
	}

	maxToolRounds := cfg.MaxToolRounds
	if maxToolRounds <= 0 {
		maxToolRounds = DefaultMaxToolRounds
	}
	maxHistory := cfg.MaxHistory
	if maxHistory < 0 {
		maxHistory = 0
	}

	w := &Waiter{
		store:         store,
		model:         bound,
		tools:         tools,
		systemPrompt:  systemPrompt,
		tracer:        otel.Tracer("github.com/tanpawarit/chative-waiter/agent/agents/waiter"),
		maxToolRounds: maxToolRounds,
		maxHistory:    maxHistory,
		now:           time.Now,
	}

	graphRunner, err := w.compileHandleMessageGraph(ctx)
	if err != nil {
		return nil, err
	}
	w.graphRunner = graphRunner

	return w, nil
}

// HandleMessage answers one user message in the given session.
func (w *Waiter) HandleMessage(ctx context.Context, sessionID string, text string) (string, error) {
	ctx, span := w.tracer.Start(ctx, "waiter.handle_message",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	start := time.Now()
	out, err := w.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		log.Warn().Err(err).Str("session_id", sessionID).Msg("waiter turn failed")
		return "", err
	}

	log.Info().
		Str("session_id", sessionID).
		Dur("latency", time.Since(start)).
		Msg("waiter turn completed")
	return out.Reply, nil
}
