package waiternode

import (
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	statex "github.com/tanpawarit/chative-waiter/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply string
}

type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Conversation *statex.Conversation
	// Turn holds the messages produced during this turn, starting with the
	// user message. They join the conversation only when the turn succeeds.
	Turn []*schema.Message

	Reply     string
	ToolCalls int
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
