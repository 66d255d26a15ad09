package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ToolGateway declares the tools offered to the model and runs the calls it
// makes. Execute returns an error only when the turn cannot continue;
// rejected calls come back as ToolResult.Error.
type ToolGateway interface {
	Infos() []*schema.ToolInfo
	Execute(ctx context.Context, reqs []ToolRequest) ([]ToolResult, error)
}
