package tool

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-waiter/agent/contract"
	"github.com/tanpawarit/chative-waiter/agent/order"
)

func executeInsertOrder(ctx context.Context, ledger *order.Ledger, tool string, args map[string]any) (contractx.ToolResult, error) {
	items, err := namesArg(args, "items", "item")
	if err != nil {
		return invalidArgs(tool, err), nil
	}

	res, err := ledger.Add(ctx, items...)
	if err != nil {
		return contractx.ToolResult{}, err
	}
	return contractx.ToolResult{Tool: tool, Result: res}, nil
}

func executeDeleteOrder(ctx context.Context, ledger *order.Ledger, tool string, args map[string]any) (contractx.ToolResult, error) {
	names, err := namesArg(args, "item", "items")
	if err != nil {
		return invalidArgs(tool, err), nil
	}

	res, err := ledger.Remove(ctx, names...)
	if err != nil {
		return contractx.ToolResult{}, err
	}
	return contractx.ToolResult{Tool: tool, Result: res}, nil
}

func executeSearchOrder(ctx context.Context, ledger *order.Ledger, tool string) (contractx.ToolResult, error) {
	res, err := ledger.List(ctx)
	if err != nil {
		return contractx.ToolResult{}, err
	}
	return contractx.ToolResult{Tool: tool, Result: res}, nil
}

func executeOrderCost(ctx context.Context, ledger *order.Ledger, tool string) (contractx.ToolResult, error) {
	res, err := ledger.Total(ctx)
	if err != nil {
		return contractx.ToolResult{}, err
	}
	return contractx.ToolResult{Tool: tool, Result: res}, nil
}

// namesArg collects item names from every present key. A key may hold a
// single string or an array of strings; absent keys yield no names.
func namesArg(args map[string]any, keys ...string) ([]string, error) {
	var out []string
	for _, key := range keys {
		raw, ok := args[key]
		if !ok || raw == nil {
			continue
		}
		names, err := toNames(key, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, names...)
	}
	return out, nil
}

func toNames(key string, raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for i, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] must be a string, got %T", contractx.ErrInvalidToolArgs, key, i, elem)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a string or an array of strings, got %T", contractx.ErrInvalidToolArgs, key, raw)
	}
}

func invalidArgs(tool string, err error) contractx.ToolResult {
	return contractx.ToolResult{
		Tool:  tool,
		Error: err.Error(),
	}
}
