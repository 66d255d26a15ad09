package tool

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-waiter/agent/contract"
	"github.com/tanpawarit/chative-waiter/agent/order"
)

const (
	ToolInsertOrder     = "insert_order"
	ToolDeleteOrder     = "delete_order"
	ToolSearchOrder     = "search_order"
	ToolOrderCost       = "order_cost"
	ToolDeliveryAddress = "delivery_address"
)

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// Gateway binds the waiter tool catalog to one ledger and address resolver.
type Gateway struct {
	infos    []*schema.ToolInfo
	executor Executor
}

var _ contractx.ToolGateway = (*Gateway)(nil)

func NewGateway(ledger *order.Ledger, addresses AddressResolver) (*Gateway, error) {
	if ledger == nil {
		return nil, fmt.Errorf("%w: ledger is required", contractx.ErrValidation)
	}
	if addresses == nil {
		addresses = StaticAddress(DefaultAddress)
	}
	return &Gateway{
		infos:    Infos(),
		executor: NewExecutor(ledger, addresses),
	}, nil
}

func (g *Gateway) Infos() []*schema.ToolInfo {
	return g.infos
}

// Execute runs requests in order and stops at the first error that must
// abort the turn.
func (g *Gateway) Execute(ctx context.Context, reqs []contractx.ToolRequest) ([]contractx.ToolResult, error) {
	out := make([]contractx.ToolResult, 0, len(reqs))
	for _, req := range reqs {
		res, err := g.executor(ctx, req.Tool, req.Args)
		if err != nil {
			return out, err
		}
		res.CallID = req.CallID
		out = append(out, res)
	}
	return out, nil
}

func NewExecutor(ledger *order.Ledger, addresses AddressResolver) Executor {
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		switch tool {
		case ToolInsertOrder:
			return executeInsertOrder(ctx, ledger, tool, args)
		case ToolDeleteOrder:
			return executeDeleteOrder(ctx, ledger, tool, args)
		case ToolSearchOrder:
			return executeSearchOrder(ctx, ledger, tool)
		case ToolOrderCost:
			return executeOrderCost(ctx, ledger, tool)
		case ToolDeliveryAddress:
			return executeDeliveryAddress(ctx, addresses, tool, args)
		default:
			return DefaultExecutor(ctx, tool, args)
		}
	}
}

func DefaultExecutor(ctx context.Context, tool string, _ map[string]any) (contractx.ToolResult, error) {
	return contractx.ToolResult{
		Tool:  tool,
		Error: fmt.Sprintf("tool=%s is unavailable", tool),
	}, nil
}

// Infos describes the waiter tools to the model.
func Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolInsertOrder,
			Desc: "Add items to the customer's restaurant order. Use when the customer asks for or wants to include an item.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"items": {
					Type:     schema.Array,
					Desc:     "Item names to add, one entry per unit ordered",
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
					Required: true,
				},
			}),
		},
		{
			Name: ToolDeleteOrder,
			Desc: "Remove items from the order. Use when the customer says 'remove the item', 'I don't want the item anymore' or 'delete the item'.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"item": {Type: schema.String, Desc: "Item name to remove"},
				"items": {
					Type:     schema.Array,
					Desc:     "Several item names to remove",
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
				},
			}),
		},
		{
			Name:        ToolSearchOrder,
			Desc:        "List the items currently in the order.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name:        ToolOrderCost,
			Desc:        "Give the total of the order. Use when the customer says 'give me the bill', 'summarize the order', 'what is the total' or 'how much is it'.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name: ToolDeliveryAddress,
			Desc: "Find the full delivery address for a postal code, with building number and complement. Use when the customer says 'deliver to' or 'my address is'. Always confirm the address and the order total.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"postal_code": {Type: schema.String, Desc: "Postal code (CEP)", Required: true},
				"number":      {Type: schema.String, Desc: "Building number"},
				"complement":  {Type: schema.String, Desc: "Apartment or other complement"},
			}),
		},
	}
}
