package order

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tanpawarit/chative-waiter/agent/order"

const (
	MsgItemsAdded   = "Items added to order"
	MsgItemsRemoved = "Item removed from order"
	MsgNoMatch      = "No matching item in the order"
	MsgCurrentOrder = "Current order items"
	MsgEmptyOrder   = "No items in the order"
	MsgOrderTotal   = "Order total"
)

// ItemsResult is returned by add, remove and list.
type ItemsResult struct {
	Message      string   `json:"message"`
	CurrentOrder []string `json:"current_order"`
}

// RemoveResult reports how many entries a removal deleted.
type RemoveResult struct {
	ItemsResult
	Removed int `json:"removed"`
}

// TotalResult is returned by total. TotalCost is nil for an empty order.
type TotalResult struct {
	Message    string   `json:"message"`
	TotalCost  *int     `json:"total_cost,omitempty"`
	OrderItems []string `json:"order_items,omitempty"`
}

// Empty reports whether the result is the empty-order answer.
func (r TotalResult) Empty() bool {
	return r.TotalCost == nil
}

type Option func(*Ledger)

// WithUnitPrice overrides DefaultUnitPrice.
func WithUnitPrice(price int) Option {
	return func(l *Ledger) {
		l.unitPrice = price
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(l *Ledger) {
		if tracer != nil {
			l.tracer = tracer
		}
	}
}

// Ledger is the current order. It performs no validation of item names and
// passes backend failures to the caller as *StorageError.
type Ledger struct {
	backend   Backend
	unitPrice int
	tracer    trace.Tracer
}

func New(backend Backend, opts ...Option) (*Ledger, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	l := &Ledger{
		backend:   backend,
		unitPrice: DefaultUnitPrice,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// UnitPrice is the flat price charged per item.
func (l *Ledger) UnitPrice() int {
	return l.unitPrice
}

// Add appends items in arrival order. No items is a no-op that still
// reports the current order.
func (l *Ledger) Add(ctx context.Context, items ...string) (ItemsResult, error) {
	ctx, span := l.tracer.Start(ctx, "order.add", trace.WithAttributes(attribute.Int("order.items.requested", len(items))))
	defer span.End()

	if len(items) > 0 {
		if err := l.backend.Append(ctx, items); err != nil {
			return ItemsResult{}, l.fail(span, "add", err)
		}
		log.Debug().Strs("items", items).Msg("items added to order")
	}

	names, err := l.names(ctx)
	if err != nil {
		return ItemsResult{}, l.fail(span, "add", err)
	}
	return ItemsResult{Message: MsgItemsAdded, CurrentOrder: names}, nil
}

// Remove deletes every entry matching one of names under the backend's
// match policy. Matching nothing leaves the order unchanged.
func (l *Ledger) Remove(ctx context.Context, names ...string) (RemoveResult, error) {
	ctx, span := l.tracer.Start(ctx, "order.remove", trace.WithAttributes(attribute.StringSlice("order.items.requested", names)))
	defer span.End()

	removed := 0
	if len(names) > 0 {
		n, err := l.backend.Remove(ctx, names)
		if err != nil {
			return RemoveResult{}, l.fail(span, "remove", err)
		}
		removed = n
	}
	span.SetAttributes(attribute.Int("order.items.removed", removed))
	log.Debug().Strs("requested", names).Int("removed", removed).Msg("remove from order")

	current, err := l.names(ctx)
	if err != nil {
		return RemoveResult{}, l.fail(span, "remove", err)
	}

	msg := MsgItemsRemoved
	if removed == 0 {
		msg = MsgNoMatch
	}
	return RemoveResult{
		ItemsResult: ItemsResult{Message: msg, CurrentOrder: current},
		Removed:     removed,
	}, nil
}

func (l *Ledger) List(ctx context.Context) (ItemsResult, error) {
	ctx, span := l.tracer.Start(ctx, "order.list")
	defer span.End()

	names, err := l.names(ctx)
	if err != nil {
		return ItemsResult{}, l.fail(span, "list", err)
	}
	return ItemsResult{Message: MsgCurrentOrder, CurrentOrder: names}, nil
}

// Total charges the unit price for every item. An empty order yields a
// result without TotalCost.
func (l *Ledger) Total(ctx context.Context) (TotalResult, error) {
	ctx, span := l.tracer.Start(ctx, "order.total")
	defer span.End()

	names, err := l.names(ctx)
	if err != nil {
		return TotalResult{}, l.fail(span, "total", err)
	}
	if len(names) == 0 {
		return TotalResult{Message: MsgEmptyOrder}, nil
	}

	total := len(names) * l.unitPrice
	span.SetAttributes(attribute.Int("order.total", total))
	log.Debug().Int("items", len(names)).Int("total", total).Msg("order total computed")
	return TotalResult{
		Message:    MsgOrderTotal,
		TotalCost:  &total,
		OrderItems: names,
	}, nil
}

// Close releases the backend.
func (l *Ledger) Close() error {
	return l.backend.Close()
}

func (l *Ledger) names(ctx context.Context) ([]string, error) {
	items, err := l.backend.Items(ctx)
	if err != nil {
		return nil, err
	}
	return Names(items), nil
}

func (l *Ledger) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return storageErr(op, err)
}
