package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/angelmondragon/coursehub-backend/internal/analytics/types"
	"github.com/angelmondragon/coursehub-backend/internal/settlement"
	"github.com/angelmondragon/coursehub-backend/pkg/enums"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers BigQuery rows produced by the handlers.
type Writer interface {
	InsertSettlementEvent(ctx context.Context, row types.SettlementEventRow) error
	InsertInvoiceFacts(ctx context.Context, rows []types.InvoiceFactRow) error
}

// InvoiceSource reads back committed invoices.
type InvoiceSource interface {
	ListByPeriod(ctx context.Context, year, month int) ([]settlement.Invoice, error)
}

type route func(ctx context.Context, envelope types.Envelope) error

// decodeInto builds a route that unmarshals the payload into a fresh T.
func decodeInto[T any](handle func(context.Context, types.Envelope, *T) error) route {
	return func(ctx context.Context, envelope types.Envelope) error {
		if len(envelope.Payload) == 0 {
			return fmt.Errorf("empty payload for %s", envelope.EventType)
		}
		payload := new(T)
		if err := json.Unmarshal(envelope.Payload, payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
		}
		return handle(ctx, envelope, payload)
	}
}

// Router dispatches envelopes by event type.
type Router struct {
	routes map[enums.OutboxEventType]route
}

func NewRouter(writer Writer, invoices InvoiceSource, logg *logger.Logger) (*Router, error) {
	switch {
	case writer == nil:
		return nil, errors.New("writer is required")
	case invoices == nil:
		return nil, errors.New("invoice source is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}

	committed := &settlementCommittedHandler{writer: writer, invoices: invoices, logg: logg}
	saved := &feeScheduleSavedHandler{writer: writer, logg: logg}
	return &Router{routes: map[enums.OutboxEventType]route{
		enums.EventSettlementCommitted: decodeInto(committed.Handle),
		enums.EventFeeScheduleSaved:    decodeInto(saved.Handle),
	}}, nil
}

// EventTypes lists the routed event types in sorted order.
func (r *Router) EventTypes() []enums.OutboxEventType {
	return slices.Sorted(maps.Keys(r.routes))
}

func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	handle, ok := r.routes[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	return handle(ctx, envelope)
}
