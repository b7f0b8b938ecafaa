package router

import (
	"context"

	"github.com/angelmondragon/coursehub-backend/internal/analytics/types"
	"github.com/angelmondragon/coursehub-backend/internal/analytics/writer"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
	"github.com/angelmondragon/coursehub-backend/pkg/outbox/payloads"
)

type feeScheduleSavedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func (h *feeScheduleSavedHandler) Handle(ctx context.Context, envelope types.Envelope, event *payloads.FeeScheduleSavedEvent) error {
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":      envelope.EventType,
		"fee_schedule_id": event.FeeScheduleID.String(),
	})

	row, err := buildSettlementEventRow(envelope)
	if err != nil {
		h.logg.Error(logCtx, "failed to build settlement event row", err)
		return err
	}
	if err := h.writer.InsertSettlementEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert settlement event row", err)
		return err
	}

	h.logg.Info(logCtx, "fee_schedule_saved ingested")
	return nil
}

func buildSettlementEventRow(envelope types.Envelope) (types.SettlementEventRow, error) {
	payload, err := writer.EncodeJSON(envelope.Payload)
	if err != nil {
		return types.SettlementEventRow{}, err
	}
	return types.SettlementEventRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		AggregateType: string(envelope.AggregateType),
		AggregateID:   envelope.AggregateID,
		OccurredAt:    envelope.OccurredAt.UTC(),
		Payload:       payload,
	}, nil
}
