package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/coursehub-backend/pkg/enums"
	"github.com/angelmondragon/coursehub-backend/pkg/outbox"
)

// Envelope is one outbox event as seen by an analytics consumer: the routing
// attributes of the Pub/Sub message merged with the stored payload envelope.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	// Period is "YYYY-MM" for settlement events and empty otherwise.
	Period  string
	Payload json.RawMessage
}

// Decode builds an Envelope from a message body and its attributes. The body
// wins for the event id and timestamp; attributes fill in what old producers
// left out.
func Decode(body []byte, attrs map[string]string) (Envelope, error) {
	stored, err := outbox.ParseEnvelope(body)
	if err != nil {
		return Envelope{}, fmt.Errorf("payload envelope: %w", err)
	}
	attr := func(name string) string { return strings.TrimSpace(attrs[name]) }

	eventType, err := enums.ParseOutboxEventType(attr("event_type"))
	if err != nil {
		return Envelope{}, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return Envelope{}, fmt.Errorf("aggregate_type: %w", err)
	}
	env := Envelope{
		EventID:       strings.TrimSpace(stored.EventID),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   attr("aggregate_id"),
		OccurredAt:    stored.OccurredAt,
		Period:        attr("period"),
		Payload:       stored.Data,
	}
	if env.AggregateID == "" {
		return Envelope{}, errors.New("aggregate_id missing")
	}
	if env.EventID == "" {
		env.EventID = attr("event_id")
	}
	if env.EventID == "" {
		return Envelope{}, errors.New("event_id missing")
	}
	if env.OccurredAt.IsZero() {
		if created, err := time.Parse(time.RFC3339Nano, attr("created_at")); err == nil {
			env.OccurredAt = created
		}
	}
	env.OccurredAt = env.OccurredAt.UTC()
	return env, nil
}
