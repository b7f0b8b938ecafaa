package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/coursehub-backend/pkg/enums"
	"github.com/angelmondragon/coursehub-backend/pkg/outbox"
)

func body(t *testing.T, env outbox.PayloadEnvelope) []byte {
	t.Helper()
	if env.Version == 0 {
		env.Version = outbox.EnvelopeVersion
	}
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestDecodeMergesBodyAndAttributes(t *testing.T) {
	eventID := uuid.NewString()
	occurred := time.Date(2026, 2, 1, 3, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	raw := body(t, outbox.PayloadEnvelope{EventID: eventID, OccurredAt: occurred, Data: json.RawMessage(`{"year":2026,"month":1}`)})

	env, err := Decode(raw, map[string]string{
		"event_type":     "settlement_committed",
		"aggregate_type": "settlement_run",
		"aggregate_id":   " run-1 ",
		"period":         "2026-01",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.EventType != enums.EventSettlementCommitted || env.AggregateType != enums.AggregateSettlementRun {
		t.Fatalf("unexpected types %v %v", env.EventType, env.AggregateType)
	}
	if env.EventID != eventID || env.AggregateID != "run-1" || env.Period != "2026-01" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if !env.OccurredAt.Equal(occurred) || env.OccurredAt.Location() != time.UTC {
		t.Fatalf("expected occurred at normalized to UTC, got %v", env.OccurredAt)
	}
}

func TestDecodeFallsBackToAttributes(t *testing.T) {
	eventID := uuid.NewString()
	env, err := Decode(body(t, outbox.PayloadEnvelope{Data: json.RawMessage(`{}`)}), map[string]string{
		"event_id":       eventID,
		"event_type":     "fee_schedule_saved",
		"aggregate_type": "fee_schedule",
		"aggregate_id":   "fs-1",
		"created_at":     "2026-01-05T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.EventID != eventID {
		t.Fatalf("expected event id from attributes, got %s", env.EventID)
	}
	if !env.OccurredAt.Equal(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected occurred at from created_at, got %v", env.OccurredAt)
	}
}

func TestDecodeRejects(t *testing.T) {
	valid := map[string]string{"event_type": "settlement_committed", "aggregate_type": "settlement_run", "aggregate_id": "x"}
	with := func(key, value string) map[string]string {
		attrs := map[string]string{}
		for k, v := range valid {
			attrs[k] = v
		}
		attrs[key] = value
		return attrs
	}
	good := body(t, outbox.PayloadEnvelope{EventID: uuid.NewString(), Data: json.RawMessage(`{}`)})

	cases := []struct {
		name  string
		raw   []byte
		attrs map[string]string
	}{
		{"invalid json", []byte("nope"), valid},
		{"future version", body(t, outbox.PayloadEnvelope{Version: outbox.EnvelopeVersion + 1, EventID: "x"}), valid},
		{"unknown event type", good, with("event_type", "order_created")},
		{"unknown aggregate", good, with("aggregate_type", "vendor")},
		{"missing aggregate id", good, with("aggregate_id", " ")},
		{"missing event id", body(t, outbox.PayloadEnvelope{Data: json.RawMessage(`{}`)}), valid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.raw, tc.attrs); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
