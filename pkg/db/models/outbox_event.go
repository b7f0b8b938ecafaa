package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/coursehub-backend/pkg/db/types"
	"github.com/angelmondragon/coursehub-backend/pkg/enums"
)

// OutboxEvent is a domain event written in the same transaction as the
// change it describes. The publisher relays unpublished rows to Pub/Sub;
// rows are never deleted, so the table doubles as an audit trail.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null;index"`
	Payload       dbtypes.JSONDocument      `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

func (e OutboxEvent) Published() bool { return e.PublishedAt != nil }

// NextAttemptExhausts reports whether one more failure reaches maxAttempts.
// Zero or negative maxAttempts never exhausts.
func (e OutboxEvent) NextAttemptExhausts(maxAttempts int) bool {
	return maxAttempts > 0 && e.AttemptCount+1 >= maxAttempts
}
