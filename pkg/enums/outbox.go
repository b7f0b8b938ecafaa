package enums

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateSettlementRun OutboxAggregateType = "settlement_run"
	AggregateFeeSchedule   OutboxAggregateType = "fee_schedule"
)

var aggregateTypes = newSet("aggregate type", AggregateSettlementRun, AggregateFeeSchedule)

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return aggregateTypes.parse(value)
}

// OutboxEventType is the event_type column of outbox_events and the
// event_type attribute on published messages.
type OutboxEventType string

const (
	EventSettlementCommitted OutboxEventType = "settlement_committed"
	EventFeeScheduleSaved    OutboxEventType = "fee_schedule_saved"
)

var eventTypes = newSet("event type", EventSettlementCommitted, EventFeeScheduleSaved)

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return eventTypes.parse(value)
}
