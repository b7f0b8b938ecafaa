package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/coursehub-backend/pkg/redis"
)

// Consumer names a subscriber. Claims are tracked per consumer so two
// subscribers of the same topic never shadow each other.
type Consumer string

const Analytics Consumer = "analytics"

func (c Consumer) scope() string {
	return "evt:processed:" + string(c)
}

var (
	ErrNoConsumer = errors.New("consumer name is required")
	ErrNoEventID  = errors.New("event id is required")
)

// Ledger records claimed deliveries in Redis. A claim lives for ttl; zero
// keeps it until it is released.
type Ledger struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewLedger(store redis.IdempotencyStore, ttl time.Duration) (*Ledger, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Ledger{store: store, ttl: ttl}, nil
}

// Claim returns true when this delivery is the first one for eventID.
func (l *Ledger) Claim(ctx context.Context, consumer Consumer, eventID uuid.UUID) (bool, error) {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return l.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), l.ttl)
}

// Release drops a claim so the next redelivery is handled again.
func (l *Ledger) Release(ctx context.Context, consumer Consumer, eventID uuid.UUID) error {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return err
	}
	return l.store.Del(ctx, key)
}

func (l *Ledger) key(consumer Consumer, eventID uuid.UUID) (string, error) {
	if strings.TrimSpace(string(consumer)) == "" {
		return "", ErrNoConsumer
	}
	if eventID == uuid.Nil {
		return "", ErrNoEventID
	}
	return l.store.IdempotencyKey(consumer.scope(), eventID.String()), nil
}
