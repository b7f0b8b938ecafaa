package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultPeriodLockTTL = 10 * time.Minute

// RunGuard serializes runs of the same period across processes.
type RunGuard interface {
	Acquire(ctx context.Context, period Period) (release func(context.Context) error, ok bool, err error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, owner string) (bool, error)
	SettlementLockKey(periodID string) string
}

// PeriodLock implements RunGuard with a Redis SETNX key per period.
type PeriodLock struct {
	store lockStore
	ttl   time.Duration
}

func NewPeriodLock(store lockStore, ttl time.Duration) (*PeriodLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for period lock")
	}
	if ttl <= 0 {
		ttl = defaultPeriodLockTTL
	}
	return &PeriodLock{store: store, ttl: ttl}, nil
}

func (l *PeriodLock) Acquire(ctx context.Context, period Period) (func(context.Context) error, bool, error) {
	key := l.store.SettlementLockKey(period.ID())
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		_, err := l.store.ReleaseLock(ctx, key, owner)
		return err
	}
	return release, true, nil
}
