package worker

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/coursehub-backend/internal/analytics/router"
	"github.com/angelmondragon/coursehub-backend/internal/analytics/types"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
	"github.com/angelmondragon/coursehub-backend/pkg/outbox/idempotency"
)

// Handler processes one decoded envelope.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type claimLedger interface {
	Claim(ctx context.Context, consumer idempotency.Consumer, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer idempotency.Consumer, eventID uuid.UUID) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type outcome int

const (
	ack outcome = iota
	nack
)

// Service feeds settlement events from a Pub/Sub subscription into the
// analytics handler, handling each event id at most once.
type Service struct {
	subscription receiver
	handler      Handler
	ledger       claimLedger
	logg         *logger.Logger
}

func NewService(subscription *gcppubsub.Subscriber, handler Handler, ledger claimLedger, logg *logger.Logger) (*Service, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case ledger == nil:
		return nil, errors.New("idempotency ledger is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{subscription: subscription, handler: handler, ledger: ledger, logg: logg}, nil
}

// Run blocks until ctx is canceled or the subscription fails.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if s.process(msgCtx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process acks anything a redelivery cannot fix and nacks the rest.
func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) outcome {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	env, err := types.Decode(msg.Data, msg.Attributes)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping malformed analytics message")
		return ack
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":     env.EventID,
		"event_type":   env.EventType,
		"aggregate_id": env.AggregateID,
		"period":       env.Period,
	})

	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		s.logg.Warn(ctx, "dropping message with non-uuid event id")
		return ack
	}

	first, err := s.ledger.Claim(ctx, idempotency.Analytics, eventID)
	if err != nil {
		s.logg.Error(ctx, "idempotency claim failed", err)
		return nack
	}
	if !first {
		s.logg.Info(ctx, "duplicate delivery skipped")
		return ack
	}

	err = s.handler.Handle(ctx, env)
	switch {
	case err == nil:
		s.logg.Info(ctx, "analytics event recorded")
		return ack
	case errors.Is(err, router.ErrUnsupportedEventType):
		s.logg.Warn(ctx, "event type not tracked by analytics")
		return ack
	}

	s.logg.Error(ctx, "analytics handler failed", err)
	if relErr := s.ledger.Release(ctx, idempotency.Analytics, eventID); relErr != nil {
		s.logg.Error(ctx, "idempotency release failed", relErr)
	}
	return nack
}
