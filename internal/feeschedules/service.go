package feeschedules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/coursehub-backend/internal/fees"
	"github.com/angelmondragon/coursehub-backend/pkg/db/models"
	"github.com/angelmondragon/coursehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursehub-backend/pkg/errors"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
	"github.com/angelmondragon/coursehub-backend/pkg/outbox"
	"github.com/angelmondragon/coursehub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/coursehub-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SaveInput carries the fee parameters of a new version.
type SaveInput struct {
	CardPercentage     decimal.Decimal
	CardFixed          decimal.Decimal
	BoletoFixed        decimal.Decimal
	PixPercentage      decimal.Decimal
	PlatformPercentage decimal.Decimal
	PlatformFixed      decimal.Decimal
	TaxPercentage      decimal.Decimal
	CreatedBy          string
}

type ServiceParams struct {
	Logger     *logger.Logger
	Repository *Repository
	Tx         txRunner
	Outbox     outboxEmitter
	Clock      func() time.Time
}

type Service struct {
	logg   *logger.Logger
	repo   *Repository
	tx     txRunner
	outbox outboxEmitter
	now    func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("fee schedule repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		logg:   params.Logger,
		repo:   params.Repository,
		tx:     params.Tx,
		outbox: params.Outbox,
		now:    clock,
	}, nil
}

// Current implements settlement.FeeScheduleProvider.
func (s *Service) Current(ctx context.Context) (*fees.Schedule, error) {
	return s.repo.Current(ctx)
}

func (s *Service) History(ctx context.Context, params pagination.Params) (*HistoryPage, error) {
	page, err := s.repo.History(ctx, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, err
	}
	return page, nil
}

// Save validates and appends a new schedule version. Invoices generated
// earlier keep the snapshot of the version they used.
func (s *Service) Save(ctx context.Context, input SaveInput) (*fees.Schedule, error) {
	schedule := fees.Schedule{
		ID:                 uuid.New(),
		CardPercentage:     input.CardPercentage,
		CardFixed:          input.CardFixed,
		BoletoFixed:        input.BoletoFixed,
		PixPercentage:      input.PixPercentage,
		PlatformPercentage: input.PlatformPercentage,
		PlatformFixed:      input.PlatformFixed,
		TaxPercentage:      input.TaxPercentage,
		EffectiveAt:        s.now().UTC(),
	}
	if err := schedule.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	row := &models.FeeSchedule{
		ID:                 schedule.ID,
		CardPercentage:     schedule.CardPercentage,
		CardFixed:          schedule.CardFixed,
		BoletoFixed:        schedule.BoletoFixed,
		PixPercentage:      schedule.PixPercentage,
		PlatformPercentage: schedule.PlatformPercentage,
		PlatformFixed:      schedule.PlatformFixed,
		TaxPercentage:      schedule.TaxPercentage,
		EffectiveAt:        schedule.EffectiveAt,
	}
	if input.CreatedBy != "" {
		createdBy := input.CreatedBy
		row.CreatedBy = &createdBy
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.InsertTx(tx, row); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventFeeScheduleSaved,
			AggregateType: enums.AggregateFeeSchedule,
			AggregateID:   schedule.ID,
			Actor:         &outbox.ActorRef{Subject: input.CreatedBy},
			Data: payloads.FeeScheduleSavedEvent{
				FeeScheduleID: schedule.ID,
				EffectiveAt:   schedule.EffectiveAt,
				CreatedBy:     input.CreatedBy,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not save fee schedule")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"fee_schedule_id": schedule.ID.String(),
		"created_by":      input.CreatedBy,
	}), "fee schedule saved")
	return &schedule, nil
}
