package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coursehub-backend/api/middleware"
	"github.com/angelmondragon/coursehub-backend/api/responses"
	"github.com/angelmondragon/coursehub-backend/api/validators"
	"github.com/angelmondragon/coursehub-backend/internal/fees"
	"github.com/angelmondragon/coursehub-backend/internal/feeschedules"
	pkgerrors "github.com/angelmondragon/coursehub-backend/pkg/errors"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
	"github.com/angelmondragon/coursehub-backend/pkg/pagination"
)

type FeeScheduleService interface {
	Current(ctx context.Context) (*fees.Schedule, error)
	History(ctx context.Context, params pagination.Params) (*feeschedules.HistoryPage, error)
	Save(ctx context.Context, input feeschedules.SaveInput) (*fees.Schedule, error)
}

// Amounts arrive as JSON strings or numbers and are parsed straight into
// decimals so no float rounding happens on the way in.
type saveFeeScheduleRequest struct {
	CardPercentage     *decimal.Decimal `json:"cardPercentage" validate:"required,nonnegative"`
	CardFixed          *decimal.Decimal `json:"cardFixed" validate:"required,nonnegative"`
	BoletoFixed        *decimal.Decimal `json:"boletoFixed" validate:"required,nonnegative"`
	PixPercentage      *decimal.Decimal `json:"pixPercentage" validate:"required,nonnegative"`
	PlatformPercentage *decimal.Decimal `json:"platformPercentage" validate:"required,nonnegative"`
	PlatformFixed      *decimal.Decimal `json:"platformFixed" validate:"required,nonnegative"`
	TaxPercentage      *decimal.Decimal `json:"taxPercentage" validate:"required,nonnegative"`
}

func (r saveFeeScheduleRequest) toInput(createdBy string) feeschedules.SaveInput {
	return feeschedules.SaveInput{
		CardPercentage:     *r.CardPercentage,
		CardFixed:          *r.CardFixed,
		BoletoFixed:        *r.BoletoFixed,
		PixPercentage:      *r.PixPercentage,
		PlatformPercentage: *r.PlatformPercentage,
		PlatformFixed:      *r.PlatformFixed,
		TaxPercentage:      *r.TaxPercentage,
		CreatedBy:          createdBy,
	}
}

func AdminCurrentFeeSchedule(svc FeeScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := svc.Current(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not load the fee schedule"))
			return
		}
		if current == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no fee schedule is configured"))
			return
		}
		responses.WriteSuccess(w, current)
	}
}

func AdminFeeScheduleHistory(svc FeeScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.QueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.History(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not load fee schedule history")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

// AdminSaveFeeSchedule appends a new schedule version; the next settlement
// run picks it up.
func AdminSaveFeeSchedule(svc FeeScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body saveFeeScheduleRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saved, err := svc.Save(r.Context(), body.toInput(middleware.StaffID(r.Context())))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, saved)
	}
}
