package controllers

import (
	"bytes"
	"context"
	"net/http"

	"github.com/angelmondragon/coursehub-backend/api/middleware"
	"github.com/angelmondragon/coursehub-backend/api/responses"
	"github.com/angelmondragon/coursehub-backend/api/validators"
	"github.com/angelmondragon/coursehub-backend/internal/reports"
	"github.com/angelmondragon/coursehub-backend/internal/settlement"
	"github.com/angelmondragon/coursehub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/coursehub-backend/pkg/errors"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
)

// SettlementService is the orchestrator surface the admin API drives.
type SettlementService interface {
	GenerateMonthlyInvoices(ctx context.Context, year, month int) settlement.Result
	ListInvoices(ctx context.Context, period settlement.Period) ([]settlement.Invoice, error)
}

type RunLister interface {
	ListByPeriod(ctx context.Context, period settlement.Period) ([]models.SettlementRun, error)
}

type generateInvoicesRequest struct {
	Year  int `json:"year" validate:"required,min=1,max=9999"`
	Month int `json:"month" validate:"required,min=1,max=12"`
}

type periodInvoicesResponse struct {
	Period   string               `json:"period"`
	Invoices []settlement.Invoice `json:"invoices"`
	Totals   settlement.Totals    `json:"totals"`
}

// AdminGenerateInvoices runs settlement for the requested month and returns
// the operator-facing result. Failed runs still answer with the result body.
func AdminGenerateInvoices(svc SettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		var body generateInvoicesRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		trigger := "admin"
		if userID := middleware.StaffID(r.Context()); userID != "" {
			trigger = "admin:" + userID
		}
		ctx := settlement.WithTrigger(r.Context(), trigger)

		result := svc.GenerateMonthlyInvoices(ctx, body.Year, body.Month)
		responses.WriteSuccessStatus(w, resultStatus(result), result)
	}
}

func resultStatus(result settlement.Result) int {
	if result.Success {
		return http.StatusOK
	}
	return pkgerrors.MetadataFor(result.Code).HTTPStatus
}

func AdminPeriodInvoices(svc SettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := periodFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoices, err := svc.ListInvoices(r.Context(), period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, periodInvoicesResponse{
			Period:   period.ID(),
			Invoices: invoices,
			Totals:   settlement.SumInvoices(invoices),
		})
	}
}

// AdminExportInvoices streams the period statement as an XLSX attachment.
func AdminExportInvoices(svc SettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := periodFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoices, err := svc.ListInvoices(r.Context(), period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var buf bytes.Buffer
		if err := reports.WriteInvoicesXLSX(&buf, period, invoices); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render statement"))
			return
		}

		responses.WriteAttachment(r.Context(), logg, w, reports.ContentTypeXLSX, reports.Filename(period), &buf)
	}
}

func AdminPeriodRuns(runs RunLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := periodFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := runs.ListByPeriod(r.Context(), period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not load settlement runs"))
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
