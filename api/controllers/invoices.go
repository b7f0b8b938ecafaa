package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/coursehub-backend/api/responses"
	"github.com/angelmondragon/coursehub-backend/internal/settlement"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
)

// InvoiceReader serves tenant-scoped invoice read-back and payout marking.
type InvoiceReader interface {
	ListByTenant(ctx context.Context, tenantID string) ([]settlement.Invoice, error)
	FindByTenantPeriod(ctx context.Context, tenantID string, period settlement.Period) (*settlement.Invoice, error)
	MarkPaid(ctx context.Context, tenantID string, period settlement.Period) error
}

func AdminTenantInvoices(store InvoiceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoices, err := store.ListByTenant(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoices)
	}
}

func AdminTenantInvoice(store InvoiceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		period, err := periodFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := store.FindByTenantPeriod(r.Context(), tenantID, period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// AdminMarkInvoicePaid records that the tenant's payout was transferred.
func AdminMarkInvoicePaid(store InvoiceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		period, err := periodFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.MarkPaid(r.Context(), tenantID, period); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := store.FindByTenantPeriod(r.Context(), tenantID, period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithTenantID(r.Context(), tenantID)
			logg.Info(logg.WithField(ctx, "period", period.ID()), "invoice marked paid")
		}
		responses.WriteSuccess(w, invoice)
	}
}
