package router

import (
	"context"

	"github.com/angelmondragon/coursehub-backend/internal/analytics/types"
	"github.com/angelmondragon/coursehub-backend/internal/settlement"
)

type fakeWriter struct {
	events   []types.SettlementEventRow
	facts    []types.InvoiceFactRow
	order    []string
	factsErr error
}

func (f *fakeWriter) InsertSettlementEvent(_ context.Context, row types.SettlementEventRow) error {
	f.events = append(f.events, row)
	f.order = append(f.order, "event")
	return nil
}

func (f *fakeWriter) InsertInvoiceFacts(_ context.Context, rows []types.InvoiceFactRow) error {
	if f.factsErr != nil {
		return f.factsErr
	}
	f.facts = append(f.facts, rows...)
	f.order = append(f.order, "facts")
	return nil
}

type fakeInvoices struct {
	invoices    []settlement.Invoice
	year, month int
}

func (f *fakeInvoices) ListByPeriod(_ context.Context, year, month int) ([]settlement.Invoice, error) {
	f.year, f.month = year, month
	return f.invoices, nil
}
