package invoices

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/coursehub-backend/internal/repo"
	"github.com/angelmondragon/coursehub-backend/internal/settlement"
	"github.com/angelmondragon/coursehub-backend/pkg/db/models"
	"github.com/angelmondragon/coursehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursehub-backend/pkg/errors"
	"github.com/angelmondragon/coursehub-backend/pkg/outbox"
	"github.com/angelmondragon/coursehub-backend/pkg/outbox/payloads"
)

const upsertChunkSize = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Repository persists settlement invoices. It implements settlement.InvoiceStore.
type Repository struct {
	repo.Base
	tx     txRunner
	outbox outboxEmitter
}

func NewRepository(db *gorm.DB, tx txRunner, emitter outboxEmitter) (*Repository, error) {
	if db == nil {
		return nil, errors.New("db required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	return &Repository{Base: repo.NewBase(db), tx: tx, outbox: emitter}, nil
}

// UpsertBatch writes every invoice of the batch and the settlement_committed
// outbox event in one transaction. A failure anywhere leaves no trace.
// Invoices already marked paid are frozen: a re-run leaves them untouched and
// the event names only the tenants it actually wrote.
func (r *Repository) UpsertBatch(ctx context.Context, batch settlement.InvoiceBatch) error {
	if len(batch.Invoices) == 0 {
		return nil
	}

	return r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		paid, err := paidTenants(tx, batch.Period)
		if err != nil {
			return fmt.Errorf("load paid invoices: %w", err)
		}

		rows := make([]models.Invoice, 0, len(batch.Invoices))
		written := make([]settlement.Invoice, 0, len(batch.Invoices))
		tenantIDs := make([]string, 0, len(batch.Invoices))
		for _, inv := range batch.Invoices {
			if _, ok := paid[inv.TenantID]; ok {
				continue
			}
			row, err := toModel(inv, batch.RunID)
			if err != nil {
				return fmt.Errorf("map invoice %s/%s: %w", inv.TenantID, inv.ID, err)
			}
			rows = append(rows, row)
			written = append(written, inv)
			tenantIDs = append(tenantIDs, inv.TenantID)
		}
		if len(rows) == 0 {
			return nil
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "id"}},
			UpdateAll: true,
			Where:     clause.Where{Exprs: []clause.Expression{
				clause.Eq{Column: clause.Column{Table: "invoices", Name: "status"}, Value: enums.InvoiceStatusPending},
			}},
		}).CreateInBatches(&rows, upsertChunkSize).Error
		if err != nil {
			return fmt.Errorf("upsert invoices: %w", err)
		}

		totals := settlement.SumInvoices(written)
		return r.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementCommitted,
			AggregateType: enums.AggregateSettlementRun,
			AggregateID:   batch.RunID,
			Actor:         &outbox.ActorRef{Subject: settlement.TriggeredBy(ctx)},
			Data: payloads.SettlementCommittedEvent{
				RunID:        batch.RunID,
				Year:         batch.Period.Year,
				Month:        batch.Period.Month,
				TenantIDs:    tenantIDs,
				InvoiceCount: len(rows),
				NetTotal:     totals.NetToTenants.StringFixed(2),
				CommittedAt:  rows[0].GeneratedAt,
			},
		})
	})
}

func paidTenants(tx *gorm.DB, period settlement.Period) (map[string]struct{}, error) {
	var ids []string
	err := tx.Model(&models.Invoice{}).
		Where("id = ? AND status = ?", period.ID(), enums.InvoiceStatusPaid).
		Pluck("tenant_id", &ids).Error
	if err != nil {
		return nil, err
	}
	paid := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		paid[id] = struct{}{}
	}
	return paid, nil
}

// ListByPeriod returns the period's invoices ordered by tenant id.
func (r *Repository) ListByPeriod(ctx context.Context, year, month int) ([]settlement.Invoice, error) {
	var rows []models.Invoice
	err := r.DB(ctx).
		Where("year = ? AND month = ?", year, month).
		Order("tenant_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(rows)
}

// ListByTenant returns a tenant's invoices, newest period first.
func (r *Repository) ListByTenant(ctx context.Context, tenantID string) ([]settlement.Invoice, error) {
	var rows []models.Invoice
	err := r.DB(ctx).
		Where("tenant_id = ?", tenantID).
		Order("year DESC").
		Order("month DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(rows)
}

func (r *Repository) FindByTenantPeriod(ctx context.Context, tenantID string, period settlement.Period) (*settlement.Invoice, error) {
	var row models.Invoice
	err := r.DB(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, period.ID()).
		First(&row).Error
	if err != nil {
		return nil, repo.NotFound(err, "invoice")
	}
	inv, err := toDomain(row)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkPaid records that the payout of a tenant's invoice was transferred.
// Only pending invoices can be marked; a second call is a state conflict.
func (r *Repository) MarkPaid(ctx context.Context, tenantID string, period settlement.Period) error {
	res := r.DB(ctx).
		Model(&models.Invoice{}).
		Where("tenant_id = ? AND id = ? AND status = ?", tenantID, period.ID(), enums.InvoiceStatusPending).
		Update("status", enums.InvoiceStatusPaid)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	current, err := r.FindByTenantPeriod(ctx, tenantID, period)
	if err != nil {
		return err
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "invoice %s of tenant %s is already %s", period.ID(), tenantID, current.Status)
}
