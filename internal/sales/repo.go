package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/coursehub-backend/internal/fees"
	"github.com/angelmondragon/coursehub-backend/internal/repo"
	"github.com/angelmondragon/coursehub-backend/pkg/db/models"
	"github.com/angelmondragon/coursehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursehub-backend/pkg/errors"
)

// Repository reads completed sales written by the payment producers.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ListSales returns a tenant's sales created within [start, end], oldest first.
func (r *Repository) ListSales(ctx context.Context, tenantID string, start, end time.Time) ([]fees.Sale, error) {
	return r.list(ctx, []string{tenantID}, start, end)
}

// ListSalesForTenants loads the window for many tenants in one query.
func (r *Repository) ListSalesForTenants(ctx context.Context, tenantIDs []string, start, end time.Time) ([]fees.Sale, error) {
	if len(tenantIDs) == 0 {
		return []fees.Sale{}, nil
	}
	return r.list(ctx, tenantIDs, start, end)
}

func (r *Repository) list(ctx context.Context, tenantIDs []string, start, end time.Time) ([]fees.Sale, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("sales window end %s before start %s", end, start)
	}
	var rows []models.SaleRecord
	err := r.DB(ctx).
		Where("tenant_id IN ?", tenantIDs).
		Where("created_at >= ? AND created_at <= ?", start.UTC(), end.UTC()).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]fees.Sale, 0, len(rows))
	for _, row := range rows {
		out = append(out, fees.Sale{
			ID:            row.ID,
			TenantID:      row.TenantID,
			Amount:        row.Amount,
			PaymentMethod: enums.PaymentMethod(row.PaymentMethod),
			CreatedAt:     row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

// Create stores a completed sale. Unknown payment methods are still stored
// as-is so that settlement surfaces them instead of losing the row.
func (r *Repository) Create(ctx context.Context, sale fees.Sale) error {
	if strings.TrimSpace(sale.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	if strings.TrimSpace(sale.TenantID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale tenant id is required")
	}
	if sale.CreatedAt.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale timestamp is required")
	}
	row := models.SaleRecord{
		ID:            sale.ID,
		TenantID:      sale.TenantID,
		Amount:        sale.Amount,
		PaymentMethod: string(sale.PaymentMethod),
		CreatedAt:     sale.CreatedAt.UTC(),
	}
	if err := r.DB(ctx).Create(&row).Error; err != nil {
		return pkgerrors.FromPostgres(err, "could not record sale "+sale.ID)
	}
	return nil
}
