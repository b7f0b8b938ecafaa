package tenants

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/coursehub-backend/internal/repo"
	"github.com/angelmondragon/coursehub-backend/internal/settlement"
	"github.com/angelmondragon/coursehub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/coursehub-backend/pkg/errors"
)

// Repository is the tenant directory backed by the tenants table.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ListActive returns every tenant eligible for payouts, ordered by id.
func (r *Repository) ListActive(ctx context.Context) ([]settlement.Tenant, error) {
	var rows []models.Tenant
	if err := r.DB(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]settlement.Tenant, 0, len(rows))
	for _, row := range rows {
		out = append(out, settlement.Tenant{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	var row models.Tenant
	if err := r.DB(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, repo.NotFound(err, "tenant")
	}
	return &row, nil
}

func (r *Repository) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant == nil || strings.TrimSpace(tenant.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if err := r.DB(ctx).Create(tenant).Error; err != nil {
		return pkgerrors.FromPostgres(err, "could not save tenant "+tenant.ID)
	}
	return nil
}

// SetActive toggles payout eligibility without touching the tenant's history.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	res := r.DB(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", id).
		Update("active", active)
	return repo.Affected(res, "tenant")
}
