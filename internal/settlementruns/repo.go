package settlementruns

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/coursehub-backend/internal/repo"
	"github.com/angelmondragon/coursehub-backend/internal/settlement"
	"github.com/angelmondragon/coursehub-backend/pkg/db/models"
)

// Repository is the append-only audit trail of orchestrator passes.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Record implements settlement.RunRecorder.
func (r *Repository) Record(ctx context.Context, summary settlement.RunSummary) error {
	if !summary.State.IsTerminal() {
		return fmt.Errorf("settlement run %s recorded in non-terminal state %q", summary.RunID, summary.State)
	}
	row := models.SettlementRun{
		ID:            summary.RunID,
		Year:          summary.Period.Year,
		Month:         summary.Period.Month,
		State:         summary.State,
		InvoiceCount:  summary.InvoiceCount,
		TenantCount:   summary.TenantCount,
		SaleCount:     summary.SaleCount,
		FeeScheduleID: summary.FeeScheduleID,
		TriggeredBy:   summary.TriggeredBy,
		StartedAt:     summary.StartedAt.UTC(),
		FinishedAt:    summary.FinishedAt.UTC(),
	}
	if summary.Error != "" {
		msg := summary.Error
		row.ErrorMessage = &msg
	}
	return r.DB(ctx).Create(&row).Error
}

// ListByPeriod returns the runs for a period, most recent first.
func (r *Repository) ListByPeriod(ctx context.Context, period settlement.Period) ([]models.SettlementRun, error) {
	var rows []models.SettlementRun
	err := r.DB(ctx).
		Where("year = ? AND month = ?", period.Year, period.Month).
		Order("started_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
