package feeschedules

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/coursehub-backend/internal/fees"
	"github.com/angelmondragon/coursehub-backend/internal/repo"
	"github.com/angelmondragon/coursehub-backend/pkg/db/models"
	"github.com/angelmondragon/coursehub-backend/pkg/pagination"
)

// HistoryPage is one page of saved versions.
type HistoryPage struct {
	Schedules  []fees.Schedule `json:"schedules"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

// Repository reads and appends fee schedule versions.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Current returns the newest saved schedule, or nil when none was ever saved.
func (r *Repository) Current(ctx context.Context) (*fees.Schedule, error) {
	var row models.FeeSchedule
	err := r.DB(ctx).
		Order("effective_at DESC").
		Order("id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	schedule := toDomain(row)
	return &schedule, nil
}

// History lists saved versions, newest first, one cursor page at a time.
func (r *Repository) History(ctx context.Context, params pagination.Params) (*HistoryPage, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, err
	}

	query := r.DB(ctx).Model(&models.FeeSchedule{})
	if cursor != nil {
		query = query.Where("(effective_at < ?) OR (effective_at = ? AND id < ?)", cursor.At, cursor.At, cursor.ID)
	}

	var rows []models.FeeSchedule
	err = query.
		Order("effective_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	page := &HistoryPage{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			At: last.EffectiveAt,
			ID: last.ID,
		})
	}
	page.Schedules = make([]fees.Schedule, 0, len(rows))
	for _, row := range rows {
		page.Schedules = append(page.Schedules, toDomain(row))
	}
	return page, nil
}

// InsertTx appends a version. Rows are never updated in place.
func (r *Repository) InsertTx(tx *gorm.DB, row *models.FeeSchedule) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(row).Error
}

func toDomain(row models.FeeSchedule) fees.Schedule {
	return fees.Schedule{
		ID:                 row.ID,
		CardPercentage:     row.CardPercentage,
		CardFixed:          row.CardFixed,
		BoletoFixed:        row.BoletoFixed,
		PixPercentage:      row.PixPercentage,
		PlatformPercentage: row.PlatformPercentage,
		PlatformFixed:      row.PlatformFixed,
		TaxPercentage:      row.TaxPercentage,
		EffectiveAt:        row.EffectiveAt,
	}
}
