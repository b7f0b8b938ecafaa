package invoices

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/coursehub-backend/internal/fees"
	"github.com/angelmondragon/coursehub-backend/internal/settlement"
	"github.com/angelmondragon/coursehub-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/coursehub-backend/pkg/db/types"
)

// moneyScale matches the numeric(20,8) columns.
const moneyScale = 8

func toModel(inv settlement.Invoice, runID uuid.UUID) (models.Invoice, error) {
	snapshot, err := dbtypes.NewJSONDocument(inv.FeeSchedule)
	if err != nil {
		return models.Invoice{}, err
	}
	ids := inv.SaleRecordIDs
	if ids == nil {
		ids = []string{}
	}
	return models.Invoice{
		ID:                  inv.ID,
		TenantID:            inv.TenantID,
		Year:                inv.Year,
		Month:               inv.Month,
		TotalRevenue:        inv.TotalRevenue.Round(moneyScale),
		TotalTaxes:          inv.TotalTaxes.Round(moneyScale),
		TotalProcessorFees:  inv.TotalProcessorFees.Round(moneyScale),
		TotalPlatformFees:   inv.TotalPlatformFees.Round(moneyScale),
		NetAmountToTransfer: inv.NetAmountToTransfer.Round(moneyScale),
		Status:              inv.Status,
		GeneratedAt:         inv.GeneratedAt.UTC(),
		SaleRecordIDs:       pq.StringArray(ids),
		FeeScheduleID:       inv.FeeSchedule.ID,
		FeeSchedule:         snapshot,
		SettlementRunID:     runID,
	}, nil
}

func toDomain(row models.Invoice) (settlement.Invoice, error) {
	var schedule fees.Schedule
	if err := row.FeeSchedule.Decode(&schedule); err != nil {
		return settlement.Invoice{}, fmt.Errorf("decode fee schedule snapshot of %s/%s: %w", row.TenantID, row.ID, err)
	}
	ids := []string(row.SaleRecordIDs)
	if ids == nil {
		ids = []string{}
	}
	return settlement.Invoice{
		ID:                  row.ID,
		TenantID:            row.TenantID,
		Year:                row.Year,
		Month:               row.Month,
		TotalRevenue:        row.TotalRevenue,
		TotalTaxes:          row.TotalTaxes,
		TotalProcessorFees:  row.TotalProcessorFees,
		TotalPlatformFees:   row.TotalPlatformFees,
		NetAmountToTransfer: row.NetAmountToTransfer,
		Status:              row.Status,
		GeneratedAt:         row.GeneratedAt,
		SaleRecordIDs:       ids,
		FeeSchedule:         schedule,
		SettlementRunID:     row.SettlementRunID,
	}, nil
}

func toDomainList(rows []models.Invoice) ([]settlement.Invoice, error) {
	out := make([]settlement.Invoice, 0, len(rows))
	for _, row := range rows {
		inv, err := toDomain(row)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}
