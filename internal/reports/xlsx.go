package reports

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/angelmondragon/coursehub-backend/internal/settlement"
)

// ContentTypeXLSX is the media type of WriteInvoicesXLSX output.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var invoiceHeadings = []string{
	"Tenant",
	"Invoice",
	"Status",
	"Sales",
	"Revenue",
	"Taxes",
	"Processor fees",
	"Platform fees",
	"Net to transfer",
	"Generated at",
}

// Filename is the attachment name used for a period's statement.
func Filename(period settlement.Period) string {
	return fmt.Sprintf("settlement-%s.xlsx", period.ID())
}

// WriteInvoicesXLSX renders a period's invoices as a single-sheet workbook:
// one row per invoice followed by a totals row.
func WriteInvoicesXLSX(w io.Writer, period settlement.Period, invoices []settlement.Invoice) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := period.ID()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headings := make([]interface{}, 0, len(invoiceHeadings))
	for _, h := range invoiceHeadings {
		headings = append(headings, h)
	}
	if err := f.SetSheetRow(sheet, "A1", &headings); err != nil {
		return fmt.Errorf("write headings: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "J1", bold); err != nil {
		return fmt.Errorf("style headings: %w", err)
	}

	rowNo := 2
	for _, inv := range invoices {
		row := []interface{}{
			inv.TenantID,
			inv.ID,
			string(inv.Status),
			len(inv.SaleRecordIDs),
			money(inv.TotalRevenue),
			money(inv.TotalTaxes),
			money(inv.TotalProcessorFees),
			money(inv.TotalPlatformFees),
			money(inv.NetAmountToTransfer),
			inv.GeneratedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowNo), &row); err != nil {
			return fmt.Errorf("write invoice %s/%s: %w", inv.TenantID, inv.ID, err)
		}
		rowNo++
	}

	totals := settlement.SumInvoices(invoices)
	saleCount := 0
	for _, inv := range invoices {
		saleCount += len(inv.SaleRecordIDs)
	}
	summary := []interface{}{
		"TOTAL",
		period.ID(),
		"",
		saleCount,
		money(totals.Revenue),
		money(totals.Taxes),
		money(totals.ProcessorFees),
		money(totals.PlatformFees),
		money(totals.NetToTenants),
		"",
	}
	summaryCell := fmt.Sprintf("A%d", rowNo)
	if err := f.SetSheetRow(sheet, summaryCell, &summary); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}
	if err := f.SetCellStyle(sheet, summaryCell, fmt.Sprintf("J%d", rowNo), bold); err != nil {
		return fmt.Errorf("style totals: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", "J", 18); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	return f.Write(w)
}

// money rounds to cents before the value leaves decimal arithmetic.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
