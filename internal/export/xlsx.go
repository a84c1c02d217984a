// Package export renders lease payment reports as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/boddenberg/lease-report-bfa-go/internal/domain"

	"github.com/xuri/excelize/v2"
)

// Sheet names in the exported workbook.
const (
	PaymentsSheet = "Payments"
	TotalsSheet   = "Totals"
)

// PaymentsHeader is one row per tenant and month.
var PaymentsHeader = []string{
	"Floor",
	"Unit",
	"Property",
	"Tenant",
	"Lease",
	"Month",
	"Rent Status",
	"Rent Amount",
	"Rent Paid",
	"Utilities Status",
	"Utilities Amount",
	"Utilities Paid",
	"Penalty Status",
	"Penalty Amount",
	"Penalty Paid",
}

// TotalsHeader is one row per tenant record.
var TotalsHeader = []string{
	"Floor",
	"Unit",
	"Tenant",
	"Email",
	"Contact Number",
	"Lease",
	"Lease Status",
	"Monthly Rent",
	"Total Paid",
	"Rent Paid",
	"Utilities Paid",
	"Penalty Paid",
	"Total Pending",
}

var (
	paymentsWidths = []float64{22, 12, 20, 24, 20, 10, 12, 12, 12, 14, 14, 14, 14, 14, 14}
	totalsWidths   = []float64{22, 12, 24, 28, 16, 20, 12, 14, 14, 14, 14, 14, 14}
)

// WriteXLSX renders report as an .xlsx workbook with a Payments and a
// Totals sheet. Amounts are written as numbers.
func WriteXLSX(report *domain.LeasePaymentReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(PaymentsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(TotalsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeader(f, PaymentsSheet, PaymentsHeader, paymentsWidths, headerStyle); err != nil {
		return nil, err
	}
	if err := writeHeader(f, TotalsSheet, TotalsHeader, totalsWidths, headerStyle); err != nil {
		return nil, err
	}

	paymentRow, totalsRow := 2, 2
	for _, floor := range report.Floors {
		for _, unit := range floor.RentalUnits {
			for _, rec := range unit.Tenants {
				for _, m := range rec.MonthlyPayments {
					row := []any{
						floor.Label, unit.Name, unit.PropertyName, rec.TenantName, rec.LeaseName, m.Month.String(),
						string(m.Rent), m.RentAmount.InexactFloat64(), m.RentPaidAmount.InexactFloat64(),
						string(m.Utilities), m.UtilitiesAmount.InexactFloat64(), m.UtilitiesPaidAmount.InexactFloat64(),
						string(m.Penalty), m.PenaltyAmount.InexactFloat64(), m.PenaltyPaidAmount.InexactFloat64(),
					}
					if err := writeRow(f, PaymentsSheet, paymentRow, row); err != nil {
						return nil, err
					}
					paymentRow++
				}

				row := []any{
					floor.Label, unit.Name, rec.TenantName, rec.Email, rec.ContactNumber,
					rec.LeaseName, string(rec.LeaseStatus), rec.MonthlyRent.InexactFloat64(),
					rec.TotalPaid.InexactFloat64(), rec.TotalRentPaid.InexactFloat64(),
					rec.TotalUtilitiesPaid.InexactFloat64(), rec.TotalPenaltyPaid.InexactFloat64(),
					rec.TotalPending.InexactFloat64(),
				}
				if err := writeRow(f, TotalsSheet, totalsRow, row); err != nil {
					return nil, err
				}
				totalsRow++
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, header []string, widths []float64, style int) error {
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}

		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if i < len(widths) {
			if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
				return fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d on %s: %w", row, sheet, err)
	}
	return nil
}
