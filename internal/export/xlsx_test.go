package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/boddenberg/lease-report-bfa-go/internal/domain"
	"github.com/boddenberg/lease-report-bfa-go/internal/export"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReport() *domain.LeasePaymentReport {
	june := domain.Month{Year: 2024, Month: time.June}
	july := domain.Month{Year: 2024, Month: time.July}
	return &domain.LeasePaymentReport{
		Period: domain.ReportPeriod{StartMonth: june, EndMonth: july, Months: []domain.Month{june, july}},
		Floors: []domain.FloorGroup{{
			ID:    "f1",
			Label: "1st Floor",
			RentalUnits: []domain.RentalUnitGroup{{
				ID:           "u1",
				Name:         "101",
				PropertyName: "Sunrise",
				Tenants: []domain.TenantPaymentRecord{{
					LeaseName:   "Lease 1",
					LeaseStatus: domain.LeaseActive,
					TenantName:  "Alice Reyes",
					Email:       "alice@example.com",
					MonthlyRent: decimal.NewFromInt(1000),
					MonthlyPayments: []domain.MonthlyPaymentStatus{
						{
							Month:          june,
							Rent:           domain.PaymentPaid,
							Utilities:      domain.PaymentPending,
							Penalty:        domain.PaymentPending,
							RentAmount:     decimal.NewFromInt(1000),
							RentPaidAmount: decimal.NewFromInt(1000),
						},
						{
							Month:          july,
							Rent:           domain.PaymentPartial,
							Utilities:      domain.PaymentPending,
							Penalty:        domain.PaymentPending,
							RentAmount:     decimal.NewFromInt(1000),
							RentPaidAmount: decimal.RequireFromString("400.50"),
						},
					},
					TotalPaid:     decimal.RequireFromString("1400.50"),
					TotalRentPaid: decimal.RequireFromString("1400.50"),
					TotalPending:  decimal.RequireFromString("599.50"),
				}},
			}},
		}},
	}
}

func TestWriteXLSX(t *testing.T) {
	data, err := export.WriteXLSX(sampleReport())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{export.PaymentsSheet, export.TotalsSheet}, f.GetSheetList())

	payments, err := f.GetRows(export.PaymentsSheet)
	require.NoError(t, err)
	require.Len(t, payments, 3, "header plus one row per month")
	assert.Equal(t, export.PaymentsHeader, payments[0])
	assert.Equal(t, "1st Floor", payments[1][0])
	assert.Equal(t, "2024-06", payments[1][5])
	assert.Equal(t, "PAID", payments[1][6])
	assert.Equal(t, "PARTIAL", payments[2][6])
	assert.Equal(t, "400.5", payments[2][8])

	totals, err := f.GetRows(export.TotalsSheet)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "Alice Reyes", totals[1][2])
	assert.Equal(t, "1400.5", totals[1][8])
	assert.Equal(t, "599.5", totals[1][12])

	style, err := f.GetCellStyle(export.PaymentsSheet, "A1")
	require.NoError(t, err)
	s, err := f.GetStyle(style)
	require.NoError(t, err)
	assert.True(t, s.Font.Bold)
}

func TestWriteXLSX_EmptyReport(t *testing.T) {
	data, err := export.WriteXLSX(&domain.LeasePaymentReport{Floors: []domain.FloorGroup{}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.TotalsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
