package report

import (
	"github.com/boddenberg/lease-report-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// MonthlyResolution is the outcome of one (lease, month, category) bucket.
type MonthlyResolution struct {
	Status domain.PaymentStatus
	Billed decimal.Decimal
	Paid   decimal.Decimal
}

// ResolveMonth derives the status and amounts of one category in one month
// from a lease's billings.
//
// Status precedence: no billings → PENDING; all PAID → PAID; any OVERDUE →
// OVERDUE; any PARTIAL → PARTIAL; otherwise PENDING. Amounts are summed over
// the same billings regardless of status.
func ResolveMonth(billings []domain.Billing, month domain.Month, cat Category) MonthlyResolution {
	res := MonthlyResolution{
		Status: domain.PaymentPending,
		Billed: decimal.Zero,
		Paid:   decimal.Zero,
	}

	var matched, paid int
	var overdue, partial bool
	for _, b := range billings {
		due, ok := b.DueMonth()
		if !ok || due != month {
			continue
		}
		if c, ok := CategoryOf(b.Type); !ok || c != cat {
			continue
		}

		matched++
		res.Billed = res.Billed.Add(b.Amount)
		res.Paid = res.Paid.Add(b.Paid())

		switch statusOf(b) {
		case domain.BillingPaid:
			paid++
		case domain.BillingOverdue:
			overdue = true
		case domain.BillingPartial:
			partial = true
		}
	}

	switch {
	case matched == 0:
	case paid == matched:
		res.Status = domain.PaymentPaid
	case overdue:
		res.Status = domain.PaymentOverdue
	case partial:
		res.Status = domain.PaymentPartial
	}
	return res
}
