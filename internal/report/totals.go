package report

import (
	"github.com/boddenberg/lease-report-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// PaymentTotals are the running totals over a lease's whole billing history.
// TotalRentPaid + TotalUtilitiesPaid + TotalPenaltyPaid always equals TotalPaid.
type PaymentTotals struct {
	TotalPaid          decimal.Decimal
	TotalRentPaid      decimal.Decimal
	TotalUtilitiesPaid decimal.Decimal
	TotalPenaltyPaid   decimal.Decimal
	TotalPending       decimal.Decimal
}

// CalculateTotals folds every billing of a lease into PaymentTotals. Billings
// outside the three categories, or with an unknown status, are skipped.
func CalculateTotals(billings []domain.Billing) PaymentTotals {
	paidBy := map[Category]decimal.Decimal{
		CategoryRent:      decimal.Zero,
		CategoryUtilities: decimal.Zero,
		CategoryPenalty:   decimal.Zero,
	}
	t := PaymentTotals{TotalPaid: decimal.Zero, TotalPending: decimal.Zero}

	for _, b := range billings {
		cat, ok := CategoryOf(b.Type)
		if !ok {
			continue
		}
		switch statusOf(b) {
		case domain.BillingPaid:
			paidBy[cat] = paidBy[cat].Add(b.Paid())
			t.TotalPaid = t.TotalPaid.Add(b.Paid())
		case domain.BillingPartial:
			paidBy[cat] = paidBy[cat].Add(b.Paid())
			t.TotalPaid = t.TotalPaid.Add(b.Paid())
			t.TotalPending = t.TotalPending.Add(b.Amount.Sub(b.Paid()))
		case domain.BillingPending, domain.BillingOverdue:
			t.TotalPending = t.TotalPending.Add(b.Amount)
		}
	}

	t.TotalRentPaid = paidBy[CategoryRent]
	t.TotalUtilitiesPaid = paidBy[CategoryUtilities]
	t.TotalPenaltyPaid = paidBy[CategoryPenalty]
	return t
}
