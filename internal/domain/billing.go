package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Billings
// ============================================================

// BillingType is the raw charge label stored upstream. Utility charges are
// tagged either UTILITIES or UTILITY depending on which screen created them.
type BillingType string

const (
	BillingRent      BillingType = "RENT"
	BillingUtilities BillingType = "UTILITIES"
	BillingUtility   BillingType = "UTILITY"
	BillingPenalty   BillingType = "PENALTY"
	BillingOther     BillingType = "OTHER"
)

// BillingStatus is the payment state of a single charge.
type BillingStatus string

const (
	BillingPaid    BillingStatus = "PAID"
	BillingPending BillingStatus = "PENDING"
	BillingPartial BillingStatus = "PARTIAL"
	BillingOverdue BillingStatus = "OVERDUE"
)

// Billing is one charge against a lease.
type Billing struct {
	ID         string              `json:"id"`
	LeaseID    string              `json:"lease_id"`
	Type       BillingType         `json:"type"`
	Amount     decimal.Decimal     `json:"amount"`
	PaidAmount decimal.NullDecimal `json:"paid_amount"`
	Status     BillingStatus       `json:"status"`
	// DueDate is zero when the stored value could not be parsed.
	DueDate time.Time `json:"due_date"`
}

// Paid returns the amount paid so far, zero when absent.
func (b Billing) Paid() decimal.Decimal {
	if b.PaidAmount.Valid {
		return b.PaidAmount.Decimal
	}
	return decimal.Zero
}

// DueMonth returns the month bucket of the billing. ok is false when the due
// date is unknown.
func (b Billing) DueMonth() (m Month, ok bool) {
	if b.DueDate.IsZero() {
		return Month{}, false
	}
	return MonthOf(b.DueDate), true
}
