package report

import (
	"slices"
	"strings"

	"github.com/boddenberg/lease-report-bfa-go/internal/domain"
)

// Category is one of the three billing classes tracked per month.
type Category string

const (
	CategoryRent      Category = "RENT"
	CategoryUtilities Category = "UTILITIES"
	CategoryPenalty   Category = "PENALTY"
)

// Categories lists every report category in column order.
var Categories = []Category{CategoryRent, CategoryUtilities, CategoryPenalty}

// categoryAliases is the only place raw billing labels are mapped to report
// categories. Every category maps to at least one label.
var categoryAliases = map[Category][]domain.BillingType{
	CategoryRent:      {domain.BillingRent},
	CategoryUtilities: {domain.BillingUtilities, domain.BillingUtility},
	CategoryPenalty:   {domain.BillingPenalty},
}

var categoryByType = func() map[domain.BillingType]Category {
	idx := make(map[domain.BillingType]Category)
	for cat, types := range categoryAliases {
		for _, t := range types {
			idx[t] = cat
		}
	}
	return idx
}()

// AliasesFor returns the raw billing labels that satisfy cat.
func AliasesFor(cat Category) []domain.BillingType {
	return slices.Clone(categoryAliases[cat])
}

// CategoryOf classifies a raw billing label. ok is false for labels outside
// every category (deposits, fees, "OTHER").
func CategoryOf(t domain.BillingType) (Category, bool) {
	cat, ok := categoryByType[normalizeType(t)]
	return cat, ok
}

func normalizeType(t domain.BillingType) domain.BillingType {
	return domain.BillingType(strings.ToUpper(strings.TrimSpace(string(t))))
}

// statusOf reads a billing status the same way CategoryOf reads its type.
func statusOf(b domain.Billing) domain.BillingStatus {
	return domain.BillingStatus(strings.ToUpper(strings.TrimSpace(string(b.Status))))
}
