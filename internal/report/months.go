// Package report turns already-fetched floors, units, leases and billings
// into the nested tenant payment report. It performs no I/O and keeps no
// state between calls, so a Builder is safe for concurrent use.
package report

import "github.com/boddenberg/lease-report-bfa-go/internal/domain"

// MonthRange returns count consecutive months starting at start.
func MonthRange(start domain.Month, count int) []domain.Month {
	if count <= 0 {
		return []domain.Month{}
	}
	months := make([]domain.Month, count)
	for i := range months {
		months[i] = start.AddMonths(i)
	}
	return months
}
