// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/lease-report-bfa-go/internal/domain"
)

// ReportSource reads the property layout, leases and billings a payment
// report is built from. Implemented by the Supabase (PostgREST) adapter and
// the direct Postgres adapter.
type ReportSource interface {
	// ListFloors returns the floors of the scope's organization, narrowed by
	// property and floor when set.
	ListFloors(ctx context.Context, scope domain.ReportScope) ([]domain.Floor, error)

	// ListRentalUnits returns the units on the scope's floors, joined with
	// their property name.
	ListRentalUnits(ctx context.Context, scope domain.ReportScope) ([]domain.RentalUnit, error)

	// ListLeases returns leases (with tenant joins) of eligible status for the
	// scope's units. See domain.ReportScope.LeaseStatuses.
	ListLeases(ctx context.Context, scope domain.ReportScope) ([]domain.Lease, error)

	// ListBillings returns every billing of the given leases.
	ListBillings(ctx context.Context, leaseIDs []string) ([]domain.Billing, error)

	// Ping checks connectivity for health reporting.
	Ping(ctx context.Context) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
