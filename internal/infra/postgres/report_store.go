package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/boddenberg/lease-report-bfa-go/internal/domain"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("postgres")

// Empty string filters match everything. An empty organization only reaches
// the queries when the scope asks for every organization.
const (
	floorsQuery = `
SELECT f.id, f.property_id, f.floor_number, COALESCE(f.wing, ''), COALESCE(f.status, '')
FROM floors f
JOIN properties p ON p.id = f.property_id
WHERE ($1 = '' OR p.organization_id::text = $1)
  AND ($2 = '' OR f.property_id::text = $2)
  AND ($3 = '' OR f.id::text = $3)
ORDER BY f.floor_number`

	rentalUnitsQuery = `
SELECT ru.id, COALESCE(ru.name, ''), ru.number, COALESCE(ru.capacity, 0), ru.floor_id, ru.property_id, p.name
FROM rental_units ru
JOIN properties p ON p.id = ru.property_id
WHERE ($1 = '' OR p.organization_id::text = $1)
  AND ($2 = '' OR ru.property_id::text = $2)
  AND ($3 = '' OR ru.floor_id::text = $3)
ORDER BY ru.number`

	leasesQuery = `
SELECT l.id, COALESCE(l.name, ''), l.rental_unit_id, l.start_date, l.end_date,
       l.rent_amount, l.security_deposit, l.status,
       lt.id, lt.tenant_id,
       t.id, t.first_name, t.last_name, t.email, t.contact_number
FROM leases l
JOIN rental_units ru ON ru.id = l.rental_unit_id
JOIN properties p ON p.id = ru.property_id
LEFT JOIN lease_tenants lt ON lt.lease_id = l.id
LEFT JOIN tenants t ON t.id = lt.tenant_id
WHERE ($1 = '' OR p.organization_id::text = $1)
  AND ($2 = '' OR ru.property_id::text = $2)
  AND ($3 = '' OR ru.floor_id::text = $3)
  AND ($4::text[] IS NULL OR upper(l.status) = ANY($4))
ORDER BY l.id, lt.id`

	billingsQuery = `
SELECT b.id, b.lease_id, b.type, b.amount, b.paid_amount, b.status, b.due_date
FROM billings b
WHERE b.lease_id::text = ANY($1)
ORDER BY b.due_date`
)

// ReportStore implements port.ReportSource over database/sql.
type ReportStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportStore creates a store on an open pool.
func NewReportStore(db *sql.DB, logger *zap.Logger) *ReportStore {
	return &ReportStore{db: db, logger: logger}
}

// ListFloors returns the floors of the scope's organization.
func (s *ReportStore) ListFloors(ctx context.Context, scope domain.ReportScope) ([]domain.Floor, error) {
	if err := scope.CheckOrganization(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "Postgres.ListFloors")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, floorsQuery, scope.OrganizationID, scope.PropertyID, scope.FloorID)
	if err != nil {
		return nil, s.fail(span, "ListFloors", err)
	}
	defer rows.Close()

	floors := make([]domain.Floor, 0)
	for rows.Next() {
		var f domain.Floor
		if err := rows.Scan(&f.ID, &f.PropertyID, &f.FloorNumber, &f.Wing, &f.Status); err != nil {
			return nil, s.fail(span, "ListFloors", err)
		}
		f.Wing = strings.TrimSpace(f.Wing)
		floors = append(floors, f)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(span, "ListFloors", err)
	}
	return floors, nil
}

// ListRentalUnits returns the units on the scope's floors with their property name.
func (s *ReportStore) ListRentalUnits(ctx context.Context, scope domain.ReportScope) ([]domain.RentalUnit, error) {
	if err := scope.CheckOrganization(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "Postgres.ListRentalUnits")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, rentalUnitsQuery, scope.OrganizationID, scope.PropertyID, scope.FloorID)
	if err != nil {
		return nil, s.fail(span, "ListRentalUnits", err)
	}
	defer rows.Close()

	units := make([]domain.RentalUnit, 0)
	for rows.Next() {
		var u domain.RentalUnit
		if err := rows.Scan(&u.ID, &u.Name, &u.Number, &u.Capacity, &u.FloorID, &u.PropertyID, &u.PropertyName); err != nil {
			return nil, s.fail(span, "ListRentalUnits", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(span, "ListRentalUnits", err)
	}
	return units, nil
}

// ListLeases returns leases of eligible status with their tenants. The join
// yields one row per lease tenant; rows are folded back into leases here.
func (s *ReportStore) ListLeases(ctx context.Context, scope domain.ReportScope) ([]domain.Lease, error) {
	if err := scope.CheckOrganization(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "Postgres.ListLeases")
	defer span.End()

	var statuses []string
	for _, st := range scope.LeaseStatuses() {
		statuses = append(statuses, string(st))
	}

	rows, err := s.db.QueryContext(ctx, leasesQuery,
		scope.OrganizationID, scope.PropertyID, scope.FloorID, pq.Array(statuses))
	if err != nil {
		return nil, s.fail(span, "ListLeases", err)
	}
	defer rows.Close()

	leases := make([]domain.Lease, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			l                   domain.Lease
			start, end          sql.NullTime
			rent, deposit       decimal.NullDecimal
			status              string
			linkID, linkTenant  sql.NullString
			tenantID, first     sql.NullString
			last, email, mobile sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.RentalUnitID, &start, &end,
			&rent, &deposit, &status,
			&linkID, &linkTenant,
			&tenantID, &first, &last, &email, &mobile); err != nil {
			return nil, s.fail(span, "ListLeases", err)
		}

		i, seen := index[l.ID]
		if !seen {
			l.StartDate = start.Time
			l.EndDate = end.Time
			l.RentAmount = rent.Decimal
			l.SecurityDeposit = deposit.Decimal
			l.Status = domain.LeaseStatus(strings.ToUpper(strings.TrimSpace(status)))
			l.Tenants = make([]domain.LeaseTenant, 0, 1)
			leases = append(leases, l)
			i = len(leases) - 1
			index[l.ID] = i
		}

		if !linkID.Valid {
			continue
		}
		link := domain.LeaseTenant{ID: linkID.String, LeaseID: leases[i].ID, TenantID: linkTenant.String}
		if tenantID.Valid {
			link.Tenant = &domain.Tenant{
				ID:            tenantID.String,
				FirstName:     first.String,
				LastName:      last.String,
				Email:         email.String,
				ContactNumber: mobile.String,
			}
		}
		leases[i].Tenants = append(leases[i].Tenants, link)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(span, "ListLeases", err)
	}
	return leases, nil
}

// ListBillings returns every billing of leaseIDs.
func (s *ReportStore) ListBillings(ctx context.Context, leaseIDs []string) ([]domain.Billing, error) {
	billings := make([]domain.Billing, 0)
	if len(leaseIDs) == 0 {
		return billings, nil
	}

	ctx, span := tracer.Start(ctx, "Postgres.ListBillings")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, billingsQuery, pq.Array(leaseIDs))
	if err != nil {
		return nil, s.fail(span, "ListBillings", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			b           domain.Billing
			typ, status string
			due         sql.NullTime
		)
		if err := rows.Scan(&b.ID, &b.LeaseID, &typ, &b.Amount, &b.PaidAmount, &status, &due); err != nil {
			return nil, s.fail(span, "ListBillings", err)
		}
		b.Type = domain.BillingType(strings.ToUpper(strings.TrimSpace(typ)))
		b.Status = domain.BillingStatus(strings.ToUpper(strings.TrimSpace(status)))
		b.DueDate = due.Time
		billings = append(billings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(span, "ListBillings", err)
	}
	return billings, nil
}

// Ping checks the pool.
func (s *ReportStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &domain.ErrExternalService{Service: "postgres", Err: err}
	}
	return nil
}

func (s *ReportStore) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error("postgres: query failed", zap.String("op", op), zap.Error(err))
	return &domain.ErrExternalService{Service: "postgres/" + op, Err: err}
}
