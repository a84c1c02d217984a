package supabase

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/lease-report-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// billingChunk caps the ids per in.(...) filter to keep URLs short.
const billingChunk = 100

// ============================================================
// Row types (PostgREST JSON shapes)
// ============================================================

type floorRow struct {
	ID          string  `json:"id"`
	PropertyID  string  `json:"property_id"`
	FloorNumber int     `json:"floor_number"`
	Wing        *string `json:"wing"`
	Status      string  `json:"status"`
}

type rentalUnitRow struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Number     int    `json:"number"`
	Capacity   int    `json:"capacity"`
	FloorID    string `json:"floor_id"`
	PropertyID string `json:"property_id"`
	Property   *struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type tenantRow struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
}

type leaseTenantRow struct {
	ID       string     `json:"id"`
	LeaseID  string     `json:"lease_id"`
	TenantID string     `json:"tenant_id"`
	Tenant   *tenantRow `json:"tenant"`
}

type leaseRow struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	RentalUnitID    string           `json:"rental_unit_id"`
	StartDate       string           `json:"start_date"`
	EndDate         string           `json:"end_date"`
	RentAmount      decimal.Decimal  `json:"rent_amount"`
	SecurityDeposit decimal.Decimal  `json:"security_deposit"`
	Status          string           `json:"status"`
	LeaseTenants    []leaseTenantRow `json:"lease_tenants"`
}

type billingRow struct {
	ID         string              `json:"id"`
	LeaseID    string              `json:"lease_id"`
	Type       string              `json:"type"`
	Amount     decimal.Decimal     `json:"amount"`
	PaidAmount decimal.NullDecimal `json:"paid_amount"`
	Status     string              `json:"status"`
	DueDate    string              `json:"due_date"`
}

// ============================================================
// port.ReportSource
// ============================================================

// ListFloors returns the floors of the scope's organization.
func (c *Client) ListFloors(ctx context.Context, scope domain.ReportScope) ([]domain.Floor, error) {
	if err := scope.CheckOrganization(); err != nil {
		return nil, err
	}
	q := newQuery("floors", "id,property_id,floor_number,wing,status,properties!inner(organization_id)").
		eq("properties.organization_id", scope.OrganizationID).
		eq("property_id", scope.PropertyID).
		eq("id", scope.FloorID).
		order("floor_number.asc")

	var rows []floorRow
	if err := c.getJSON(ctx, "ListFloors", q.String(), &rows); err != nil {
		return nil, err
	}

	floors := make([]domain.Floor, 0, len(rows))
	for _, r := range rows {
		f := domain.Floor{
			ID:          r.ID,
			PropertyID:  r.PropertyID,
			FloorNumber: r.FloorNumber,
			Status:      r.Status,
		}
		if r.Wing != nil {
			f.Wing = strings.TrimSpace(*r.Wing)
		}
		floors = append(floors, f)
	}
	return floors, nil
}

// ListRentalUnits returns the units on the scope's floors with their property name.
func (c *Client) ListRentalUnits(ctx context.Context, scope domain.ReportScope) ([]domain.RentalUnit, error) {
	if err := scope.CheckOrganization(); err != nil {
		return nil, err
	}
	q := newQuery("rental_units", "id,name,number,capacity,floor_id,property_id,properties!inner(name,organization_id)").
		eq("properties.organization_id", scope.OrganizationID).
		eq("property_id", scope.PropertyID).
		eq("floor_id", scope.FloorID).
		order("number.asc")

	var rows []rentalUnitRow
	if err := c.getJSON(ctx, "ListRentalUnits", q.String(), &rows); err != nil {
		return nil, err
	}

	units := make([]domain.RentalUnit, 0, len(rows))
	for _, r := range rows {
		u := domain.RentalUnit{
			ID:         r.ID,
			Name:       r.Name,
			Number:     r.Number,
			Capacity:   r.Capacity,
			FloorID:    r.FloorID,
			PropertyID: r.PropertyID,
		}
		if r.Property != nil {
			u.PropertyName = r.Property.Name
		}
		units = append(units, u)
	}
	return units, nil
}

// ListLeases returns leases of eligible status, with tenants embedded, for
// units inside the scope.
func (c *Client) ListLeases(ctx context.Context, scope domain.ReportScope) ([]domain.Lease, error) {
	if err := scope.CheckOrganization(); err != nil {
		return nil, err
	}
	q := newQuery("leases",
		"id,name,rental_unit_id,start_date,end_date,rent_amount,security_deposit,status,"+
			"lease_tenants(id,lease_id,tenant_id,tenant:tenants(id,first_name,last_name,email,contact_number)),"+
			"rental_units!inner(floor_id,property_id,properties!inner(organization_id))").
		eq("rental_units.properties.organization_id", scope.OrganizationID).
		eq("rental_units.property_id", scope.PropertyID).
		eq("rental_units.floor_id", scope.FloorID)
	if statuses := scope.LeaseStatuses(); len(statuses) > 0 {
		vals := make([]string, len(statuses))
		for i, s := range statuses {
			vals[i] = string(s)
		}
		q.in("status", vals)
	}

	var rows []leaseRow
	if err := c.getJSON(ctx, "ListLeases", q.String(), &rows); err != nil {
		return nil, err
	}

	leases := make([]domain.Lease, 0, len(rows))
	for _, r := range rows {
		l := domain.Lease{
			ID:              r.ID,
			Name:            r.Name,
			RentalUnitID:    r.RentalUnitID,
			StartDate:       c.date("lease.start_date", r.ID, r.StartDate),
			EndDate:         c.date("lease.end_date", r.ID, r.EndDate),
			RentAmount:      r.RentAmount,
			SecurityDeposit: r.SecurityDeposit,
			Status:          domain.LeaseStatus(normalize(r.Status)),
			Tenants:         make([]domain.LeaseTenant, 0, len(r.LeaseTenants)),
		}
		for _, lt := range r.LeaseTenants {
			link := domain.LeaseTenant{ID: lt.ID, LeaseID: lt.LeaseID, TenantID: lt.TenantID}
			if lt.Tenant != nil {
				link.Tenant = &domain.Tenant{
					ID:            lt.Tenant.ID,
					FirstName:     lt.Tenant.FirstName,
					LastName:      lt.Tenant.LastName,
					Email:         lt.Tenant.Email,
					ContactNumber: lt.Tenant.ContactNumber,
				}
			}
			l.Tenants = append(l.Tenants, link)
		}
		leases = append(leases, l)
	}
	return leases, nil
}

// ListBillings returns every billing of leaseIDs, querying in chunks.
func (c *Client) ListBillings(ctx context.Context, leaseIDs []string) ([]domain.Billing, error) {
	billings := make([]domain.Billing, 0)
	for _, ids := range chunk(leaseIDs, billingChunk) {
		q := newQuery("billings", "id,lease_id,type,amount,paid_amount,status,due_date").
			in("lease_id", ids).
			order("due_date.asc")

		var rows []billingRow
		if err := c.getJSON(ctx, "ListBillings", q.String(), &rows); err != nil {
			return nil, err
		}
		for _, r := range rows {
			billings = append(billings, domain.Billing{
				ID:         r.ID,
				LeaseID:    r.LeaseID,
				Type:       domain.BillingType(normalize(r.Type)),
				Amount:     r.Amount,
				PaidAmount: r.PaidAmount,
				Status:     domain.BillingStatus(normalize(r.Status)),
				DueDate:    c.date("billing.due_date", r.ID, r.DueDate),
			})
		}
	}
	return billings, nil
}

// date parses a stored date, logging and returning zero when unparseable.
func (c *Client) date(field, id, raw string) time.Time {
	t, ok := parseDate(raw)
	if !ok {
		c.logger.Warn("supabase: unparseable date",
			zap.String("field", field),
			zap.String("id", id),
			zap.String("value", raw),
		)
	}
	return t
}
