package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Lease Payment Report
// ============================================================

// PaymentStatus is the aggregate status of one category within one month.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentOverdue PaymentStatus = "OVERDUE"
	PaymentPending PaymentStatus = "PENDING"
)

// MonthlyPaymentStatus is the per-category status and amounts of one
// (lease, tenant, month).
type MonthlyPaymentStatus struct {
	Month     Month         `json:"month"`
	Rent      PaymentStatus `json:"rent"`
	Utilities PaymentStatus `json:"utilities"`
	Penalty   PaymentStatus `json:"penalty"`

	RentAmount          decimal.Decimal `json:"rentAmount"`
	RentPaidAmount      decimal.Decimal `json:"rentPaidAmount"`
	UtilitiesAmount     decimal.Decimal `json:"utilitiesAmount"`
	UtilitiesPaidAmount decimal.Decimal `json:"utilitiesPaidAmount"`
	PenaltyAmount       decimal.Decimal `json:"penaltyAmount"`
	PenaltyPaidAmount   decimal.Decimal `json:"penaltyPaidAmount"`
}

// TenantPaymentRecord is the report row of one (lease, tenant) pair.
type TenantPaymentRecord struct {
	LeaseID       string      `json:"leaseId"`
	LeaseName     string      `json:"leaseName"`
	LeaseStatus   LeaseStatus `json:"leaseStatus"`
	LeaseStart    time.Time   `json:"leaseStart"`
	LeaseEnd      time.Time   `json:"leaseEnd"`
	TenantID      string      `json:"tenantId"`
	TenantName    string      `json:"tenantName"`
	Email         string      `json:"email,omitempty"`
	ContactNumber string      `json:"contactNumber,omitempty"`

	MonthlyRent     decimal.Decimal        `json:"monthlyRent"`
	MonthlyPayments []MonthlyPaymentStatus `json:"monthlyPayments"`

	TotalPaid          decimal.Decimal `json:"totalPaid"`
	TotalRentPaid      decimal.Decimal `json:"totalRentPaid"`
	TotalUtilitiesPaid decimal.Decimal `json:"totalUtilitiesPaid"`
	TotalPenaltyPaid   decimal.Decimal `json:"totalPenaltyPaid"`
	TotalPending       decimal.Decimal `json:"totalPending"`
}

// RentalUnitGroup nests tenant records under their unit.
type RentalUnitGroup struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Number       int                   `json:"number"`
	Capacity     int                   `json:"capacity"`
	PropertyName string                `json:"propertyName,omitempty"`
	Tenants      []TenantPaymentRecord `json:"tenants"`
}

// FloorGroup nests units under their floor.
type FloorGroup struct {
	ID          string            `json:"id"`
	PropertyID  string            `json:"propertyId"`
	FloorNumber int               `json:"floorNumber"`
	Wing        string            `json:"wing,omitempty"`
	Label       string            `json:"label"`
	RentalUnits []RentalUnitGroup `json:"rentalUnits"`
}

// ReportPeriod is the contiguous month range a report covers.
type ReportPeriod struct {
	StartMonth Month   `json:"startMonth"`
	EndMonth   Month   `json:"endMonth"`
	Months     []Month `json:"months"`
}

// LeasePaymentReport is the full nested report. ID and GeneratedAt are
// stamped by the service; the aggregator leaves them empty.
type LeasePaymentReport struct {
	ID          string       `json:"id,omitempty"`
	GeneratedAt time.Time    `json:"generatedAt,omitempty"`
	Period      ReportPeriod `json:"reportPeriod"`
	Floors      []FloorGroup `json:"floors"`
}

// TenantCount returns the number of tenant records across all floors.
func (r *LeasePaymentReport) TenantCount() int {
	n := 0
	for _, f := range r.Floors {
		for _, u := range f.RentalUnits {
			n += len(u.Tenants)
		}
	}
	return n
}

// UnitCount returns the number of retained rental units across all floors.
func (r *LeasePaymentReport) UnitCount() int {
	n := 0
	for _, f := range r.Floors {
		n += len(f.RentalUnits)
	}
	return n
}

// ============================================================
// Report request
// ============================================================

// ReportFilter is the caller-facing request for a payment report.
// OrganizationID never comes from the query string: it is taken from the
// authenticated principal. An empty OrganizationID is only accepted together
// with AllOrganizations.
type ReportFilter struct {
	StartMonth       string `json:"startMonth" validate:"required,len=7"`
	MonthCount       int    `json:"monthCount" validate:"required,min=1"`
	FloorID          string `json:"floorId,omitempty" validate:"omitempty,uuid"`
	PropertyID       string `json:"propertyId,omitempty" validate:"omitempty,uuid"`
	IncludeInactive  bool   `json:"includeInactive"`
	OrganizationID   string `json:"-"`
	AllOrganizations bool   `json:"-"`
}

// Scope returns the storage-level selection for the filter.
func (f ReportFilter) Scope() ReportScope {
	return ReportScope{
		OrganizationID:   f.OrganizationID,
		PropertyID:       f.PropertyID,
		FloorID:          f.FloorID,
		IncludeInactive:  f.IncludeInactive,
		AllOrganizations: f.AllOrganizations,
	}
}

// ReportScope is what the store filters on. Lease status eligibility is the
// store's job: only ACTIVE leases unless IncludeInactive is set.
// AllOrganizations must be set explicitly to read without an organization;
// only super admins and the CLI do so.
type ReportScope struct {
	OrganizationID   string
	PropertyID       string
	FloorID          string
	IncludeInactive  bool
	AllOrganizations bool
}

// CheckOrganization rejects scopes that would read every organization by
// accident.
func (s ReportScope) CheckOrganization() error {
	if s.OrganizationID == "" && !s.AllOrganizations {
		return &ErrForbidden{Action: "report without organization scope"}
	}
	return nil
}

// LeaseStatuses returns the lease statuses eligible for the scope, or nil
// when every status is admitted.
func (s ReportScope) LeaseStatuses() []LeaseStatus {
	if s.IncludeInactive {
		return nil
	}
	return []LeaseStatus{LeaseActive}
}
