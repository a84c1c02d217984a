// Package domain defines the core entities of the lease report service.
// These models are independent of the storage backend and represent the
// canonical data structures used throughout the BFA.
package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Property layout
// ============================================================

// Property is a managed building owned by an organization.
type Property struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
}

// Floor is one storey of a property.
type Floor struct {
	ID          string `json:"id"`
	PropertyID  string `json:"property_id"`
	FloorNumber int    `json:"floor_number"`
	Wing        string `json:"wing,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Label renders the floor for display, e.g. "2nd Floor" or "3rd Floor - Wing B".
func (f Floor) Label() string {
	label := Ordinal(f.FloorNumber) + " Floor"
	if f.Wing != "" {
		label += " - Wing " + f.Wing
	}
	return label
}

// Ordinal renders n with its English ordinal suffix (1st, 2nd, 3rd, 4th, 11th, 21st).
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// RentalUnit is a rentable room on a floor.
type RentalUnit struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Number       int    `json:"number"`
	Capacity     int    `json:"capacity"`
	FloorID      string `json:"floor_id"`
	PropertyID   string `json:"property_id"`
	PropertyName string `json:"property_name,omitempty"`
}

// ============================================================
// Leases & Tenants
// ============================================================

// LeaseStatus is the lifecycle state of a lease.
type LeaseStatus string

const (
	LeaseActive     LeaseStatus = "ACTIVE"
	LeaseInactive   LeaseStatus = "INACTIVE"
	LeaseExpired    LeaseStatus = "EXPIRED"
	LeaseTerminated LeaseStatus = "TERMINATED"
	LeasePending    LeaseStatus = "PENDING"
)

// Tenant is a person occupying a rental unit under one or more leases.
type Tenant struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email,omitempty"`
	ContactNumber string `json:"contact_number,omitempty"`
}

// FullName joins first and last name, tolerating either being empty.
func (t Tenant) FullName() string {
	switch {
	case t.FirstName == "":
		return t.LastName
	case t.LastName == "":
		return t.FirstName
	}
	return fmt.Sprintf("%s %s", t.FirstName, t.LastName)
}

// LeaseTenant links a tenant to a lease. Tenant is nil when the join could
// not be resolved (deleted tenant, missing permissions).
type LeaseTenant struct {
	ID       string  `json:"id"`
	LeaseID  string  `json:"lease_id"`
	TenantID string  `json:"tenant_id"`
	Tenant   *Tenant `json:"tenant,omitempty"`
}

// Lease is a rental agreement for one unit, possibly shared by several tenants.
type Lease struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	RentalUnitID    string          `json:"rental_unit_id"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	RentAmount      decimal.Decimal `json:"rent_amount"`
	SecurityDeposit decimal.Decimal `json:"security_deposit"`
	Status          LeaseStatus     `json:"status"`
	Tenants         []LeaseTenant   `json:"lease_tenants"`
}
