package report

import (
	"sort"
	"strconv"

	"github.com/boddenberg/lease-report-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// Input is the raw data a report is built from, as fetched by the store.
// Leases are expected to be pre-filtered for status eligibility.
type Input struct {
	Floors      []domain.Floor
	RentalUnits []domain.RentalUnit
	Leases      []domain.Lease
	Billings    []domain.Billing
}

// Options selects the report period and optional floor/property subset.
type Options struct {
	StartMonth domain.Month
	MonthCount int
	FloorID    string
	PropertyID string
}

// Builder assembles Floor → RentalUnit → TenantPaymentRecord reports.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a Builder. A nil logger discards all output.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Build produces the nested report. Units without tenant records and floors
// without retained units are pruned.
func (b *Builder) Build(in Input, opts Options) *domain.LeasePaymentReport {
	months := MonthRange(opts.StartMonth, opts.MonthCount)
	period := domain.ReportPeriod{StartMonth: opts.StartMonth, Months: months}
	if len(months) > 0 {
		period.EndMonth = months[len(months)-1]
	}

	unitsByFloor := make(map[string][]domain.RentalUnit)
	for _, u := range in.RentalUnits {
		unitsByFloor[u.FloorID] = append(unitsByFloor[u.FloorID], u)
	}
	leasesByUnit := make(map[string][]domain.Lease)
	for _, l := range in.Leases {
		leasesByUnit[l.RentalUnitID] = append(leasesByUnit[l.RentalUnitID], l)
	}
	billingsByLease := b.indexBillings(in.Billings)

	floorGroups := make([]domain.FloorGroup, 0)
	for _, floor := range selectFloors(in.Floors, opts) {
		units := unitsByFloor[floor.ID]
		sort.SliceStable(units, func(i, j int) bool { return units[i].Number < units[j].Number })

		unitGroups := make([]domain.RentalUnitGroup, 0, len(units))
		for _, unit := range units {
			records := make([]domain.TenantPaymentRecord, 0)
			for _, lease := range leasesByUnit[unit.ID] {
				records = append(records, b.leaseRecords(lease, billingsByLease[lease.ID], months)...)
			}
			if len(records) == 0 {
				continue
			}
			unitGroups = append(unitGroups, domain.RentalUnitGroup{
				ID:           unit.ID,
				Name:         unitName(unit),
				Number:       unit.Number,
				Capacity:     unit.Capacity,
				PropertyName: unit.PropertyName,
				Tenants:      records,
			})
		}
		if len(unitGroups) == 0 {
			continue
		}

		floorGroups = append(floorGroups, domain.FloorGroup{
			ID:          floor.ID,
			PropertyID:  floor.PropertyID,
			FloorNumber: floor.FloorNumber,
			Wing:        floor.Wing,
			Label:       floor.Label(),
			RentalUnits: unitGroups,
		})
	}

	b.logger.Debug("lease payment report built",
		zap.String("start_month", period.StartMonth.String()),
		zap.Int("months", len(months)),
		zap.Int("floors", len(floorGroups)),
	)

	return &domain.LeasePaymentReport{Period: period, Floors: floorGroups}
}

// leaseRecords emits one record per resolved tenant of the lease.
func (b *Builder) leaseRecords(lease domain.Lease, billings []domain.Billing, months []domain.Month) []domain.TenantPaymentRecord {
	records := make([]domain.TenantPaymentRecord, 0, len(lease.Tenants))
	for _, link := range lease.Tenants {
		if link.Tenant == nil {
			b.logger.Debug("skipping lease tenant without tenant",
				zap.String("lease_id", lease.ID),
				zap.String("lease_tenant_id", link.ID),
			)
			continue
		}
		records = append(records, tenantRecord(lease, *link.Tenant, billings, months))
	}
	return records
}

func tenantRecord(lease domain.Lease, tenant domain.Tenant, billings []domain.Billing, months []domain.Month) domain.TenantPaymentRecord {
	monthly := make([]domain.MonthlyPaymentStatus, 0, len(months))
	for _, m := range months {
		rent := ResolveMonth(billings, m, CategoryRent)
		utilities := ResolveMonth(billings, m, CategoryUtilities)
		penalty := ResolveMonth(billings, m, CategoryPenalty)

		monthly = append(monthly, domain.MonthlyPaymentStatus{
			Month:               m,
			Rent:                rent.Status,
			Utilities:           utilities.Status,
			Penalty:             penalty.Status,
			RentAmount:          rent.Billed,
			RentPaidAmount:      rent.Paid,
			UtilitiesAmount:     utilities.Billed,
			UtilitiesPaidAmount: utilities.Paid,
			PenaltyAmount:       penalty.Billed,
			PenaltyPaidAmount:   penalty.Paid,
		})
	}

	totals := CalculateTotals(billings)
	return domain.TenantPaymentRecord{
		LeaseID:            lease.ID,
		LeaseName:          lease.Name,
		LeaseStatus:        lease.Status,
		LeaseStart:         lease.StartDate,
		LeaseEnd:           lease.EndDate,
		TenantID:           tenant.ID,
		TenantName:         tenant.FullName(),
		Email:              tenant.Email,
		ContactNumber:      tenant.ContactNumber,
		MonthlyRent:        lease.RentAmount,
		MonthlyPayments:    monthly,
		TotalPaid:          totals.TotalPaid,
		TotalRentPaid:      totals.TotalRentPaid,
		TotalUtilitiesPaid: totals.TotalUtilitiesPaid,
		TotalPenaltyPaid:   totals.TotalPenaltyPaid,
		TotalPending:       totals.TotalPending,
	}
}

// indexBillings groups billings by lease once per build. Billings without a
// parseable due date stay in the index (they still count toward totals) but
// never land in a month bucket.
func (b *Builder) indexBillings(billings []domain.Billing) map[string][]domain.Billing {
	idx := make(map[string][]domain.Billing)
	for _, bill := range billings {
		if bill.DueDate.IsZero() {
			b.logger.Warn("billing has no usable due date, excluded from monthly buckets",
				zap.String("billing_id", bill.ID),
				zap.String("lease_id", bill.LeaseID),
			)
		}
		idx[bill.LeaseID] = append(idx[bill.LeaseID], bill)
	}
	return idx
}

// selectFloors applies the floor/property filters and orders by floor number.
func selectFloors(floors []domain.Floor, opts Options) []domain.Floor {
	out := make([]domain.Floor, 0, len(floors))
	for _, f := range floors {
		if opts.FloorID != "" && f.ID != opts.FloorID {
			continue
		}
		if opts.PropertyID != "" && f.PropertyID != opts.PropertyID {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FloorNumber != out[j].FloorNumber {
			return out[i].FloorNumber < out[j].FloorNumber
		}
		return out[i].Wing < out[j].Wing
	})
	return out
}

func unitName(u domain.RentalUnit) string {
	if u.Name != "" {
		return u.Name
	}
	return strconv.Itoa(u.Number)
}
