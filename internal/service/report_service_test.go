package service_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/lease-report-bfa-go/internal/domain"
	"github.com/boddenberg/lease-report-bfa-go/internal/infra/cache"
	"github.com/boddenberg/lease-report-bfa-go/internal/infra/observability"
	"github.com/boddenberg/lease-report-bfa-go/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// --- Mocks ---

type mockStore struct {
	floors   []domain.Floor
	units    []domain.RentalUnit
	leases   []domain.Lease
	billings []domain.Billing

	floorsErr   error
	billingsErr error
	pingErr     error

	// block, when set, holds ListFloors until closed; entered is signalled
	// once the call is parked.
	block   chan struct{}
	entered chan struct{}

	mu           sync.Mutex
	scopes       []domain.ReportScope
	billingCalls atomic.Int32
	requestedIDs []string
}

func (m *mockStore) ListFloors(_ context.Context, scope domain.ReportScope) ([]domain.Floor, error) {
	m.mu.Lock()
	m.scopes = append(m.scopes, scope)
	m.mu.Unlock()
	if m.block != nil {
		m.entered <- struct{}{}
		<-m.block
	}
	return m.floors, m.floorsErr
}

func (m *mockStore) ListRentalUnits(_ context.Context, _ domain.ReportScope) ([]domain.RentalUnit, error) {
	return m.units, nil
}

func (m *mockStore) ListLeases(_ context.Context, _ domain.ReportScope) ([]domain.Lease, error) {
	return m.leases, nil
}

func (m *mockStore) ListBillings(_ context.Context, ids []string) ([]domain.Billing, error) {
	m.billingCalls.Add(1)
	m.mu.Lock()
	m.requestedIDs = ids
	m.mu.Unlock()
	return m.billings, m.billingsErr
}

func (m *mockStore) Ping(_ context.Context) error {
	return m.pingErr
}

func due(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func newStore() *mockStore {
	return &mockStore{
		floors: []domain.Floor{{ID: "f1", PropertyID: "p1", FloorNumber: 1}},
		units:  []domain.RentalUnit{{ID: "u1", Number: 101, FloorID: "f1", PropertyID: "p1", PropertyName: "Sunrise"}},
		leases: []domain.Lease{{
			ID:           "l1",
			Name:         "Lease 1",
			RentalUnitID: "u1",
			RentAmount:   decimal.NewFromInt(1000),
			Status:       domain.LeaseActive,
			Tenants: []domain.LeaseTenant{{
				ID: "lt1", LeaseID: "l1", TenantID: "t1",
				Tenant: &domain.Tenant{ID: "t1", FirstName: "Alice", LastName: "Reyes"},
			}},
		}},
		billings: []domain.Billing{
			{ID: "b1", LeaseID: "l1", Type: domain.BillingRent, Status: domain.BillingPaid,
				Amount: decimal.NewFromInt(1000), PaidAmount: decimal.NewNullDecimal(decimal.NewFromInt(1000)), DueDate: due(2024, time.June, 5)},
			{ID: "b2", LeaseID: "l1", Type: domain.BillingRent, Status: domain.BillingPartial,
				Amount: decimal.NewFromInt(1000), PaidAmount: decimal.NewNullDecimal(decimal.NewFromInt(400)), DueDate: due(2024, time.July, 5)},
		},
	}
}

func newService(store *mockStore, metrics *observability.Metrics) *service.ReportService {
	return service.NewReportService(
		store,
		cache.New[*domain.LeasePaymentReport](5*time.Minute),
		service.ReportConfig{MaxMonths: 12, MaxConcurrency: 4, StoreName: "mock"},
		metrics,
		zap.NewNop(),
	)
}

func validFilter() domain.ReportFilter {
	return domain.ReportFilter{StartMonth: "2024-06", MonthCount: 2, OrganizationID: "org-1"}
}

// --- Tests ---

func TestGetLeasePaymentReport_Success(t *testing.T) {
	store := newStore()
	metrics := observability.NewMetrics()
	svc := newService(store, metrics)

	rep, err := svc.GetLeasePaymentReport(context.Background(), validFilter())
	require.NoError(t, err)

	assert.NotEmpty(t, rep.ID)
	assert.False(t, rep.GeneratedAt.IsZero())
	assert.Equal(t, "2024-06", rep.Period.StartMonth.String())
	assert.Equal(t, "2024-07", rep.Period.EndMonth.String())
	require.Len(t, rep.Floors, 1)
	require.Len(t, rep.Floors[0].RentalUnits, 1)

	rec := rep.Floors[0].RentalUnits[0].Tenants[0]
	assert.Equal(t, "Alice Reyes", rec.TenantName)
	assert.Equal(t, domain.PaymentPaid, rec.MonthlyPayments[0].Rent)
	assert.Equal(t, domain.PaymentPartial, rec.MonthlyPayments[1].Rent)
	assert.True(t, decimal.NewFromInt(1400).Equal(rec.TotalPaid))
	assert.True(t, decimal.NewFromInt(600).Equal(rec.TotalPending))

	assert.Equal(t, []string{"l1"}, store.requestedIDs)
	require.Len(t, store.scopes, 1)
	assert.Equal(t, "org-1", store.scopes[0].OrganizationID)

	snap := metrics.GetReportSnapshot()
	assert.Equal(t, int64(1), snap.ReportsGenerated)
	assert.Equal(t, int64(1), snap.CacheMisses)
	assert.Equal(t, int64(1), snap.LastReportTenants)
}

func TestGetLeasePaymentReport_ServedFromCache(t *testing.T) {
	store := newStore()
	metrics := observability.NewMetrics()
	svc := newService(store, metrics)

	first, err := svc.GetLeasePaymentReport(context.Background(), validFilter())
	require.NoError(t, err)
	second, err := svc.GetLeasePaymentReport(context.Background(), validFilter())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(1), store.billingCalls.Load())
	assert.Equal(t, int64(1), metrics.GetReportSnapshot().CacheHits)

	other := validFilter()
	other.OrganizationID = "org-2"
	third, err := svc.GetLeasePaymentReport(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID, "cache is keyed per organization")
}

func TestGetLeasePaymentReport_Validation(t *testing.T) {
	svc := newService(newStore(), observability.NewMetrics())

	cases := []struct {
		name  string
		edit  func(*domain.ReportFilter)
		field string
	}{
		{"missing start", func(f *domain.ReportFilter) { f.StartMonth = "" }, "startMonth"},
		{"bad start", func(f *domain.ReportFilter) { f.StartMonth = "2024-13" }, "startMonth"},
		{"zero count", func(f *domain.ReportFilter) { f.MonthCount = 0 }, "monthCount"},
		{"negative count", func(f *domain.ReportFilter) { f.MonthCount = -3 }, "monthCount"},
		{"too many months", func(f *domain.ReportFilter) { f.MonthCount = 13 }, "monthCount"},
		{"bad floor id", func(f *domain.ReportFilter) { f.FloorID = "not-a-uuid" }, "floorId"},
		{"bad property id", func(f *domain.ReportFilter) { f.PropertyID = "42" }, "propertyId"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := validFilter()
			tc.edit(&f)
			_, err := svc.GetLeasePaymentReport(context.Background(), f)

			var ve *domain.ErrValidation
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestGetLeasePaymentReport_StoreError(t *testing.T) {
	store := newStore()
	store.floorsErr = &domain.ErrExternalService{Service: "mock", Err: errors.New("boom")}
	metrics := observability.NewMetrics()
	svc := newService(store, metrics)

	_, err := svc.GetLeasePaymentReport(context.Background(), validFilter())

	var ext *domain.ErrExternalService
	require.True(t, errors.As(err, &ext))
	assert.Equal(t, int64(1), metrics.GetReportSnapshot().StoreErrors)
	assert.Equal(t, int64(0), metrics.GetReportSnapshot().ReportsGenerated)
}

func TestGetLeasePaymentReport_NoLeasesSkipsBillings(t *testing.T) {
	store := newStore()
	store.leases = nil
	svc := newService(store, observability.NewMetrics())

	rep, err := svc.GetLeasePaymentReport(context.Background(), validFilter())
	require.NoError(t, err)
	assert.Empty(t, rep.Floors)
	assert.NotNil(t, rep.Floors)
	assert.Equal(t, int32(0), store.billingCalls.Load())
}

func TestGetLeasePaymentReport_CancelledContext(t *testing.T) {
	svc := newService(newStore(), observability.NewMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GetLeasePaymentReport(ctx, validFilter())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetLeasePaymentReport_RequiresOrganization(t *testing.T) {
	store := newStore()
	svc := newService(store, observability.NewMetrics())

	f := validFilter()
	f.OrganizationID = ""
	_, err := svc.GetLeasePaymentReport(context.Background(), f)

	var forbidden *domain.ErrForbidden
	require.ErrorAs(t, err, &forbidden)
	assert.Empty(t, store.scopes, "store must not be reached")

	f.AllOrganizations = true
	_, err = svc.GetLeasePaymentReport(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, store.scopes, 1)
	assert.True(t, store.scopes[0].AllOrganizations)
}

// busyService returns a service with a single build slot held by a request
// parked inside the store. release frees the slot and waits for it.
func busyService(t *testing.T) (svc *service.ReportService, release func()) {
	t.Helper()
	store := newStore()
	store.block = make(chan struct{})
	store.entered = make(chan struct{}, 1)

	svc = service.NewReportService(store, cache.New[*domain.LeasePaymentReport](0),
		service.ReportConfig{MaxConcurrency: 1}, observability.NewMetrics(), zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.GetLeasePaymentReport(context.Background(), validFilter())
	}()
	<-store.entered

	return svc, func() {
		close(store.block)
		<-done
	}
}

func TestGetLeasePaymentReport_CancelledWhileWaitingForSlot(t *testing.T) {
	svc, release := busyService(t)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := svc.GetLeasePaymentReport(ctx, validFilter())
	assert.ErrorIs(t, err, context.Canceled)

	var timeout *domain.ErrTimeout
	assert.False(t, errors.As(err, &timeout), "cancellation is not a timeout")
}

func TestGetLeasePaymentReport_DeadlineWhileWaitingForSlot(t *testing.T) {
	svc, release := busyService(t)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.GetLeasePaymentReport(ctx, validFilter())
	var timeout *domain.ErrTimeout
	assert.ErrorAs(t, err, &timeout)
}

func TestExportLeasePaymentReport(t *testing.T) {
	metrics := observability.NewMetrics()
	svc := newService(newStore(), metrics)

	data, err := svc.ExportLeasePaymentReport(context.Background(), validFilter())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Payments")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	snap := metrics.GetReportSnapshot()
	assert.Equal(t, int64(1), snap.ExportsGenerated)
	assert.Equal(t, int64(0), snap.ReportsGenerated)
}

func TestHealth(t *testing.T) {
	store := newStore()
	svc := newService(store, observability.NewMetrics())

	h := svc.Health(context.Background())
	assert.Equal(t, "healthy", h.Status)
	require.Len(t, h.Services, 1)
	assert.Equal(t, "mock", h.Services[0].Name)
	assert.Equal(t, "up", h.Services[0].Status)

	store.pingErr = errors.New("connection refused")
	h = svc.Health(context.Background())
	assert.Equal(t, "unhealthy", h.Status)
	assert.Equal(t, "connection refused", h.Services[0].Error)
}
