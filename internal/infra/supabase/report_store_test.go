package supabase_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/lease-report-bfa-go/internal/domain"
	"github.com/boddenberg/lease-report-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/lease-report-bfa-go/internal/infra/supabase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}
	cb := resilience.NewCircuitBreaker("supabase-test", resilience.BreakerSettings{IsSuccessful: func(err error) bool {
		return err == nil || supabase.IsClientError(err)
	}})
	return supabase.NewClient(srv.Client(), srv.URL, "anon", "service", cb, cfg, zap.NewNop())
}

func TestClient_ListFloors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/floors", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "eq.org-1", q.Get("properties.organization_id"))
		assert.Equal(t, "eq.prop-1", q.Get("property_id"))
		assert.Empty(t, q.Get("id"), "empty floor filter is not sent")
		fmt.Fprint(w, `[{"id":"f1","property_id":"prop-1","floor_number":2,"wing":" B ","status":"ACTIVE"},
			{"id":"f2","property_id":"prop-1","floor_number":1,"wing":null}]`)
	})

	floors, err := c.ListFloors(context.Background(), domain.ReportScope{OrganizationID: "org-1", PropertyID: "prop-1"})
	require.NoError(t, err)
	require.Len(t, floors, 2)
	assert.Equal(t, "B", floors[0].Wing)
	assert.Equal(t, "", floors[1].Wing)
	assert.Equal(t, 2, floors[0].FloorNumber)
}

func TestClient_ListRentalUnits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.f1", r.URL.Query().Get("floor_id"))
		fmt.Fprint(w, `[{"id":"u1","name":"","number":101,"capacity":2,"floor_id":"f1","property_id":"p1","properties":{"name":"Sunrise"}}]`)
	})

	units, err := c.ListRentalUnits(context.Background(), domain.ReportScope{OrganizationID: "org-1", FloorID: "f1"})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "Sunrise", units[0].PropertyName)
	assert.Equal(t, 101, units[0].Number)
}

func TestClient_ListLeases(t *testing.T) {
	var statusFilter atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("select"), "tenant:tenants(")
		statusFilter.Store(r.URL.Query().Get("status"))
		fmt.Fprint(w, `[{"id":"l1","name":"Lease 1","rental_unit_id":"u1","start_date":"2024-01-01","end_date":"2024-12-31T00:00:00Z",
			"rent_amount":"1200.50","security_deposit":2400,"status":"active",
			"lease_tenants":[{"id":"lt1","lease_id":"l1","tenant_id":"t1","tenant":{"id":"t1","first_name":"Alice","last_name":"Reyes"}},
			                 {"id":"lt2","lease_id":"l1","tenant_id":"t2","tenant":null}]}]`)
	})

	leases, err := c.ListLeases(context.Background(), domain.ReportScope{OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Equal(t, "in.(ACTIVE)", statusFilter.Load())
	require.Len(t, leases, 1)

	l := leases[0]
	assert.Equal(t, domain.LeaseActive, l.Status)
	assert.Equal(t, "1200.5", l.RentAmount.String())
	assert.Equal(t, 2024, l.StartDate.Year())
	assert.Equal(t, time.December, l.EndDate.Month())
	require.Len(t, l.Tenants, 2)
	assert.Equal(t, "Alice Reyes", l.Tenants[0].Tenant.FullName())
	assert.Nil(t, l.Tenants[1].Tenant)

	_, err = c.ListLeases(context.Background(), domain.ReportScope{OrganizationID: "org-1", IncludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, "", statusFilter.Load(), "no status filter when inactive leases are included")
}

func TestClient_ListBillings_ChunksAndNormalizes(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		filter := r.URL.Query().Get("lease_id")
		assert.True(t, strings.HasPrefix(filter, "in.("))
		ids := strings.Split(strings.TrimSuffix(strings.TrimPrefix(filter, "in.("), ")"), ",")
		assert.LessOrEqual(t, len(ids), 100)
		fmt.Fprintf(w, `[{"id":"b-%s","lease_id":"%s","type":" utility ","amount":100,"paid_amount":null,"status":"paid","due_date":"not-a-date"}]`, ids[0], ids[0])
	})

	ids := make([]string, 150)
	for i := range ids {
		ids[i] = fmt.Sprintf("l%d", i)
	}

	billings, err := c.ListBillings(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, billings, 2)
	assert.Equal(t, domain.BillingUtility, billings[0].Type)
	assert.Equal(t, domain.BillingPaid, billings[0].Status)
	assert.False(t, billings[0].PaidAmount.Valid)
	assert.True(t, billings[0].DueDate.IsZero(), "unparseable due date becomes zero")
}

func TestClient_ListBillings_TimestampDueDates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id":"b1","lease_id":"l1","type":"RENT","amount":100,"status":"PAID","due_date":"2024-06-15T00:00:00"},
			{"id":"b2","lease_id":"l1","type":"RENT","amount":100,"status":"PAID","due_date":"2024-06-15 00:00:00+00"},
			{"id":"b3","lease_id":"l1","type":"RENT","amount":100,"status":"PAID","due_date":"2024-06-15T10:00:00.123456"}]`)
	})

	billings, err := c.ListBillings(context.Background(), []string{"l1"})
	require.NoError(t, err)
	require.Len(t, billings, 3)
	for _, b := range billings {
		due, ok := b.DueMonth()
		require.True(t, ok, b.ID)
		assert.Equal(t, "2024-06", due.String(), b.ID)
	}
}

func TestClient_ListBillings_NoLeases(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	billings, err := c.ListBillings(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, billings)
	assert.Empty(t, billings)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `[]`)
	})

	floors, err := c.ListFloors(context.Background(), domain.ReportScope{OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Empty(t, floors)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"bad filter"}`)
	})

	_, err := c.ListFloors(context.Background(), domain.ReportScope{OrganizationID: "org-1"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var ext *domain.ErrExternalService
	require.True(t, errors.As(err, &ext))
	assert.True(t, supabase.IsClientError(err))
}

func TestClient_CircuitOpen(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	var err error
	for i := 0; i < 10; i++ {
		err = c.Ping(context.Background())
	}
	var open *domain.ErrCircuitOpen
	assert.True(t, errors.As(err, &open), "got %v", err)
}

func TestClient_RequiresOrganizationScope(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `[]`)
	})

	ctx := context.Background()
	_, errFloors := c.ListFloors(ctx, domain.ReportScope{})
	_, errUnits := c.ListRentalUnits(ctx, domain.ReportScope{PropertyID: "p1"})
	_, errLeases := c.ListLeases(ctx, domain.ReportScope{})

	var forbidden *domain.ErrForbidden
	assert.ErrorAs(t, errFloors, &forbidden)
	assert.ErrorAs(t, errUnits, &forbidden)
	assert.ErrorAs(t, errLeases, &forbidden)
	assert.Equal(t, int32(0), calls.Load())

	_, err := c.ListFloors(ctx, domain.ReportScope{AllOrganizations: true})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
