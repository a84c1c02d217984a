// Package service provides the business logic layer (use cases).
// ReportService turns a report request into a lease payment report: it
// validates the request, reads the store concurrently, runs the aggregator
// and caches the result.
package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/boddenberg/lease-report-bfa-go/internal/domain"
	"github.com/boddenberg/lease-report-bfa-go/internal/export"
	"github.com/boddenberg/lease-report-bfa-go/internal/infra/observability"
	"github.com/boddenberg/lease-report-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/lease-report-bfa-go/internal/port"
	"github.com/boddenberg/lease-report-bfa-go/internal/report"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/report")

var filterValidator = newValidator()

// newValidator reports fields by their JSON name so errors match the API.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// DefaultMaxMonths caps the report period when ReportConfig leaves it unset.
const DefaultMaxMonths = 12

// ReportConfig tunes ReportService.
type ReportConfig struct {
	MaxMonths      int
	MaxConcurrency int
	// StoreName labels store error metrics and health output.
	StoreName string
}

// pinger is implemented by caches with a remote backend.
type pinger interface {
	Ping(ctx context.Context) error
}

// ReportService builds lease payment reports from a ReportSource.
type ReportService struct {
	store    port.ReportSource
	cache    port.Cache[*domain.LeasePaymentReport]
	builder  *report.Builder
	bulkhead *resilience.Bulkhead
	cfg      ReportConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportService creates the report service with all dependencies injected.
func NewReportService(
	store port.ReportSource,
	cache port.Cache[*domain.LeasePaymentReport],
	cfg ReportConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ReportService {
	if cfg.MaxMonths <= 0 {
		cfg.MaxMonths = DefaultMaxMonths
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 10
	}
	if cfg.StoreName == "" {
		cfg.StoreName = "store"
	}
	return &ReportService{
		store:    store,
		cache:    cache,
		builder:  report.NewBuilder(logger),
		bulkhead: resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// GetLeasePaymentReport returns the report for filter, served from cache
// when an identical request was built recently.
func (s *ReportService) GetLeasePaymentReport(ctx context.Context, filter domain.ReportFilter) (*domain.LeasePaymentReport, error) {
	ctx, span := tracer.Start(ctx, "ReportService.GetLeasePaymentReport")
	defer span.End()

	rep, err := s.report(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrReport(observability.FormatJSON)
	return rep, nil
}

// ExportLeasePaymentReport returns the report for filter as an .xlsx workbook.
func (s *ReportService) ExportLeasePaymentReport(ctx context.Context, filter domain.ReportFilter) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "ReportService.ExportLeasePaymentReport")
	defer span.End()

	rep, err := s.report(ctx, filter)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := export.WriteXLSX(rep)
	s.metrics.RecordBuildDuration("export_xlsx", time.Since(start))
	if err != nil {
		s.logger.Error("xlsx export failed", zap.String("report_id", rep.ID), zap.Error(err))
		return nil, fmt.Errorf("xlsx export: %w", err)
	}
	s.metrics.IncrReport(observability.FormatXLSX)
	return data, nil
}

func (s *ReportService) report(ctx context.Context, filter domain.ReportFilter) (*domain.LeasePaymentReport, error) {
	// Bail out early if the caller already cancelled.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startMonth, err := s.validate(ctx, filter)
	if err != nil {
		return nil, err
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("organization.id", filter.OrganizationID),
		attribute.String("report.start_month", filter.StartMonth),
		attribute.Int("report.month_count", filter.MonthCount),
	)

	key := cacheKey(filter)
	if cached, ok := s.cache.Get(key); ok && cached != nil {
		s.metrics.IncrCacheHit("report")
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	s.metrics.IncrCacheMiss("report")

	if err := s.bulkhead.Acquire(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &domain.ErrTimeout{Operation: "waiting for report slot"}
	}
	defer s.bulkhead.Release()

	start := time.Now()
	defer func() {
		s.metrics.RecordBuildDuration("build_report", time.Since(start))
	}()

	in, err := s.fetch(ctx, filter.Scope())
	if err != nil {
		return nil, err
	}

	rep := s.builder.Build(in, report.Options{
		StartMonth: startMonth,
		MonthCount: filter.MonthCount,
		FloorID:    filter.FloorID,
		PropertyID: filter.PropertyID,
	})
	rep.ID = uuid.NewString()
	rep.GeneratedAt = s.now().UTC()

	s.metrics.RecordReportSize(len(rep.Floors), rep.UnitCount(), rep.TenantCount())
	s.logger.Info("lease payment report built",
		zap.String("report_id", rep.ID),
		zap.String("organization_id", filter.OrganizationID),
		zap.String("period", rep.Period.StartMonth.String()+".."+rep.Period.EndMonth.String()),
		zap.Int("floors", len(rep.Floors)),
		zap.Int("tenants", rep.TenantCount()),
		zap.Duration("elapsed", time.Since(start)),
	)

	s.cache.Set(key, rep)
	return rep, nil
}

// fetch reads floors, units and leases concurrently, then the billings of the
// returned leases.
func (s *ReportService) fetch(ctx context.Context, scope domain.ReportScope) (report.Input, error) {
	var in report.Input

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		floors, err := s.store.ListFloors(gCtx, scope)
		if err != nil {
			return s.storeError("floors", err)
		}
		in.Floors = floors
		return nil
	})

	g.Go(func() error {
		units, err := s.store.ListRentalUnits(gCtx, scope)
		if err != nil {
			return s.storeError("rental units", err)
		}
		in.RentalUnits = units
		return nil
	})

	g.Go(func() error {
		leases, err := s.store.ListLeases(gCtx, scope)
		if err != nil {
			return s.storeError("leases", err)
		}
		in.Leases = leases
		return nil
	})

	if err := g.Wait(); err != nil {
		return report.Input{}, err
	}

	if len(in.Leases) == 0 {
		return in, nil
	}

	ids := make([]string, 0, len(in.Leases))
	for _, l := range in.Leases {
		ids = append(ids, l.ID)
	}
	billings, err := s.store.ListBillings(ctx, ids)
	if err != nil {
		return report.Input{}, s.storeError("billings", err)
	}
	in.Billings = billings
	return in, nil
}

func (s *ReportService) storeError(what string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	s.logger.Error("failed to fetch "+what,
		zap.String("store", s.cfg.StoreName),
		zap.Error(err),
	)
	s.metrics.IncrStoreError(s.cfg.StoreName)
	return fmt.Errorf("%s fetch: %w", what, err)
}

// validate checks filter and returns its parsed start month.
func (s *ReportService) validate(ctx context.Context, filter domain.ReportFilter) (domain.Month, error) {
	if err := filterValidator.StructCtx(ctx, filter); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.Month{}, validationError(verrs[0], s.cfg.MaxMonths)
		}
		return domain.Month{}, &domain.ErrValidation{Field: "request", Message: err.Error()}
	}

	if err := filter.Scope().CheckOrganization(); err != nil {
		return domain.Month{}, err
	}

	m, err := domain.ParseMonth(filter.StartMonth)
	if err != nil {
		return domain.Month{}, &domain.ErrValidation{Field: "startMonth", Message: "must be a month in YYYY-MM format"}
	}
	if filter.MonthCount > s.cfg.MaxMonths {
		return domain.Month{}, &domain.ErrValidation{
			Field:   "monthCount",
			Message: fmt.Sprintf("must be between 1 and %d", s.cfg.MaxMonths),
		}
	}
	return m, nil
}

func validationError(fe validator.FieldError, maxMonths int) error {
	field := fe.Field()
	switch field {
	case "startMonth":
		return &domain.ErrValidation{Field: field, Message: "must be a month in YYYY-MM format"}
	case "monthCount":
		return &domain.ErrValidation{Field: field, Message: fmt.Sprintf("must be between 1 and %d", maxMonths)}
	case "floorId", "propertyId":
		return &domain.ErrValidation{Field: field, Message: "must be a UUID"}
	}
	return &domain.ErrValidation{Field: field, Message: fmt.Sprintf("failed on '%s'", fe.Tag())}
}

// cacheKey identifies a report request. The organization is part of the key
// so tenants of the service never see each other's reports.
func cacheKey(f domain.ReportFilter) string {
	return fmt.Sprintf("report:%s:%s:%d:%s:%s:%t",
		f.OrganizationID, f.StartMonth, f.MonthCount, f.PropertyID, f.FloorID, f.IncludeInactive)
}

// Health pings the store (and a remote cache, when configured).
func (s *ReportService) Health(ctx context.Context) *domain.HealthStatus {
	ctx, span := tracer.Start(ctx, "ReportService.Health")
	defer span.End()

	status := &domain.HealthStatus{Status: "healthy"}
	status.Services = append(status.Services, check(ctx, s.cfg.StoreName, s.store.Ping))
	if p, ok := s.cache.(pinger); ok {
		status.Services = append(status.Services, check(ctx, "cache", p.Ping))
	}

	for _, svc := range status.Services {
		if svc.Status == "up" {
			continue
		}
		if svc.Name == s.cfg.StoreName {
			status.Status = "unhealthy"
			break
		}
		status.Status = "degraded"
	}
	return status
}

func check(ctx context.Context, name string, ping func(context.Context) error) domain.ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	h := domain.ServiceHealth{
		Name:        name,
		Status:      "up",
		LatencyMs:   time.Since(start).Milliseconds(),
		LastChecked: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		h.Status = "down"
		h.Error = err.Error()
	}
	return h
}
