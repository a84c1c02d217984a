// Package app assembles the report service from configuration. Both the
// HTTP server and the CLI start from here.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/lease-report-bfa-go/internal/config"
	"github.com/boddenberg/lease-report-bfa-go/internal/domain"
	"github.com/boddenberg/lease-report-bfa-go/internal/infra/cache"
	"github.com/boddenberg/lease-report-bfa-go/internal/infra/observability"
	"github.com/boddenberg/lease-report-bfa-go/internal/infra/postgres"
	"github.com/boddenberg/lease-report-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/lease-report-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/lease-report-bfa-go/internal/port"
	"github.com/boddenberg/lease-report-bfa-go/internal/service"

	"go.uber.org/zap"
)

// Reports is a wired report service plus the resources it holds open.
type Reports struct {
	Service *service.ReportService
	closers []io.Closer
}

// Close releases database pools and cache connections.
func (r *Reports) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i].Close()
	}
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// NewReports builds the store, cache and service selected by cfg.
func NewReports(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) (*Reports, error) {
	out := &Reports{}

	store, err := newStore(ctx, cfg, out, logger)
	if err != nil {
		out.Close()
		return nil, err
	}

	reportCache := newCache(cfg, out, logger)

	out.Service = service.NewReportService(store, reportCache, service.ReportConfig{
		MaxMonths:      cfg.ReportMaxMonths,
		MaxConcurrency: cfg.MaxConcurrency,
		StoreName:      cfg.DataBackend,
	}, metrics, logger)

	return out, nil
}

func newStore(ctx context.Context, cfg *config.Config, out *Reports, logger *zap.Logger) (port.ReportSource, error) {
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	switch cfg.DataBackend {
	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		out.closers = append(out.closers, db)
		logger.Info("using Postgres as data backend", zap.Int("max_conns", cfg.DBMaxConns))
		return postgres.NewReportStore(db, logger), nil

	case config.BackendSupabase:
		cb := resilience.NewCircuitBreaker("supabase", resilience.BreakerSettings{
			IsSuccessful: func(err error) bool {
				return err == nil || supabase.IsClientError(err)
			},
		})

		apiKey, key := cfg.SupabaseAnonKey, cfg.SupabaseServiceKey
		if key == "" {
			key = apiKey
		}
		if apiKey == "" {
			apiKey = key
		}
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		return supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			apiKey,
			key,
			cb,
			resilienceCfg,
			logger,
		), nil
	}
	return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
}

func newCache(cfg *config.Config, out *Reports, logger *zap.Logger) port.Cache[*domain.LeasePaymentReport] {
	if cfg.CacheBackend == config.CacheRedis {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		out.closers = append(out.closers, client)
		logger.Info("using Redis report cache", zap.String("addr", cfg.RedisAddr))
		return cache.NewRedis[*domain.LeasePaymentReport](client, "lease-report:", cfg.CacheTTL, logger)
	}

	mem := cache.New[*domain.LeasePaymentReport](cfg.CacheTTL)
	out.closers = append(out.closers, closerFunc(mem.Close))
	return mem
}
