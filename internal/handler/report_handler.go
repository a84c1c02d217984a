package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/boddenberg/lease-report-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /v1/reports/lease-payments
func leasePaymentReportHandler(reports Reports, cacheTTL time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/lease-payments")
		defer span.End()

		filter, ok := scopedFilter(w, r, logger)
		if !ok {
			return
		}
		span.SetAttributes(attribute.String("organization.id", filter.OrganizationID))

		rep, err := reports.GetLeasePaymentReport(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if cacheTTL > 0 {
			w.Header().Set("Cache-Control", "private, max-age="+strconv.Itoa(int(cacheTTL.Seconds())))
		} else {
			w.Header().Set("Cache-Control", "no-store")
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// GET /v1/reports/lease-payments/export
func leasePaymentExportHandler(reports Reports, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/lease-payments/export")
		defer span.End()

		filter, ok := scopedFilter(w, r, logger)
		if !ok {
			return
		}

		data, err := reports.ExportLeasePaymentReport(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		name := fmt.Sprintf("lease-payments-%s-%dm.xlsx", filter.StartMonth, filter.MonthCount)
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			logger.Warn("export: client went away", zap.Error(err))
		}
	}
}

// scopedFilter parses the query and pins the organization to the caller's.
// Only a super admin without an organization reads across organizations.
func scopedFilter(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (domain.ReportFilter, bool) {
	filter, err := parseReportFilter(r)
	if err != nil {
		handleServiceError(w, err, logger)
		return filter, false
	}

	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return filter, false
	}
	filter.OrganizationID = p.OrganizationID
	filter.AllOrganizations = p.AllOrganizations()
	return filter, true
}
