package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/boddenberg/lease-report-bfa-go/internal/app"
	"github.com/boddenberg/lease-report-bfa-go/internal/config"
	"github.com/boddenberg/lease-report-bfa-go/internal/domain"
	"github.com/boddenberg/lease-report-bfa-go/internal/infra/observability"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the lease payment report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			return withReports(cmd, func(ctx context.Context, reports *app.Reports) error {
				rep, err := reports.Service.GetLeasePaymentReport(ctx, filter)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			})
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the lease payment report as an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = fmt.Sprintf("lease-payments-%s-%dm.xlsx", filter.StartMonth, filter.MonthCount)
			}
			return withReports(cmd, func(ctx context.Context, reports *app.Reports) error {
				data, err := reports.Service.ExportLeasePaymentReport(ctx, filter)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
				return nil
			})
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "output file (default lease-payments-<start>-<n>m.xlsx)")
	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("start", "", "first month of the report (YYYY-MM)")
	cmd.Flags().Int("months", 1, "number of months")
	cmd.Flags().String("org", "", "organization id")
	cmd.Flags().Bool("all-orgs", false, "report across every organization")
	cmd.Flags().String("property", "", "restrict to one property id")
	cmd.Flags().String("floor", "", "restrict to one floor id")
	cmd.Flags().Bool("include-inactive", false, "include leases that are not ACTIVE")
	_ = cmd.MarkFlagRequired("start")
}

func filterFromFlags(cmd *cobra.Command) (domain.ReportFilter, error) {
	var f domain.ReportFilter
	var err error
	if f.StartMonth, err = cmd.Flags().GetString("start"); err != nil {
		return f, err
	}
	if f.MonthCount, err = cmd.Flags().GetInt("months"); err != nil {
		return f, err
	}
	if f.OrganizationID, err = cmd.Flags().GetString("org"); err != nil {
		return f, err
	}
	if f.PropertyID, err = cmd.Flags().GetString("property"); err != nil {
		return f, err
	}
	if f.FloorID, err = cmd.Flags().GetString("floor"); err != nil {
		return f, err
	}
	if f.IncludeInactive, err = cmd.Flags().GetBool("include-inactive"); err != nil {
		return f, err
	}
	if f.AllOrganizations, err = cmd.Flags().GetBool("all-orgs"); err != nil {
		return f, err
	}
	if (f.OrganizationID == "") == !f.AllOrganizations {
		return f, fmt.Errorf("pass exactly one of --org or --all-orgs")
	}
	return f, nil
}

// withReports wires the service from the environment, runs fn and releases
// every connection afterwards.
func withReports(cmd *cobra.Command, fn func(ctx context.Context, reports *app.Reports) error) error {
	level, _ := cmd.Flags().GetString("log-level")
	logger := observability.NewLogger(level)
	defer logger.Sync()

	cfg := config.Load()
	// The CLI has no HTTP surface, so no token secret is needed.
	cfg.AuthDisabled = true
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reports, err := app.NewReports(ctx, cfg, observability.NewMetrics(), logger)
	if err != nil {
		return err
	}
	defer reports.Close()

	logger.Debug("running report command", zap.String("command", cmd.Name()), zap.String("backend", cfg.DataBackend))
	return fn(ctx, reports)
}
