package main

import (
	"fmt"
	"os"

	"github.com/boddenberg/lease-report-bfa-go/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	_ = config.LoadDotEnv(".env")

	rootCmd := &cobra.Command{
		Use:           "leasereportctl",
		Short:         "Build lease payment reports from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		reportCmd(),
		exportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
