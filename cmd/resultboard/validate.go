package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/resultboard/config"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file",
		Long: `Validate a resultboard configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  resultboard validate -c config.yaml`,
		RunE: runValidate,
	}

	cmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	bus := cfg.Bus.Driver
	if cfg.Bus.Driver == config.DriverNATS {
		bus = fmt.Sprintf("%s (%s)", cfg.Bus.Driver, cfg.Bus.URL)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:     %d\n", cfg.Port)
	fmt.Fprintf(out, "  Log:      %s/%s\n", cfg.Log.Level, cfg.Log.Format)
	fmt.Fprintf(out, "  Bus:      %s\n", bus)
	fmt.Fprintf(out, "  Subject:  %s\n", cfg.Bus.Subject)
	fmt.Fprintf(out, "  Metrics:  %t\n", cfg.Metrics.Enabled)
	return nil
}
