package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/halolight/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a HaloLight configuration file without starting the server.

This command parses the YAML, expands environment variables, applies
HALOLIGHT_* overrides and validates all fields. It's useful for CI/CD
pipelines or pre-deployment checks. No storage backend is contacted.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  halolight validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cmd.Context(), configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	secret := "random (sessions reset on restart)"
	if cfg.Auth.TokenSecret != "" {
		secret = "configured"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Title:         %s\n", cfg.Title)
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	fmt.Fprintf(out, "  Storage:       %s\n", cfg.Storage.Backend)
	fmt.Fprintf(out, "  Token secret:  %s\n", secret)
	fmt.Fprintf(out, "  Notify:        every %s, p=%.2f\n", cfg.Notify.Interval.Duration(), *cfg.Notify.Probability)

	return nil
}
