// Package main is the entry point for the halolight CLI.
//
// HaloLight can be run either as a library (SDK) or as a standalone binary
// configured with YAML and HALOLIGHT_* environment variables. This CLI
// provides the standalone binary approach.
//
// Usage:
//
//	halolight serve -c config.yaml    # Start the console
//	halolight validate -c config.yaml # Validate configuration
//	halolight version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "halolight",
	Short: "An admin console backend with a mock API",
	Long: `HaloLight serves an admin console: sign-in, persisted preferences, tabs,
a dashboard layout, a mock content API and simulated live notifications,
over a JSON API with Server-Sent Events and WebSocket streams.

Quick start:
  1. Run: halolight serve
  2. Open http://localhost:8080 in your browser
  3. Sign in with admin@halolight.h7ml.cn / 123456

Example config:
  title: Ops Console
  port: 8080
  auth:
    token_secret: ${HALOLIGHT_SECRET}
  storage:
    backend: file
    path: ./halolight-state.json`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this halolight binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "halolight %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
