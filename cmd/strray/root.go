package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "strray",
	Short: "Multi-agent task delegation engine",
	Long: `StringRay delegates units of work to named agent capabilities.

Given an operation, a description, and context signals (affected files,
change volume, dependency count, risk level), it estimates complexity,
picks an execution strategy, selects agents, and runs the work:
directly for simple requests, as a concurrent fan-out for complex ones,
or through a dependency-aware orchestrator for enterprise-scale batches.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(delegateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
