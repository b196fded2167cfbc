package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smith-xyz/golang-accel-profiler/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		full, err := cmd.Flags().GetBool("full")
		if err != nil {
			return fmt.Errorf("failed to get full flag: %w", err)
		}
		if full {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersionString())
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionWithCommit())
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("full", false, "include build time, Go version and platform")
}
