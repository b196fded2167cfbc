package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/smith-xyz/golang-accel-profiler/pkg/config"
	"github.com/smith-xyz/golang-accel-profiler/pkg/output"
	"github.com/smith-xyz/golang-accel-profiler/pkg/utils"
	"github.com/smith-xyz/golang-accel-profiler/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   version.ToolName,
	Short: "Static accelerator-suitability profiler for Go programs",
	Long: `accelprof builds SSA for a Go program and reports, per function, its
instruction counts, input data footprint, loop trip counts and call edges.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.Version = version.GetVersionWithCommit()

	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(callgraphCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize text output (auto|on|off)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("config", "", "path to a TOML config file (default: embedded config or ./"+config.LocalConfigName+")")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// globals holds the persistent flags shared by every command.
type globals struct {
	verbose    bool
	colorMode  string
	configPath string
}

func readGlobals(cmd *cobra.Command) (globals, error) {
	var g globals
	var err error
	flags := cmd.Root().PersistentFlags()
	if g.verbose, err = flags.GetBool("verbose"); err != nil {
		return g, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	if g.colorMode, err = flags.GetString("color"); err != nil {
		return g, fmt.Errorf("failed to get color flag: %w", err)
	}
	if g.configPath, err = flags.GetString("config"); err != nil {
		return g, fmt.Errorf("failed to get config flag: %w", err)
	}
	switch g.colorMode {
	case "auto", "on", "off":
	default:
		return g, fmt.Errorf("unsupported color mode %q (want auto, on or off)", g.colorMode)
	}
	return g, nil
}

// loadConfig reads the config named by --config, or the default one.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig()
	}
	return config.LoadFromFile(path)
}

// newLogger writes to stderr so stdout stays free for reports.
func (g globals) newLogger() *slog.Logger {
	return utils.NewLogger(os.Stderr, g.verbose)
}

func (g globals) useColor() bool {
	return output.UseColor(g.colorMode, os.Stdout)
}
