package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smith-xyz/golang-accel-profiler/pkg/config"
	"github.com/smith-xyz/golang-accel-profiler/pkg/output"
	"github.com/smith-xyz/golang-accel-profiler/pkg/utils"
)

var profileCmd = &cobra.Command{
	Use:   "profile [flags] [packages]",
	Short: "Profile the functions of a Go program",
	Long: `Load the packages (default ./...), build SSA and write one report entry per
function of the root module: instruction counts, input footprint, loops and
call edges.`,
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().String("package", "", "comma-separated package patterns (in addition to positional arguments)")
	profileCmd.Flags().String("dir", ".", "directory the packages are resolved from")
	profileCmd.Flags().StringSlice("format", nil, "output formats ("+strings.Join(output.Formats(), "|")+"); repeat or separate with commas")
	profileCmd.Flags().String("order", "", "visit order (source|bottomup); overrides the config")
	profileCmd.Flags().String("algo", "", "call graph algorithm (rta|cha|static|vta); overrides the config")
	profileCmd.Flags().String("arch", "", "GOARCH used for type sizes; overrides the config")
	profileCmd.Flags().BoolP("output", "o", false, "write each format to <module>.accelprof.<ext> instead of stdout")
	profileCmd.Flags().Bool("all-packages", false, "also profile dependencies outside the root module")
	profileCmd.Flags().Bool("tests", false, "include test packages")
}

// profileFlags are the command line settings of profile and callgraph.
type profileFlags struct {
	patterns    []string
	dir         string
	order       string
	algo        string
	arch        string
	allPackages bool
	tests       bool
}

func readProfileFlags(cmd *cobra.Command, args []string) (profileFlags, error) {
	var pf profileFlags
	var err error
	flags := cmd.Flags()

	pkgFlag, err := flags.GetString("package")
	if err != nil {
		return pf, fmt.Errorf("failed to get package flag: %w", err)
	}
	pf.patterns = append(utils.TrimSpaceSlice(args), utils.ParseCommaDelimited(pkgFlag)...)

	if pf.dir, err = flags.GetString("dir"); err != nil {
		return pf, fmt.Errorf("failed to get dir flag: %w", err)
	}
	if err := checkDir(pf.dir); err != nil {
		return pf, err
	}
	if pf.order, err = flags.GetString("order"); err != nil {
		return pf, fmt.Errorf("failed to get order flag: %w", err)
	}
	if pf.algo, err = flags.GetString("algo"); err != nil {
		return pf, fmt.Errorf("failed to get algo flag: %w", err)
	}
	if pf.arch, err = flags.GetString("arch"); err != nil {
		return pf, fmt.Errorf("failed to get arch flag: %w", err)
	}
	if pf.allPackages, err = flags.GetBool("all-packages"); err != nil {
		return pf, fmt.Errorf("failed to get all-packages flag: %w", err)
	}
	if pf.tests, err = flags.GetBool("tests"); err != nil {
		return pf, fmt.Errorf("failed to get tests flag: %w", err)
	}
	return pf, nil
}

// checkDir rejects a --dir that is not an existing directory before any
// package loading starts.
func checkDir(dir string) error {
	if !utils.DirectoryExists(dir) {
		return fmt.Errorf("directory %q does not exist", dir)
	}
	return nil
}

// apply overrides the config with the flags that were set and validates
// the result.
func (pf profileFlags) apply(cfg *config.Config) error {
	if pf.order != "" {
		cfg.Output.Order = pf.order
	}
	if pf.algo != "" {
		cfg.Output.Algorithm = pf.algo
	}
	if pf.arch != "" {
		cfg.Footprint.TargetArch = pf.arch
	}
	return cfg.Validate()
}

func (pf profileFlags) runOptions(cfg *config.Config, verbose bool) runOptions {
	return runOptions{
		Analysis: analysisConfig(cfg, pf.allPackages, verbose),
		Patterns: pf.patterns,
		Dir:      pf.dir,
		Tests:    pf.tests,
	}
}

func runProfile(cmd *cobra.Command, args []string) error {
	g, err := readGlobals(cmd)
	if err != nil {
		return err
	}
	pf, err := readProfileFlags(cmd, args)
	if err != nil {
		return err
	}
	formats, err := cmd.Flags().GetStringSlice("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	toFiles, err := cmd.Flags().GetBool("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}

	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return err
	}
	if err := pf.apply(cfg); err != nil {
		return err
	}

	targets, err := outputTargets(formatsOrDefault(utils.TrimSpaceSlice(formats), cfg), pf.dir, toFiles)
	if err != nil {
		return err
	}

	logger := g.newLogger()
	result, err := run(logger, cfg, pf.runOptions(cfg, g.verbose))
	if err != nil {
		return err
	}

	writer := output.NewWriter(logger, g.useColor())
	return writer.WriteAll(cmd.Context(), result.Report, targets)
}

// outputTargets maps each format to stdout, or to its own file when
// toFiles is set.
func outputTargets(formats []string, dir string, toFiles bool) ([]output.Target, error) {
	targets := make([]output.Target, 0, len(formats))
	for _, f := range formats {
		t := output.Target{Format: f}
		if toFiles {
			name, err := utils.GenerateOutputFilename(dir, output.Extension(f))
			if err != nil {
				return nil, err
			}
			t.Path = name
		}
		targets = append(targets, t)
	}
	return targets, nil
}
