package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/tools/go/ssa"

	"github.com/smith-xyz/golang-accel-profiler/pkg/callgraph"
	"github.com/smith-xyz/golang-accel-profiler/pkg/utils"
)

var callgraphCmd = &cobra.Command{
	Use:   "callgraph [flags] [packages]",
	Short: "Write the profiled call graph, or function CFGs, as Graphviz DOT",
	RunE:  runCallgraph,
}

func init() {
	callgraphCmd.Flags().String("package", "", "comma-separated package patterns (in addition to positional arguments)")
	callgraphCmd.Flags().String("dir", ".", "directory the packages are resolved from")
	callgraphCmd.Flags().String("order", "", "visit order (source|bottomup); overrides the config")
	callgraphCmd.Flags().String("algo", "", "call graph algorithm (rta|cha|static|vta); overrides the config")
	callgraphCmd.Flags().String("arch", "", "GOARCH used for type sizes; overrides the config")
	callgraphCmd.Flags().Bool("all-packages", false, "also include dependencies outside the root module")
	callgraphCmd.Flags().Bool("tests", false, "include test packages")
	callgraphCmd.Flags().String("cfg", "", "comma-separated function names; write their control flow graphs instead")
	callgraphCmd.Flags().StringP("output", "o", "", "write DOT to this file instead of stdout")
}

func runCallgraph(cmd *cobra.Command, args []string) error {
	g, err := readGlobals(cmd)
	if err != nil {
		return err
	}
	pf, err := readProfileFlags(cmd, args)
	if err != nil {
		return err
	}
	cfgFlag, err := cmd.Flags().GetString("cfg")
	if err != nil {
		return fmt.Errorf("failed to get cfg flag: %w", err)
	}
	outPath, err := cmd.Flags().GetString("output")
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

	logger := g.newLogger()
	result, err := run(logger, cfg, pf.runOptions(cfg, g.verbose))
	if err != nil {
		return err
	}

	var dot string
	if names := utils.ParseCommaDelimited(cfgFlag); len(names) > 0 {
		fns := selectFunctions(result.Ordering.Functions, names)
		if len(fns) == 0 {
			return fmt.Errorf("no profiled function matches %v", names)
		}
		dot = callgraph.CFGDOT(fns, result.Report.PackageInfo.Name)
	} else {
		dot = callgraph.DOT(result.Report, result.Report.PackageInfo.Name)
	}

	return writeDOT(dot, outPath)
}

// selectFunctions keeps the functions whose qualified or short name is in
// names, in their original order.
func selectFunctions(fns []*ssa.Function, names []string) []*ssa.Function {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []*ssa.Function
	for _, fn := range fns {
		if want[fn.String()] || want[fn.Name()] {
			out = append(out, fn)
		}
	}
	return out
}

func writeDOT(dot, path string) error {
	if path == "" {
		_, err := io.WriteString(os.Stdout, dot)
		return err
	}
	file, err := utils.SafeCreateFile(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	if _, err := io.WriteString(file, dot); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
