package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"

	"github.com/smith-xyz/golang-accel-profiler/pkg/callgraph"
	"github.com/smith-xyz/golang-accel-profiler/pkg/models"
	"github.com/smith-xyz/golang-accel-profiler/pkg/utils"
)

// Output formats
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatMsgpack = "msgpack"
	FormatText    = "text"
	FormatDOT     = "dot"
)

// ErrUnsupportedFormat is returned for format names the writer does not know.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Formats lists every supported format.
func Formats() []string {
	return []string{FormatJSON, FormatYAML, FormatMsgpack, FormatText, FormatDOT}
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch format {
	case FormatYAML:
		return "yaml"
	case FormatMsgpack:
		return "msgpack"
	case FormatText:
		return "txt"
	case FormatDOT:
		return "dot"
	default:
		return "json"
	}
}

// Target is one destination of a report. An empty Path means stdout.
type Target struct {
	Format string
	Path   string
}

// Writer renders reports.
type Writer struct {
	logger   *slog.Logger
	useColor bool
}

// NewWriter creates a writer. Colors only apply to the text format.
func NewWriter(logger *slog.Logger, useColor bool) *Writer {
	return &Writer{logger: logger, useColor: useColor}
}

// Encode writes report to w in the given format.
func (wr *Writer) Encode(w io.Writer, report *models.Report, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		if err := encoder.Encode(report); err != nil {
			return err
		}
		return encoder.Close()
	case FormatMsgpack:
		encoder := msgpack.NewEncoder(w)
		return encoder.Encode(report)
	case FormatText:
		return renderText(w, report, wr.useColor)
	case FormatDOT:
		_, err := io.WriteString(w, callgraph.DOT(report, report.PackageInfo.Name))
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Write sends report to one target.
func (wr *Writer) Write(report *models.Report, target Target) error {
	if target.Path == "" {
		return wr.Encode(os.Stdout, report, target.Format)
	}

	file, err := utils.SafeCreateFile(target.Path)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", target.Path, err)
	}

	if err := wr.Encode(file, report, target.Format); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s report to %s: %w", target.Format, target.Path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", target.Path, err)
	}

	wr.logger.Info("Report written", "format", target.Format, "path", target.Path)
	return nil
}

// WriteAll writes every target concurrently. At most one target may use
// stdout.
func (wr *Writer) WriteAll(ctx context.Context, report *models.Report, targets []Target) error {
	stdout := 0
	for _, t := range targets {
		if t.Path == "" {
			stdout++
		}
		if !isSupported(t.Format) {
			return fmt.Errorf("%w: %s", ErrUnsupportedFormat, t.Format)
		}
	}
	if stdout > 1 {
		return fmt.Errorf("%d formats would share stdout; give each an output file", stdout)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return wr.Write(report, t)
		})
	}
	return g.Wait()
}

func isSupported(format string) bool {
	for _, f := range Formats() {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}
