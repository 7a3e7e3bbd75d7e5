// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
)

// Reporter writes layout reports to an output.
type Reporter interface {
	// Write adds one scene's report. Safe for concurrent use.
	Write(r *Report) error
	// Close finalizes the output and closes any underlying file.
	Close() error
}

// Options tunes a reporter.
type Options struct {
	Pretty bool
	Logger *zap.Logger
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format ("json" or "xml") writing to
// outputPath, or to stdout when the path is empty or "stdout".
func New(format, outputPath string, opts Options) (Reporter, error) {
	switch format {
	case "json", "xml":
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return NewWriter(format, writer, opts)
}

// NewWriter creates a reporter that takes ownership of w.
func NewWriter(format string, w io.WriteCloser, opts Options) (Reporter, error) {
	switch format {
	case "json":
		return NewJSONReporter(w, opts), nil
	case "xml":
		return NewXMLReporter(w, opts), nil
	}
	return nil, fmt.Errorf("unsupported output format: %s", format)
}

func loggerOr(l *zap.Logger, name string) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.Named(name)
}

// finish closes w after encoding and reports the first failure.
func finish(logger *zap.Logger, w io.Closer, encodeErr error) error {
	closeErr := w.Close()
	if encodeErr != nil {
		logger.Error("Failed to encode report", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode report: %w", encodeErr)
	}
	if closeErr != nil {
		logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}

// sortReports orders by scene; writers run concurrently.
func sortReports(reports []*Report) {
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].Scene < reports[j].Scene })
}
