// internal/reporting/json_reporter.go
package reporting

import (
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter buffers reports and writes them as one JSON array on Close,
// ordered by scene.
type JSONReporter struct {
	writer  io.WriteCloser
	logger  *zap.Logger
	pretty  bool
	mu      sync.Mutex
	reports []*Report
}

func NewJSONReporter(w io.WriteCloser, opts Options) *JSONReporter {
	return &JSONReporter{
		writer:  w,
		logger:  loggerOr(opts.Logger, "json_reporter"),
		pretty:  opts.Pretty,
		reports: []*Report{},
	}
}

func (r *JSONReporter) Write(rep *Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("Finalizing JSON report", zap.Int("scenes", len(r.reports)))
	sortReports(r.reports)
	enc := json.NewEncoder(r.writer)
	if r.pretty {
		enc.SetIndent("", "  ")
	}
	return finish(r.logger, r.writer, enc.Encode(r.reports))
}
