package obd

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Logger defines the logging interface used by the Importer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink receives records after they are stored locally.
//
// Sinks are optional secondary outputs. A failing sink is logged and
// recorded in the summary; it does not undo the local write.
type Sink interface {
	// Name identifies the sink in logs and summaries.
	Name() string

	// Export delivers the imported records.
	Export(ctx context.Context, summary *ImportSummary, records []Record) error
}

// ImportSummary describes one completed import.
type ImportSummary struct {
	SourceFile  string                  `json:"source_file"`
	ImportedAt  time.Time               `json:"imported_at"`
	Rows        int                     `json:"rows"`
	Records     int                     `json:"records"`
	NoDataCells int                     `json:"nodata_cells"`
	Columns     int                     `json:"columns"`
	ByType      map[MeasurementType]int `json:"-"`

	// Duration covers parsing and storing; sinks are not included.
	Duration time.Duration `json:"-"`

	Exported    []string `json:"exported,omitempty"`
	FailedSinks []string `json:"failed_sinks,omitempty"`
}

// TypeCounts returns ByType keyed by type tag, for logs and payloads.
func (s *ImportSummary) TypeCounts() map[string]int {
	counts := make(map[string]int, len(s.ByType))
	for t, n := range s.ByType {
		counts[t.String()] = n
	}
	return counts
}

// Importer parses a log export, stores every record, then hands the
// records to any configured sinks.
type Importer struct {
	parser *Parser
	repo   Repository
	sinks  []Sink
	logger Logger
}

// NewImporter creates an importer writing to repo.
func NewImporter(parser *Parser, repo Repository) *Importer {
	if parser == nil {
		parser = NewParser()
	}
	return &Importer{
		parser: parser,
		repo:   repo,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the importer.
func (i *Importer) SetLogger(logger Logger) {
	i.logger = logger
}

// AddSink registers a secondary output. Sinks run in registration order.
func (i *Importer) AddSink(sink Sink) {
	i.sinks = append(i.sinks, sink)
}

// ImportFile parses the file at path and imports it.
func (i *Importer) ImportFile(ctx context.Context, path string) (*ImportSummary, error) {
	start := time.Now()

	result, err := i.parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return i.store(ctx, result, start)
}

// Import parses a complete export from r and imports it.
func (i *Importer) Import(ctx context.Context, r io.Reader, source string) (*ImportSummary, error) {
	start := time.Now()

	result, err := i.parser.Parse(r, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}
	return i.store(ctx, result, start)
}

// store persists a parse result and runs the sinks.
func (i *Importer) store(ctx context.Context, result *ParseResult, start time.Time) (*ImportSummary, error) {
	i.logger.Info("log file parsed",
		"file", result.SourceFile,
		"rows", result.Statistics.Rows,
		"columns", len(result.Columns),
		"records", result.Statistics.Records,
		"nodata_cells", result.Statistics.NoDataCells,
	)
	for _, col := range result.Columns {
		if col.Type == Unknown {
			i.logger.Debug("column has no recognised unit", "header", col.Header)
		}
	}

	written, err := i.repo.InsertBatch(ctx, result.Records)
	if err != nil {
		return nil, fmt.Errorf("storing records: %w", err)
	}

	summary := &ImportSummary{
		SourceFile:  result.SourceFile,
		ImportedAt:  time.Now().UTC(),
		Rows:        result.Statistics.Rows,
		Records:     written,
		NoDataCells: result.Statistics.NoDataCells,
		Columns:     len(result.Columns),
		ByType:      result.Statistics.ByType,
		Duration:    time.Since(start),
	}

	for _, sink := range i.sinks {
		if err := sink.Export(ctx, summary, result.Records); err != nil {
			i.logger.Error("export failed", "sink", sink.Name(), "error", err)
			summary.FailedSinks = append(summary.FailedSinks, sink.Name())
			continue
		}
		summary.Exported = append(summary.Exported, sink.Name())
	}

	return summary, nil
}
