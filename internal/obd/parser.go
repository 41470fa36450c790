package obd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Parser limits.
const (
	// initialLineBuffer is the starting scanner buffer size.
	initialLineBuffer = 64 * 1024

	// MaxLineSize is the longest line accepted (1MB). Exports with hundreds
	// of PIDs stay well under this.
	MaxLineSize = 1 << 20

	// fieldSeparator splits header and data lines. Quoting is not supported.
	fieldSeparator = ","
)

// timestampLayouts are tried in order against a row's first field.
// Zone-less layouts are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"1/2/2006 15:04:05.999999999",
	"1/2/2006 3:04:05.999999999 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"2006-01-02",
	"1/2/2006",
}

// Parser reads OBDLink CSV exports into Records.
//
// A Parser holds no per-file state and may be reused.
type Parser struct {
	// now supplies ParsedAt; replaced in tests.
	now func() time.Time
}

// NewParser creates a parser.
func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// ParseFile opens path and parses it. The file is closed before returning.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	f, err := os.Open(path) // #nosec G304 -- path is the fixed export location
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	return p.Parse(f, filepath.Base(path))
}

// Parse reads a complete export from r.
//
// The first line is kept as the banner and otherwise ignored. The second
// line supplies the column headers. Every later line is a data row whose
// first field is the timestamp shared by all readings on that row.
//
// Returns a *ParseError wrapping one of the package sentinels on the first
// malformed line; no partial result is returned.
func (p *Parser) Parse(r io.Reader, source string) (*ParseResult, error) {
	// Strip a UTF-8 BOM and transcode UTF-16 exports that carry one.
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 0, initialLineBuffer), MaxLineSize)

	now := p.now
	if now == nil {
		now = time.Now
	}

	result := &ParseResult{
		SourceFile: source,
		ParsedAt:   now().UTC(),
		Statistics: Statistics{ByType: make(map[MeasurementType]int)},
	}

	lineNo := 0
	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		lineNo++
		return strings.TrimSuffix(scanner.Text(), "\r"), true
	}

	banner, ok := next()
	if !ok {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading banner: %w", err)
		}
		return nil, &ParseError{Line: 1, Column: -1, Err: ErrMissingBanner}
	}
	result.Banner = banner

	headerLine, ok := next()
	if !ok {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
		return nil, &ParseError{Line: 2, Column: -1, Err: ErrMissingHeader}
	}
	headers := strings.Split(headerLine, fieldSeparator)
	result.Columns = classifyColumns(headers)

	for {
		line, ok := next()
		if !ok {
			break
		}

		records, noData, err := parseRow(line, lineNo, headers, result.Columns)
		if err != nil {
			return nil, err
		}

		result.Statistics.Rows++
		result.Statistics.NoDataCells += noData
		for _, rec := range records {
			result.Statistics.ByType[rec.Type]++
		}
		result.Records = append(result.Records, records...)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading line %d: %w", lineNo+1, err)
	}

	result.Statistics.Records = len(result.Records)
	return result, nil
}

// classifyColumns classifies every header after the timestamp column.
func classifyColumns(headers []string) []Column {
	if len(headers) <= 1 {
		return nil
	}

	columns := make([]Column, 0, len(headers)-1)
	for _, h := range headers[1:] {
		name, t := Classify(h)
		columns = append(columns, Column{Header: h, Name: name, Type: t})
	}
	return columns
}

// parseRow converts one data line into records. It returns the number of
// NODATA cells skipped alongside the records.
func parseRow(line string, lineNo int, headers []string, columns []Column) ([]Record, int, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != len(headers) {
		return nil, 0, &ParseError{
			Line:   lineNo,
			Column: -1,
			Err:    fmt.Errorf("%w: got %d fields, header has %d", ErrColumnMismatch, len(fields), len(headers)),
		}
	}

	ts, err := parseTimestamp(fields[0])
	if err != nil {
		return nil, 0, &ParseError{Line: lineNo, Column: 0, Field: fields[0], Err: err}
	}

	records := make([]Record, 0, len(columns))
	noData := 0
	for i := 1; i < len(fields); i++ {
		field := fields[i]
		if field == NoDataToken {
			noData++
			continue
		}

		value, err := parseValue(field)
		if err != nil {
			return nil, 0, &ParseError{Line: lineNo, Column: i, Field: field, Err: err}
		}

		col := columns[i-1]
		records = append(records, NewRecord(ts, col.Name, col.Type, value))
	}

	return records, noData, nil
}

// parseTimestamp tries each layout in timestampLayouts.
func parseTimestamp(field string) (time.Time, error) {
	s := strings.TrimSpace(field)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			if ts.IsZero() {
				return time.Time{}, fmt.Errorf("%w: zero time", ErrInvalidTimestamp)
			}
			return ts, nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}

// parseValue parses a reading as float64. NaN is rejected because the
// value column is NOT NULL and SQLite stores NaN as NULL. Infinities have
// no JSON encoding so they are rejected too.
func parseValue(field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: out of range", ErrInvalidValue)
		}
		return 0, ErrInvalidValue
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: NaN", ErrInvalidValue)
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: infinite", ErrInvalidValue)
	}
	return v, nil
}
