package obd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NoDataToken marks a cell with no reading for that signal at that time.
const NoDataToken = "NODATA"

// Record is one reading of one signal at one timestamp.
//
// Records are write-once. The ID is random and carries no meaning.
type Record struct {
	ID    uuid.UUID       `json:"id"`
	Time  time.Time       `json:"time"`
	Name  string          `json:"name"`
	Type  MeasurementType `json:"measurement_type"`
	Value float64         `json:"value"`
}

// NewRecord builds a Record with a fresh ID.
func NewRecord(ts time.Time, name string, t MeasurementType, value float64) Record {
	return Record{
		ID:    uuid.New(),
		Time:  ts,
		Name:  name,
		Type:  t,
		Value: value,
	}
}

// Validate checks the fields the log_data table requires.
func (r Record) Validate() error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("%w: id is required", ErrInvalidRecord)
	}
	if r.Time.IsZero() {
		return fmt.Errorf("%w: time is required", ErrInvalidRecord)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: measurement type %d out of range", ErrInvalidRecord, int(r.Type))
	}
	return nil
}

// Column is a classified data column from the header line.
type Column struct {
	// Header is the raw header text.
	Header string

	// Name is the display name with the unit annotation removed.
	Name string

	// Type is the measurement type selected by the annotation.
	Type MeasurementType
}

// Statistics summarises a parse.
type Statistics struct {
	// Rows is the number of data lines read.
	Rows int

	// Records is the number of records produced.
	Records int

	// NoDataCells is the number of cells skipped for holding NODATA.
	NoDataCells int

	// ByType counts records per measurement type.
	ByType map[MeasurementType]int
}

// ParseResult is the output of parsing one log file.
type ParseResult struct {
	SourceFile string
	ParsedAt   time.Time

	// Banner is the first line of the file, kept verbatim.
	Banner string

	// Columns holds the data columns; index 0 maps to field 1.
	Columns []Column

	Records    []Record
	Statistics Statistics
}
