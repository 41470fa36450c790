package obd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// contextCheckInterval is how often, in rows, InsertBatch checks for
	// cancellation.
	contextCheckInterval = 500

	defaultListLimit = 100
	maxListLimit     = 10000

	// timeFormat is how record timestamps are stored in the time column.
	// Fixed width in UTC so that text order matches time order.
	timeFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

// Repository persists parsed records.
//
// Records are write-once; there is no update or delete path.
type Repository interface {
	// InsertBatch stores all records in a single transaction and returns
	// how many were written. On error nothing is written.
	InsertBatch(ctx context.Context, records []Record) (int, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int, error)

	// CountByType returns stored record counts per measurement type.
	CountByType(ctx context.Context) (map[MeasurementType]int, error)

	// ListByName returns records for one signal, oldest first.
	ListByName(ctx context.Context, name string, limit int) ([]Record, error)

	// ListByTime returns records with from <= time < to, oldest first.
	ListByTime(ctx context.Context, from, to time.Time) ([]Record, error)
}

// SQLiteRepository implements Repository over the log_data table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open SQLite connection.
// The log_data table must already exist (see database.EnsureSchema).
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// InsertBatch stores records in one transaction using one prepared
// statement.
//
// Every record is validated before the transaction starts, so a bad record
// never leaves a partial batch behind.
func (r *SQLiteRepository) InsertBatch(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO log_data (id, time, name, measurement_type, value)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // closed with the transaction

	for i, rec := range records {
		if i%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, fmt.Errorf("inserting records: %w", err)
			}
		}

		if _, err := stmt.ExecContext(ctx,
			rec.ID.String(),
			rec.Time.UTC().Format(timeFormat),
			rec.Name,
			int(rec.Type),
			rec.Value,
		); err != nil {
			return 0, fmt.Errorf("inserting record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing records: %w", err)
	}

	return len(records), nil
}

// Count returns the total number of stored records.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM log_data").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// CountByType returns record counts grouped by measurement type.
func (r *SQLiteRepository) CountByType(ctx context.Context) (map[MeasurementType]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT measurement_type, COUNT(*) FROM log_data GROUP BY measurement_type",
	)
	if err != nil {
		return nil, fmt.Errorf("counting records by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[MeasurementType]int)
	for rows.Next() {
		var t, n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("scanning type count: %w", err)
		}
		counts[MeasurementType(t)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating type counts: %w", err)
	}
	return counts, nil
}

// ListByName returns up to limit records for the named signal, oldest first.
// limit defaults to 100 and is capped at 10000.
func (r *SQLiteRepository) ListByName(ctx context.Context, name string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, time, name, measurement_type, value
		 FROM log_data
		 WHERE name = ?
		 ORDER BY time
		 LIMIT ?`,
		name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying records by name: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListByTime returns all records with from <= time < to, oldest first.
func (r *SQLiteRepository) ListByTime(ctx context.Context, from, to time.Time) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, time, name, measurement_type, value
		 FROM log_data
		 WHERE time >= ? AND time < ?
		 ORDER BY time, name`,
		from.UTC().Format(timeFormat),
		to.UTC().Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("querying records by time: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// scanRecords reads id, time, name, measurement_type, value rows.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			rec   Record
			id    string
			ts    string
			mtype int
		)
		if err := rows.Scan(&id, &ts, &rec.Name, &mtype, &rec.Value); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		parsedID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parsing record id %q: %w", id, err)
		}
		rec.ID = parsedID

		rec.Time, err = time.Parse(timeFormat, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing record time %q: %w", ts, err)
		}
		rec.Type = MeasurementType(mtype)

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}
