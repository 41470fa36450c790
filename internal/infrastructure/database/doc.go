// Package database provides SQLite connectivity for obdlog.
//
// This package manages:
//   - The connection to the local LogData.db file
//   - Bootstrapping the schema from embedded SQL files
//   - Connection pool settings suited to SQLite's single writer
//
// There is no migration history. Schema files are idempotent
// (CREATE ... IF NOT EXISTS) and all of them run on every start, so a new
// database is created and an existing one is left untouched.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: "LogData.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.EnsureSchema(ctx); err != nil {
//	    return err
//	}
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
package database
