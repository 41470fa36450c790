package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// ErrNoSchema is returned by EnsureSchema when SchemaFS holds no .sql
// files, usually because the schema package was never imported.
var ErrNoSchema = errors.New("database: no schema files registered")

// SchemaFS should be set by the main package to embed schema files.
//
// Usage in a schema package:
//
//	//go:embed *.sql
//	var schemaFS embed.FS
//
//	func init() {
//	    database.SchemaFS = schemaFS
//	    database.SchemaDir = "."
//	}
var SchemaFS embed.FS

// SchemaDir is the directory within SchemaFS containing schema files.
var SchemaDir = "schema"

// SchemaFile is one embedded schema script.
type SchemaFile struct {
	// Name is the file name, e.g. "001_log_data.sql".
	Name string

	// SQL is the file content.
	SQL string
}

// EnsureSchema runs every embedded schema file, in name order, inside one
// transaction.
//
// Files must be idempotent. Running EnsureSchema on an existing database
// changes nothing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	files, err := loadSchemaFiles()
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w in %s", ErrNoSchema, SchemaDir)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	for _, f := range files {
		if _, err := tx.ExecContext(ctx, f.SQL); err != nil {
			return fmt.Errorf("applying %s: %w", f.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}
	return nil
}

// loadSchemaFiles reads all .sql files from SchemaFS, sorted by name.
func loadSchemaFiles() ([]SchemaFile, error) {
	var empty embed.FS
	if SchemaFS == empty {
		return nil, nil
	}

	entries, err := fs.ReadDir(SchemaFS, SchemaDir)
	if err != nil {
		return nil, fmt.Errorf("reading schema directory %s: %w", SchemaDir, err)
	}

	var files []SchemaFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		// embed.FS paths always use forward slashes
		content, err := fs.ReadFile(SchemaFS, path.Join(SchemaDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		files = append(files, SchemaFile{Name: entry.Name(), SQL: string(content)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}
