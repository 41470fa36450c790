package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/obdlog/internal/infrastructure/config"
	"github.com/nerrad567/obdlog/internal/infrastructure/database"
	"github.com/nerrad567/obdlog/internal/infrastructure/logging"
	"github.com/nerrad567/obdlog/internal/obd"
)

const testLog = `OBDLink log
Time,Vehicle speed (MPH),Engine RPM (RPM),Custom PID
2024-01-15 10:30:00,55.5,2100,7
2024-01-15 10:30:01,NODATA,2150,8
`

// setupWorkspace points HOME and the working directory at temp dirs and
// disables config file lookup. It returns the input and database paths.
func setupWorkspace(t *testing.T) (inputPath, dbPath string) {
	t.Helper()

	home := t.TempDir()
	work := t.TempDir()

	t.Setenv("HOME", home)
	t.Setenv("OBDLOG_CONFIG", filepath.Join(work, "absent.yaml"))
	t.Chdir(work)

	if err := os.MkdirAll(filepath.Join(home, inputDir), 0o755); err != nil {
		t.Fatalf("creating Downloads: %v", err)
	}
	return filepath.Join(home, inputDir, inputFile), filepath.Join(work, databaseFile)
}

func countRows(t *testing.T, dbPath string) int {
	t.Helper()

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("opening %s: %v", dbPath, err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM log_data").Scan(&n); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	return n
}

func TestRun_ImportsFixedPath(t *testing.T) {
	inputPath, dbPath := setupWorkspace(t)
	if err := os.WriteFile(inputPath, []byte(testLog), 0o600); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	// 2 rows x 3 columns - 1 NODATA
	if got := countRows(t, dbPath); got != 5 {
		t.Errorf("log_data rows = %d, want 5", got)
	}

	// Runs append
	if err := run(ctx); err != nil {
		t.Fatalf("second run() error = %v", err)
	}
	if got := countRows(t, dbPath); got != 10 {
		t.Errorf("log_data rows after second run = %d, want 10", got)
	}
}

func TestRun_MissingInput(t *testing.T) {
	setupWorkspace(t)

	err := run(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("run() error = %v, want os.ErrNotExist", err)
	}
}

func TestRun_MalformedInputPersistsNothing(t *testing.T) {
	inputPath, dbPath := setupWorkspace(t)
	bad := testLog + "2024-01-15 10:30:02,fast,2200,9\n"
	if err := os.WriteFile(inputPath, []byte(bad), 0o600); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	err := run(context.Background())
	if !errors.Is(err, obd.ErrInvalidValue) {
		t.Fatalf("run() error = %v, want ErrInvalidValue", err)
	}

	if got := countRows(t, dbPath); got != 0 {
		t.Errorf("log_data rows = %d after failed run, want 0", got)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	setupWorkspace(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("mqtt:\n  qos: 7\n"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("OBDLOG_CONFIG", configPath)

	if err := run(context.Background()); err == nil {
		t.Fatal("run() should fail with invalid config")
	}
}

func TestRun_UnreachableExportsStillImport(t *testing.T) {
	inputPath, dbPath := setupWorkspace(t)
	if err := os.WriteFile(inputPath, []byte(testLog), 0o600); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	t.Setenv("OBDLOG_INFLUXDB_ENABLED", "true")
	t.Setenv("OBDLOG_INFLUXDB_URL", "http://127.0.0.1:59999")
	t.Setenv("OBDLOG_INFLUXDB_TOKEN", "token")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "influxdb:\n  org: garage\n  bucket: obd\n"
	if err := os.WriteFile(configPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("OBDLOG_CONFIG", configPath)

	if err := run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := countRows(t, dbPath); got != 5 {
		t.Errorf("log_data rows = %d, want 5", got)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("OBDLOG_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("OBDLOG_CONFIG", "/etc/obdlog.yaml")
	if got := getConfigPath(); got != "/etc/obdlog.yaml" {
		t.Errorf("getConfigPath() = %q, want %q", got, "/etc/obdlog.yaml")
	}
}

func TestResolvePaths(t *testing.T) {
	inputPath, dbPath := setupWorkspace(t)

	gotInput, gotDB, err := resolvePaths()
	if err != nil {
		t.Fatalf("resolvePaths() error = %v", err)
	}
	if gotInput != inputPath {
		t.Errorf("input = %q, want %q", gotInput, inputPath)
	}

	// Compare resolved paths; temp dirs may sit behind symlinks
	wantDB, _ := filepath.EvalSymlinks(filepath.Dir(dbPath))
	gotDir, _ := filepath.EvalSymlinks(filepath.Dir(gotDB))
	if gotDir != wantDB || filepath.Base(gotDB) != databaseFile {
		t.Errorf("database = %q, want %q", gotDB, dbPath)
	}
}

func TestAddSinks_SkipsUnreachableExporter(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config.Default() error = %v", err)
	}
	cfg.InfluxDB.Enabled = true
	cfg.InfluxDB.URL = "http://127.0.0.1:59999"
	cfg.InfluxDB.Token = "token"
	cfg.InfluxDB.Org = "garage"
	cfg.InfluxDB.Bucket = "obd"

	db, err := database.Open(t.Context(), database.Config{Path: filepath.Join(t.TempDir(), databaseFile)})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup
	if err := db.EnsureSchema(t.Context()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	importer := obd.NewImporter(nil, obd.NewSQLiteRepository(db.DB))
	closeSinks := addSinks(t.Context(), cfg, importer, logging.Default())
	defer closeSinks()

	summary, err := importer.Import(t.Context(), strings.NewReader(testLog), inputFile)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(summary.Exported) != 0 || len(summary.FailedSinks) != 0 {
		t.Errorf("exported = %v, failed = %v, want no sinks registered", summary.Exported, summary.FailedSinks)
	}
	if summary.Records != 5 {
		t.Errorf("Records = %d, want 5", summary.Records)
	}
}
