// obdlog imports an OBDLink CSV log into a local SQLite database.
//
// Each run reads $HOME/Downloads/obd2.csv, classifies every column by the
// unit annotation in its header, and appends one row per reading to the
// log_data table in ./LogData.db. Readings can optionally be forwarded to
// an MQTT broker and to InfluxDB (see configs/config.yaml).
//
// The input and output locations are fixed; only ambient behaviour
// (logging, exports) is configurable.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/nerrad567/obdlog/schema"

	"github.com/nerrad567/obdlog/internal/infrastructure/config"
	"github.com/nerrad567/obdlog/internal/infrastructure/database"
	"github.com/nerrad567/obdlog/internal/infrastructure/influxdb"
	"github.com/nerrad567/obdlog/internal/infrastructure/logging"
	"github.com/nerrad567/obdlog/internal/infrastructure/mqtt"
	"github.com/nerrad567/obdlog/internal/obd"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Fixed locations.
const (
	// inputDir and inputFile are joined onto the user's home directory.
	inputDir  = "Downloads"
	inputFile = "obd2.csv"

	// databaseFile is created in the working directory.
	databaseFile = "LogData.db"

	// defaultConfigPath is optional; defaults apply when it is absent.
	defaultConfigPath = "configs/config.yaml"
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()

	configPath := getConfigPath()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting obdlog",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
	)

	inputPath, dbPath, err := resolvePaths()
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, database.Config{
		Path:        dbPath,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("checking database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("preparing database: %w", err)
	}
	log.Debug("database ready", "path", db.Path(), "wal", cfg.Database.WALMode)

	importer := obd.NewImporter(obd.NewParser(), obd.NewSQLiteRepository(db.DB))
	importer.SetLogger(log.Component("importer"))

	closeSinks := addSinks(ctx, cfg, importer, log)
	defer closeSinks()

	summary, err := importer.ImportFile(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("importing %s: %w", inputPath, err)
	}

	log.Info("import complete",
		"file", inputPath,
		"database", db.Path(),
		"rows", summary.Rows,
		"records", summary.Records,
		"nodata_cells", summary.NoDataCells,
		"by_type", summary.TypeCounts(),
		"duration", summary.Duration,
		"exported", summary.Exported,
		"failed_sinks", summary.FailedSinks,
	)
	return nil
}

// getConfigPath returns the configuration file path.
// Uses OBDLOG_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("OBDLOG_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig loads path, falling back to built-in defaults when the file
// does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default()
	}
	return cfg, err
}

// resolvePaths returns the fixed input and database locations.
func resolvePaths() (inputPath, dbPath string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("locating home directory: %w", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", "", fmt.Errorf("locating working directory: %w", err)
	}

	return filepath.Join(home, inputDir, inputFile), filepath.Join(wd, databaseFile), nil
}

// addSinks connects the enabled exporters and registers them with the
// importer. An exporter that cannot connect, or fails its health check, is
// skipped with a warning; the local import still runs. The returned func
// closes every registered connection.
func addSinks(ctx context.Context, cfg *config.Config, importer *obd.Importer, log *logging.Logger) func() {
	var closers []func()

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT)
		if err == nil {
			if err = client.HealthCheck(ctx); err != nil {
				closeExporter(log, "mqtt", client.Close)
			}
		}
		if err != nil {
			log.Warn("mqtt export disabled", "error", err)
		} else {
			client.SetLogger(log.Component("mqtt"))
			importer.AddSink(obd.NewMQTTSink(client, client.Topics(), client.QoS(), cfg.MQTT.PublishRecords))
			closers = append(closers, func() { closeExporter(log, "mqtt", client.Close) })
			log.Info("mqtt export enabled",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"topic_prefix", client.Topics().Prefix(),
			)
		}
	}

	if cfg.InfluxDB.Enabled {
		client, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err == nil {
			if err = client.HealthCheck(ctx); err != nil {
				closeExporter(log, "influxdb", client.Close)
			}
		}
		if err != nil {
			log.Warn("influxdb export disabled", "error", err)
		} else {
			importer.AddSink(obd.NewInfluxSink(client))
			closers = append(closers, func() { closeExporter(log, "influxdb", client.Close) })
			log.Info("influxdb export enabled",
				"url", cfg.InfluxDB.URL,
				"bucket", cfg.InfluxDB.Bucket,
				"measurement", client.Measurement(),
			)
		}
	}

	return func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

// closeExporter closes one exporter connection, logging any error.
func closeExporter(log *logging.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Error("error closing exporter", "exporter", name, "error", err)
	}
}
