// Package config handles loading and validating obdlog configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The input and output locations are fixed by convention
// (~/Downloads/obd2.csv and ./LogData.db) and are not part of the
// configuration. The file only tunes the database, logging and the optional
// MQTT and InfluxDB exports. A missing file means built-in defaults.
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if errors.Is(err, fs.ErrNotExist) {
//	    cfg, err = config.Default()
//	}
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
