// Package influxdb exports logged signals to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched point writing, and health monitoring.
//
// # Purpose
//
// The log database is the system of record. When enabled, every imported
// reading is also written as a point so it can be graphed next to other
// vehicle or home telemetry:
//
//	obd_signal,name=Vehicle\ speed,measurement_type=mph,unit=MPH value=55.5 <record time>
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "garage",
//	    Bucket:  "obd",
//	}
//
//	client, err := influxdb.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSignal("Engine RPM", "rpm", "RPM", 812, ts)
//	if err := client.Flush(); err != nil {
//	    // one or more batches were rejected
//	}
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Writes are non-blocking. Batch errors reported by the server are kept by
// the client and returned from the next Flush, wrapped in ErrWriteFailed.
// Connection and health check errors are returned directly.
package influxdb
