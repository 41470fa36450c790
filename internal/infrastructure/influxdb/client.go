package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/obdlog/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	// Batching defaults when config leaves them unset.
	defaultBatchSize     = 1000
	defaultFlushInterval = 1 // seconds

	defaultMeasurement = "obd_signal"

	// maxKeptErrors bounds how many batch errors are held between flushes.
	maxKeptErrors = 16
)

// Client writes logged signals to one InfluxDB bucket.
//
// Writes are non-blocking and batched by the library. Batch failures arrive
// asynchronously; the client keeps them until the next Flush, which reports
// them as one ErrWriteFailed.
type Client struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPI
	measurement string

	mu        sync.Mutex
	connected bool
	writeErrs []error
	dropped   int
}

// Connect creates a client for cfg and pings the server.
//
// Returns ErrDisabled when cfg.Enabled is false and ErrConnectionFailed when
// the ping fails or reports unhealthy. The ping is bounded by ctx and by
// defaultConnectTimeout, whichever is shorter.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	// #nosec G115 -- both values are positive here
	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(batchSize)).
		SetFlushInterval(uint(time.Duration(flushInterval) * time.Second / time.Millisecond))
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	measurement := cfg.Measurement
	if measurement == "" {
		measurement = defaultMeasurement
	}

	c := &Client{
		client:      client,
		writeAPI:    client.WriteAPI(cfg.Org, cfg.Bucket),
		measurement: measurement,
		connected:   true,
	}
	go c.collectErrors(c.writeAPI.Errors())

	return c, nil
}

// collectErrors keeps async batch errors for the next Flush.
func (c *Client) collectErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.mu.Lock()
		if len(c.writeErrs) < maxKeptErrors {
			c.writeErrs = append(c.writeErrs, err)
		} else {
			c.dropped++
		}
		c.mu.Unlock()
	}
}

// Measurement returns the measurement name signal points are written to.
func (c *Client) Measurement() string {
	return c.measurement
}

// Flush blocks until buffered points are sent, then reports any batch
// errors seen since the previous Flush. The returned error wraps
// ErrWriteFailed and the first server error. Flush after Close is a no-op.
func (c *Client) Flush() error {
	if !c.IsConnected() {
		return nil
	}
	c.writeAPI.Flush()
	return c.takeErrors()
}

// takeErrors returns and clears the kept batch errors.
func (c *Client) takeErrors() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.writeErrs) == 0 {
		return nil
	}
	n := len(c.writeErrs) + c.dropped
	first := c.writeErrs[0]
	c.writeErrs = nil
	c.dropped = 0

	return fmt.Errorf("%w: %d batch(es) rejected: %w", ErrWriteFailed, n, first)
}

// Close flushes pending points and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()

	if !wasConnected {
		return nil
	}

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}
	return nil
}

// IsConnected reports whether Close has not yet been called.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
