package obd

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Publisher is the subset of the MQTT client used by MQTTSink.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// PublishRetained publishes with the client's configured QoS.
	PublishRetained(topic string, payload []byte) error
}

// TopicBuilder names the topics MQTTSink publishes to.
type TopicBuilder interface {
	ImportSummary() string
	Signal(slug string) string
}

// MQTTSink publishes an import summary and, optionally, every record.
type MQTTSink struct {
	publisher      Publisher
	topics         TopicBuilder
	qos            byte
	publishRecords bool
}

// NewMQTTSink creates a sink publishing through p. Records go out at qos;
// the retained summary uses the publisher's own QoS. When publishRecords is
// false only the summary is sent.
func NewMQTTSink(p Publisher, topics TopicBuilder, qos byte, publishRecords bool) *MQTTSink {
	return &MQTTSink{
		publisher:      p,
		topics:         topics,
		qos:            qos,
		publishRecords: publishRecords,
	}
}

// Name implements Sink.
func (s *MQTTSink) Name() string { return "mqtt" }

// summaryPayload is the retained JSON body on the summary topic.
type summaryPayload struct {
	*ImportSummary
	ByType     map[string]int `json:"by_type"`
	DurationMS int64          `json:"duration_ms"`
}

// recordPayload is the JSON body on a signal topic.
type recordPayload struct {
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	Name            string    `json:"name"`
	MeasurementType string    `json:"measurement_type"`
	Unit            string    `json:"unit,omitempty"`
	Value           float64   `json:"value"`
}

// Export publishes records first, then the retained summary, so a
// subscriber that sees the summary has already been sent every record.
func (s *MQTTSink) Export(ctx context.Context, summary *ImportSummary, records []Record) error {
	if s.publishRecords {
		for i, rec := range records {
			if i%contextCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("publishing records: %w", err)
				}
			}

			payload, err := json.Marshal(recordPayload{
				ID:              rec.ID.String(),
				Time:            rec.Time.UTC(),
				Name:            rec.Name,
				MeasurementType: rec.Type.String(),
				Unit:            rec.Type.Unit(),
				Value:           rec.Value,
			})
			if err != nil {
				return fmt.Errorf("encoding record %s: %w", rec.ID, err)
			}
			if err := s.publisher.Publish(s.topics.Signal(Slug(rec.Name)), payload, s.qos, false); err != nil {
				return fmt.Errorf("publishing record %s: %w", rec.ID, err)
			}
		}
	}

	payload, err := json.Marshal(summaryPayload{
		ImportSummary: summary,
		ByType:        summary.TypeCounts(),
		DurationMS:    summary.Duration.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := s.publisher.PublishRetained(s.topics.ImportSummary(), payload); err != nil {
		return fmt.Errorf("publishing summary: %w", err)
	}
	return nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug converts a signal name into a single topic level, e.g.
// "Vehicle speed" becomes "vehicle-speed". Names with no letters or digits
// become "signal".
func Slug(name string) string {
	slug := strings.ToLower(name)
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if slug == "" {
		slug = "signal"
	}
	return slug
}

// PointWriter is the subset of the InfluxDB client used by InfluxSink.
type PointWriter interface {
	WriteSignal(name, measurementType, unit string, value float64, timestamp time.Time)

	// Flush blocks until queued points are sent and reports rejected batches.
	Flush() error
}

// InfluxSink writes every record as a time-series point at its own
// timestamp.
type InfluxSink struct {
	writer PointWriter
}

// NewInfluxSink creates a sink writing through w.
func NewInfluxSink(w PointWriter) *InfluxSink {
	return &InfluxSink{writer: w}
}

// Name implements Sink.
func (s *InfluxSink) Name() string { return "influxdb" }

// Export writes all records and blocks until they are flushed.
func (s *InfluxSink) Export(ctx context.Context, _ *ImportSummary, records []Record) error {
	for i, rec := range records {
		if i%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("writing points: %w", err)
			}
		}
		s.writer.WriteSignal(rec.Name, rec.Type.String(), rec.Type.Unit(), rec.Value, rec.Time)
	}

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("writing points: %w", err)
	}
	return nil
}
