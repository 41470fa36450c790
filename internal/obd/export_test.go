package obd

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// fakePublisher records publishes and can fail on a topic substring.
type fakePublisher struct {
	messages []published
	failOn   string
}

func (p *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if p.failOn != "" && strings.Contains(topic, p.failOn) {
		return errors.New("publish refused")
	}
	p.messages = append(p.messages, published{topic, payload, qos, retained})
	return nil
}

func (p *fakePublisher) PublishRetained(topic string, payload []byte) error {
	return p.Publish(topic, payload, 2, true)
}

// fakeTopics mirrors the broker topic layout under "obdlog".
type fakeTopics struct{}

func (fakeTopics) ImportSummary() string     { return "obdlog/import/summary" }
func (fakeTopics) Signal(slug string) string { return "obdlog/signal/" + slug }

type writtenPoint struct {
	name, mtype, unit string
	value             float64
	ts                time.Time
}

// fakePointWriter records points and flushes.
type fakePointWriter struct {
	points   []writtenPoint
	flushes  int
	flushErr error
}

func (w *fakePointWriter) WriteSignal(name, measurementType, unit string, value float64, ts time.Time) {
	w.points = append(w.points, writtenPoint{name, measurementType, unit, value, ts})
}

func (w *fakePointWriter) Flush() error {
	w.flushes++
	return w.flushErr
}

func testSummary() *ImportSummary {
	return &ImportSummary{
		SourceFile: "obd2.csv",
		ImportedAt: baseTime,
		Rows:       1,
		Records:    2,
		Columns:    2,
		ByType:     map[MeasurementType]int{Mph: 1, Unknown: 1},
		Duration:   1500 * time.Millisecond,
	}
}

func testRecords() []Record {
	return []Record{
		NewRecord(baseTime, "Vehicle speed", Mph, 55.5),
		NewRecord(baseTime, "Custom PID", Unknown, 7),
	}
}

func TestMQTTSink_SummaryOnly(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewMQTTSink(pub, fakeTopics{}, 1, false)

	if err := sink.Export(context.Background(), testSummary(), testRecords()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	// Summary uses the publisher's retained QoS, not the record QoS
	if msg.topic != "obdlog/import/summary" || !msg.retained || msg.qos != 2 {
		t.Errorf("summary message = %+v", msg)
	}

	var body map[string]any
	if err := json.Unmarshal(msg.payload, &body); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if body["source_file"] != "obd2.csv" {
		t.Errorf("source_file = %v", body["source_file"])
	}
	if body["records"] != float64(2) {
		t.Errorf("records = %v, want 2", body["records"])
	}
	if body["duration_ms"] != float64(1500) {
		t.Errorf("duration_ms = %v, want 1500", body["duration_ms"])
	}
	byType, ok := body["by_type"].(map[string]any)
	if !ok || byType["mph"] != float64(1) || byType["unknown"] != float64(1) {
		t.Errorf("by_type = %v", body["by_type"])
	}
}

func TestMQTTSink_PublishRecords(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewMQTTSink(pub, fakeTopics{}, 0, true)

	records := testRecords()
	if err := sink.Export(context.Background(), testSummary(), records); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if len(pub.messages) != 3 {
		t.Fatalf("published %d messages, want 3", len(pub.messages))
	}

	first := pub.messages[0]
	if first.topic != "obdlog/signal/vehicle-speed" || first.retained {
		t.Errorf("first record message = %+v", first)
	}

	var payload recordPayload
	if err := json.Unmarshal(first.payload, &payload); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if payload.ID != records[0].ID.String() || payload.MeasurementType != "mph" ||
		payload.Unit != "MPH" || payload.Value != 55.5 {
		t.Errorf("record payload = %+v", payload)
	}

	if pub.messages[1].topic != "obdlog/signal/custom-pid" {
		t.Errorf("second topic = %q", pub.messages[1].topic)
	}

	// Summary goes last
	if pub.messages[2].topic != "obdlog/import/summary" {
		t.Errorf("last topic = %q, want summary", pub.messages[2].topic)
	}
}

func TestMQTTSink_PublishError(t *testing.T) {
	pub := &fakePublisher{failOn: "signal"}
	sink := NewMQTTSink(pub, fakeTopics{}, 1, true)

	if err := sink.Export(context.Background(), testSummary(), testRecords()); err == nil {
		t.Fatal("Export() expected error, got nil")
	}
	if len(pub.messages) != 0 {
		t.Errorf("summary published despite record failure")
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Vehicle speed", "vehicle-speed"},
		{"Engine RPM", "engine-rpm"},
		{"Fuel trim (bank 1)", "fuel-trim-bank-1"},
		{"  O2 / sensor #2  ", "o2-sensor-2"},
		{"+#/", "signal"},
		{"", "signal"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Slug(tt.input); got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestInfluxSink_Export(t *testing.T) {
	w := &fakePointWriter{}
	sink := NewInfluxSink(w)

	if sink.Name() != "influxdb" {
		t.Errorf("Name() = %q", sink.Name())
	}

	if err := sink.Export(context.Background(), testSummary(), testRecords()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if len(w.points) != 2 {
		t.Fatalf("wrote %d points, want 2", len(w.points))
	}
	if w.flushes != 1 {
		t.Errorf("flushes = %d, want 1", w.flushes)
	}

	p := w.points[0]
	if p.name != "Vehicle speed" || p.mtype != "mph" || p.unit != "MPH" || p.value != 55.5 || !p.ts.Equal(baseTime) {
		t.Errorf("point = %+v", p)
	}
	if w.points[1].unit != "" {
		t.Errorf("unknown-type unit = %q, want empty", w.points[1].unit)
	}
}

func TestInfluxSink_FlushError(t *testing.T) {
	rejected := errors.New("bucket not found")
	w := &fakePointWriter{flushErr: rejected}
	sink := NewInfluxSink(w)

	if err := sink.Export(context.Background(), testSummary(), testRecords()); !errors.Is(err, rejected) {
		t.Fatalf("Export() error = %v, want flush error", err)
	}
	if w.flushes != 1 {
		t.Errorf("flushes = %d, want 1 before checking errors", w.flushes)
	}
}

func TestInfluxSink_CancelledContext(t *testing.T) {
	w := &fakePointWriter{}
	sink := NewInfluxSink(w)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sink.Export(ctx, testSummary(), testRecords()); !errors.Is(err, context.Canceled) {
		t.Errorf("Export() error = %v, want context.Canceled", err)
	}
	if len(w.points) != 0 {
		t.Errorf("wrote %d points after cancel", len(w.points))
	}
}
