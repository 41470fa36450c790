package mqtt

import "strings"

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "obdlog"

// Topics builds topic names under a prefix.
//
//	topics := mqtt.NewTopics("garage/obd")
//	topics.Signal("vehicle-speed")
//	// Returns: "garage/obd/signal/vehicle-speed"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix. Leading and trailing slashes are
// removed; an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the normalised prefix.
func (t Topics) Prefix() string {
	return t.prefix
}

// Status returns the retained online/offline topic.
//
// Example: obdlog/status
func (t Topics) Status() string {
	return t.prefix + "/status"
}

// ImportSummary returns the retained topic for the latest import summary.
//
// Example: obdlog/import/summary
func (t Topics) ImportSummary() string {
	return t.prefix + "/import/summary"
}

// Signal returns the topic for readings of one signal. slug must already be
// topic-safe (no "/", "+" or "#").
//
// Example: obdlog/signal/engine-rpm
func (t Topics) Signal(slug string) string {
	return t.prefix + "/signal/" + slug
}
