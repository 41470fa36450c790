// Package mqtt publishes import results to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Topic naming under a configurable prefix
//
// # Architecture
//
// MQTT is an optional secondary output. The log database is always written
// first; the export sink then publishes an import summary and, if enabled,
// one message per record so dashboards and home automation can follow along.
//
//	obdlog → log database
//	       ↘ MQTT broker → subscribers
//
// # Topics
//
// All topics sit under cfg.TopicPrefix (default "obdlog"):
//
//	obdlog/status              online/offline, retained, also the LWT
//	obdlog/import/summary      one per import, retained
//	obdlog/signal/{slug}       one per record, not retained
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) for any broker off the local host
//   - Credentials come from config or OBDLOG_MQTT_USERNAME/PASSWORD
//   - Payloads are plain JSON; they are not encrypted beyond TLS transport
package mqtt
