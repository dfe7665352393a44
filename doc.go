// Package dittobridge bridges an Eclipse Ditto digital-twin registry onto a
// NATS message bus.
//
// # What it does
//
// The bridge holds a long-lived subscription to the registry's server-sent
// events change feed, filtered to a configured set of namespaces. Every
// change event carrying a thing payload is decoded, classified against a
// registry of known feature kinds, and republished as typed JSON messages on
// per-thing NATS subjects:
//
//	/org_smartcity_streetlight_001/metadata
//	/org_smartcity_streetlight_001/sensor/temperature
//	/org_smartcity_streetlight_001/alerts
//
// Subjects are derived from thing IDs by a fixed, idempotent sanitization,
// so consumers can predict the subject for any thing/feature pair.
//
// # Package layout
//
//   - ditto: the bridge core (sanitizer, publisher registry, event decoder,
//     feature router, stream supervisor)
//   - natsclient: NATS connection management with reconnect handling
//   - config: JSON file + environment configuration
//   - metric: Prometheus registry and the metrics/health HTTP endpoint
//   - health: per-component health tracking and aggregation
//   - errors: error classification (transient, invalid, fatal)
//   - cmd/dittobridge: the binary
//
// # Failure model
//
// The bridge is designed to run unattended. Feed outages trigger fixed-delay
// reconnects with unbounded retries; malformed payloads are dropped without
// affecting the stream; a decoding or publish failure abandons the current
// thing only. The process exits on signal, never on feed failure.
package dittobridge
