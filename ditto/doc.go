// Package ditto implements the bridge core: a resilient subscription to an
// Eclipse Ditto digital-twin change feed, republished onto NATS subjects.
//
// # Architecture
//
// The package is organized around five collaborators, leaves first:
//
//   - SanitizeTopic: pure mapping from thing identity + feature suffix to a
//     valid bus topic name.
//   - PublisherRegistry: lazy cache of per-topic publishers, created on first
//     use and reused for the process lifetime.
//   - Router: classifies a decoded thing payload against a registry of known
//     feature kinds and publishes one typed message per recognized feature.
//   - EventDecoder: reassembles server-sent event blocks from the raw byte
//     stream of a text/event-stream response.
//   - Supervisor: owns the connection lifecycle - connect, authenticate,
//     decode, route, detect failure, back off, reconnect indefinitely.
//
// # Data Flow
//
//	Ditto /api/2/things (SSE)
//	        |
//	   Supervisor ── EventDecoder
//	        |
//	     Router ── feature kind registry
//	        |
//	 PublisherRegistry ── SanitizeTopic
//	        |
//	   NATS subjects  /{thing_id}/sensor/temperature, /{thing_id}/alerts, ...
//
// Things are ephemeral: each event payload is decoded fresh, routed, and
// discarded. Only the topic-to-publisher map persists, bounded by the number
// of distinct thing/feature pairs the registry ever reports.
//
// # Failure Model
//
// No error in this package is fatal to the process. Connection failures
// trigger a fixed-delay reconnect with unbounded retries; malformed payloads
// are dropped with a rate-limited warning; a coercion failure aborts routing
// of that single event only. The only intended termination is cancellation of
// the supervisor's context.
package ditto
