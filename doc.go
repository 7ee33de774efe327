// Package roadtwin maintains a live digital twin of a road network; the twin
// is a virtual representation of current road conditions - maintained by
// digesting congestion event-streams from independent sensors in order to
// produce a consistent view about the network-of-interest.
//
// Readings enter through the ingestion Gateway, which validates them, stamps
// them with a UTC timestamp, and publishes them to a pub/sub topic. A single
// Store subscription consumes the stamped events and owns the authoritative
// mapping from road identifier to its latest known RoadState. Query clients
// read that mapping concurrently with further mutations: directly (state
// lookups), through the metrics Aggregator, or through the routing Estimator.
//
// The store keeps only the latest value per road. Conflicts between events for
// the same road are resolved by delivery order, not by the embedded event
// timestamp.
package roadtwin
