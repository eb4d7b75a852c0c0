// Package stream implements the resilient realtime connection client.
//
// The client:
//   - Owns exactly one logical WebSocket connection at a time
//   - Reconnects with capped exponential backoff (1.5x, 10s ceiling)
//   - Distinguishes caller-initiated teardown from network failures
//   - Decodes inbound frames into {type, data, timestamp} envelopes
//   - Surfaces connection notifications to a human-facing layer
package stream
