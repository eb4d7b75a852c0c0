// Package archive implements the event archive writer.
//
// The writer:
//   - Consumes decoded envelopes from the stream client
//   - Batches rows (size or interval triggered) for insert efficiency
//   - Writes to the stream_events table with ON CONFLICT DO NOTHING
//   - Drops events rather than block the connection's read path
package archive
