package archive

import "time"

// Config contains configuration for the event archive writer.
type Config struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the capacity of the inbound envelope channel.
	BufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: 1 * time.Second,
		BufferSize:    10000,
	}
}

// Metrics tracks writer activity.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Dropped   int64
	Errors    int64
	Flushes   int64
}

// eventRow represents a row to be inserted into the stream_events table.
type eventRow struct {
	IngestID   string // UUID assigned at ingest
	EventType  string
	Payload    []byte // raw JSON payload
	EventTs    int64  // Microseconds, 0 when the envelope carried no timestamp
	ReceivedAt int64  // Microseconds
}
