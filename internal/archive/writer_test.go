package archive

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/VerticalLabs-ai/rfp-ml-sub002/internal/stream"
)

func TestWriter_Transform(t *testing.T) {
	cfg := DefaultConfig()
	w := NewWriter(cfg, nil, nil)

	receivedAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	env := stream.Envelope{
		Type:       "proposal.updated",
		Data:       json.RawMessage(`{"id":7}`),
		Timestamp:  "2026-08-28T11:59:58Z",
		ReceivedAt: receivedAt,
	}

	row := w.transform(env)

	if _, err := uuid.Parse(row.IngestID); err != nil {
		t.Errorf("IngestID = %q, not a valid UUID", row.IngestID)
	}
	if row.EventType != "proposal.updated" {
		t.Errorf("EventType = %q, want proposal.updated", row.EventType)
	}
	if string(row.Payload) != `{"id":7}` {
		t.Errorf("Payload = %s", row.Payload)
	}
	wantTs := time.Date(2026, 8, 28, 11, 59, 58, 0, time.UTC).UnixMicro()
	if row.EventTs != wantTs {
		t.Errorf("EventTs = %d, want %d", row.EventTs, wantTs)
	}
	if row.ReceivedAt != receivedAt.UnixMicro() {
		t.Errorf("ReceivedAt = %d, want %d", row.ReceivedAt, receivedAt.UnixMicro())
	}
}

func TestWriter_TransformEmptyPayload(t *testing.T) {
	w := NewWriter(DefaultConfig(), nil, nil)

	row := w.transform(stream.Envelope{Type: "heartbeat", ReceivedAt: time.Now()})

	if string(row.Payload) != "null" {
		t.Errorf("Payload = %s, want null", row.Payload)
	}
	if row.EventTs != 0 {
		t.Errorf("EventTs = %d, want 0 for missing timestamp", row.EventTs)
	}
}

func TestParseEventTs(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"not-a-timestamp", 0},
		{"2026-08-28T12:00:00Z", time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC).UnixMicro()},
		{"2026-08-28T12:00:00.250-04:00", time.Date(2026, 8, 28, 16, 0, 0, 250000000, time.UTC).UnixMicro()},
	}

	for _, tt := range tests {
		if got := parseEventTs(tt.in); got != tt.want {
			t.Errorf("parseEventTs(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWriter_EnqueueDropsWhenFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 1
	w := NewWriter(cfg, nil, nil)

	// Not started, so nothing drains the channel.
	w.Enqueue(stream.Envelope{Type: "a", ReceivedAt: time.Now()})
	w.Enqueue(stream.Envelope{Type: "b", ReceivedAt: time.Now()})

	if got := w.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
	if len(w.input) != 1 {
		t.Errorf("buffered = %d, want 1", len(w.input))
	}
}

func TestWriter_BatchAccumulation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSize = 10
	w := NewWriter(cfg, nil, nil)

	for i := 0; i < 3; i++ {
		w.handleEnvelope(stream.Envelope{Type: "tick", ReceivedAt: time.Now()})
	}

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	if len(w.batch) != 3 {
		t.Errorf("batch length = %d, want 3", len(w.batch))
	}
}
