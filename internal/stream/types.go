package stream

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// Errors
var (
	ErrNotConnected = errors.New("not connected")
	ErrNoEndpoint   = errors.New("endpoint is required")
)

// State is the connection lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosing    State = "closing"
	StateClosed     State = "closed"
)

// Envelope is the generic wrapper for an inbound platform event.
// Payload interpretation belongs to the consumer; the client only
// requires a non-empty type.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp,omitempty"` // ISO-8601, optional

	// ReceivedAt is the local timestamp when the frame was read.
	ReceivedAt time.Time `json:"-"`
}

// Options configures a stream Client.
type Options struct {
	// Endpoint is the WebSocket URL of the realtime server. Required.
	Endpoint string

	// MaxAttempts is the ceiling on consecutive failed reconnection
	// attempts before the client stops retrying.
	MaxAttempts int

	// BaseDelay is the initial reconnection backoff delay.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// NotifyAfterAttempts is the first attempt number for which a
	// reconnecting notification is surfaced. Earlier retries stay quiet
	// so momentary blips don't alarm anyone.
	NotifyAfterAttempts int

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// Callbacks, invoked at the corresponding state transition.
	// All are optional.
	OnMessage    func(Envelope)
	OnError      func(error)
	OnConnect    func()
	OnDisconnect func()

	// Notifier receives user-facing connection notifications.
	// Nil disables them.
	Notifier Notifier

	Logger *slog.Logger
}

// Default option values.
const (
	DefaultMaxAttempts         = 5
	DefaultBaseDelay           = 1 * time.Second
	DefaultMaxDelay            = 10 * time.Second
	DefaultNotifyAfterAttempts = 2
	DefaultHandshakeTimeout    = 10 * time.Second
	DefaultWriteTimeout        = 5 * time.Second
)

func (o *Options) applyDefaults() {
	if o.MaxAttempts == 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BaseDelay == 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay == 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.NotifyAfterAttempts == 0 {
		o.NotifyAfterAttempts = DefaultNotifyAfterAttempts
	}
	if o.HandshakeTimeout == 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
}
