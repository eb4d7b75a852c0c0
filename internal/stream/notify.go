package stream

import (
	"log/slog"
	"time"
)

// Notifier receives user-facing connection notifications. The client
// applies the surfacing policy (first connect silent, early retries
// quiet, errors only after an established session) before calling any
// of these, so implementations just deliver.
type Notifier interface {
	// Reconnected fires when a session is re-established after a drop.
	Reconnected()

	// Reconnecting fires while a retry is scheduled, from the configured
	// attempt threshold onward.
	Reconnecting(attempt, maxAttempts int)

	// Exhausted fires once when the retry ceiling is reached.
	Exhausted()

	// StreamError fires on a transport error after an established session.
	StreamError(err error)
}

// NotificationKind identifies a notification.
type NotificationKind string

const (
	NotifyReconnected  NotificationKind = "reconnected"
	NotifyReconnecting NotificationKind = "reconnecting"
	NotifyExhausted    NotificationKind = "exhausted"
	NotifyError        NotificationKind = "error"
)

// Notification is a single user-facing connection event.
type Notification struct {
	Kind        NotificationKind
	Attempt     int
	MaxAttempts int
	Err         error
	At          time.Time
}

// LogNotifier writes notifications to a slog logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a slog-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Reconnected() {
	n.logger.Info("connection restored")
}

func (n *LogNotifier) Reconnecting(attempt, maxAttempts int) {
	n.logger.Warn("reconnecting", "attempt", attempt, "max_attempts", maxAttempts)
}

func (n *LogNotifier) Exhausted() {
	n.logger.Error("connection lost, retries exhausted")
}

func (n *LogNotifier) StreamError(err error) {
	n.logger.Warn("stream error", "error", err)
}

// ChanNotifier delivers notifications over a buffered channel for a
// human-facing layer to drain. Sends never block; when the consumer
// falls behind, notifications are dropped.
type ChanNotifier struct {
	ch     chan Notification
	logger *slog.Logger
}

// NewChanNotifier creates a channel-backed notifier with the given buffer.
func NewChanNotifier(buffer int, logger *slog.Logger) *ChanNotifier {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChanNotifier{
		ch:     make(chan Notification, buffer),
		logger: logger,
	}
}

// Notifications returns the channel of pending notifications.
func (n *ChanNotifier) Notifications() <-chan Notification {
	return n.ch
}

func (n *ChanNotifier) Reconnected() {
	n.send(Notification{Kind: NotifyReconnected, At: time.Now()})
}

func (n *ChanNotifier) Reconnecting(attempt, maxAttempts int) {
	n.send(Notification{
		Kind:        NotifyReconnecting,
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
		At:          time.Now(),
	})
}

func (n *ChanNotifier) Exhausted() {
	n.send(Notification{Kind: NotifyExhausted, At: time.Now()})
}

func (n *ChanNotifier) StreamError(err error) {
	n.send(Notification{Kind: NotifyError, Err: err, At: time.Now()})
}

func (n *ChanNotifier) send(notif Notification) {
	select {
	case n.ch <- notif:
	default:
		n.logger.Warn("notification buffer full, dropping", "kind", notif.Kind)
	}
}

// nopNotifier is used when no notifier is configured.
type nopNotifier struct{}

func (nopNotifier) Reconnected()          {}
func (nopNotifier) Reconnecting(_, _ int) {}
func (nopNotifier) Exhausted()            {}
func (nopNotifier) StreamError(_ error)   {}
