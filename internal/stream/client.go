package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client maintains one logical WebSocket connection to the realtime
// server and keeps it alive across transient failures with capped
// exponential backoff. It is driven entirely by transport completions
// and one retry timer; every deferred completion is guarded by the
// intentional-close flag and a generation counter so that callbacks
// from a superseded connection attempt are inert.
type Client struct {
	opts     Options
	logger   *slog.Logger
	notifier Notifier

	mu               sync.Mutex
	state            State
	attempt          int
	everConnected    bool
	intentionalClose bool
	lastMessage      *Envelope
	conn             *websocket.Conn
	retryTimer       *time.Timer
	gen              uint64
	ctx              context.Context
	cancel           context.CancelFunc

	// Serializes writes to the transport.
	writeMu sync.Mutex
}

// New creates a client. It does not open a connection; Start does.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	opts.applyDefaults()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", uuid.NewString()[:8], "endpoint", opts.Endpoint)

	notifier := opts.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	return &Client{
		opts:     opts,
		logger:   logger,
		notifier: notifier,
		state:    StateIdle,
	}, nil
}

// Start opens the connection. Calling it while a connection is live or
// pending first tears the old one down. The attempt itself is
// asynchronous; completion is reported through the configured callbacks.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.ctx == nil {
		c.ctx, c.cancel = context.WithCancel(ctx)
	}
	if conn := c.teardownLocked(); conn != nil {
		conn.Close()
	}
	c.intentionalClose = false
	c.attempt = 0
	c.everConnected = false
	c.state = StateConnecting
	gen := c.nextGenLocked()
	c.mu.Unlock()

	go c.dial(gen)
	return nil
}

// Disconnect tears the connection down intentionally and suppresses all
// retry logic. Idempotent. The flag is set before anything is cancelled
// so a retry firing mid-teardown cannot slip through.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.intentionalClose = true
	wasLive := c.state == StateOpen || c.state == StateConnecting
	if c.state != StateIdle {
		c.state = StateClosing
	}
	conn := c.teardownLocked()
	if c.state == StateClosing {
		c.state = StateClosed
	}
	onDisconnect := c.opts.OnDisconnect
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}

	if wasLive {
		c.logger.Info("disconnected")
		if onDisconnect != nil {
			onDisconnect()
		}
	}
}

// Reconnect clears the intentional-close flag, resets the attempt
// counter, and issues a fresh connection attempt. It is how a caller
// leaves the terminal failed state or resumes after Disconnect.
func (c *Client) Reconnect() {
	c.mu.Lock()
	if conn := c.teardownLocked(); conn != nil {
		conn.Close()
	}
	c.intentionalClose = false
	c.attempt = 0
	c.state = StateConnecting
	gen := c.nextGenLocked()
	c.mu.Unlock()

	c.logger.Info("manual reconnect requested")
	go c.dial(gen)
}

// Close disposes the client: intentional teardown plus context release.
func (c *Client) Close() {
	c.Disconnect()
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Send serializes v as JSON and transmits it. It fails fast with
// ErrNotConnected when the connection is not open; nothing is queued.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	if c.state != StateOpen || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the connection is open.
func (c *Client) IsConnected() bool {
	return c.State() == StateOpen
}

// Attempt returns the consecutive failed-attempt counter.
func (c *Client) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// LastMessage returns the most recently decoded envelope, or nil.
func (c *Client) LastMessage() *Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastMessage == nil {
		return nil
	}
	env := *c.lastMessage
	return &env
}

// teardownLocked supersedes all in-flight completions, cancels any
// pending retry, and detaches the transport, returning it for the
// caller to close outside the lock.
func (c *Client) teardownLocked() *websocket.Conn {
	c.gen++
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	conn := c.conn
	c.conn = nil
	return conn
}

func (c *Client) nextGenLocked() uint64 {
	c.gen++
	return c.gen
}

// staleLocked reports whether a completion from generation gen has been
// superseded or cut off by an intentional close.
func (c *Client) staleLocked(gen uint64) bool {
	return gen != c.gen || c.intentionalClose
}

// dial performs one connection attempt for generation gen.
func (c *Client) dial(gen uint64) {
	c.mu.Lock()
	if c.staleLocked(gen) {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	c.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.opts.Endpoint, nil)

	c.mu.Lock()
	if c.staleLocked(gen) {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		c.mu.Unlock()
		c.handleError(gen, err)
		c.handleClosed(gen)
		return
	}

	recovered := c.attempt > 0 && c.everConnected
	c.conn = conn
	c.state = StateOpen
	c.attempt = 0
	c.everConnected = true
	onConnect := c.opts.OnConnect
	c.mu.Unlock()

	c.logger.Info("connected", "recovered", recovered)

	if onConnect != nil {
		onConnect()
	}
	if recovered {
		c.notifier.Reconnected()
	}

	go c.readLoop(conn, gen)
}

// readLoop pumps inbound frames for one connection generation.
func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// A clean remote close is not an error, just a closed
			// transport.
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.handleError(gen, err)
			}
			c.handleClosed(gen)
			return
		}
		c.handleMessage(gen, data)
	}
}

// handleMessage decodes an inbound frame into an envelope. Malformed
// payloads are discarded and never affect connection state.
func (c *Client) handleMessage(gen uint64, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		c.logger.Warn("discarding malformed message", "bytes", len(data))
		return
	}
	env.ReceivedAt = time.Now()

	c.mu.Lock()
	if c.staleLocked(gen) {
		c.mu.Unlock()
		return
	}
	c.lastMessage = &env
	onMessage := c.opts.OnMessage
	c.mu.Unlock()

	if onMessage != nil {
		onMessage(env)
	}
}

// handleError surfaces a transport error. Errors before the first
// successful connection are expected startup noise and produce no
// notification.
func (c *Client) handleError(gen uint64, err error) {
	c.mu.Lock()
	if c.staleLocked(gen) {
		c.mu.Unlock()
		return
	}
	established := c.everConnected
	onError := c.opts.OnError
	c.mu.Unlock()

	c.logger.Warn("transport error", "error", err, "established", established)

	if onError != nil {
		onError(err)
	}
	if established {
		c.notifier.StreamError(err)
	}
}

// handleClosed runs when the transport closes without an intentional
// disconnect. It schedules the next attempt with capped exponential
// backoff, or goes terminal once the ceiling is reached.
func (c *Client) handleClosed(gen uint64) {
	c.mu.Lock()
	if c.staleLocked(gen) {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateClosed
	onDisconnect := c.opts.OnDisconnect

	var (
		delay     time.Duration
		attempt   int
		exhausted bool
	)
	if c.attempt < c.opts.MaxAttempts {
		c.attempt++
		attempt = c.attempt
		delay = retryDelay(c.opts.BaseDelay, c.opts.MaxDelay, attempt)
		c.retryTimer = time.AfterFunc(delay, func() { c.retryFire(gen) })
	} else {
		attempt = c.attempt
		exhausted = true
	}
	c.mu.Unlock()

	if onDisconnect != nil {
		onDisconnect()
	}

	if exhausted {
		c.logger.Error("reconnect attempts exhausted", "attempts", attempt)
		c.notifier.Exhausted()
		return
	}

	c.logger.Info("connection closed, retry scheduled",
		"attempt", attempt,
		"max_attempts", c.opts.MaxAttempts,
		"delay", delay,
	)
	if attempt >= c.opts.NotifyAfterAttempts {
		c.notifier.Reconnecting(attempt, c.opts.MaxAttempts)
	}
}

// retryFire runs when the backoff timer elapses and issues the next
// connection attempt under a fresh generation.
func (c *Client) retryFire(gen uint64) {
	c.mu.Lock()
	if c.staleLocked(gen) {
		c.mu.Unlock()
		return
	}
	c.retryTimer = nil
	c.state = StateConnecting
	next := c.nextGenLocked()
	c.mu.Unlock()

	c.dial(next)
}
