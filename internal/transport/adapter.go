// Package transport wraps the persistent WebSocket channel to the Wingman
// backend. It owns connection lifecycle, automatic reconnection, and the
// decode boundary: inbound frames are validated and turned into typed
// messages before anything downstream sees them.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/curtisgray/wingman-sub001/internal/api"
	"github.com/curtisgray/wingman-sub001/internal/eventbus"
)

// State is the connection state of the push channel.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosing    State = "closing"
	StateClosed     State = "closed"
)

// ErrNotConnected is returned by Send while the channel is not open.
var ErrNotConnected = errors.New("transport: channel not open")

const (
	defaultReconnectInterval    = time.Second
	defaultMaxReconnectInterval = 30 * time.Second
	defaultHandshakeTimeout     = 10 * time.Second
	defaultWriteTimeout         = 5 * time.Second
	defaultEventBuffer          = 256
)

// Adapter maintains one long-lived WebSocket session to the backend,
// redialling with bounded backoff until torn down via Close.
type Adapter struct {
	url    string
	dialer *websocket.Dialer
	logger *log.Logger
	bus    *eventbus.Bus

	baseInterval time.Duration
	maxInterval  time.Duration
	writeTimeout time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	state   State
	started bool
	cancel  context.CancelFunc

	writeMu sync.Mutex

	events  chan api.Message
	done    chan struct{}
	attempt int
}

// Option customises adapter behaviour.
type Option func(*Adapter)

// WithLogger overrides the logger used for connection and drop messages.
func WithLogger(logger *log.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithBus publishes connection-state changes on the given event bus.
func WithBus(bus *eventbus.Bus) Option {
	return func(a *Adapter) {
		a.bus = bus
	}
}

// WithReconnectInterval sets the reconnect backoff base and cap.
func WithReconnectInterval(base, max time.Duration) Option {
	return func(a *Adapter) {
		if base > 0 {
			a.baseInterval = base
		}
		if max >= a.baseInterval {
			a.maxInterval = max
		}
	}
}

// WithHandshakeTimeout overrides the WebSocket handshake timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.dialer.HandshakeTimeout = d
		}
	}
}

// New constructs an adapter for the given WebSocket URL. The channel is not
// dialled until Connect is called.
func New(socketURL string, opts ...Option) *Adapter {
	a := &Adapter{
		url: socketURL,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		logger:       log.Default(),
		baseInterval: defaultReconnectInterval,
		maxInterval:  defaultMaxReconnectInterval,
		writeTimeout: defaultWriteTimeout,
		state:        StateClosed,
		events:       make(chan api.Message, defaultEventBuffer),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Connect starts the session loop. It is idempotent: calling it while the
// loop is already running is a no-op. The loop runs until ctx is cancelled
// or Close is called.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	go a.run(runCtx)
	return nil
}

// State returns the current connection state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Events exposes the inbound message stream. Each decoded message is
// delivered exactly once, in the order received from the network. The channel
// is closed when the adapter shuts down.
func (a *Adapter) Events() <-chan api.Message {
	return a.events
}

// Send writes a JSON payload to the channel. It returns ErrNotConnected when
// the channel is not open; callers are expected to check the state signal or
// handle the failure.
func (a *Adapter) Send(v any) error {
	a.mu.Lock()
	conn, state := a.conn, a.state
	a.mu.Unlock()

	if state != StateOpen || conn == nil {
		return ErrNotConnected
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(a.writeTimeout))
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

// Close tears the adapter down: the reconnect loop is stopped, its timer
// released, and the underlying socket closed. Safe to call more than once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return nil
	}
	cancel := a.cancel
	conn := a.conn
	a.mu.Unlock()

	a.setState(StateClosing)
	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-a.done
	return nil
}

func (a *Adapter) run(ctx context.Context) {
	defer close(a.done)
	defer close(a.events)
	defer a.setState(StateClosed)

	wait := a.baseInterval
	for {
		a.setState(StateConnecting)

		conn, resp, err := a.dialer.DialContext(ctx, a.url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.mu.Lock()
			a.attempt++
			attempt := a.attempt
			a.mu.Unlock()
			a.logger.Printf("[Transport] dial %s failed (attempt %d): %v, retrying in %s", a.url, attempt, err, wait)
			if !a.sleep(ctx, wait) {
				return
			}
			wait = nextInterval(wait, a.maxInterval)
			continue
		}

		a.mu.Lock()
		a.conn = conn
		a.attempt = 0
		a.mu.Unlock()
		wait = a.baseInterval

		a.setState(StateOpen)
		a.readLoop(ctx, conn)

		a.mu.Lock()
		if a.conn == conn {
			a.conn = nil
		}
		a.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		a.setState(StateConnecting)
		if !a.sleep(ctx, wait) {
			return
		}
	}
}

func (a *Adapter) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !isNormalClose(err) {
				a.logger.Printf("[Transport] read: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		msgs, err := api.DecodeFrame(payload)
		if err != nil {
			a.logger.Printf("[Transport] dropped frame: %v", err)
			continue
		}

		for _, msg := range msgs {
			select {
			case a.events <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (a *Adapter) setState(next State) {
	a.mu.Lock()
	if a.state == next {
		a.mu.Unlock()
		return
	}
	a.state = next
	attempt := a.attempt
	a.mu.Unlock()

	eventbus.Publish(context.Background(), a.bus, eventbus.Transport.State, eventbus.SourceTransport,
		eventbus.TransportStateEvent{State: string(next), Attempt: attempt})
}

// sleep waits for d or until ctx is done. Returns false when cancelled.
func (a *Adapter) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func nextInterval(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func isNormalClose(err error) bool {
	if err == nil {
		return true
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	return false
}
