// Package stream owns the long-lived push connections: handshake, open,
// serial message delivery, and reconnection with exponential backoff.
package stream

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the lifecycle state of a stream connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateBackoff
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateBackoff:
		return "backoff"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	defaultInitialDelay = time.Second
	defaultMaxDelay     = 60 * time.Second
	defaultMaxAttempts  = 5
	jitterRange         = time.Second
)

// Conn is one open push connection. Read blocks until the next message or a
// transport error; messages are delivered strictly serially.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Transport opens push connections against a stream URL.
type Transport interface {
	Open(ctx context.Context, url string) (Conn, error)
}

// HandshakeFunc exchanges a subscription query for a push-stream URL.
type HandshakeFunc func(ctx context.Context) (string, error)

// MessageFunc handles one inbound push message. Decode and persistence
// errors stay inside the handler; only transport errors affect the
// connection.
type MessageFunc func(message []byte)

// Config holds stream manager configuration. Name identifies the feed kind
// in logs. The delay and attempt fields default to the production backoff
// policy when zero.
type Config struct {
	Name         string
	Handshake    HandshakeFunc
	Transport    Transport
	OnMessage    MessageFunc
	Log          zerolog.Logger
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

// Manager owns one feed's push connection. Each feed kind gets its own
// instance with independent state.
type Manager struct {
	name      string
	handshake HandshakeFunc
	transport Transport
	onMessage MessageFunc
	log       zerolog.Logger

	initialDelay time.Duration
	maxDelay     time.Duration
	maxAttempts  int

	mu      sync.Mutex
	state   State
	attempt int
	conn    Conn
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a stream manager. It does not connect; call Connect.
func NewManager(cfg Config) *Manager {
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = defaultInitialDelay
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	return &Manager{
		name:         cfg.Name,
		handshake:    cfg.Handshake,
		transport:    cfg.Transport,
		onMessage:    cfg.OnMessage,
		log:          cfg.Log.With().Str("component", "stream").Str("feed", cfg.Name).Logger(),
		initialDelay: cfg.InitialDelay,
		maxDelay:     cfg.MaxDelay,
		maxAttempts:  cfg.MaxAttempts,
	}
}

// Connect starts the connection loop. An existing connection is closed
// first, so calling Connect on a live manager reconnects from scratch.
func (m *Manager) Connect() {
	m.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.cancel = cancel
	m.done = done
	m.state = StateConnecting
	m.mu.Unlock()

	go m.run(ctx, done)
}

// Disconnect closes the active connection if any, resets the attempt
// counter and returns the manager to Disconnected. Safe to call from any
// state, any number of times.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	conn := m.conn
	m.cancel = nil
	m.done = nil
	m.conn = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}

	m.mu.Lock()
	m.attempt = 0
	m.state = StateDisconnected
	m.mu.Unlock()
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempt returns the current retry-attempt counter.
func (m *Manager) Attempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

// run is the connection loop: handshake, open, read until error, back off,
// repeat. It exits on context cancellation or when retries are exhausted.
func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		m.setState(StateConnecting)

		connID := uuid.NewString()[:8]
		log := m.log.With().Str("conn_id", connID).Logger()
		log.Info().Msg("Connecting to push stream")

		conn, err := m.open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("Connection attempt failed")
			if !m.backoff(ctx, log) {
				return
			}
			continue
		}

		m.mu.Lock()
		m.conn = conn
		m.attempt = 0
		m.state = StateOpen
		m.mu.Unlock()
		log.Info().Msg("Push stream open")

		err = m.readLoop(ctx, conn)
		_ = conn.Close()
		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("Push stream lost")
		if !m.backoff(ctx, log) {
			return
		}
	}
}

// open performs the handshake and opens the push connection. Handshake
// failures and open failures are treated identically by the caller.
func (m *Manager) open(ctx context.Context) (Conn, error) {
	url, err := m.handshake(ctx)
	if err != nil {
		return nil, err
	}
	return m.transport.Open(ctx, url)
}

func (m *Manager) readLoop(ctx context.Context, conn Conn) error {
	for {
		message, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		m.onMessage(message)
	}
}

// backoff schedules the next reconnect attempt. It returns false when the
// retry budget is exhausted (terminal Failed state, external restart
// required) or the context is cancelled.
func (m *Manager) backoff(ctx context.Context, log zerolog.Logger) bool {
	m.mu.Lock()
	if m.attempt >= m.maxAttempts {
		m.state = StateFailed
		attempts := m.attempt
		m.mu.Unlock()
		log.Error().Int("attempts", attempts).Msg("Reconnect attempts exhausted, giving up")
		return false
	}
	attempt := m.attempt
	m.attempt++
	m.state = StateBackoff
	m.mu.Unlock()

	delay := m.backoffDelay(attempt)
	log.Info().Int("attempt", attempt+1).Dur("delay", delay).Msg("Scheduling reconnect")

	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

// backoffDelay computes min(initial * 2^attempt, max) plus jitter in
// [0, 1s).
func (m *Manager) backoffDelay(attempt int) time.Duration {
	delay := float64(m.initialDelay) * math.Pow(2, float64(attempt))
	if delay > float64(m.maxDelay) {
		delay = float64(m.maxDelay)
	}
	return time.Duration(delay) + time.Duration(rand.Int63n(int64(jitterRange)))
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
