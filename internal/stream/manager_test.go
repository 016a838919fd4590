package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	messages chan []byte
	errs     chan error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		messages: make(chan []byte, 16),
		errs:     make(chan error, 1),
	}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case m := <-c.messages:
		return m, nil
	case err := <-c.errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Close() error { return nil }

type fakeTransport struct {
	mu    sync.Mutex
	conns []*fakeConn
}

func (t *fakeTransport) Open(ctx context.Context, url string) (Conn, error) {
	c := newFakeConn()
	t.mu.Lock()
	t.conns = append(t.conns, c)
	t.mu.Unlock()
	return c, nil
}

func (t *fakeTransport) connCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

func (t *fakeTransport) latest() *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[len(t.conns)-1]
}

// countingHandshake fails the first failures calls, then succeeds.
type countingHandshake struct {
	mu       sync.Mutex
	calls    int
	failures int
}

func (h *countingHandshake) fn(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.calls <= h.failures {
		return "", errors.New("handshake refused")
	}
	return "http://push.example/stream", nil
}

func (h *countingHandshake) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func newTestManager(h HandshakeFunc, tr Transport, onMessage MessageFunc) *Manager {
	if onMessage == nil {
		onMessage = func([]byte) {}
	}
	return NewManager(Config{
		Name:         "test",
		Handshake:    h,
		Transport:    tr,
		OnMessage:    onMessage,
		Log:          zerolog.Nop(),
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		MaxAttempts:  2,
	})
}

func TestBackoffDelayBounds(t *testing.T) {
	m := NewManager(Config{Name: "test", Log: zerolog.Nop()})

	var lastBase time.Duration
	for attempt := 0; attempt < defaultMaxAttempts; attempt++ {
		base := time.Duration(1000<<attempt) * time.Millisecond
		if base > defaultMaxDelay {
			base = defaultMaxDelay
		}

		delay := m.backoffDelay(attempt)
		assert.GreaterOrEqual(t, delay, base, "attempt %d", attempt)
		assert.Less(t, delay, base+jitterRange, "attempt %d", attempt)

		// Base delay is non-decreasing up to the cap
		assert.GreaterOrEqual(t, base, lastBase)
		lastBase = base
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	m := NewManager(Config{Name: "test", Log: zerolog.Nop()})

	delay := m.backoffDelay(20)
	assert.GreaterOrEqual(t, delay, defaultMaxDelay)
	assert.Less(t, delay, defaultMaxDelay+jitterRange)
}

func TestOpenResetsAttemptCounter(t *testing.T) {
	h := &countingHandshake{failures: 2}
	tr := &fakeTransport{}
	m := newTestManager(h.fn, tr, nil)
	defer m.Disconnect()

	m.Connect()

	require.Eventually(t, func() bool {
		return m.State() == StateOpen
	}, 10*time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, m.Attempt())
	assert.Equal(t, 3, h.count())
}

func TestFailedAfterRetriesExhausted(t *testing.T) {
	h := &countingHandshake{failures: 1 << 30} // never succeeds
	m := newTestManager(h.fn, &fakeTransport{}, nil)
	defer m.Disconnect()

	m.Connect()

	require.Eventually(t, func() bool {
		return m.State() == StateFailed
	}, 10*time.Second, 5*time.Millisecond)

	// Initial attempt plus MaxAttempts retries, then no further attempts
	calls := h.count()
	assert.Equal(t, 3, calls)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, h.count())
}

func TestMessagesDispatchedToHandler(t *testing.T) {
	h := &countingHandshake{}
	tr := &fakeTransport{}

	var mu sync.Mutex
	var received [][]byte
	m := newTestManager(h.fn, tr, func(message []byte) {
		mu.Lock()
		received = append(received, message)
		mu.Unlock()
	})
	defer m.Disconnect()

	m.Connect()
	require.Eventually(t, func() bool {
		return m.State() == StateOpen
	}, 10*time.Second, 5*time.Millisecond)

	tr.latest().messages <- []byte(`{"a":1}`)
	tr.latest().messages <- []byte(`{"b":2}`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, 10*time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []byte(`{"a":1}`), received[0])
	mu.Unlock()
}

func TestReconnectsAfterTransportError(t *testing.T) {
	h := &countingHandshake{}
	tr := &fakeTransport{}
	m := newTestManager(h.fn, tr, nil)
	defer m.Disconnect()

	m.Connect()
	require.Eventually(t, func() bool {
		return m.State() == StateOpen
	}, 10*time.Second, 5*time.Millisecond)

	tr.latest().errs <- errors.New("connection reset")

	require.Eventually(t, func() bool {
		return tr.connCount() == 2 && m.State() == StateOpen
	}, 10*time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, m.Attempt())
}

func TestDisconnect(t *testing.T) {
	h := &countingHandshake{}
	tr := &fakeTransport{}
	m := newTestManager(h.fn, tr, nil)

	m.Connect()
	require.Eventually(t, func() bool {
		return m.State() == StateOpen
	}, 10*time.Second, 5*time.Millisecond)

	m.Disconnect()
	assert.Equal(t, StateDisconnected, m.State())
	assert.Equal(t, 0, m.Attempt())

	// Idempotent, safe from any state
	m.Disconnect()
	assert.Equal(t, StateDisconnected, m.State())
}

func TestDisconnectWithoutConnect(t *testing.T) {
	m := newTestManager(nil, nil, nil)

	m.Disconnect()
	assert.Equal(t, StateDisconnected, m.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "backoff", StateBackoff.String())
	assert.Equal(t, "failed", StateFailed.String())
}
