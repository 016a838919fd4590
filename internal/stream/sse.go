package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/r3labs/sse/v2"
)

// maxEventSize bounds the buffer for a single SSE event. Position messages
// batch many records but stay well under this.
const maxEventSize = 1 << 20

// SSETransport opens server-sent-event connections. The HTTP client has no
// timeout: the connection is long-lived by design and is torn down via the
// request context.
type SSETransport struct {
	httpClient *http.Client
}

// NewSSETransport creates the production push transport.
func NewSSETransport() *SSETransport {
	return &SSETransport{httpClient: &http.Client{}}
}

// Open performs the GET against the push-stream URL and wraps the response
// body in an event-stream reader.
func (t *SSETransport) Open(ctx context.Context, url string) (Conn, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d opening event stream", resp.StatusCode)
	}

	return &sseConn{
		body:   resp.Body,
		reader: sse.NewEventStreamReader(resp.Body, maxEventSize),
	}, nil
}

type sseConn struct {
	body   io.ReadCloser
	reader *sse.EventStreamReader
}

// Read returns the data payload of the next event. Comment-only keep-alive
// events are skipped. Cancelling the context closes the underlying body,
// which surfaces here as the context error.
func (c *sseConn) Read(ctx context.Context) ([]byte, error) {
	for {
		raw, err := c.reader.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if data := eventData(raw); len(data) > 0 {
			return data, nil
		}
	}
}

func (c *sseConn) Close() error {
	return c.body.Close()
}

// eventData extracts and joins the "data" field lines of a raw SSE event.
func eventData(raw []byte) []byte {
	var lines [][]byte
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		value := bytes.TrimPrefix(line, []byte("data:"))
		value = bytes.TrimPrefix(value, []byte(" "))
		lines = append(lines, value)
	}
	return bytes.Join(lines, []byte("\n"))
}
