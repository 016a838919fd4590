// Package trafikverket implements the Trafikverket open API protocol: the
// subscription query format, the handshake that yields a push-stream URL,
// and decoding of the JSON push messages into store records.
package trafikverket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoPushURL is returned when a handshake response contains no usable
// SSE URL.
var ErrNoPushURL = errors.New("no SSE URL in Trafikverket response")

// Client performs the synchronous handshake against the Trafikverket API.
// It does not retry; reconnection policy belongs to the stream manager.
type Client struct {
	url        string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a handshake client for the given endpoint URL.
func NewClient(url string, log zerolog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("component", "trafikverket").Logger(),
	}
}

// NegotiateStream posts the subscription query and returns the push-stream
// URL from the response.
func (c *Client) NegotiateStream(ctx context.Context, query string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(query))
	if err != nil {
		return "", fmt.Errorf("failed to build handshake request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("handshake request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("trafikverket API error: %d %s %s", resp.StatusCode, resp.Status, string(body))
	}

	var parsed Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode handshake response: %w", err)
	}

	result := parsed.Response.Result
	if len(result) == 0 || result[0].Info.SSEURL == "" {
		return "", ErrNoPushURL
	}

	c.log.Debug().Msg("Handshake returned push-stream URL")
	return result[0].Info.SSEURL, nil
}
