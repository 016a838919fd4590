package trafikverket

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiateStream(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/xml", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"RESPONSE":{"RESULT":[{"INFO":{"SSEURL":"https://push.example/stream?x=1"}}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())

	url, err := c.NegotiateStream(context.Background(), "<REQUEST/>")
	require.NoError(t, err)
	assert.Equal(t, "https://push.example/stream?x=1", url)
	assert.Equal(t, "<REQUEST/>", gotBody)
}

func TestNegotiateStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid login", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())

	_, err := c.NegotiateStream(context.Background(), "<REQUEST/>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNegotiateStreamMissingPushURL(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty result", `{"RESPONSE":{"RESULT":[]}}`},
		{"empty url", `{"RESPONSE":{"RESULT":[{"INFO":{"SSEURL":""}}]}}`},
		{"no info", `{"RESPONSE":{"RESULT":[{}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, zerolog.Nop())

			_, err := c.NegotiateStream(context.Background(), "<REQUEST/>")
			assert.ErrorIs(t, err, ErrNoPushURL)
		})
	}
}

func TestNegotiateStreamTransportError(t *testing.T) {
	// Nothing listens here
	c := NewClient("http://127.0.0.1:1", zerolog.Nop())

	_, err := c.NegotiateStream(context.Background(), "<REQUEST/>")
	assert.Error(t, err)
}

func TestNegotiateStreamMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())

	_, err := c.NegotiateStream(context.Background(), "<REQUEST/>")
	assert.Error(t, err)
}
