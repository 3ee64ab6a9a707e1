package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/county-loads/internal/observability"
)

func testClient() *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(5*time.Second, logger, observability.NewMetricsForTesting())
}

func TestGet(t *testing.T) {
	t.Run("returns the body on success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hello")) //nolint:errcheck
		}))
		defer srv.Close()

		body, err := testClient().Get(context.Background(), "test", srv.URL)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), body)
	})

	t.Run("non-2xx returns a typed HTTP error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := testClient().Get(context.Background(), "test", srv.URL)
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
		assert.Equal(t, srv.URL, httpErr.URL)
	})
}

func TestGetRetry(t *testing.T) {
	t.Run("succeeds after transport failures", func(t *testing.T) {
		attempts := 0
		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 3 {
				// Drop the connection to force a transport error.
				srv.CloseClientConnections()
				return
			}
			w.Write([]byte("eventually")) //nolint:errcheck
		}))
		defer srv.Close()

		c := testClient()
		clk := clockwork.NewFakeClock()
		c.SetClock(clk)

		type result struct {
			body []byte
			err  error
		}
		done := make(chan result, 1)
		go func() {
			body, err := c.GetRetry(context.Background(), "test", srv.URL, 5, time.Second)
			done <- result{body, err}
		}()
		for i := 0; i < 2; i++ {
			clk.BlockUntil(1)
			clk.Advance(retryDelay)
		}
		r := <-done

		require.NoError(t, r.err)
		assert.Equal(t, []byte("eventually"), r.body)
		assert.Equal(t, 3, attempts)
	})

	t.Run("exhaustion wraps the sentinel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close() // every attempt now fails to connect

		c := testClient()
		clk := clockwork.NewFakeClock()
		c.SetClock(clk)

		done := make(chan error, 1)
		go func() {
			_, err := c.GetRetry(context.Background(), "test", url, 3, time.Second)
			done <- err
		}()
		for i := 0; i < 3; i++ {
			clk.BlockUntil(1)
			clk.Advance(retryDelay)
		}
		err := <-done

		require.ErrorIs(t, err, ErrRetriesExhausted)
	})

	t.Run("HTTP errors are not retried", func(t *testing.T) {
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := testClient().GetRetry(context.Background(), "test", srv.URL, 5, time.Second)
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, 1, attempts)
	})
}
