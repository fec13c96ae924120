package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"gridsync/internal/window"
)

func testWindow() window.Window {
	return window.Window{
		Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://web-api.tp.entsoe.eu/api", "test-token")

		if c.baseURL != "https://web-api.tp.entsoe.eu/api" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://web-api.tp.entsoe.eu/api")
		}
		if c.securityToken != "test-token" {
			t.Errorf("securityToken = %q, want %q", c.securityToken, "test-token")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.retry.MaxRetries != 5 {
			t.Errorf("MaxRetries = %d, want 5", c.retry.MaxRetries)
		}
		if c.GenerationLabel() != "A75_A16" {
			t.Errorf("GenerationLabel = %q, want A75_A16", c.GenerationLabel())
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		custom := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("https://example.com", "token",
			WithTimeout(5*time.Second),
			WithLogger(logger),
			WithRetryPolicy(RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond}),
			WithGenerationTypes("A75", "A16", "B16"),
			WithZeroPriceFilter(true),
		)
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", c.httpClient.Timeout)
		}
		if c.logger != logger {
			t.Error("logger not set")
		}
		if c.retry.MaxRetries != 2 {
			t.Errorf("MaxRetries = %d, want 2", c.retry.MaxRetries)
		}
		if c.GenerationLabel() != "A75_A16_B16" {
			t.Errorf("GenerationLabel = %q, want A75_A16_B16", c.GenerationLabel())
		}
		if !c.dropZeroPrices {
			t.Error("dropZeroPrices not set")
		}

		c = NewClient("https://example.com", "token", WithHTTPClient(custom))
		if c.httpClient != custom {
			t.Error("custom HTTP client not set")
		}
	})
}

func TestRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()

	for _, status := range []int{429, 500, 502, 503, 504} {
		if !p.Retryable(status) {
			t.Errorf("Retryable(%d) = false, want true", status)
		}
	}
	for _, status := range []int{400, 401, 403, 404} {
		if p.Retryable(status) {
			t.Errorf("Retryable(%d) = true, want false", status)
		}
	}
}

func TestFetchGeneration(t *testing.T) {
	t.Run("query parameters", func(t *testing.T) {
		var gotQuery map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = map[string]string{}
			for k := range r.URL.Query() {
				gotQuery[k] = r.URL.Query().Get(k)
			}
			w.Write([]byte(genXML))
		}))
		defer server.Close()

		c := NewClient(server.URL, "tok", WithGenerationTypes("A75", "A16", "B16"))
		points, err := c.FetchGeneration(context.Background(), "10YAT-APG------L", testWindow())
		if err != nil {
			t.Fatalf("FetchGeneration failed: %v", err)
		}
		if len(points) != 2 {
			t.Errorf("got %d points, want 2", len(points))
		}

		want := map[string]string{
			"securityToken": "tok",
			"documentType":  "A75",
			"processType":   "A16",
			"in_Domain":     "10YAT-APG------L",
			"periodStart":   "202506010000",
			"periodEnd":     "202506020000",
			"psrType":       "B16",
		}
		for k, v := range want {
			if gotQuery[k] != v {
				t.Errorf("query[%s] = %q, want %q", k, gotQuery[k], v)
			}
		}
	})

	t.Run("psrType omitted when empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Has("psrType") {
				t.Error("psrType should not be sent when unset")
			}
			w.Write([]byte(genXML))
		}))
		defer server.Close()

		c := NewClient(server.URL, "tok")
		if _, err := c.FetchGeneration(context.Background(), "10YAT-APG------L", testWindow()); err != nil {
			t.Fatalf("FetchGeneration failed: %v", err)
		}
	})

	t.Run("malformed body is empty data, not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<busted"))
		}))
		defer server.Close()

		c := NewClient(server.URL, "tok")
		points, err := c.FetchGeneration(context.Background(), "X", testWindow())
		if err != nil {
			t.Fatalf("FetchGeneration failed: %v", err)
		}
		if len(points) != 0 {
			t.Errorf("got %d points, want 0", len(points))
		}
	})
}

func TestFetchPricesQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("documentType") != "A44" {
			t.Errorf("documentType = %q, want A44", q.Get("documentType"))
		}
		if q.Get("in_Domain") != q.Get("out_Domain") {
			t.Error("in_Domain and out_Domain should match")
		}
		w.Write([]byte(priceXML))
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok")
	series, err := c.FetchPrices(context.Background(), "10YBE----------2", testWindow())
	if err != nil {
		t.Fatalf("FetchPrices failed: %v", err)
	}
	if len(series) != 2 {
		t.Errorf("got %d series, want 2", len(series))
	}
}

func TestRetryBehavior(t *testing.T) {
	fastRetry := RetryPolicy{
		MaxRetries:        5,
		Backoff:           time.Millisecond,
		RetryableStatuses: DefaultRetryPolicy().RetryableStatuses,
	}

	t.Run("recovers after transient failures", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(genXML))
		}))
		defer server.Close()

		c := NewClient(server.URL, "tok", WithRetryPolicy(fastRetry))
		points, err := c.FetchGeneration(context.Background(), "X", testWindow())
		if err != nil {
			t.Fatalf("FetchGeneration failed: %v", err)
		}
		if len(points) != 2 {
			t.Errorf("got %d points, want 2", len(points))
		}
		if calls.Load() != 3 {
			t.Errorf("server saw %d calls, want 3", calls.Load())
		}
	})

	t.Run("zero backoff retries immediately", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(genXML))
		}))
		defer server.Close()

		// A zero-value backoff is a valid policy (no wait between attempts).
		c := NewClient(server.URL, "tok", WithRetryPolicy(RetryPolicy{
			MaxRetries:        2,
			RetryableStatuses: DefaultRetryPolicy().RetryableStatuses,
		}))
		points, err := c.FetchGeneration(context.Background(), "X", testWindow())
		if err != nil {
			t.Fatalf("FetchGeneration failed: %v", err)
		}
		if len(points) != 2 {
			t.Errorf("got %d points, want 2", len(points))
		}
		if calls.Load() != 3 {
			t.Errorf("server saw %d calls, want 3", calls.Load())
		}
	})

	t.Run("non-retryable status fails immediately", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		c := NewClient(server.URL, "tok", WithRetryPolicy(fastRetry))
		_, err := c.FetchGeneration(context.Background(), "X", testWindow())
		if err == nil {
			t.Fatal("expected error")
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *APIError", err)
		}
		if apiErr.StatusCode != 400 {
			t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
		}
		if calls.Load() != 1 {
			t.Errorf("server saw %d calls, want 1", calls.Load())
		}
	})

	t.Run("exhausted retries surface the last error", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewClient(server.URL, "tok", WithRetryPolicy(RetryPolicy{
			MaxRetries:        2,
			Backoff:           time.Millisecond,
			RetryableStatuses: DefaultRetryPolicy().RetryableStatuses,
		}))
		_, err := c.FetchPrices(context.Background(), "X", testWindow())
		if err == nil {
			t.Fatal("expected error")
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want wrapped *APIError", err)
		}
		if apiErr.StatusCode != 429 {
			t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
		}
		if calls.Load() != 3 {
			t.Errorf("server saw %d calls, want 3 (1 + 2 retries)", calls.Load())
		}
	})

	t.Run("context cancellation aborts backoff", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		c := NewClient(server.URL, "tok", WithRetryPolicy(RetryPolicy{
			MaxRetries:        5,
			Backoff:           5 * time.Second,
			RetryableStatuses: DefaultRetryPolicy().RetryableStatuses,
		}))

		done := make(chan error, 1)
		go func() {
			_, err := c.FetchGeneration(ctx, "X", testWindow())
			done <- err
		}()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("error = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("fetch did not abort after cancellation")
		}
	})
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 503, Message: "Service Unavailable"}
	want := "entsoe api error 503: Service Unavailable"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
