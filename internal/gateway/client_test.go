package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// countingTransport counts round trips so tests can assert that a call
// performed zero (or exactly N) network requests.
type countingTransport struct {
	calls atomic.Int64
	base  http.RoundTripper
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	return t.base.RoundTrip(req)
}

func TestCallRequireAuthWithoutToken(t *testing.T) {
	transport := &countingTransport{base: http.DefaultTransport}
	client := New(Config{}, WithTransport(transport))

	_, err := client.Call(context.Background(), Request{
		Endpoint:    "https://gateway.invalid/bff/v1/wallet/profile/balance",
		Method:      http.MethodGet,
		RequireAuth: true,
	})

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthenticationError", err)
	}
	if got := transport.calls.Load(); got != 0 {
		t.Errorf("network calls = %d, want 0", got)
	}
}

func TestCallStatusCodeMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}))
	defer server.Close()

	client := New(Config{MaxRetries: 0})
	_, err := client.Call(context.Background(), Request{Endpoint: server.URL, Method: http.MethodGet})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Endpoint != server.URL {
		t.Errorf("Endpoint = %q, want %q", apiErr.Endpoint, server.URL)
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error message %q should name the status and body", err.Error())
	}
}

func TestCallTimeoutMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := New(Config{Timeout: 20 * time.Millisecond, MaxRetries: 0})
	_, err := client.Call(context.Background(), Request{Endpoint: server.URL, Method: http.MethodGet})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if !strings.Contains(apiErr.Message, "timed out") {
		t.Errorf("Message = %q, want a timeout summary", apiErr.Message)
	}
	// The underlying transport error type must not leak through the taxonomy.
	if strings.Contains(apiErr.Message, "url.Error") {
		t.Errorf("Message %q leaks the transport error type", apiErr.Message)
	}
}

func TestCallConnectionRefusedMapping(t *testing.T) {
	// Grab a port that nothing is listening on.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := New(Config{MaxRetries: 0})
	_, err := client.Call(context.Background(), Request{Endpoint: endpoint, Method: http.MethodGet})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for transport failure", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Message, "transport failure") {
		t.Errorf("Message = %q, want a transport failure summary", apiErr.Message)
	}
}

func TestCallDecodesSuccessBody(t *testing.T) {
	var gotAuth, gotAccept, gotDevice string
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotDevice = r.Header.Get("deviceType")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"balance": 42, "currency": "USD"}`))
	}))
	defer server.Close()

	client := New(Config{
		UserAgent:      "SasaiWalletServer/2.0.0",
		DefaultHeaders: map[string]string{"deviceType": "ios"},
	})
	result, err := client.Call(context.Background(), Request{
		Endpoint:    server.URL,
		Method:      http.MethodPost,
		Token:       "abc123",
		Body:        map[string]any{"currency": "USD"},
		RequireAuth: true,
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if result["balance"] != float64(42) {
		t.Errorf("balance = %v, want 42", result["balance"])
	}
	if gotAuth != "Bearer abc123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer abc123")
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
	if gotDevice != "ios" {
		t.Errorf("deviceType = %q, want ios", gotDevice)
	}
	if !strings.Contains(gotBody, `"currency":"USD"`) {
		t.Errorf("request body = %q, want JSON with currency", gotBody)
	}
}

func TestCallInvalidJSONOn200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := New(Config{})
	_, err := client.Call(context.Background(), Request{Endpoint: server.URL, Method: http.MethodGet})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Message, "invalid JSON") {
		t.Errorf("Message = %q, want invalid JSON indication", apiErr.Message)
	}
}

func TestCallQueryParameters(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(Config{})
	_, err := client.Call(context.Background(), Request{
		Endpoint: server.URL,
		Method:   http.MethodGet,
		Query:    url.Values{"currency": {"USD"}, "providerCode": {"ecocash"}},
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if gotQuery.Get("currency") != "USD" || gotQuery.Get("providerCode") != "ecocash" {
		t.Errorf("query = %v, want currency=USD providerCode=ecocash", gotQuery)
	}
}

func TestCallRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := New(Config{MaxRetries: 2})
	client.http.RetryWaitMin = time.Millisecond
	client.http.RetryWaitMax = 2 * time.Millisecond

	result, err := client.Call(context.Background(), Request{Endpoint: server.URL, Method: http.MethodGet})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result["ok"] != true {
		t.Errorf("result = %v, want ok=true", result)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2 (one retry)", got)
	}
}

func TestCallDoesNotRetryTerminalStatus(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("token expired"))
	}))
	defer server.Close()

	client := New(Config{MaxRetries: 3})
	_, err := client.Call(context.Background(), Request{Endpoint: server.URL, Method: http.MethodGet, Token: "stale"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want exactly 1", got)
	}
}
