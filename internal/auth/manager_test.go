package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sasaipay/wallet-mcp/internal/gateway"
	"github.com/sasaipay/wallet-mcp/internal/tokenstore"
)

func newTestManager(t *testing.T, handler http.Handler) (*Manager, *tokenstore.Store, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := tokenstore.New()
	manager := NewManager(Config{
		Store:  store,
		Client: gateway.New(gateway.Config{}),
		Credentials: Credentials{
			Username:        "user",
			Password:        "pass",
			PIN:             "encrypted-pin",
			UserReferenceID: "ref-1",
		},
		LoginURL:   server.URL + "/bff/v2/auth/token",
		RefreshURL: server.URL + "/bff/v3/user/refreshToken",
	})
	return manager, store, server
}

func TestLoginStoresToken(t *testing.T) {
	var gotPayload map[string]any
	manager, store, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"accessToken": "abc123", "expiresIn": 3600},
		})
	}))

	result, err := manager.Login(context.Background())
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result == nil {
		t.Fatal("Login returned nil result")
	}

	if gotPayload["username"] != "user" || gotPayload["pin"] != "encrypted-pin" {
		t.Errorf("login payload = %v, want credentials from config", gotPayload)
	}

	token, ok := store.Get()
	if !ok || token != "abc123" {
		t.Fatalf("stored token = %q (present=%v), want abc123", token, ok)
	}
	meta := store.Metadata()
	if meta["source"] != "login" {
		t.Errorf("metadata source = %v, want login", meta["source"])
	}
	if meta["expires_in"] != float64(3600) {
		t.Errorf("metadata expires_in = %v, want 3600", meta["expires_in"])
	}
}

func TestLoginFailureIsAuthenticationError(t *testing.T) {
	manager, store, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad credentials"))
	}))

	_, err := manager.Login(context.Background())

	var authErr *gateway.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthenticationError", err)
	}
	var apiErr *gateway.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("AuthenticationError should wrap the underlying APIError, got %v", err)
	}
	if store.Has() {
		t.Error("failed login must not store a token")
	}
}

func TestLoginResponseWithoutToken(t *testing.T) {
	manager, _, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))

	_, err := manager.Login(context.Background())
	var authErr *gateway.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthenticationError", err)
	}
}

func TestEnsureTokenReusesStoredToken(t *testing.T) {
	var logins atomic.Int64
	manager, store, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		_, _ = w.Write([]byte(`{"token": "fresh"}`))
	}))

	store.Set("existing", nil)
	token, err := manager.EnsureToken(context.Background())
	if err != nil {
		t.Fatalf("EnsureToken failed: %v", err)
	}
	if token != "existing" {
		t.Errorf("token = %q, want the stored token", token)
	}
	if logins.Load() != 0 {
		t.Errorf("logins = %d, want 0 when a token is stored", logins.Load())
	}
}

func TestEnsureTokenSingleLoginUnderConcurrency(t *testing.T) {
	var logins atomic.Int64
	manager, _, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		_, _ = w.Write([]byte(`{"token": "fresh"}`))
	}))

	var wg sync.WaitGroup
	errs := make([]error, 20)
	tokens := make([]string, 20)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens[i], errs[i] = manager.EnsureToken(context.Background())
		}()
	}
	wg.Wait()

	for i := range 20 {
		if errs[i] != nil {
			t.Fatalf("EnsureToken[%d] failed: %v", i, errs[i])
		}
		if tokens[i] != "fresh" {
			t.Errorf("token[%d] = %q, want fresh", i, tokens[i])
		}
	}
	if got := logins.Load(); got != 1 {
		t.Errorf("login exchanges = %d, want exactly 1", got)
	}
}

func TestRefresh(t *testing.T) {
	manager, store, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer old-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"token": "new-token"}`))
	}))

	t.Run("without a stored token", func(t *testing.T) {
		_, err := manager.Refresh(context.Background())
		var authErr *gateway.AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("err = %v, want AuthenticationError", err)
		}
	})

	t.Run("replaces the stored token", func(t *testing.T) {
		store.Set("old-token", map[string]any{"source": "login"})
		if _, err := manager.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		token, _ := store.Get()
		if token != "new-token" {
			t.Errorf("token = %q, want new-token", token)
		}
		if store.Metadata()["source"] != "refresh" {
			t.Errorf("metadata source = %v, want refresh", store.Metadata()["source"])
		}
	})
}

func TestRefreshSendsTokenStoredByConcurrentLogin(t *testing.T) {
	loginEntered := make(chan struct{})
	releaseLogin := make(chan struct{})
	var refreshAuth atomic.Value

	manager, store, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bff/v2/auth/token":
			close(loginEntered)
			<-releaseLogin
			_, _ = w.Write([]byte(`{"token": "fresh-token"}`))
		case "/bff/v3/user/refreshToken":
			refreshAuth.Store(r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"token": "refreshed"}`))
		default:
			http.NotFound(w, r)
		}
	}))

	store.Set("old-token", nil)

	loginDone := make(chan error, 1)
	go func() {
		_, err := manager.Login(context.Background())
		loginDone <- err
	}()
	<-loginEntered

	// The login exchange holds the mutation lock; Refresh must wait for it
	// and then carry the token the login stored, not the one it would have
	// seen before the exchange completed.
	refreshDone := make(chan error, 1)
	go func() {
		_, err := manager.Refresh(context.Background())
		refreshDone <- err
	}()
	close(releaseLogin)

	if err := <-loginDone; err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := <-refreshDone; err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if got, _ := refreshAuth.Load().(string); got != "Bearer fresh-token" {
		t.Errorf("refresh Authorization = %q, want the token stored by the login", got)
	}
	token, _ := store.Get()
	if token != "refreshed" {
		t.Errorf("stored token = %q, want refreshed", token)
	}
}

func TestClear(t *testing.T) {
	manager, store, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	store.Set("token", nil)
	if !manager.Clear() {
		t.Error("Clear() = false with a stored token")
	}
	if manager.Clear() {
		t.Error("second Clear() = true, want false")
	}
}
