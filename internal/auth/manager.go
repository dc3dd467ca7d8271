// Package auth drives the token lifecycle against the gateway's login and
// refresh endpoints: NoToken -> Authenticating -> Authenticated, back to
// NoToken on an explicit clear.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sasaipay/wallet-mcp/internal/gateway"
	"github.com/sasaipay/wallet-mcp/internal/tokenstore"
)

// Credentials are the gateway login inputs, supplied by configuration.
type Credentials struct {
	Username        string
	Password        string
	PIN             string
	UserReferenceID string
}

// Config wires a Manager.
type Config struct {
	Store       *tokenstore.Store
	Client      *gateway.Client
	Credentials Credentials
	LoginURL    string
	RefreshURL  string
}

// Manager owns token acquisition. Reads go straight to the store; mutation
// (login, refresh) is serialized so concurrent unauthenticated calls perform
// at most one login exchange.
type Manager struct {
	store  *tokenstore.Store
	client *gateway.Client
	creds  Credentials

	loginURL   string
	refreshURL string

	mu sync.Mutex
}

// NewManager creates a Manager.
func NewManager(cfg Config) *Manager {
	return &Manager{
		store:      cfg.Store,
		client:     cfg.Client,
		creds:      cfg.Credentials,
		loginURL:   cfg.LoginURL,
		refreshURL: cfg.RefreshURL,
	}
}

// EnsureToken returns the stored token, performing the login exchange first
// when none is present. The double-check under the mutex means concurrent
// callers wait for a single in-flight login instead of issuing their own.
func (m *Manager) EnsureToken(ctx context.Context) (string, error) {
	if token, ok := m.store.Get(); ok {
		return token, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if token, ok := m.store.Get(); ok {
		return token, nil
	}

	if _, err := m.login(ctx); err != nil {
		return "", err
	}
	token, _ := m.store.Get()
	return token, nil
}

// Login performs the login exchange unconditionally, replacing any stored
// token, and returns the raw gateway response.
func (m *Manager) Login(ctx context.Context) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.login(ctx)
}

func (m *Manager) login(ctx context.Context) (map[string]any, error) {
	slog.DebugContext(ctx, "performing gateway login exchange")

	result, err := m.client.Call(ctx, gateway.Request{
		Endpoint: m.loginURL,
		Method:   http.MethodPost,
		Body: map[string]any{
			"username":        m.creds.Username,
			"password":        m.creds.Password,
			"pin":             m.creds.PIN,
			"userReferenceId": m.creds.UserReferenceID,
		},
	})
	if err != nil {
		return nil, &gateway.AuthenticationError{Message: "login exchange failed", Err: err}
	}

	token, ok := extractToken(result)
	if !ok {
		return nil, &gateway.AuthenticationError{Message: "login response contained no token"}
	}

	m.storeToken(ctx, token, result, "login")
	return result, nil
}

// Refresh exchanges the current token for a fresh one via the refresh
// endpoint. Fails with an AuthenticationError when no token is stored.
// The token is read under the mutation lock so an in-flight login or refresh
// cannot leave this exchange holding a replaced token.
func (m *Manager) Refresh(ctx context.Context) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.store.Get()
	if !ok {
		return nil, &gateway.AuthenticationError{Message: "no token to refresh"}
	}

	result, err := m.client.Call(ctx, gateway.Request{
		Endpoint:    m.refreshURL,
		Method:      http.MethodPost,
		Token:       token,
		RequireAuth: true,
		Body: map[string]any{
			"userReferenceId": m.creds.UserReferenceID,
		},
	})
	if err != nil {
		return nil, err
	}

	fresh, ok := extractToken(result)
	if !ok {
		return nil, &gateway.AuthenticationError{Message: "refresh response contained no token"}
	}

	m.storeToken(ctx, fresh, result, "refresh")
	return result, nil
}

// Clear removes the stored token, returning the flow to NoToken. Reports
// whether a token was present.
func (m *Manager) Clear() bool {
	return m.store.Clear()
}

func (m *Manager) storeToken(ctx context.Context, token string, result map[string]any, source string) {
	metadata := map[string]any{
		"issued_at": time.Now().UTC().Format(time.RFC3339),
		"source":    source,
	}
	if expiry, ok := extractExpiry(result); ok {
		metadata["expires_in"] = expiry
	}

	m.store.Set(token, metadata)
	slog.InfoContext(ctx, "stored gateway token", "source", source, "token_length", len(token))
}

// extractToken finds the credential in a login or refresh response. The
// gateway has shipped it under several names and nesting levels over time.
func extractToken(result map[string]any) (string, bool) {
	for _, doc := range documents(result) {
		for _, key := range []string{"token", "accessToken", "access_token"} {
			if value, ok := doc[key].(string); ok && value != "" {
				return value, true
			}
		}
	}
	return "", false
}

func extractExpiry(result map[string]any) (any, bool) {
	for _, doc := range documents(result) {
		for _, key := range []string{"expiresIn", "expires_in"} {
			if value, ok := doc[key]; ok {
				return value, true
			}
		}
	}
	return nil, false
}

func documents(result map[string]any) []map[string]any {
	docs := []map[string]any{result}
	if nested, ok := result["data"].(map[string]any); ok {
		docs = append(docs, nested)
	}
	return docs
}
