package mcpserver

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sasaipay/wallet-mcp/internal/auth"
	"github.com/sasaipay/wallet-mcp/internal/gateway"
	"github.com/sasaipay/wallet-mcp/internal/rag"
	"github.com/sasaipay/wallet-mcp/internal/tokenstore"
)

// Endpoints are the wallet API URLs the tools call.
type Endpoints struct {
	PinVerify          string
	WalletBalance      string
	TransactionHistory string
	LinkedCards        string
	AirtimePlans       string
	CustomerProfile    string
}

// Config holds the tool-facing settings.
type Config struct {
	Name        string
	Version     string
	Environment string
	BaseURL     string

	// Path is where HTTP transports mount the MCP handler.
	Path string

	// PIN is forwarded on endpoints that demand in-band PIN verification.
	PIN string

	Endpoints Endpoints

	// Issues are configuration problems detected at startup, reported by the
	// server status tool.
	Issues []string
}

// Handlers implements the tool operations. All dependencies are injected;
// there is no process-wide state.
type Handlers struct {
	cfg     Config
	store   *tokenstore.Store
	auth    *auth.Manager
	gateway *gateway.Client
	rag     *rag.Client
}

// NewHandlers creates the tool handler set.
func NewHandlers(cfg Config, store *tokenstore.Store, authManager *auth.Manager, gatewayClient *gateway.Client, ragClient *rag.Client) *Handlers {
	return &Handlers{
		cfg:     cfg,
		store:   store,
		auth:    authManager,
		gateway: gatewayClient,
		rag:     ragClient,
	}
}

// token resolves the credential for an authenticated call. With auto
// generation enabled (the default) a missing token triggers the login
// exchange; disabled, a missing token is left for the gateway client's
// precondition to reject before any network I/O.
func (h *Handlers) token(ctx context.Context, autoGenerate *bool) (string, error) {
	if autoGenerate == nil || *autoGenerate {
		return h.auth.EnsureToken(ctx)
	}
	token, _ := h.store.Get()
	return token, nil
}

// gatewayGet and gatewayPost build authenticated gateway requests; every
// wallet endpoint requires a token.
func gatewayGet(endpoint, token string, query url.Values) gateway.Request {
	return gateway.Request{
		Endpoint:    endpoint,
		Method:      http.MethodGet,
		Token:       token,
		Query:       query,
		RequireAuth: true,
	}
}

func gatewayPost(endpoint, token string, body any) gateway.Request {
	return gateway.Request{
		Endpoint:    endpoint,
		Method:      http.MethodPost,
		Token:       token,
		Body:        body,
		RequireAuth: true,
	}
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func intOr(value *int, fallback int) int {
	if value != nil {
		return *value
	}
	return fallback
}
