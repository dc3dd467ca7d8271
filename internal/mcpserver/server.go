package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `Sasai wallet operations server. Call generate_token before wallet
operations, or pass auto_generate_token (the default) to let each tool
authenticate on demand. Compliance knowledge tools query the retrieval
service directly and need no token.`

// Transport names accepted by Start.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
	TransportHTTP  = "http"
)

// Server hosts the MCP tool set over stdio or HTTP transports.
type Server struct {
	mcp      *mcp.Server
	handlers *Handlers
	server   *http.Server
}

// NewServer creates the MCP server and registers all tools.
func NewServer(handlers *Handlers) *Server {
	impl := &mcp.Implementation{
		Name:    handlers.cfg.Name,
		Version: handlers.cfg.Version,
	}
	s := &Server{
		mcp:      mcp.NewServer(impl, &mcp.ServerOptions{Instructions: serverInstructions}),
		handlers: handlers,
	}
	s.registerTools()
	return s
}

// toolHandler adapts a plain handler method to the SDK's typed signature.
// Returning the map as structured output lets the SDK serialize the result;
// errors propagate unchanged so clients see the error taxonomy messages.
func toolHandler[In any](fn func(context.Context, In) (map[string]any, error)) mcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		out, err := fn(ctx, in)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	}
}

func (s *Server) registerTools() {
	h := s.handlers

	// Token lifecycle
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "generate_token",
		Description: "Authenticate against the payment gateway and store the session token, replacing any previous one.",
	}, toolHandler(h.GenerateToken))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_token_status",
		Description: "Report whether a session token is stored, with a safe preview and metadata. Read-only.",
	}, toolHandler(h.GetTokenStatus))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_token",
		Description: "Remove the stored session token. Safe to call when no token is stored.",
	}, toolHandler(h.ClearToken))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "refresh_session",
		Description: "Exchange the stored session token for a fresh one via the gateway refresh endpoint.",
	}, toolHandler(h.RefreshSession))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_server_status",
		Description: "Report server configuration, detected configuration issues, and token state.",
	}, toolHandler(h.GetServerStatus))

	// Wallet operations
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_wallet_balance",
		Description: "Get the wallet balance for a currency and payment provider.",
	}, toolHandler(h.GetWalletBalance))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_wallet_transaction_history",
		Description: "Get paginated wallet transaction history. Requires PIN verification in-band.",
	}, toolHandler(h.GetWalletTransactionHistory))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_linked_cards",
		Description: "List the cards linked to the wallet.",
	}, toolHandler(h.GetLinkedCards))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_airtime_plans",
		Description: "List available airtime plans, optionally filtered by mobile provider.",
	}, toolHandler(h.GetAirtimePlans))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_customer_profile",
		Description: "Get the authenticated user's customer profile.",
	}, toolHandler(h.GetCustomerProfile))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "verify_pin",
		Description: "Verify the configured wallet PIN against the gateway.",
	}, toolHandler(h.VerifyPin))

	// Compliance knowledge
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query_compliance_knowledge",
		Description: "Ask a compliance question against the knowledge base, optionally scoped to a knowledge area.",
	}, toolHandler(h.QueryComplianceKnowledge))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_compliance_policies",
		Description: "Search internal wallet policies by topic, optionally narrowed to a policy family.",
	}, toolHandler(h.SearchCompliancePolicies))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_regulatory_guidance",
		Description: "Retrieve guidance passages for a regulation within a jurisdiction.",
	}, toolHandler(h.GetRegulatoryGuidance))

	// Support
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "create_support_ticket",
		Description: "Create a support ticket for a user and return its reference.",
	}, toolHandler(h.CreateSupportTicket))
}

// RunStdio serves the MCP session over stdin/stdout and blocks until the
// client disconnects or the context is canceled. Logs must go to stderr in
// this mode; stdout carries the protocol.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// handler builds the HTTP routing for the chosen transport.
func (s *Server) handler(transport string) (http.Handler, error) {
	var mcpHandler http.Handler
	switch transport {
	case TransportSSE:
		mcpHandler = mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
	case TransportHTTP:
		mcpHandler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
	default:
		return nil, fmt.Errorf("unsupported HTTP transport: %q", transport)
	}

	logger := slog.Default()

	mux := http.NewServeMux()
	mux.Handle(s.handlers.cfg.Path, applyMiddlewares(mcpHandler,
		Logging(logger),
		Recovery,
	))
	mux.HandleFunc("GET /healthz", s.healthHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(r.Context(), w, "not found", http.StatusNotFound)
	})
	return mux, nil
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (s *Server) Start(ctx context.Context, address, transport string) (<-chan error, error) {
	handler, err := s.handler(transport)
	if err != nil {
		return nil, err
	}

	// Startup phase: Create listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	s.server = &http.Server{
		Handler:     handler,
		ReadTimeout: 30 * time.Second, // Inbound: Read entire client request (DoS protection against slow clients)
		// No WriteTimeout: SSE sessions stay open for the lifetime of the client
		IdleTimeout: 90 * time.Second, // Inbound: Keep-alive wait for next request from client
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := s.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP server.
// Returns error if shutdown fails or times out.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
