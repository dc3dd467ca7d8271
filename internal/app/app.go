package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/sasaipay/wallet-mcp/internal/auth"
	"github.com/sasaipay/wallet-mcp/internal/gateway"
	"github.com/sasaipay/wallet-mcp/internal/mcpserver"
	"github.com/sasaipay/wallet-mcp/internal/rag"
	"github.com/sasaipay/wallet-mcp/internal/tokenstore"
)

// App orchestrates the lifecycle of the MCP server and related services.
type App struct {
	cfg    *Config
	server *mcpserver.Server
}

// New creates a new App instance, wiring the token store, gateway client,
// auth manager, retrieval client, and tool server from configuration.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store := tokenstore.New()

	gatewayClient := gateway.New(gateway.Config{
		Timeout:    cfg.Gateway.Timeout,
		MaxRetries: cfg.Gateway.MaxRetries,
		UserAgent:  cfg.Gateway.UserAgent,
		DefaultHeaders: map[string]string{
			"X-Client-Id":   cfg.Gateway.ClientID,
			"X-Tenant-ID":   cfg.Gateway.TenantID,
			"X-Device-Type": cfg.Gateway.DeviceType,
		},
	})

	authManager := auth.NewManager(auth.Config{
		Store:  store,
		Client: gatewayClient,
		Credentials: auth.Credentials{
			Username:        cfg.Auth.Username,
			Password:        cfg.Auth.Password,
			PIN:             cfg.Auth.PIN,
			UserReferenceID: cfg.Auth.UserReferenceID,
		},
		LoginURL:   cfg.Gateway.Endpoints.Login,
		RefreshURL: cfg.Gateway.Endpoints.RefreshToken,
	})

	ragClient := rag.New(rag.Config{
		ServiceURL:       cfg.RAG.ServiceURL,
		TenantID:         cfg.RAG.TenantID,
		TenantSubID:      cfg.RAG.TenantSubID,
		KnowledgeBaseID:  cfg.RAG.KnowledgeBaseID,
		ProviderConfigID: cfg.RAG.ProviderConfigID,
		Timeout:          cfg.RAG.Timeout,
	})

	handlers := mcpserver.NewHandlers(mcpserver.Config{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Environment: string(cfg.Gateway.Environment),
		BaseURL:     cfg.Gateway.BaseURL,
		Path:        cfg.Server.Path,
		PIN:         cfg.Auth.PIN,
		Endpoints: mcpserver.Endpoints{
			PinVerify:          cfg.Gateway.Endpoints.PinVerify,
			WalletBalance:      cfg.Gateway.Endpoints.WalletBalance,
			TransactionHistory: cfg.Gateway.Endpoints.TransactionHistory,
			LinkedCards:        cfg.Gateway.Endpoints.LinkedCards,
			AirtimePlans:       cfg.Gateway.Endpoints.AirtimePlans,
			CustomerProfile:    cfg.Gateway.Endpoints.CustomerProfile,
		},
		Issues: cfg.Diagnostics(),
	}, store, authManager, gatewayClient, ragClient)

	return &App{
		cfg:    cfg,
		server: mcpserver.NewServer(handlers),
	}, nil
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	if a.cfg.Transport == TransportStdio {
		// Stdio is a single blocking session; no HTTP lifecycle to manage.
		slog.InfoContext(ctx, "serving MCP session over stdio")
		return a.server.RunStdio(ctx)
	}

	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Server.Host + ":" + strconv.FormatUint(uint64(a.cfg.Server.Port), 10)
	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting MCP server",
		"address", address,
		"transport", a.cfg.Transport,
		"path", a.cfg.Server.Path,
	)
	serverErrCh, err := a.server.Start(gCtx, address, string(a.cfg.Transport))
	if err != nil {
		return fmt.Errorf("server startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.server.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-serverErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "server runtime error", "error", err)
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "application ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
