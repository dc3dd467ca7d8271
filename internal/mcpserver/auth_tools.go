package mcpserver

import (
	"context"
)

// GenerateTokenInput has no arguments; credentials come from configuration.
type GenerateTokenInput struct{}

// GenerateToken performs the login exchange against the gateway and stores
// the resulting token, replacing any previous one.
func (h *Handlers) GenerateToken(ctx context.Context, _ GenerateTokenInput) (map[string]any, error) {
	if _, err := h.auth.Login(ctx); err != nil {
		return nil, err
	}

	return map[string]any{
		"success":      true,
		"message":      "authentication token generated and stored",
		"token_status": h.store.Status(),
		"request_info": map[string]any{"tool": "generate_token"},
	}, nil
}

// TokenStatusInput has no arguments.
type TokenStatusInput struct{}

// GetTokenStatus reports the diagnostic token snapshot without side effects.
func (h *Handlers) GetTokenStatus(_ context.Context, _ TokenStatusInput) (map[string]any, error) {
	return map[string]any{
		"token_status": h.store.Status(),
		"request_info": map[string]any{"tool": "get_token_status"},
	}, nil
}

// ClearTokenInput has no arguments.
type ClearTokenInput struct{}

// ClearToken removes the stored token, returning the auth flow to the
// unauthenticated state. Clearing an empty store is not an error.
func (h *Handlers) ClearToken(_ context.Context, _ ClearTokenInput) (map[string]any, error) {
	cleared := h.auth.Clear()
	message := "no token was stored"
	if cleared {
		message = "authentication token cleared"
	}
	return map[string]any{
		"cleared":      cleared,
		"message":      message,
		"request_info": map[string]any{"tool": "clear_token"},
	}, nil
}

// RefreshSessionInput has no arguments.
type RefreshSessionInput struct{}

// RefreshSession exchanges the stored token for a fresh one via the refresh
// endpoint.
func (h *Handlers) RefreshSession(ctx context.Context, _ RefreshSessionInput) (map[string]any, error) {
	if _, err := h.auth.Refresh(ctx); err != nil {
		return nil, err
	}
	return map[string]any{
		"success":      true,
		"message":      "session token refreshed",
		"token_status": h.store.Status(),
		"request_info": map[string]any{"tool": "refresh_session"},
	}, nil
}

// ServerStatusInput has no arguments.
type ServerStatusInput struct{}

// GetServerStatus reports the configuration snapshot and token state for
// health monitoring.
func (h *Handlers) GetServerStatus(_ context.Context, _ ServerStatusInput) (map[string]any, error) {
	issues := h.cfg.Issues
	if issues == nil {
		issues = []string{}
	}
	return map[string]any{
		"server":       h.cfg.Name,
		"version":      h.cfg.Version,
		"environment":  h.cfg.Environment,
		"base_url":     h.cfg.BaseURL,
		"valid":        len(issues) == 0,
		"issues":       issues,
		"token_status": h.store.Status(),
		"request_info": map[string]any{"tool": "get_server_status"},
	}, nil
}
