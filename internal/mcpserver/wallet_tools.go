package mcpserver

import (
	"context"
	"net/url"
)

// WalletBalanceInput selects the currency and provider for a balance lookup.
type WalletBalanceInput struct {
	Currency          string `json:"currency,omitempty" jsonschema:"The currency code for the balance inquiry" validate:"omitempty,oneof=USD EUR GBP ZWL"`
	ProviderCode      string `json:"provider_code,omitempty" jsonschema:"The payment provider code" validate:"omitempty,oneof=ecocash onemoney telecash"`
	AutoGenerateToken *bool  `json:"auto_generate_token,omitempty" jsonschema:"Whether to automatically generate a new token if none exists"`
}

// GetWalletBalance fetches the wallet balance for a currency and provider.
func (h *Handlers) GetWalletBalance(ctx context.Context, in WalletBalanceInput) (map[string]any, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	currency := valueOr(in.Currency, "USD")
	providerCode := valueOr(in.ProviderCode, "ecocash")

	token, err := h.token(ctx, in.AutoGenerateToken)
	if err != nil {
		return nil, err
	}

	result, err := h.gateway.Call(ctx, gatewayGet(h.cfg.Endpoints.WalletBalance, token, url.Values{
		"currency":     {currency},
		"providerCode": {providerCode},
	}))
	if err != nil {
		return nil, err
	}

	result["request_info"] = map[string]any{
		"currency":      currency,
		"provider_code": providerCode,
		"tool":          "get_wallet_balance",
	}
	return result, nil
}

// TransactionHistoryInput selects the page window and currency. Pointer
// fields distinguish "omitted, use the default" from an explicit zero.
type TransactionHistoryInput struct {
	Page              *int   `json:"page,omitempty" jsonschema:"Page number for pagination (0-based)" validate:"omitempty,min=0"`
	PageSize          *int   `json:"pageSize,omitempty" jsonschema:"Number of transactions per page (1-100)" validate:"omitempty,min=1,max=100"`
	Currency          string `json:"currency,omitempty" jsonschema:"Currency for wallet transaction history" validate:"omitempty,oneof=USD EUR GBP ZWL"`
	AutoGenerateToken *bool  `json:"auto_generate_token,omitempty" jsonschema:"Whether to automatically generate a new token if none exists"`
}

// GetWalletTransactionHistory fetches the authenticated user's transaction
// history. The endpoint is a POST carrying PIN verification alongside the
// pagination window.
func (h *Handlers) GetWalletTransactionHistory(ctx context.Context, in TransactionHistoryInput) (map[string]any, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	page := intOr(in.Page, 0)
	pageSize := intOr(in.PageSize, 20)
	currency := valueOr(in.Currency, "USD")

	token, err := h.token(ctx, in.AutoGenerateToken)
	if err != nil {
		return nil, err
	}

	result, err := h.gateway.Call(ctx, gatewayPost(h.cfg.Endpoints.TransactionHistory, token, map[string]any{
		"pin":      h.cfg.PIN, // PIN verification is required in-band
		"currency": currency,
		"page":     page,
		"pageSize": pageSize,
	}))
	if err != nil {
		return nil, err
	}

	result["request_info"] = map[string]any{
		"page":     page,
		"pageSize": pageSize,
		"currency": currency,
		"tool":     "get_wallet_transaction_history",
	}
	return result, nil
}

// LinkedCardsInput toggles token auto-generation.
type LinkedCardsInput struct {
	AutoGenerateToken *bool `json:"auto_generate_token,omitempty" jsonschema:"Whether to automatically generate a new token if none exists"`
}

// GetLinkedCards fetches the cards linked to the wallet.
func (h *Handlers) GetLinkedCards(ctx context.Context, in LinkedCardsInput) (map[string]any, error) {
	token, err := h.token(ctx, in.AutoGenerateToken)
	if err != nil {
		return nil, err
	}

	result, err := h.gateway.Call(ctx, gatewayGet(h.cfg.Endpoints.LinkedCards, token, nil))
	if err != nil {
		return nil, err
	}

	result["request_info"] = map[string]any{"tool": "get_linked_cards"}
	return result, nil
}

// AirtimePlansInput selects the provider whose plans to list.
type AirtimePlansInput struct {
	ProviderCode      string `json:"provider_code,omitempty" jsonschema:"The mobile provider whose airtime plans to list" validate:"omitempty,oneof=ecocash onemoney telecash"`
	AutoGenerateToken *bool  `json:"auto_generate_token,omitempty" jsonschema:"Whether to automatically generate a new token if none exists"`
}

// GetAirtimePlans fetches available airtime plans.
func (h *Handlers) GetAirtimePlans(ctx context.Context, in AirtimePlansInput) (map[string]any, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	token, err := h.token(ctx, in.AutoGenerateToken)
	if err != nil {
		return nil, err
	}

	var params url.Values
	if in.ProviderCode != "" {
		params = url.Values{"providerCode": {in.ProviderCode}}
	}
	result, err := h.gateway.Call(ctx, gatewayGet(h.cfg.Endpoints.AirtimePlans, token, params))
	if err != nil {
		return nil, err
	}

	result["request_info"] = map[string]any{
		"provider_code": in.ProviderCode,
		"tool":          "get_airtime_plans",
	}
	return result, nil
}

// CustomerProfileInput toggles token auto-generation.
type CustomerProfileInput struct {
	AutoGenerateToken *bool `json:"auto_generate_token,omitempty" jsonschema:"Whether to automatically generate a new token if none exists"`
}

// GetCustomerProfile fetches the authenticated user's profile information.
func (h *Handlers) GetCustomerProfile(ctx context.Context, in CustomerProfileInput) (map[string]any, error) {
	token, err := h.token(ctx, in.AutoGenerateToken)
	if err != nil {
		return nil, err
	}

	result, err := h.gateway.Call(ctx, gatewayGet(h.cfg.Endpoints.CustomerProfile, token, nil))
	if err != nil {
		return nil, err
	}

	result["request_info"] = map[string]any{"tool": "get_customer_profile"}
	return result, nil
}

// VerifyPinInput toggles token auto-generation.
type VerifyPinInput struct {
	AutoGenerateToken *bool `json:"auto_generate_token,omitempty" jsonschema:"Whether to automatically generate a new token if none exists"`
}

// VerifyPin runs the gateway's PIN verification with the configured PIN.
func (h *Handlers) VerifyPin(ctx context.Context, in VerifyPinInput) (map[string]any, error) {
	token, err := h.token(ctx, in.AutoGenerateToken)
	if err != nil {
		return nil, err
	}

	result, err := h.gateway.Call(ctx, gatewayPost(h.cfg.Endpoints.PinVerify, token, map[string]any{
		"pin": h.cfg.PIN,
	}))
	if err != nil {
		return nil, err
	}

	result["request_info"] = map[string]any{"tool": "verify_pin"}
	return result, nil
}
