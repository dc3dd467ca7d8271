package app

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Transport selects how the MCP session is served.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportSSE   Transport = "sse"
	TransportHTTP  Transport = "http"
)

// Environment selects which gateway deployment to talk to.
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

// Default configuration values
const (
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigTransport       = TransportSSE
	DefaultConfigServerHost      = "localhost"
	DefaultConfigServerPort      = 8000
	DefaultConfigServerPath      = "/sse"
	DefaultConfigShutdownTimeout = 5 * time.Second

	DefaultConfigName    = "SasaiWalletOperationsServer"
	DefaultConfigVersion = "2.0.0"

	DefaultConfigGatewayEnvironment = EnvironmentSandbox
	DefaultConfigGatewayClientID    = "sasai-pay-client"
	DefaultConfigGatewayTenantID    = "sasai"
	DefaultConfigGatewayDeviceType  = "ios"
	DefaultConfigGatewayUserAgent   = "SasaiWalletServer/2.0.0"
	DefaultConfigGatewayTimeout     = 30 * time.Second
	DefaultConfigGatewayMaxRetries  = 3

	DefaultConfigRAGServiceURL  = "http://localhost:8000/api/retriever"
	DefaultConfigRAGTenantSubID = "wallet"
	DefaultConfigRAGKnowledge   = "sasai-compliance-kb"
	DefaultConfigRAGProvider    = "azure-openai-llm-gpt-4o-mini"
)

// gatewayBaseURLs maps an environment to its gateway deployment.
var gatewayBaseURLs = map[Environment]string{
	EnvironmentSandbox:    "https://sandbox.sasaipaymentgateway.com",
	EnvironmentProduction: "https://api.sasaipaymentgateway.com",
}

// endpointPaths are the gateway API paths, appended to the base URL when the
// corresponding endpoint is not configured explicitly.
var endpointPaths = EndpointsConfig{
	Login:              "/bff/v2/auth/token",
	PinVerify:          "/bff/v4/auth/pin/verify",
	RefreshToken:       "/bff/v3/user/refreshToken",
	WalletBalance:      "/bff/v1/wallet/profile/balance",
	TransactionHistory: "/bff/v1/wallet/profile/transaction-history",
	LinkedCards:        "/bff/v1/wallet/linked-cards",
	AirtimePlans:       "/bff/v1/airtime/plans",
	CustomerProfile:    "/bff/v1/wallet/profile/cust-info",
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type

	// Path is where HTTP transports mount the MCP handler.
	Path string `json:"path"`
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// EndpointsConfig holds the full gateway endpoint URLs. Unset entries are
// derived from the base URL during ApplyDefaults.
type EndpointsConfig struct {
	Login              string `json:"login" validate:"omitempty,url"`
	PinVerify          string `json:"pin_verify" validate:"omitempty,url"`
	RefreshToken       string `json:"refresh_token" validate:"omitempty,url"`
	WalletBalance      string `json:"wallet_balance" validate:"omitempty,url"`
	TransactionHistory string `json:"transaction_history" validate:"omitempty,url"`
	LinkedCards        string `json:"linked_cards" validate:"omitempty,url"`
	AirtimePlans       string `json:"airtime_plans" validate:"omitempty,url"`
	CustomerProfile    string `json:"customer_profile" validate:"omitempty,url"`
}

// GatewayConfig holds payment gateway connection settings.
type GatewayConfig struct {
	Environment Environment `json:"environment" validate:"oneof=sandbox production"`

	// BaseURL overrides the environment-derived gateway URL when set.
	BaseURL string `json:"base_url" validate:"omitempty,url"`

	ClientID   string `json:"client_id"`
	TenantID   string `json:"tenant_id"`
	DeviceType string `json:"device_type"`
	UserAgent  string `json:"user_agent"`

	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries" validate:"min=0"`

	Endpoints EndpointsConfig `json:"endpoints"`
}

// AuthConfig holds the gateway login credentials. Credentials are not
// required for startup; tools that need them fail with a reported issue, and
// get_server_status surfaces what is missing.
type AuthConfig struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	PIN             string `json:"pin"`
	UserReferenceID string `json:"user_reference_id"`
}

// RAGConfig holds the compliance retrieval service settings.
type RAGConfig struct {
	ServiceURL       string        `json:"service_url" validate:"omitempty,url"`
	TenantID         string        `json:"tenant_id"`
	TenantSubID      string        `json:"tenant_sub_id"`
	KnowledgeBaseID  string        `json:"knowledge_base_id"`
	ProviderConfigID string        `json:"provider_config_id"`
	Timeout          time.Duration `json:"timeout"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level `json:"log_level"`
	LogFormat LogFormat  `json:"log_format" validate:"oneof=text json"`

	Name    string `json:"name"`
	Version string `json:"version"`

	Transport Transport      `json:"transport" validate:"oneof=stdio sse http"`
	Server    ServerConfig   `json:"server"`
	Shutdown  ShutdownConfig `json:"shutdown"`
	Gateway   GatewayConfig  `json:"gateway"`
	Auth      AuthConfig     `json:"auth"`
	RAG       RAGConfig      `json:"rag"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults, including
// deriving the gateway base URL from the environment and every endpoint from
// the base URL.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Name == "" {
		c.Name = DefaultConfigName
	}
	if c.Version == "" {
		c.Version = DefaultConfigVersion
	}
	if c.Transport == "" {
		c.Transport = DefaultConfigTransport
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Server.Path == "" {
		c.Server.Path = DefaultConfigServerPath
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}

	if c.Gateway.Environment == "" {
		c.Gateway.Environment = DefaultConfigGatewayEnvironment
	}
	if c.Gateway.BaseURL == "" {
		base, ok := gatewayBaseURLs[c.Gateway.Environment]
		if !ok {
			return fmt.Errorf("no gateway base URL for environment %q", c.Gateway.Environment)
		}
		c.Gateway.BaseURL = base
	}
	c.Gateway.BaseURL = strings.TrimRight(c.Gateway.BaseURL, "/")
	if c.Gateway.ClientID == "" {
		c.Gateway.ClientID = DefaultConfigGatewayClientID
	}
	if c.Gateway.TenantID == "" {
		c.Gateway.TenantID = DefaultConfigGatewayTenantID
	}
	if c.Gateway.DeviceType == "" {
		c.Gateway.DeviceType = DefaultConfigGatewayDeviceType
	}
	if c.Gateway.UserAgent == "" {
		c.Gateway.UserAgent = DefaultConfigGatewayUserAgent
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = DefaultConfigGatewayTimeout
	}
	if c.Gateway.MaxRetries == 0 {
		c.Gateway.MaxRetries = DefaultConfigGatewayMaxRetries
	}
	c.applyEndpointDefaults()

	if c.RAG.ServiceURL == "" {
		c.RAG.ServiceURL = DefaultConfigRAGServiceURL
	}
	if c.RAG.TenantID == "" {
		c.RAG.TenantID = DefaultConfigGatewayTenantID
	}
	if c.RAG.TenantSubID == "" {
		c.RAG.TenantSubID = DefaultConfigRAGTenantSubID
	}
	if c.RAG.KnowledgeBaseID == "" {
		c.RAG.KnowledgeBaseID = DefaultConfigRAGKnowledge
	}
	if c.RAG.ProviderConfigID == "" {
		c.RAG.ProviderConfigID = DefaultConfigRAGProvider
	}
	if c.RAG.Timeout == 0 {
		c.RAG.Timeout = DefaultConfigGatewayTimeout
	}

	return nil
}

func (c *Config) applyEndpointDefaults() {
	derive := func(target *string, path string) {
		if *target == "" {
			*target = c.Gateway.BaseURL + path
		}
	}
	derive(&c.Gateway.Endpoints.Login, endpointPaths.Login)
	derive(&c.Gateway.Endpoints.PinVerify, endpointPaths.PinVerify)
	derive(&c.Gateway.Endpoints.RefreshToken, endpointPaths.RefreshToken)
	derive(&c.Gateway.Endpoints.WalletBalance, endpointPaths.WalletBalance)
	derive(&c.Gateway.Endpoints.TransactionHistory, endpointPaths.TransactionHistory)
	derive(&c.Gateway.Endpoints.LinkedCards, endpointPaths.LinkedCards)
	derive(&c.Gateway.Endpoints.AirtimePlans, endpointPaths.AirtimePlans)
	derive(&c.Gateway.Endpoints.CustomerProfile, endpointPaths.CustomerProfile)
}

// Validate validates the configuration using struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Diagnostics reports non-fatal configuration problems: the server still
// starts, read-only and knowledge tools keep working, and get_server_status
// surfaces the list.
func (c *Config) Diagnostics() []string {
	var issues []string
	if c.Auth.Username == "" {
		issues = append(issues, "auth.username is not configured; generate_token will fail")
	}
	if c.Auth.Password == "" {
		issues = append(issues, "auth.password is not configured; generate_token will fail")
	}
	if c.Auth.PIN == "" {
		issues = append(issues, "auth.pin is not configured; PIN-verified operations will fail")
	}
	if c.Auth.UserReferenceID == "" {
		issues = append(issues, "auth.user_reference_id is not configured")
	}
	return issues
}
