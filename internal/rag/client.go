// Package rag queries the compliance retrieval service for scored document
// chunks. The service is a plain HTTP API, separate from the payment gateway;
// failures share the gateway error taxonomy so the tool boundary sees one
// contract.
package rag

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sasaipay/wallet-mcp/internal/gateway"
)

// Default retrieval parameters.
const (
	DefaultLimit    = 5
	DefaultMinScore = 0.1
	DefaultTimeout  = 30 * time.Second
)

// Config holds the retrieval service settings.
type Config struct {
	ServiceURL       string
	TenantID         string
	TenantSubID      string
	KnowledgeBaseID  string
	ProviderConfigID string
	Timeout          time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client, primarily for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// Client calls the retrieval service. One attempt per call; the original
// adapter never retried retrieval requests.
type Client struct {
	http *http.Client
	cfg  Config
}

// Query describes one retrieval request. Zero fields fall back to the
// configured defaults.
type Query struct {
	Text             string
	KnowledgeBaseID  string
	TenantID         string
	TenantSubID      string
	ProviderConfigID string
	Limit            int
	MinScore         float64
}

// Chunk is one scored text fragment from the knowledge base.
type Chunk struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
	ChunkID  string         `json:"chunk_id"`
}

// Result is a normalized retrieval response.
type Result struct {
	Chunks        []Chunk
	QueryMetadata map[string]any
}

// New creates a Client.
func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		http: &http.Client{Timeout: timeout},
		cfg:  cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// KnowledgeBaseID reports the default knowledge base queries run against.
func (c *Client) KnowledgeBaseID() string {
	return c.cfg.KnowledgeBaseID
}

// retrievalResponse accepts both response shapes the service has used: the
// canonical "results" list and the older "chunks" list.
type retrievalResponse struct {
	Results []Chunk `json:"results"`
	OldForm []Chunk `json:"chunks"`
}

// Retrieve fetches scored chunks for the query.
func (c *Client) Retrieve(ctx context.Context, q Query) (*Result, error) {
	knowledgeBase := valueOr(q.KnowledgeBaseID, c.cfg.KnowledgeBaseID)
	tenantID := valueOr(q.TenantID, c.cfg.TenantID)
	tenantSubID := valueOr(q.TenantSubID, c.cfg.TenantSubID)
	providerConfig := valueOr(q.ProviderConfigID, c.cfg.ProviderConfigID)
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	minScore := q.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	endpoint := strings.TrimRight(c.cfg.ServiceURL, "/") + "/" + knowledgeBase
	params := url.Values{
		"query":              {q.Text},
		"provider_config_id": {providerConfig},
		"limit":              {strconv.Itoa(limit)},
		"min_score":          {strconv.FormatFloat(minScore, 'f', -1, 64)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &gateway.APIError{Endpoint: endpoint, Message: "building request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)
	req.Header.Set("X-Tenant-Sub-ID", tenantSubID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &gateway.APIError{Endpoint: endpoint, Message: "retrieval service unreachable: " + err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &gateway.APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: "reading response body: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &gateway.APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: string(body)}
	}

	var decoded retrievalResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &gateway.APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: "invalid JSON from retrieval service: " + err.Error()}
	}

	chunks := decoded.Results
	if len(chunks) == 0 {
		chunks = decoded.OldForm
	}

	return &Result{
		Chunks: chunks,
		QueryMetadata: map[string]any{
			"original_query":     q.Text,
			"knowledge_base_id":  knowledgeBase,
			"tenant_id":          tenantID,
			"tenant_sub_id":      tenantSubID,
			"provider_config_id": providerConfig,
			"limit":              limit,
			"min_score":          minScore,
			"retrieval_url":      endpoint,
		},
	}, nil
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
