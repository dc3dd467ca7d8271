package mcpserver

import (
	"context"
	"fmt"

	"github.com/sasaipay/wallet-mcp/internal/rag"
)

// Retrieval budgets per knowledge tool. Broader questions get more chunks at
// a lower score floor; narrow regulatory lookups get fewer, stricter matches.
const (
	knowledgeLimit    = 10
	knowledgeMinScore = 0.1

	policyLimit    = 8
	policyMinScore = 0.15

	regulatoryLimit    = 6
	regulatoryMinScore = 0.2
)

// QueryComplianceInput asks a free-form compliance question, optionally
// scoped to a knowledge area.
type QueryComplianceInput struct {
	Query         string `json:"query" jsonschema:"The compliance question to ask" validate:"required"`
	KnowledgeArea string `json:"knowledge_area,omitempty" jsonschema:"Area to scope the question to" validate:"omitempty,oneof=general financial legal regulatory policy"`
	UserContext   string `json:"user_context,omitempty" jsonschema:"Caller context recorded with the query"`
}

// QueryComplianceKnowledge answers a compliance question from the knowledge
// base. Non-general areas are folded into the query so the retriever ranks
// area-specific passages higher.
func (h *Handlers) QueryComplianceKnowledge(ctx context.Context, in QueryComplianceInput) (map[string]any, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	area := valueOr(in.KnowledgeArea, "general")
	query := in.Query
	if area != "general" {
		query = fmt.Sprintf("%s compliance: %s", area, in.Query)
	}

	result, err := h.rag.Retrieve(ctx, rag.Query{
		Text:     query,
		Limit:    knowledgeLimit,
		MinScore: knowledgeMinScore,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"retrieved_chunks": result.Chunks,
		"total_chunks":     len(result.Chunks),
		"query":            query,
		"knowledge_base":   h.rag.KnowledgeBaseID(),
		"knowledge_area":   area,
		"user_context":     valueOr(in.UserContext, "wallet_user"),
		"query_metadata":   result.QueryMetadata,
	}, nil
}

// SearchPoliciesInput looks up internal wallet policies by topic.
type SearchPoliciesInput struct {
	Topic      string `json:"topic" jsonschema:"The policy topic to search for" validate:"required"`
	PolicyType string `json:"policy_type,omitempty" jsonschema:"Narrow the search to a policy family" validate:"omitempty,oneof=aml kyc fraud transaction_limits privacy"`
}

// SearchCompliancePolicies retrieves internal policy passages on a topic.
func (h *Handlers) SearchCompliancePolicies(ctx context.Context, in SearchPoliciesInput) (map[string]any, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	query := fmt.Sprintf("wallet policy %s", in.Topic)
	if in.PolicyType != "" {
		query = fmt.Sprintf("%s %s", query, in.PolicyType)
	}

	result, err := h.rag.Retrieve(ctx, rag.Query{
		Text:     query,
		Limit:    policyLimit,
		MinScore: policyMinScore,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"retrieved_chunks": result.Chunks,
		"total_chunks":     len(result.Chunks),
		"query":            query,
		"knowledge_base":   h.rag.KnowledgeBaseID(),
		"compliance_context": map[string]any{
			"topic":       in.Topic,
			"policy_type": in.PolicyType,
		},
		"query_metadata": result.QueryMetadata,
	}, nil
}

// RegulatoryGuidanceInput asks for guidance on a named regulation.
type RegulatoryGuidanceInput struct {
	Regulation     string `json:"regulation" jsonschema:"The regulation to look up" validate:"required"`
	Jurisdiction   string `json:"jurisdiction,omitempty" jsonschema:"Jurisdiction the guidance applies to" validate:"omitempty,oneof=us eu uk zw international"`
	WalletSpecific *bool  `json:"wallet_specific,omitempty" jsonschema:"Whether to bias retrieval toward wallet and payment passages"`
}

// GetRegulatoryGuidance retrieves guidance passages for a regulation within a
// jurisdiction.
func (h *Handlers) GetRegulatoryGuidance(ctx context.Context, in RegulatoryGuidanceInput) (map[string]any, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	jurisdiction := valueOr(in.Jurisdiction, "international")
	walletSpecific := in.WalletSpecific == nil || *in.WalletSpecific

	query := fmt.Sprintf("%s regulation %s", in.Regulation, jurisdiction)
	if walletSpecific {
		query += " wallet payment"
	}

	result, err := h.rag.Retrieve(ctx, rag.Query{
		Text:     query,
		Limit:    regulatoryLimit,
		MinScore: regulatoryMinScore,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"retrieved_chunks": result.Chunks,
		"total_chunks":     len(result.Chunks),
		"query":            query,
		"knowledge_base":   h.rag.KnowledgeBaseID(),
		"regulatory_context": map[string]any{
			"regulation":      in.Regulation,
			"jurisdiction":    jurisdiction,
			"wallet_specific": walletSpecific,
		},
		"query_metadata": result.QueryMetadata,
	}, nil
}
