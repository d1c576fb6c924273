package mcp

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the question or topic to find passages for"`
}

// PassageOutput is one retrieved passage.
type PassageOutput struct {
	Page        string  `json:"page"`
	Content     string  `json:"content"`
	RerankScore float64 `json:"rerank_score"`
	VectorScore float64 `json:"vector_score"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Document   string          `json:"document"`
	Candidates int             `json:"candidates"`
	Passages   []PassageOutput `json:"passages"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the claim or coverage question to decide"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Status        string          `json:"status"`
	Decision      string          `json:"decision,omitempty"`
	Justification string          `json:"justification"`
	Questions     []string        `json:"questions,omitempty"`
	Passages      []PassageOutput `json:"passages"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the passages of the policy document most relevant to a query",
	}, s.handleRetrieve)

	if s.ports.Answer != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name: "ask",
			Description: "Decide whether a claim is Approved, Not Approved or needs more information, " +
				"citing the policy document",
		}, s.handleAsk)
	}
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	result, err := s.retrieve(ctx, input.Query)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	return nil, RetrieveOutput{
		Document:   filepath.Base(s.path),
		Candidates: result.Candidates,
		Passages:   passageOutputs(result.Passages),
	}, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	result, err := s.retrieve(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	verdict := s.ports.Answer.Answer(ctx, result.Query, result.PassageList())
	output := AskOutput{
		Status:        verdict.Status.String(),
		Decision:      string(verdict.Decision),
		Justification: verdict.Answer,
		Questions:     verdict.Questions,
		Passages:      passageOutputs(result.Passages),
	}

	if verdict.Status == domain.VerdictError {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: verdict.Answer}},
		}, output, nil
	}
	return nil, output, nil
}

func (s *Server) retrieve(ctx context.Context, query string) (*domain.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}
	result, err := s.ports.Retrieval.Retrieve(ctx, s.path, query)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func passageOutputs(passages []domain.ScoredPassage) []PassageOutput {
	out := make([]PassageOutput, len(passages))
	for i := range passages {
		out[i] = PassageOutput{
			Page:        passages[i].Passage.Metadata.PageLabel(),
			Content:     passages[i].Passage.Content,
			RerankScore: passages[i].RerankScore,
			VectorScore: passages[i].VectorScore,
		}
	}
	return out
}
