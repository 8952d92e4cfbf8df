package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/voc2ticket/internal/app"
	"github.com/raphaelgruber/voc2ticket/internal/rag"
)

// maxSearchLimit caps search_corpus results.
const maxSearchLimit = 20

// ListTemplatesInput defines the (empty) input schema for the list_templates tool.
type ListTemplatesInput struct{}

// NewListTemplatesHandler creates the list_templates tool handler.
func NewListTemplatesHandler(deps *Dependencies) mcp.ToolHandlerFor[ListTemplatesInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListTemplatesInput) (*mcp.CallToolResult, any, error) {
		summary := deps.App.Templates.SummaryText()
		if summary == "" {
			return TextResult("No templates loaded."), nil, nil
		}
		return TextResult(summary), nil, nil
	}
}

// SearchCorpusInput defines the input schema for the search_corpus tool.
type SearchCorpusInput struct {
	Corpus string `json:"corpus" jsonschema:"Either cases or guides"`
	Query  string `json:"query" jsonschema:"The search query text"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max results 1-20, default 3"`
}

// NewSearchCorpusHandler creates the search_corpus tool handler.
func NewSearchCorpusHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchCorpusInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchCorpusInput) (*mcp.CallToolResult, any, error) {
		if input.Query == "" {
			return ErrorResult("Query cannot be empty", "Provide a search query"), nil, nil
		}
		limit := input.Limit
		if limit <= 0 {
			limit = rag.DefaultTopK
		}
		if limit > maxSearchLimit {
			return ErrorResult(fmt.Sprintf("Limit must be 1-%d", maxSearchLimit), "Reduce limit value"), nil, nil
		}

		var guide bool
		switch input.Corpus {
		case "cases":
		case "guides":
			guide = true
		default:
			return ErrorResult("Unknown corpus "+input.Corpus, "Use cases or guides"), nil, nil
		}

		corpus, err := deps.App.Corpus(guide)
		if errors.Is(err, app.ErrNoCorpus) {
			return ErrorResult("Retrieval is not available", "Check the SurrealDB connection"), nil, nil
		} else if err != nil {
			return ErrorResult("Retrieval is not available: "+err.Error(), ""), nil, nil
		}
		docs, err := corpus.Search(ctx, input.Query, limit)
		if err != nil {
			deps.Logger.Error("search_corpus failed", "corpus", input.Corpus, "error", err)
			return ErrorResult("Search failed", "The retrieval backend may be unavailable"), nil, nil
		}
		if len(docs) == 0 {
			return TextResult("No results found."), nil, nil
		}

		res := rag.Results{Cases: docs}
		if guide {
			res = rag.Results{Guides: docs}
		}
		return TextResult(strings.TrimSpace(rag.Format(res))), nil, nil
	}
}

// AnalyzeTicketInput defines the input schema for the analyze_ticket tool.
type AnalyzeTicketInput struct {
	Key string `json:"key" jsonschema:"Jira issue key such as VOC-123"`
}

// NewAnalyzeTicketHandler creates the analyze_ticket tool handler.
func NewAnalyzeTicketHandler(deps *Dependencies) mcp.ToolHandlerFor[AnalyzeTicketInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeTicketInput) (*mcp.CallToolResult, any, error) {
		if input.Key == "" {
			return ErrorResult("key is required", ""), nil, nil
		}
		analysis, err := deps.App.Adapters().Triage.AnalyzeTicket(ctx, input.Key)
		if err != nil {
			deps.Logger.Error("analyze_ticket failed", "ticket_key", input.Key, "error", err)
			return ErrorResult("Analysis failed: "+err.Error(), "Check the ticket key and Jira settings"), nil, nil
		}
		return TextResult(analysis), nil, nil
	}
}
