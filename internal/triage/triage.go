// Package triage writes model-generated handling guidance onto existing tickets.
package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/voc2ticket/internal/jira"
	"github.com/raphaelgruber/voc2ticket/internal/llm"
	"github.com/raphaelgruber/voc2ticket/internal/rag"
)

// queryDescriptionLimit bounds the description prefix used as retrieval query.
const queryDescriptionLimit = 200

// Issues reads and comments on tickets.
type Issues interface {
	Get(ctx context.Context, key string) (jira.Issue, error)
	Comment(ctx context.Context, key, text string) error
}

// Model produces the analysis text.
type Model interface {
	Analyze(ctx context.Context, t llm.TicketDigest, retrieval string) (string, error)
}

// Retriever renders reference context for a query.
type Retriever interface {
	FormatContext(ctx context.Context, query string, topK int) string
}

// Analyzer comments triage guidance on tickets.
type Analyzer struct {
	issues    Issues
	model     Model
	retriever Retriever
}

// NewAnalyzer creates an analyzer. retriever may be nil.
func NewAnalyzer(issues Issues, model Model, retriever Retriever) *Analyzer {
	return &Analyzer{issues: issues, model: model, retriever: retriever}
}

// AnalyzeTicket fetches key, asks the model for guidance, posts it as a
// comment and returns it.
func (a *Analyzer) AnalyzeTicket(ctx context.Context, key string) (string, error) {
	issue, err := a.issues.Get(ctx, key)
	if err != nil {
		return "", err
	}

	digest := Digest(issue)
	retrieval := ""
	if a.retriever != nil {
		retrieval = a.retriever.FormatContext(ctx, Query(digest), rag.DefaultTopK)
	}

	analysis, err := a.model.Analyze(ctx, digest, retrieval)
	if err != nil {
		return "", err
	}

	if err := a.issues.Comment(ctx, key, analysis); err != nil {
		return "", fmt.Errorf("post analysis: %w", err)
	}
	slog.Info("ticket analyzed", "ticket_key", key, "has_retrieval", retrieval != "")
	return analysis, nil
}

// Digest flattens an issue for the analysis prompt.
func Digest(issue jira.Issue) llm.TicketDigest {
	return llm.TicketDigest{
		Key:         issue.Key,
		IssueType:   issue.Fields.IssueType.NameOrEmpty(),
		Priority:    issue.Fields.Priority.NameOrEmpty(),
		Summary:     issue.Fields.Summary,
		Description: jira.TextFromADF(issue.Fields.Description),
	}
}

// Query builds the retrieval query: the summary plus the start of the description.
func Query(d llm.TicketDigest) string {
	desc := []rune(d.Description)
	if len(desc) > queryDescriptionLimit {
		desc = desc[:queryDescriptionLimit]
	}
	return strings.TrimSpace(d.Summary + " " + string(desc))
}
