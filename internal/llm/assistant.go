package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raphaelgruber/voc2ticket/internal/metrics"
	"github.com/raphaelgruber/voc2ticket/internal/models"
	"github.com/raphaelgruber/voc2ticket/internal/templates"
	"github.com/tmc/langchaingo/llms"
)

// TicketDigest is the flattened view of an issue handed to Analyze.
type TicketDigest struct {
	Key         string
	IssueType   string
	Priority    string
	Summary     string
	Description string
}

// Assistant builds prompts for classification, field extraction and ticket
// analysis. It returns raw model output; callers parse it.
type Assistant struct {
	model    *Model
	registry *templates.Registry
	metrics  *metrics.Collector
}

// NewAssistant creates an assistant over model and the template catalog.
func NewAssistant(model *Model, registry *templates.Registry, mc *metrics.Collector) *Assistant {
	return &Assistant{model: model, registry: registry, metrics: mc}
}

// Model returns the underlying model.
func (a *Assistant) Model() *Model { return a.model }

// Classify asks the model to match text against the template catalog.
func (a *Assistant) Classify(ctx context.Context, text string, history []models.Turn, retrieval string) (string, error) {
	defer a.metrics.Since(metrics.OpClassify, time.Now())

	system := fmt.Sprintf(classifierPrompt, a.registry.SummaryText())
	if retrieval != "" {
		system += referenceHeader + retrieval
	}

	out, err := a.model.Chat(ctx, conversation(system, history, text), classifyTemperature)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	return out, nil
}

// Extract asks the model for field values of tpl.
func (a *Assistant) Extract(ctx context.Context, text string, tpl *models.Template, history []models.Turn, retrieval string) (string, error) {
	defer a.metrics.Since(metrics.OpExtract, time.Now())

	system := fmt.Sprintf(extractorPrompt, tpl.Name, templates.FieldsDefinitionText(tpl))
	if retrieval != "" {
		system += referenceHeader + retrieval
	}

	out, err := a.model.Chat(ctx, conversation(system, history, text), extractTemperature)
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}
	return out, nil
}

// Analyze produces triage guidance for an existing ticket.
func (a *Assistant) Analyze(ctx context.Context, t TicketDigest, retrieval string) (string, error) {
	additional := ""
	if retrieval != "" {
		additional = "\n\nReference material:\n" + retrieval
	}
	system := fmt.Sprintf(analyzerPrompt,
		t.Key, orNA(t.IssueType), orNA(t.Priority), orNA(t.Summary), orNA(t.Description), additional)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, analyzerUserMessage),
	}
	out, err := a.model.Chat(ctx, messages, analyzeTemperature)
	if err != nil {
		return "", fmt.Errorf("analyze: %w", err)
	}
	return out, nil
}

func conversation(system string, history []models.Turn, text string) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	for _, turn := range history {
		messages = append(messages, llms.TextParts(messageType(turn.Role), turn.Content))
	}
	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, text))
}

func messageType(r models.Role) llms.ChatMessageType {
	switch r {
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	case models.RoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// StripFence removes an enclosing markdown code fence: the opening line is
// dropped, and the last line is dropped when it is a closing fence.
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}
