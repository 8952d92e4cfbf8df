package chat

import (
	"encoding/json"
	"log/slog"

	"github.com/raphaelgruber/voc2ticket/internal/llm"
)

const (
	actionMatch   = "match"
	actionClarify = "clarify"
)

// classification is the classifier's answer.
type classification struct {
	Action     string   `json:"action"`
	TemplateID string   `json:"template_id"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Question   string   `json:"question"`
	Candidates []string `json:"candidates"`
}

// fallbackClassification is used whenever a model answer cannot be parsed.
func fallbackClassification() classification {
	return classification{
		Action:     actionClarify,
		Question:   fallbackQuestion,
		Candidates: []string{},
	}
}

// parseClassification decodes raw classifier output. ok is false when the
// fallback was substituted.
func parseClassification(raw string) (c classification, ok bool) {
	if err := json.Unmarshal([]byte(llm.StripFence(raw)), &c); err != nil {
		slog.Warn("failed to parse classifier response", "error", err, "response", raw)
		return fallbackClassification(), false
	}
	if c.Action != actionMatch && c.Action != actionClarify {
		slog.Warn("unexpected classifier action", "action", c.Action)
		return fallbackClassification(), false
	}
	return c, true
}

// parseExtraction decodes raw extractor output into a key/value object.
func parseExtraction(raw string) (map[string]any, bool) {
	var out map[string]any
	if err := json.Unmarshal([]byte(llm.StripFence(raw)), &out); err != nil || out == nil {
		slog.Warn("failed to parse extractor response", "error", err, "response", raw)
		return nil, false
	}
	return out, true
}
