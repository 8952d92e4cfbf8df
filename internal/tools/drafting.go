package tools

import (
	"context"
	"errors"
	"maps"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/voc2ticket/internal/chat"
)

// SendMessageInput defines the input schema for the send_message tool.
type SendMessageInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Drafting session id; omit to start a new session"`
	Message   string `json:"message" jsonschema:"The customer's words or the operator's correction"`
}

// NewSendMessageHandler creates the send_message tool handler.
func NewSendMessageHandler(deps *Dependencies) mcp.ToolHandlerFor[SendMessageInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SendMessageInput) (*mcp.CallToolResult, any, error) {
		if input.Message == "" {
			return ErrorResult("Message cannot be empty", "Provide the customer's feedback text"), nil, nil
		}
		sessionID := input.SessionID
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		resp, err := deps.App.Chat().HandleMessage(ctx, sessionID, input.Message)
		if err != nil {
			deps.Logger.Error("send_message failed", "session_id", sessionID, "error", err)
			return ErrorResult("The model backend failed", "Retry the same message"), nil, nil
		}
		result, err := JSONResult(resp)
		return result, nil, err
	}
}

// ConfirmTicketInput defines the input schema for the confirm_ticket tool.
type ConfirmTicketInput struct {
	SessionID  string         `json:"session_id" jsonschema:"Drafting session id"`
	TemplateID string         `json:"template_id,omitempty" jsonschema:"Template id; defaults to the session's previewed template"`
	Fields     map[string]any `json:"fields,omitempty" jsonschema:"Field values overriding the preview"`
}

// NewConfirmTicketHandler creates the confirm_ticket tool handler.
func NewConfirmTicketHandler(deps *Dependencies) mcp.ToolHandlerFor[ConfirmTicketInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ConfirmTicketInput) (*mcp.CallToolResult, any, error) {
		if input.SessionID == "" {
			return ErrorResult("session_id is required", ""), nil, nil
		}
		orch := deps.App.Chat()

		templateID := input.TemplateID
		values := map[string]any{}
		if tpl, fields, ok := orch.Draft(input.SessionID); ok {
			if templateID == "" {
				templateID = tpl.ID
			}
			if templateID == tpl.ID {
				values = fields.Map()
			}
		}
		if templateID == "" {
			return ErrorResult("No ticket preview in this session", "Send a message describing the issue first"), nil, nil
		}
		maps.Copy(values, input.Fields)

		res, err := orch.ConfirmAndCreate(ctx, input.SessionID, templateID, values)
		switch {
		case errors.Is(err, chat.ErrSessionNotFound):
			return ErrorResult("Session not found", "It may have expired; start a new session"), nil, nil
		case errors.Is(err, chat.ErrTemplateNotFound):
			return ErrorResult("Template not found", "Call list_templates for valid ids"), nil, nil
		case err != nil:
			deps.Logger.Error("confirm_ticket failed", "session_id", input.SessionID, "error", err)
			return ErrorResult("Ticket creation failed: "+err.Error(), "Check the Jira settings"), nil, nil
		}
		result, err := JSONResult(res)
		return result, nil, err
	}
}

// GetHistoryInput defines the input schema for the get_history tool.
type GetHistoryInput struct {
	SessionID string `json:"session_id" jsonschema:"Drafting session id"`
}

// NewGetHistoryHandler creates the get_history tool handler.
func NewGetHistoryHandler(deps *Dependencies) mcp.ToolHandlerFor[GetHistoryInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetHistoryInput) (*mcp.CallToolResult, any, error) {
		history, ok := deps.App.Chat().History(input.SessionID)
		if !ok {
			return ErrorResult("Session not found", "It may have expired"), nil, nil
		}
		result, err := JSONResult(history)
		return result, nil, err
	}
}
