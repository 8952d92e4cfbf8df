// Package chat implements the conversational ticket drafting state machine.
//
// A session is Idle until a message classifies as a match against a template;
// it then awaits confirmation with a drafted set of fields. Further messages
// re-extract the draft. Confirming creates the ticket and returns the session
// to Idle.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/voc2ticket/internal/metrics"
	"github.com/raphaelgruber/voc2ticket/internal/models"
	"github.com/raphaelgruber/voc2ticket/internal/rag"
	"github.com/raphaelgruber/voc2ticket/internal/session"
	"github.com/raphaelgruber/voc2ticket/internal/templates"
)

// HistoryLimit is the number of prior messages handed to the model.
const HistoryLimit = 10

// Domain errors returned to callers.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrTemplateNotFound = errors.New("template not found")
)

// Metadata keys.
const (
	MetaTemplateID   = "template_id"
	MetaTemplateName = "template_name"
	MetaFields       = "fields"
	MetaTicketKey    = "ticket_key"
	MetaTicketURL    = "ticket_url"
)

// Response is the reply to one user message.
type Response struct {
	SessionID string             `json:"session_id"`
	Message   string             `json:"message"`
	Type      models.MessageType `json:"type"`
	Metadata  map[string]any     `json:"metadata,omitempty"`
}

// TicketResult identifies a created ticket.
type TicketResult struct {
	TicketKey string `json:"ticket_key"`
	TicketURL string `json:"ticket_url"`
}

// Dependencies are the collaborators of an Orchestrator.
type Dependencies struct {
	Sessions   *session.Store
	Templates  *templates.Registry
	Retriever  Retriever
	Classifier Classifier
	Extractor  Extractor
	Tickets    TicketSystem
	Metrics    *metrics.Collector
}

// Orchestrator drives conversations. It is safe for concurrent use; turns on
// the same session run one at a time in arrival order.
type Orchestrator struct {
	sessions   *session.Store
	templates  *templates.Registry
	retriever  Retriever
	classifier Classifier
	extractor  Extractor
	tickets    TicketSystem
	metrics    *metrics.Collector
}

// New creates an orchestrator.
func New(d Dependencies) *Orchestrator {
	return &Orchestrator{
		sessions:   d.Sessions,
		templates:  d.Templates,
		retriever:  d.Retriever,
		classifier: d.Classifier,
		extractor:  d.Extractor,
		tickets:    d.Tickets,
		metrics:    d.Metrics,
	}
}

// HandleMessage processes one user message for sessionID, creating the
// session if needed. Unparseable model answers become a clarifying reply;
// adapter transport failures are returned with the user message already logged.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, text string) (Response, error) {
	sess := o.sessions.GetOrCreate(sessionID)
	sess.Lock()
	defer sess.Unlock()

	history := sess.RecentTurns(HistoryLimit)
	sess.AddMessage(models.RoleUser, text, models.MessageText, nil)

	if templateID, _, pending := sess.Pending(); pending {
		return o.continueDraft(ctx, sess, templateID, text, history)
	}
	return o.classify(ctx, sess, text, history)
}

func (o *Orchestrator) classify(ctx context.Context, sess *models.ChatSession, text string, history []models.Turn) (Response, error) {
	retrieval := o.retrieve(ctx, text)

	raw, err := o.classifier.Classify(ctx, text, history, retrieval)
	if err != nil {
		return Response{}, err
	}
	c, _ := parseClassification(raw)

	if c.Action == actionClarify {
		question := c.Question
		if question == "" {
			question = defaultClarifyQuestion
		}
		slog.Info("classifier asked for clarification", "session_id", sess.ID, "candidates", c.Candidates)
		return reply(sess, question), nil
	}

	tpl, ok := o.templates.Get(c.TemplateID)
	if !ok {
		slog.Warn("classifier matched unknown template", "session_id", sess.ID, "template_id", c.TemplateID)
		return reply(sess, noTemplateMessage), nil
	}
	slog.Info("template matched", "session_id", sess.ID, "template_id", tpl.ID,
		"confidence", c.Confidence, "reasoning", c.Reasoning)

	return o.draft(ctx, sess, tpl, text, history, retrieval)
}

func (o *Orchestrator) continueDraft(ctx context.Context, sess *models.ChatSession, templateID, text string, history []models.Turn) (Response, error) {
	tpl, ok := o.templates.Get(templateID)
	if !ok {
		slog.Warn("pending template no longer exists", "session_id", sess.ID, "template_id", templateID)
		sess.ClearPending()
		return reply(sess, invalidSessionMessage), nil
	}
	return o.draft(ctx, sess, tpl, text, history, o.retrieve(ctx, text))
}

// draft extracts fields for tpl, replaces the pending draft and emits a preview.
// An unparseable extraction leaves the pending state as it was.
func (o *Orchestrator) draft(ctx context.Context, sess *models.ChatSession, tpl *models.Template, text string, history []models.Turn, retrieval string) (Response, error) {
	raw, err := o.extractor.Extract(ctx, text, tpl, history, retrieval)
	if err != nil {
		return Response{}, err
	}
	values, ok := parseExtraction(raw)
	if !ok {
		return reply(sess, fallbackClassification().Question), nil
	}

	fields := templates.Coerce(tpl, values)
	sess.SetPending(tpl.ID, fields)

	preview := formatPreview(tpl, fields)
	meta := map[string]any{
		MetaTemplateID:   tpl.ID,
		MetaTemplateName: tpl.Name,
		MetaFields:       fields,
	}
	sess.AddMessage(models.RoleAssistant, preview, models.MessageTemplatePreview, meta)
	slog.Info("draft updated", "session_id", sess.ID, "template_id", tpl.ID, "fields", fields.Len())

	return Response{
		SessionID: sess.ID,
		Message:   preview,
		Type:      models.MessageTemplatePreview,
		Metadata:  meta,
	}, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, text string) string {
	if o.retriever == nil {
		return ""
	}
	return o.retriever.FormatContext(ctx, text, rag.DefaultTopK)
}

func reply(sess *models.ChatSession, text string) Response {
	sess.AddMessage(models.RoleAssistant, text, models.MessageText, nil)
	return Response{SessionID: sess.ID, Message: text, Type: models.MessageText}
}

// ConfirmAndCreate creates a ticket from caller-supplied field values, clears
// the session's draft and logs the created ticket. Ticket system errors are
// returned as they are.
func (o *Orchestrator) ConfirmAndCreate(ctx context.Context, sessionID, templateID string, raw map[string]any) (TicketResult, error) {
	sess, ok := o.sessions.Get(sessionID)
	if !ok {
		return TicketResult{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	tpl, ok := o.templates.Get(templateID)
	if !ok {
		return TicketResult{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
	}

	sess.Lock()
	defer sess.Unlock()

	fields := templates.Coerce(tpl, raw)
	start := time.Now()
	ref, err := o.tickets.Create(ctx, tpl.JiraIssueType, fields)
	o.metrics.Since(metrics.OpTicketCreate, start)
	if err != nil {
		slog.Error("ticket creation failed", "session_id", sessionID, "template_id", templateID, "error", err)
		return TicketResult{}, err
	}

	sess.ClearPending()
	url := o.tickets.BrowseURL(ref.Key)
	sess.AddMessage(models.RoleAssistant, ticketCreatedMessage(ref.Key, url), models.MessageTicketCreated,
		map[string]any{MetaTicketKey: ref.Key, MetaTicketURL: url})
	slog.Info("ticket created", "session_id", sessionID, "ticket_key", ref.Key)

	return TicketResult{TicketKey: ref.Key, TicketURL: url}, nil
}

// History returns the message log of a session.
func (o *Orchestrator) History(sessionID string) ([]models.Message, bool) {
	sess, ok := o.sessions.Get(sessionID)
	if !ok {
		return nil, false
	}
	return sess.History(), true
}

// Draft returns the pending template and fields of a session, if any.
func (o *Orchestrator) Draft(sessionID string) (*models.Template, models.Fields, bool) {
	sess, ok := o.sessions.Get(sessionID)
	if !ok {
		return nil, models.Fields{}, false
	}
	templateID, fields, pending := sess.Pending()
	if !pending {
		return nil, models.Fields{}, false
	}
	tpl, ok := o.templates.Get(templateID)
	if !ok {
		return nil, models.Fields{}, false
	}
	return tpl, fields, true
}
