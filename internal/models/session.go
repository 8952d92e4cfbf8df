package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageType tells the client how to render a message.
type MessageType string

const (
	MessageText            MessageType = "text"
	MessageTemplatePreview MessageType = "template_preview"
	MessageTicketCreated   MessageType = "ticket_created"
)

// Message is a single entry in a session log. Never mutated after append.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Type      MessageType    `json:"type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Turn is a role/content pair handed to the model as conversation history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatSession is the per-conversation state owned by the session store.
//
// PendingTemplateID and PendingFields always change together through
// SetPending and ClearPending. Callers serialize turns with Lock/Unlock.
type ChatSession struct {
	ID         string
	CreatedAt  time.Time
	LastActive time.Time

	turn sync.Mutex

	mu                sync.RWMutex
	messages          []Message
	pendingTemplateID string
	pendingFields     *Fields
}

// NewChatSession creates an empty session created at now.
func NewChatSession(id string, now time.Time) *ChatSession {
	return &ChatSession{
		ID:         id,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Lock acquires the turn lock. Turns for one session run one at a time.
func (s *ChatSession) Lock() { s.turn.Lock() }

// Unlock releases the turn lock.
func (s *ChatSession) Unlock() { s.turn.Unlock() }

// AddMessage appends a message to the log and returns it.
func (s *ChatSession) AddMessage(role Role, content string, msgType MessageType, metadata map[string]any) Message {
	msg := Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Type:      msgType,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}

// History returns a copy of the message log, oldest first.
func (s *ChatSession) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// RecentTurns returns the last limit messages as role/content pairs, oldest first.
func (s *ChatSession) RecentTurns(limit int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && len(s.messages) > limit {
		start = len(s.messages) - limit
	}
	turns := make([]Turn, 0, len(s.messages)-start)
	for _, m := range s.messages[start:] {
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// Pending returns the pending template id and fields. ok is false when idle.
func (s *ChatSession) Pending() (templateID string, fields Fields, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pendingTemplateID == "" {
		return "", Fields{}, false
	}
	return s.pendingTemplateID, s.pendingFields.Clone(), true
}

// SetPending records a template match and its extracted fields.
func (s *ChatSession) SetPending(templateID string, fields Fields) {
	f := fields.Clone()

	s.mu.Lock()
	s.pendingTemplateID = templateID
	s.pendingFields = &f
	s.mu.Unlock()
}

// ClearPending drops the pending template and fields.
func (s *ChatSession) ClearPending() {
	s.mu.Lock()
	s.pendingTemplateID = ""
	s.pendingFields = nil
	s.mu.Unlock()
}
