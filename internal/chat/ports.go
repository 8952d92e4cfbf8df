package chat

import (
	"context"

	"github.com/raphaelgruber/voc2ticket/internal/models"
)

// Classifier matches user text against the template catalog and returns the
// model's raw answer.
type Classifier interface {
	Classify(ctx context.Context, text string, history []models.Turn, retrieval string) (string, error)
}

// Extractor fills the fields of tpl from user text and returns the model's raw answer.
type Extractor interface {
	Extract(ctx context.Context, text string, tpl *models.Template, history []models.Turn, retrieval string) (string, error)
}

// TicketSystem creates tickets.
type TicketSystem interface {
	Create(ctx context.Context, issueType string, fields models.Fields) (models.TicketRef, error)
	BrowseURL(key string) string
}

// Retriever renders reference context for a query. It never fails; an
// unavailable backend yields "".
type Retriever interface {
	FormatContext(ctx context.Context, query string, topK int) string
}
