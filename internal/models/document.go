package models

// RetrievedDocument is a nearest-neighbor hit from a retrieval corpus.
type RetrievedDocument struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	// Distance is nil when the backend did not report one. Lower is closer.
	Distance *float64 `json:"distance,omitempty"`
}

// MetaString returns a string metadata value, or "" when absent or not a string.
func (d RetrievedDocument) MetaString(key string) string {
	s, _ := d.Metadata[key].(string)
	return s
}

// TicketRef identifies a ticket created in the ticket system.
type TicketRef struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}
