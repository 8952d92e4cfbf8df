package models

// FieldType is the declared type of a template field.
type FieldType string

const (
	FieldString      FieldType = "string"
	FieldText        FieldType = "text"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
	FieldNumber      FieldType = "number"
	FieldDate        FieldType = "date"
)

// Field describes one value the extraction step must populate.
type Field struct {
	Key           string    `json:"key" yaml:"key"`
	Label         string    `json:"label" yaml:"label"`
	Type          FieldType `json:"type" yaml:"type"`
	Required      bool      `json:"required" yaml:"required"`
	Options       []string  `json:"options,omitempty" yaml:"options,omitempty"`
	AIInstruction string    `json:"ai_instruction,omitempty" yaml:"ai_instruction,omitempty"`
	Default       *string   `json:"default,omitempty" yaml:"default,omitempty"`
}

// Template is a declarative ticket schema: target issue type plus fields.
// Read-only once loaded.
type Template struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Description   string   `json:"description" yaml:"description"`
	JiraIssueType string   `json:"jira_issue_type" yaml:"jira_issue_type"`
	Keywords      []string `json:"keywords" yaml:"keywords"`
	Fields        []Field  `json:"fields" yaml:"fields"`
}

// Field returns the field definition for key.
func (t *Template) Field(key string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}
