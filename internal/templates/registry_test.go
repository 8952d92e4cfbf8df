package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raphaelgruber/voc2ticket/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bugYAML = `
id: bug
name: Bug
description: Something is broken
jira_issue_type: Bug
keywords: [a, b, c, d, e, f, g]
fields:
  - key: summary
    label: Summary
    type: string
    required: true
  - key: priority
    label: Priority
    type: select
    options: [High, Low]
    ai_instruction: pick one
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bug.yaml", bugYAML)
	writeFile(t, dir, "_draft.yaml", "id: draft\nname: Draft\n")
	writeFile(t, dir, "notes.txt", "not a template")
	writeFile(t, dir, "unnamed.yaml", "name: Unnamed\njira_issue_type: Task\n")

	reg, err := LoadDir(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Len())
	_, ok := reg.Get("draft")
	assert.False(t, ok, "underscore files are skipped")

	tpl, ok := reg.Get("bug")
	require.True(t, ok)
	assert.Equal(t, "Bug", tpl.JiraIssueType)
	require.Len(t, tpl.Fields, 2)
	assert.Equal(t, models.FieldSelect, tpl.Fields[1].Type)
	assert.Equal(t, []string{"High", "Low"}, tpl.Fields[1].Options)

	_, ok = reg.Get("unnamed")
	assert.True(t, ok, "id defaults to file name")
}

func TestLoadDirInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "fields: [unclosed")

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestLoadDirMissing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestLoadShippedTemplates(t *testing.T) {
	reg, err := LoadDir(filepath.Join("..", "..", "templates"))
	require.NoError(t, err)

	for _, id := range []string{"bug_report", "feature_request", "billing_inquiry"} {
		tpl, ok := reg.Get(id)
		require.True(t, ok, id)
		_, hasSummary := tpl.Field("summary")
		assert.True(t, hasSummary, id)
	}
}

func TestListSorted(t *testing.T) {
	reg := NewRegistry(
		models.Template{ID: "zeta"},
		models.Template{ID: "alpha"},
		models.Template{ID: "mid"},
	)

	var ids []string
	for _, tpl := range reg.List() {
		ids = append(ids, tpl.ID)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, ids)
}

func TestSummaryText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bug.yaml", bugYAML)
	reg, err := LoadDir(dir)
	require.NoError(t, err)

	summary := reg.SummaryText()
	assert.Contains(t, summary, "id: bug")
	assert.Contains(t, summary, "keywords: a, b, c, d, e\n")
	assert.NotContains(t, summary, "f, g")
}

func TestFieldsDefinitionText(t *testing.T) {
	def := "Medium"
	tpl := &models.Template{Fields: []models.Field{
		{Key: "summary", Label: "Summary", Type: models.FieldString, Required: true},
		{Key: "priority", Label: "Priority", Type: models.FieldSelect, Options: []string{"High", "Low"}, Default: &def, AIInstruction: "pick"},
	}}

	text := FieldsDefinitionText(tpl)
	lines := strings.Split(strings.TrimSpace(text), "\n")
	assert.Equal(t, "- key: summary", lines[0])
	assert.Contains(t, text, "type: string (required)")
	assert.Contains(t, text, "type: select (optional)")
	assert.Contains(t, text, "options: High, Low")
	assert.Contains(t, text, "default: Medium")
	assert.Contains(t, text, "instruction: pick")
}
