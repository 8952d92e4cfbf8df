package jira

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raphaelgruber/voc2ticket/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Config{
		BaseURL:    srv.URL + "/",
		Email:      "bot@example.com",
		APIToken:   "secret",
		ProjectKey: "VOC",
	})
	t.Cleanup(c.Close)
	return c
}

func TestCreateBuildsPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/api/3/issue", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"10001","key":"VOC-42","self":"https://x/rest/api/3/issue/10001"}`))
	})

	var fields models.Fields
	fields.Set("summary", models.TextValue("Login fails"))
	fields.Set("description", models.TextValue("Step one\n\nStep two"))
	fields.Set("priority", models.EnumValue("High"))
	fields.Set("components", models.ListValue("Web", "iOS"))
	fields.Set("amount", models.NumberValue(12.5))
	fields.Set("customfield_1", models.TextValue(""))
	before := fields.Clone()

	ref, err := c.Create(context.Background(), "Bug", fields)
	require.NoError(t, err)
	assert.Equal(t, "VOC-42", ref.Key)
	assert.Equal(t, "10001", ref.ID)
	assert.Equal(t, before, fields, "caller fields untouched")

	f := got["fields"].(map[string]any)
	assert.Equal(t, map[string]any{"key": "VOC"}, f["project"])
	assert.Equal(t, map[string]any{"name": "Bug"}, f["issuetype"])
	assert.Equal(t, "Login fails", f["summary"])
	assert.Equal(t, map[string]any{"name": "High"}, f["priority"])
	assert.Equal(t, []any{map[string]any{"name": "Web"}, map[string]any{"name": "iOS"}}, f["components"])
	assert.Equal(t, 12.5, f["amount"])
	assert.NotContains(t, f, "customfield_1", "empty values are skipped")

	desc := f["description"].(map[string]any)
	assert.Equal(t, "doc", desc["type"])
	assert.Len(t, desc["content"], 2)
}

func TestCreateDefaultsSummary(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"key":"VOC-1"}`))
	})

	_, err := c.Create(context.Background(), "Task", models.Fields{})
	require.NoError(t, err)
	f := got["fields"].(map[string]any)
	assert.Equal(t, "Untitled", f["summary"])
	assert.NotContains(t, f, "priority")
}

func TestCreateAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":{"summary":"required"}}`))
	})

	_, err := c.Create(context.Background(), "Bug", models.Fields{})
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok, "want the *APIError itself, got %T", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "required")
}

func TestCreateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := New(Config{BaseURL: srv.URL, ProjectKey: "VOC", Timeout: 50 * time.Millisecond})
	defer c.Close()

	_, err := c.Create(context.Background(), "Bug", models.Fields{})
	assert.Error(t, err)
}

func TestGetIssue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/issue/VOC-7", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": "7", "key": "VOC-7",
			"fields": {
				"summary": "Charged twice",
				"issuetype": {"name": "Task"},
				"priority": {"name": "High"},
				"description": {"type": "doc", "version": 1, "content": [
					{"type": "paragraph", "content": [{"type": "text", "text": "Card was "}, {"type": "text", "text": "charged twice."}]},
					{"type": "paragraph", "content": [{"type": "text", "text": "Order 123"}]}
				]}
			}
		}`))
	})

	issue, err := c.Get(context.Background(), "VOC-7")
	require.NoError(t, err)
	assert.Equal(t, "Charged twice", issue.Fields.Summary)
	assert.Equal(t, "Task", issue.Fields.IssueType.NameOrEmpty())
	assert.Equal(t, "", issue.Fields.Status.NameOrEmpty())
	assert.Equal(t, "Card was charged twice.\nOrder 123", TextFromADF(issue.Fields.Description))
}

func TestComment(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/issue/VOC-7/comment", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	})

	require.NoError(t, c.Comment(context.Background(), "VOC-7", "Looks like a gateway retry."))
	body := got["body"].(map[string]any)
	assert.Equal(t, "doc", body["type"])
}

func TestBrowseURL(t *testing.T) {
	c := New(Config{BaseURL: "https://acme.atlassian.net/"})
	assert.Equal(t, "https://acme.atlassian.net", c.BaseURL())
	assert.Equal(t, "https://acme.atlassian.net/browse/VOC-1", c.BrowseURL("VOC-1"))
}

func TestTextToADF(t *testing.T) {
	doc := TextToADF("")
	require.Len(t, doc.Content, 1)
	assert.Empty(t, doc.Content[0].Content)
	assert.Equal(t, "", TextFromADF(&doc))
	assert.Equal(t, "", TextFromADF(nil))

	doc = TextToADF("a\n\nb")
	assert.Equal(t, "a\nb", TextFromADF(&doc))
}
