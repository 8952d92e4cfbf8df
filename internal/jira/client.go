// Package jira is a minimal Jira Cloud REST v3 client for creating,
// reading and commenting on issues.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raphaelgruber/voc2ticket/internal/models"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// Config holds the connection settings.
type Config struct {
	BaseURL    string
	Email      string
	APIToken   string
	ProjectKey string
	Timeout    time.Duration
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira API error (status %d): %s", e.StatusCode, e.Body)
}

// Client talks to one Jira site on behalf of one project.
type Client struct {
	baseURL    string
	email      string
	apiToken   string
	projectKey string
	httpClient *http.Client
}

// New creates a client. It owns its transport so Close does not affect other clients.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		email:      cfg.Email,
		apiToken:   cfg.APIToken,
		projectKey: cfg.ProjectKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
	}
}

// BaseURL returns the site URL without trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// ProjectKey returns the project new issues are created in.
func (c *Client) ProjectKey() string { return c.projectKey }

// BrowseURL returns the human-facing link for an issue key.
func (c *Client) BrowseURL(key string) string {
	return c.baseURL + "/browse/" + key
}

// Close releases pooled idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Create creates an issue of issueType from fields. fields is not modified.
// Failures are returned as they come from the transport, an *APIError for
// non-2xx answers.
func (c *Client) Create(ctx context.Context, issueType string, fields models.Fields) (models.TicketRef, error) {
	payload := map[string]any{"fields": c.issueFields(issueType, fields)}
	slog.Info("creating jira issue", "project", c.projectKey, "issue_type", issueType, "fields", fields.Len())

	var ref models.TicketRef
	if err := c.do(ctx, http.MethodPost, "/issue", payload, &ref); err != nil {
		slog.Error("jira issue creation failed", "project", c.projectKey, "error", err)
		return models.TicketRef{}, err
	}
	slog.Info("jira issue created", "key", ref.Key)
	return ref, nil
}

func (c *Client) issueFields(issueType string, fields models.Fields) map[string]any {
	summary := "Untitled"
	if v, ok := fields.Get("summary"); ok && !v.IsEmpty() {
		summary = v.String()
	}
	description := ""
	if v, ok := fields.Get("description"); ok {
		description = v.String()
	}

	out := map[string]any{
		"project":     map[string]string{"key": c.projectKey},
		"issuetype":   map[string]string{"name": issueType},
		"summary":     summary,
		"description": TextToADF(description),
	}

	for _, key := range fields.Keys() {
		v, _ := fields.Get(key)
		switch key {
		case "summary", "description":
			continue
		case "priority":
			if !v.IsEmpty() {
				out["priority"] = map[string]string{"name": v.String()}
			}
		case "components":
			if v.Kind == models.KindList && len(v.Items) > 0 {
				names := make([]map[string]string, len(v.Items))
				for i, item := range v.Items {
					names[i] = map[string]string{"name": item}
				}
				out["components"] = names
			}
		default:
			if !v.IsEmpty() {
				out[key] = v.Native()
			}
		}
	}
	return out
}

// Issue is the subset of an issue record the service reads.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// IssueFields holds the standard fields of an issue.
type IssueFields struct {
	Summary     string `json:"summary"`
	Description *Node  `json:"description"`
	IssueType   *Named `json:"issuetype"`
	Priority    *Named `json:"priority"`
	Status      *Named `json:"status"`
}

// Named is any {"name": ...} reference object.
type Named struct {
	Name string `json:"name"`
}

// NameOrEmpty returns n.Name, or "" for nil.
func (n *Named) NameOrEmpty() string {
	if n == nil {
		return ""
	}
	return n.Name
}

// Get fetches an issue by key.
func (c *Client) Get(ctx context.Context, key string) (Issue, error) {
	var issue Issue
	if err := c.do(ctx, http.MethodGet, "/issue/"+url.PathEscape(key), nil, &issue); err != nil {
		return Issue{}, fmt.Errorf("get issue %s: %w", key, err)
	}
	return issue, nil
}

// Comment adds a plain-text comment to an issue.
func (c *Client) Comment(ctx context.Context, key, text string) error {
	payload := map[string]any{"body": TextToADF(text)}
	if err := c.do(ctx, http.MethodPost, "/issue/"+url.PathEscape(key)+"/comment", payload, nil); err != nil {
		return fmt.Errorf("comment on %s: %w", key, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/rest/api/3"+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	slog.Debug("jira request", "method", method, "path", path, "status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
