// Package settings layers operator overrides from a JSON file over the
// environment defaults for the model backend and ticket system.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/jsonc"
)

var (
	// ErrPersist means the override document could not be written.
	// In-memory state is unchanged when it is returned.
	ErrPersist = errors.New("persist settings")

	// ErrEmptyPatch means an update carried no values.
	ErrEmptyPatch = errors.New("no settings to update")
)

// Override document keys.
const (
	KeyAIBaseURL      = "ai_base_url"
	KeyAIAPIKey       = "ai_api_key"
	KeyAIModelName    = "ai_model_name"
	KeyJiraBaseURL    = "jira_base_url"
	KeyJiraUserEmail  = "jira_user_email"
	KeyJiraAPIToken   = "jira_api_token"
	KeyJiraProjectKey = "jira_project_key"
)

// Effective is the configuration the adapters are built from.
type Effective struct {
	AIBaseURL      string `json:"ai_base_url"`
	AIAPIKey       string `json:"ai_api_key"`
	AIModelName    string `json:"ai_model_name"`
	JiraBaseURL    string `json:"jira_base_url"`
	JiraUserEmail  string `json:"jira_user_email"`
	JiraAPIToken   string `json:"jira_api_token"`
	JiraProjectKey string `json:"jira_project_key"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	AIBaseURL      *string `json:"ai_base_url,omitempty"`
	AIAPIKey       *string `json:"ai_api_key,omitempty"`
	AIModelName    *string `json:"ai_model_name,omitempty"`
	JiraBaseURL    *string `json:"jira_base_url,omitempty"`
	JiraUserEmail  *string `json:"jira_user_email,omitempty"`
	JiraAPIToken   *string `json:"jira_api_token,omitempty"`
	JiraProjectKey *string `json:"jira_project_key,omitempty"`
}

func (p Patch) values() map[string]string {
	out := make(map[string]string)
	for key, v := range map[string]*string{
		KeyAIBaseURL:      p.AIBaseURL,
		KeyAIAPIKey:       p.AIAPIKey,
		KeyAIModelName:    p.AIModelName,
		KeyJiraBaseURL:    p.JiraBaseURL,
		KeyJiraUserEmail:  p.JiraUserEmail,
		KeyJiraAPIToken:   p.JiraAPIToken,
		KeyJiraProjectKey: p.JiraProjectKey,
	} {
		if v != nil {
			out[key] = *v
		}
	}
	return out
}

// IsEmpty reports whether the patch sets nothing.
func (p Patch) IsEmpty() bool { return len(p.values()) == 0 }

// Store holds the environment defaults and the current override document.
// All methods are thread-safe.
type Store struct {
	path     string
	defaults Effective

	mu        sync.RWMutex
	overrides map[string]any
}

// Open loads the override file at path. A missing, unreadable or malformed
// file yields empty overrides.
func Open(path string, defaults Effective) *Store {
	s := &Store{path: path, defaults: defaults}
	s.overrides = s.read()
	return s
}

// Path returns the override file location.
func (s *Store) Path() string { return s.path }

// Effective returns defaults merged with overrides.
func (s *Store) Effective() Effective {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.merge(s.overrides)
}

// Masked returns the effective configuration with secrets masked.
func (s *Store) Masked() Effective {
	eff := s.Effective()
	eff.AIAPIKey = Mask(eff.AIAPIKey)
	eff.JiraAPIToken = Mask(eff.JiraAPIToken)
	return eff
}

// Update writes every set patch value into the override document and
// persists it. On a write failure the previous state is kept and ErrPersist
// is returned.
func (s *Store) Update(p Patch) (Effective, error) {
	values := p.values()
	if len(values) == 0 {
		return Effective{}, ErrEmptyPatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.overrides)
	if next == nil {
		next = make(map[string]any)
	}
	for k, v := range values {
		next[k] = v
	}

	if err := s.write(next); err != nil {
		return Effective{}, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.overrides = next

	slog.Info("settings updated", "path", s.path, "keys", len(values))
	return s.merge(next), nil
}

// Reload re-reads the override file. changed reports whether the effective
// configuration differs from before.
func (s *Store) Reload() (eff Effective, changed bool) {
	overrides := s.read()

	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.merge(s.overrides)
	s.overrides = overrides
	eff = s.merge(overrides)
	return eff, eff != before
}

func (s *Store) merge(overrides map[string]any) Effective {
	eff := s.defaults
	pick := func(key string, dst *string) {
		if v, ok := overrides[key].(string); ok {
			*dst = v
		}
	}
	pick(KeyAIBaseURL, &eff.AIBaseURL)
	pick(KeyAIAPIKey, &eff.AIAPIKey)
	pick(KeyAIModelName, &eff.AIModelName)
	pick(KeyJiraBaseURL, &eff.JiraBaseURL)
	pick(KeyJiraUserEmail, &eff.JiraUserEmail)
	pick(KeyJiraAPIToken, &eff.JiraAPIToken)
	pick(KeyJiraProjectKey, &eff.JiraProjectKey)
	return eff
}

func (s *Store) read() map[string]any {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to read settings file, using defaults", "path", s.path, "error", err)
		}
		return map[string]any{}
	}

	var overrides map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &overrides); err != nil {
		slog.Warn("failed to parse settings file, using defaults", "path", s.path, "error", err)
		return map[string]any{}
	}
	if overrides == nil {
		overrides = map[string]any{}
	}
	return overrides
}

// write replaces the override file atomically.
func (s *Store) write(overrides map[string]any) error {
	data, err := json.MarshalIndent(overrides, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Mask hides all but the first and last two characters of a secret.
// Values of four characters or fewer become "****".
func Mask(v string) string {
	r := []rune(v)
	if len(r) <= 4 {
		return "****"
	}
	masked := make([]rune, len(r))
	copy(masked, r)
	for i := 2; i < len(r)-2; i++ {
		masked[i] = '*'
	}
	return string(masked)
}
