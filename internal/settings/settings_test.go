package settings

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefaults() Effective {
	return Effective{
		AIBaseURL:      "http://env-ai/v1",
		AIAPIKey:       "env-ai-key",
		AIModelName:    "env-model",
		JiraBaseURL:    "https://env.atlassian.net",
		JiraUserEmail:  "env@example.com",
		JiraAPIToken:   "env-token",
		JiraProjectKey: "VOC",
	}
}

func ptr(s string) *string { return &s }

func TestOpenMissingFileUsesDefaults(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "settings.json"), testDefaults())
	assert.Equal(t, testDefaults(), s.Effective())
}

func TestOpenMalformedFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := Open(path, testDefaults())
	assert.Equal(t, testDefaults(), s.Effective())
}

func TestOverridesWinOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	doc := `{
		// operator override
		"ai_model_name": "override-model",
		"jira_project_key": null,
		"unknown_key": "kept",
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	eff := Open(path, testDefaults()).Effective()
	assert.Equal(t, "override-model", eff.AIModelName)
	assert.Equal(t, "VOC", eff.JiraProjectKey, "null falls back to default")
	assert.Equal(t, "http://env-ai/v1", eff.AIBaseURL)
}

func TestUpdatePersistsAndMerges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"unknown_key":"kept"}`), 0o600))
	s := Open(path, testDefaults())

	eff, err := s.Update(Patch{AIModelName: ptr("m2"), JiraAPIToken: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, "m2", eff.AIModelName)
	assert.Equal(t, "", eff.JiraAPIToken, "empty string is a value, not absent")
	assert.Equal(t, eff, s.Effective())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]any
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, "m2", onDisk["ai_model_name"])
	assert.Equal(t, "kept", onDisk["unknown_key"])
	assert.NotContains(t, onDisk, "ai_base_url", "unset patch fields are not written")

	reopened := Open(path, testDefaults())
	assert.Equal(t, eff, reopened.Effective())
}

func TestUpdateEmptyPatch(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "settings.json"), testDefaults())
	_, err := s.Update(Patch{})
	assert.ErrorIs(t, err, ErrEmptyPatch)
}

func TestUpdatePersistFailureKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "settings.json")
	s := Open(path, testDefaults())
	before := s.Effective()

	_, err := s.Update(Patch{AIModelName: ptr("m2")})
	require.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, before, s.Effective())
}

func TestMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "****"},
		{"abcd", "****"},
		{"abcde", "ab*de"},
		{"sk-1234567890", "sk*********90"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Mask(tt.in), tt.in)
	}
}

func TestMasked(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "settings.json"), testDefaults())
	m := s.Masked()
	assert.Equal(t, "en******ey", m.AIAPIKey)
	assert.Equal(t, "en*****en", m.JiraAPIToken)
	assert.Equal(t, "env-model", m.AIModelName)
}

func TestReloadReportsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s := Open(path, testDefaults())

	_, changed := s.Reload()
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(path, []byte(`{"ai_model_name":"edited"}`), 0o600))
	eff, changed := s.Reload()
	assert.True(t, changed)
	assert.Equal(t, "edited", eff.AIModelName)
}

func TestWatchCallsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s := Open(path, testDefaults())

	var mu sync.Mutex
	var got []Effective
	stop, err := s.Watch(context.Background(), func(eff Effective) {
		mu.Lock()
		got = append(got, eff)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"ai_model_name":"watched"}`), 0o600))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && got[len(got)-1].AIModelName == "watched"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "settings.json"), testDefaults())

	ctx, cancel := context.WithCancel(context.Background())
	stop, err := s.Watch(ctx, func(Effective) {})
	require.NoError(t, err)

	cancel()
	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not exit")
	}
}
