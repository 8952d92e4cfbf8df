package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raphaelgruber/voc2ticket/internal/config"
	"github.com/raphaelgruber/voc2ticket/internal/jira"
	"github.com/raphaelgruber/voc2ticket/internal/llm"
	"github.com/raphaelgruber/voc2ticket/internal/models"
	"github.com/raphaelgruber/voc2ticket/internal/rag"
	"github.com/raphaelgruber/voc2ticket/internal/settings"
	"github.com/raphaelgruber/voc2ticket/internal/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAssistant struct{ model string }

func (s stubAssistant) Classify(context.Context, string, []models.Turn, string) (string, error) {
	return `{"action":"match","template_id":"bug_report"}`, nil
}

func (s stubAssistant) Extract(context.Context, string, *models.Template, []models.Turn, string) (string, error) {
	return `{"summary":"via ` + s.model + `"}`, nil
}

func (s stubAssistant) Analyze(context.Context, llm.TicketDigest, string) (string, error) {
	return "analysis", nil
}

type stubTickets struct {
	baseURL string
	closed  atomic.Bool
}

func (s *stubTickets) Create(context.Context, string, models.Fields) (models.TicketRef, error) {
	return models.TicketRef{Key: "VOC-1"}, nil
}

func (s *stubTickets) BrowseURL(key string) string { return s.baseURL + "/browse/" + key }

func (s *stubTickets) Get(_ context.Context, key string) (jira.Issue, error) {
	return jira.Issue{Key: key}, nil
}

func (s *stubTickets) Comment(context.Context, string, string) error { return nil }

func (s *stubTickets) Close() { s.closed.Store(true) }

type recordingFactory struct {
	mu      sync.Mutex
	built   []*stubTickets
	failing atomic.Bool
}

func (f *recordingFactory) build(_ context.Context, eff settings.Effective) (Backends, error) {
	if f.failing.Load() {
		return Backends{}, errors.New("model backend unreachable")
	}
	t := &stubTickets{baseURL: eff.JiraBaseURL}
	f.mu.Lock()
	f.built = append(f.built, t)
	f.mu.Unlock()
	return Backends{Assistant: stubAssistant{model: eff.AIModelName}, Tickets: t}, nil
}

type constEmbedder struct{}

func (constEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (constEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		AIBaseURL:      "http://ai.local/v1",
		AIModelName:    "env-model",
		JiraBaseURL:    "https://env.atlassian.net",
		JiraProjectKey: "VOC",
		SessionTTL:     time.Hour,
		SettingsFile:   filepath.Join(t.TempDir(), "settings.json"),
		TemplatesDir:   "../../templates",
		RAGBackend:     config.RAGBackendMemory,
	}
}

func newTestApp(t *testing.T, f *recordingFactory) *App {
	t.Helper()
	cases := rag.NewMemoryCorpus(constEmbedder{})
	guides := rag.NewMemoryCorpus(constEmbedder{})
	a, err := New(context.Background(), testConfig(t),
		WithAdapterFactory(f.build),
		WithCorpora(cases, guides),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestNewBuildsFirstSnapshot(t *testing.T) {
	f := &recordingFactory{}
	a := newTestApp(t, f)

	snap := a.Adapters()
	require.NotNil(t, snap)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Equal(t, "env-model", snap.Effective.AIModelName)
	assert.NotNil(t, snap.Chat)
	assert.NotNil(t, snap.Triage)
	assert.Positive(t, a.Templates.Len())
}

func TestNewFailsWhenBackendsFail(t *testing.T) {
	f := &recordingFactory{}
	f.failing.Store(true)

	_, err := New(context.Background(), testConfig(t),
		WithAdapterFactory(f.build),
		WithCorpora(rag.NewMemoryCorpus(constEmbedder{}), nil),
	)
	require.Error(t, err)
}

func TestUpdateSettingsSwapsAdaptersAndClosesOld(t *testing.T) {
	f := &recordingFactory{}
	a := newTestApp(t, f)
	ctx := context.Background()

	model := "new-model"
	token := "secret-token-value"
	masked, err := a.UpdateSettings(ctx, settings.Patch{AIModelName: &model, JiraAPIToken: &token})
	require.NoError(t, err)
	assert.Equal(t, "new-model", masked.AIModelName)
	assert.Equal(t, settings.Mask(token), masked.JiraAPIToken)

	snap := a.Adapters()
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, "new-model", snap.Effective.AIModelName)

	require.Len(t, f.built, 2)
	assert.True(t, f.built[0].closed.Load())
	assert.False(t, f.built[1].closed.Load())
}

func TestReloadFailureKeepsPreviousSnapshot(t *testing.T) {
	f := &recordingFactory{}
	a := newTestApp(t, f)
	before := a.Adapters()

	f.failing.Store(true)
	_, err := a.Reload(context.Background())
	require.Error(t, err)

	assert.Same(t, before, a.Adapters())
	assert.False(t, f.built[0].closed.Load())
}

func TestSessionsSurviveReload(t *testing.T) {
	f := &recordingFactory{}
	a := newTestApp(t, f)
	ctx := context.Background()

	resp, err := a.Chat().HandleMessage(ctx, "s1", "login is broken")
	require.NoError(t, err)
	assert.Equal(t, models.MessageTemplatePreview, resp.Type)

	_, err = a.Reload(ctx)
	require.NoError(t, err)

	_, fields, ok := a.Chat().Draft("s1")
	require.True(t, ok)
	v, _ := fields.Get("summary")
	assert.Equal(t, "via env-model", v.String())

	res, err := a.Chat().ConfirmAndCreate(ctx, "s1", "bug_report", fields.Map())
	require.NoError(t, err)
	assert.Equal(t, "https://env.atlassian.net/browse/VOC-1", res.TicketURL)
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	f := &recordingFactory{}
	a := newTestApp(t, f)
	ctx := context.Background()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := a.Adapters()
				tickets := snap.Tickets.(*stubTickets)
				assert.Equal(t, snap.Effective.JiraBaseURL, tickets.baseURL)
			}
		}()
	}

	for i := range 10 {
		url := "https://site" + string(rune('a'+i)) + ".atlassian.net"
		_, err := a.UpdateSettings(ctx, settings.Patch{JiraBaseURL: &url})
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}

func TestCorpusAccess(t *testing.T) {
	a := newTestApp(t, &recordingFactory{})

	c, err := a.Corpus(false)
	require.NoError(t, err)
	_, err = c.Add(context.Background(), "a past case", nil)
	require.NoError(t, err)
	n, err := c.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, a.WipeCorpora(context.Background()), ErrNoCorpus)
}

func TestWithTemplates(t *testing.T) {
	reg := templates.NewRegistry(models.Template{ID: "only", Name: "Only"})
	cfg := testConfig(t)
	cfg.TemplatesDir = filepath.Join(t.TempDir(), "missing")

	a, err := New(context.Background(), cfg,
		WithAdapterFactory((&recordingFactory{}).build),
		WithCorpora(rag.NewMemoryCorpus(constEmbedder{}), nil),
		WithTemplates(reg),
	)
	require.NoError(t, err)
	defer a.Close(context.Background())
	assert.Equal(t, 1, a.Templates.Len())
}
