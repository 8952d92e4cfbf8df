// Package app wires the configured adapters together and rebuilds them when
// the settings override document changes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/raphaelgruber/voc2ticket/internal/chat"
	"github.com/raphaelgruber/voc2ticket/internal/config"
	"github.com/raphaelgruber/voc2ticket/internal/db"
	"github.com/raphaelgruber/voc2ticket/internal/jira"
	"github.com/raphaelgruber/voc2ticket/internal/llm"
	"github.com/raphaelgruber/voc2ticket/internal/metrics"
	"github.com/raphaelgruber/voc2ticket/internal/rag"
	"github.com/raphaelgruber/voc2ticket/internal/session"
	"github.com/raphaelgruber/voc2ticket/internal/settings"
	"github.com/raphaelgruber/voc2ticket/internal/templates"
	"github.com/raphaelgruber/voc2ticket/internal/triage"
)

// ErrNoCorpus is returned when the retrieval backend is not available.
var ErrNoCorpus = errors.New("retrieval corpus unavailable")

// Assistant is the model-backed capability set used by chat and triage.
type Assistant interface {
	chat.Classifier
	chat.Extractor
	triage.Model
}

// Tickets is the ticket system client used by chat and triage.
type Tickets interface {
	chat.TicketSystem
	triage.Issues
	Close()
}

// Backends are the adapters built from one effective configuration.
type Backends struct {
	Assistant Assistant
	Tickets   Tickets
}

// Factory builds backends from effective settings.
type Factory func(ctx context.Context, eff settings.Effective) (Backends, error)

// Adapters is an immutable snapshot of everything derived from the effective
// settings. Readers holding a snapshot never observe a partial reload.
type Adapters struct {
	Effective settings.Effective
	Assistant Assistant
	Tickets   Tickets
	Chat      *chat.Orchestrator
	Triage    *triage.Analyzer
	Version   uint64
}

// App holds the process-wide components.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	Settings  *settings.Store
	Sessions  *session.Store
	Templates *templates.Registry
	Metrics   *metrics.Collector
	RAG       *rag.Provider

	cases  rag.Corpus
	guides rag.Corpus
	db     *db.Client

	factory Factory

	reloadMu sync.Mutex
	current  atomic.Pointer[Adapters]
}

// Option configures an App.
type Option func(*App)

// WithAdapterFactory replaces the default model and ticket client construction.
func WithAdapterFactory(f Factory) Option {
	return func(a *App) { a.factory = f }
}

// WithCorpora uses the given corpora instead of connecting to the configured backend.
func WithCorpora(cases, guides rag.Corpus) Option {
	return func(a *App) {
		a.cases = cases
		a.guides = guides
	}
}

// WithTemplates uses reg instead of loading the templates directory.
func WithTemplates(reg *templates.Registry) Option {
	return func(a *App) { a.Templates = reg }
}

// WithLogger sets the logger handed to the SurrealDB driver.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// New builds the application and the first adapter snapshot.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:     cfg,
		logger:  slog.Default(),
		Metrics: metrics.NewCollector(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.factory == nil {
		a.factory = a.defaultBackends
	}

	a.Settings = settings.Open(cfg.SettingsFile, Defaults(cfg))

	var sessionOpts []session.Option
	if cfg.SessionSlidingTTL {
		sessionOpts = append(sessionOpts, session.WithSlidingExpiry())
	}
	a.Sessions = session.NewStore(cfg.SessionTTL, sessionOpts...)

	if a.Templates == nil {
		reg, err := templates.LoadDir(cfg.TemplatesDir)
		if err != nil {
			return nil, err
		}
		a.Templates = reg
	}
	slog.Info("templates loaded", "count", a.Templates.Len(), "dir", cfg.TemplatesDir)

	if a.cases == nil && a.guides == nil {
		if err := a.openCorpora(ctx); err != nil {
			slog.Warn("retrieval unavailable, continuing without reference context", "backend", cfg.RAGBackend, "error", err)
		}
	}
	a.RAG = rag.NewProvider(a.cases, a.guides, a.Metrics)

	if _, err := a.Reload(ctx); err != nil {
		a.closeDB(ctx)
		return nil, err
	}
	return a, nil
}

// Defaults maps the environment configuration to settings defaults.
func Defaults(cfg config.Config) settings.Effective {
	return settings.Effective{
		AIBaseURL:      cfg.AIBaseURL,
		AIAPIKey:       cfg.AIAPIKey,
		AIModelName:    cfg.AIModelName,
		JiraBaseURL:    cfg.JiraBaseURL,
		JiraUserEmail:  cfg.JiraUserEmail,
		JiraAPIToken:   cfg.JiraAPIToken,
		JiraProjectKey: cfg.JiraProjectKey,
	}
}

func (a *App) openCorpora(ctx context.Context) error {
	embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
		Provider:   a.cfg.EmbedProvider,
		Model:      a.cfg.EmbedModel,
		Dimension:  a.cfg.EmbedDimension,
		OllamaHost: a.cfg.OllamaHost,
		BaseURL:    a.cfg.AIBaseURL,
		APIKey:     a.cfg.AIAPIKey,
	}, a.Metrics)
	if err != nil {
		return err
	}

	switch a.cfg.RAGBackend {
	case config.RAGBackendMemory:
		a.cases = rag.NewMemoryCorpus(embedder)
		a.guides = rag.NewMemoryCorpus(embedder)
		return nil

	case config.RAGBackendSurrealDB, "":
		client, err := db.NewClient(ctx, db.Config{
			URL:       a.cfg.SurrealDBURL,
			Namespace: a.cfg.SurrealDBNamespace,
			Database:  a.cfg.SurrealDBDatabase,
			Username:  a.cfg.SurrealDBUser,
			Password:  a.cfg.SurrealDBPass,
			AuthLevel: a.cfg.SurrealDBAuthLevel,
		}, a.logger)
		if err != nil {
			return err
		}
		if err := client.InitSchema(ctx, a.cfg.EmbedDimension); err != nil {
			_ = client.Close(ctx)
			return err
		}
		cases, err := db.NewCorpus(client, db.TableCases, embedder)
		if err != nil {
			_ = client.Close(ctx)
			return err
		}
		guides, err := db.NewCorpus(client, db.TableGuides, embedder)
		if err != nil {
			_ = client.Close(ctx)
			return err
		}
		a.db, a.cases, a.guides = client, cases, guides
		return nil

	default:
		return fmt.Errorf("unsupported retrieval backend: %s", a.cfg.RAGBackend)
	}
}

func (a *App) defaultBackends(ctx context.Context, eff settings.Effective) (Backends, error) {
	model, err := llm.NewModel(ctx, llm.ModelConfig{
		Provider:   a.cfg.LLMProvider,
		BaseURL:    eff.AIBaseURL,
		APIKey:     eff.AIAPIKey,
		ModelName:  eff.AIModelName,
		OllamaHost: a.cfg.OllamaHost,
	}, a.Metrics)
	if err != nil {
		return Backends{}, err
	}

	tickets := jira.New(jira.Config{
		BaseURL:    eff.JiraBaseURL,
		Email:      eff.JiraUserEmail,
		APIToken:   eff.JiraAPIToken,
		ProjectKey: eff.JiraProjectKey,
		Timeout:    a.cfg.JiraTimeout,
	})

	return Backends{
		Assistant: llm.NewAssistant(model, a.Templates, a.Metrics),
		Tickets:   tickets,
	}, nil
}

// Adapters returns the current snapshot.
func (a *App) Adapters() *Adapters {
	return a.current.Load()
}

// Chat returns the orchestrator of the current snapshot.
func (a *App) Chat() *chat.Orchestrator {
	return a.Adapters().Chat
}

// Reload rebuilds the adapters from the effective settings and swaps them in.
// On failure the previous snapshot stays active.
func (a *App) Reload(ctx context.Context) (*Adapters, error) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	eff := a.Settings.Effective()
	b, err := a.factory(ctx, eff)
	if err != nil {
		return nil, fmt.Errorf("build adapters: %w", err)
	}

	var version uint64 = 1
	prev := a.current.Load()
	if prev != nil {
		version = prev.Version + 1
	}

	next := &Adapters{
		Effective: eff,
		Assistant: b.Assistant,
		Tickets:   b.Tickets,
		Chat: chat.New(chat.Dependencies{
			Sessions:   a.Sessions,
			Templates:  a.Templates,
			Retriever:  a.RAG,
			Classifier: b.Assistant,
			Extractor:  b.Assistant,
			Tickets:    b.Tickets,
			Metrics:    a.Metrics,
		}),
		Triage:  triage.NewAnalyzer(b.Tickets, b.Assistant, a.RAG),
		Version: version,
	}
	a.current.Store(next)

	if prev != nil && prev.Tickets != nil {
		prev.Tickets.Close()
	}
	slog.Info("adapters reloaded", "version", version, "model", eff.AIModelName, "jira_base_url", eff.JiraBaseURL)
	return next, nil
}

// UpdateSettings persists patch and reloads the adapters. The returned
// configuration has secrets masked.
func (a *App) UpdateSettings(ctx context.Context, patch settings.Patch) (settings.Effective, error) {
	if _, err := a.Settings.Update(patch); err != nil {
		return settings.Effective{}, err
	}
	if _, err := a.Reload(ctx); err != nil {
		return settings.Effective{}, err
	}
	return a.Settings.Masked(), nil
}

// WatchSettings reloads the adapters whenever the override file is edited
// outside the process.
func (a *App) WatchSettings(ctx context.Context) (stop func(), err error) {
	return a.Settings.Watch(ctx, func(settings.Effective) {
		if _, err := a.Reload(ctx); err != nil {
			slog.Error("reload after settings change failed", "error", err)
		}
	})
}

// Corpus returns the case corpus (guide=false) or the guide corpus.
func (a *App) Corpus(guide bool) (rag.Corpus, error) {
	c := a.cases
	if guide {
		c = a.guides
	}
	if c == nil {
		return nil, ErrNoCorpus
	}
	return c, nil
}

// WipeCorpora deletes all stored documents from the SurrealDB backend.
func (a *App) WipeCorpora(ctx context.Context) error {
	if a.db == nil {
		return ErrNoCorpus
	}
	return a.db.WipeCorpora(ctx)
}

// Close releases the ticket client and the database connection.
func (a *App) Close(ctx context.Context) error {
	if cur := a.current.Load(); cur != nil && cur.Tickets != nil {
		cur.Tickets.Close()
	}
	return a.closeDB(ctx)
}

func (a *App) closeDB(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close(ctx)
}
