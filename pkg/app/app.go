// Package app assembles the askdata components from a loaded configuration.
// The server, the CLI and the sandbox server share it so that every binary
// builds the same provider, database, tool catalog and runner.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rhuss/askdata/pkg/agent"
	"github.com/rhuss/askdata/pkg/config"
	"github.com/rhuss/askdata/pkg/executor"
	"github.com/rhuss/askdata/pkg/knowledge"
	"github.com/rhuss/askdata/pkg/provider"
	"github.com/rhuss/askdata/pkg/provider/anthropic"
	"github.com/rhuss/askdata/pkg/provider/gemini"
	"github.com/rhuss/askdata/pkg/provider/openaicompat"
	"github.com/rhuss/askdata/pkg/provider/ratelimit"
	"github.com/rhuss/askdata/pkg/sandbox"
	"github.com/rhuss/askdata/pkg/sandbox/kubernetes"
	"github.com/rhuss/askdata/pkg/static"
	"github.com/rhuss/askdata/pkg/storage"
	"github.com/rhuss/askdata/pkg/storage/memory"
	"github.com/rhuss/askdata/pkg/storage/postgres"
	"github.com/rhuss/askdata/pkg/storage/redis"
	"github.com/rhuss/askdata/pkg/tools"
	"github.com/rhuss/askdata/pkg/tools/builtins/database"
	"github.com/rhuss/askdata/pkg/transcript"
)

// App holds the assembled components. Close releases them in reverse
// order of creation.
type App struct {
	Config    *config.Config
	Model     provider.Provider
	DB        database.Backend
	Files     *static.Store
	Catalog   *tools.Catalog
	Runner    executor.Runner
	Knowledge knowledge.Retriever
	// Audit is nil when auditing is disabled. AuditStore is additionally
	// nil when the sink cannot be queried.
	Audit      storage.Sink
	AuditStore storage.Store
	Agent      *agent.Agent

	closers []func() error
}

// New builds every component named by cfg. On error, the components built
// so far are closed.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.Model, err = NewProvider(ctx, cfg.Provider); err != nil {
		return nil, err
	}
	a.onClose(a.Model.Close)

	if a.DB, err = OpenDatabase(ctx, cfg.Database); err != nil {
		return nil, err
	}
	a.onClose(a.DB.Close)

	if a.Files, err = static.New(cfg.Static.Dir, cfg.Server.PublicURL+"/tmp_imgs"); err != nil {
		return nil, err
	}

	if a.Catalog, err = NewCatalog(ctx, cfg, a.Model, a.DB, a.Files); err != nil {
		return nil, err
	}
	a.onClose(a.Catalog.Close)

	if a.Runner, err = NewRunner(cfg.Executor, a.Catalog); err != nil {
		return nil, err
	}

	if a.Knowledge, err = NewKnowledge(cfg.Knowledge, a.Model); err != nil {
		return nil, err
	}

	if a.Audit, err = NewAuditSink(ctx, cfg.Audit); err != nil {
		return nil, err
	}
	if a.Audit != nil {
		a.onClose(a.Audit.Close)
		a.AuditStore, _ = a.Audit.(storage.Store)
	}

	a.Agent, err = agent.New(agent.Config{
		Model:     a.Model,
		Catalog:   a.Catalog,
		Runner:    a.Runner,
		Knowledge: a.Knowledge,
		Normalizer: transcript.New(
			transcript.WithDisplayRows(cfg.Agent.DisplayRows),
			transcript.WithViews(static.NewViews(a.Files, "")),
		),
		Audit:         a.Audit,
		Rounds:        cfg.Agent.Rounds,
		Attempts:      cfg.Agent.Attempts,
		AlwaysInclude: cfg.Agent.AlwaysInclude,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases every component.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewProvider creates the model backend, wrapped with the token limiter
// when configured and with metrics.
func NewProvider(ctx context.Context, cfg config.ProviderConfig) (provider.Provider, error) {
	var (
		p   provider.Provider
		err error
	)
	switch cfg.Type {
	case "openai":
		p, err = openaicompat.New(openaicompat.Config{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	case "anthropic":
		p, err = anthropic.NewFromAPIKey(cfg.APIKey, cfg.BaseURL, anthropic.Options{
			Model: cfg.Model, MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature,
		})
	case "gemini":
		p, err = gemini.NewFromAPIKey(ctx, cfg.APIKey, gemini.Options{
			Model: cfg.Model, MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature,
		})
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", cfg.Type, err)
	}

	if cfg.TokensPerMinute > 0 {
		p = ratelimit.New(cfg.TokensPerMinute).Wrap(p)
		slog.Info("model rate limit enabled", "tokens_per_minute", cfg.TokensPerMinute)
	}
	slog.Info("provider configured", "type", cfg.Type, "model", cfg.Model)
	return provider.Instrument(p, cfg.Model), nil
}

// OpenDatabase opens the backend of the database tools.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (database.Backend, error) {
	switch cfg.Type {
	case "sqlite":
		db, err := database.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite database %s: %w", cfg.Path, err)
		}
		slog.Info("database opened", "type", "sqlite", "path", cfg.Path)
		return db, nil
	case "postgres":
		db, err := database.NewPostgres(ctx, database.PostgresConfig{DSN: cfg.DSN, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres database: %w", err)
		}
		slog.Info("database opened", "type", "postgres")
		return db, nil
	}
	return nil, fmt.Errorf("unknown database type %q", cfg.Type)
}

// NewRunner creates the runner for generated code: the in-process
// interpreter, or a client of remote sandbox servers.
func NewRunner(cfg config.ExecutorConfig, catalog *tools.Catalog) (executor.Runner, error) {
	switch cfg.Mode {
	case "local":
		return NewExecutor(cfg, catalog), nil
	case "remote":
		var acquirer sandbox.Acquirer = sandbox.Static(cfg.Sandbox.URL)
		if k := cfg.Sandbox.Kubernetes; k.Template != "" {
			c, err := kubernetes.NewClient()
			if err != nil {
				return nil, err
			}
			acquirer = kubernetes.NewClaimAcquirer(c, kubernetes.Config{
				Template:     k.Template,
				Namespace:    k.Namespace,
				Port:         k.Port,
				ReadyTimeout: k.ReadyTimeout,
			})
			slog.Info("sandbox runner configured", "mode", "kubernetes", "template", k.Template, "namespace", k.Namespace)
		} else {
			slog.Info("sandbox runner configured", "mode", "static", "url", cfg.Sandbox.URL)
		}
		return sandbox.NewRunner(acquirer, sandbox.NewClient(&http.Client{}), cfg.Sandbox.Timeout), nil
	}
	return nil, fmt.Errorf("unknown executor mode %q", cfg.Mode)
}

// NewExecutor creates the in-process interpreter with the catalog exposed
// as the tools package.
func NewExecutor(cfg config.ExecutorConfig, catalog *tools.Catalog) *executor.Executor {
	opts := []executor.Option{executor.WithPackage(tools.ImportPath, catalog.Symbols)}
	if len(cfg.AllowedImports) > 0 {
		opts = append(opts, executor.WithAllowedImports(cfg.AllowedImports...))
	}
	return executor.New(opts...)
}

// NewKnowledge creates the background knowledge retriever.
func NewKnowledge(cfg config.KnowledgeConfig, model provider.Provider) (knowledge.Retriever, error) {
	switch cfg.Type {
	case "none":
		return knowledge.Static{}, nil
	case "static":
		return knowledge.Static{Text: cfg.Text}, nil
	case "qdrant":
		return knowledge.NewVector(knowledge.VectorConfig{
			Model:    model,
			Embedder: knowledge.NewOpenAIEmbedder(cfg.EmbeddingURL, cfg.EmbeddingModel, cfg.EmbeddingAPIKey),
			Index:    knowledge.NewQdrant(cfg.QdrantURL, cfg.Collection, cfg.QdrantAPIKey),
			Limit:    cfg.Limit,
		})
	}
	return nil, fmt.Errorf("unknown knowledge type %q", cfg.Type)
}

// NewAuditSink creates the audit sink, or nil when auditing is disabled.
func NewAuditSink(ctx context.Context, cfg config.AuditConfig) (storage.Sink, error) {
	switch cfg.Type {
	case "none":
		return nil, nil
	case "memory":
		return memory.New(cfg.MaxSize), nil
	case "postgres":
		s, err := postgres.New(ctx, postgres.Config{
			DSN:              cfg.Postgres.DSN,
			MaxConns:         cfg.Postgres.MaxConns,
			StatementTimeout: cfg.Postgres.StatementTimeout,
			MigrateOnStart:   cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting audit store: %w", err)
		}
		return s, nil
	case "redis":
		s, err := redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Stream:   cfg.Redis.Stream,
			MaxLen:   cfg.Redis.MaxLen,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting audit stream: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown audit type %q", cfg.Type)
}
