package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"studyhelper/internal/apperr"
	"studyhelper/internal/config"
	"studyhelper/internal/drafts"
	"studyhelper/internal/logger"
	"studyhelper/internal/redis"
	"studyhelper/internal/service/ai"
	"studyhelper/internal/service/extract"
	"studyhelper/internal/service/study"
	"studyhelper/internal/storage"
	"studyhelper/internal/studio"
)

// app holds everything the sub-commands share. Fields are built once in
// newApp and released by close.
type app struct {
	cfg       *config.Config
	logger    *logger.Logger
	db        *sql.DB
	store     *study.Store
	extractor *extract.Extractor
	generator *study.Generator // nil when no credential is configured
	warning   string
	redis     *redis.Client
}

type appOptions struct {
	configPath string
	// quiet discards logs; used when stdout/stderr belong to a terminal UI.
	quiet bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	path := opts.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.Nop()
	if !opts.quiet {
		if log, err = logger.New(cfg.BasicConfig.LogMode); err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	a := &app{cfg: cfg, logger: log}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	dbType := cfg.BasicConfig.Database
	log.Info("opening database", "driver", dbType)
	if a.db, err = storage.Open(dbType, cfg); err != nil {
		return nil, err
	}
	a.store = study.NewStore(a.db, dbType)
	if err := a.store.Initialize(ctx); err != nil {
		return nil, err
	}

	if a.extractor, err = extract.New(ctx); err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}

	if err := a.initGenerator(ctx); err != nil {
		return nil, err
	}
	ok = true
	return a, nil
}

// initGenerator resolves the provider credential. A missing credential is
// not fatal: the app runs with generation disabled and a warning.
func (a *app) initGenerator(ctx context.Context) error {
	secrets, err := config.LoadSecrets(a.cfg.BasicConfig.SecretsPath)
	if err != nil {
		return err
	}
	provider, providerCfg := a.cfg.ProviderSettings()
	apiKey, err := config.ResolveCredential(secrets, providerCfg.APIKeyEnv)
	if err != nil {
		if !errors.Is(err, apperr.ErrMissingCredential) {
			return err
		}
		a.warning = fmt.Sprintf("Please add your %s in the secrets file or environment variables.", providerCfg.APIKeyEnv)
		a.logger.Warn("generation disabled", "provider", provider, "reason", err)
		return nil
	}

	client, err := ai.NewClient(ctx, provider, providerCfg, apiKey)
	if err != nil {
		return fmt.Errorf("init %s client: %w", provider, err)
	}
	a.logger.Info("model client ready", "model", client.Model())
	a.generator = study.NewGenerator(client, a.store, a.logger.With("model", client.Model()))
	return nil
}

// newStudio builds the interactive state machine with the configured draft
// cache.
func (a *app) newStudio(ctx context.Context) (*studio.Studio, error) {
	ttl := time.Duration(a.cfg.BasicConfig.DraftTTLMinutes) * time.Minute

	var store drafts.Store
	switch strings.ToLower(a.cfg.BasicConfig.DraftStore) {
	case "redis":
		client, err := redis.NewRedisClient(ctx, a.cfg.Redis, "studyhelper:")
		if err != nil {
			return nil, fmt.Errorf("create redis client: %w", err)
		}
		a.redis = client
		store = drafts.NewRedisStore(client, ttl)
	case "memory", "":
		store = drafts.NewMemoryStore(ttl)
	default:
		return nil, fmt.Errorf("unsupported draft store: %s", a.cfg.BasicConfig.DraftStore)
	}

	deps := studio.Deps{
		Extractor: a.extractor,
		History:   a.store,
		Drafts:    store,
		Logger:    a.logger,
		Warning:   a.warning,
	}
	if a.generator != nil {
		deps.Generator = a.generator
	}
	return studio.New(deps), nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}
	a.logger.Sync()
}
