package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kebairia/habackup/internal/changes"
	"github.com/kebairia/habackup/internal/logger"
	"github.com/kebairia/habackup/internal/manager"
	"github.com/kebairia/habackup/internal/settings"
	"github.com/kebairia/habackup/internal/supervisor"
	"github.com/kebairia/habackup/internal/vault"
)

// defaultVaultSecretPath is where the supervisor credentials live when a
// Vault server is configured.
const defaultVaultSecretPath = "secret/data/habackup/supervisor"

// app bundles everything a command needs.
type app struct {
	log      logger.Logger
	api      *supervisor.Client
	store    *changes.Store
	settings *settings.Store
	mgr      *manager.Manager
}

// newApp initializes logging, stores and the supervisor client. The
// breaking change store is seeded with the curated dataset on first run.
func newApp(ctx context.Context) (*app, error) {
	log, err := logger.Init(Debug)
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}

	cfg, err := settings.NewStore(filepath.Join(DataDir, "config.json"))
	if err != nil {
		return nil, fmt.Errorf("settings store: %w", err)
	}

	store, err := changes.NewStore(filepath.Join(DataDir, "breaking_changes.json"), log)
	if err != nil {
		return nil, fmt.Errorf("breaking change store: %w", err)
	}
	if store.Len() == 0 {
		if _, err := store.Update(changes.SeedFetcher{}); err != nil {
			return nil, fmt.Errorf("seed breaking changes: %w", err)
		}
	}

	api, err := newSupervisorClient(ctx, log)
	if err != nil {
		return nil, err
	}

	return &app{
		log:      log,
		api:      api,
		store:    store,
		settings: cfg,
		mgr:      manager.New(api, store, cfg, changes.SeedFetcher{}, log),
	}, nil
}

// newSupervisorClient builds the supervisor client. When no token is in
// the environment and a Vault address is configured, the token is fetched
// from Vault instead.
func newSupervisorClient(ctx context.Context, log logger.Logger) (*supervisor.Client, error) {
	var opts []supervisor.Option

	if os.Getenv("SUPERVISOR_TOKEN") == "" && os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("vault client init: %w", err)
		}
		path := os.Getenv("HABACKUP_VAULT_SECRET_PATH")
		if path == "" {
			path = defaultVaultSecretPath
		}
		creds, err := vc.GetSupervisorCredentials(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("fetch supervisor credentials: %w", err)
		}
		log.Info("supervisor token loaded from vault", "path", path)
		opts = append(opts, supervisor.WithToken(creds.Token))
		if creds.URL != "" {
			opts = append(opts, supervisor.WithBaseURL(creds.URL))
		}
	}

	return supervisor.NewClient(log, opts...), nil
}
