package commands

import (
	"context"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/resourcesync/internal/assetstore"
	"git.home.luguber.info/inful/resourcesync/internal/config"
	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/generator"
	"git.home.luguber.info/inful/resourcesync/internal/logfields"
	"git.home.luguber.info/inful/resourcesync/internal/metrics"
	"git.home.luguber.info/inful/resourcesync/internal/notify"
	"git.home.luguber.info/inful/resourcesync/internal/repository"
	"git.home.luguber.info/inful/resourcesync/internal/state"
)

// environment holds the components opened for one configuration file.
type environment struct {
	cfg       *config.Config
	repo      *repository.SQLite
	store     *state.Store
	registry  *prom.Registry
	publisher notify.Publisher
	generator *generator.Generator
}

// openEnvironment loads the configuration and wires the generator.
func openEnvironment(ctx context.Context, configPath string) (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Repository.DB == "" {
		return nil, rserrors.ConfigRequired(config.KeyRepositoryDB)
	}

	assets, err := assetstore.New(ctx, cfg.AssetStore)
	if err != nil {
		return nil, rserrors.RepositoryAccess("open assetstore", err)
	}
	repo, err := repository.NewSQLite(cfg.Repository.DB, assets)
	if err != nil {
		return nil, rserrors.RepositoryAccess("open database", err)
	}

	env := &environment{
		cfg:      cfg,
		repo:     repo,
		store:    state.New(afero.NewOsFs(), cfg.Dir),
		registry: prom.NewRegistry(),
	}

	// A broker that is down must not block publishing; runs go ahead unannounced.
	env.publisher, err = notify.New(cfg.Notify)
	if err != nil {
		slog.Warn("Change notifications disabled", logfields.Error(err))
		env.publisher = notify.Noop{}
	}

	gen, err := generator.New(cfg, repo, env.store)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.generator = gen.
		WithRecorder(metrics.NewPrometheusRecorder(env.registry)).
		WithRegistry(env.registry).
		WithPublisher(env.publisher)
	return env, nil
}

func (e *environment) Close() {
	if err := e.publisher.Close(); err != nil {
		slog.Warn("Failed to close publisher", logfields.Error(err))
	}
	if err := e.repo.Close(); err != nil {
		slog.Warn("Failed to close repository", logfields.Error(err))
	}
}

// runOnce executes a single init, update or rebase run.
func runOnce(ctx context.Context, configPath string, mode generator.Mode) error {
	env, err := openEnvironment(ctx, configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.generator.Run(ctx, mode)
	if err != nil {
		return err
	}
	if res.ChangeList != "" {
		slog.Info("Change list published",
			logfields.Document(res.ChangeList),
			slog.Int("updated", res.Changes.Updated),
			slog.Int("deleted", res.Changes.Deleted))
	}
	return nil
}
