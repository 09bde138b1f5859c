package commands

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/resourcesync/internal/crosswalk"
	"git.home.luguber.info/inful/resourcesync/internal/daemon"
	"git.home.luguber.info/inful/resourcesync/internal/logfields"
	"git.home.luguber.info/inful/resourcesync/internal/metrics"
	"git.home.luguber.info/inful/resourcesync/internal/server/handlers"
	"git.home.luguber.info/inful/resourcesync/internal/server/httpserver"
)

// runServe serves the output directory until ctx is canceled.
func runServe(ctx context.Context, configPath string) error {
	env, err := openEnvironment(ctx, configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	// The watcher needs the directory before the first init.
	if err := env.store.Ensure(); err != nil {
		return err
	}

	env.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	docs := handlers.NewDocumentHandlers(env.store)
	srv := httpserver.New(env.cfg, httpserver.Options{
		Documents: docs,
		Metadata:  handlers.NewMetadataHandlers(env.cfg, env.repo, crosswalk.NewRegistry()),
		Health:    handlers.NewHealthHandlers(env.store),
		Metrics:   metrics.HTTPHandler(env.registry),
	})

	d, err := daemon.New(env.cfg, env.generator, srv, docs)
	if err != nil {
		return err
	}
	slog.Info("Serving ResourceSync documents",
		logfields.Path(env.cfg.Dir),
		logfields.URL(env.cfg.BaseURL),
		slog.String("listen", env.cfg.Server.Listen))
	return d.Run(ctx)
}
