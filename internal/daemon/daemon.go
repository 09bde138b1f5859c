// Package daemon runs serve mode: the HTTP server, the document cache
// watcher and the optional periodic update and rebase runs.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/resourcesync/internal/config"
	"git.home.luguber.info/inful/resourcesync/internal/generator"
	"git.home.luguber.info/inful/resourcesync/internal/logfields"
	"git.home.luguber.info/inful/resourcesync/internal/server/httpserver"
)

const shutdownTimeout = 10 * time.Second

// Daemon owns the serve mode components.
type Daemon struct {
	cfg       *config.Config
	server    *httpserver.Server
	watcher   *DocumentWatcher
	scheduler *Scheduler
}

// New wires a daemon. cache is invalidated as the output directory changes.
func New(cfg *config.Config, runner Runner, server *httpserver.Server, cache Invalidator) (*Daemon, error) {
	watcher, err := NewDocumentWatcher(cfg.Dir, cache)
	if err != nil {
		return nil, err
	}
	sched, err := NewScheduler(runner)
	if err != nil {
		watcher.Stop()
		return nil, err
	}
	for _, job := range []struct {
		every time.Duration
		mode  generator.Mode
	}{
		{cfg.Server.UpdateInterval, generator.ModeUpdate},
		{cfg.Server.RebaseInterval, generator.ModeRebase},
	} {
		if job.every <= 0 {
			continue
		}
		if _, err := sched.SchedulePeriodicRun(job.every, job.mode); err != nil {
			watcher.Stop()
			_ = sched.Stop()
			return nil, err
		}
	}
	return &Daemon{cfg: cfg, server: server, watcher: watcher, scheduler: sched}, nil
}

// Run serves until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.server.Start(ctx); err != nil {
		d.watcher.Stop()
		_ = d.scheduler.Stop()
		return err
	}
	if err := d.watcher.Start(ctx); err != nil {
		slog.Warn("Document cache will not follow external changes", logfields.Error(err))
	}
	d.scheduler.Start(ctx)

	<-ctx.Done()
	slog.Info("Shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	d.watcher.Stop()
	if err := d.scheduler.Stop(); err != nil {
		slog.Warn("Scheduler shutdown failed", logfields.Error(err))
	}
	return d.server.Stop(stopCtx)
}
