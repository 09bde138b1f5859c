// Package generator runs the init, update and rebase workflows over the
// output directory.
//
// The directory is the only state: it is INITIALIZED once it holds at least
// one change list. Every run stages its documents and publishes them by
// rename in one pass at the end, so a failed run publishes nothing.
package generator

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/resourcesync/internal/builder"
	"git.home.luguber.info/inful/resourcesync/internal/catalog"
	"git.home.luguber.info/inful/resourcesync/internal/config"
	"git.home.luguber.info/inful/resourcesync/internal/crosswalk"
	"git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/history"
	"git.home.luguber.info/inful/resourcesync/internal/logfields"
	"git.home.luguber.info/inful/resourcesync/internal/metrics"
	"git.home.luguber.info/inful/resourcesync/internal/notify"
	"git.home.luguber.info/inful/resourcesync/internal/repository"
	"git.home.luguber.info/inful/resourcesync/internal/state"
	"git.home.luguber.info/inful/resourcesync/internal/urls"
)

// Mode selects the workflow of a run.
type Mode string

const (
	ModeInit   Mode = "init"
	ModeUpdate Mode = "update"
	ModeRebase Mode = "rebase"
)

// Result summarises a run.
type Result struct {
	RunID string
	Mode  Mode
	// At is the build time shared by every document of the run.
	At time.Time
	// ChangeList is the file name of the change list written by the run.
	ChangeList string
	From       time.Time
	Until      time.Time
	Changes    builder.ChangeSummary
	// ResourceListEntries is zero when the run did not rebuild the resource list.
	ResourceListEntries int
	DumpSize            int64
	Published           []string
	// Snapshot is the history commit, if one was made.
	Snapshot string
}

// Generator owns one configured output directory.
type Generator struct {
	cfg     *config.Config
	urls    *urls.Resolver
	builder *builder.Builder
	store   *state.Store

	recorder  metrics.Recorder
	publisher notify.Publisher
	registry  *prom.Registry
	snapshot  func(message string) (string, error)
	now       func() time.Time
	newRunID  func() string

	mu sync.Mutex
}

// New wires the document builders for cfg over repo and store.
func New(cfg *config.Config, repo repository.Repository, store *state.Store) (*Generator, error) {
	resolver := urls.New(cfg.BaseURL, cfg.Repository.URL)
	cat, err := catalog.New(cfg, resolver, repo, crosswalk.NewRegistry())
	if err != nil {
		return nil, err
	}
	g := &Generator{
		cfg:       cfg,
		urls:      resolver,
		builder:   builder.New(cfg, resolver, repo, cat),
		store:     store,
		recorder:  metrics.NoopRecorder{},
		publisher: notify.Noop{},
		now:       time.Now,
		newRunID:  func() string { return uuid.NewString() },
	}
	if cfg.History.Enabled {
		g.snapshot = func(message string) (string, error) {
			rec, err := history.Open(cfg.History.Dir, store.Dir())
			if err != nil {
				return "", err
			}
			return rec.Snapshot(message)
		}
	}
	return g, nil
}

// WithRecorder sets the metrics recorder.
func (g *Generator) WithRecorder(r metrics.Recorder) *Generator {
	if r != nil {
		g.recorder = r
	}
	return g
}

// WithPublisher sets where run events are announced.
func (g *Generator) WithPublisher(p notify.Publisher) *Generator {
	if p != nil {
		g.publisher = p
	}
	return g
}

// WithRegistry sets the registry written to the metrics textfile.
func (g *Generator) WithRegistry(reg *prom.Registry) *Generator {
	g.registry = reg
	return g
}

// WithClock replaces the wall clock.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Run executes one workflow. Runs on the same Generator never overlap.
func (g *Generator) Run(ctx context.Context, mode Mode) (*Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	res := &Result{RunID: g.newRunID(), Mode: mode}
	log := slog.With(logfields.RunID(res.RunID), logfields.Mode(string(mode)))
	start := time.Now()
	log.Info("Run started", slog.String("dir", g.store.Dir()))

	err := g.run(ctx, log, res)
	elapsed := time.Since(start)
	g.recorder.ObserveRunDuration(string(mode), elapsed)
	if err != nil {
		outcome := metrics.OutcomeFailed
		if stderrors.Is(err, context.Canceled) {
			outcome = metrics.OutcomeCanceled
		}
		g.recorder.IncRunOutcome(string(mode), outcome)
		g.writeTextfile(log)
		log.Error("Run failed", logfields.Error(err), logfields.DurationMS(float64(elapsed.Milliseconds())))
		return res, err
	}

	g.recorder.IncRunOutcome(string(mode), metrics.OutcomeSuccess)
	g.recorder.SetLastSuccess(string(mode), res.At)
	g.afterCommit(ctx, log, res)
	log.Info("Run finished",
		slog.Int("published", len(res.Published)),
		logfields.DurationMS(float64(elapsed.Milliseconds())))
	return res, nil
}

func (g *Generator) run(ctx context.Context, log *slog.Logger, res *Result) error {
	res.At = g.now().UTC().Truncate(time.Second)
	if err := g.store.Ensure(); err != nil {
		return err
	}
	switch res.Mode {
	case ModeInit:
		return g.initialize(ctx, log, res)
	case ModeUpdate:
		return g.update(ctx, log, res, false)
	case ModeRebase:
		return g.update(ctx, log, res, true)
	default:
		return errors.InternalError("unknown mode", nil).WithContext("mode", string(res.Mode))
	}
}

// afterCommit runs the optional follow-ups of a published run. The documents
// are already live, so failures here are logged and do not fail the run.
func (g *Generator) afterCommit(ctx context.Context, log *slog.Logger, res *Result) {
	ev := &notify.Event{
		RunID:          res.RunID,
		Mode:           string(res.Mode),
		CapabilityList: g.urls.CapabilityList(),
		From:           res.From,
		Until:          res.Until,
		Updated:        res.Changes.Updated,
		Deleted:        res.Changes.Deleted,
	}
	if res.ChangeList != "" {
		ev.ChangeList = g.urls.ChangeList(res.ChangeList)
	}
	if err := g.publisher.Publish(ctx, ev); err != nil {
		log.Warn("Change notification failed", logfields.Error(err))
	}

	if g.snapshot != nil {
		hash, err := g.snapshot(fmt.Sprintf("%s %s", res.Mode, res.At.Format(time.RFC3339)))
		switch {
		case err != nil:
			log.Warn("History snapshot failed", logfields.Error(err))
		case hash != "":
			res.Snapshot = hash
			log.Info("History snapshot committed", slog.String("commit", hash))
		}
	}

	g.writeTextfile(log)
}

func (g *Generator) writeTextfile(log *slog.Logger) {
	if g.cfg.Metrics.Textfile == "" || g.registry == nil {
		return
	}
	if err := metrics.WriteTextfile(g.cfg.Metrics.Textfile, g.registry); err != nil {
		log.Warn("Metrics textfile write failed", logfields.Path(g.cfg.Metrics.Textfile), logfields.Error(err))
	}
}
