package generator

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/resourcesync/internal/builder"
	"git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/logfields"
	"git.home.luguber.info/inful/resourcesync/internal/rsxml"
	"git.home.luguber.info/inful/resourcesync/internal/state"
	"git.home.luguber.info/inful/resourcesync/internal/urls"
)

// initialize publishes a fresh document set anchored by an empty change list
// stamped with the build time. The directory is wiped only once everything is
// staged.
func (g *Generator) initialize(ctx context.Context, log *slog.Logger, res *Result) error {
	txn := g.store.Begin()
	defer func() { _ = txn.Rollback() }()

	if err := g.stageResources(ctx, log, txn, res); err != nil {
		return err
	}

	res.ChangeList = state.ChangeListName(res.At)
	res.From, res.Until = res.At, res.At
	if err := g.stageDocument(log, txn, res.ChangeList, g.builder.EmptyChangeList(res.At), false); err != nil {
		return err
	}

	set := builder.CapabilitySet{ResourceList: true, ResourceDump: g.cfg.ResourceDumpEnabled}
	if err := g.stagePointers(log, txn, set); err != nil {
		return err
	}
	if err := g.store.Reset(); err != nil {
		return err
	}
	return g.commit(log, txn, res)
}

// update publishes the change list of [latest, now) and merges it into the
// archive. With full set, the resource list (and dump) are rebuilt first.
func (g *Generator) update(ctx context.Context, log *slog.Logger, res *Result, full bool) error {
	latest, ok, err := g.store.Latest()
	if err != nil {
		return err
	}
	if !ok {
		return errors.NotInitialized(g.store.Dir())
	}
	if !latest.Until.Before(res.At) {
		return errors.ChangeListExists(state.ChangeListName(res.At)).
			WithContext("latest", latest.Name)
	}

	txn := g.store.Begin()
	defer func() { _ = txn.Rollback() }()

	if full {
		if err := g.stageResources(ctx, log, txn, res); err != nil {
			return err
		}
	}

	res.From, res.Until = latest.Until, res.At
	log.Info("Collecting changes", logfields.WindowFrom(res.From), logfields.WindowUntil(res.Until))
	stageStart := time.Now()
	doc, sum, err := g.builder.ChangeList(ctx, res.From, res.Until)
	if err != nil {
		return err
	}
	g.recorder.ObserveStageDuration("changelist", time.Since(stageStart))
	res.Changes = sum
	g.recorder.AddChanges(string(rsxml.ChangeUpdated), sum.Updated)
	g.recorder.AddChanges(string(rsxml.ChangeDeleted), sum.Deleted)

	res.ChangeList = state.ChangeListName(res.Until)
	if err := g.stageDocument(log, txn, res.ChangeList, doc, true); err != nil {
		return err
	}

	prior, err := g.priorArchive()
	if err != nil {
		return err
	}
	archive := builder.MergeArchive(prior, g.urls.CapabilityList(), builder.ArchiveEntry{
		Loc:   g.urls.ChangeList(res.ChangeList),
		Until: res.Until,
	})
	if err := g.stageDocument(log, txn, urls.ChangeListArchive, archive, false); err != nil {
		return err
	}

	set := builder.CapabilitySet{ChangeListArchive: true, LatestChangeList: res.ChangeList}
	if full {
		set.ResourceList = true
		set.ResourceDump = g.cfg.ResourceDumpEnabled
	} else {
		if set.ResourceList, err = g.store.Exists(urls.ResourceList); err != nil {
			return err
		}
		if set.ResourceDump, err = g.store.Exists(urls.ResourceDump); err != nil {
			return err
		}
	}
	if err := g.stagePointers(log, txn, set); err != nil {
		return err
	}
	return g.commit(log, txn, res)
}

// stageResources stages the resource list and, when enabled, the resource dump.
func (g *Generator) stageResources(ctx context.Context, log *slog.Logger, txn *state.Txn, res *Result) error {
	stageStart := time.Now()
	rl, err := g.builder.ResourceList(ctx, res.At)
	if err != nil {
		return err
	}
	g.recorder.ObserveStageDuration("resourcelist", time.Since(stageStart))
	res.ResourceListEntries = len(rl.Entries)
	if err := g.stageDocument(log, txn, urls.ResourceList, rl, false); err != nil {
		return err
	}
	if !g.cfg.ResourceDumpEnabled {
		return g.removeDump(log, txn)
	}

	stageStart = time.Now()
	var dump *builder.DumpResult
	err = txn.Write(urls.ResourceDumpZip, func(w io.Writer) error {
		var err error
		dump, err = g.builder.ResourceDump(ctx, w, res.At)
		return err
	})
	if err != nil {
		return err
	}
	size, err := txn.Size(urls.ResourceDumpZip)
	if err != nil {
		return err
	}
	g.recorder.ObserveStageDuration("resourcedump", time.Since(stageStart))
	g.recorder.SetDumpBytes(size)
	res.DumpSize = size
	log.Info("Resource dump staged",
		logfields.Document(urls.ResourceDumpZip),
		logfields.Entries(dump.Entries),
		logfields.Size(humanize.Bytes(uint64(size))))

	return g.stageDocument(log, txn, urls.ResourceDump, g.builder.ResourceDumpDocument(res.At, size), false)
}

// removeDump withdraws a dump published while dumps were enabled.
func (g *Generator) removeDump(log *slog.Logger, txn *state.Txn) error {
	for _, name := range []string{urls.ResourceDump, urls.ResourceDumpZip} {
		exists, err := g.store.Exists(name)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		if err := txn.Remove(name); err != nil {
			return err
		}
		log.Info("Resource dump disabled, removing published document", logfields.Document(name))
	}
	return nil
}

// stagePointers stages the capability list and source description. They are
// staged last so they are published after the documents they point at.
func (g *Generator) stagePointers(log *slog.Logger, txn *state.Txn, set builder.CapabilitySet) error {
	if err := g.stageDocument(log, txn, urls.CapabilityList, g.builder.CapabilityList(set), false); err != nil {
		return err
	}
	return g.stageDocument(log, txn, urls.Description, g.builder.Description(), false)
}

func (g *Generator) stageDocument(log *slog.Logger, txn *state.Txn, name string, doc *rsxml.Document, once bool) error {
	write := txn.Write
	if once {
		write = txn.WriteOnce
	}
	err := write(name, func(w io.Writer) error {
		if err := rsxml.Encode(w, doc); err != nil {
			return errors.SerializationFailed(name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.recorder.SetDocumentEntries(documentKind(name, doc), len(doc.Entries))
	log.Debug("Document staged", logfields.Document(name), logfields.Entries(len(doc.Entries)))
	return nil
}

// priorArchive reads the published change list archive, if any.
func (g *Generator) priorArchive() (*rsxml.Document, error) {
	exists, err := g.store.Exists(urls.ChangeListArchive)
	if err != nil || !exists {
		return nil, err
	}
	data, err := g.store.ReadFile(urls.ChangeListArchive)
	if err != nil {
		return nil, errors.DirectoryError("read", urls.ChangeListArchive, err)
	}
	doc, err := rsxml.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.ArchiveParse(urls.ChangeListArchive, err)
	}
	if !doc.Index {
		return nil, errors.ArchiveParse(urls.ChangeListArchive, errNotIndex)
	}
	return doc, nil
}

func (g *Generator) commit(log *slog.Logger, txn *state.Txn, res *Result) error {
	res.Published = txn.Staged()
	if err := txn.Commit(); err != nil {
		return err
	}
	log.Info("Documents published", slog.Any("documents", res.Published))
	return nil
}

// documentKind labels per-document metrics without a timestamp so change
// lists share one series.
func documentKind(name string, doc *rsxml.Document) string {
	if state.IsChangeList(name) {
		return string(rsxml.CapChangeList)
	}
	if doc.Metadata.Capability != "" {
		return string(doc.Metadata.Capability)
	}
	return name
}
