package builder

import (
	"context"
	"time"

	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/repository"
	"git.home.luguber.info/inful/resourcesync/internal/rsxml"
)

// ChangeSummary counts the entries of a change list by change kind.
type ChangeSummary struct {
	Items   int
	Updated int
	Deleted int
}

// Entries is the total number of entries.
func (s ChangeSummary) Entries() int { return s.Updated + s.Deleted }

// ChangeList records every representation of every item modified in
// [from, until). Withdrawn items are always included so their removal is
// published; restricted items only when configured.
func (b *Builder) ChangeList(ctx context.Context, from, until time.Time) (*rsxml.Document, ChangeSummary, error) {
	var sum ChangeSummary
	doc := b.emptyChangeList(from, until)
	doc.AddLink(rsxml.RelIndex, b.urls.ChangeListArchive())
	if !from.Before(until) {
		return doc, sum, nil
	}

	items, err := b.repo.Changed(ctx, repository.ChangeQuery{
		From:              from,
		Until:             until,
		IncludeWithdrawn:  true,
		IncludeRestricted: b.cfg.ChangeListIncludeRestricted,
	})
	if err != nil {
		return nil, sum, rserrors.RepositoryAccess("query changes", err)
	}

	for _, it := range items {
		change := Classify(it)
		reps, err := b.catalog.Representations(ctx, it)
		if err != nil {
			return nil, sum, err
		}
		sum.Items++
		for i := range reps {
			doc.Add(entry(&reps[i], URLLocator{}, entryOptions{change: change, lastMod: it.LastModified}))
			if change == rsxml.ChangeDeleted {
				sum.Deleted++
			} else {
				sum.Updated++
			}
		}
	}
	return doc, sum, nil
}

// EmptyChangeList is the zero-length change list written by init to anchor
// the first update window. No archive exists yet, so it carries no index link.
func (b *Builder) EmptyChangeList(at time.Time) *rsxml.Document {
	return b.emptyChangeList(at, at)
}

func (b *Builder) emptyChangeList(from, until time.Time) *rsxml.Document {
	doc := rsxml.NewURLSet(rsxml.CapChangeList)
	doc.Metadata.From = from
	doc.Metadata.Until = until
	doc.AddLink(rsxml.RelUp, b.urls.CapabilityList())
	return doc
}
