package builder

import (
	"context"
	"time"

	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/repository"
	"git.home.luguber.info/inful/resourcesync/internal/rsxml"
)

// ResourceList enumerates every representation of every archived item.
// Restricted items are listed under the same rule as change lists so both
// documents describe one resource set. The document carries the single build
// time at.
func (b *Builder) ResourceList(ctx context.Context, at time.Time) (*rsxml.Document, error) {
	items, err := b.repo.Items(ctx, repository.ItemQuery{IncludeRestricted: b.cfg.ChangeListIncludeRestricted})
	if err != nil {
		return nil, rserrors.RepositoryAccess("list items", err)
	}

	doc := rsxml.NewURLSet(rsxml.CapResourceList)
	doc.Metadata.At = at
	doc.AddLink(rsxml.RelUp, b.urls.CapabilityList())

	for _, it := range items {
		reps, err := b.catalog.Representations(ctx, it)
		if err != nil {
			return nil, err
		}
		for i := range reps {
			doc.Add(entry(&reps[i], URLLocator{}, entryOptions{changeFreq: true}))
		}
	}
	return doc, nil
}
