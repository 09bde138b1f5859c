// Package builder composes ResourceSync documents from catalog
// representations. Every document kind shares one entry composer; how an
// entry is located (public URL, or URL plus archive path inside a dump) is a
// Locator strategy.
package builder

import (
	"time"

	"git.home.luguber.info/inful/resourcesync/internal/catalog"
	"git.home.luguber.info/inful/resourcesync/internal/config"
	"git.home.luguber.info/inful/resourcesync/internal/repository"
	"git.home.luguber.info/inful/resourcesync/internal/rsxml"
	"git.home.luguber.info/inful/resourcesync/internal/urls"
)

// Locator decides the loc and optional archive path of an entry.
type Locator interface {
	Locate(rep *catalog.Representation) (loc, path string)
}

// URLLocator places entries at their public URL.
type URLLocator struct{}

func (URLLocator) Locate(rep *catalog.Representation) (string, string) {
	return rep.URL, ""
}

// DumpLocator adds the archive path ("/resources/...") used in dump manifests.
type DumpLocator struct{}

func (DumpLocator) Locate(rep *catalog.Representation) (string, string) {
	return rep.URL, "/" + rep.DumpPath
}

// Builder builds documents for one configuration.
type Builder struct {
	cfg     *config.Config
	urls    *urls.Resolver
	repo    repository.Repository
	catalog *catalog.Catalog
}

func New(cfg *config.Config, resolver *urls.Resolver, repo repository.Repository, cat *catalog.Catalog) *Builder {
	return &Builder{cfg: cfg, urls: resolver, repo: repo, catalog: cat}
}

type entryOptions struct {
	change     rsxml.Change
	changeFreq bool
	lastMod    time.Time
}

// entry composes the URL entry of one representation.
func entry(rep *catalog.Representation, loc Locator, opts entryOptions) rsxml.Entry {
	l, path := loc.Locate(rep)
	e := rsxml.Entry{
		Loc:     l,
		LastMod: rep.LastModified,
		Metadata: &rsxml.Metadata{
			Hash:   rep.Hash,
			Length: rep.Length,
			Type:   rep.MIMEType,
			Change: opts.change,
			Path:   path,
		},
		Links: append([]rsxml.Link(nil), rep.Links...),
	}
	if !opts.lastMod.IsZero() {
		e.LastMod = opts.lastMod
	}
	if opts.changeFreq {
		e.ChangeFreq = rep.ChangeFreq
	}
	return e
}
