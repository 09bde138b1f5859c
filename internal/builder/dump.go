package builder

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
	"go.uber.org/multierr"

	"git.home.luguber.info/inful/resourcesync/internal/catalog"
	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/repository"
	"git.home.luguber.info/inful/resourcesync/internal/rsxml"
	"git.home.luguber.info/inful/resourcesync/internal/urls"
)

// DumpResult describes a written resource dump archive.
type DumpResult struct {
	Manifest *rsxml.Document
	Entries  int
}

// ResourceDump streams the bytes of every representation of every archived
// item into a zip archive written to w, then appends manifest.xml. Restricted
// items never enter the archive. Fetch
// failures are collected over the whole dump and returned together; any
// failure means the archive must not be published.
func (b *Builder) ResourceDump(ctx context.Context, w io.Writer, at time.Time) (*DumpResult, error) {
	items, err := b.repo.Items(ctx, repository.ItemQuery{})
	if err != nil {
		return nil, rserrors.RepositoryAccess("list items", err)
	}

	manifest := rsxml.NewURLSet(rsxml.CapResourceDumpManifest)
	manifest.Metadata.At = at
	manifest.AddLink(rsxml.RelUp, b.urls.CapabilityList())

	zw := zip.NewWriter(w)
	var errs error
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reps, err := b.catalog.Representations(ctx, it)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for i := range reps {
			rep := &reps[i]
			if err := b.copyRepresentation(ctx, zw, rep, at); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			manifest.Add(entry(rep, DumpLocator{}, entryOptions{changeFreq: true}))
		}
	}
	if errs != nil {
		return nil, rserrors.RepositoryAccess("build resource dump", errs).
			WithContext("failures", len(multierr.Errors(errs)))
	}

	mw, err := zw.Create(urls.Manifest)
	if err != nil {
		return nil, rserrors.SerializationFailed(urls.Manifest, err)
	}
	if err := rsxml.Encode(mw, manifest); err != nil {
		return nil, rserrors.SerializationFailed(urls.Manifest, err)
	}
	if err := zw.Close(); err != nil {
		return nil, rserrors.SerializationFailed(urls.ResourceDumpZip, err)
	}
	return &DumpResult{Manifest: manifest, Entries: len(manifest.Entries)}, nil
}

func (b *Builder) copyRepresentation(ctx context.Context, zw *zip.Writer, rep *catalog.Representation, at time.Time) error {
	rc, err := b.catalog.Fetch(ctx, rep)
	if err != nil {
		return err
	}
	defer rc.Close()

	modified := rep.LastModified
	if modified.IsZero() {
		modified = at
	}
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     rep.DumpPath,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return rserrors.SerializationFailed(urls.ResourceDumpZip, err).WithContext("path", rep.DumpPath)
	}
	n, err := io.Copy(fw, rc)
	if err != nil {
		return rserrors.RepositoryAccess("copy representation", err).WithContext("url", rep.URL)
	}
	if rep.Length != nil && n != *rep.Length {
		return rserrors.RepositoryAccess("copy representation",
			fmt.Errorf("read %d bytes, repository records %d", n, *rep.Length)).WithContext("url", rep.URL)
	}
	return nil
}

// ResourceDumpDocument describes the published archive of the given size.
func (b *Builder) ResourceDumpDocument(at time.Time, size int64) *rsxml.Document {
	doc := rsxml.NewURLSet(rsxml.CapResourceDump)
	doc.Metadata.At = at
	doc.AddLink(rsxml.RelUp, b.urls.CapabilityList())
	doc.Add(rsxml.Entry{
		Loc:     b.urls.ResourceDumpZip(),
		LastMod: at,
		Metadata: &rsxml.Metadata{
			Type:   "application/zip",
			Length: rsxml.Int64(size),
		},
	})
	return doc
}
