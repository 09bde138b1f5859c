// Package catalog composes the published representations of repository
// items: one per exposed bitstream and one per configured metadata format.
package catalog

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/resourcesync/internal/config"
	"git.home.luguber.info/inful/resourcesync/internal/crosswalk"
	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/repository"
	"git.home.luguber.info/inful/resourcesync/internal/rsxml"
	"git.home.luguber.info/inful/resourcesync/internal/urls"
)

// Kind distinguishes bitstream and metadata representations.
type Kind int

const (
	KindBitstream Kind = iota
	KindMetadata
)

func (k Kind) String() string {
	if k == KindMetadata {
		return "metadata"
	}
	return "bitstream"
}

// DumpRoot is the archive directory holding representation bytes.
const DumpRoot = "resources"

const sniffLen = 512

// Representation is one published form of an item.
type Representation struct {
	Kind Kind
	Item *repository.Item
	// Bitstream is set for KindBitstream.
	Bitstream *repository.Bitstream
	// Format is set for KindMetadata.
	Format config.MetadataFormat

	URL      string
	MIMEType string
	// Length is known for bitstreams only.
	Length *int64
	// Hash is "<algorithm>:<hex>" when the repository recorded a checksum.
	Hash         string
	LastModified time.Time
	ChangeFreq   string
	// DumpPath is the archive-relative path of the bytes inside a resource dump.
	DumpPath string
	Links    []rsxml.Link
}

// Catalog composes representations from repository items.
type Catalog struct {
	cfg        *config.Config
	urls       *urls.Resolver
	repo       repository.Repository
	crosswalks *crosswalk.Registry
}

// New fails when a configured metadata format has no crosswalk.
func New(cfg *config.Config, resolver *urls.Resolver, repo repository.Repository, crosswalks *crosswalk.Registry) (*Catalog, error) {
	for _, f := range cfg.MetadataFormats {
		if !crosswalks.Supports(f.Prefix) {
			return nil, rserrors.ConfigInvalid(config.KeyMetadataFormats, "no crosswalk for format "+f.Prefix)
		}
	}
	return &Catalog{cfg: cfg, urls: resolver, repo: repo, crosswalks: crosswalks}, nil
}

// Representations returns the exposed bitstreams of item in bundle order,
// followed by one metadata representation per configured format.
func (c *Catalog) Representations(ctx context.Context, item *repository.Item) ([]Representation, error) {
	var bitstreams []*repository.Bitstream
	for bi := range item.Bundles {
		b := &item.Bundles[bi]
		if !c.cfg.Exposes(b.Name) {
			continue
		}
		for i := range b.Bitstreams {
			bitstreams = append(bitstreams, &b.Bitstreams[i])
		}
	}

	metadataURLs := make([]string, len(c.cfg.MetadataFormats))
	for i, f := range c.cfg.MetadataFormats {
		metadataURLs[i] = c.urls.Metadata(item.Handle, f.Prefix, item.ID)
	}
	collectionLinks := make([]rsxml.Link, 0, len(item.Collections))
	for _, col := range item.Collections {
		collectionLinks = append(collectionLinks, rsxml.Link{Rel: rsxml.RelCollection, Href: c.urls.Collection(col.Handle)})
	}

	reps := make([]Representation, 0, len(bitstreams)+len(c.cfg.MetadataFormats))
	bitstreamURLs := make([]string, 0, len(bitstreams))
	for _, bs := range bitstreams {
		rep, err := c.bitstream(ctx, item, bs)
		if err != nil {
			return nil, err
		}
		for i, u := range metadataURLs {
			rep.Links = append(rep.Links, rsxml.Link{Rel: rsxml.RelDescribedBy, Href: u, Type: c.cfg.MetadataFormats[i].MIMEType})
		}
		rep.Links = append(rep.Links, collectionLinks...)
		bitstreamURLs = append(bitstreamURLs, rep.URL)
		reps = append(reps, rep)
	}

	for i, f := range c.cfg.MetadataFormats {
		rep := Representation{
			Kind:         KindMetadata,
			Item:         item,
			Format:       f,
			URL:          metadataURLs[i],
			MIMEType:     f.MIMEType,
			LastModified: item.LastModified,
			ChangeFreq:   c.cfg.MetadataChangeFreq,
			DumpPath:     itemDumpDir(item) + "/" + safeName(f.Prefix),
		}
		rep.Links = append(rep.Links, rsxml.Link{Rel: rsxml.RelDescribedBy, Href: f.Namespace})
		for _, u := range bitstreamURLs {
			rep.Links = append(rep.Links, rsxml.Link{Rel: rsxml.RelDescribes, Href: u})
		}
		rep.Links = append(rep.Links, collectionLinks...)
		reps = append(reps, rep)
	}
	return reps, nil
}

func (c *Catalog) bitstream(ctx context.Context, item *repository.Item, bs *repository.Bitstream) (Representation, error) {
	mime := bs.MIMEType
	if mime == "" {
		sniffed, err := c.sniff(ctx, bs)
		if err != nil {
			return Representation{}, err
		}
		mime = sniffed
	}
	rep := Representation{
		Kind:       KindBitstream,
		Item:       item,
		Bitstream:  bs,
		URL:        c.urls.Bitstream(item.Handle, bs.SequenceID, bs.Name, bs.ID),
		MIMEType:   mime,
		Length:     rsxml.Int64(bs.Size),
		ChangeFreq: c.cfg.BitstreamChangeFreq,
		DumpPath:   itemDumpDir(item) + "/" + strconv.Itoa(bs.SequenceID) + "_" + safeName(bs.Name),
	}
	if bs.Checksum != "" {
		algo := strings.ToLower(strings.ReplaceAll(bs.ChecksumAlgorithm, "-", ""))
		if algo == "" {
			algo = "md5"
		}
		rep.Hash = algo + ":" + strings.ToLower(bs.Checksum)
	}
	return rep, nil
}

// sniff detects the MIME type of a bitstream with no recorded format.
func (c *Catalog) sniff(ctx context.Context, bs *repository.Bitstream) (string, error) {
	rc, err := c.repo.OpenBitstream(ctx, bs)
	if err != nil {
		return "", rserrors.RepositoryAccess("sniff bitstream", err).WithContext("bitstream", bs.ID)
	}
	defer rc.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", rserrors.RepositoryAccess("sniff bitstream", err).WithContext("bitstream", bs.ID)
	}
	if n == 0 {
		return "application/octet-stream", nil
	}
	return mimetype.Detect(buf[:n]).String(), nil
}

// Fetch opens the bytes of a representation: bitstream content from the
// repository, or the crosswalk rendering for metadata.
func (c *Catalog) Fetch(ctx context.Context, rep *Representation) (io.ReadCloser, error) {
	switch rep.Kind {
	case KindBitstream:
		rc, err := c.repo.OpenBitstream(ctx, rep.Bitstream)
		if err != nil {
			return nil, rserrors.RepositoryAccess("fetch bitstream", err).WithContext("url", rep.URL)
		}
		return rc, nil
	default:
		data, err := c.crosswalks.Render(ctx, rep.Format.Prefix, rep.Item)
		if err != nil {
			return nil, rserrors.RepositoryAccess("render metadata", err).WithContext("url", rep.URL)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

func itemDumpDir(item *repository.Item) string {
	h := item.Handle
	if h == "" {
		h = "item_" + strconv.FormatInt(item.ID, 10)
	}
	return DumpRoot + "/" + strings.ReplaceAll(h, "/", "_")
}

// safeName keeps a name usable as a single archive path segment.
func safeName(name string) string {
	name = norm.NFC.String(name)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	switch name {
	case "", ".", "..":
		return "_" + name
	}
	return name
}
