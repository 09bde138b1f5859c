// Package repository is the read model of the digital-object repository the
// generator publishes: items, their bundles of bitstreams, owning collections
// and descriptive metadata, plus access to bitstream bytes.
package repository

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// ErrNotFound is returned when an item or bitstream does not exist.
var ErrNotFound = errors.New("not found")

// Item is one archived object.
type Item struct {
	ID           int64
	Handle       string
	LastModified time.Time
	Withdrawn    bool
	// Restricted items are not readable anonymously.
	Restricted  bool
	Collections []Collection
	Bundles     []Bundle
	Metadata    []MetadataValue
}

// Bundle is a named, ordered group of bitstreams (ORIGINAL, LICENSE, THUMBNAIL, ...).
type Bundle struct {
	Name       string
	Bitstreams []Bitstream
}

// Bitstream is one stored file.
type Bitstream struct {
	ID                int64
	SequenceID        int
	Name              string
	MIMEType          string
	Size              int64
	Checksum          string
	ChecksumAlgorithm string
	// StorageKey locates the bytes in the assetstore.
	StorageKey string
}

type Collection struct {
	Handle string
	Name   string
}

// MetadataValue is one qualified Dublin Core style value.
type MetadataValue struct {
	Schema    string
	Element   string
	Qualifier string
	Value     string
	Language  string
}

// Field returns schema.element[.qualifier].
func (m MetadataValue) Field() string {
	f := m.Schema + "." + m.Element
	if m.Qualifier != "" {
		f += "." + m.Qualifier
	}
	return f
}

// Values returns all values of the given field in order. A field without a
// qualifier matches every qualifier of the element.
func (it *Item) Values(field string) []string {
	var out []string
	for _, m := range it.Metadata {
		f := m.Field()
		if f == field || strings.HasPrefix(f, field+".") {
			out = append(out, m.Value)
		}
	}
	return out
}

// ItemQuery narrows the archived items returned by Items.
type ItemQuery struct {
	IncludeRestricted bool
}

// Matches reports whether it is listed by the query.
func (q ItemQuery) Matches(it *Item) bool {
	if it.Withdrawn {
		return false
	}
	return q.IncludeRestricted || !it.Restricted
}

// ChangeQuery selects items whose last modification falls in [From, Until).
type ChangeQuery struct {
	From              time.Time
	Until             time.Time
	IncludeWithdrawn  bool
	IncludeRestricted bool
}

// Matches reports whether it falls in the query.
func (q ChangeQuery) Matches(it *Item) bool {
	if it.LastModified.Before(q.From) || !it.LastModified.Before(q.Until) {
		return false
	}
	if it.Withdrawn && !q.IncludeWithdrawn {
		return false
	}
	if it.Restricted && !q.IncludeRestricted {
		return false
	}
	return true
}

// Repository is the read interface the generator consumes.
type Repository interface {
	// Items returns the archived items matching q. Withdrawn items are
	// always excluded.
	Items(ctx context.Context, q ItemQuery) ([]*Item, error)
	// Changed returns the items matching q ordered by last modification.
	Changed(ctx context.Context, q ChangeQuery) ([]*Item, error)
	// Item looks an item up by handle.
	Item(ctx context.Context, handle string) (*Item, error)
	// ItemByID looks an item up by internal id, for items without a handle.
	ItemByID(ctx context.Context, id int64) (*Item, error)
	// OpenBitstream streams the bytes of b.
	OpenBitstream(ctx context.Context, b *Bitstream) (io.ReadCloser, error)
}
