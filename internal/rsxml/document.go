// Package rsxml models ResourceSync documents: sitemap urlsets and
// sitemap indexes extended with the rs:md and rs:ln elements.
package rsxml

import (
	"time"
)

const (
	SitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"
	RSNamespace      = "http://www.openarchives.org/rs/terms/"

	// TimeLayout is the W3C datetime layout used for every timestamp, always UTC.
	TimeLayout = "2006-01-02T15:04:05Z"
)

// Capability names the role of a document.
type Capability string

const (
	CapDescription          Capability = "description"
	CapCapabilityList       Capability = "capabilitylist"
	CapResourceList         Capability = "resourcelist"
	CapChangeList           Capability = "changelist"
	CapChangeListArchive    Capability = "changelist-archive"
	CapResourceDump         Capability = "resourcedump"
	CapResourceDumpManifest Capability = "resourcedump-manifest"
)

// Change is the kind of change recorded for a change list entry.
type Change string

const (
	ChangeCreated Change = "created"
	ChangeUpdated Change = "updated"
	ChangeDeleted Change = "deleted"
)

// Link relations used by the generator.
const (
	RelUp          = "up"
	RelIndex       = "index"
	RelDescribedBy = "describedby"
	RelDescribes   = "describes"
	RelCollection  = "collection"
)

// Link is an rs:ln element.
type Link struct {
	Rel  string
	Href string
	Type string
}

// Metadata is an rs:md element. Zero values are omitted when encoding.
type Metadata struct {
	Capability Capability
	At         time.Time
	Completed  time.Time
	From       time.Time
	Until      time.Time

	Hash   string
	Length *int64
	Type   string
	Change Change
	Path   string
}

// Entry is a url element of a urlset or a sitemap element of an index.
type Entry struct {
	Loc        string
	LastMod    time.Time
	ChangeFreq string
	Metadata   *Metadata
	Links      []Link
}

// Document is a complete ResourceSync document.
type Document struct {
	// Index selects a sitemapindex root instead of urlset.
	Index    bool
	Metadata Metadata
	Links    []Link
	Entries  []Entry
}

// NewURLSet starts a urlset document with the given capability.
func NewURLSet(c Capability) *Document {
	return &Document{Metadata: Metadata{Capability: c}}
}

// NewIndex starts a sitemapindex document with the given capability.
func NewIndex(c Capability) *Document {
	return &Document{Index: true, Metadata: Metadata{Capability: c}}
}

// AddLink appends a document level link.
func (d *Document) AddLink(rel, href string) {
	d.Links = append(d.Links, Link{Rel: rel, Href: href})
}

// Add appends an entry.
func (d *Document) Add(e Entry) {
	d.Entries = append(d.Entries, e)
}

// Link returns the href of the first document link with rel.
func (d *Document) Link(rel string) (string, bool) {
	for _, l := range d.Links {
		if l.Rel == rel {
			return l.Href, true
		}
	}
	return "", false
}

// Int64 returns a pointer to n for Metadata.Length.
func Int64(n int64) *int64 { return &n }

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts full W3C datetimes with any offset and bare dates.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
