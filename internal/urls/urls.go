// Package urls derives every public URL the generator publishes from the
// configured base URLs. It performs no I/O.
package urls

import (
	"net/url"
	"strconv"
	"strings"
)

// Published document names inside the output directory.
const (
	Description       = "resourcesync.xml"
	CapabilityList    = "capabilitylist.xml"
	ResourceList      = "resourcelist.xml"
	ChangeListArchive = "changelistarchive.xml"
	ResourceDump      = "resourcedump.xml"
	ResourceDumpZip   = "resourcedump.zip"
	Manifest          = "manifest.xml"
)

// Resolver joins names onto the document base and builds repository object URLs.
type Resolver struct {
	base     string
	repoBase string
}

// New normalizes both bases so that base ends with exactly one slash and
// repository ends with none.
func New(base, repository string) *Resolver {
	if repository == "" {
		repository = base
	}
	return &Resolver{
		base:     strings.TrimRight(base, "/") + "/",
		repoBase: strings.TrimRight(repository, "/"),
	}
}

// Base returns the normalized document base.
func (r *Resolver) Base() string { return r.base }

// Resolve joins a relative name onto the document base.
func (r *Resolver) Resolve(rel string) string {
	return r.base + strings.TrimLeft(rel, "/")
}

func (r *Resolver) Description() string       { return r.Resolve(Description) }
func (r *Resolver) CapabilityList() string    { return r.Resolve(CapabilityList) }
func (r *Resolver) ResourceList() string      { return r.Resolve(ResourceList) }
func (r *Resolver) ChangeListArchive() string { return r.Resolve(ChangeListArchive) }
func (r *Resolver) ResourceDump() string      { return r.Resolve(ResourceDump) }
func (r *Resolver) ResourceDumpZip() string   { return r.Resolve(ResourceDumpZip) }

// ChangeList resolves a change list file name.
func (r *Resolver) ChangeList(filename string) string { return r.Resolve(filename) }

// ItemPrefix names items without a handle in metadata paths.
const ItemPrefix = "item/"

// ItemKey is the path naming an item: its handle, or item/<id> when the
// item has none.
func ItemKey(handle string, internalID int64) string {
	if handle == "" {
		return ItemPrefix + strconv.FormatInt(internalID, 10)
	}
	return handle
}

// ParseItemKey reports the internal id carried by an item/<id> path.
func ParseItemKey(key string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, ItemPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// Metadata is the URL of a metadata representation: <base><item key>?format=<prefix>.
func (r *Resolver) Metadata(handle, format string, internalID int64) string {
	return r.base + ItemKey(handle, internalID) + "?format=" + url.QueryEscape(format)
}

// Bitstream is the repository URL of a bitstream. Items without a handle
// fall back to the internal id form.
func (r *Resolver) Bitstream(handle string, sequence int, name string, internalID int64) string {
	if handle == "" {
		return r.repoBase + "/retrieve/" + strconv.FormatInt(internalID, 10) + "/" + url.PathEscape(name)
	}
	return r.repoBase + "/bitstream/" + handle + "/" + strconv.Itoa(sequence) + "/" + url.PathEscape(name)
}

// Collection is the repository URL of a collection.
func (r *Resolver) Collection(handle string) string {
	return r.repoBase + "/" + handle
}
