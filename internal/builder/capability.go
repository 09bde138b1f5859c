package builder

import (
	"git.home.luguber.info/inful/resourcesync/internal/rsxml"
)

// CapabilitySet says which documents the capability list points at.
type CapabilitySet struct {
	ResourceList      bool
	ChangeListArchive bool
	ResourceDump      bool
	// LatestChangeList is the file name of the newest change list, or empty.
	LatestChangeList string
}

// CapabilityList links up to the source description and lists only the
// documents present in set.
func (b *Builder) CapabilityList(set CapabilitySet) *rsxml.Document {
	doc := rsxml.NewURLSet(rsxml.CapCapabilityList)
	if b.cfg.CapabilityDescribedBy != "" {
		doc.AddLink(rsxml.RelDescribedBy, b.cfg.CapabilityDescribedBy)
	}
	doc.AddLink(rsxml.RelUp, b.urls.Description())

	add := func(loc string, c rsxml.Capability) {
		doc.Add(rsxml.Entry{Loc: loc, Metadata: &rsxml.Metadata{Capability: c}})
	}
	if set.ResourceList {
		add(b.urls.ResourceList(), rsxml.CapResourceList)
	}
	if set.ResourceDump {
		add(b.urls.ResourceDump(), rsxml.CapResourceDump)
	}
	if set.ChangeListArchive {
		add(b.urls.ChangeListArchive(), rsxml.CapChangeListArchive)
	}
	if set.LatestChangeList != "" {
		add(b.urls.ChangeList(set.LatestChangeList), rsxml.CapChangeList)
	}
	return doc
}

// Description is the source description pointing at the capability list.
func (b *Builder) Description() *rsxml.Document {
	doc := rsxml.NewURLSet(rsxml.CapDescription)
	if b.cfg.CapabilityDescribedBy != "" {
		doc.AddLink(rsxml.RelDescribedBy, b.cfg.CapabilityDescribedBy)
	}
	doc.Add(rsxml.Entry{
		Loc:      b.urls.CapabilityList(),
		Metadata: &rsxml.Metadata{Capability: rsxml.CapCapabilityList},
	})
	return doc
}
