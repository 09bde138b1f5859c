package builder

import (
	"sort"
	"time"

	"git.home.luguber.info/inful/resourcesync/internal/rsxml"
)

// ArchiveEntry points at one change list and the end of its window.
type ArchiveEntry struct {
	Loc   string
	Until time.Time
}

// MergeArchive returns the change list archive extended with entries. With a
// prior archive every existing entry is kept and an entry with the same loc
// is replaced; without one the archive starts with an up link to the
// capability list. Entries are ordered by timestamp, then loc.
func MergeArchive(prior *rsxml.Document, capabilityList string, entries ...ArchiveEntry) *rsxml.Document {
	doc := rsxml.NewIndex(rsxml.CapChangeListArchive)
	byLoc := make(map[string]time.Time)

	if prior != nil {
		doc.Links = append(doc.Links, prior.Links...)
		for _, e := range prior.Entries {
			byLoc[e.Loc] = e.LastMod
		}
	}
	if _, ok := doc.Link(rsxml.RelUp); !ok {
		doc.AddLink(rsxml.RelUp, capabilityList)
	}
	for _, e := range entries {
		byLoc[e.Loc] = e.Until
	}

	merged := make([]ArchiveEntry, 0, len(byLoc))
	for loc, ts := range byLoc {
		merged = append(merged, ArchiveEntry{Loc: loc, Until: ts})
	}
	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].Until.Equal(merged[j].Until) {
			return merged[i].Until.Before(merged[j].Until)
		}
		return merged[i].Loc < merged[j].Loc
	})
	for _, e := range merged {
		doc.Add(rsxml.Entry{Loc: e.Loc, LastMod: e.Until})
	}
	return doc
}
