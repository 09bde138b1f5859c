package builder

import (
	"git.home.luguber.info/inful/resourcesync/internal/repository"
	"git.home.luguber.info/inful/resourcesync/internal/rsxml"
)

// Classify maps an item to the change recorded for each of its
// representations. A withdrawn item is deleted; anything else is updated.
// The repository does not record creation time, so created is never emitted.
func Classify(item *repository.Item) rsxml.Change {
	if item.Withdrawn {
		return rsxml.ChangeDeleted
	}
	return rsxml.ChangeUpdated
}
