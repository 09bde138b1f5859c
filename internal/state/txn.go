package state

import (
	"io"
	"os"
	"strings"

	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
)

// Txn stages documents as hidden files next to their targets and publishes
// them by rename, in staging order, on Commit.
type Txn struct {
	s       *Store
	staged  []stagedFile
	removed []string
	closed  bool
}

type stagedFile struct {
	name string
	tmp  string
	once bool
}

// Begin starts a staging transaction.
func (s *Store) Begin() *Txn {
	return &Txn{s: s}
}

// Write stages name with the bytes produced by fn. A later Write of the same
// name replaces the earlier one.
func (t *Txn) Write(name string, fn func(w io.Writer) error) error {
	return t.write(name, false, fn)
}

// WriteOnce is Write for documents that must never be replaced once published.
func (t *Txn) WriteOnce(name string, fn func(w io.Writer) error) error {
	exists, err := t.s.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		return rserrors.ChangeListExists(name)
	}
	return t.write(name, true, fn)
}

func (t *Txn) write(name string, once bool, fn func(w io.Writer) error) error {
	if t.closed {
		return rserrors.InternalError("write after commit or rollback", nil).WithContext("file", name)
	}
	tmp := t.s.path(stagingPrefix + strings.ReplaceAll(name, "/", "_"))
	f, err := t.s.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return rserrors.DirectoryError("stage", tmp, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		_ = t.s.fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = t.s.fs.Remove(tmp)
		return rserrors.DirectoryError("stage", tmp, err)
	}

	for i := range t.staged {
		if t.staged[i].name == name {
			t.staged[i].once = t.staged[i].once || once
			return nil
		}
	}
	t.staged = append(t.staged, stagedFile{name: name, tmp: tmp, once: once})
	return nil
}

// Remove schedules a published document for deletion. Removals run on Commit
// after every staged document is renamed into place.
func (t *Txn) Remove(name string) error {
	if t.closed {
		return rserrors.InternalError("remove after commit or rollback", nil).WithContext("file", name)
	}
	t.removed = append(t.removed, name)
	return nil
}

// Size returns the size of a staged document.
func (t *Txn) Size(name string) (int64, error) {
	for _, sf := range t.staged {
		if sf.name == name {
			fi, err := t.s.fs.Stat(sf.tmp)
			if err != nil {
				return 0, rserrors.DirectoryError("stat", sf.tmp, err)
			}
			return fi.Size(), nil
		}
	}
	return 0, rserrors.InternalError("document not staged", nil).WithContext("file", name)
}

// Staged lists staged document names in staging order.
func (t *Txn) Staged() []string {
	out := make([]string, len(t.staged))
	for i, sf := range t.staged {
		out[i] = sf.name
	}
	return out
}

// Commit publishes every staged document. On failure the documents not yet
// renamed are discarded; already published ones stay.
func (t *Txn) Commit() error {
	if t.closed {
		return nil
	}
	t.closed = true
	for i, sf := range t.staged {
		err := t.publish(sf)
		if err != nil {
			_ = t.discard(t.staged[i:])
			return err
		}
	}
	for _, name := range t.removed {
		target := t.s.path(name)
		if err := t.s.fs.Remove(target); err != nil && !os.IsNotExist(err) {
			return rserrors.DirectoryError("remove", target, err)
		}
	}
	return nil
}

func (t *Txn) publish(sf stagedFile) error {
	target := t.s.path(sf.name)
	if sf.once {
		exists, err := t.s.Exists(sf.name)
		if err != nil {
			return err
		}
		if exists {
			return rserrors.ChangeListExists(sf.name)
		}
	}
	if err := t.s.fs.Rename(sf.tmp, target); err != nil {
		return rserrors.DirectoryError("publish", target, err)
	}
	return nil
}

// Rollback discards all staged documents. It is safe after Commit.
func (t *Txn) Rollback() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.discard(t.staged)
}

func (t *Txn) discard(files []stagedFile) error {
	var first error
	for _, sf := range files {
		if err := t.s.fs.Remove(sf.tmp); err != nil && !os.IsNotExist(err) && first == nil {
			first = rserrors.DirectoryError("discard", sf.tmp, err)
		}
	}
	return first
}
