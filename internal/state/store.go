// Package state keeps the generator's ledger: the output directory itself.
// Which documents exist, and the timestamps encoded in change list file
// names, are the only state carried between runs.
package state

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/rsxml"
)

const (
	changeListPrefix = "changelist_"
	changeListSuffix = ".xml"
	stagingPrefix    = ".staging-"
)

// ChangeListName is the file name of the change list whose window ends at until.
func ChangeListName(until time.Time) string {
	return changeListPrefix + until.UTC().Format(rsxml.TimeLayout) + changeListSuffix
}

// IsChangeList reports whether name looks like a change list file.
func IsChangeList(name string) bool {
	return strings.HasPrefix(name, changeListPrefix) && strings.HasSuffix(name, changeListSuffix)
}

// ParseChangeListName extracts the window end encoded in a change list file name.
func ParseChangeListName(name string) (time.Time, error) {
	raw := strings.TrimSuffix(strings.TrimPrefix(name, changeListPrefix), changeListSuffix)
	return time.Parse(rsxml.TimeLayout, raw)
}

// ChangeListFile is one published change list.
type ChangeListFile struct {
	Name  string
	Until time.Time
}

// Store reads and publishes documents in the output directory.
type Store struct {
	fs  afero.Fs
	dir string
}

// New returns a store for dir on fs.
func New(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: filepath.Clean(dir)}
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// Fs returns the underlying filesystem.
func (s *Store) Fs() afero.Fs { return s.fs }

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Ensure creates the directory when missing and removes staging files left
// behind by an interrupted run.
func (s *Store) Ensure() error {
	fi, err := s.fs.Stat(s.dir)
	switch {
	case os.IsNotExist(err):
		if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
			return rserrors.DirectoryError("create", s.dir, err)
		}
		return nil
	case err != nil:
		return rserrors.DirectoryError("stat", s.dir, err)
	case !fi.IsDir():
		return rserrors.NotADirectory(s.dir)
	}

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return rserrors.DirectoryError("list", s.dir, err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), stagingPrefix) {
			if err := s.fs.Remove(s.path(e.Name())); err != nil {
				return rserrors.DirectoryError("sweep", s.path(e.Name()), err)
			}
		}
	}
	return nil
}

// Reset removes every entry of the output directory except staged files,
// so a transaction can be committed into the emptied directory.
func (s *Store) Reset() error {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return rserrors.DirectoryError("list", s.dir, err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), stagingPrefix) {
			continue
		}
		if err := s.fs.RemoveAll(s.path(e.Name())); err != nil {
			return rserrors.DirectoryError("wipe", s.path(e.Name()), err)
		}
	}
	return nil
}

// ChangeLists returns all published change lists ordered by window end.
func (s *Store) ChangeLists() ([]ChangeListFile, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, rserrors.DirectoryError("list", s.dir, err)
	}
	var out []ChangeListFile
	for _, e := range entries {
		if e.IsDir() || !IsChangeList(e.Name()) {
			continue
		}
		until, err := ParseChangeListName(e.Name())
		if err != nil {
			return nil, rserrors.DirectoryError("parse change list name", s.path(e.Name()), err)
		}
		out = append(out, ChangeListFile{Name: e.Name(), Until: until})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Until.Before(out[j].Until) })
	return out, nil
}

// Latest returns the change list with the greatest window end.
func (s *Store) Latest() (ChangeListFile, bool, error) {
	all, err := s.ChangeLists()
	if err != nil || len(all) == 0 {
		return ChangeListFile{}, false, err
	}
	return all[len(all)-1], true, nil
}

// Exists reports whether a published document exists.
func (s *Store) Exists(name string) (bool, error) {
	ok, err := afero.Exists(s.fs, s.path(name))
	if err != nil {
		return false, rserrors.DirectoryError("stat", s.path(name), err)
	}
	return ok, nil
}

// Open opens a published document for reading.
func (s *Store) Open(name string) (afero.File, error) {
	return s.fs.Open(s.path(name))
}

// ReadFile reads a published document.
func (s *Store) ReadFile(name string) ([]byte, error) {
	f, err := s.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
