// Package history keeps every published state of the output directory as a
// git commit. The git database lives outside the output directory, which is
// used as the work tree; only a ".git" pointer file is placed in it, and
// dotfiles are never served.
package history

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/resourcesync/internal/errors"
	"git.home.luguber.info/inful/resourcesync/internal/logfields"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

const (
	authorName  = "resourcesync"
	authorEmail = "resourcesync@localhost"
)

// Recorder commits snapshots of the output directory.
type Recorder struct {
	repo    *git.Repository
	gitDir  string
	workDir string
	now     func() time.Time
}

// Open opens the history at gitDir, initialising it on first use.
func Open(gitDir, workDir string) (*Recorder, error) {
	storage := filesystem.NewStorage(osfs.New(gitDir), cache.NewObjectLRUDefault())
	worktree := osfs.New(workDir)

	repo, err := git.Open(storage, worktree)
	if stderrors.Is(err, git.ErrRepositoryNotExists) {
		slog.Info("Initialising output history", logfields.Path(gitDir))
		repo, err = git.Init(storage, worktree)
	}
	if err != nil {
		return nil, errors.DirectoryError("open history", gitDir, err)
	}
	return &Recorder{repo: repo, gitDir: gitDir, workDir: workDir, now: time.Now}, nil
}

// Snapshot stages every change in the work tree, including removals, and
// commits it. It returns the new commit hash, or "" when nothing changed.
func (r *Recorder) Snapshot(message string) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", errors.DirectoryError("history worktree", r.workDir, err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", errors.DirectoryError("history add", r.workDir, err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", errors.DirectoryError("history status", r.workDir, err)
	}
	if status.IsClean() {
		slog.Debug("Output unchanged, no history commit", logfields.Path(r.workDir))
		return "", nil
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: authorName, Email: authorEmail, When: r.now().UTC()},
	})
	if err != nil {
		return "", errors.DirectoryError("history commit", r.gitDir, fmt.Errorf("commit: %w", err))
	}
	return hash.String(), nil
}

// Count returns the number of commits reachable from HEAD.
func (r *Recorder) Count() (int, error) {
	head, err := r.repo.Head()
	if err != nil {
		return 0, nil
	}
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return 0, err
	}
	n := 0
	err = iter.ForEach(func(*object.Commit) error {
		n++
		return nil
	})
	return n, err
}
