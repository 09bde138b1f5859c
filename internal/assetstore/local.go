package assetstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/resourcesync/internal/repository"
)

// Local reads from a directory laid out like a DSpace assetstore: the first
// three pairs of key characters form nested directories (12/34/56/123456...).
type Local struct {
	fs afero.Fs
}

func NewLocal(fs afero.Fs) *Local {
	return &Local{fs: fs}
}

// KeyPath maps a storage key to its relative path.
func KeyPath(key string) string {
	if len(key) < 6 {
		return key
	}
	return path.Join(key[0:2], key[2:4], key[4:6], key)
}

func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := KeyPath(key)
	fi, err := l.fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("asset %s: %w", key, repository.ErrNotFound)
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("asset %s is a directory", key)
	}
	return l.fs.Open(p)
}
