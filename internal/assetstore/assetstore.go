// Package assetstore reads bitstream bytes by storage key, either from a
// local assetstore directory or from an S3 bucket.
package assetstore

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/resourcesync/internal/config"
	"git.home.luguber.info/inful/resourcesync/internal/repository"
)

// New builds the store selected by cfg.
func New(ctx context.Context, cfg config.AssetStoreConfig) (repository.Assets, error) {
	switch cfg.Type {
	case config.AssetStoreS3:
		return NewS3FromConfig(ctx, cfg)
	case config.AssetStoreLocal, "":
		return NewLocal(afero.NewBasePathFs(afero.NewOsFs(), cfg.Dir)), nil
	default:
		return nil, fmt.Errorf("unknown assetstore type %q", cfg.Type)
	}
}
