package config

import (
	"net/url"

	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
)

// Validate checks cross-field constraints after defaults are applied.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateURLs,
		validateAssetStore,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateURLs(cfg *Config) error {
	for key, raw := range map[string]string{
		KeyBaseURL:       cfg.BaseURL,
		KeyRepositoryURL: cfg.Repository.URL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return rserrors.ConfigInvalid(key, "not an absolute URL: "+raw)
		}
	}
	if cfg.CapabilityDescribedBy != "" {
		if _, err := url.Parse(cfg.CapabilityDescribedBy); err != nil {
			return rserrors.ConfigInvalid(KeyCapabilityDescribedBy, err.Error())
		}
	}
	return nil
}

func validateAssetStore(cfg *Config) error {
	switch cfg.AssetStore.Type {
	case AssetStoreLocal:
		return nil
	case AssetStoreS3:
		if cfg.AssetStore.Bucket == "" {
			return rserrors.ConfigRequired(KeyAssetStoreBucket)
		}
		return nil
	default:
		return rserrors.ConfigInvalid(KeyAssetStoreType, "expected local or s3, got "+string(cfg.AssetStore.Type))
	}
}
