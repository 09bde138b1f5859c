// Package config loads the generator configuration.
//
// Configuration is a flat set of dotted keys (base-url, resourcesync.dir,
// metadata.type.oai_dc, ...). It can be supplied as a Java style properties
// file (.cfg, .properties) or as YAML, where nested maps are flattened into
// the same dotted keys. The result is one explicit Config value that is
// passed to every component.
package config

import (
	"time"
)

// Config is the validated generator configuration.
type Config struct {
	// BaseURL is the public location of the output directory (base-url).
	BaseURL string
	// Dir is the output directory (resourcesync.dir).
	Dir string

	// ExposeBundles is the allow-list of bundle names whose bitstreams are published.
	ExposeBundles []string
	// MetadataFormats lists exported metadata formats in configuration order.
	MetadataFormats []MetadataFormat

	MetadataChangeFreq  string
	BitstreamChangeFreq string

	ChangeListIncludeRestricted bool
	ResourceDumpEnabled         bool
	// CapabilityDescribedBy is optional; empty means no describedby link.
	CapabilityDescribedBy string

	Repository RepositoryConfig
	AssetStore AssetStoreConfig
	Notify     NotifyConfig
	History    HistoryConfig
	Metrics    MetricsConfig
	Server     ServerConfig
}

// MetadataFormat describes one exported metadata format.
type MetadataFormat struct {
	Prefix    string
	MIMEType  string
	Namespace string
}

// RepositoryConfig locates the repository database and its public URL space.
type RepositoryConfig struct {
	// URL is the base for bitstream and collection URLs (repository.url).
	URL string
	// DB is the SQLite database path (repository.db).
	DB string
}

// AssetStoreType selects where bitstream bytes are read from.
type AssetStoreType string

const (
	AssetStoreLocal AssetStoreType = "local"
	AssetStoreS3    AssetStoreType = "s3"
)

type AssetStoreConfig struct {
	Type      AssetStoreType
	Dir       string
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
	PathStyle bool
}

// NotifyConfig enables change notifications when NATSURL is set.
type NotifyConfig struct {
	NATSURL string
	Subject string
}

// HistoryConfig enables git snapshots of the output directory.
type HistoryConfig struct {
	Enabled bool
	// Dir holds the git database; the output directory is the work tree.
	Dir string
}

type MetricsConfig struct {
	// Textfile, when set, receives the registry in Prometheus text format after each run.
	Textfile string
}

type ServerConfig struct {
	Listen         string
	UpdateInterval time.Duration
	RebaseInterval time.Duration
}

// Format returns the configured metadata format with the given prefix.
func (c *Config) Format(prefix string) (MetadataFormat, bool) {
	for _, f := range c.MetadataFormats {
		if f.Prefix == prefix {
			return f, true
		}
	}
	return MetadataFormat{}, false
}

// Exposes reports whether bitstreams of the named bundle are published.
func (c *Config) Exposes(bundle string) bool {
	for _, b := range c.ExposeBundles {
		if b == bundle {
			return true
		}
	}
	return false
}
