package config

import (
	"strconv"
	"strings"
	"time"

	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
)

// Recognized keys.
const (
	KeyBaseURL                     = "base-url"
	KeyDir                         = "resourcesync.dir"
	KeyExposeBundles               = "expose-bundles"
	KeyMetadataFormats             = "metadata.formats"
	KeyMetadataTypePrefix          = "metadata.type."
	KeyMetadataNamespacePrefix     = "metadata.namespace."
	KeyMetadataChangeFreq          = "metadata.change-freq"
	KeyBitstreamChangeFreq         = "bitstream.change-freq"
	KeyChangeListIncludeRestricted = "changelist.include-restricted"
	KeyResourceDumpEnable          = "resourcedump.enable"
	KeyCapabilityDescribedBy       = "capabilitylist.described-by"
	KeyRepositoryURL               = "repository.url"
	KeyRepositoryDB                = "repository.db"
	KeyAssetStoreType              = "assetstore.type"
	KeyAssetStoreDir               = "assetstore.dir"
	KeyAssetStoreBucket            = "assetstore.s3.bucket"
	KeyAssetStoreRegion            = "assetstore.s3.region"
	KeyAssetStoreEndpoint          = "assetstore.s3.endpoint"
	KeyAssetStorePrefix            = "assetstore.s3.prefix"
	KeyAssetStorePathStyle         = "assetstore.s3.path-style"
	KeyNotifyNATSURL               = "notify.nats-url"
	KeyNotifySubject               = "notify.subject"
	KeyHistoryEnable               = "history.enable"
	KeyHistoryDir                  = "history.dir"
	KeyMetricsTextfile             = "metrics.textfile"
	KeyServerListen                = "server.listen"
	KeyServerUpdateInterval        = "server.update-interval"
	KeyServerRebaseInterval        = "server.rebase-interval"
)

const (
	DefaultExposeBundle    = "ORIGINAL"
	DefaultMetadataFormat  = "oai_dc"
	DefaultMetadataType    = "application/xml"
	DefaultNotifySubject   = "resourcesync.changes"
	DefaultServerListen    = ":8080"
	DefaultHistoryDirName  = ".resourcesync-history"
	DefaultAssetStoreLocal = "assetstore"
)

// knownNamespaces covers the formats the built-in crosswalks export.
var knownNamespaces = map[string]string{
	"oai_dc": "http://www.openarchives.org/OAI/2.0/oai_dc/",
	"dim":    "http://www.dspace.org/xmlns/dspace/dim",
}

var changeFrequencies = map[string]struct{}{
	"always": {}, "hourly": {}, "daily": {}, "weekly": {}, "monthly": {}, "yearly": {}, "never": {},
}

// FromValues builds a Config from flat values, applying defaults and
// failing fast on anything missing or malformed.
func FromValues(v Values) (*Config, error) {
	b := &builder{v: v}
	cfg := &Config{
		BaseURL:                     b.required(KeyBaseURL),
		Dir:                         b.required(KeyDir),
		ExposeBundles:               b.listOr(KeyExposeBundles, DefaultExposeBundle),
		MetadataChangeFreq:          b.changeFreq(KeyMetadataChangeFreq),
		BitstreamChangeFreq:         b.changeFreq(KeyBitstreamChangeFreq),
		ChangeListIncludeRestricted: b.boolean(KeyChangeListIncludeRestricted, false),
		ResourceDumpEnabled:         b.boolean(KeyResourceDumpEnable, false),
		CapabilityDescribedBy:       v.str(KeyCapabilityDescribedBy),
		Repository: RepositoryConfig{
			URL: v.str(KeyRepositoryURL),
			DB:  v.str(KeyRepositoryDB),
		},
		AssetStore: AssetStoreConfig{
			Type:      AssetStoreType(strings.ToLower(v.str(KeyAssetStoreType))),
			Dir:       v.str(KeyAssetStoreDir),
			Bucket:    v.str(KeyAssetStoreBucket),
			Region:    v.str(KeyAssetStoreRegion),
			Endpoint:  v.str(KeyAssetStoreEndpoint),
			Prefix:    v.str(KeyAssetStorePrefix),
			PathStyle: b.boolean(KeyAssetStorePathStyle, false),
		},
		Notify: NotifyConfig{
			NATSURL: v.str(KeyNotifyNATSURL),
			Subject: v.str(KeyNotifySubject),
		},
		History: HistoryConfig{
			Enabled: b.boolean(KeyHistoryEnable, false),
			Dir:     v.str(KeyHistoryDir),
		},
		Metrics: MetricsConfig{
			Textfile: v.str(KeyMetricsTextfile),
		},
		Server: ServerConfig{
			Listen:         v.str(KeyServerListen),
			UpdateInterval: b.duration(KeyServerUpdateInterval),
			RebaseInterval: b.duration(KeyServerRebaseInterval),
		},
	}
	cfg.MetadataFormats = b.formats()

	if b.err != nil {
		return nil, b.err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Repository.URL == "" {
		cfg.Repository.URL = cfg.BaseURL
	}
	if cfg.AssetStore.Type == "" {
		cfg.AssetStore.Type = AssetStoreLocal
	}
	if cfg.AssetStore.Type == AssetStoreLocal && cfg.AssetStore.Dir == "" {
		cfg.AssetStore.Dir = DefaultAssetStoreLocal
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	if cfg.History.Enabled && cfg.History.Dir == "" {
		cfg.History.Dir = strings.TrimRight(cfg.Dir, "/") + DefaultHistoryDirName
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultServerListen
	}
}

// builder records the first conversion error so FromValues reads linearly.
type builder struct {
	v   Values
	err error
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *builder) required(key string) string {
	s := b.v.str(key)
	if s == "" {
		b.fail(rserrors.ConfigRequired(key))
	}
	return s
}

func (b *builder) boolean(key string, def bool) bool {
	s := b.v.str(key)
	if s == "" {
		return def
	}
	out, err := strconv.ParseBool(s)
	if err != nil {
		b.fail(rserrors.ConfigInvalid(key, "not a boolean: "+s))
		return def
	}
	return out
}

func (b *builder) duration(key string) time.Duration {
	s := b.v.str(key)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		b.fail(rserrors.ConfigInvalid(key, "not a duration: "+s))
		return 0
	}
	return d
}

func (b *builder) changeFreq(key string) string {
	s := strings.ToLower(b.v.str(key))
	if s == "" {
		return ""
	}
	if _, ok := changeFrequencies[s]; !ok {
		b.fail(rserrors.ConfigInvalid(key, "unknown change frequency: "+s))
	}
	return s
}

// listOr returns def only when key is absent. A key that is present but
// empty yields an empty list.
func (b *builder) listOr(key string, def ...string) []string {
	if _, ok := b.v[key]; !ok {
		return def
	}
	return b.v.list(key)
}

func (b *builder) formats() []MetadataFormat {
	prefixes := b.listOr(KeyMetadataFormats, DefaultMetadataFormat)
	out := make([]MetadataFormat, 0, len(prefixes))
	for _, p := range prefixes {
		f := MetadataFormat{
			Prefix:    p,
			MIMEType:  b.v.str(KeyMetadataTypePrefix + p),
			Namespace: b.v.str(KeyMetadataNamespacePrefix + p),
		}
		if f.MIMEType == "" {
			f.MIMEType = DefaultMetadataType
		}
		if f.Namespace == "" {
			ns, ok := knownNamespaces[p]
			if !ok {
				b.fail(rserrors.ConfigRequired(KeyMetadataNamespacePrefix + p))
			}
			f.Namespace = ns
		}
		out = append(out, f)
	}
	return out
}
