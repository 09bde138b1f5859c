package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magiconair/properties"
	"gopkg.in/yaml.v3"

	rserrors "git.home.luguber.info/inful/resourcesync/internal/errors"
)

// Load reads, flattens, defaults and validates the configuration file at path.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, rserrors.ConfigLoad(".env", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, rserrors.ConfigNotFound(path)
	}

	vals, err := readValues(path)
	if err != nil {
		return nil, rserrors.ConfigLoad(path, err)
	}
	return FromValues(vals)
}

// readValues picks the parser by file extension. Everything that is not YAML
// is read as a properties file.
func readValues(path string) (Values, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ParseYAML([]byte(os.ExpandEnv(string(data))))
	default:
		p, err := properties.LoadFile(path, properties.UTF8)
		if err != nil {
			return nil, err
		}
		return Values(p.Map()), nil
	}
}

// ParseYAML flattens a YAML document into dotted keys. Both
// `resourcesync.dir: /srv/rs` and the nested `resourcesync: {dir: /srv/rs}`
// produce the same key. Sequences become comma separated lists.
func ParseYAML(data []byte) (Values, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	out := make(Values)
	flatten("", raw, out)
	return out, nil
}

// ParseProperties reads properties content such as a DSpace module .cfg file.
func ParseProperties(data string) (Values, error) {
	p, err := properties.LoadString(data)
	if err != nil {
		return nil, err
	}
	return Values(p.Map()), nil
}

func flatten(prefix string, in map[string]any, out Values) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		case []any:
			parts := make([]string, 0, len(t))
			for _, item := range t {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(t)
		}
	}
}

// Values is the flat key/value view of a configuration source.
type Values map[string]string

func (v Values) str(key string) string {
	return strings.TrimSpace(v[key])
}

// list splits a comma separated value, trimming blanks and dropping duplicates.
func (v Values) list(key string) []string {
	raw := v.str(key)
	if raw == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
