// Package config loads repoql configuration from file, environment, and CLI
// flags.
//
// Precedence (highest to lowest): flags > env vars > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/repoql/pkg/adapter"
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "repoql.yaml"
	ConfigFileNameAlt = "repoql.yml"
)

// Default configuration values.
const (
	DefaultDatabase        = "repoql.db"
	DefaultAdapterType     = "sqlite"
	DefaultActiveColumn    = "active"
	DefaultCacheTTLMinutes = 15
	DefaultFormat          = "table"
)

// maxUpwardSearchLevels limits how far up the directory tree to search for
// config files.
const maxUpwardSearchLevels = 10

// ScopeConfig names a scope enabled repository-wide, with its parameter bag.
type ScopeConfig struct {
	Name   string         `koanf:"name"`
	Params map[string]any `koanf:"params"`
}

// RepositoryConfig holds the criteria-relevant repository settings.
type RepositoryConfig struct {
	Table        string        `koanf:"table"`
	ActiveFilter bool          `koanf:"active_filter"`
	ActiveColumn string        `koanf:"active_column"`
	Cache        bool          `koanf:"cache"`
	Scopes       []ScopeConfig `koanf:"scopes"`
}

// Config is the full loaded configuration.
type Config struct {
	Target adapter.Target `koanf:"target"`

	Repository RepositoryConfig `koanf:"repository"`

	// CacheTTLMinutes is the global default TTL for cache directives that
	// do not carry their own.
	CacheTTLMinutes int `koanf:"cache_ttl_minutes"`

	Format  string `koanf:"format"`
	Verbose bool   `koanf:"verbose"`
}

// flagKeys maps CLI flag names to config keys. Flags not listed here are
// command-local and never feed the config.
var flagKeys = map[string]string{
	"target":   "target.type",
	"database": "target.database",
	"table":    "repository.table",
	"format":   "format",
	"verbose":  "verbose",
}

var configFileUsed string

// GetConfigFileUsed returns the path of the config file the last Load read,
// or empty if none was found.
func GetConfigFileUsed() string {
	return configFileUsed
}

// Load reads configuration. cfgFile may be empty, in which case repoql.yaml
// or repoql.yml is searched upward from the working directory. flags may be
// nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]any{
		"target.type":              DefaultAdapterType,
		"target.database":          DefaultDatabase,
		"repository.active_column": DefaultActiveColumn,
		"cache_ttl_minutes":        DefaultCacheTTLMinutes,
		"format":                   DefaultFormat,
		"verbose":                  false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file.
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment. Double underscore nests: REPOQL_TARGET__TYPE ->
	// target.type, while single underscores stay part of the key
	// (REPOQL_CACHE_TTL_MINUTES -> cache_ttl_minutes).
	if err := k.Load(env.Provider("REPOQL_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "REPOQL_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority; only explicitly set flags override).
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !adapter.IsRegistered(strings.ToLower(cfg.Target.Type)) {
		return nil, &adapter.UnknownAdapterError{
			Type:      cfg.Target.Type,
			Available: adapter.List(),
		}
	}

	return &cfg, nil
}

// findConfigFile finds the config file to use.
// Priority: explicit path > repoql.yaml > repoql.yml, searched upward.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	dir := cwd
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
