// Package config loads histd's optional TOML configuration file and
// resolves the directories and socket path the daemon and CLI agree on,
// honoring the same environment-variable overrides as the original
// implementation's HISTDBRS_* clap attributes.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// Config is the on-disk, user-editable configuration. Every field has a
// sensible default; a missing or absent config file is not an error.
type Config struct {
	IgnoreSpace bool    `toml:"ignore_space"`
	LogLevel    string  `toml:"log_level"`
	Hostname    *string `toml:"hostname"`
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		IgnoreSpace: true,
		LogLevel:    "info",
	}
}

// Load reads the TOML config at path, falling back to Default() if the
// file does not exist. A present-but-malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Paths bundles the resolved filesystem locations the daemon and CLI
// front-ends need, after applying environment overrides.
type Paths struct {
	SocketPath string
	DataDir    string
	ConfigPath string
	CacheDir   string
}

// ResolvePaths computes the effective socket path, data directory,
// config file path, and cache directory: an explicit env var wins,
// otherwise the XDG-style default applies. CacheDir is kept distinct
// from DataDir since the Pending-Session DB holds in-flight pairing
// state, not the history index.
func ResolvePaths() (Paths, error) {
	var p Paths
	var err error

	if p.SocketPath = os.Getenv("HISTDB_RS_SOCKET_PATH"); p.SocketPath == "" {
		if p.SocketPath, err = defaultSocketPath(); err != nil {
			return Paths{}, fmt.Errorf("resolve socket path: %w", err)
		}
	}

	if p.DataDir = os.Getenv("HISTDB_RS_DATA_DIR"); p.DataDir == "" {
		if p.DataDir, err = defaultDataDir(); err != nil {
			return Paths{}, fmt.Errorf("resolve data dir: %w", err)
		}
	}

	if p.ConfigPath = os.Getenv("HISTDB_RS_CONFIG_PATH"); p.ConfigPath == "" {
		if p.ConfigPath, err = defaultConfigPath(); err != nil {
			return Paths{}, fmt.Errorf("resolve config path: %w", err)
		}
	}

	if p.CacheDir = os.Getenv("HISTDB_RS_CACHE_DIR"); p.CacheDir == "" {
		if p.CacheDir, err = defaultCacheDir(); err != nil {
			return Paths{}, fmt.Errorf("resolve cache dir: %w", err)
		}
	}

	return p, nil
}
