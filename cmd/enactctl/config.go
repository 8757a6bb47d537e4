package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// defaultConfigYAML documents the shape LoadConfig accepts; enactctl runs
// fine with none of it set, matching the teacher's zero-config REPL.
const defaultConfigYAML = `# enactctl configuration
# backend: memory | filesystem | pebble  (default: memory)
backend: memory
# store_root is the directory a filesystem/pebble backend opens.
store_root: ""
log_level: info
`

// Config is enactctl's YAML-loaded configuration: which store.Backend to
// bootstrap and how verbosely to log invocation activity.
//
// Grounded on kingrea-The-Lattice/internal/config/config.go's pattern of an
// embedded default template plus a yaml.v3-tagged struct.
type Config struct {
	Backend   string `yaml:"backend"`
	StoreRoot string `yaml:"store_root"`
	LogLevel  string `yaml:"log_level"`
}

func defaultConfig() Config {
	return Config{Backend: "memory", LogLevel: "info"}
}

// LoadConfig reads path as YAML, falling back to defaultConfig() when path
// is empty or the file does not exist: enactctl has no required config.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// WriteDefaultConfig writes the commented default config template to path,
// failing if a file is already there. Backs the "config init" subcommand.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("%s already exists", path)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0644)
}

// SlogLevel maps the configured log level name to a slog.Level, defaulting
// to Info for an empty or unrecognized value.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
