package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names and conventions.
const (
	EnvPrefix         = "TEAMSPLIT_"
	EnvConfigPath     = "TEAMSPLIT_CONFIG"
	DefaultConfigPath = "config.yaml"
	envNestingSep     = "__"
)

// Override adjusts a loaded Config before validation.
type Override func(*Config)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. YAML file: path, else TEAMSPLIT_CONFIG, else ./config.yaml when present
//  3. env (prefix TEAMSPLIT_, "__" separates nested keys:
//     TEAMSPLIT_WEIGHTS__BALANCE -> weights.balance)
//
// Overrides, typically command-line flags, are applied last and the result
// is validated.
func Load(_ context.Context, path string, overrides ...Override) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigPath
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, envNestingSep, ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// The config path variable selects the file; it is not a key.
	k.Delete("config")

	// Slice defaults are applied after decoding so that a file listing fewer
	// attributes replaces the default list instead of overlaying it.
	cfg := *base
	cfg.Attributes.Additive = nil
	cfg.Attributes.Profile = nil
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if cfg.Attributes.Additive == nil {
		cfg.Attributes.Additive = base.Attributes.Additive
	}
	if cfg.Attributes.Profile == nil {
		cfg.Attributes.Profile = base.Attributes.Profile
	}

	return &cfg, nil
}
