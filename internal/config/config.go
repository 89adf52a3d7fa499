// Package config defines teamsplit configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and TEAMSPLIT_ env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/teamsplit/internal/domain/cost"
	"github.com/okian/teamsplit/internal/domain/partition"
	"github.com/okian/teamsplit/internal/domain/scoring"
	"github.com/okian/teamsplit/internal/domain/search"
)

// Active player sources.
const (
	SourceFile   = "file"
	SourceSheet  = "sheet"
	SourceStatic = "static"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// NumTeams and TeamSize describe the requested layout. Command-line
	// arguments override them.
	NumTeams int `koanf:"num_teams"`
	TeamSize int `koanf:"team_size"`

	// PlayersFilePath points at the rated roster YAML.
	PlayersFilePath string `koanf:"players_file_path"`

	Active     ActiveConfig     `koanf:"active"`
	Attributes AttributesConfig `koanf:"attributes"`
	Weights    WeightsConfig    `koanf:"weights"`
	Search     SearchConfig     `koanf:"search"`
	Metrics    MetricsConfig    `koanf:"metrics"`
}

// ActiveConfig selects where the names of today's players come from.
type ActiveConfig struct {
	Source string      `koanf:"source"`
	File   string      `koanf:"file"`
	Names  []string    `koanf:"names"`
	Sheet  SheetConfig `koanf:"sheet"`
}

// SheetConfig locates the sign-up spreadsheet and its OAuth credentials.
type SheetConfig struct {
	URL             string `koanf:"url"`
	Range           string `koanf:"range"`
	CredentialsPath string `koanf:"credentials_path"`
	TokenPath       string `koanf:"token_path"`
}

// AttributesConfig assigns scoring roles to roster attributes.
type AttributesConfig struct {
	Additive []string `koanf:"additive"`
	Divided  string   `koanf:"divided"`
	Profile  []string `koanf:"profile"`
}

// WeightsConfig holds the cost weights.
type WeightsConfig struct {
	Balance    float64            `koanf:"balance"`
	Variance   float64            `koanf:"variance"`
	Profile    float64            `koanf:"profile"`
	Attributes map[string]float64 `koanf:"attributes"`
}

// SearchConfig sizes the search.
type SearchConfig struct {
	// Iterations is the trial budget.
	Iterations int `koanf:"iterations"`

	// Workers is the number of shard workers; 0 means one per CPU and 1
	// runs the search in the calling goroutine.
	Workers int `koanf:"workers"`

	// ShardSize is the number of trials per queued shard.
	ShardSize int `koanf:"shard_size"`

	// Seed fixes the random streams; 0 picks a fresh seed per run.
	Seed uint64 `koanf:"seed"`
}

// MetricsConfig controls Prometheus textfile export.
type MetricsConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Textfile string `koanf:"textfile"`
}

// New creates a Config holding the defaults.
func New() *Config {
	schema := scoring.DefaultSchema()
	weights := cost.DefaultWeights()
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		NumTeams:        2,
		TeamSize:        5,
		PlayersFilePath: "players.yaml",
		Active: ActiveConfig{
			Source: SourceFile,
			File:   "active.txt",
			Sheet: SheetConfig{
				Range:           "B13:B22",
				CredentialsPath: "credentials.json",
				TokenPath:       "token.json",
			},
		},
		Attributes: AttributesConfig{
			Additive: schema.Additive,
			Divided:  schema.Divided,
			Profile:  schema.Profile,
		},
		Weights: WeightsConfig{
			Balance:  weights.Balance,
			Variance: weights.Variance,
			Profile:  weights.Profile,
		},
		Search: SearchConfig{
			Iterations: search.DefaultTrials,
			Workers:    0,
			ShardSize:  search.DefaultShardSize,
		},
	}
}

// Schema returns the scoring schema described by the attributes section.
func (c *Config) Schema() scoring.Schema {
	return scoring.Schema{
		Additive: c.Attributes.Additive,
		Divided:  c.Attributes.Divided,
		Profile:  c.Attributes.Profile,
	}
}

// CostWeights returns the cost weights described by the weights section.
func (c *Config) CostWeights() cost.Weights {
	return cost.Weights{
		Balance:    c.Weights.Balance,
		Variance:   c.Weights.Variance,
		Profile:    c.Weights.Profile,
		Attributes: c.Weights.Attributes,
	}
}

// Validate reports every configuration defect that would make a run fail.
func (c *Config) Validate() error {
	if c.NumTeams <= 0 {
		return fmt.Errorf("%w: num_teams must be positive, got %d", ErrInvalidConfig, c.NumTeams)
	}
	if c.TeamSize <= 0 {
		return fmt.Errorf("%w: team_size must be positive, got %d", ErrInvalidConfig, c.TeamSize)
	}
	if _, err := partition.Capacity(c.NumTeams, c.TeamSize); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Search.Iterations <= 0 {
		return fmt.Errorf("%w: search.iterations must be positive, got %d", ErrInvalidConfig, c.Search.Iterations)
	}
	if c.Search.Workers < 0 {
		return fmt.Errorf("%w: search.workers must not be negative, got %d", ErrInvalidConfig, c.Search.Workers)
	}
	if c.Search.ShardSize <= 0 {
		return fmt.Errorf("%w: search.shard_size must be positive, got %d", ErrInvalidConfig, c.Search.ShardSize)
	}
	if strings.TrimSpace(c.PlayersFilePath) == "" {
		return fmt.Errorf("%w: players_file_path must not be empty", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}

	switch c.Active.Source {
	case SourceFile:
		if c.Active.File == "" {
			return fmt.Errorf("%w: active.file must be set for source %q", ErrInvalidConfig, SourceFile)
		}
	case SourceSheet:
		if c.Active.Sheet.URL == "" || c.Active.Sheet.Range == "" {
			return fmt.Errorf("%w: active.sheet.url and active.sheet.range must be set for source %q", ErrInvalidConfig, SourceSheet)
		}
	case SourceStatic:
	default:
		return fmt.Errorf("%w: unknown active.source %q", ErrInvalidConfig, c.Active.Source)
	}

	if _, err := cost.New(c.Schema(), c.CostWeights(), c.TeamSize); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
