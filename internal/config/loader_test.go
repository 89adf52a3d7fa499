package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/teamsplit/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.NumTeams, convey.ShouldEqual, 2)
				convey.So(cfg.TeamSize, convey.ShouldEqual, 5)
				convey.So(cfg.Search.Iterations, convey.ShouldEqual, 10_000)
				convey.So(cfg.Attributes.Profile, convey.ShouldResemble, []string{"tech", "phy", "vis"})
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TEAMSPLIT_NUM_TEAMS", "3")
			_ = os.Setenv("TEAMSPLIT_TEAM_SIZE", "4")
			_ = os.Setenv("TEAMSPLIT_LOG_LEVEL", "debug")
			_ = os.Setenv("TEAMSPLIT_SEARCH__ITERATIONS", "2500")
			_ = os.Setenv("TEAMSPLIT_SEARCH__SEED", "42")
			_ = os.Setenv("TEAMSPLIT_WEIGHTS__BALANCE", "0.6")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.NumTeams, convey.ShouldEqual, 3)
				convey.So(cfg.TeamSize, convey.ShouldEqual, 4)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Search.Iterations, convey.ShouldEqual, 2500)
				convey.So(cfg.Search.Seed, convey.ShouldEqual, uint64(42))
				convey.So(cfg.Weights.Balance, convey.ShouldEqual, 0.6)
				convey.So(cfg.Weights.Variance, convey.ShouldEqual, 0.2)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			clearConfigEnvVars()
			path := writeConfig(t, `
num_teams: 4
team_size: 3
players_file_path: roster.yaml
active:
  source: static
  names: [Alice, Bob]
attributes:
  additive: [tech]
weights:
  profile: 0.7
  attributes:
    vis: 2.5
search:
  workers: 2
  shard_size: 100
metrics:
  enabled: true
  textfile: /tmp/teamsplit.prom
`)

			cfg, err := config.Load(ctx, path)

			convey.Convey("Then file values should be loaded over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.NumTeams, convey.ShouldEqual, 4)
				convey.So(cfg.TeamSize, convey.ShouldEqual, 3)
				convey.So(cfg.PlayersFilePath, convey.ShouldEqual, "roster.yaml")
				convey.So(cfg.Active.Source, convey.ShouldEqual, config.SourceStatic)
				convey.So(cfg.Active.Names, convey.ShouldResemble, []string{"Alice", "Bob"})
				convey.So(cfg.Attributes.Additive, convey.ShouldResemble, []string{"tech"})
				convey.So(cfg.Attributes.Profile, convey.ShouldResemble, []string{"tech", "phy", "vis"})
				convey.So(cfg.Weights.Profile, convey.ShouldEqual, 0.7)
				convey.So(cfg.Weights.Balance, convey.ShouldEqual, 0.3)
				convey.So(cfg.Weights.Attributes["vis"], convey.ShouldEqual, 2.5)
				convey.So(cfg.Search.Workers, convey.ShouldEqual, 2)
				convey.So(cfg.Search.ShardSize, convey.ShouldEqual, 100)
				convey.So(cfg.Metrics.Enabled, convey.ShouldBeTrue)
				convey.So(cfg.Metrics.Textfile, convey.ShouldEqual, "/tmp/teamsplit.prom")
			})
		})

		convey.Convey("When both file and env vars are set", func() {
			path := writeConfig(t, "num_teams: 4\nteam_size: 3\n")
			_ = os.Setenv("TEAMSPLIT_CONFIG", path)
			_ = os.Setenv("TEAMSPLIT_TEAM_SIZE", "6")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then env vars should win over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.NumTeams, convey.ShouldEqual, 4)
				convey.So(cfg.TeamSize, convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When the explicit file does not exist", func() {
			clearConfigEnvVars()

			_, err := config.Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then loading should fail", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file holds invalid values", func() {
			clearConfigEnvVars()
			path := writeConfig(t, "search:\n  iterations: -5\n")

			_, err := config.Load(ctx, path)

			convey.Convey("Then validation should reject it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file is not valid YAML", func() {
			clearConfigEnvVars()
			path := writeConfig(t, "num_teams: [unterminated\n")

			_, err := config.Load(ctx, path)

			convey.Convey("Then loading should fail", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// clearConfigEnvVars removes every TEAMSPLIT_ variable from the environment.
func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}

func TestConfigLoaderOverrides(t *testing.T) {
	convey.Convey("Given a file with an incomplete layout", t, func() {
		clearConfigEnvVars()
		path := writeConfig(t, "num_teams: 0\n")

		convey.Convey("When an override fixes it before validation", func() {
			cfg, err := config.Load(context.Background(), path, func(c *config.Config) {
				c.NumTeams = 3
			})

			convey.Convey("Then loading should succeed with the override applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.NumTeams, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When no override is given", func() {
			_, err := config.Load(context.Background(), path)

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
