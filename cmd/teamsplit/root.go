package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/okian/teamsplit/internal/adapters/registry"
	"github.com/okian/teamsplit/internal/config"
	"github.com/okian/teamsplit/pkg/logger"
	"github.com/spf13/cobra"
)

// cli holds flag values shared by all commands and the loaded configuration.
type cli struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	players    string
	active     string
	source     string
	names      []string

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	p := &planFlags{}

	root := &cobra.Command{
		Use:   "teamsplit [num_teams team_size]",
		Short: "Split today's players into balanced teams",
		Long: `teamsplit draws random partitions of the active players, scores each one
on score gap, in-team variance and profile difference, and prints the best.

The layout comes from the arguments or from num_teams/team_size in the config.`,
		Args:         layoutArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlan(cmd, args, p)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default $TEAMSPLIT_CONFIG or ./config.yaml)")
	pf.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the config")
	pf.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&c.logFormat, "log-format", "", "log format (text, json)")
	pf.StringVar(&c.players, "players", "", "rated roster YAML")
	pf.StringVar(&c.active, "active", "", "file listing today's players, one per line")
	pf.StringVar(&c.source, "active-source", "", "where active players come from (file, sheet, static)")
	pf.StringSliceVar(&c.names, "names", nil, "comma-separated active players; implies --active-source=static")

	p.register(root)
	root.AddCommand(newVersionCmd(), newRosterCmd(c))
	return root
}

// layoutArgs accepts either no arguments or num_teams and team_size.
func layoutArgs(_ *cobra.Command, args []string) error {
	switch len(args) {
	case 0:
		return nil
	case 2:
		_, _, err := parseLayout(args)
		return err
	default:
		return fmt.Errorf("expected num_teams and team_size, got %d argument(s)", len(args))
	}
}

func parseLayout(args []string) (int, int, error) {
	teams, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("num_teams: %w", err)
	}
	size, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("team_size: %w", err)
	}
	return teams, size, nil
}

// setup loads the dotenv file and the configuration, applies flag and
// argument overrides, and initializes logging.
func (c *cli) setup(cmd *cobra.Command, args []string, extra ...config.Override) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil {
			if cmd.Flags().Changed("env-file") || !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load env file: %w", err)
			}
		}
	}

	overrides := c.overrides(cmd)
	if len(args) == 2 {
		teams, size, err := parseLayout(args)
		if err != nil {
			return err
		}
		overrides = append(overrides, func(cfg *config.Config) {
			cfg.NumTeams = teams
			cfg.TeamSize = size
		})
	}
	overrides = append(overrides, extra...)

	cfg, err := config.Load(cmd.Context(), c.configPath, overrides...)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr()), logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	c.log = logger.Named("cli")

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		c.log.Warn(cmd.Context(), "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c.cfg = cfg
	return nil
}

func (c *cli) overrides(cmd *cobra.Command) []config.Override {
	flags := cmd.Flags()
	var out []config.Override
	if flags.Changed("log-level") {
		out = append(out, func(cfg *config.Config) { cfg.LogLevel = c.logLevel })
	}
	if flags.Changed("log-format") {
		out = append(out, func(cfg *config.Config) { cfg.LogFormat = c.logFormat })
	}
	if flags.Changed("players") {
		out = append(out, func(cfg *config.Config) { cfg.PlayersFilePath = c.players })
	}
	if flags.Changed("active") {
		out = append(out, func(cfg *config.Config) {
			cfg.Active.File = c.active
			cfg.Active.Source = config.SourceFile
		})
	}
	if flags.Changed("names") {
		out = append(out, func(cfg *config.Config) {
			cfg.Active.Names = c.names
			cfg.Active.Source = config.SourceStatic
		})
	}
	if flags.Changed("active-source") {
		out = append(out, func(cfg *config.Config) { cfg.Active.Source = c.source })
	}
	return out
}

// activeNames reads today's players from the configured source.
func (c *cli) activeNames(ctx context.Context) ([]string, error) {
	var src registry.Source
	switch c.cfg.Active.Source {
	case config.SourceStatic:
		src = registry.NewStaticSource(c.cfg.Active.Names)
	case config.SourceFile:
		src = registry.NewFileSource(c.cfg.Active.File)
	case config.SourceSheet:
		sheet := c.cfg.Active.Sheet
		store, err := registry.NewTokenStore(sheet.CredentialsPath, sheet.TokenPath)
		if err != nil {
			return nil, err
		}
		client, err := store.Client(ctx)
		if err != nil {
			return nil, err
		}
		if src, err = registry.NewSheetSource(client, sheet.URL, sheet.Range); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown active source %q", config.ErrInvalidConfig, c.cfg.Active.Source)
	}

	names, err := src.ActiveNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("read active players: %w", err)
	}
	c.log.Debug(ctx, "active players read",
		logger.String("source", c.cfg.Active.Source),
		logger.Int("count", len(names)))
	return names, nil
}
