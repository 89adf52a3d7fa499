package main

import (
	"fmt"

	"github.com/okian/teamsplit/internal/adapters/roster"
	service "github.com/okian/teamsplit/internal/app"
	"github.com/okian/teamsplit/pkg/logger"
	"github.com/spf13/cobra"
)

const (
	defaultGenerateCount = 10
	defaultGenerateSeed  = 1
)

func newRosterCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Generate and check player rosters",
	}
	cmd.AddCommand(newRosterGenerateCmd(c), newRosterCheckCmd(c))
	return cmd
}

func newRosterGenerateCmd(c *cli) *cobra.Command {
	var (
		count int
		seed  uint64
		out   string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic roster rated on the configured attributes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.setup(cmd, nil); err != nil {
				return err
			}
			players, err := roster.Generate(count, c.cfg.Schema().Attributes(), seed)
			if err != nil {
				return err
			}
			if out == "-" {
				return roster.Encode(cmd.OutOrStdout(), players)
			}
			if err := roster.WriteFile(out, players); err != nil {
				return err
			}
			c.log.Info(cmd.Context(), "roster generated",
				logger.String("path", out),
				logger.Int("players", len(players)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", defaultGenerateCount, "number of players")
	cmd.Flags().Uint64Var(&seed, "seed", defaultGenerateSeed, "generator seed")
	cmd.Flags().StringVar(&out, "out", "-", "output file; - writes to stdout")
	return cmd
}

func newRosterCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check [num_teams team_size]",
		Short: "Check that the active players are rated and fill the layout",
		Args:  layoutArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.setup(cmd, args); err != nil {
				return err
			}
			ctx := cmd.Context()
			cfg := c.cfg

			players, err := roster.LoadFile(ctx, cfg.PlayersFilePath)
			if err != nil {
				return err
			}
			active, err := c.activeNames(ctx)
			if err != nil {
				return err
			}

			svc := service.New(service.WithLogger(logger.Named("planner")), service.WithSchema(cfg.Schema()))
			resolved, err := svc.Resolve(players, active, cfg.NumTeams, cfg.TeamSize)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "roster ok: %d active players form %d teams of %d\n",
				len(resolved), cfg.NumTeams, cfg.TeamSize)
			return err
		},
	}
}
