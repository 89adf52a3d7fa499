package main

import (
	"context"

	"github.com/okian/teamsplit/internal/adapters/report"
	"github.com/okian/teamsplit/internal/adapters/roster"
	service "github.com/okian/teamsplit/internal/app"
	"github.com/okian/teamsplit/internal/config"
	"github.com/okian/teamsplit/pkg/logger"
	"github.com/okian/teamsplit/pkg/metrics"
	"github.com/spf13/cobra"
)

// planFlags are the search flags of the root command.
type planFlags struct {
	iterations  int
	workers     int
	shardSize   int
	seed        uint64
	format      string
	metricsFile string
}

func (p *planFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&p.iterations, "iterations", 0, "number of random partitions to try (default from config)")
	f.IntVar(&p.workers, "workers", 0, "shard workers; 1 runs in-process (default from config)")
	f.IntVar(&p.shardSize, "shard-size", 0, "trials per shard (default from config)")
	f.Uint64Var(&p.seed, "seed", 0, "random seed; 0 picks one and logs it")
	f.StringVarP(&p.format, "format", "o", report.FormatText, "output format (text, json)")
	f.StringVar(&p.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
}

func (p *planFlags) overrides(cmd *cobra.Command) []config.Override {
	flags := cmd.Flags()
	var out []config.Override
	if flags.Changed("iterations") {
		out = append(out, func(cfg *config.Config) { cfg.Search.Iterations = p.iterations })
	}
	if flags.Changed("workers") {
		out = append(out, func(cfg *config.Config) { cfg.Search.Workers = p.workers })
	}
	if flags.Changed("shard-size") {
		out = append(out, func(cfg *config.Config) { cfg.Search.ShardSize = p.shardSize })
	}
	if flags.Changed("seed") {
		out = append(out, func(cfg *config.Config) { cfg.Search.Seed = p.seed })
	}
	if flags.Changed("metrics-file") {
		out = append(out, func(cfg *config.Config) {
			cfg.Metrics.Enabled = true
			cfg.Metrics.Textfile = p.metricsFile
		})
	}
	return out
}

func (c *cli) runPlan(cmd *cobra.Command, args []string, p *planFlags) error {
	if err := report.CheckFormat(p.format); err != nil {
		return err
	}
	if err := c.setup(cmd, args, p.overrides(cmd)...); err != nil {
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

	svc := service.New(
		service.WithLogger(logger.Named("planner")),
		service.WithSchema(cfg.Schema()),
		service.WithWeights(cfg.CostWeights()),
		service.WithIterations(cfg.Search.Iterations),
		service.WithWorkers(cfg.Search.Workers),
		service.WithShardSize(cfg.Search.ShardSize),
		service.WithSeed(cfg.Search.Seed),
	)
	res, planErr := svc.Plan(ctx, players, active, cfg.NumTeams, cfg.TeamSize)
	if err := c.writeMetrics(ctx); err != nil {
		c.log.Warn(ctx, "metrics export failed", logger.Error(err))
	}
	if planErr != nil {
		return planErr
	}

	return report.Write(cmd.OutOrStdout(), p.format, res)
}

func (c *cli) writeMetrics(ctx context.Context) error {
	if !c.cfg.Metrics.Enabled || c.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(c.cfg.Metrics.Textfile); err != nil {
		return err
	}
	c.log.Debug(ctx, "metrics written", logger.String("path", c.cfg.Metrics.Textfile))
	return nil
}
