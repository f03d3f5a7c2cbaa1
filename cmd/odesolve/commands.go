package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/njchilds90/odesolve/internal/config"
	"github.com/njchilds90/odesolve/internal/engine"
	"github.com/njchilds90/odesolve/internal/logging"
	"github.com/njchilds90/odesolve/internal/normalize"
	"github.com/njchilds90/odesolve/internal/pipeline"
	"github.com/njchilds90/odesolve/internal/solver"
)

// cli holds state shared by the subcommands of one invocation.
type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "odesolve",
		Short:        "Solve ordinary differential equations step by step",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfigLoader(nil).LoadWithDefaults(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		c.serveCmd(),
		c.solveCmd(),
		c.normalizeCmd(),
		c.configCmd(),
		c.versionCmd(),
	)
	return root
}

// logger builds the process logger from the loaded configuration. One-shot
// commands pass quiet so that stdout carries only the result.
func (c *cli) logger(quiet bool) *slog.Logger {
	level, err := logging.ParseLevel(c.cfg.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.New(logging.Config{
		Level:   level,
		Service: c.cfg.Telemetry.ServiceName,
		JSON:    c.cfg.Logging.Format == "json",
		Quiet:   quiet,
	})
}

// newResolver assembles engine, orchestrator and pipeline from the solver
// section of the configuration.
func (c *cli) newResolver(logger *slog.Logger) (*engine.CAS, *pipeline.Resolver) {
	eng := engine.New(engine.WithBudget(c.cfg.Solver.CallBudget))
	orch := solver.New(eng,
		solver.WithMaxHints(c.cfg.Solver.MaxHints),
		solver.WithLogger(logger),
	)
	return eng, pipeline.New(eng, orch, pipeline.WithLogger(logger))
}

func (c *cli) normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <equation>",
		Short: "Print the canonical form of free-form ODE notation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), normalize.Equation(args[0]))
			return err
		},
	}
}

func (c *cli) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := config.Dump(c.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "odesolve %s\n", version)
			return err
		},
	}
}
