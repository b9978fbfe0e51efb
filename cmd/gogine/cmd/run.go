package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/GoCodeAlone/gogine"
	"github.com/GoCodeAlone/gogine/config"
	"github.com/GoCodeAlone/gogine/logging"
	"github.com/GoCodeAlone/gogine/systems"
	"github.com/GoCodeAlone/gogine/systems/configwatch"
	"github.com/GoCodeAlone/gogine/systems/scheduler"
	"github.com/GoCodeAlone/gogine/systems/status"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the engine until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd.Context(), cmd, lookupWithFlags(cmd.Flags(), os.LookupEnv))
		},
	}
}

// runEngine loads configuration, builds the engine, and runs it. Only
// initialization and fatal lifecycle failures produce an error.
func runEngine(ctx context.Context, cmd *cobra.Command, lookup config.LookupFunc, runOpts ...gogine.RunOption) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadFrom(lookup)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg, logging.WithOutput(zapcore.AddSync(cmd.OutOrStdout())))
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	state, err := build(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("starting", "version", Version, "systems", state.SystemCount())

	runner := gogine.NewRunner(state, runOpts...)
	if err := runner.Run(ctx); err != nil {
		logger.Error("Engine failed", "error", err)
		return err
	}
	if err := runner.ShutdownErr(); err != nil {
		logger.Warn("Some subsystems failed to stop cleanly", "error", err)
	}

	logger.Info("shutting down")
	return nil
}

type namedSubsystem struct {
	name      string
	subsystem gogine.Subsystem
}

// build creates the application state and registers the built-in
// subsystems: platform, render, scheduler, ecs, then status and configwatch
// when configured.
func build(cfg *config.Config, logger *logging.ZapLogger) (*gogine.State, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := gogine.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	state, err := gogine.Initialize(cfg, gogine.WithLogger(logger), gogine.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	subsystems := []namedSubsystem{
		{"platform", systems.NewPlatform(logger.Named("platform"))},
		{"render", systems.NewRender(logger.Named("render"))},
		{scheduler.Name, scheduler.New(cfg.SchedulerTick, logger.Named(scheduler.Name))},
		{"ecs", systems.NewECS(logger.Named("ecs"))},
	}
	if cfg.StatusAddr != "" {
		subsystems = append(subsystems, namedSubsystem{status.Name, status.New(cfg.StatusAddr, state, reg)})
	}
	if cfg.ConfigWatch && cfg.ConfigFile != "" {
		var opts []configwatch.Option
		if cfg.RestartOnConfigChange {
			opts = append(opts, configwatch.WithShutdownOnChange(state.Shutdown()))
		}
		w := configwatch.New(cfg.ConfigFile, logger.Named(configwatch.Name), opts...)
		subsystems = append(subsystems, namedSubsystem{configwatch.Name, w})
	}

	for _, ns := range subsystems {
		if err := state.RegisterSystem(ns.name, ns.subsystem); err != nil {
			return nil, err
		}
	}

	for _, name := range cfg.DisabledSystems {
		if err := state.SetSystemEnabled(name, false); err != nil {
			logger.Warn("Cannot disable subsystem", "subsystem", name, "error", err)
			continue
		}
		logger.Info("Subsystem disabled by configuration", "subsystem", name)
	}

	return state, nil
}
