package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/GoCodeAlone/gogine/config"
)

// Version information, set at build time with -ldflags
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// OsExit is swapped out by tests
var OsExit = os.Exit

// flagEnv maps persistent flags onto the environment variables they override
var flagEnv = map[string]string{
	"config":    config.EnvPrefix + "_CONFIG",
	"env":       config.EnvPrefix + "_ENV",
	"log-level": config.EnvPrefix + "_LOG_LEVEL",
	"status":    config.EnvPrefix + "_STATUS_ADDR",
}

// NewRootCommand creates the gogine command. Without a subcommand it runs
// the engine.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gogine",
		Short: "gogine - subsystem lifecycle engine",
		Long: `gogine starts its subsystems in registration order, runs until interrupted
or asked to shut down, then stops them in reverse order.

Configuration comes from GOGINE_* environment variables, an optional YAML or
TOML file named by GOGINE_CONFIG, and the flags below.`,
		Version:       PrintVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd.Context(), cmd, lookupWithFlags(cmd.Flags(), os.LookupEnv))
		},
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.String("config", "", "path to a .yaml, .yml or .toml config file")
	flags.String("env", "", "runtime environment (development, staging, production)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("status", "", "address for the status HTTP server, e.g. 127.0.0.1:9090")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), PrintVersion())
		},
	}
}

// PrintVersion formats version information
func PrintVersion() string {
	return fmt.Sprintf("gogine v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// lookupWithFlags resolves config keys from explicitly set flags first,
// then from next.
func lookupWithFlags(flags *pflag.FlagSet, next config.LookupFunc) config.LookupFunc {
	overrides := make(map[string]string)
	for name, key := range flagEnv {
		f := flags.Lookup(name)
		if f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}
	return func(key string) (string, bool) {
		if v, ok := overrides[key]; ok {
			return v, true
		}
		return next(key)
	}
}
