package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GoSim-25-26J-441/opsim-driver/internal/sal"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/simulator"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/config"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
)

const (
	exitOK               = 0
	exitFailure          = 1
	exitSchedulerTimeout = 2
	exitDatabase         = 3
)

var rootCmd = &cobra.Command{
	Use:   "opsim",
	Short: "Observatory survey simulation driver",
	Long: `opsim drives an external scheduler through a simulated survey.
Each night it advances the clock to sunset, publishes time, telemetry and
environment, executes the targets the scheduler picks and records every
visit in a per-session database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func initConfig() {
	viper.SetEnvPrefix("OPSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "configuration file (defaults are used when empty)")
	rootCmd.PersistentFlags().String("overrides", "", "directory of *.yaml files merged over the configuration")
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: json or text (overrides log_format)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	for _, name := range []string{"config", "overrides", "verbose", "log-format", "json"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(brokerCmd())
}

// loadConfig layers the file, the overrides directory and the flags over
// the defaults
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if path := viper.GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg, err := config.ApplyOverridesDir(cfg, viper.GetString("overrides"))
	if err != nil {
		return nil, err
	}

	if v := viper.GetFloat64("frac-duration"); v > 0 {
		cfg.Survey.DurationYears = v
	}
	if v := viper.GetFloat64("scheduler-timeout"); v > 0 {
		cfg.Survey.SchedulerTimeout = v
	}
	if v := viper.GetInt("session-id-start"); v > 0 {
		cfg.Database.StartingSessionID = v
	}
	if addr := viper.GetString("metrics-addr"); addr != "" {
		cfg.Metrics.Address = addr
	}
	if t := viper.GetString("transport"); t != "" {
		cfg.SAL.Transport = t
	}
	if addr := viper.GetString("sal-addr"); addr != "" {
		cfg.SAL.Address = addr
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes to stderr so tables on stdout stay clean
func newLogger(cfg *config.Config) *slog.Logger {
	format := cfg.LogFormat
	if f := viper.GetString("log-format"); f != "" {
		format = f
	}
	level := cfg.LogLevel
	if v := viper.GetInt("verbose"); v > 0 || level == "" {
		level = logger.LevelForVerbosity(v)
	}
	return logger.NewWithFormat(format, level, os.Stderr)
}

// exitCode maps a run error onto the process status
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, sal.ErrSchedulerTimeout):
		return exitSchedulerTimeout
	case errors.Is(err, simulator.ErrDatabase):
		return exitDatabase
	default:
		return exitFailure
	}
}
