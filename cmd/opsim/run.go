package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GoSim-25-26J-441/opsim-driver/internal/astro"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/database"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/metrics"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/sal"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/sal/zenith"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/simulator"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/config"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a survey",
		Long: `Run a survey against the scheduler on the configured middleware.
With the memory transport a built-in zenith scheduler answers in-process;
with grpc both driver and scheduler connect to an opsim broker.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			logger.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSurvey(ctx, cmd, cfg, log)
		},
	}
	cmd.Flags().Float64("frac-duration", 0, "survey duration in years (overrides survey.duration_years)")
	cmd.Flags().Float64("scheduler-timeout", 0, "seconds to wait for a target (overrides survey.scheduler_timeout)")
	cmd.Flags().Int("session-id-start", 0, "lowest session id to allocate")
	cmd.Flags().String("comment", "", "run comment stored on the session")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().String("transport", "", "middleware transport: memory or grpc")
	cmd.Flags().String("sal-addr", "", "broker address for the grpc transport")
	for _, name := range []string{"frac-duration", "scheduler-timeout", "session-id-start", "comment", "metrics-addr", "transport", "sal-addr"} {
		_ = viper.BindPFlag(name, cmd.Flags().Lookup(name))
	}
	return cmd
}

func runSurvey(ctx context.Context, cmd *cobra.Command, cfg *config.Config, log *slog.Logger) error {
	bus, closeBus, err := openBus(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBus()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("%w: %w", simulator.ErrDatabase, err)
	}
	defer db.Close()

	rec := metrics.NewRecorder()
	if cfg.Metrics.Address != "" {
		srv := metrics.NewServer(rec, log)
		go func() {
			if err := srv.Serve(ctx, cfg.Metrics.Address); err != nil {
				log.Error("metrics server error", "addr", cfg.Metrics.Address, "error", err)
			}
		}()
	}

	sim := simulator.New(cfg, bus, db, log,
		simulator.WithRecorder(rec),
		simulator.WithComment(viper.GetString("comment")))
	log.Info("starting survey", "nights", sim.Duration(), "transport", cfg.SAL.Transport)
	summary, runErr := sim.Execute(ctx)

	out := cmd.OutOrStdout()
	if viper.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else {
		simulator.WriteSummary(out, summary, rec.Samples().Summary())
	}
	return runErr
}

// openBus connects the configured transport. The returned func releases it.
func openBus(ctx context.Context, cfg *config.Config, log *slog.Logger) (sal.Bus, func(), error) {
	switch cfg.SAL.Transport {
	case "", "memory":
		bus := sal.NewMemoryBus()
		sched := zenith.New(bus, astro.Site{Latitude: cfg.Site.Latitude, Longitude: cfg.Site.Longitude}, log.With("component", "scheduler"))
		if err := sched.Start(ctx); err != nil {
			bus.Close()
			return nil, nil, err
		}
		return bus, func() {
			sched.Stop()
			bus.Close()
		}, nil
	case "grpc":
		bus, err := sal.DialGRPCBus(cfg.SAL.Address, log)
		if err != nil {
			return nil, nil, err
		}
		return bus, func() { bus.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown sal transport %q", config.ErrConfigurationInvalid, cfg.SAL.Transport)
	}
}

func sessionsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			store, err := database.OpenTracking(cmd.Context(), cfg.Database.TrackingDriver, cfg.Database.TrackingDSN, log)
			if err != nil {
				return fmt.Errorf("%w: %w", simulator.ErrDatabase, err)
			}
			defer store.Close()

			sessions, err := store.ListSessions(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("%w: %w", simulator.ErrDatabase, err)
			}
			if viper.GetBool("json") {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}
			simulator.WriteSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum sessions to list (0 for all)")
	return cmd
}

func brokerCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "broker",
		Short: "Run the gRPC middleware broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewWithFormat(viper.GetString("log-format"), logger.LevelForVerbosity(viper.GetInt("verbose")+1), os.Stderr)
			logger.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}
			return sal.NewBusServer(log).Serve(ctx, lis)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.Default().SAL.Address, "listen address")
	return cmd
}
