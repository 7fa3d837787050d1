package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"signalops-sim/internal/admin"
	"signalops-sim/internal/config"
	"signalops-sim/internal/eventbus"
	"signalops-sim/internal/logging"
	"signalops-sim/internal/session"
	"signalops-sim/internal/sim"
	"signalops-sim/internal/track"
)

var (
	simPrintOnly  bool
	simJSON       bool
	simConfigPath string
	simSchemaPath string
	simMissionID  string
	simTick       time.Duration
	simTimeScale  float64
	simLogFile    string
	simNoAdmin    bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a mission in real time",
	Long:  "simulate loads a mission, moves its entities on the host clock and progresses objectives from player events (TUI command line, admin API or websocket).",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, m, err := loadWorld(simConfigPath, simSchemaPath, simMissionID)
		if err != nil {
			return err
		}

		tick := runtimeCfg.Tick
		if cmd.Flags().Changed("tick") {
			tick = simTick
		}

		opts := writerOptions{
			printOnly: simPrintOnly,
			json:      simJSON,
			logFile:   simLogFile,
			greptime:  runtimeCfg.Greptime,
		}
		writer, tui, cleanup, err := newWriters(m, opts)
		if err != nil {
			return err
		}
		defer cleanup()

		log := slog.Default()
		if tui {
			log = logging.NewWriter(io.Discard, runtimeCfg.LogLevel)
			slog.SetDefault(log)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		registry := track.NewRegistry(cfg.NoiseSeed)
		if _, err := registry.AddAll(cfg.Entities); err != nil {
			return err
		}
		ctrl := session.New(registry,
			session.WithLogger(log),
			session.WithMetrics(session.NewMetrics(reg)),
			session.WithHistoryLimit(1000),
		)
		defer ctrl.Close()
		watchLocations(ctrl.Bus(), cfg, log)
		if err := ctrl.LoadMission(m); err != nil {
			return err
		}

		simulator := sim.NewSimulator(ctrl, writer, tick)
		simulator.SetLogger(log)
		simulator.SetTimeScale(simTimeScale)

		if !simNoAdmin {
			srv := admin.NewServer(ctrl, reg)
			srv.SetLogger(log)
			go func() {
				if aw, ok := writer.(sim.AdminStatusWriter); ok {
					aw.SetAdminStatus(true)
					defer aw.SetAdminStatus(false)
				}
				if err := srv.Start(runtimeCfg.AdminAddr); err != nil {
					log.Error("admin server failed", "err", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		simulator.Run(ctx)
		st := ctrl.Status()
		log.Info("simulation stopped", "mission_id", st.MissionID, "completed", st.Completed, "objectives", st.Objectives, "complete", st.Complete)
		return nil
	},
}

// watchLocations logs map location selections against the configured named
// locations.
func watchLocations(bus *eventbus.Bus, cfg *config.WorldConfig, log *slog.Logger) {
	bus.Subscribe(eventbus.Filter{Kinds: []string{eventbus.KindMapLocationSelected}}, func(ctx context.Context, ev eventbus.Event) {
		if loc, ok := cfg.Location(ev.TargetID); ok {
			log.InfoContext(ctx, "location selected", "location", loc.Name, "lat", loc.Lat, "lon", loc.Lon)
			return
		}
		log.DebugContext(ctx, "selected location is not on the world map", "location", ev.TargetID)
	})
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print to STDOUT instead of writing to GreptimeDB")
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "Print JSON lines instead of the colored or TUI output")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "", "Path to world configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "", "Path to a CUE schema overriding the built-in one")
	simulateCmd.Flags().StringVar(&simMissionID, "mission", "", "Mission id to run (defaults to start_mission)")
	simulateCmd.Flags().DurationVar(&simTick, "tick", time.Second, "Tick interval (e.g. 500ms, 2s)")
	simulateCmd.Flags().Float64Var(&simTimeScale, "time-scale", 1, "Simulated seconds per wall clock second")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export entity samples (JSONL); effects and events go to .effects and .events")
	simulateCmd.Flags().BoolVar(&simNoAdmin, "no-admin", false, "Do not start the admin HTTP server")
}
