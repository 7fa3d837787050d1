package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"signalops-sim/internal/session"
	"signalops-sim/internal/sim"
	"signalops-sim/internal/track"
)

var (
	replayInput      string
	replaySpeed      float64
	replayMissionID  string
	replayConfigPath string
	replayJSON       bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded event log",
	Long:  "replay feeds a recorded events JSONL file (written by simulate --log-file) into a fresh session and prints the resulting objective progression.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		cfg, m, err := loadWorld(replayConfigPath, "", replayMissionID)
		if err != nil {
			return err
		}

		registry := track.NewRegistry(cfg.NoiseSeed)
		if _, err := registry.AddAll(cfg.Entities); err != nil {
			return err
		}
		ctrl := session.New(registry)
		defer ctrl.Close()
		if err := ctrl.LoadMission(m); err != nil {
			return err
		}

		var out sim.EntityWriter = sim.NewColorStdoutWriter(m)
		if replayJSON {
			out = sim.NewJSONStdoutWriter()
		}
		sim.NewSimulator(ctrl, out, runtimeCfg.Tick)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		sum, err := sim.ReplayEventsFile(ctx, replayInput, ctrl, replaySpeed)
		if err != nil {
			return err
		}
		st := ctrl.Status()
		fmt.Fprintf(cmd.OutOrStdout(), "replayed %d events, %d effects, %d/%d objectives complete\n", sum.Events, sum.Effects, st.Completed, st.Objectives)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to events log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 replays without delays)")
	replayCmd.Flags().StringVar(&replayMissionID, "mission", "", "Mission id the log was recorded against")
	replayCmd.Flags().StringVar(&replayConfigPath, "config", "", "Path to world configuration YAML")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Print JSON lines instead of colored output")
	replayCmd.MarkFlagRequired("input")
}
