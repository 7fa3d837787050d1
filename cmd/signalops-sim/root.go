package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"signalops-sim/internal/config"
	"signalops-sim/internal/logging"
)

var (
	runtimeConfigPath string
	logLevelFlag      string

	runtimeCfg *config.Runtime
)

var rootCmd = &cobra.Command{
	Use:   "signalops-sim",
	Short: "SignalOps mission simulator",
	Long:  "SignalOps-Sim runs hacking-simulator missions: tracked map entities, player events and objective progression.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rt, err := config.LoadRuntime(runtimeConfigPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			rt.LogLevel = logLevelFlag
		}
		runtimeCfg = rt
		slog.SetDefault(logging.New(rt.LogLevel))
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&runtimeConfigPath, "runtime-config", "", "Path to runtime settings (YAML/TOML/JSON, read by viper)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(missionsCmd)
	rootCmd.AddCommand(dashboardCmd)
}
