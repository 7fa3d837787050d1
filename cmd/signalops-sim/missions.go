package main

import (
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"signalops-sim/internal/config"
	"signalops-sim/internal/mission"
)

var missionsConfigPath string

var missionsCmd = &cobra.Command{
	Use:   "missions",
	Short: "Inspect mission content",
}

var missionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and configured missions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.WorldConfig{}
		if missionsConfigPath != "" {
			var err error
			if cfg, err = config.Load(missionsConfigPath, ""); err != nil {
				return err
			}
		}
		missions, err := cfg.LoadMissions()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tDIFFICULTY\tOBJECTIVES\tENTITIES")
		for _, id := range slices.Sorted(maps.Keys(missions)) {
			m := missions[id]
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", m.ID, m.Title, m.Difficulty, len(m.Objectives), len(m.Entities))
		}
		return tw.Flush()
	},
}

var missionsValidateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Validate mission files against the schema and the objective graph rules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			m, err := mission.Load(path)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%s, %d objectives)\n", path, m.ID, len(m.Objectives))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d mission files invalid", failed, len(args))
		}
		return nil
	},
}

func init() {
	missionsListCmd.Flags().StringVar(&missionsConfigPath, "config", "", "Path to world configuration YAML")
	missionsCmd.AddCommand(missionsListCmd, missionsValidateCmd)
}
