package main

import (
	"github.com/spf13/cobra"

	"signalops-sim/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards for the GreptimeDB tables",
	Long:  "dashboard renders Grafana dashboard JSON into --out. GREPTIMEDB_DATASOURCE_UID must name the Grafana datasource.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboard.Render(dashboardOut, dashboard.Tables{
			Entity: runtimeCfg.Greptime.EntityTable,
			Effect: runtimeCfg.Greptime.EffectTable,
		})
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
}
