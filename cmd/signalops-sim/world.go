package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"signalops-sim/internal/config"
	"signalops-sim/internal/mission"
)

// loadWorld reads the optional world config and resolves the mission to run.
// Without a config file only the built-in missions are available.
func loadWorld(configPath, schemaPath, missionID string) (*config.WorldConfig, *mission.Mission, error) {
	cfg := &config.WorldConfig{}
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath, schemaPath); err != nil {
			return nil, nil, err
		}
	}
	missions, err := cfg.LoadMissions()
	if err != nil {
		return nil, nil, err
	}
	if missionID == "" {
		missionID = cfg.StartMission
	}
	if missionID == "" {
		missionID = mission.BuiltInIDs()[0]
	}
	m, ok := missions[missionID]
	if !ok {
		ids := slices.Sorted(maps.Keys(missions))
		return nil, nil, fmt.Errorf("unknown mission %q (available: %s)", missionID, strings.Join(ids, ", "))
	}
	return cfg, m, nil
}
