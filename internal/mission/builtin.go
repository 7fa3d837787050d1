package mission

import (
	"slices"

	"signalops-sim/internal/eventbus"
	"signalops-sim/internal/objective"
	"signalops-sim/internal/track"
)

// BuiltIn returns the missions shipped with the binary, keyed by id.
func BuiltIn() map[string]Mission {
	return map[string]Mission{
		"first-contact": {
			ID:         "first-contact",
			Title:      "First Contact",
			Difficulty: "easy",
			Reward:     500,
			Briefing:   "An unknown transmitter keeps pinging our honeypot. Find out who is behind it.",
			Objectives: []objective.Objective{
				{
					ID:          "trace-signal",
					Description: "Trace the signal hitting the honeypot.",
					Trigger:     objective.Trigger{EventKind: eventbus.KindSignalTraced, TargetID: "203.0.113.7"},
					OnComplete:  objective.Payload{Message: "Signal traced to 203.0.113.7."},
				},
				{
					ID:          "lookup-ip",
					Description: "Look up the owner of 203.0.113.7.",
					Trigger:     objective.Trigger{EventKind: eventbus.KindIPInfoRetrieved, TargetID: "203.0.113.7"},
					Dependency:  "trace-signal",
					OnComplete:  objective.Payload{Message: "The block belongs to a freight operator. A relay sits on one of their trains.", Unlocks: []string{"relay-dossier"}},
				},
				{
					ID:          "find-train",
					Description: "Select the train carrying the relay.",
					Trigger:     objective.Trigger{EventKind: eventbus.KindMapEntitySelected, TargetID: "rx-112"},
					Dependency:  "lookup-ip",
					OnComplete:  objective.Payload{Message: "Relay located aboard RX 112."},
				},
			},
			Checklist: map[string]string{"find-train": "Locate the relay on the map"},
			Documents: []Document{
				{ID: "handbook", Title: "Operator handbook", Body: "Trace first, ask questions later."},
				{ID: "relay-dossier", Title: "Relay dossier", Body: "Registered to Nordbahn Cargo. Rolling stock RX 112 carries an unlisted uplink."},
				{ID: "debrief", Title: "Debrief", Body: "Relay seized. Good work.", AfterMission: true},
			},
			Entities: []track.Definition{
				{ID: "rx-112", Kind: track.KindTrain, Path: [][2]float64{{48.21, 16.37}, {48.31, 16.10}, {48.20, 15.63}, {48.21, 16.37}}, Speed: 0.002, Status: "ON TIME"},
				{ID: "rx-114", Kind: track.KindTrain, Path: [][2]float64{{48.21, 16.37}, {48.31, 16.10}, {48.20, 15.63}, {48.21, 16.37}}, Speed: 0.002, PhaseOffset: 0.5, Status: "DELAYED"},
			},
		},
		"ghost-flight": {
			ID:         "ghost-flight",
			Title:      "Ghost Flight",
			Difficulty: "medium",
			Reward:     1200,
			Briefing:   "A transponder is broadcasting from an aircraft that never took off.",
			Objectives: []objective.Objective{
				{
					ID:          "intercept",
					Description: "Trace the spoofed transponder signal.",
					Trigger:     objective.Trigger{EventKind: eventbus.KindSignalTraced, TargetID: "198.51.100.23"},
					OnComplete:  objective.Payload{Message: "The signal rides on flight GH 404."},
				},
				{
					ID:          "select-flight",
					Description: "Select GH 404 on the map.",
					Trigger:     objective.Trigger{EventKind: eventbus.KindMapEntitySelected, TargetID: "gh-404"},
					Dependency:  "intercept",
					OnComplete:  objective.Payload{Message: "GH 404 has no filed flight plan.", Unlocks: []string{"manifest"}},
				},
				{
					ID:          "ground-station",
					Description: "Find the ground station feeding the spoof.",
					Trigger:     objective.Trigger{EventKind: eventbus.KindMapLocationSelected, TargetID: "salzburg-tower"},
					Dependency:  "select-flight",
				},
				{
					ID:          "owner",
					Description: "Identify the operator of the ground station uplink.",
					Trigger:     objective.Trigger{EventKind: eventbus.KindIPInfoRetrieved, TargetID: "198.51.100.99"},
					Dependency:  "select-flight",
					OnComplete:  objective.Payload{Message: "Uplink leased by a shell company."},
				},
			},
			Documents: []Document{
				{ID: "manifest", Title: "Passenger manifest", Body: "Zero passengers. Zero crew."},
				{ID: "tower-log", Title: "Tower log", Body: "No departures after 22:00.", Requires: "ground-station"},
			},
			Entities: []track.Definition{
				{ID: "gh-404", Kind: track.KindFlight, Path: [][2]float64{{47.79, 13.00}, {48.11, 14.50}, {48.35, 16.55}}, Speed: 0.004, Status: "UNSCHEDULED"},
				{ID: "os-87", Kind: track.KindFlight, Path: [][2]float64{{48.11, 16.57}, {50.03, 8.56}}, Speed: 0.003, Loop: track.LoopRetire, Status: "ON TIME"},
			},
		},
		"storm-chaser": {
			ID:         "storm-chaser",
			Title:      "Storm Chaser",
			Difficulty: "hard",
			Reward:     2000,
			Briefing:   "Someone is hiding a data exfiltration inside weather radar traffic.",
			Objectives: []objective.Objective{
				{
					ID:          "select-storm",
					Description: "Select the storm cell masking the traffic.",
					Trigger:     objective.Trigger{EventKind: eventbus.KindMapEntitySelected, TargetID: "cell-7"},
				},
				{
					ID:          "radar-station",
					Description: "Select the radar station closest to the cell.",
					Trigger:     objective.Trigger{EventKind: eventbus.KindMapLocationSelected, TargetID: "weather-station-3"},
				},
				{
					ID:          "trace-exfil",
					Description: "Trace the exfiltration stream.",
					Trigger:     objective.Trigger{EventKind: eventbus.KindSignalTraced, TargetID: "192.0.2.44"},
					Dependency:  "radar-station",
					OnComplete:  objective.Payload{Message: "Stream terminates at 192.0.2.44.", Unlocks: []string{"radar-report"}},
				},
			},
			Documents: []Document{
				{ID: "radar-report", Title: "Radar report", Body: "Reflectivity spikes do not match precipitation."},
				{ID: "closing-note", Title: "Closing note", Body: "The storm was real. The data was not.", AfterMission: true},
			},
			Entities: []track.Definition{
				{ID: "cell-7", Kind: track.KindStorm, Path: [][2]float64{{47.5, 11.0}, {47.9, 12.4}, {48.4, 13.1}, {47.5, 11.0}}, Speed: 0.001, Wobble: 0.05, Status: "SEVERE"},
			},
			Modules: map[string]any{
				"satellite": map[string]any{"layer": "radar", "zoom": 7},
			},
		},
	}
}

// BuiltInIDs returns the built-in mission ids sorted alphabetically.
func BuiltInIDs() []string {
	ids := make([]string, 0, 3)
	for id := range BuiltIn() {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
