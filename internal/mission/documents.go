package mission

import "signalops-sim/internal/objective"

// UnlockedDocuments returns the documents visible for the given objective
// states, in declaration order. A document without any gate is always
// visible. A gated document is visible once any of its gates opens: its
// Requires objective is COMPLETE, it is AfterMission and the mission is
// complete, or a COMPLETE objective lists it in on_complete.unlocks.
func (m *Mission) UnlockedDocuments(states map[string]objective.State, missionComplete bool) []Document {
	unlockedBy := make(map[string][]string)
	for _, o := range m.Objectives {
		for _, u := range o.OnComplete.Unlocks {
			unlockedBy[u] = append(unlockedBy[u], o.ID)
		}
	}

	var out []Document
	for _, d := range m.Documents {
		gated := d.Requires != "" || d.AfterMission || len(unlockedBy[d.ID]) > 0
		open := !gated
		if d.Requires != "" && states[d.Requires] == objective.StateComplete {
			open = true
		}
		if d.AfterMission && missionComplete {
			open = true
		}
		for _, id := range unlockedBy[d.ID] {
			if states[id] == objective.StateComplete {
				open = true
			}
		}
		if open {
			out = append(out, d)
		}
	}
	return out
}
