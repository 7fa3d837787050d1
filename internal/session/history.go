package session

import (
	"time"

	"signalops-sim/internal/eventbus"
	"signalops-sim/internal/objective"
)

// Record is one journal entry: an event handled by the session and what it
// caused.
type Record struct {
	Seq       int                `json:"seq"`
	At        time.Time          `json:"at"`
	MissionID string             `json:"mission_id"`
	Event     eventbus.Event     `json:"event"`
	Effects   []objective.Effect `json:"effects,omitempty"`
	Ignored   bool               `json:"ignored,omitempty"`
}

// History returns a copy of the journal for the current session, oldest
// first.
func (c *Controller) History() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Controller) recordLocked(ev eventbus.Event, effects []objective.Effect, ignored bool) Record {
	c.seq++
	r := Record{
		Seq:       c.seq,
		At:        c.now(),
		MissionID: c.mission.ID,
		Event:     ev,
		Effects:   effects,
		Ignored:   ignored,
	}
	c.history = append(c.history, r)
	if c.historyLimit > 0 && len(c.history) > c.historyLimit {
		c.history = c.history[len(c.history)-c.historyLimit:]
	}
	return r
}
