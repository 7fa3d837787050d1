package sim

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"signalops-sim/internal/session"
	"signalops-sim/internal/telemetry"
)

// ReplaySummary reports what a replay did.
type ReplaySummary struct {
	Events  int
	Effects int
}

// ReplayEvents feeds a recorded event journal from r into ctrl, which must
// already have the journal's mission loaded. A speed >0 reproduces the
// recorded gaps divided by speed. If speed <= 0, no artificial delay is
// inserted.
func ReplayEvents(ctx context.Context, r io.Reader, ctrl *session.Controller, speed float64) (ReplaySummary, error) {
	var sum ReplaySummary
	dec := json.NewDecoder(r)
	var prev time.Time
	for {
		var row telemetry.EventRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return sum, nil
			}
			return sum, err
		}
		if !prev.IsZero() && speed > 0 {
			diff := row.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				select {
				case <-time.After(diff):
				case <-ctx.Done():
					return sum, ctx.Err()
				}
			}
		}
		effects, err := ctrl.HandleEvent(ctx, row.Event())
		if err != nil {
			return sum, err
		}
		sum.Events++
		sum.Effects += len(effects)
		prev = row.Timestamp
	}
}

// ReplayEventsFile opens a file and replays its journal.
func ReplayEventsFile(ctx context.Context, path string, ctrl *session.Controller, speed float64) (ReplaySummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplaySummary{}, err
	}
	defer f.Close()
	return ReplayEvents(ctx, f, ctrl, speed)
}
