package sim

import (
	"context"
	"time"

	"signalops-sim/internal/logging"
)

// Run starts the simulation loop and stops when the context is done. Each
// tick advances the session by the wall clock time measured since the
// previous tick, so late or skipped ticks do not slow simulated time down.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting simulator", "tick_interval", s.tickInterval, "session_id", s.ctrl.ID())
	s.PushChecklist()
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	s.mu.Lock()
	s.last = s.now()
	s.mu.Unlock()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			log.Info("stopping simulator", "ticks", s.Ticks())
			return
		}
	}
}

// tick measures the elapsed time and steps the session.
func (s *Simulator) tick(ctx context.Context) {
	log := logging.FromContext(ctx)

	s.mu.Lock()
	now := s.now()
	dt := time.Duration(float64(now.Sub(s.last)) * s.timeScale)
	s.last = now
	s.ticks++
	s.mu.Unlock()

	if err := s.Step(ctx, dt); err != nil {
		log.Error("write entity rows", "err", err)
	}
}
