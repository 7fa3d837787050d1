// Package session binds a loaded mission to an objective engine and the
// entity registry. The Controller is the single entry point used by the host
// loop, the admin API and the CLI.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"signalops-sim/internal/eventbus"
	"signalops-sim/internal/mission"
	"signalops-sim/internal/objective"
	"signalops-sim/internal/track"
)

// ErrNoMission is returned by operations that need a loaded mission.
var ErrNoMission = errors.New("session: no mission loaded")

// RecordListener is called after every handled event, including events that
// matched nothing. It runs outside the controller lock and may call back into
// the controller.
type RecordListener func(Record)

// Status is a point-in-time summary of the session.
type Status struct {
	SessionID  string `json:"session_id"`
	MissionID  string `json:"mission_id,omitempty"`
	Title      string `json:"title,omitempty"`
	Completed  int    `json:"completed"`
	Objectives int    `json:"objectives"`
	Complete   bool   `json:"complete"`
	Entities   int    `json:"entities"`
	Events     int    `json:"events"`
}

// Controller owns one player session.
type Controller struct {
	mu           sync.Mutex
	id           string
	registry     *track.Registry
	bus          *eventbus.Bus
	log          *slog.Logger
	metrics      *Metrics
	now          func() time.Time
	historyLimit int

	mission         *mission.Mission
	engine          *objective.Engine
	missionEntities []string
	history         []Record
	seq             int
	listeners       []RecordListener
	busSub          eventbus.Subscription
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithMetrics records session metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock overrides the time source used for journal timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithBus attaches the controller to an existing bus instead of a private one.
func WithBus(b *eventbus.Bus) Option {
	return func(c *Controller) { c.bus = b }
}

// WithHistoryLimit caps the journal length. Zero keeps every record.
func WithHistoryLimit(n int) Option {
	return func(c *Controller) { c.historyLimit = n }
}

// New creates a controller over reg. Events published on the controller's
// bus are handled exactly like HandleEvent calls.
func New(reg *track.Registry, opts ...Option) *Controller {
	c := &Controller{
		id:       uuid.New().String(),
		registry: reg,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.bus == nil {
		c.bus = eventbus.New()
	}
	c.log = c.log.With("session_id", c.id)
	c.busSub = c.bus.Subscribe(eventbus.Filter{}, func(ctx context.Context, ev eventbus.Event) {
		if _, err := c.HandleEvent(ctx, ev); err != nil {
			c.log.Warn("event dropped", "kind", ev.Kind, "target", ev.TargetID, "err", err)
		}
	})
	c.metrics.trackedEntities(reg.Len())
	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

// Bus returns the bus the controller consumes.
func (c *Controller) Bus() *eventbus.Bus { return c.bus }

// Registry returns the entity registry.
func (c *Controller) Registry() *track.Registry { return c.registry }

// Close detaches the controller from its bus.
func (c *Controller) Close() {
	c.busSub.Unsubscribe()
}

// OnRecord registers l for every handled event.
func (c *Controller) OnRecord(l RecordListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// LoadMission replaces the current mission. The previous engine and the
// previous mission's entities are discarded. Validation failures leave the
// session unchanged.
func (c *Controller) LoadMission(m *mission.Mission) error {
	if m == nil {
		return fmt.Errorf("%w: nil mission", mission.ErrInvalidDefinition)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	engine, err := m.NewEngine()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range m.Entities {
		if e.ID != "" && c.registry.Has(e.ID) && !slices.Contains(c.missionEntities, e.ID) {
			return fmt.Errorf("%w: mission %s entity %s collides with a world entity", mission.ErrInvalidDefinition, m.ID, e.ID)
		}
	}

	prev := ""
	if c.mission != nil {
		prev = c.mission.ID
		c.metrics.mission("replaced")
	}
	c.retireMissionEntitiesLocked()
	ids, err := c.registry.AddAll(m.Entities)
	if err != nil {
		for _, id := range ids {
			_ = c.registry.Retire(id)
		}
		c.mission, c.engine = nil, nil
		return fmt.Errorf("%w: %w", mission.ErrInvalidDefinition, err)
	}
	c.missionEntities = ids
	c.mission = m
	c.engine = engine
	c.history = nil
	c.metrics.mission("loaded")
	c.metrics.trackedEntities(c.registry.Len())
	c.log.Info("mission loaded", "mission_id", m.ID, "previous", prev, "objectives", engine.Len(), "entities", len(ids))
	return nil
}

func (c *Controller) retireMissionEntitiesLocked() {
	for _, id := range c.missionEntities {
		if err := c.registry.Retire(id); err != nil && !errors.Is(err, track.ErrNotFound) {
			c.log.Warn("retire mission entity", "entity_id", id, "err", err)
		}
	}
	c.missionEntities = nil
}

// HandleEvent submits ev to the objective engine and returns the effects it
// caused, in declaration order. Events are processed one at a time.
// map_entity_selected events naming an entity that is not live are ignored.
func (c *Controller) HandleEvent(ctx context.Context, ev eventbus.Event) ([]objective.Effect, error) {
	c.mu.Lock()
	if c.engine == nil {
		c.mu.Unlock()
		return nil, ErrNoMission
	}
	if ev.Kind == eventbus.KindMapEntitySelected && !c.registry.Has(ev.TargetID) {
		rec := c.recordLocked(ev, nil, true)
		listeners := slices.Clone(c.listeners)
		c.mu.Unlock()
		c.metrics.event(outcomeIgnored)
		c.log.DebugContext(ctx, "ignored selection of unknown entity", "entity_id", ev.TargetID)
		notify(listeners, rec)
		return nil, nil
	}

	wasComplete := c.engine.IsMissionComplete()
	effects := c.engine.Submit(ev)
	rec := c.recordLocked(ev, effects, false)
	nowComplete := c.engine.IsMissionComplete()
	missionID := c.mission.ID
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	if len(effects) == 0 {
		c.metrics.event(outcomeUnmatched)
		c.log.DebugContext(ctx, "event matched no active objective", "kind", ev.Kind, "target", ev.TargetID)
		notify(listeners, rec)
		return nil, nil
	}
	c.metrics.event(outcomeMatched)
	c.metrics.completed(len(effects))
	for _, e := range effects {
		c.log.InfoContext(ctx, "objective complete", "mission_id", missionID, "objective_id", e.ObjectiveID, "activated", e.Activated)
	}
	if nowComplete && !wasComplete {
		c.metrics.mission("completed")
		c.log.InfoContext(ctx, "mission complete", "mission_id", missionID)
	}
	notify(listeners, rec)
	return effects, nil
}

func notify(listeners []RecordListener, rec Record) {
	for _, l := range listeners {
		l(rec)
	}
}

// Advance moves simulated time forward by dt and retires finished entities.
func (c *Controller) Advance(dt time.Duration) []string {
	retired := c.registry.Advance(dt)
	if len(retired) > 0 {
		c.mu.Lock()
		c.missionEntities = slices.DeleteFunc(c.missionEntities, func(id string) bool {
			return slices.Contains(retired, id)
		})
		c.mu.Unlock()
		c.log.Debug("entities retired", "ids", retired)
		c.metrics.trackedEntities(c.registry.Len())
	}
	return retired
}

// PositionOf returns the current position of an entity.
func (c *Controller) PositionOf(id string) (track.Waypoint, error) {
	return c.registry.PositionOf(id)
}

// Entities returns snapshots of the entities matching f.
func (c *Controller) Entities(f track.Filter) []track.Snapshot {
	return c.registry.Snapshots(f)
}

// Mission returns the loaded mission template, or nil.
func (c *Controller) Mission() *mission.Mission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mission
}

// Checklist returns the checklist projection of the current mission.
func (c *Controller) Checklist() ([]objective.ChecklistItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil {
		return nil, ErrNoMission
	}
	return c.engine.Checklist(), nil
}

// ObjectiveState returns the state of one objective.
func (c *Controller) ObjectiveState(id string) (objective.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil {
		return "", ErrNoMission
	}
	return c.engine.State(id)
}

// UnlockedDocuments returns the documents currently visible to the player.
func (c *Controller) UnlockedDocuments() ([]mission.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil {
		return nil, ErrNoMission
	}
	return c.mission.UnlockedDocuments(c.engine.States(), c.engine.IsMissionComplete()), nil
}

// IsComplete reports whether every objective of the loaded mission is
// COMPLETE. It is false when no mission is loaded.
func (c *Controller) IsComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine != nil && c.engine.IsMissionComplete()
}

// Status summarises the session.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Status{SessionID: c.id, Entities: c.registry.Len(), Events: c.seq}
	if c.engine != nil {
		s.MissionID = c.mission.ID
		s.Title = c.mission.Title
		s.Completed = c.engine.Completed()
		s.Objectives = c.engine.Len()
		s.Complete = c.engine.IsMissionComplete()
	}
	return s
}
