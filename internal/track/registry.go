package track

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"github.com/google/uuid"
	"github.com/wroge/wgs84"
)

// wobbleFrequency scales elapsed seconds into noise space.
const wobbleFrequency = 0.05

// mercatorMaxLat is the latitude where Web Mercator reaches its square bound.
const mercatorMaxLat = 85.05112878

// Projected is a Web Mercator (EPSG:3857) position in metres.
type Projected struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Snapshot is a read-only copy of an entity's display state.
type Snapshot struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	Status    string        `json:"status,omitempty"`
	Loop      LoopPolicy    `json:"loop"`
	Progress  float64       `json:"progress"`
	Position  Waypoint      `json:"position"`
	Projected Projected     `json:"projected"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Registry holds every live tracked entity. Advance and the read side may run
// from different goroutines; readers only ever receive copies.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*entity
	order    []string
	seq      map[string]int
	next     int
	noise    *perlin.Perlin
	project  func(a, b, c float64) (float64, float64, float64)
}

// NewRegistry creates an empty registry. seed drives the wobble noise.
func NewRegistry(seed int64) *Registry {
	return &Registry{
		entities: make(map[string]*entity),
		seq:      make(map[string]int),
		noise:    perlin.NewPerlin(2, 2, 3, seed),
		project:  wgs84.EPSG().Transform(4326, 3857),
	}
}

// Add validates def and registers it. An empty ID is replaced with a generated
// one, which is returned.
func (r *Registry) Add(def Definition) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if def.ID == "" {
		def.ID = generateEntityID(def.Kind, r.next)
	}
	if _, exists := r.entities[def.ID]; exists {
		return "", fmt.Errorf("%w: duplicate id %s", ErrInvalidEntity, def.ID)
	}
	e, err := newEntity(def)
	if err != nil {
		return "", err
	}
	r.entities[e.id] = e
	r.order = append(r.order, e.id)
	r.seq[e.id] = r.next
	r.next++
	return e.id, nil
}

// AddAll registers defs in order, stopping at the first invalid one.
func (r *Registry) AddAll(defs []Definition) ([]string, error) {
	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		id, err := r.Add(d)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Advance moves every entity forward by dt of simulated time and returns the
// ids of entities retired by this step. Non-positive deltas are no-ops.
func (r *Registry) Advance(dt time.Duration) []string {
	if dt <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var retired []string
	for _, id := range r.order {
		e := r.entities[id]
		e.elapsed += dt
		if e.loop == LoopRetire && e.finished() {
			retired = append(retired, id)
		}
	}
	for _, id := range retired {
		r.removeLocked(id)
	}
	return retired
}

// Retire removes an entity explicitly.
func (r *Registry) Retire(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.removeLocked(id)
	return nil
}

func (r *Registry) removeLocked(id string) {
	delete(r.entities, id)
	delete(r.seq, id)
	r.order = slices.DeleteFunc(r.order, func(o string) bool { return o == id })
}

// Has reports whether id is a live entity.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entities[id]
	return ok
}

// Len returns the number of live entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// PositionOf returns the current interpolated position of id.
func (r *Registry) PositionOf(id string) (Waypoint, error) {
	s, err := r.Snapshot(id)
	if err != nil {
		return Waypoint{}, err
	}
	return s.Position, nil
}

// Snapshot returns a copy of the current state of id.
func (r *Registry) Snapshot(id string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.snapshotLocked(e), nil
}

// Query yields snapshots of the entities matching f in registration order.
// The matching set is captured under one read lock when iteration starts, so a
// concurrent Advance never produces a half-updated view.
func (r *Registry) Query(f Filter) iter.Seq[Snapshot] {
	return func(yield func(Snapshot) bool) {
		r.mu.RLock()
		snaps := make([]Snapshot, 0, len(r.order))
		for _, id := range r.order {
			e := r.entities[id]
			if !f.matchesKind(e.kind) {
				continue
			}
			s := r.snapshotLocked(e)
			if f.Region != nil && !f.Region.Contains(s.Position) {
				continue
			}
			snaps = append(snaps, s)
		}
		r.mu.RUnlock()
		for _, s := range snaps {
			if !yield(s) {
				return
			}
		}
	}
}

// Snapshots collects Query(f) into a slice.
func (r *Registry) Snapshots(f Filter) []Snapshot {
	return slices.Collect(r.Query(f))
}

func (r *Registry) snapshotLocked(e *entity) Snapshot {
	p := e.progress()
	pos := e.interpolate(p)
	if e.wobble > 0 {
		pos = r.wobbleLocked(e, pos)
	}
	x, y, _ := r.project(pos.Lon, clamp(pos.Lat, -mercatorMaxLat, mercatorMaxLat), 0)
	return Snapshot{
		ID:        e.id,
		Kind:      e.kind,
		Status:    e.status,
		Loop:      e.loop,
		Progress:  p,
		Position:  pos,
		Projected: Projected{X: x, Y: y},
		Elapsed:   e.elapsed,
	}
}

// wobbleLocked displaces pos by noise sampled at the entity's elapsed time, so
// the result stays a pure function of cumulative time.
func (r *Registry) wobbleLocked(e *entity, pos Waypoint) Waypoint {
	t := e.elapsed.Seconds() * wobbleFrequency
	lane := float64(r.seq[e.id]) + 0.5
	pos.Lat = clamp(pos.Lat+e.wobble*r.noise.Noise2D(t, lane), -90, 90)
	pos.Lon = clamp(pos.Lon+e.wobble*r.noise.Noise2D(lane, t), -180, 180)
	return pos
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func generateEntityID(k Kind, index int) string {
	return fmt.Sprintf("%s-%d-%s", strings.ToLower(string(k)), index, uuid.New().String())
}
