// Package track owns the simulated moving objects shown on the map (flights,
// trains, storms) and derives their positions from cumulative elapsed time.
package track

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidEntity is returned when an entity definition cannot be simulated.
	ErrInvalidEntity = errors.New("track: invalid entity")
	// ErrNotFound is returned for lookups of unknown or retired entities.
	ErrNotFound = errors.New("track: entity not found")
)

// Kind tags the variety of a tracked entity.
type Kind string

const (
	KindFlight Kind = "FLIGHT"
	KindTrain  Kind = "TRAIN"
	KindStorm  Kind = "STORM"
)

// LoopPolicy decides what happens once an entity reaches the end of its path.
type LoopPolicy string

const (
	// LoopWrap restarts the path from the beginning.
	LoopWrap LoopPolicy = "loop"
	// LoopHold clamps the entity at the final waypoint.
	LoopHold LoopPolicy = "hold"
	// LoopRetire clamps the entity and removes it from the registry.
	LoopRetire LoopPolicy = "retire"
)

// DefaultLoopPolicy returns the policy used when a definition leaves it blank.
func DefaultLoopPolicy(k Kind) LoopPolicy {
	switch k {
	case KindFlight:
		return LoopHold
	default:
		return LoopWrap
	}
}

// Waypoint is a latitude/longitude pair in degrees.
type Waypoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func lerp(a, b Waypoint, t float64) Waypoint {
	return Waypoint{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lon: a.Lon + (b.Lon-a.Lon)*t,
	}
}

// Definition is the entity feed record consumed at simulation start.
type Definition struct {
	ID          string       `yaml:"id" json:"id"`
	Kind        Kind         `yaml:"kind" json:"kind"`
	Path        [][2]float64 `yaml:"path" json:"path"`
	Speed       float64      `yaml:"speed" json:"speed"`
	Loop        LoopPolicy   `yaml:"loop,omitempty" json:"loop,omitempty"`
	PhaseOffset float64      `yaml:"phase_offset,omitempty" json:"phase_offset,omitempty"`
	Status      string       `yaml:"status,omitempty" json:"status,omitempty"`
	Wobble      float64      `yaml:"wobble,omitempty" json:"wobble,omitempty"`
}

// Validate reports whether def could be added to a registry.
func (def Definition) Validate() error {
	_, err := newEntity(def)
	return err
}

// entity is the runtime state of one tracked object. elapsed is the only
// field mutated after construction.
type entity struct {
	id      string
	kind    Kind
	path    []Waypoint
	speed   float64
	loop    LoopPolicy
	phase   float64
	status  string
	wobble  float64
	elapsed time.Duration
}

func newEntity(def Definition) (*entity, error) {
	if len(def.Path) == 0 {
		return nil, fmt.Errorf("%w: %s has an empty path", ErrInvalidEntity, def.ID)
	}
	if math.IsNaN(def.Speed) || math.IsInf(def.Speed, 0) || def.Speed < 0 {
		return nil, fmt.Errorf("%w: %s has speed %v", ErrInvalidEntity, def.ID, def.Speed)
	}
	if math.IsNaN(def.PhaseOffset) || def.PhaseOffset < 0 || def.PhaseOffset >= 1 {
		return nil, fmt.Errorf("%w: %s has phase offset %v outside [0,1)", ErrInvalidEntity, def.ID, def.PhaseOffset)
	}
	if def.Wobble < 0 {
		return nil, fmt.Errorf("%w: %s has negative wobble", ErrInvalidEntity, def.ID)
	}
	switch def.Kind {
	case KindFlight, KindTrain, KindStorm:
	default:
		return nil, fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidEntity, def.ID, def.Kind)
	}
	loop := def.Loop
	if loop == "" {
		loop = DefaultLoopPolicy(def.Kind)
	}
	switch loop {
	case LoopWrap, LoopHold, LoopRetire:
	default:
		return nil, fmt.Errorf("%w: %s has unknown loop policy %q", ErrInvalidEntity, def.ID, loop)
	}

	path := make([]Waypoint, len(def.Path))
	for i, p := range def.Path {
		if p[0] < -90 || p[0] > 90 || p[1] < -180 || p[1] > 180 {
			return nil, fmt.Errorf("%w: %s waypoint %d (%v,%v) out of range", ErrInvalidEntity, def.ID, i, p[0], p[1])
		}
		path[i] = Waypoint{Lat: p[0], Lon: p[1]}
	}
	return &entity{
		id:     def.ID,
		kind:   def.Kind,
		path:   path,
		speed:  def.Speed,
		loop:   loop,
		phase:  def.PhaseOffset,
		status: def.Status,
		wobble: def.Wobble,
	}, nil
}

// progress maps cumulative elapsed time onto the path cursor. Wrapping
// entities stay in [0,1); clamped entities stop at exactly 1.
func (e *entity) progress() float64 {
	raw := e.phase + e.speed*e.elapsed.Seconds()
	if e.loop == LoopWrap {
		p := math.Mod(raw, 1)
		if p < 0 {
			p++
		}
		return p
	}
	if raw >= 1 {
		return 1
	}
	return raw
}

// finished reports whether a one-shot entity has reached its terminal value.
func (e *entity) finished() bool {
	return e.loop != LoopWrap && e.progress() >= 1
}

// interpolate resolves a progress value to a point on the path.
func (e *entity) interpolate(progress float64) Waypoint {
	n := len(e.path)
	if n == 1 {
		return e.path[0]
	}
	scaled := progress * float64(n-1)
	i := int(math.Floor(scaled))
	if i >= n-1 {
		return e.path[n-1]
	}
	if i < 0 {
		return e.path[0]
	}
	return lerp(e.path[i], e.path[i+1], scaled-float64(i))
}
