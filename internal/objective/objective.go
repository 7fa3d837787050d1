// Package objective implements the mission objective state machine.
//
// Objectives form a DAG through their optional Dependency. An objective with
// no dependency starts ACTIVE, every other one starts LOCKED and becomes
// ACTIVE in the same Submit call that completes its dependency. Only ACTIVE
// objectives can be completed, and COMPLETE is terminal.
package objective

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDefinition is returned when an objective set is malformed:
	// empty or duplicate ids, missing triggers, unknown dependencies or cycles.
	ErrInvalidDefinition = errors.New("objective: invalid mission definition")
	// ErrNotFound is returned for lookups of unknown objective ids.
	ErrNotFound = errors.New("objective: not found")
)

// State of a single objective.
type State string

const (
	StateLocked   State = "LOCKED"
	StateActive   State = "ACTIVE"
	StateComplete State = "COMPLETE"
)

// Trigger is satisfied by an event with exactly this kind and target.
type Trigger struct {
	EventKind string `json:"event_kind" yaml:"event"`
	TargetID  string `json:"target_id" yaml:"target"`
}

// Payload is surfaced once when an objective completes.
type Payload struct {
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
	Unlocks []string `json:"unlocks,omitempty" yaml:"unlocks,omitempty"`
}

// Objective is read-only template data. The engine tracks state separately.
type Objective struct {
	ID          string  `json:"id" yaml:"id"`
	Description string  `json:"description" yaml:"description"`
	Trigger     Trigger `json:"trigger" yaml:"trigger"`
	Dependency  string  `json:"dependency,omitempty" yaml:"dependency,omitempty"`
	OnComplete  Payload `json:"on_complete" yaml:"on_complete,omitempty"`
}

// Effect describes one ACTIVE→COMPLETE transition caused by Submit.
// Activated lists the objectives unlocked by this completion, in declaration
// order.
type Effect struct {
	ObjectiveID string   `json:"objective_id"`
	State       State    `json:"state"`
	Message     string   `json:"message,omitempty"`
	Unlocks     []string `json:"unlocks,omitempty"`
	Activated   []string `json:"activated,omitempty"`
}

// ChecklistItem is one line of the checklist projection.
type ChecklistItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

func validate(objs []Objective) (map[string]int, error) {
	index := make(map[string]int, len(objs))
	for i, o := range objs {
		if o.ID == "" {
			return nil, fmt.Errorf("%w: objective %d has an empty id", ErrInvalidDefinition, i)
		}
		if _, dup := index[o.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate objective id %s", ErrInvalidDefinition, o.ID)
		}
		if o.Trigger.EventKind == "" || o.Trigger.TargetID == "" {
			return nil, fmt.Errorf("%w: objective %s has an incomplete trigger", ErrInvalidDefinition, o.ID)
		}
		index[o.ID] = i
	}
	for _, o := range objs {
		if o.Dependency == "" {
			continue
		}
		if _, ok := index[o.Dependency]; !ok {
			return nil, fmt.Errorf("%w: objective %s depends on unknown objective %s", ErrInvalidDefinition, o.ID, o.Dependency)
		}
	}
	if err := checkAcyclic(objs, index); err != nil {
		return nil, err
	}
	return index, nil
}

// checkAcyclic runs Kahn's algorithm over the dependency edges.
func checkAcyclic(objs []Objective, index map[string]int) error {
	inDegree := make([]int, len(objs))
	dependents := make([][]int, len(objs))
	for i, o := range objs {
		if o.Dependency == "" {
			continue
		}
		inDegree[i]++
		d := index[o.Dependency]
		dependents[d] = append(dependents[d], i)
	}

	var queue []int
	for i, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, i)
		}
	}
	visited := 0
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range dependents[curr] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if visited != len(objs) {
		var cyclic []string
		for i, deg := range inDegree {
			if deg > 0 {
				cyclic = append(cyclic, objs[i].ID)
			}
		}
		return fmt.Errorf("%w: dependency cycle through %v", ErrInvalidDefinition, cyclic)
	}
	return nil
}
