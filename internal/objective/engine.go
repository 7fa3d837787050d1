package objective

import (
	"fmt"
	"slices"

	"signalops-sim/internal/eventbus"
)

// Engine holds the runtime state of one mission's objectives. It is not safe
// for concurrent use; callers serialise Submit.
type Engine struct {
	objectives []Objective
	index      map[string]int
	dependents [][]int
	states     []State
	labels     map[string]string
}

// New validates objs and returns an engine with initial states applied.
// labels optionally overrides checklist text per objective id.
func New(objs []Objective, labels map[string]string) (*Engine, error) {
	index, err := validate(objs)
	if err != nil {
		return nil, err
	}
	for id := range labels {
		if _, ok := index[id]; !ok {
			return nil, fmt.Errorf("%w: checklist label for unknown objective %s", ErrInvalidDefinition, id)
		}
	}
	e := &Engine{
		objectives: slices.Clone(objs),
		index:      index,
		dependents: make([][]int, len(objs)),
		states:     make([]State, len(objs)),
		labels:     labels,
	}
	for i, o := range objs {
		if o.Dependency == "" {
			e.states[i] = StateActive
			continue
		}
		e.states[i] = StateLocked
		d := index[o.Dependency]
		e.dependents[d] = append(e.dependents[d], i)
	}
	return e, nil
}

// Submit processes ev in cascade steps. Each step completes, in declaration
// order, every ACTIVE objective whose trigger matches ev; objectives unlocked
// by a step are checked against the same event in the next step. Submit stops
// at the first step that completes nothing. Events matching nothing return nil.
func (e *Engine) Submit(ev eventbus.Event) []Effect {
	var effects []Effect
	candidates := make([]int, len(e.objectives))
	for i := range candidates {
		candidates[i] = i
	}
	for len(candidates) > 0 {
		matched := slices.DeleteFunc(candidates, func(i int) bool { return !e.matches(i, ev) })
		var activated []int
		for _, i := range matched {
			o := e.objectives[i]
			e.states[i] = StateComplete
			unlocked := e.activateDependents(i)
			effects = append(effects, Effect{
				ObjectiveID: o.ID,
				State:       StateComplete,
				Message:     o.OnComplete.Message,
				Unlocks:     slices.Clone(o.OnComplete.Unlocks),
				Activated:   e.ids(unlocked),
			})
			activated = append(activated, unlocked...)
		}
		slices.Sort(activated)
		candidates = activated
	}
	return effects
}

func (e *Engine) matches(i int, ev eventbus.Event) bool {
	t := e.objectives[i].Trigger
	return e.states[i] == StateActive && t.EventKind == ev.Kind && t.TargetID == ev.TargetID
}

// activateDependents moves LOCKED dependents of i to ACTIVE and returns their
// indexes in declaration order.
func (e *Engine) activateDependents(i int) []int {
	var out []int
	for _, d := range e.dependents[i] {
		if e.states[d] == StateLocked {
			e.states[d] = StateActive
			out = append(out, d)
		}
	}
	return out
}

func (e *Engine) ids(idx []int) []string {
	if len(idx) == 0 {
		return nil
	}
	ids := make([]string, len(idx))
	for n, i := range idx {
		ids[n] = e.objectives[i].ID
	}
	return ids
}

// State returns the current state of id.
func (e *Engine) State(id string) (State, error) {
	i, ok := e.index[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.states[i], nil
}

// Objective returns the template for id.
func (e *Engine) Objective(id string) (Objective, error) {
	i, ok := e.index[id]
	if !ok {
		return Objective{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.objectives[i], nil
}

// Checklist projects objectives to checklist lines in declaration order.
func (e *Engine) Checklist() []ChecklistItem {
	items := make([]ChecklistItem, len(e.objectives))
	for i, o := range e.objectives {
		desc := o.Description
		if label, ok := e.labels[o.ID]; ok {
			desc = label
		}
		items[i] = ChecklistItem{ID: o.ID, Description: desc, Completed: e.states[i] == StateComplete}
	}
	return items
}

// States returns a copy of every objective's state keyed by id.
func (e *Engine) States() map[string]State {
	out := make(map[string]State, len(e.objectives))
	for i, o := range e.objectives {
		out[o.ID] = e.states[i]
	}
	return out
}

// Completed returns how many objectives are COMPLETE.
func (e *Engine) Completed() int {
	n := 0
	for _, s := range e.states {
		if s == StateComplete {
			n++
		}
	}
	return n
}

// Len returns the number of objectives.
func (e *Engine) Len() int { return len(e.objectives) }

// IsMissionComplete reports whether every objective is COMPLETE. A mission
// with no objectives is complete.
func (e *Engine) IsMissionComplete() bool {
	return e.Completed() == len(e.objectives)
}
