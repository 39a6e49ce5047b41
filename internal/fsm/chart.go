package fsm

import (
	"fmt"

	"gate-service/internal/types"
)

// Machine holds everything the supervisory FSM owns between ticks.
// Tick counts sample periods elapsed since the last reset, not the
// sampler's absolute counter.
type Machine struct {
	State   types.GateState
	Fault   types.FaultCode
	Tick    uint32
	Command types.MotorCommand
	Lamp    types.LampCode
}

// Advance adds n elapsed sample periods to the motion clock.
func (m Machine) Advance(n uint32) Machine {
	m.Tick += n
	return m
}

// Context is handed to guards and actions while a step is evaluated.
type Context struct {
	Machine *Machine
	IO      types.IOState
	From    types.GateState
}

type (
	Guard  func(c *Context) bool
	Action func(c *Context)
)

type stateDef struct {
	onEnter []Action
}

type transition struct {
	to     types.GateState
	guard  Guard
	action Action
}

type StateOption func(*stateDef)

// WithOnEnter runs fn whenever the state is entered from another state.
func WithOnEnter(fn Action) StateOption {
	return func(s *stateDef) { s.onEnter = append(s.onEnter, fn) }
}

type TransitionOption func(*transition)

func WithGuard(g Guard) TransitionOption {
	return func(t *transition) { t.guard = g }
}

func WithAction(a Action) TransitionOption {
	return func(t *transition) { t.action = a }
}

// Definition collects states and transitions before Build. Transitions
// out of a state are tried in the order they were declared and the first
// one whose guard passes is taken.
type Definition struct {
	states      map[types.GateState]*stateDef
	transitions map[types.GateState][]transition
	initial     types.GateState
	hasInitial  bool
	err         error
}

func NewDefinition() *Definition {
	return &Definition{
		states:      make(map[types.GateState]*stateDef),
		transitions: make(map[types.GateState][]transition),
	}
}

func (d *Definition) State(s types.GateState, opts ...StateOption) *Definition {
	if _, exists := d.states[s]; exists && d.err == nil {
		d.err = fmt.Errorf("state %s declared twice", s)
	}
	def := &stateDef{}
	for _, opt := range opts {
		opt(def)
	}
	d.states[s] = def
	return d
}

// Transition declares from -> to. A transition with to == from is internal:
// its action runs but entry actions do not.
func (d *Definition) Transition(from, to types.GateState, opts ...TransitionOption) *Definition {
	t := transition{to: to}
	for _, opt := range opts {
		opt(&t)
	}
	d.transitions[from] = append(d.transitions[from], t)
	return d
}

func (d *Definition) Initial(s types.GateState) *Definition {
	d.initial = s
	d.hasInitial = true
	return d
}

// Build validates the definition and freezes it into a Chart.
func (d *Definition) Build() (*Chart, error) {
	if d.err != nil {
		return nil, d.err
	}
	if !d.hasInitial {
		return nil, fmt.Errorf("no initial state")
	}
	if _, ok := d.states[d.initial]; !ok {
		return nil, fmt.Errorf("initial state %s not declared", d.initial)
	}
	for from, ts := range d.transitions {
		if _, ok := d.states[from]; !ok {
			return nil, fmt.Errorf("transition from undeclared state %s", from)
		}
		for _, t := range ts {
			if _, ok := d.states[t.to]; !ok {
				return nil, fmt.Errorf("transition %s -> undeclared state %s", from, t.to)
			}
		}
	}

	c := &Chart{
		states:      make(map[types.GateState]*stateDef, len(d.states)),
		transitions: make(map[types.GateState][]transition, len(d.transitions)),
		initial:     d.initial,
	}
	for s, def := range d.states {
		c.states[s] = def
	}
	for s, ts := range d.transitions {
		c.transitions[s] = append([]transition(nil), ts...)
	}
	return c, nil
}

// Chart is an immutable, built FSM. Its methods are pure: they take a
// Machine by value and return the next one.
type Chart struct {
	states      map[types.GateState]*stateDef
	transitions map[types.GateState][]transition
	initial     types.GateState
}

// Start returns the initial machine with the initial state's entry
// actions applied.
func (c *Chart) Start() Machine {
	m := Machine{State: c.initial}
	c.enter(&Context{Machine: &m, From: c.initial}, c.initial)
	return m
}

// Step evaluates one tick. It reports whether the state changed.
func (c *Chart) Step(m Machine, io types.IOState) (Machine, bool) {
	from := m.State
	ctx := &Context{Machine: &m, IO: io, From: from}

	for _, t := range c.transitions[from] {
		if t.guard != nil && !t.guard(ctx) {
			continue
		}
		if t.action != nil {
			t.action(ctx)
		}
		if t.to == from {
			return m, false
		}
		m.State = t.to
		c.enter(ctx, t.to)
		return m, true
	}
	return m, false
}

// Restart forces the machine back into the initial state as if freshly
// started, regardless of where it is now.
func (c *Chart) Restart(m Machine) Machine {
	from := m.State
	m.State = c.initial
	c.enter(&Context{Machine: &m, From: from}, c.initial)
	return m
}

func (c *Chart) enter(ctx *Context, s types.GateState) {
	def, ok := c.states[s]
	if !ok {
		return
	}
	for _, fn := range def.onEnter {
		fn(ctx)
	}
}
