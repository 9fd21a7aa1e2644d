// Package status tracks the daemon runtime state.
package status

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// State represents a daemon runtime state.
type State string

const (
	Booting  State = "BOOTING"
	Ready    State = "READY"
	Degraded State = "DEGRADED"
	Stopping State = "STOPPING"
)

// HealthService is the gRPC health service name the control socket reports
// the state under. The empty name reports the same status.
const HealthService = "groupweaver.Daemon"

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:  {Ready, Degraded, Stopping},
	Ready:    {Degraded, Stopping},
	Degraded: {Ready, Stopping},
	Stopping: {},
}

// StatusChange describes one transition.
type StatusChange struct {
	From State
	To   State
	At   time.Time
}

// Observer is called after every transition, outside the machine lock.
type Observer func(StatusChange)

// Machine tracks and enforces daemon runtime state transitions.
type Machine struct {
	mu        sync.RWMutex
	current   State
	observers []Observer
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine() *Machine {
	return &Machine{current: Booting}
}

// Observe registers fn for future transitions.
func (m *Machine) Observe(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	change := StatusChange{From: m.current, To: to, At: time.Now()}
	m.current = to
	observers := slices.Clone(m.observers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(change)
	}
	return nil
}

// ReportStorage moves between Ready and Degraded according to the outcome of a
// storage operation. It is a no-op while booting or stopping and when the state
// already matches.
func (m *Machine) ReportStorage(err error) {
	switch cur := m.Current(); {
	case err != nil && cur == Ready:
		_ = m.Transition(Degraded)
	case err == nil && cur == Degraded:
		_ = m.Transition(Ready)
	}
}
