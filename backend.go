package main

import (
	"slices"

	"github.com/pkg/errors"
)

// State is the backend-side data carried between batches. Its content is
// opaque to the interpreter; only the sizes are checked against the
// compiler's bookkeeping.
type State interface {
	Qubits() int
	Bits() int
	// Describe renders the state for dump, showing at most limit entries.
	Describe(limit int) string
}

// Outcomes maps compiled bit indices to measurement results.
type Outcomes map[int]bool

// Backend executes compiled circuits against carried state.
//
// Execute must not modify state. The returned state holds the qubits and
// bits of the circuit that are still live after it ran: measured qubits are
// traced out and freed bits dropped, with the survivors kept in ascending
// index order. An empty circuit returns state unchanged with no outcomes.
// Calls are not cancellable.
type Backend interface {
	Name() string
	Empty() State
	Execute(circuit *Circuit, state State) (State, Outcomes, error)
}

// BackendOptions configure a backend instance.
type BackendOptions struct {
	// Seed for measurement sampling; 0 picks a random seed.
	Seed uint64

	// MaxQubits bounds the size of any circuit.
	MaxQubits int
}

// BackendFactory creates a backend for one session.
type BackendFactory func(opts BackendOptions) Backend

var backends = map[string]BackendFactory{
	"statevector": func(opts BackendOptions) Backend { return NewStateVectorBackend(opts) },
}

// NewBackend creates the backend registered under name.
func NewBackend(name string, opts BackendOptions) (Backend, error) {
	factory, ok := backends[name]
	if !ok {
		return nil, errors.Errorf("unknown backend %q (available: %v)", name, BackendNames())
	}
	return factory(opts), nil
}

// BackendNames lists the registered backends in sorted order.
func BackendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
