package main

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"strings"

	"github.com/pkg/errors"
)

type Complex = complex128

const defaultMaxQubits = 24

// StateVector is the carried state of the statevector backend: the dense
// amplitudes of all live qubits (qubit k is bit k of the basis index) and
// the classical bit register.
type StateVector struct {
	Amplitudes []Complex
	NumQubits  int
	Classical  []bool
}

func NewStateVector(numQubits int) *StateVector {
	n := 1 << numQubits
	amps := make([]Complex, n)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

func (s *StateVector) Clone() *StateVector {
	amps := make([]Complex, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	bits := make([]bool, len(s.Classical))
	copy(bits, s.Classical)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits, Classical: bits}
}

func (s *StateVector) Qubits() int { return s.NumQubits }

func (s *StateVector) Bits() int { return len(s.Classical) }

// grow appends qubits in |0> and bits holding 0 above the existing ones.
func (s *StateVector) grow(numQubits, numBits int) {
	if numQubits > s.NumQubits {
		amps := make([]Complex, 1<<numQubits)
		copy(amps, s.Amplitudes)
		s.Amplitudes = amps
		s.NumQubits = numQubits
	}
	for len(s.Classical) < numBits {
		s.Classical = append(s.Classical, false)
	}
}

// unitary is a single-qubit gate matrix.
type unitary [2][2]Complex

func phase(theta float64) Complex {
	return cmplx.Exp(complex(0, theta))
}

func gateMatrix(op Op, params []float64) (unitary, error) {
	h := complex(1.0/math.Sqrt2, 0)
	switch op {
	case OpX:
		return unitary{{0, 1}, {1, 0}}, nil
	case OpY:
		return unitary{{0, -1i}, {1i, 0}}, nil
	case OpZ:
		return unitary{{1, 0}, {0, -1}}, nil
	case OpH:
		return unitary{{h, h}, {h, -h}}, nil
	case OpS:
		return unitary{{1, 0}, {0, 1i}}, nil
	case OpSdg:
		return unitary{{1, 0}, {0, -1i}}, nil
	case OpT:
		return unitary{{1, 0}, {0, phase(math.Pi / 4)}}, nil
	case OpTdg:
		return unitary{{1, 0}, {0, phase(-math.Pi / 4)}}, nil
	case OpRZ:
		if len(params) != 1 {
			return unitary{}, errors.Errorf("rz takes one parameter, got %d", len(params))
		}
		return unitary{{phase(-params[0] / 2), 0}, {0, phase(params[0] / 2)}}, nil
	case OpDiag:
		if len(params) != 2 {
			return unitary{}, errors.Errorf("diag takes two parameters, got %d", len(params))
		}
		return unitary{{phase(params[0]), 0}, {0, phase(params[1])}}, nil
	}
	return unitary{}, errors.Errorf("%s is not a gate", op)
}

// apply applies u to target when every control qubit is |1>.
func (s *StateVector) apply(u unitary, target int, controls []int) {
	bit := 1 << target
	mask := 0
	for _, c := range controls {
		mask |= 1 << c
	}
	for i := range s.Amplitudes {
		if i&bit != 0 || i&mask != mask {
			continue
		}
		j := i | bit
		a0, a1 := s.Amplitudes[i], s.Amplitudes[j]
		s.Amplitudes[i] = u[0][0]*a0 + u[0][1]*a1
		s.Amplitudes[j] = u[1][0]*a0 + u[1][1]*a1
	}
}

// probabilityOne returns the probability of reading 1 from qubit q.
func (s *StateVector) probabilityOne(q int) float64 {
	bit := 1 << q
	prob := 0.0
	for i, amp := range s.Amplitudes {
		if i&bit != 0 {
			prob += real(amp * cmplx.Conj(amp))
		}
	}
	return prob
}

// measure samples qubit q using r in [0, 1), collapses the state onto the
// outcome and renormalizes it.
func (s *StateVector) measure(q int, r float64) bool {
	prob1 := s.probabilityOne(q)
	outcome := r < prob1

	prob := prob1
	if !outcome {
		prob = 1 - prob1
	}
	norm := complex(math.Sqrt(prob), 0)
	if prob <= 0 {
		norm = 1
	}

	bit := 1 << q
	for i := range s.Amplitudes {
		if (i&bit != 0) == outcome {
			s.Amplitudes[i] /= norm
		} else {
			s.Amplitudes[i] = 0
		}
	}
	return outcome
}

// compact traces out the collapsed qubits in measured and drops the bits
// in freed. Survivors keep their relative order.
func (s *StateVector) compact(measured map[int]bool, freed map[int]bool) {
	if len(measured) > 0 {
		live := make([]int, 0, s.NumQubits-len(measured))
		for q := 0; q < s.NumQubits; q++ {
			if _, ok := measured[q]; !ok {
				live = append(live, q)
			}
		}

		amps := make([]Complex, 1<<len(live))
	outer:
		for i, amp := range s.Amplitudes {
			for q, outcome := range measured {
				if (i>>q&1 == 1) != outcome {
					continue outer
				}
			}
			ni := 0
			for k, q := range live {
				ni |= (i >> q & 1) << k
			}
			amps[ni] = amp
		}
		s.Amplitudes = amps
		s.NumQubits = len(live)
	}

	if len(freed) > 0 {
		bits := make([]bool, 0, len(s.Classical)-len(freed))
		for b, v := range s.Classical {
			if !freed[b] {
				bits = append(bits, v)
			}
		}
		s.Classical = bits
	}
}

// BasisState is one basis state with non-negligible probability.
type BasisState struct {
	Index     int
	Amplitude Complex
	Prob      float64
}

// NonZeroStates returns the basis states with non-negligible probability
// in ascending index order.
func (s *StateVector) NonZeroStates() []BasisState {
	states := make([]BasisState, 0)
	for i, amp := range s.Amplitudes {
		prob := real(amp * cmplx.Conj(amp))
		if prob > 1e-10 {
			states = append(states, BasisState{Index: i, Amplitude: amp, Prob: prob})
		}
	}
	return states
}

// Describe renders the classical register and up to limit non-zero
// amplitudes. Basis labels put qubit 0 rightmost.
func (s *StateVector) Describe(limit int) string {
	var sb strings.Builder

	sb.WriteString("Bits: [")
	for i, v := range s.Classical {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%d", bitDigit(v))
	}
	sb.WriteString("]\n")

	if s.NumQubits == 0 {
		sb.WriteString("Statevector: (no qubits)")
		return sb.String()
	}

	states := s.NonZeroStates()
	fmt.Fprintf(&sb, "Statevector (%d qubits):", s.NumQubits)
	for n, st := range states {
		if limit > 0 && n == limit {
			fmt.Fprintf(&sb, "\n  ... %d more", len(states)-limit)
			break
		}
		fmt.Fprintf(&sb, "\n  |%0*b>: %.4f%+.4fi", s.NumQubits, st.Index, real(st.Amplitude), imag(st.Amplitude))
	}
	return sb.String()
}

// StateVectorBackend simulates circuits on a dense state vector.
type StateVectorBackend struct {
	rand      *rand.Rand
	maxQubits int
}

func NewStateVectorBackend(opts BackendOptions) *StateVectorBackend {
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	maxQubits := opts.MaxQubits
	if maxQubits <= 0 {
		maxQubits = defaultMaxQubits
	}
	return &StateVectorBackend{
		rand:      rand.New(rand.NewPCG(seed, seed>>1|1)),
		maxQubits: maxQubits,
	}
}

func (b *StateVectorBackend) Name() string { return "statevector" }

func (b *StateVectorBackend) Empty() State { return NewStateVector(0) }

func (b *StateVectorBackend) Execute(circuit *Circuit, state State) (State, Outcomes, error) {
	if state == nil {
		state = b.Empty()
	}
	sv, ok := state.(*StateVector)
	if !ok {
		return nil, nil, errors.Errorf("statevector backend cannot use carried state of type %T", state)
	}
	if sv.NumQubits != circuit.PrevQubits || len(sv.Classical) != circuit.PrevBits {
		return nil, nil, errors.Errorf("carried state holds %d qubits and %d bits, circuit expects %d and %d",
			sv.NumQubits, len(sv.Classical), circuit.PrevQubits, circuit.PrevBits)
	}
	if circuit.Empty() {
		return state, Outcomes{}, nil
	}
	if circuit.NumQubits > b.maxQubits {
		return nil, nil, errors.Errorf("circuit needs %d qubits, limit is %d", circuit.NumQubits, b.maxQubits)
	}

	next := sv.Clone()
	next.grow(circuit.NumQubits, circuit.NumBits)

	run := &execution{
		state:    next,
		rand:     b.rand,
		outcomes: make(Outcomes),
		measured: make(map[int]bool),
		freed:    make(map[int]bool),
	}
	for n, st := range circuit.Statements {
		if err := run.step(st); err != nil {
			return nil, nil, errors.Wrapf(err, "statement %d (%s)", n, st.Op)
		}
	}

	next.compact(run.measured, run.freed)
	return next, run.outcomes, nil
}

// execution tracks one batch while its statements run.
type execution struct {
	state    *StateVector
	rand     *rand.Rand
	outcomes Outcomes
	measured map[int]bool
	freed    map[int]bool
}

func (e *execution) qubit(q int) error {
	if q < 0 || q >= e.state.NumQubits {
		return errors.Errorf("qubit %d out of range", q)
	}
	if _, ok := e.measured[q]; ok {
		return errors.Errorf("qubit %d used after measurement", q)
	}
	return nil
}

func (e *execution) bit(b int) error {
	if b < 0 || b >= len(e.state.Classical) {
		return errors.Errorf("bit %d out of range", b)
	}
	if e.freed[b] {
		return errors.Errorf("bit %d used after release", b)
	}
	return nil
}

func (e *execution) step(st Statement) error {
	for _, b := range st.Conditions {
		if err := e.bit(b); err != nil {
			return err
		}
	}
	for _, b := range st.Conditions {
		if !e.state.Classical[b] {
			return nil
		}
	}

	switch st.Op {
	case OpSetBit:
		if err := e.bit(st.Bit); err != nil {
			return err
		}
		e.state.Classical[st.Bit] = st.Value
		return nil

	case OpFreeBit:
		if err := e.bit(st.Bit); err != nil {
			return err
		}
		e.freed[st.Bit] = true
		return nil

	case OpMeasure:
		if err := e.qubit(st.Target); err != nil {
			return err
		}
		if err := e.bit(st.Bit); err != nil {
			return err
		}
		outcome := e.state.measure(st.Target, e.rand.Float64())
		e.state.Classical[st.Bit] = outcome
		e.outcomes[st.Bit] = outcome
		e.measured[st.Target] = outcome
		return nil
	}

	if err := e.qubit(st.Target); err != nil {
		return err
	}
	for _, c := range st.Controls {
		if err := e.qubit(c); err != nil {
			return err
		}
		if c == st.Target {
			return errors.Errorf("qubit %d controls itself", c)
		}
	}
	u, err := gateMatrix(st.Op, st.Params)
	if err != nil {
		return err
	}
	e.state.apply(u, st.Target, st.Controls)
	return nil
}
