package main

import (
	"slices"

	"github.com/pkg/errors"
)

// Queue buffers deferred commands and the carry counters describing how
// many qubits and bits the backend holds from earlier batches.
type Queue struct {
	commands   []Command
	prevQubits int
	prevBits   int
}

// Push appends cmd to the queue. Commands must have passed their guards.
func (q *Queue) Push(cmd Command) {
	q.commands = append(q.commands, cmd)
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	return len(q.commands)
}

// Carried returns the carry counters.
func (q *Queue) Carried() (qubits, bits int) {
	return q.prevQubits, q.prevBits
}

func (q *Queue) clear() {
	q.commands = q.commands[:0]
}

func (q *Queue) reset() {
	q.clear()
	q.prevQubits = 0
	q.prevBits = 0
}

// slot holds the indices pass one assigned to one queued command; -1 when
// the command allocates nothing of that kind.
type slot struct {
	qubit int
	bit   int
}

// indexMap tracks the compiled index of every register while a batch is
// walked.
type indexMap struct {
	qubits map[Register]int
	bits   map[Register]int
}

func seedIndexMap(ctx *Context) indexMap {
	m := indexMap{
		qubits: make(map[Register]int),
		bits:   make(map[Register]int),
	}
	for reg, entry := range ctx.entries {
		if entry.Kind == KindQubit {
			m.qubits[reg] = entry.Index
		} else {
			m.bits[reg] = entry.Index
		}
	}
	return m
}

func (m indexMap) qubit(reg Register) (int, error) {
	idx, ok := m.qubits[reg]
	if !ok {
		return 0, errors.Errorf("register %d has no compiled qubit", reg)
	}
	return idx, nil
}

func (m indexMap) bit(reg Register) (int, error) {
	idx, ok := m.bits[reg]
	if !ok {
		return 0, errors.Errorf("register %d has no compiled bit", reg)
	}
	return idx, nil
}

// Plan is a compiled batch together with the bookkeeping needed to merge
// its outcomes back into the typing context.
type Plan struct {
	Circuit *Circuit

	// final maps every register live after the batch to its pre-compaction
	// index.
	final indexMap
	// values holds the bit value of every bit index known at compile time:
	// carried bits and literal allocations.
	values map[int]bool
	// measured maps bit indices written by a measurement to their register.
	measured map[int]Register
	// released maps registers removed by R or D to their bit index.
	released map[Register]int
}

// Compile turns the queue into a circuit in two passes. Pass one walks the
// queue once, assigning compiled qubit indices from the carried qubit count
// and bit indices from the carried bit count. Pass two walks it again and
// emits statements against those indices.
func (q *Queue) Compile(ctx *Context) (*Plan, error) {
	slots, numQubits, numBits, err := q.size(ctx)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Circuit: &Circuit{
			NumQubits:  numQubits,
			NumBits:    numBits,
			PrevQubits: q.prevQubits,
			PrevBits:   q.prevBits,
		},
		values:   make(map[int]bool),
		measured: make(map[int]Register),
		released: make(map[Register]int),
	}
	for _, entry := range ctx.entries {
		if entry.Kind == KindBit {
			plan.values[entry.Index] = entry.Value
		}
	}

	m := seedIndexMap(ctx)
	for i, cmd := range q.commands {
		if err := plan.emit(m, cmd, slots[i]); err != nil {
			return nil, errors.Wrapf(err, "compile %s", cmd.Op())
		}
	}
	plan.final = m
	return plan, nil
}

// size is pass one.
func (q *Queue) size(ctx *Context) ([]slot, int, int, error) {
	nextQubit, nextBit := q.prevQubits, q.prevBits
	slots := make([]slot, len(q.commands))
	m := seedIndexMap(ctx)

	for i, cmd := range q.commands {
		s := slot{qubit: -1, bit: -1}
		switch c := cmd.(type) {
		case NewQubit:
			s.qubit = nextQubit
			nextQubit++
			m.qubits[c.Reg] = s.qubit
		case NewBit:
			s.bit = nextBit
			nextBit++
			m.bits[c.Reg] = s.bit
		case Promote:
			s.qubit = nextQubit
			nextQubit++
			delete(m.bits, c.Reg)
			m.qubits[c.Reg] = s.qubit
		case Measure:
			s.bit = nextBit
			nextBit++
			delete(m.qubits, c.Reg)
			m.bits[c.Reg] = s.bit
		case Read:
			s.bit = m.remove(c.Reg, &nextBit)
		case Discard:
			s.bit = m.remove(c.Reg, &nextBit)
		case Gate, Rot, Diag, Controlled, CRot, Toffoli:
		default:
			return nil, 0, 0, errors.Errorf("command %s cannot be queued", cmd.Op())
		}
		slots[i] = s
	}
	return slots, nextQubit, nextBit, nil
}

// remove drops reg during pass one, reserving a bit for its measurement
// when it is still a qubit.
func (m indexMap) remove(reg Register, nextBit *int) int {
	if _, ok := m.qubits[reg]; ok {
		delete(m.qubits, reg)
		b := *nextBit
		*nextBit++
		return b
	}
	delete(m.bits, reg)
	return -1
}

// emit is pass two for a single command.
func (p *Plan) emit(m indexMap, cmd Command, s slot) error {
	switch c := cmd.(type) {
	case NewQubit:
		m.qubits[c.Reg] = s.qubit
		if c.Value {
			p.add(Statement{Op: OpX, Target: s.qubit})
		}

	case NewBit:
		m.bits[c.Reg] = s.bit
		p.values[s.bit] = c.Value
		if c.Value {
			p.add(Statement{Op: OpSetBit, Target: -1, Bit: s.bit, Value: true})
		}

	case Promote:
		b, err := m.bit(c.Reg)
		if err != nil {
			return err
		}
		delete(m.bits, c.Reg)
		m.qubits[c.Reg] = s.qubit
		p.add(Statement{Op: OpX, Target: s.qubit, Conditions: []int{b}})
		p.add(Statement{Op: OpFreeBit, Target: -1, Bit: b})

	case Measure:
		return p.measure(m, c.Reg, s.bit)

	case Read:
		return p.release(m, c.Reg, s.bit)

	case Discard:
		return p.release(m, c.Reg, s.bit)

	case Gate:
		return p.gate(m, gateOps[c.Kind], nil, c.Target, nil, c.Controls)

	case Rot:
		return p.gate(m, OpRZ, []float64{c.Angle}, c.Target, nil, c.Controls)

	case Diag:
		return p.gate(m, OpDiag, []float64{c.A, c.B}, c.Target, nil, c.Controls)

	case Controlled:
		return p.gate(m, gateOps[c.Kind], nil, c.Target, []Register{c.Control}, c.Conditions)

	case CRot:
		return p.gate(m, OpRZ, []float64{c.Angle}, c.Target, []Register{c.Control}, c.Conditions)

	case Toffoli:
		return p.gate(m, OpX, nil, c.Target, []Register{c.Control1, c.Control2}, c.Conditions)

	default:
		return errors.Errorf("command %s cannot be queued", cmd.Op())
	}
	return nil
}

func (p *Plan) add(st Statement) {
	p.Circuit.Statements = append(p.Circuit.Statements, st)
}

func (p *Plan) measure(m indexMap, reg Register, bit int) error {
	q, err := m.qubit(reg)
	if err != nil {
		return err
	}
	delete(m.qubits, reg)
	m.bits[reg] = bit
	p.measured[bit] = reg
	p.add(Statement{Op: OpMeasure, Target: q, Bit: bit})
	return nil
}

// release measures reg if it is still a qubit, then frees its bit.
func (p *Plan) release(m indexMap, reg Register, bit int) error {
	if bit >= 0 {
		if err := p.measure(m, reg, bit); err != nil {
			return err
		}
	}
	b, err := m.bit(reg)
	if err != nil {
		return err
	}
	delete(m.bits, reg)
	p.released[reg] = b
	p.add(Statement{Op: OpFreeBit, Target: -1, Bit: b})
	return nil
}

// gate emits a gate statement. qubitControls must be qubits; controls may
// be qubits (quantum controls) or bits (classical conditions).
func (p *Plan) gate(m indexMap, op Op, params []float64, target Register, qubitControls, controls []Register) error {
	st := Statement{Op: op, Params: params}

	var err error
	if st.Target, err = m.qubit(target); err != nil {
		return err
	}
	for _, reg := range qubitControls {
		q, err := m.qubit(reg)
		if err != nil {
			return err
		}
		st.Controls = append(st.Controls, q)
	}
	for _, reg := range controls {
		if q, ok := m.qubits[reg]; ok {
			st.Controls = append(st.Controls, q)
			continue
		}
		b, err := m.bit(reg)
		if err != nil {
			return err
		}
		st.Conditions = append(st.Conditions, b)
	}

	p.add(st)
	return nil
}

// Reconcile merges the outcomes of executing the plan into a new set of
// committed entries. Surviving qubit and bit indices are renumbered densely
// in ascending order, matching the order the backend keeps them in. It
// returns the entries, the final values of released registers and the
// live qubit and bit counts.
func (p *Plan) Reconcile(outcomes Outcomes) (map[Register]Entry, map[Register]bool, int, int, error) {
	values := make(map[int]bool, len(p.values)+len(outcomes))
	for b, v := range p.values {
		values[b] = v
	}
	for b, reg := range p.measured {
		v, ok := outcomes[b]
		if !ok {
			return nil, nil, 0, 0, errors.Errorf("backend reported no outcome for bit %d (register %d)", b, reg)
		}
		values[b] = v
	}

	released := make(map[Register]bool, len(p.released))
	for reg, b := range p.released {
		released[reg] = values[b]
	}

	qubitIndex := denseIndex(p.final.qubits)
	bitIndex := denseIndex(p.final.bits)

	entries := make(map[Register]Entry, len(p.final.qubits)+len(p.final.bits))
	for reg, q := range p.final.qubits {
		entries[reg] = Entry{Kind: KindQubit, Index: qubitIndex[q]}
	}
	for reg, b := range p.final.bits {
		entries[reg] = Entry{Kind: KindBit, Index: bitIndex[b], Value: values[b]}
	}
	return entries, released, len(qubitIndex), len(bitIndex), nil
}

// denseIndex maps the compiled indices in use to 0..n-1 preserving order.
func denseIndex(live map[Register]int) map[int]int {
	indices := make([]int, 0, len(live))
	for _, idx := range live {
		indices = append(indices, idx)
	}
	slices.Sort(indices)

	dense := make(map[int]int, len(indices))
	for i, idx := range indices {
		dense[idx] = i
	}
	return dense
}

// commit installs the reconciled counters and empties the queue.
func (q *Queue) commit(qubits, bits int) {
	q.clear()
	q.prevQubits = qubits
	q.prevBits = bits
}
