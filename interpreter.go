package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Result is the outcome of a successfully dispatched command. Failures are
// returned as errors instead: *ParseError, *UsageError or an internal error.
type Result interface {
	result()
}

type (
	// OK acknowledges a command; nothing is written back.
	OK struct{}
	// Null is the result of an empty line; nothing is written back.
	Null struct{}
	// Reply carries a short answer.
	Reply struct{ Message string }
	// Info carries raw text written back verbatim.
	Info struct{ Content string }
	// Terminate ends the session.
	Terminate struct{}
)

func (OK) result()        {}
func (Null) result()      {}
func (Reply) result()     {}
func (Info) result()      {}
func (Terminate) result() {}

// InterpreterOptions configure an Interpreter.
type InterpreterOptions struct {
	// Eager flushes every queued command immediately.
	Eager bool

	// DumpLimit bounds the number of amplitudes shown by dump.
	DumpLimit int
}

// Interpreter owns the registers, queue and carried backend state of one
// session. It is not safe for concurrent use.
type Interpreter struct {
	context *Context
	queue   *Queue
	backend Backend
	state   State
	options InterpreterOptions
	logger  *zap.Logger
}

// NewInterpreter creates an interpreter running on backend.
func NewInterpreter(backend Backend, options InterpreterOptions, logger *zap.Logger) *Interpreter {
	return &Interpreter{
		context: NewContext(),
		queue:   &Queue{},
		backend: backend,
		state:   backend.Empty(),
		options: options,
		logger:  logger,
	}
}

// Context exposes the typing context.
func (in *Interpreter) Context() *Context {
	return in.context
}

// Queue exposes the instruction queue.
func (in *Interpreter) Queue() *Queue {
	return in.queue
}

// Dispatch executes one command.
func (in *Interpreter) Dispatch(cmd Command) (Result, error) {
	switch c := cmd.(type) {
	case Empty:
		return Null{}, nil

	case Help:
		return Info{Content: helpText}, nil

	case Quit:
		in.drop()
		return Terminate{}, nil

	case Reset:
		in.reset()
		return OK{}, nil

	case Fresh:
		return Reply{Message: strconv.Itoa(int(in.context.Fresh()))}, nil

	case Dump:
		if _, err := in.flush(); err != nil {
			return nil, err
		}
		return Info{Content: in.dump()}, nil

	case NewQubit:
		if err := in.context.RequireAbsent(c.Reg); err != nil {
			return nil, err
		}
		return in.enqueue(c, c.Reg, KindQubit)

	case NewBit:
		if err := in.context.RequireAbsent(c.Reg); err != nil {
			return nil, err
		}
		return in.enqueue(c, c.Reg, KindBit)

	case Promote:
		if err := in.context.RequireKind(c.Reg, KindBit); err != nil {
			return nil, err
		}
		return in.enqueue(c, c.Reg, KindQubit)

	case Measure:
		if err := in.context.RequireKind(c.Reg, KindQubit); err != nil {
			return nil, err
		}
		return in.enqueue(c, c.Reg, KindBit)

	case Read:
		if _, err := in.context.RequireExists(c.Reg); err != nil {
			return nil, err
		}
		in.queue.Push(c)
		released, err := in.flush()
		if err != nil {
			return nil, err
		}
		value, ok := released[c.Reg]
		if !ok {
			return nil, errors.Errorf("register %d was not released", c.Reg)
		}
		return Reply{Message: strconv.Itoa(bitDigit(value))}, nil

	case Discard:
		if _, err := in.context.RequireExists(c.Reg); err != nil {
			return nil, err
		}
		in.queue.Push(c)
		if _, err := in.flush(); err != nil {
			return nil, err
		}
		return OK{}, nil

	case Gate:
		if err := in.checkGate([]Register{c.Target}, c.Controls, false); err != nil {
			return nil, err
		}
		return in.enqueue(c, c.Target, KindQubit)

	case Rot:
		if err := in.checkGate([]Register{c.Target}, c.Controls, false); err != nil {
			return nil, err
		}
		return in.enqueue(c, c.Target, KindQubit)

	case Diag:
		if err := in.checkGate([]Register{c.Target}, c.Controls, false); err != nil {
			return nil, err
		}
		return in.enqueue(c, c.Target, KindQubit)

	case Controlled:
		if err := in.checkGate([]Register{c.Target, c.Control}, c.Conditions, true); err != nil {
			return nil, err
		}
		return in.enqueue(c, c.Target, KindQubit)

	case CRot:
		if err := in.checkGate([]Register{c.Target, c.Control}, c.Conditions, true); err != nil {
			return nil, err
		}
		return in.enqueue(c, c.Target, KindQubit)

	case Toffoli:
		if err := in.checkGate([]Register{c.Target, c.Control1, c.Control2}, c.Conditions, true); err != nil {
			return nil, err
		}
		return in.enqueue(c, c.Target, KindQubit)

	default:
		panic(fmt.Sprintf("interpreter: unhandled command %T", cmd))
	}
}

// checkGate guards the operands of a gate: qubits must be qubit registers;
// controls must be bits when bitsOnly is set and may be either otherwise.
// No register may appear twice.
func (in *Interpreter) checkGate(qubits, controls []Register, bitsOnly bool) error {
	seen := make(map[Register]bool, len(qubits)+len(controls))
	for _, reg := range qubits {
		if err := in.context.RequireKind(reg, KindQubit); err != nil {
			return err
		}
		if seen[reg] {
			return usageErrorf("Register %d used more than once", reg)
		}
		seen[reg] = true
	}
	for _, reg := range controls {
		if bitsOnly {
			if err := in.context.RequireKind(reg, KindBit); err != nil {
				return err
			}
		} else if _, err := in.context.RequireExists(reg); err != nil {
			return err
		}
		if seen[reg] {
			return usageErrorf("Register %d used more than once", reg)
		}
		seen[reg] = true
	}
	return nil
}

// enqueue queues a guarded command, records the kind reg has afterwards
// and flushes in eager mode.
func (in *Interpreter) enqueue(cmd Command, reg Register, kind Kind) (Result, error) {
	in.queue.Push(cmd)
	in.context.declare(reg, kind)
	if in.options.Eager {
		if _, err := in.flush(); err != nil {
			return nil, err
		}
	}
	return OK{}, nil
}

// flush compiles the queue, executes it and merges the outcomes into the
// context. It returns the final values of registers released by R or D.
// On failure the batch is abandoned and the context and carried state are
// left as they were before it.
func (in *Interpreter) flush() (map[Register]bool, error) {
	if in.queue.Len() == 0 {
		return nil, nil
	}

	start := time.Now()
	released, err := in.execute()
	status := "success"
	if err != nil {
		status = "error"
		in.drop()
	}
	flushDuration.WithLabelValues(in.backend.Name(), status).Observe(time.Since(start).Seconds())
	return released, err
}

func (in *Interpreter) execute() (map[Register]bool, error) {
	plan, err := in.queue.Compile(in.context)
	if err != nil {
		return nil, errors.Wrap(err, "compile batch")
	}

	circuit := plan.Circuit
	if ce := in.logger.Check(zap.DebugLevel, "executing batch"); ce != nil {
		ce.Write(
			zap.Int("commands", in.queue.Len()),
			zap.Int("qubits", circuit.NumQubits),
			zap.Int("bits", circuit.NumBits),
			zap.String("qasm", circuit.ToQASM()),
		)
	}
	flushQubits.Observe(float64(circuit.NumQubits))
	flushStatements.Observe(float64(len(circuit.Statements)))

	state, outcomes, err := in.backend.Execute(circuit, in.state)
	if err != nil {
		return nil, errors.Wrap(err, "execute batch")
	}

	entries, released, qubits, bits, err := plan.Reconcile(outcomes)
	if err != nil {
		return nil, errors.Wrap(err, "reconcile batch")
	}
	if state.Qubits() != qubits || state.Bits() != bits {
		return nil, errors.Errorf("backend kept %d qubits and %d bits, expected %d and %d",
			state.Qubits(), state.Bits(), qubits, bits)
	}

	in.state = state
	in.context.commit(entries)
	in.queue.commit(qubits, bits)
	return released, nil
}

// drop abandons the queued batch.
func (in *Interpreter) drop() {
	in.queue.clear()
	in.context.rollback()
}

func (in *Interpreter) reset() {
	in.queue.reset()
	in.context.reset()
	in.state = in.backend.Empty()
}

func (in *Interpreter) dump() string {
	return in.context.String() + "\n" + in.state.Describe(in.options.DumpLimit) + "\n\n"
}
