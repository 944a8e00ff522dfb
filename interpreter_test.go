package main

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestInterpreter(t *testing.T, backend Backend, eager bool) *Interpreter {
	t.Helper()
	if backend == nil {
		backend = newTestBackend(1)
	}
	return NewInterpreter(backend, InterpreterOptions{Eager: eager, DumpLimit: 16}, zaptest.NewLogger(t))
}

// exec parses and dispatches each line, failing the test on any error, and
// returns the result of the last one.
func exec(t *testing.T, in *Interpreter, lines ...string) Result {
	t.Helper()
	var res Result
	for _, line := range lines {
		cmd, err := ParseCommand(line)
		require.NoError(t, err, line)
		res, err = in.Dispatch(cmd)
		require.NoError(t, err, line)
	}
	return res
}

// execUsageError dispatches line and returns the usage error it produced.
func execUsageError(t *testing.T, in *Interpreter, line string) string {
	t.Helper()
	cmd, err := ParseCommand(line)
	require.NoError(t, err, line)
	_, err = in.Dispatch(cmd)

	var usage *UsageError
	require.ErrorAs(t, err, &usage, line)
	return usage.Message
}

func TestInterpreterReadRoundTrip(t *testing.T) {
	in := newTestInterpreter(t, nil, false)

	assert.Equal(t, OK{}, exec(t, in, "Q 0 1"))
	assert.Equal(t, Reply{Message: "1"}, exec(t, in, "R 0"))
	assert.Equal(t, 0, in.Context().Len())

	assert.Equal(t, Reply{Message: "0"}, exec(t, in, "Q 0", "R 0"))
	assert.Equal(t, Reply{Message: "1"}, exec(t, in, "B 2 1", "R 2"))
	assert.Equal(t, Reply{Message: "1"}, exec(t, in, "B 0 1", "N 0", "R 0"))
}

func TestInterpreterGuards(t *testing.T) {
	in := newTestInterpreter(t, nil, false)

	assert.Equal(t, "Register 5 does not exist", execUsageError(t, in, "X 5"))
	assert.Equal(t, "Register 5 does not exist", execUsageError(t, in, "R 5"))

	exec(t, in, "Q 0", "B 1", "dump")
	qubits, bits := in.Queue().Carried()
	assert.Equal(t, 1, qubits)
	assert.Equal(t, 1, bits)

	assert.Equal(t, "Register 0 already exists", execUsageError(t, in, "Q 0"))
	assert.Equal(t, "Register 1 already exists", execUsageError(t, in, "B 1"))

	// rejected allocations leave the carry counters alone
	qubits, bits = in.Queue().Carried()
	assert.Equal(t, 1, qubits)
	assert.Equal(t, 1, bits)
	assert.Equal(t, 0, in.Queue().Len())
	assert.Equal(t, "Register 1 must be of type Qubit", execUsageError(t, in, "X 1"))
	assert.Equal(t, "Register 1 must be of type Qubit", execUsageError(t, in, "M 1"))
	assert.Equal(t, "Register 0 must be of type Bit", execUsageError(t, in, "N 0"))
	assert.Equal(t, "Register 0 used more than once", execUsageError(t, in, "CNOT 0 0"))
	assert.Equal(t, "Register 0 used more than once", execUsageError(t, in, "H 0 0"))

	exec(t, in, "Q 2")
	assert.Equal(t, "Register 2 must be of type Bit", execUsageError(t, in, "CNOT 0 2 2"))
	assert.Equal(t, "Register 2 must be of type Bit", execUsageError(t, in, "CZ 0 2 1 2"))

	// none of the failures above queued anything
	assert.Equal(t, 1, in.Queue().Len())
	assert.Equal(t, 3, in.Context().Len())
}

func TestInterpreterQueuedMeasurementRetypes(t *testing.T) {
	in := newTestInterpreter(t, nil, false)

	exec(t, in, "Q 0 1", "M 0")
	assert.Equal(t, 2, in.Queue().Len())
	assert.Equal(t, "Register 0 must be of type Qubit", execUsageError(t, in, "X 0"))
	assert.Equal(t, Reply{Message: "1"}, exec(t, in, "R 0"))
}

func TestInterpreterLazyAndEager(t *testing.T) {
	lazy := newTestInterpreter(t, nil, false)
	exec(t, lazy, "Q 0", "X 0")
	assert.Equal(t, 2, lazy.Queue().Len())
	qubits, _ := lazy.Queue().Carried()
	assert.Equal(t, 0, qubits)

	eager := newTestInterpreter(t, nil, true)
	exec(t, eager, "Q 0", "X 0")
	assert.Equal(t, 0, eager.Queue().Len())
	qubits, _ = eager.Queue().Carried()
	assert.Equal(t, 1, qubits)

	assert.Equal(t, Reply{Message: "1"}, exec(t, lazy, "R 0"))
	assert.Equal(t, Reply{Message: "1"}, exec(t, eager, "R 0"))
}

func TestInterpreterCarriesAcrossBatches(t *testing.T) {
	in := newTestInterpreter(t, nil, false)

	exec(t, in, "Q 0 1", "Q 5", "dump")
	qubits, bits := in.Queue().Carried()
	assert.Equal(t, 2, qubits)
	assert.Equal(t, 0, bits)

	// measuring 0 leaves 5 as the only live qubit, renumbered to index 0
	exec(t, in, "M 0", "dump")
	qubits, bits = in.Queue().Carried()
	assert.Equal(t, 1, qubits)
	assert.Equal(t, 1, bits)
	assert.Equal(t, "\n0: Bit(value=1)\n5: Qubit(index=0)", in.Context().String())

	exec(t, in, "Q 1", "CNOT 1 5 0")
	assert.Equal(t, Reply{Message: "0"}, exec(t, in, "R 1"))
	assert.Equal(t, Reply{Message: "0"}, exec(t, in, "R 5"))
	assert.Equal(t, Reply{Message: "1"}, exec(t, in, "R 0"))

	qubits, bits = in.Queue().Carried()
	assert.Equal(t, 0, qubits)
	assert.Equal(t, 0, bits)
}

func TestInterpreterBellPair(t *testing.T) {
	in := newTestInterpreter(t, nil, false)
	for range 16 {
		exec(t, in, "Q 0", "Q 1", "H 0", "CNOT 1 0")
		first := exec(t, in, "R 0")
		second := exec(t, in, "R 1")
		assert.Equal(t, first, second)
	}
}

func TestInterpreterClassicalControl(t *testing.T) {
	in := newTestInterpreter(t, nil, false)

	assert.Equal(t, Reply{Message: "1"}, exec(t, in, "Q 0", "B 1 1", "X 0 1", "R 0"))
	assert.Equal(t, Reply{Message: "0"}, exec(t, in, "Q 0", "B 2", "X 0 2", "R 0"))
	assert.Equal(t, Reply{Message: "1"}, exec(t, in, "Q 0", "Q 3 1", "Q 4 1", "TOF 0 3 4 1", "R 0"))
}

func TestInterpreterControlCommands(t *testing.T) {
	in := newTestInterpreter(t, nil, false)

	assert.Equal(t, Null{}, exec(t, in, "# nothing"))
	assert.Equal(t, Info{Content: helpText}, exec(t, in, "help"))

	assert.Equal(t, Reply{Message: "2"}, exec(t, in, "Q 0", "Q 1", "fresh"))
	assert.Equal(t, 2, in.Queue().Len(), "fresh does not flush")

	assert.Equal(t, OK{}, exec(t, in, "D 1"))
	assert.Equal(t, Reply{Message: "1"}, exec(t, in, "fresh"))

	assert.Equal(t, OK{}, exec(t, in, "reset"))
	assert.Equal(t, 0, in.Context().Len())
	assert.Equal(t, 0, in.Queue().Len())
	qubits, bits := in.Queue().Carried()
	assert.Equal(t, 0, qubits)
	assert.Equal(t, 0, bits)
	assert.Equal(t, Reply{Message: "0"}, exec(t, in, "fresh"))

	exec(t, in, "Q 4")
	assert.Equal(t, Terminate{}, exec(t, in, "quit"))
	assert.Equal(t, 0, in.Queue().Len())
	assert.Equal(t, 0, in.Context().Len())
}

func TestInterpreterDump(t *testing.T) {
	in := newTestInterpreter(t, nil, false)

	res := exec(t, in, "Q 0 1", "B 1 1", "dump")
	assert.Equal(t, Info{Content: "\n0: Qubit(index=0)\n1: Bit(value=1)\n" +
		"Bits: [1]\nStatevector (1 qubits):\n  |1>: 1.0000+0.0000i\n\n"}, res)
	assert.Equal(t, 0, in.Queue().Len())

	in = newTestInterpreter(t, nil, false)
	assert.Equal(t, Info{Content: "\nBits: []\nStatevector: (no qubits)\n\n"}, exec(t, in, "dump"))
}

// failingBackend wraps a working backend and fails every non-empty batch.
type failingBackend struct {
	Backend
}

func (failingBackend) Execute(*Circuit, State) (State, Outcomes, error) {
	return nil, nil, errors.New("simulator exploded")
}

func TestInterpreterBackendFailureAbandonsBatch(t *testing.T) {
	in := newTestInterpreter(t, failingBackend{newTestBackend(1)}, false)

	exec(t, in, "Q 0", "H 0")
	_, err := in.Dispatch(Read{Reg: 0})
	require.Error(t, err)
	assert.ErrorContains(t, err, "simulator exploded")

	var usage *UsageError
	assert.False(t, errors.As(err, &usage))

	// the batch is gone and the session keeps working
	assert.Equal(t, 0, in.Queue().Len())
	assert.Equal(t, 0, in.Context().Len())
	assert.Equal(t, "Register 0 does not exist", execUsageError(t, in, "X 0"))
	assert.Equal(t, Reply{Message: "0"}, exec(t, in, "fresh"))
}

func TestInterpreterQubitLimit(t *testing.T) {
	in := NewInterpreter(NewStateVectorBackend(BackendOptions{Seed: 1, MaxQubits: 2}), InterpreterOptions{}, zaptest.NewLogger(t))

	exec(t, in, "Q 0", "Q 1", "dump")
	exec(t, in, "Q 2")
	_, err := in.Dispatch(Dump{})
	assert.ErrorContains(t, err, "limit is 2")

	// the two committed qubits survive the failed batch
	assert.Equal(t, 2, in.Context().Len())
	assert.Equal(t, Reply{Message: "0"}, exec(t, in, "R 1"))
}
