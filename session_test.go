package main

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const banner = "# quantum server, version 0.2.\n"

type scriptedConn struct {
	io.Reader
	io.Writer
}

// runScript feeds input to a fresh session and returns everything it wrote.
func runScript(t *testing.T, backend Backend, debug bool, input string) (string, *Session, error) {
	t.Helper()
	var out bytes.Buffer
	interp := newTestInterpreter(t, backend, false)
	session := NewSession(scriptedConn{strings.NewReader(input), &out}, interp, debug, zaptest.NewLogger(t))
	err := session.Run()
	return out.String(), session, err
}

func TestSessionScenario(t *testing.T) {
	out, session, err := runScript(t, nil, false, "Universal\nQ 0 1\nH 0\nH 0\nM 0\nR 0\nquit\nfresh\n")
	require.NoError(t, err)
	assert.Equal(t, banner+"Reply \"1\"\n", out)
	assert.Equal(t, phaseTerminated, session.Phase())
}

func TestSessionMeasureAnySeed(t *testing.T) {
	for seed := uint64(1); seed <= 32; seed++ {
		out, session, err := runScript(t, newTestBackend(seed), false, "Universal\nQ 0\nH 0\nM 0\nR 0\nquit\n")
		require.NoError(t, err)
		assert.Contains(t, []string{banner + "Reply \"0\"\n", banner + "Reply \"1\"\n"}, out, "seed %d", seed)
		assert.Equal(t, phaseTerminated, session.Phase())
	}
}

func TestSessionReplyIsNotEscaped(t *testing.T) {
	var out bytes.Buffer
	session := NewSession(scriptedConn{strings.NewReader(""), &out}, newTestInterpreter(t, nil, false), false, zaptest.NewLogger(t))

	done, err := session.respond(Reply{Message: `a"b\c`})
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "Reply \"a\"b\\c\"\n", out.String())
}

func TestSessionLongLine(t *testing.T) {
	long := strings.Repeat("X", maxLineLength+1)

	out, _, err := runScript(t, nil, false, "Universal\n"+long+"\nfresh\n"+long)
	require.NoError(t, err)
	assert.Equal(t, banner+
		"! Parse error: Line longer than 4096 characters. Try help.\n"+
		"Reply \"0\"\n"+
		"! Parse error: Line longer than 4096 characters. Try help.\n", out)

	out, session, err := runScript(t, nil, false, long+"\nUniversal\nfresh\n")
	require.NoError(t, err)
	assert.Equal(t, banner+"Invalid simulation method\nReply \"0\"\n", out)
	assert.Equal(t, phaseRunning, session.Phase())

	// exactly at the limit is still a command
	out, _, err = runScript(t, nil, false, "Universal\n# "+strings.Repeat("x", maxLineLength-2)+"\r\nfresh\n")
	require.NoError(t, err)
	assert.Equal(t, banner+"Reply \"0\"\n", out)
}

func TestSessionNegotiation(t *testing.T) {
	out, session, err := runScript(t, nil, false, "Classic\nuniversal\nUniversal\nfresh")
	require.NoError(t, err)
	assert.Equal(t, banner+
		"Invalid simulation method\n"+
		"Invalid simulation method\n"+
		"Reply \"0\"\n", out)
	assert.Equal(t, phaseRunning, session.Phase())

	out, session, err = runScript(t, nil, false, "")
	require.NoError(t, err)
	assert.Equal(t, banner, out)
	assert.Equal(t, phaseInit, session.Phase())
}

func TestSessionErrors(t *testing.T) {
	out, _, err := runScript(t, nil, false, strings.Join([]string{
		"Universal",
		"Q 0 2",
		"FOO",
		"X 5",
		"Q 1",
		"Q 1",
		"# comment",
		"",
		"fresh",
	}, "\n"))
	require.NoError(t, err)
	assert.Equal(t, banner+
		"! Parse error: Command Q requires at most two arguments. Try help.\n"+
		"! Parse error: Unrecognized operation. Try help.\n"+
		"Usage error \"! Register 5 does not exist\"\n"+
		"Usage error \"! Register 1 already exists\"\n"+
		"Reply \"0\"\n", out)
}

func TestSessionInfo(t *testing.T) {
	out, _, err := runScript(t, nil, false, "Universal\nhelp\nB 0 1\ndump\n")
	require.NoError(t, err)
	assert.Equal(t, banner+helpText+"\n0: Bit(value=1)\nBits: [1]\nStatevector: (no qubits)\n\n", out)
}

func TestSessionInternalError(t *testing.T) {
	backend := failingBackend{newTestBackend(1)}

	out, session, err := runScript(t, backend, false, "Universal\nQ 0\nR 0\nfresh\n")
	require.NoError(t, err)
	assert.Equal(t, banner+
		"Internal error: execute batch: simulator exploded\n"+
		"Reply \"0\"\n", out)
	assert.Equal(t, phaseRunning, session.Phase())

	// debug mode ends the session instead
	out, _, err = runScript(t, backend, true, "Universal\nQ 0\nR 0\nfresh\n")
	assert.ErrorContains(t, err, "internal error: execute batch: simulator exploded")
	assert.Equal(t, banner, out)
}

func TestSessionOverPipe(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	interp := newTestInterpreter(t, nil, false)
	session := NewSession(server, interp, false, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() {
		done <- session.Run()
		server.Close()
	}()

	reader := bufio.NewReader(client)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, banner, line)

	for _, cmd := range []string{"Universal", "Q 0", "Q 1 1", "CNOT 0 1", "R 0"} {
		_, err := io.WriteString(client, cmd+"\n")
		require.NoError(t, err)
	}
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Reply \"1\"\n", line)

	_, err = io.WriteString(client, "quit\n")
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, phaseTerminated, session.Phase())
}
