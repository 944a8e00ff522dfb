package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	versionMajor = 0
	versionMinor = 2

	// simulationMode is the only mode a client may select.
	simulationMode = "Universal"

	// maxLineLength bounds a command line, newline excluded.
	maxLineLength = 4096
)

// sessionPhase is the state of a session's protocol state machine.
type sessionPhase int

const (
	phaseInit sessionPhase = iota
	phaseRunning
	phaseTerminated
)

func (p sessionPhase) String() string {
	switch p {
	case phaseInit:
		return "init"
	case phaseRunning:
		return "running"
	default:
		return "terminated"
	}
}

// Session speaks the line protocol for one client on top of an
// Interpreter.
type Session struct {
	conn   io.ReadWriter
	reader *bufio.Reader
	interp *Interpreter
	debug  bool
	logger *zap.Logger
	phase  sessionPhase
}

// NewSession creates a session reading commands from and writing responses
// to conn. With debug set, internal errors end the session instead of being
// reported to the client.
func NewSession(conn io.ReadWriter, interp *Interpreter, debug bool, logger *zap.Logger) *Session {
	return &Session{
		conn:   conn,
		reader: bufio.NewReader(conn),
		interp: interp,
		debug:  debug,
		logger: logger,
	}
}

// Run serves the session until the client quits or disconnects. A clean
// end, including a disconnect, returns nil. The caller closes the
// connection.
func (s *Session) Run() error {
	if _, err := fmt.Fprintf(s.conn, "# quantum server, version %d.%d.\n", versionMajor, versionMinor); err != nil {
		return errors.Wrap(err, "write banner")
	}

	for {
		line, err := s.readLine()
		if err == io.EOF {
			return nil
		}
		var parseErr *ParseError
		if err != nil && !errors.As(err, &parseErr) {
			return err
		}
		if err == nil && line == simulationMode {
			break
		}
		if err := s.write("Invalid simulation method\n"); err != nil {
			return err
		}
	}
	s.phase = phaseRunning
	s.logger.Debug("simulation mode selected", zap.String("mode", simulationMode))

	for {
		line, err := s.readLine()
		if err == io.EOF {
			return nil
		}
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			commandsTotal.WithLabelValues("", "parse_error").Inc()
			if err := s.fail(err); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		done, err := s.handle(line)
		if err != nil || done {
			return err
		}
	}
}

// Phase reports how far the session got. It is phaseTerminated only after
// the client quit.
func (s *Session) Phase() sessionPhase {
	return s.phase
}

// readLine returns the next line without surrounding whitespace. A final
// line without a newline is still returned; io.EOF follows it. A line
// longer than maxLineLength is consumed and reported as a *ParseError.
func (s *Session) readLine() (string, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := s.reader.ReadSlice('\n')
		if !tooLong && len(line)+len(bytes.TrimRight(chunk, "\r\n")) > maxLineLength {
			tooLong = true
			line = nil
		}
		if !tooLong {
			line = append(line, chunk...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF && len(line) == 0 && !tooLong {
			return "", io.EOF
		}
		if err != nil && err != io.EOF {
			return "", errors.Wrap(err, "read command")
		}
		if tooLong {
			return "", parseErrorf("Line longer than %d characters", maxLineLength)
		}
		return strings.TrimSpace(string(line)), nil
	}
}

// handle processes one command line and writes its response. It reports
// whether the session is over.
func (s *Session) handle(line string) (bool, error) {
	s.logger.Debug("incoming command", zap.String("line", line))

	cmd, err := ParseCommand(line)
	if err != nil {
		commandsTotal.WithLabelValues("", "parse_error").Inc()
		return false, s.fail(err)
	}
	s.logger.Debug("parsed command", zap.String("op", cmd.Op()), zap.Any("command", cmd))

	res, err := s.dispatch(cmd)
	if err != nil {
		outcome := "internal_error"
		var usage *UsageError
		if errors.As(err, &usage) {
			outcome = "usage_error"
		}
		commandsTotal.WithLabelValues(cmd.Op(), outcome).Inc()
		return false, s.fail(err)
	}
	commandsTotal.WithLabelValues(cmd.Op(), "ok").Inc()
	s.logger.Debug("command result", zap.String("result", fmt.Sprintf("%T", res)))

	return s.respond(res)
}

// respond writes the wire form of res. It reports whether the session is
// over.
func (s *Session) respond(res Result) (bool, error) {
	switch r := res.(type) {
	case OK, Null:
		return false, nil
	case Reply:
		return false, s.write("Reply \"" + r.Message + "\"\n")
	case Info:
		return false, s.write(r.Content)
	case Terminate:
		s.phase = phaseTerminated
		return true, nil
	default:
		panic(fmt.Sprintf("session: unhandled result %T", res))
	}
}

// dispatch runs cmd, turning a panic into an internal error.
func (s *Session) dispatch(cmd Command) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return s.interp.Dispatch(cmd)
}

// fail reports err to the client. Internal errors end the session in debug
// mode.
func (s *Session) fail(err error) error {
	var parseErr *ParseError
	var usageErr *UsageError
	switch {
	case errors.As(err, &parseErr):
		s.logger.Debug("parse error", zap.Error(err))
		return s.write(fmt.Sprintf("! Parse error: %s. Try help.\n", parseErr.Message))
	case errors.As(err, &usageErr):
		s.logger.Debug("usage error", zap.Error(err))
		return s.write(fmt.Sprintf("Usage error \"! %s\"\n", usageErr.Message))
	}

	if s.debug {
		return errors.Wrap(err, "internal error")
	}
	s.logger.Warn("internal error", zap.Error(err))
	return s.write(fmt.Sprintf("Internal error: %s\n", err))
}

func (s *Session) write(msg string) error {
	if _, err := io.WriteString(s.conn, msg); err != nil {
		return errors.Wrap(err, "write response")
	}
	return nil
}
