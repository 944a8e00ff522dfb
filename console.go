package main

import (
	"bufio"
	"io"
	"net"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
)

// focus represents which panel has keyboard input.
type focus int

const (
	focusInput focus = iota
	focusReference
)

// serverLineMsg carries one line received from the server.
type serverLineMsg struct{ line string }

// serverClosedMsg reports that the connection ended.
type serverClosedMsg struct{ err error }

// sendErrorMsg reports a failed write to the server.
type sendErrorMsg struct{ err error }

// Console is an interactive client for the quantum server.
type Console struct {
	conn   io.Writer
	reader *bufio.Reader
	addr   string
	mode   string

	transcript []string
	viewport   viewport.Model
	input      textarea.Model
	focus      focus
	width      int
	height     int
	connected  bool
	statusMsg  string

	// Command history, most recent last
	history    []string
	historyIdx int

	// Reference panel state
	menuCat  int
	menuItem int
}

// NewConsole creates a console talking to the server over conn. When mode
// is not empty it is sent as the simulation method on start.
func NewConsole(conn io.ReadWriter, addr, mode string) Console {
	ta := textarea.New()
	ta.Placeholder = "Type a command, F1 for reference..."
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	return Console{
		conn:      conn,
		reader:    bufio.NewReader(conn),
		addr:      addr,
		mode:      mode,
		viewport:  viewport.New(80, 20),
		input:     ta,
		focus:     focusInput,
		connected: true,
	}
}

// DialConsole connects to addr and creates a console for it. The caller
// closes the returned connection.
func DialConsole(addr, mode string) (Console, net.Conn, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return Console{}, nil, errors.Wrapf(err, "connect to %s", addr)
	}
	return NewConsole(conn, addr, mode), conn, nil
}

// waitForLine reads the next line from the server.
func waitForLine(reader *bufio.Reader) tea.Cmd {
	return func() tea.Msg {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return serverClosedMsg{err: err}
		}
		return serverLineMsg{line: strings.TrimRight(line, "\r\n")}
	}
}

// sendLine writes one command line to the server.
func sendLine(conn io.Writer, line string) tea.Cmd {
	return func() tea.Msg {
		if _, err := io.WriteString(conn, line+"\n"); err != nil {
			return sendErrorMsg{err: err}
		}
		return nil
	}
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m Console) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, waitForLine(m.reader)}
	if m.mode != "" {
		cmds = append(cmds, sendLine(m.conn, m.mode))
	}
	return tea.Batch(cmds...)
}

func (m Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case serverLineMsg:
		m.appendLine(msg.line)
		return m, waitForLine(m.reader)

	case serverClosedMsg:
		m.connected = false
		m.statusMsg = "Connection closed"
		if msg.err != nil && msg.err != io.EOF {
			m.statusMsg += ": " + msg.err.Error()
		}
		return m, nil

	case sendErrorMsg:
		m.statusMsg = "Send error: " + msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		m.statusMsg = ""

		if key == "ctrl+c" {
			return m, tea.Quit
		}
		if key == "f1" {
			m.toggleReference()
			return m, nil
		}

		if m.focus == focusReference {
			return m.updateReference(key)
		}

		switch key {
		case "enter":
			return m, m.submit()
		case "up":
			m.recall(-1)
			return m, nil
		case "down":
			m.recall(1)
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit sends the typed command and records it in the transcript.
func (m *Console) submit() tea.Cmd {
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if !m.connected {
		m.statusMsg = "Not connected"
		return nil
	}

	m.appendLine("> " + line)
	if line != "" {
		m.history = append(m.history, line)
		if len(m.history) > historySize {
			m.history = m.history[len(m.history)-historySize:]
		}
	}
	m.historyIdx = len(m.history)

	send := sendLine(m.conn, line)
	if line == "quit" {
		return tea.Sequence(send, tea.Quit)
	}
	return send
}

// recall moves through the command history by delta.
func (m *Console) recall(delta int) {
	if len(m.history) == 0 {
		return
	}
	m.historyIdx = min(max(m.historyIdx+delta, 0), len(m.history))
	if m.historyIdx == len(m.history) {
		m.input.Reset()
		return
	}
	m.input.SetValue(m.history[m.historyIdx])
}

func (m *Console) toggleReference() {
	if m.focus == focusReference {
		m.focus = focusInput
		m.input.Focus()
	} else {
		m.focus = focusReference
		m.menuCat = 0
		m.menuItem = 0
		m.input.Blur()
	}
	m.layout()
}

// updateReference handles keys while the reference panel is active.
// Enter copies the selected usage into the input.
func (m Console) updateReference(key string) (tea.Model, tea.Cmd) {
	cat := commandCatalog[m.menuCat]
	switch key {
	case "esc", "q":
		m.toggleReference()
	case "up", "k":
		if m.menuItem > 0 {
			m.menuItem--
		}
	case "down", "j":
		if m.menuItem < len(cat.items)-1 {
			m.menuItem++
		}
	case "left", "h":
		if m.menuCat > 0 {
			m.menuCat--
			m.menuItem = 0
		}
	case "right", "l":
		if m.menuCat < len(commandCatalog)-1 {
			m.menuCat++
			m.menuItem = 0
		}
	case "enter":
		m.input.SetValue(usageTemplate(cat.items[m.menuItem].usage))
		m.toggleReference()
	}
	return m, nil
}

// usageTemplate turns a usage line into something to edit: the command
// word followed by a space.
func usageTemplate(usage string) string {
	word, _, _ := strings.Cut(usage, " ")
	if word == usage {
		return usage
	}
	return word + " "
}

func (m *Console) appendLine(line string) {
	m.transcript = append(m.transcript, line)
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// layout sizes the panels to the window.
func (m *Console) layout() {
	if m.width == 0 {
		return
	}
	width := m.width - 4
	if m.focus == focusReference {
		width -= referenceW + 2
	}
	m.viewport.Width = max(width, 10)
	m.viewport.Height = max(m.height-inputH-statusH-4, 3)
	m.input.SetWidth(max(m.width-4, 10))
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}
