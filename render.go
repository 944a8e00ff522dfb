package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styleLine colors one transcript line by what kind of response it is.
func styleLine(line string) string {
	switch {
	case strings.HasPrefix(line, "> "):
		return promptStyle.Render(line)
	case strings.HasPrefix(line, "Reply "):
		return replyStyle.Render(line)
	case strings.HasPrefix(line, "! Parse error"),
		strings.HasPrefix(line, "Usage error"),
		strings.HasPrefix(line, "Internal error"),
		line == "Invalid simulation method":
		return errorStyle.Render(line)
	case strings.HasPrefix(line, "#"):
		return dimStyle.Render(line)
	default:
		return line
	}
}

func (m Console) renderTranscript() string {
	lines := make([]string, len(m.transcript))
	for i, line := range m.transcript {
		lines[i] = styleLine(line)
	}
	return strings.Join(lines, "\n")
}

// View renders the UI.
func (m Console) View() string {
	if m.width == 0 {
		return "Connecting..."
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Quantum server " + m.addr))
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	transcript := transcriptStyle.Render(sb.String())

	top := transcript
	if m.focus == focusReference {
		height := lipgloss.Height(transcript) - 2
		top = lipgloss.JoinHorizontal(lipgloss.Top, transcript, m.renderReference(height))
	}

	input := inputStyle.Width(m.width - 2).Render(m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, top, input, m.renderStatus())
}

// renderReference renders the command reference with one category tab
// selected.
func (m Console) renderReference(height int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Commands"))
	sb.WriteString("\n")

	// Category tabs
	for i, cat := range commandCatalog {
		name := " " + strings.Fields(cat.name)[0] + " "
		if i == m.menuCat {
			sb.WriteString(activeStyle.Render(name))
		} else {
			sb.WriteString(dimStyle.Render(name))
		}
		if i < len(commandCatalog)-1 {
			sb.WriteString(dimStyle.Render("│"))
		}
	}
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(strings.Repeat("─", referenceW-4)))
	sb.WriteString("\n")

	cat := commandCatalog[m.menuCat]
	for i, item := range cat.items {
		if i == m.menuItem {
			sb.WriteString(menuSelectedStyle.Render(fmt.Sprintf(" ▸ %-18s", item.usage)))
		} else {
			sb.WriteString(menuNormalStyle.Render(fmt.Sprintf("   %-18s", item.usage)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(cat.items[m.menuItem].description))
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render(" ↑↓ Select  ←→ Cat  ⏎ Use  Esc ✕"))

	return referenceStyle.Width(referenceW).Height(max(height, 1)).Render(sb.String())
}

// renderStatus renders the bottom status line.
func (m Console) renderStatus() string {
	if m.statusMsg != "" {
		return errorStyle.Render(m.statusMsg)
	}

	var sb strings.Builder
	if m.connected {
		sb.WriteString(replyStyle.Render("● connected"))
	} else {
		sb.WriteString(errorStyle.Render("○ disconnected"))
	}
	sb.WriteString("  ")
	sb.WriteString(activeStyle.Render("⏎"))
	sb.WriteString(" Send  ")
	sb.WriteString(activeStyle.Render("↑↓"))
	sb.WriteString(" History  ")
	sb.WriteString(activeStyle.Render("PgUp/PgDn"))
	sb.WriteString(" Scroll  ")
	sb.WriteString(activeStyle.Render("F1"))
	sb.WriteString(" Reference  ")
	sb.WriteString(activeStyle.Render("^C"))
	sb.WriteString(" Quit")
	return sb.String()
}
