package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/agentdeck/internal/models"
)

// loadSessions fetches the session list for the selector overlay.
func (m Model) loadSessions() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		sessions, err := client.Sessions(ctx)
		return sessionsLoadedMsg{sessions: sessions, err: err}
	}
}

// switchSession loads a stored session into the controller.
func (m Model) switchSession(sessionID string) tea.Cmd {
	controller := m.controller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return sessionSwitchedMsg{err: controller.LoadSession(ctx, sessionID)}
	}
}

// deleteSession removes a session and reloads the list.
func (m Model) deleteSession(sessionID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := client.DeleteSession(ctx, sessionID); err != nil {
			return sessionsLoadedMsg{err: err}
		}
		sessions, err := client.Sessions(ctx)
		return sessionsLoadedMsg{sessions: sessions, err: err}
	}
}

// updateSessionSelection handles updates while the selector overlay is open.
func (m Model) updateSessionSelection(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case sessionsLoadedMsg:
		m.sessionsLoading = false
		if msg.err != nil {
			m.selectingSession = false
			m.err = msg.err
		} else {
			m.sessions = msg.sessions
			if m.sessionCursor >= len(m.sessions) {
				m.sessionCursor = 0
			}
		}

	case sessionSwitchedMsg:
		m.selectingSession = false
		m.sessions = nil
		m.sessionCursor = 0
		m.sessionFilter = ""
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.updateViewport()
			m.viewport.GotoBottom()
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			m.selectingSession = false
			m.sessions = nil
			m.sessionCursor = 0
			m.sessionFilter = ""

		case "up", "ctrl+k":
			if n := len(m.filteredSessions()); n > 0 {
				m.sessionCursor--
				if m.sessionCursor < 0 {
					m.sessionCursor = n - 1
				}
			}

		case "down", "ctrl+j":
			if n := len(m.filteredSessions()); n > 0 {
				m.sessionCursor++
				if m.sessionCursor >= n {
					m.sessionCursor = 0
				}
			}

		case "ctrl+d":
			filtered := m.filteredSessions()
			if len(filtered) > 0 && m.sessionCursor < len(filtered) {
				return m, m.deleteSession(strconv.Itoa(filtered[m.sessionCursor].ID))
			}

		case "enter":
			filtered := m.filteredSessions()
			if len(filtered) > 0 && m.sessionCursor < len(filtered) {
				return m, m.switchSession(strconv.Itoa(filtered[m.sessionCursor].ID))
			}

		case "backspace":
			if len(m.sessionFilter) > 0 {
				m.sessionFilter = m.sessionFilter[:len(m.sessionFilter)-1]
				m.sessionCursor = 0
			}

		default:
			if len(msg.String()) == 1 {
				r := []rune(msg.String())[0]
				if r >= ' ' && r <= '~' {
					m.sessionFilter += msg.String()
					m.sessionCursor = 0
				}
			}
		}
	}

	return m, nil
}

// filteredSessions returns the session list filtered by the typed text.
func (m Model) filteredSessions() []models.ChatSession {
	if m.sessionFilter == "" {
		return m.sessions
	}

	filter := strings.ToLower(m.sessionFilter)
	var filtered []models.ChatSession
	for _, s := range m.sessions {
		if strings.Contains(strings.ToLower(s.Title), filter) ||
			strings.Contains(strconv.Itoa(s.ID), filter) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// renderSessionSelector renders the session picker overlay.
func (m Model) renderSessionSelector() string {
	width := m.width - 8
	if width < 40 {
		width = 40
	}

	var content strings.Builder

	title := selectorTitleStyle.Render("💬 Sessions")
	title += hintStyle.Render(fmt.Sprintf("  (current: %s)", m.controller.SessionID()))
	content.WriteString(title)
	content.WriteString("\n\n")

	if m.sessionFilter != "" {
		content.WriteString(inputLabelStyle.Render("🔍 ") + m.sessionFilter + "_")
		content.WriteString("\n\n")
	}

	if m.sessionsLoading {
		content.WriteString(loadingStyle.Render("  Loading sessions..."))
	} else if len(m.sessions) == 0 {
		content.WriteString(hintStyle.Render("  No sessions yet"))
	} else {
		filtered := m.filteredSessions()
		if len(filtered) == 0 {
			content.WriteString(hintStyle.Render("  No sessions match filter"))
		} else {
			maxItems := 10
			startIdx := 0
			if m.sessionCursor >= maxItems {
				startIdx = m.sessionCursor - maxItems + 1
			}
			endIdx := startIdx + maxItems
			if endIdx > len(filtered) {
				endIdx = len(filtered)
			}

			if startIdx > 0 {
				content.WriteString(hintStyle.Render("  ↑ more above"))
				content.WriteString("\n")
			}

			for i := startIdx; i < endIdx; i++ {
				s := filtered[i]
				cursor := "  "
				nameStyle := selectorItemStyle
				if i == m.sessionCursor {
					cursor = selectorCursorStyle.Render("▸ ")
					nameStyle = selectorSelectedStyle
				}

				title := s.Title
				if title == "" {
					title = "untitled"
				}

				line := fmt.Sprintf("%s%s %s", cursor,
					selectorMetaStyle.Render(fmt.Sprintf("#%d", s.ID)),
					nameStyle.Render(title))
				if !s.UpdatedAt.IsZero() {
					line += selectorMetaStyle.Render("  " + s.UpdatedAt.Format("Jan 2 15:04"))
				}

				content.WriteString(line)
				content.WriteString("\n")
			}

			if endIdx < len(filtered) {
				content.WriteString(hintStyle.Render("  ↓ more below"))
				content.WriteString("\n")
			}
		}
	}

	content.WriteString("\n")

	shortcuts := []string{
		statusKeyStyle.Render("↑↓") + statusDescStyle.Render(" Navigate"),
		statusKeyStyle.Render("Enter") + statusDescStyle.Render(" Open"),
		statusKeyStyle.Render("Ctrl+D") + statusDescStyle.Render(" Delete"),
		statusKeyStyle.Render("Esc") + statusDescStyle.Render(" Cancel"),
	}
	content.WriteString(strings.Join(shortcuts, "  │  "))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(1, 2).
		Width(width)

	return boxStyle.Render(content.String())
}
