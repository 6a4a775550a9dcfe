package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/gjson"

	"github.com/diogo/agentdeck/internal/api"
	"github.com/diogo/agentdeck/internal/chat"
	apierrors "github.com/diogo/agentdeck/internal/errors"
	"github.com/diogo/agentdeck/internal/models"
	"github.com/diogo/agentdeck/internal/render"
)

// Message types for the TUI
type (
	notifyMsg chat.Notification

	healthMsg struct {
		err error
	}

	sessionsLoadedMsg struct {
		sessions []models.ChatSession
		err      error
	}

	sessionSwitchedMsg struct {
		err error
	}

	errMsg struct {
		err error
	}
)

// Model represents the TUI state
type Model struct {
	controller *chat.Controller
	client     *api.Client
	renderOpts render.Options

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	ready      bool
	err        error
	statusNote string
	healthErr  error

	// Attachments staged for the next submission
	pendingFiles []*api.Attachment
	pendingNames []string

	// Session selection state
	selectingSession bool
	sessions         []models.ChatSession
	sessionsLoading  bool
	sessionCursor    int
	sessionFilter    string

	// Dimensions
	width  int
	height int
}

// NewModel creates the chat TUI model.
func NewModel(controller *chat.Controller, client *api.Client, opts render.Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about your data..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	return Model{
		controller: controller,
		client:     client,
		renderOpts: opts,
		textarea:   ta,
		spinner:    s,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.listen(),
		m.checkHealth(),
	)
}

// listen waits for the next controller state change.
func (m Model) listen() tea.Cmd {
	ch := m.controller.Notifications()
	return func() tea.Msg {
		return notifyMsg(<-ch)
	}
}

// checkHealth probes the backend once at startup.
func (m Model) checkHealth() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return healthMsg{err: client.Health(ctx)}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.selectingSession {
		return m.updateSessionSelection(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		inputHeight := 6
		statusHeight := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight
		if vpHeight < 5 {
			vpHeight = 5
		}

		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.textarea.SetWidth(contentWidth - 4)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
			m.textarea.SetWidth(contentWidth - 4)
		}
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if m.controller.Busy() {
				m.controller.Cancel()
			} else {
				return m, tea.Quit
			}

		case "ctrl+y":
			m.copyLastAnswer()

		case "enter":
			if newModel, cmd, handled := m.handleSubmit(); handled {
				return newModel, cmd
			}
		}

	case notifyMsg:
		n := chat.Notification(msg)
		switch n.Kind {
		case chat.NoteTranscript, chat.NoteTrace:
			m.updateViewport()
			m.viewport.GotoBottom()
		case chat.NotePhase:
			if n.Err != nil {
				m.err = n.Err
			}
			m.updateViewport()
		}
		cmds = append(cmds, m.listen())

	case healthMsg:
		m.healthErr = msg.err

	case sessionSwitchedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.statusNote = ""
			m.updateViewport()
			m.viewport.GotoBottom()
		}

	case errMsg:
		m.err = msg.err

	case spinner.TickMsg:
		if m.controller.Busy() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	// Only pass KeyMsg to the textarea to prevent escape sequence leaks.
	if !m.controller.Busy() {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleSubmit processes the enter key: slash commands first, then the
// actual submission. Returns handled=false when the input was empty.
func (m Model) handleSubmit() (tea.Model, tea.Cmd, bool) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil, false
	}

	switch {
	case input == "exit" || input == "quit" || input == "/exit" || input == "/quit":
		return m, tea.Quit, true

	case input == "/sessions":
		m.textarea.Reset()
		m.selectingSession = true
		m.sessionsLoading = true
		m.sessionCursor = 0
		m.sessionFilter = ""
		return m, m.loadSessions(), true

	case input == "/new":
		m.textarea.Reset()
		return m, m.newSession(), true

	case strings.HasPrefix(input, "/attach "):
		path := strings.TrimSpace(strings.TrimPrefix(input, "/attach"))
		m.textarea.Reset()
		file, err := api.AttachmentFromFile(path)
		if err != nil {
			m.err = err
			return m, nil, true
		}
		m.pendingFiles = append(m.pendingFiles, file)
		m.pendingNames = append(m.pendingNames, file.Name)
		m.statusNote = fmt.Sprintf("attached %s", file.Name)
		return m, nil, true
	}

	if m.controller.Busy() {
		m.err = apierrors.ErrBusy
		return m, nil, true
	}

	files := m.pendingFiles
	m.pendingFiles = nil
	m.pendingNames = nil
	m.textarea.Reset()
	m.err = nil
	m.statusNote = ""

	if err := m.controller.Submit(context.Background(), input, files); err != nil {
		m.err = err
		return m, nil, true
	}

	m.updateViewport()
	m.viewport.GotoBottom()
	return m, m.spinner.Tick, true
}

// copyLastAnswer puts the most recent assistant message on the clipboard.
func (m *Model) copyLastAnswer() {
	messages := m.controller.Transcript().Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleAssistant && messages[i].Content != "" {
			if err := clipboard.WriteAll(messages[i].Content); err != nil {
				m.err = err
			} else {
				m.statusNote = "answer copied to clipboard"
			}
			return
		}
	}
	m.statusNote = "nothing to copy yet"
}

// newSession points the controller at a fresh session.
func (m Model) newSession() tea.Cmd {
	controller := m.controller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return sessionSwitchedMsg{err: controller.NewSession(ctx)}
	}
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	if m.healthErr != nil {
		return m.renderHealthError()
	}

	if m.selectingSession {
		return m.renderSessionSelector()
	}

	var sections []string
	contentWidth := m.width - 4

	sections = append(sections, m.renderHeader(contentWidth))

	var messagesContent string
	if m.controller.Transcript().Len() == 0 {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	var inputContent string
	if m.controller.Busy() {
		inputContent = m.renderProgress()
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("⚠ Error: %v", m.err)))
	} else if m.statusNote != "" {
		sections = append(sections, hintStyle.Render("  "+m.statusNote))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader renders the top panel with session and attachment info.
func (m Model) renderHeader(width int) string {
	parts := []string{
		titleStyle.Render("◆ agentdeck"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render("session " + m.controller.SessionID()),
	}
	if n := len(m.pendingNames); n > 0 {
		parts = append(parts,
			hintStyle.Render("  •  "),
			subtitleStyle.Render(fmt.Sprintf("📎 %s", strings.Join(m.pendingNames, ", "))))
	}
	content := lipgloss.JoinHorizontal(lipgloss.Center, parts...)
	return headerStyle.Width(width).Render(content)
}

// renderHealthError renders the blocking page shown when the backend is
// down.
func (m Model) renderHealthError() string {
	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		errorStyle.Render("⚠ Backend unavailable"),
		"",
		welcomeStyle.Render(fmt.Sprintf("%v", m.healthErr)),
		"",
		hintStyle.Render("Start the backend and relaunch, or check AGENTDECK_BACKEND_URL"),
		"",
		hintStyle.Render("Press Ctrl+C to quit"),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// renderWelcome renders the empty-transcript welcome screen.
func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	icon := welcomeIconStyle.Width(width).Render("◆")
	title := welcomeTitleStyle.Width(width).Render("Welcome to agentdeck")
	subtitle := welcomeStyle.Width(width).Render("Ask a question about your data to get started")
	hints := welcomeStyle.Width(width).Render("/sessions browse history  ·  /new fresh chat  ·  /attach <path> add a file")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		icon,
		"",
		title,
		"",
		subtitle,
		"",
		hints,
	)

	contentHeight := lipgloss.Height(content)
	topPadding := (height - contentHeight) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	return strings.Repeat("\n", topPadding) + content
}

// renderProgress renders the in-flight indicator with the latest reasoning
// step.
func (m Model) renderProgress() string {
	label := "working"
	steps := m.controller.Trace().Steps()
	if len(steps) > 0 {
		last := steps[len(steps)-1]
		label = last.Icon.Glyph() + " " + last.Text
		if last.SearchQuery != "" {
			label += traceQueryStyle.Render("  (" + last.SearchQuery + ")")
		}
	}
	return m.spinner.View() + " " + traceStepStyle.Render(label)
}

// renderStatusBar renders the bottom shortcut bar.
func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Ctrl+Y", "Copy answer"},
		{"Esc", "Cancel/Quit"},
		{"↑↓", "Scroll"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}

	bar := strings.Join(items, "  │  ")
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// updateViewport refreshes the viewport content from the transcript and
// trace stores.
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6

	messages := m.controller.Transcript().Messages()
	for i, msg := range messages {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.Role == models.RoleUser {
			label := userLabelStyle.Render("⬤ You")
			bubble := userBubbleStyle.Width(bubbleWidth).Render(msg.Content)
			content.WriteString(label + "\n" + bubble)
		} else {
			content.WriteString(m.renderAssistantMessage(msg, bubbleWidth))
		}
		content.WriteString("\n")
	}

	// During streaming the trace renders inline under the open message.
	if m.controller.Busy() {
		if trace := m.renderTrace(bubbleWidth); trace != "" {
			content.WriteString("\n" + trace + "\n")
		}
	}

	m.viewport.SetContent(content.String())
}

// renderAssistantMessage renders markdown content, any mounted components
// and a chart notice.
func (m *Model) renderAssistantMessage(msg models.Message, bubbleWidth int) string {
	var parts []string
	parts = append(parts, assistantLabelStyle.Render("◆ Assistant"))

	if msg.Content != "" {
		rendered, err := render.Markdown(msg.Content, m.renderOpts.WithWidth(bubbleWidth-4))
		if err != nil {
			rendered = msg.Content
		}
		rendered = strings.TrimRight(rendered, "\n")
		parts = append(parts, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
	}

	if components := RenderComponents(msg.Components, bubbleWidth); components != "" {
		parts = append(parts, components)
	}

	if msg.HasChart() {
		parts = append(parts, chartNoticeStyle.Render(summarizeChart(msg.ChartOption)))
	}

	return strings.Join(parts, "\n")
}

// summarizeChart describes the opaque chart option in one line. Plotting is
// left to the web dashboard.
func summarizeChart(option []byte) string {
	summary := "📈 chart data received"
	if title := gjson.GetBytes(option, "title.text").String(); title != "" {
		summary += ": " + title
	}
	if series := gjson.GetBytes(option, "series").Array(); len(series) > 0 {
		kinds := make([]string, 0, len(series))
		for _, s := range series {
			if kind := s.Get("type").String(); kind != "" {
				kinds = append(kinds, kind)
			}
		}
		if len(kinds) > 0 {
			summary += fmt.Sprintf(" (%d series: %s)", len(series), strings.Join(kinds, ", "))
		} else {
			summary += fmt.Sprintf(" (%d series)", len(series))
		}
	}
	return summary + " (open the web dashboard to plot it)"
}

// renderTrace renders the reasoning steps of the in-flight turn.
func (m *Model) renderTrace(width int) string {
	steps := m.controller.Trace().Steps()
	if len(steps) == 0 {
		return ""
	}

	var lines []string
	for _, step := range steps {
		line := step.Icon.Glyph() + " " + step.Text
		if step.SearchQuery != "" {
			line += traceQueryStyle.Render("  (" + step.SearchQuery + ")")
		}
		lines = append(lines, traceStepStyle.Render(line))
	}

	return tracePanelStyle.Width(width - 4).Render(strings.Join(lines, "\n"))
}

// Run starts the chat TUI.
func Run(controller *chat.Controller, client *api.Client, opts render.Options) error {
	p := tea.NewProgram(
		NewModel(controller, client, opts),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
