// Package tui provides the terminal user interface for agentdeck.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorBorder    = lipgloss.Color("#3b4261")
	colorPrimary   = lipgloss.Color("#7aa2f7")
	colorSecondary = lipgloss.Color("#9ece6a")
	colorAccent    = lipgloss.Color("#bb9af7")
	colorWarning   = lipgloss.Color("#e0af68")
	colorError     = lipgloss.Color("#f7768e")
	colorText      = lipgloss.Color("#c0caf5")
	colorTextDim   = lipgloss.Color("#565f89")
	colorTextMute  = lipgloss.Color("#414868")
)

var (
	// Header panel style
	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 2).
			MarginBottom(1)

	// Title style for header
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	// Subtitle/session label style
	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	// Hint text style
	hintStyle = lipgloss.NewStyle().
			Foreground(colorTextMute).
			Italic(true)

	// Messages area panel
	messagesAreaStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder).
				Padding(1)

	// User message bubble
	userBubbleStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorSecondary).
			Padding(0, 1).
			MarginLeft(4)

	// User label style
	userLabelStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true).
			MarginLeft(4)

	// Assistant message bubble
	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Padding(0, 1)

	// Assistant label style
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	// Reasoning trace panel
	tracePanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorTextMute).
			Foreground(colorTextDim).
			Padding(0, 1).
			MarginLeft(2)

	traceStepStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	traceQueryStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Italic(true)

	// Component styles
	componentTitleStyle = lipgloss.NewStyle().
				Foreground(colorAccent).
				Bold(true)

	componentBoxStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorAccent).
				Padding(0, 1).
				MarginTop(1)

	cardValueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	cardDescStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	tableCellStyle = lipgloss.NewStyle().
			Foreground(colorText)

	// Placeholder for unknown component types
	placeholderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colorError).
				Foreground(colorError).
				Padding(0, 1)

	chartNoticeStyle = lipgloss.NewStyle().
				Foreground(colorWarning).
				Italic(true)

	// Input area panel
	inputPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	// Input label style
	inputLabelStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	// Loading/spinner style
	loadingStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	// Status bar styles
	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			MarginTop(1)

	statusKeyStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	statusDescStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	// Error style
	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	// Welcome styles
	welcomeStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Align(lipgloss.Center)

	welcomeTitleStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true).
				Align(lipgloss.Center)

	welcomeIconStyle = lipgloss.NewStyle().
				Foreground(colorAccent).
				Align(lipgloss.Center)

	// Selector overlay styles
	selectorTitleStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	selectorItemStyle = lipgloss.NewStyle().
				Foreground(colorText)

	selectorSelectedStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	selectorCursorStyle = lipgloss.NewStyle().
				Foreground(colorAccent).
				Bold(true)

	selectorMetaStyle = lipgloss.NewStyle().
				Foreground(colorTextMute)
)
