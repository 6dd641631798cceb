package ui

import "github.com/charmbracelet/lipgloss"

var (
	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Background(lipgloss.Color("#3C3836")).
			Padding(0, 1)

	errorBarStyle = statusBarStyle.
			Background(lipgloss.Color("#CC241D"))

	roomHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FABD2F")).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	messagesStyle = lipgloss.NewStyle().
			Padding(0, 1)

	myMessageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#83A598"))

	otherMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FABD2F"))

	systemMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B16286")).
				Italic(true)

	userListStyle = lipgloss.NewStyle().
			Width(24).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#458588")).
			Foreground(lipgloss.Color("#458588")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1).
			MarginTop(1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#57E2E5")).
			Bold(true).
			MarginBottom(1)

	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#57E2E5"))

	appStyle = lipgloss.NewStyle().
			Margin(1, 2)
)
