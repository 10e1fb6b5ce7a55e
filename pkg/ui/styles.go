package ui

import "github.com/charmbracelet/lipgloss"

var (
	buttonStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("63")).Padding(0, 1)
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	threadStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
	assistantStyle = lipgloss.NewStyle()
	waitingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Italic(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("118"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)
