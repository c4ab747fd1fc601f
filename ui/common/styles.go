package common

import "github.com/charmbracelet/lipgloss"

const (
	COLOR_GREY      = "241"
	COLOR_MAGENTA   = "170"
	COLOR_LIGHTBLUE = "69"
	COLOR_PURPLE    = "#7D56F4"
	COLOR_GREEN     = "42"
	COLOR_RED       = "196"
)

var (
	HelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_GREY)).Padding(0, 2)
	CaptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_MAGENTA)).Padding(2)
	OkStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_GREEN))
	ErrStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_RED))
)

func DefaultWindowWidth(width int) int {
	return width - 10
}

func DefaultWindowHeight(heigth int) int {
	return heigth - 10
}
