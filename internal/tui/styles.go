package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed    = lipgloss.Color("#FF5F5F")
	colorGreen  = lipgloss.Color("#5FD75F")
	colorYellow = lipgloss.Color("#FFD75F")
	colorCyan   = lipgloss.Color("#5FD7FF")
	colorGray   = lipgloss.Color("#808080")
	colorDim    = lipgloss.Color("#444444")
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	headingStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	warningStyle     = lipgloss.NewStyle().Foreground(colorYellow)
	errorStyle       = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	noticeStyle      = lipgloss.NewStyle().Foreground(colorGreen)
	stageStyle       = lipgloss.NewStyle().Foreground(colorGray)
	activeStageStyle = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	dimStyle         = lipgloss.NewStyle().Foreground(colorGray)
	boxStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	footerKeyStyle   = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	footerDescStyle  = lipgloss.NewStyle().Foreground(colorGray)
)
