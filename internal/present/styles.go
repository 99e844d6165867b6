package present

import "github.com/charmbracelet/lipgloss"

var (
	mutedColor   = lipgloss.Color("#6B7280")
	accentColor  = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
)

var (
	statusStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	slideStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	notesStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(mutedColor).
			Foreground(mutedColor).
			PaddingTop(1)
)

func syncStyle(label string) lipgloss.Style {
	switch label {
	case "presenting":
		return lipgloss.NewStyle().Foreground(successColor)
	case "syncing":
		return lipgloss.NewStyle().Foreground(warningColor)
	}
	return mutedStyle
}
