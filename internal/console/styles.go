package console

import "github.com/charmbracelet/lipgloss"

const rosterWidth = 34

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("4")).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Italic(true)

	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6"))

	typingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Italic(true)

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	rosterStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("8")).
			PaddingLeft(1).
			Width(rosterWidth - 1)

	rosterTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("11"))
)
