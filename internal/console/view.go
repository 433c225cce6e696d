package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	header := headerStyle.Render("tagrelay") + " " + statsStyle.Render(m.statsLine())

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewport.View(),
		rosterStyle.Height(m.viewport.Height).Render(m.rosterView()),
	)

	typing := ""
	if m.typing != "" {
		typing = typingStyle.Render(m.typing)
	}

	return strings.Join([]string{
		header,
		body,
		typing,
		m.input.View(),
		noteStyle.Render(m.note),
	}, "\n")
}

func (m Model) statsLine() string {
	uptime := m.stats.Uptime.Truncate(time.Second)
	parts := []string{
		fmt.Sprintf("%d connected", len(m.roster)),
		"up " + uptime.String(),
		"you are " + m.op.LocalName(),
	}
	if m.stats.Listening != "" {
		parts = append(parts, "on "+m.stats.Listening)
	}
	return strings.Join(parts, " · ")
}

func (m Model) rosterView() string {
	var b strings.Builder
	b.WriteString(rosterTitleStyle.Render("Connected"))
	if len(m.roster) == 0 {
		b.WriteString("\n(none)")
		return b.String()
	}
	for _, p := range m.roster {
		b.WriteString("\n" + p.Name + " (" + p.Addr + ")")
	}
	return b.String()
}
