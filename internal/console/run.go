package console

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stlalpha/tagrelay/internal/chat"
)

// Run shows the console until the operator quits or done is closed. The
// sink is attached to the program for the duration.
func Run(op Operator, transcript *chat.Transcript, jobs JobSource, sink *Sink, done <-chan struct{}) error {
	m := New(op, transcript, jobs, done)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	sink.Attach(p)
	defer sink.Attach(nil)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}
