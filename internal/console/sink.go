package console

import (
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stlalpha/tagrelay/internal/broker"
	"github.com/stlalpha/tagrelay/internal/chat"
)

// Relay notices start with one of these markers; they are shown as system
// lines rather than chat.
var systemMarkers = []string{"🔌", "❌", "🗣️"}

// Sink is the broker.Sink behind the operator console. Chat and notices
// go to the transcript; typing, roster and stats changes are posted to the
// running program.
type Sink struct {
	transcript *chat.Transcript

	mu      sync.Mutex
	program *tea.Program
}

// NewSink creates a sink recording into transcript.
func NewSink(transcript *chat.Transcript) *Sink {
	return &Sink{transcript: transcript}
}

// Attach sets the program that receives UI updates; nil detaches it.
func (s *Sink) Attach(p *tea.Program) {
	s.mu.Lock()
	s.program = p
	s.mu.Unlock()
}

func (s *Sink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.program
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *Sink) OnMessage(text string) {
	s.transcript.Append(text, isSystem(text))
}

func (s *Sink) OnTyping(text string) {
	s.send(typingMsg(text))
}

func (s *Sink) OnClientConnected(string) {
	s.send(rosterChangedMsg{})
}

func (s *Sink) OnClientDisconnected() {
	s.send(rosterChangedMsg{})
}

func (s *Sink) OnStats(st broker.Stats) {
	s.send(statsMsg(st))
}

func isSystem(text string) bool {
	for _, m := range systemMarkers {
		if strings.HasPrefix(text, m) {
			return true
		}
	}
	return false
}
