// Package console is the operator's terminal front end: a live transcript,
// the roster of connected peers and an input line for speaking as the
// server identity.
package console

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/stlalpha/tagrelay/internal/broker"
	"github.com/stlalpha/tagrelay/internal/chat"
	"github.com/stlalpha/tagrelay/internal/scheduler"
	"github.com/stlalpha/tagrelay/internal/session"
)

const (
	minWidth  = 72
	minHeight = 12
)

// Operator is the set of relay controls the console drives.
// *broker.Broker satisfies it.
type Operator interface {
	LocalName() string
	RenameLocalUser(name string)
	LocalTyping()
	SendLocalMessage(text string)
	ListConnected() []string
	ConnectedNames() []string
	Roster() []session.Peer
	Kick(addr string) bool
}

// JobSource reports housekeeping run statistics. *scheduler.Scheduler
// satisfies it.
type JobSource interface {
	GetHistory() map[string]*scheduler.JobHistory
}

// Messages posted by the Sink and by commands.
type (
	entryMsg         struct{ ok bool }
	typingMsg        string
	rosterChangedMsg struct{}
	rosterMsg        []session.Peer
	statsMsg         broker.Stats
	noteMsg          string
	relayDoneMsg     struct{}
)

// Model is the BubbleTea model for the operator console.
type Model struct {
	op         Operator
	jobs       JobSource
	transcript *chat.Transcript
	entries    <-chan chat.Entry
	watchID    int
	done       <-chan struct{}

	viewport viewport.Model
	input    textinput.Model

	roster []session.Peer
	typing string
	stats  broker.Stats
	note   string

	width  int
	height int
}

// New creates a console model. jobs may be nil. done, when closed, ends
// the program (the relay has shut down).
func New(op Operator, transcript *chat.Transcript, jobs JobSource, done <-chan struct{}) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message, or /help"
	ti.CharLimit = 1000
	ti.Focus()

	id, ch := transcript.Watch()

	m := Model{
		op:         op,
		jobs:       jobs,
		transcript: transcript,
		entries:    ch,
		watchID:    id,
		done:       done,
		viewport:   viewport.New(minWidth-rosterWidth, minHeight-4),
		input:      ti,
		width:      minWidth,
		height:     minHeight,
	}
	m.layout()
	m.refreshTranscript()
	return m
}

// Close stops watching the transcript.
func (m Model) Close() {
	m.transcript.Unwatch(m.watchID)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("tagrelay"),
		textinput.Blink,
		waitForEntry(m.entries),
		waitForDone(m.done),
		listRoster(m.op),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, minWidth)
		m.height = max(msg.Height, minHeight)
		m.layout()
		m.refreshTranscript()
		return m, nil

	case entryMsg:
		if !msg.ok {
			return m, nil
		}
		m.refreshTranscript()
		return m, waitForEntry(m.entries)

	case typingMsg:
		m.typing = string(msg)
		return m, nil

	case rosterChangedMsg:
		return m, listRoster(m.op)

	case rosterMsg:
		m.roster = msg
		return m, nil

	case statsMsg:
		m.stats = broker.Stats(msg)
		return m, nil

	case noteMsg:
		m.note = string(msg)
		return m, nil

	case relayDoneMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyEnter:
		value := m.input.Value()
		m.input.Reset()
		m.note = ""
		return m, m.submit(value)

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	// Peers see the typing indicator on every edit, as with the classic
	// client.
	if after := m.input.Value(); after != before && after != "" && !strings.HasPrefix(after, "/") {
		return m, tea.Batch(cmd, localTyping(m.op))
	}
	return m, cmd
}

// submit turns an input line into a command. Broker calls run inside the
// returned tea.Cmd, off the UI goroutine.
func (m Model) submit(value string) tea.Cmd {
	line := strings.TrimSpace(value)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		op := m.op
		return func() tea.Msg {
			op.SendLocalMessage(line)
			return nil
		}
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	op := m.op

	switch strings.ToLower(cmd) {
	case "/name", "/nick":
		if arg == "" {
			return note("Usage: /name <new name>")
		}
		return func() tea.Msg {
			op.RenameLocalUser(arg)
			return noteMsg("You are now " + op.LocalName())
		}

	case "/kick":
		if arg == "" {
			return note("Usage: /kick <ip:port>")
		}
		return func() tea.Msg {
			if op.Kick(arg) {
				return noteMsg("Kicked " + arg)
			}
			addrs := op.ListConnected()
			if len(addrs) == 0 {
				return noteMsg("No client at " + arg)
			}
			return noteMsg("No client at " + arg + " (connected: " + strings.Join(addrs, ", ") + ")")
		}

	case "/who":
		return func() tea.Msg {
			names := op.ConnectedNames()
			if len(names) == 0 {
				return noteMsg("No clients connected")
			}
			return noteMsg(fmt.Sprintf("%d connected: %s", len(names), strings.Join(names, ", ")))
		}

	case "/jobs":
		jobs := m.jobs
		return func() tea.Msg {
			return noteMsg(jobSummary(jobs, time.Now()))
		}

	case "/quit", "/exit":
		return tea.Quit

	case "/help":
		return note("/name <name>  /kick <ip:port>  /who  /jobs  /quit  (PgUp/PgDn scroll)")

	default:
		return note("Unknown command " + cmd + " (try /help)")
	}
}

func note(text string) tea.Cmd {
	return func() tea.Msg { return noteMsg(text) }
}

func waitForEntry(ch <-chan chat.Entry) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-ch
		return entryMsg{ok: ok}
	}
}

func waitForDone(done <-chan struct{}) tea.Cmd {
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		<-done
		return relayDoneMsg{}
	}
}

func listRoster(op Operator) tea.Cmd {
	return func() tea.Msg {
		return rosterMsg(op.Roster())
	}
}

// jobSummary renders one line per housekeeping job, ordered by id.
func jobSummary(jobs JobSource, now time.Time) string {
	if jobs == nil {
		return "No housekeeping jobs"
	}
	history := jobs.GetHistory()
	if len(history) == 0 {
		return "No housekeeping runs yet"
	}
	ids := make([]string, 0, len(history))
	for id := range history {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		h := history[id]
		ago := now.Sub(h.LastRun).Truncate(time.Second)
		parts = append(parts, fmt.Sprintf("%s: %s %s ago (%d runs, %d failed)",
			id, h.LastStatus, ago, h.RunCount, h.FailureCount))
	}
	return strings.Join(parts, " · ")
}

func localTyping(op Operator) tea.Cmd {
	return func() tea.Msg {
		op.LocalTyping()
		return nil
	}
}

func (m *Model) layout() {
	// header, typing line, input, note
	m.viewport.Width = m.width - rosterWidth
	m.viewport.Height = m.height - 4
	m.input.Width = m.width - 4
}

func (m *Model) refreshTranscript() {
	atBottom := m.viewport.AtBottom()

	var b strings.Builder
	for i, e := range m.transcript.History() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(renderEntry(e, m.viewport.Width))
	}
	m.viewport.SetContent(b.String())

	if atBottom {
		m.viewport.GotoBottom()
	}
}

func renderEntry(e chat.Entry, width int) string {
	stamp := timeStyle.Render(e.Timestamp.Format(time.TimeOnly))
	style := chatStyle
	if e.IsSystem {
		style = systemStyle
	}
	text := e.Text
	if limit := width - 10; limit > 0 && len([]rune(text)) > limit {
		text = string([]rune(text)[:limit-1]) + "…"
	}
	return stamp + " " + style.Render(text)
}
