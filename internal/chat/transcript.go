package chat

import (
	"sync"
	"time"
)

// Entry is one line of the operator transcript.
type Entry struct {
	Text      string
	Timestamp time.Time
	IsSystem  bool // Connect/disconnect/rename notices
}

// Transcript keeps the most recent relay traffic for display and fans new
// entries out to watchers.
type Transcript struct {
	mu       sync.RWMutex
	entries  []Entry
	max      int
	watchers map[int]chan Entry
	nextID   int
}

// NewTranscript creates a transcript holding at most max entries.
func NewTranscript(max int) *Transcript {
	if max <= 0 {
		max = 1
	}
	return &Transcript{
		entries:  make([]Entry, 0, max),
		max:      max,
		watchers: make(map[int]chan Entry),
	}
}

// Watch registers a watcher and returns its id and entry channel.
func (t *Transcript) Watch() (int, <-chan Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	ch := make(chan Entry, 64)
	t.watchers[t.nextID] = ch
	return t.nextID, ch
}

// Unwatch removes a watcher and closes its channel.
func (t *Transcript) Unwatch(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ch, ok := t.watchers[id]; ok {
		close(ch)
		delete(t.watchers, id)
	}
}

// Append records a line and notifies watchers. Slow watchers miss the
// notification but still see the line through History.
func (t *Transcript) Append(text string, system bool) Entry {
	e := Entry{
		Text:      text,
		Timestamp: time.Now(),
		IsSystem:  system,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) >= t.max {
		t.entries = t.entries[1:]
	}
	t.entries = append(t.entries, e)

	for _, ch := range t.watchers {
		select {
		case ch <- e:
		default:
		}
	}
	return e
}

// History returns a copy of the transcript in chronological order.
func (t *Transcript) History() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]Entry, len(t.entries))
	copy(result, t.entries)
	return result
}
