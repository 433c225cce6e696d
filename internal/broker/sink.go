package broker

import (
	"log"
	"time"
)

// Sink receives human-readable notifications for display. Methods are
// called from many goroutines and never while the session registry is
// locked; implementations must be safe for concurrent use and must not
// block for long.
type Sink interface {
	OnMessage(text string)
	OnTyping(text string) // empty string clears the indicator
	OnClientConnected(addr string)
	OnClientDisconnected()
}

// StatsSink is implemented by sinks that display periodic relay status.
type StatsSink interface {
	OnStats(Stats)
}

// Stats is a point-in-time summary of the relay.
type Stats struct {
	Active    int
	Uptime    time.Duration
	Listening string
	LocalName string
}

// LogSink writes every notification to the standard logger. It is the
// sink used when the relay runs headless.
type LogSink struct{}

func (LogSink) OnMessage(text string) {
	log.Printf("INFO: [chat] %s", text)
}

func (LogSink) OnTyping(text string) {
	if text != "" {
		log.Printf("INFO: [typing] %s", text)
	}
}

func (LogSink) OnClientConnected(addr string) {
	log.Printf("INFO: [roster] %s joined", addr)
}

func (LogSink) OnClientDisconnected() {
	log.Printf("INFO: [roster] a client left")
}

func (LogSink) OnStats(st Stats) {
	log.Printf("INFO: [stats] active=%d uptime=%s", st.Active, st.Uptime.Truncate(time.Second))
}

// MultiSink fans every notification out to each member in order.
type MultiSink []Sink

func (m MultiSink) OnMessage(text string) {
	for _, s := range m {
		s.OnMessage(text)
	}
}

func (m MultiSink) OnTyping(text string) {
	for _, s := range m {
		s.OnTyping(text)
	}
}

func (m MultiSink) OnClientConnected(addr string) {
	for _, s := range m {
		s.OnClientConnected(addr)
	}
}

func (m MultiSink) OnClientDisconnected() {
	for _, s := range m {
		s.OnClientDisconnected()
	}
}

func (m MultiSink) OnStats(st Stats) {
	for _, s := range m {
		if ss, ok := s.(StatsSink); ok {
			ss.OnStats(st)
		}
	}
}

type nopSink struct{}

func (nopSink) OnMessage(string)         {}
func (nopSink) OnTyping(string)          {}
func (nopSink) OnClientConnected(string) {}
func (nopSink) OnClientDisconnected()    {}
