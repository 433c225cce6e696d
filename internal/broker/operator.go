package broker

import (
	"log"
	"strings"
	"time"

	"github.com/stlalpha/tagrelay/internal/frame"
	"github.com/stlalpha/tagrelay/internal/session"
)

// Operator controls. These are what the console (or any other front end)
// drives; each is safe to call from any goroutine.

// LocalName is the identity the operator speaks under.
func (b *Broker) LocalName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.localName
}

// RenameLocalUser changes the operator identity and announces it to every
// peer. Blank names are ignored.
func (b *Broker) RenameLocalUser(name string) {
	name = frame.NormalizeName(name)
	if name == "" {
		return
	}
	b.mu.Lock()
	old := b.localName
	b.localName = name
	b.mu.Unlock()

	b.registry.Broadcast(wire(frame.UsernameChanged(name)), "")
	log.Printf("INFO: Operator renamed %q -> %q", old, name)
}

// LocalTyping tells every peer the operator is composing a message.
func (b *Broker) LocalTyping() {
	name := b.LocalName()
	b.registry.Broadcast(wire(frame.TypingStarted(name)), "")
	b.sink.OnTyping(name + typingSuffix)
}

// SendLocalMessage clears the typing indicator and broadcasts text as a
// chat message under the operator identity. A sanitized body of STOP shuts
// the relay down after it has been delivered.
func (b *Broker) SendLocalMessage(text string) {
	msg := strings.TrimSpace(text)
	b.sink.OnTyping("")
	if msg == "" {
		return
	}

	name := b.LocalName()
	clean := frame.Sanitize(msg)
	b.registry.Broadcast(wire(frame.TypingStopped()), "")
	b.registry.Broadcast(wire(frame.ChatMessage(name, clean)), "")
	b.sink.OnMessage(name + ": " + clean)

	if strings.EqualFold(strings.TrimSpace(clean), "STOP") {
		log.Printf("INFO: Operator sent STOP, shutting down")
		b.Shutdown()
	}
}

// ListConnected returns the ip:port of every connected peer in connect
// order.
func (b *Broker) ListConnected() []string {
	return b.registry.Addrs()
}

// ConnectedNames returns every peer's display name in connect order.
func (b *Broker) ConnectedNames() []string {
	return b.registry.Names()
}

// Roster pairs each peer's display name with its address, for operators
// choosing a kick target.
func (b *Broker) Roster() []session.Peer {
	return b.registry.Roster()
}

// Kick disconnects the peer at addr. The session's receive loop performs
// the usual disconnect notification. Kicking an unknown address is a no-op
// that reports false.
func (b *Broker) Kick(addr string) bool {
	if !b.registry.RemoveAddr(addr) {
		return false
	}
	log.Printf("INFO: Operator kicked %s", addr)
	b.sink.OnMessage("⚠️ Client " + addr + " was kicked.")
	return true
}

// Stats summarises the relay for status displays.
func (b *Broker) Stats() Stats {
	st := Stats{
		Active:    b.registry.Len(),
		Uptime:    time.Since(b.startedAt),
		LocalName: b.LocalName(),
	}
	if addr := b.Addr(); addr != nil {
		st.Listening = addr.String()
	}
	return st
}

// PublishStats pushes the current Stats to the sink if it displays them.
func (b *Broker) PublishStats() {
	if ss, ok := b.sink.(StatsSink); ok {
		ss.OnStats(b.Stats())
	}
}

// ApplyLimits swaps in hot-reloaded limits. Existing sessions pick up the
// new write timeout immediately and the flood limits on their next frame.
func (b *Broker) ApplyLimits(l Limits) {
	b.mu.Lock()
	b.limits = l
	b.mu.Unlock()

	for _, s := range b.registry.Sessions() {
		s.SetWriteTimeout(l.WriteTimeout)
	}
	log.Printf("INFO: Limits updated (write timeout %v, idle timeout %v, flood %.1f/s burst %d)",
		l.WriteTimeout, l.IdleTimeout, l.FloodRate, l.FloodBurst)
}

// SweepIdle kicks every session silent for longer than the idle timeout and
// returns how many were removed. It does nothing when the timeout is zero.
func (b *Broker) SweepIdle(now time.Time) int {
	timeout := b.currentLimits().IdleTimeout
	if timeout <= 0 {
		return 0
	}
	kicked := 0
	for _, s := range b.registry.IdleSince(now.Add(-timeout)) {
		if b.registry.Remove(s.ID()) {
			log.Printf("INFO: Idle timeout: closed %s (%s), silent since %s",
				s.Addr(), s.Name(), s.LastActive().Format(time.TimeOnly))
			kicked++
		}
	}
	return kicked
}
