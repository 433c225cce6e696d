package session

import (
	"log"
	"sort"
	"sync"
	"time"
)

// EncodeFunc renders the bytes for one broadcast recipient. Returning nil
// skips that recipient.
type EncodeFunc func(recipient *Session) []byte

// Registry is the authoritative table of connected sessions.
//
// A single mutex covers every read-modify-write sequence. Compound
// operations (rename then broadcast, remove then close) run inside one
// critical section so a send can never race a close.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Insert(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

// RenameAndBroadcast renames id and delivers encode's output to every other
// session without releasing the lock in between.
func (r *Registry) RenameAndBroadcast(id, name string, encode EncodeFunc) (old string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return "", false
	}
	old = s.rename(name)
	r.broadcastLocked(encode, id)
	return old, true
}

// Remove unregisters a session and closes its transport. Removing an
// unknown id is a no-op that reports false.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	delete(r.sessions, id)
	s.Close()
	return true
}

// RemoveAddr is Remove keyed by remote address, used for operator kicks.
func (r *Registry) RemoveAddr(addr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.addr == addr {
			delete(r.sessions, id)
			s.Close()
			return true
		}
	}
	return false
}

// Broadcast sends to every session except exclude (empty excludes none) and
// returns how many sends succeeded. A failed send is logged and skipped.
func (r *Registry) Broadcast(encode EncodeFunc, exclude string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcastLocked(encode, exclude)
}

func (r *Registry) broadcastLocked(encode EncodeFunc, exclude string) int {
	delivered := 0
	for id, s := range r.sessions {
		if id == exclude {
			continue
		}
		payload := encode(s)
		if payload == nil {
			continue
		}
		if err := s.Send(payload); err != nil {
			log.Printf("WARN: Broadcast to %s (%s) failed: %v", s.addr, s.Name(), err)
			continue
		}
		delivered++
	}
	return delivered
}

// CloseAll closes and unregisters every session. Individual close errors
// are ignored.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.sessions)
	for id, s := range r.sessions {
		s.Close()
		delete(r.sessions, id)
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sessions returns a snapshot ordered by connect time.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	result := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	r.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].connectedAt.Equal(result[j].connectedAt) {
			return result[i].addr < result[j].addr
		}
		return result[i].connectedAt.Before(result[j].connectedAt)
	})
	return result
}

// Peer is the presentation view of one session.
type Peer struct {
	Name string
	Addr string
}

// Roster returns every session's name and address in connect order, read
// from one snapshot so the pairs always match.
func (r *Registry) Roster() []Peer {
	sessions := r.Sessions()
	peers := make([]Peer, len(sessions))
	for i, s := range sessions {
		peers[i] = Peer{Name: s.Name(), Addr: s.addr}
	}
	return peers
}

// Names returns the display names in connect order.
func (r *Registry) Names() []string {
	sessions := r.Sessions()
	names := make([]string, len(sessions))
	for i, s := range sessions {
		names[i] = s.Name()
	}
	return names
}

// Addrs returns the remote addresses in connect order.
func (r *Registry) Addrs() []string {
	sessions := r.Sessions()
	addrs := make([]string, len(sessions))
	for i, s := range sessions {
		addrs[i] = s.addr
	}
	return addrs
}

// IdleSince lists sessions with no inbound activity after cutoff.
func (r *Registry) IdleSince(cutoff time.Time) []*Session {
	var idle []*Session
	for _, s := range r.Sessions() {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
		}
	}
	return idle
}
