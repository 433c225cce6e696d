package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by Send once the session's transport has been closed.
var ErrClosed = errors.New("session closed")

// Transport is the byte stream a Session owns. *net.TCPConn satisfies it, as
// does the WebSocket gateway's connection adapter.
type Transport interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
	SetWriteDeadline(t time.Time) error
}

// Session is the relay's live handle on one connected peer.
type Session struct {
	id          string
	transport   Transport
	addr        string
	port        int
	connectedAt time.Time

	mu   sync.RWMutex // guards name; writers hold the Registry lock as well
	name string

	writeMu      sync.Mutex // serialises writes to transport
	writeTimeout atomic.Int64
	lastActive   atomic.Int64
	alive        atomic.Bool
	closeOnce    sync.Once
	done         chan struct{}
}

// New wraps an accepted transport. The display name starts as the
// Client-<port> placeholder.
func New(t Transport) *Session {
	addr := "unknown"
	if ra := t.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	port := portOf(addr)

	now := time.Now()
	s := &Session{
		id:          uuid.NewString(),
		transport:   t,
		addr:        addr,
		port:        port,
		connectedAt: now,
		name:        PlaceholderName(port),
		done:        make(chan struct{}),
	}
	s.lastActive.Store(now.UnixNano())
	s.alive.Store(true)
	return s
}

// PlaceholderName is the name a peer carries until it renames itself.
func PlaceholderName(port int) string {
	return "Client-" + strconv.Itoa(port)
}

func portOf(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 0
	}
	return port
}

func (s *Session) ID() string             { return s.id }
func (s *Session) Addr() string           { return s.addr }
func (s *Session) Port() int              { return s.port }
func (s *Session) ConnectedAt() time.Time { return s.connectedAt }
func (s *Session) Alive() bool            { return s.alive.Load() }

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Transport exposes the underlying stream for the receive loop.
func (s *Session) Transport() Transport { return s.transport }

// Name returns the current display name.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// rename is only called by Registry while it holds its lock.
func (s *Session) rename(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.name
	s.name = name
	return old
}

// Touch records inbound activity.
func (s *Session) Touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// LastActive is the time of the most recent inbound frame (or connect).
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// SetWriteTimeout bounds each Send. Zero disables the deadline.
func (s *Session) SetWriteTimeout(d time.Duration) {
	s.writeTimeout.Store(int64(d))
}

// Send writes p to the peer. A failure means the peer is unreachable; the
// caller should carry on with other peers.
func (s *Session) Send(p []byte) error {
	if !s.alive.Load() {
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if d := time.Duration(s.writeTimeout.Load()); d > 0 {
		_ = s.transport.SetWriteDeadline(time.Now().Add(d))
	}
	if _, err := s.transport.Write(p); err != nil {
		return fmt.Errorf("send to %s: %w", s.addr, err)
	}
	return nil
}

// Close shuts the transport down. Only the first call does anything; later
// calls return nil.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.alive.Store(false)
		close(s.done)
		err = s.transport.Close()
	})
	return err
}
