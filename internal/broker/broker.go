// Package broker accepts peer connections, interprets their tagged-line
// frames against the session registry and fans the results out to the other
// peers and to a local Sink.
package broker

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/stlalpha/tagrelay/internal/frame"
	"github.com/stlalpha/tagrelay/internal/session"
)

// ErrNotListening is returned by Serve when Listen has not succeeded.
var ErrNotListening = errors.New("broker is not listening")

// Limits are the settings that can change while the relay is running.
type Limits struct {
	WriteTimeout time.Duration
	IdleTimeout  time.Duration // 0 disables the idle sweep
	FloodRate    float64       // frames per second per peer, 0 = unlimited
	FloodBurst   int
}

// Config holds broker configuration.
type Config struct {
	Addr        string // host:port to listen on
	ServerName  string // operator identity for local messages
	Framing     frame.Mode
	MaxLine     int
	ChunkSize   int
	MaxSessions int // 0 = unlimited
	Limits      Limits
}

// Broker is the relay. One goroutine accepts connections and one receive
// loop runs per session.
type Broker struct {
	cfg      Config
	sink     Sink
	registry *session.Registry

	mu        sync.Mutex
	listener  net.Listener
	localName string
	limits    Limits
	closed    bool
	startedAt time.Time

	shutdownOnce sync.Once
	done         chan struct{}
	loops        sync.WaitGroup
}

// New creates a broker. A nil sink discards notifications.
func New(cfg Config, sink Sink) *Broker {
	if sink == nil {
		sink = nopSink{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "Server"
	}
	if cfg.Addr == "" {
		cfg.Addr = "0.0.0.0:5000"
	}
	return &Broker{
		cfg:       cfg,
		sink:      sink,
		registry:  session.NewRegistry(),
		localName: cfg.ServerName,
		limits:    cfg.Limits,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// Registry exposes the session table, mainly for status displays.
func (b *Broker) Registry() *session.Registry { return b.registry }

// Done is closed once Shutdown has run.
func (b *Broker) Done() <-chan struct{} { return b.done }

// Listen binds the configured address. Failure here is fatal for the
// relay: nothing can be accepted without the socket.
func (b *Broker) Listen() error {
	listener, err := net.Listen("tcp", b.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", b.cfg.Addr, err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		listener.Close()
		return fmt.Errorf("failed to listen on %s: broker shut down", b.cfg.Addr)
	}
	b.listener = listener
	b.mu.Unlock()

	log.Printf("INFO: Relay listening on %s (framing: %s)", listener.Addr(), b.cfg.Framing)
	return nil
}

// Addr is the bound listener address, or nil before Listen.
func (b *Broker) Addr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return nil
	}
	return b.listener.Addr()
}

// ListenAndServe binds and then runs the accept loop until Shutdown.
func (b *Broker) ListenAndServe() error {
	if err := b.Listen(); err != nil {
		return err
	}
	return b.Serve()
}

// Serve runs the accept loop. It returns nil after Shutdown closes the
// listener. Transient accept errors are retried with back-off.
func (b *Broker) Serve() error {
	b.mu.Lock()
	listener := b.listener
	b.mu.Unlock()
	if listener == nil {
		return ErrNotListening
	}

	var backoff time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			if b.isClosed() {
				return nil // Clean shutdown
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept on %s: %w", listener.Addr(), err)
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff *= 2
			}
			if backoff > time.Second {
				backoff = time.Second
			}
			log.Printf("ERROR: Accept error: %v; retrying in %v", err, backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0
		b.Attach(conn)
	}
}

// Attach registers a freshly accepted transport and starts its receive
// loop. It returns nil if the relay is shut down or full; the transport is
// closed in that case.
func (b *Broker) Attach(t session.Transport) *session.Session {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		t.Close()
		return nil
	}
	if max := b.cfg.MaxSessions; max > 0 && b.registry.Len() >= max {
		b.mu.Unlock()
		log.Printf("WARN: Rejecting %s: relay full (%d sessions)", t.RemoteAddr(), max)
		t.Close()
		return nil
	}
	s := session.New(t)
	s.SetWriteTimeout(b.limits.WriteTimeout)
	b.registry.Insert(s)
	b.loops.Add(1)
	b.mu.Unlock()

	log.Printf("INFO: Connection from %s (%s)", s.Addr(), s.Name())
	b.sink.OnClientConnected(s.Addr())
	b.sink.OnMessage("🔌 New connection from " + s.Addr())

	go b.receiveLoop(s)
	return s
}

// Shutdown closes every session, then the listener. Safe to call more than
// once and from any goroutine.
func (b *Broker) Shutdown() {
	b.shutdownOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		listener := b.listener
		b.mu.Unlock()

		n := b.registry.CloseAll()
		if listener != nil {
			listener.Close()
		}
		close(b.done)
		log.Printf("INFO: Relay shut down (%d sessions closed)", n)
	})
}

// Wait blocks until every receive loop has exited.
func (b *Broker) Wait() {
	b.loops.Wait()
}

func (b *Broker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Broker) currentLimits() Limits {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limits
}
