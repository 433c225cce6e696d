// Package wsgateway lets browser and other WebSocket peers join the relay.
// Each upgraded connection is attached to the broker as an ordinary session.
package wsgateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stlalpha/tagrelay/internal/session"
)

// Attacher registers a transport with the relay. *broker.Broker satisfies it.
type Attacher interface {
	Attach(t session.Transport) *session.Session
}

// Config holds gateway settings.
type Config struct {
	Addr       string // host:port for the HTTP listener
	Path       string // upgrade endpoint, default "/ws"
	MaxMessage int64  // inbound message limit in bytes, 0 = unlimited
}

// Gateway is an HTTP server with a single WebSocket upgrade endpoint.
type Gateway struct {
	cfg      Config
	relay    Attacher
	upgrader websocket.Upgrader

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a gateway that attaches upgraded connections to relay.
func New(cfg Config, relay Attacher) *Gateway {
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	return &Gateway{
		cfg:   cfg,
		relay: relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The relay has no authentication; any origin may join.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler serving the upgrade endpoint.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(g.cfg.Path, g.handleUpgrade)
	return mux
}

func (g *Gateway) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		log.Printf("WARN: WebSocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	if g.relay.Attach(NewConn(ws, g.cfg.MaxMessage)) == nil {
		log.Printf("WARN: WebSocket peer %s refused by relay", r.RemoteAddr)
	}
}

// Listen binds the gateway address.
func (g *Gateway) Listen() error {
	listener, err := net.Listen("tcp", g.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", g.cfg.Addr, err)
	}
	g.mu.Lock()
	g.listener = listener
	g.server = &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.mu.Unlock()

	log.Printf("INFO: WebSocket gateway listening on ws://%s%s", listener.Addr(), g.cfg.Path)
	return nil
}

// Addr is the bound address, or nil before Listen.
func (g *Gateway) Addr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listener == nil {
		return nil
	}
	return g.listener.Addr()
}

// Serve handles HTTP until Shutdown. It returns nil on clean shutdown.
func (g *Gateway) Serve() error {
	g.mu.Lock()
	server, listener := g.server, g.listener
	g.mu.Unlock()
	if server == nil {
		return errors.New("gateway is not listening")
	}

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket gateway: %w", err)
	}
	return nil
}

// Shutdown stops accepting upgrades. Sessions already attached belong to the
// broker and are closed by its own shutdown.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	server := g.server
	g.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
