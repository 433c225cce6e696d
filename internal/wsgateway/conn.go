package wsgateway

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeGrace bounds the close frame. Close runs under the relay's registry
// lock, so a peer that has stopped reading must not hold it for long.
const closeGrace = 100 * time.Millisecond

// Conn adapts a WebSocket connection to the relay's byte-stream transport.
// Each inbound text message becomes one newline-terminated frame; each
// outbound frame is sent as one text message without its terminator.
type Conn struct {
	ws *websocket.Conn

	readMu  sync.Mutex
	pending []byte

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an upgraded connection. maxMessage bounds inbound message
// size (0 leaves gorilla's default of no limit).
func NewConn(ws *websocket.Conn, maxMessage int64) *Conn {
	if maxMessage > 0 {
		ws.SetReadLimit(maxMessage)
	}
	return &Conn{ws: ws}
}

// Read returns bytes from the current message, fetching the next one when
// it is exhausted. A single Read never spans two messages.
func (c *Conn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for len(c.pending) == 0 {
		kind, msg, err := c.ws.ReadMessage()
		if err != nil {
			return 0, translateReadError(err)
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		if len(msg) == 0 {
			continue
		}
		if msg[len(msg)-1] != '\n' {
			msg = append(msg, '\n')
		}
		c.pending = msg
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write sends p as one text message, minus a single trailing newline.
func (c *Conn) Write(p []byte) (int, error) {
	msg := p
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a best-effort close frame and closes the socket. Later calls
// return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(closeGrace)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *Conn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *Conn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }

func translateReadError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return io.EOF
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}
