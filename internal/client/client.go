// Package client is a small Go client for the relay: it frames outgoing
// renames, typing indicators and chat lines and decodes what the relay
// sends back.
package client

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/stlalpha/tagrelay/internal/frame"
	"github.com/stlalpha/tagrelay/internal/logging"
	"github.com/stlalpha/tagrelay/internal/session"
)

// ErrClosed is returned by senders after Close.
var ErrClosed = errors.New("client closed")

// Options configure Dial.
type Options struct {
	Name        string        // initial display name, announced on connect when set
	DialTimeout time.Duration // 0 = 10s
	MaxLine     int           // longest inbound frame, 0 = frame.DefaultMaxLine
}

// Client is one connection to a relay.
type Client struct {
	conn net.Conn

	mu      sync.Mutex
	name    string
	readErr error

	writeMu sync.Mutex

	events    chan frame.Frame
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the relay at addr and starts decoding inbound frames.
func Dial(addr string, opts Options) (*Client, error) {
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c := &Client{
		conn:   conn,
		events: make(chan frame.Frame, 64),
		done:   make(chan struct{}),
	}
	if tcp, ok := conn.LocalAddr().(*net.TCPAddr); ok {
		// The relay knows us by this name until we rename.
		c.name = session.PlaceholderName(tcp.Port)
	}
	go c.readLoop(opts.MaxLine)

	if name := frame.NormalizeName(opts.Name); name != "" {
		if err := c.Rename(name); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// Name is the display name last sent with Rename, or the relay's
// placeholder before that.
func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// LocalAddr is the client's end of the connection, as the relay lists it.
func (c *Client) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// Rename announces a new display name.
func (c *Client) Rename(name string) error {
	name = frame.NormalizeName(name)
	if name == "" {
		return errors.New("empty name")
	}
	if err := c.send(frame.UsernameChanged(name)); err != nil {
		return err
	}
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
	return nil
}

// Typing tells the other peers this client is composing a message.
func (c *Client) Typing() error {
	return c.send(frame.TypingStarted(c.Name()))
}

// StopTyping clears the typing indicator.
func (c *Client) StopTyping() error {
	return c.send(frame.TypingStopped())
}

// Say clears the typing indicator and sends text as a chat line. Tag
// sequences are stripped from the body first. It reports whether the
// sanitized line asks the relay to end this session.
func (c *Client) Say(text string) (stop bool, err error) {
	if err := c.StopTyping(); err != nil {
		return false, err
	}
	clean := frame.Sanitize(strings.TrimSpace(text))
	if clean == "" {
		return false, nil
	}
	if err := c.send(frame.ChatMessage(c.Name(), clean)); err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(clean), "STOP"), nil
}

// Events delivers decoded frames from the relay. It is closed when the
// connection ends; Err then reports why.
func (c *Client) Events() <-chan frame.Frame { return c.events }

// Err is the error that ended the read loop, nil for a clean close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Close disconnects. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) send(f frame.Frame) error {
	if c.closed() {
		return ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(frame.Wire(f)); err != nil {
		return fmt.Errorf("failed to send %s: %w", f.Kind, err)
	}
	return nil
}

func (c *Client) readLoop(maxLine int) {
	defer close(c.events)

	r := frame.NewReader(c.conn, frame.Options{Mode: frame.ModeLine, MaxLine: maxLine})
	for {
		raw, err := r.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) && !c.closed() {
				log.Printf("WARN: Relay connection lost: %v", err)
				c.mu.Lock()
				c.readErr = err
				c.mu.Unlock()
			}
			c.closeOnce.Do(func() {
				close(c.done)
				c.conn.Close()
			})
			return
		}
		f := frame.Decode(raw)
		logging.Debug("relay -> %s %q", f.Kind, raw)

		select {
		case c.events <- f:
		case <-c.done:
			return
		}
	}
}
