package broker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"

	"golang.org/x/time/rate"

	"github.com/stlalpha/tagrelay/internal/frame"
	"github.com/stlalpha/tagrelay/internal/logging"
	"github.com/stlalpha/tagrelay/internal/session"
)

// Notices shown on the sink.
const (
	disconnectNotice = "❌ A client has disconnected."
	typingSuffix     = " is typing..."
)

// wire returns an EncodeFunc that sends the same newline-framed bytes to
// every recipient.
func wire(f frame.Frame) session.EncodeFunc {
	payload := frame.Wire(f)
	return func(*session.Session) []byte { return payload }
}

// receiveLoop reads frames from one session until the peer closes, the
// transport fails, the peer asks to STOP, or the session is kicked.
func (b *Broker) receiveLoop(s *session.Session) {
	defer b.loops.Done()
	defer b.finish(s)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic handling %s: %v", s.Addr(), r)
		}
	}()

	reader := frame.NewReader(s.Transport(), frame.Options{
		Mode:      b.cfg.Framing,
		MaxLine:   b.cfg.MaxLine,
		ChunkSize: b.cfg.ChunkSize,
	})

	// Closing the session (kick, idle sweep, shutdown) releases a frame
	// parked in the flood limiter.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	var limiter *rate.Limiter
	for {
		raw, err := reader.Next()
		if err != nil {
			b.logReadEnd(s, err)
			return
		}
		// Lines still buffered after a kick are dropped.
		if !s.Alive() {
			logging.Debug("%s closed, dropping buffered input", s.Addr())
			return
		}
		s.Touch()

		limiter = adjustLimiter(limiter, b.currentLimits())
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil && s.Alive() {
				log.Printf("WARN: Flood limiter for %s: %v", s.Addr(), err)
			}
			if !s.Alive() {
				logging.Debug("%s closed while throttled", s.Addr())
				return
			}
		}

		if stop := b.dispatch(s, raw); stop {
			log.Printf("INFO: %s (%s) sent STOP, closing session", s.Addr(), s.Name())
			return
		}
	}
}

func (b *Broker) logReadEnd(s *session.Session, err error) {
	switch {
	case errors.Is(err, io.EOF):
		logging.Debug("%s closed the connection", s.Addr())
	case !s.Alive() || errors.Is(err, net.ErrClosed):
		logging.Debug("%s transport closed locally", s.Addr())
	case errors.Is(err, frame.ErrLineTooLong):
		log.Printf("WARN: %s sent an over-long line, closing session", s.Addr())
	default:
		log.Printf("WARN: Read from %s failed: %v", s.Addr(), err)
	}
}

// adjustLimiter creates, retunes or drops the per-session limiter so it
// follows hot-reloaded limits. Frames are delayed, never discarded.
func adjustLimiter(l *rate.Limiter, lim Limits) *rate.Limiter {
	if lim.FloodRate <= 0 {
		return nil
	}
	burst := lim.FloodBurst
	if burst < 1 {
		burst = 1
	}
	if l == nil {
		return rate.NewLimiter(rate.Limit(lim.FloodRate), burst)
	}
	if l.Limit() != rate.Limit(lim.FloodRate) {
		l.SetLimit(rate.Limit(lim.FloodRate))
	}
	if l.Burst() != burst {
		l.SetBurst(burst)
	}
	return l
}

// dispatch applies one raw read unit and reports whether the peer asked to
// end the session.
func (b *Broker) dispatch(s *session.Session, raw string) bool {
	f := frame.Decode(raw)
	logging.Debug("%s -> %s %q", s.Addr(), f.Kind, raw)

	switch f.Kind {
	case frame.KindUsernameChanged:
		name := frame.NormalizeName(f.Name)
		if name == "" {
			log.Printf("WARN: %s sent an empty username, ignoring", s.Addr())
			break
		}
		old, ok := b.registry.RenameAndBroadcast(s.ID(), name, wire(frame.UsernameChanged(name)))
		if !ok {
			break
		}
		log.Printf("INFO: %s renamed %q -> %q", s.Addr(), old, name)
		b.sink.OnMessage(fmt.Sprintf("🗣️ %s changed their name to %s", old, name))

	case frame.KindTypingStarted:
		b.registry.Broadcast(wire(frame.TypingStarted(f.Name)), s.ID())
		b.sink.OnTyping(f.Name + typingSuffix)

	case frame.KindTypingStopped:
		b.registry.Broadcast(wire(frame.TypingStopped()), s.ID())
		b.sink.OnTyping("")

	case frame.KindChatMessage:
		line := f.Rendered()
		b.registry.Broadcast(wire(frame.Relayed(line)), s.ID())
		b.sink.OnMessage(line)

	default:
		// Relayed and PlainLine content is already displayable.
		if f.Text != "" {
			b.sink.OnMessage(f.Text)
		}
	}

	return frame.IsStop(raw)
}

// finish is the single exit path of a receive loop: unregister and close,
// then notify the sink exactly once.
func (b *Broker) finish(s *session.Session) {
	b.registry.Remove(s.ID())
	s.Close()

	log.Printf("INFO: Disconnected %s (%s)", s.Addr(), s.Name())
	b.sink.OnMessage(disconnectNotice)
	b.sink.OnClientDisconnected()
}
