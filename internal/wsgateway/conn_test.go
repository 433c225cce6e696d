package wsgateway

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// pair returns a server-side Conn and the client socket talking to it.
func pair(t *testing.T) (*Conn, *websocket.Conn) {
	t.Helper()
	accepted := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		accepted <- ws
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case ws := <-accepted:
		c := NewConn(ws, 0)
		t.Cleanup(func() { c.Close() })
		return c, client
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted")
		return nil, nil
	}
}

func TestConnReadTerminatesEachMessage(t *testing.T) {
	c, client := pair(t)

	client.WriteMessage(websocket.TextMessage, []byte("#usern#Alice"))
	client.WriteMessage(websocket.TextMessage, []byte("#Alice#hi\n"))
	client.WriteMessage(websocket.TextMessage, []byte(""))
	client.WriteMessage(websocket.TextMessage, []byte("#writing#Alice"))

	r := bufio.NewReader(c)
	for _, want := range []string{"#usern#Alice\n", "#Alice#hi\n", "#writing#Alice\n"} {
		got, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestConnReadNeverSpansMessages(t *testing.T) {
	c, client := pair(t)

	client.WriteMessage(websocket.TextMessage, []byte("one"))
	client.WriteMessage(websocket.TextMessage, []byte("two"))

	buf := make([]byte, 64)
	n, err := c.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "one\n" {
		t.Errorf("first read %q, want %q", got, "one\n")
	}
	n, _ = c.Read(buf)
	if got := string(buf[:n]); got != "two\n" {
		t.Errorf("second read %q", got)
	}
}

func TestConnWriteSendsOneMessagePerFrame(t *testing.T) {
	c, client := pair(t)

	if _, err := c.Write([]byte("#other#Alice: hi\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != "#other#Alice: hi" {
		t.Errorf("got %q", msg)
	}
}

func TestConnNormalCloseIsEOF(t *testing.T) {
	c, client := pair(t)

	client.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	_, err := c.Read(make([]byte, 16))
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestConnCloseIdempotent(t *testing.T) {
	c, _ := pair(t)
	first := c.Close()
	if second := c.Close(); second != first {
		t.Errorf("second Close returned %v, first %v", second, first)
	}
}

func TestConnCloseBoundedWhenPeerStalls(t *testing.T) {
	c, _ := pair(t)

	// The client never reads, so the writer ends up blocked on a full
	// socket while holding the connection's write lock.
	payload := []byte(strings.Repeat("x", 64*1024) + "\n")
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			if _, err := c.Write(payload); err != nil {
				return
			}
		}
	}()
	time.Sleep(300 * time.Millisecond)

	start := time.Now()
	c.Close()
	if d := time.Since(start); d > 3*closeGrace {
		t.Errorf("Close took %v with a stalled peer", d)
	}

	select {
	case <-writerDone:
	case <-time.After(2 * time.Second):
		t.Error("blocked writer not released by Close")
	}
}
