package transport

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func TestTCP_ServesNewlineDelimitedMessages(t *testing.T) {
	tr := NewTCP("127.0.0.1:0", func(ctx context.Context, raw []byte, clientIdentity string) ([]byte, error) {
		return []byte(strings.ToUpper(string(raw))), nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	serveErrCh := make(chan error, 1)
	go func() {
		// Serve assigns the listener synchronously at the top, but we
		// need its address; poll briefly instead of racing the field.
		go func() { serveErrCh <- tr.Serve(ctx) }()
		for i := 0; i < 100; i++ {
			tr.mu.Lock()
			ln := tr.listener
			tr.mu.Unlock()
			if ln != nil {
				close(ready)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		close(ready)
	}()
	<-ready

	tr.mu.Lock()
	addr := tr.listener.Addr().String()
	tr.mu.Unlock()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(time.Second))
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatalf("expected a response line, scan error: %v", scanner.Err())
	}
	if scanner.Text() != "HELLO" {
		t.Fatalf("unexpected response: %q", scanner.Text())
	}

	cancel()
	select {
	case <-serveErrCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Serve to return after cancellation")
	}
}
