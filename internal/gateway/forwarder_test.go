package gateway

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nxtreaming/mcpcore/internal/pool"
	"github.com/nxtreaming/mcpcore/internal/protocol"
)

// echoServer accepts connections until stopped and, on each, echoes
// every line it receives, upper-cased, until the connection closes.
func echoServer(t *testing.T) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				scanner := bufio.NewScanner(conn)
				for scanner.Scan() {
					conn.Write([]byte(strings.ToUpper(scanner.Text()) + "\n"))
				}
			}()
		}
	}()
	return ln.Addr().String(), func() { ln.Close() }
}

func TestForwarder_ForwardRoundTrips(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)

	cp, err := pool.NewConnectionPool(pool.ConnConfig{
		Host: host, Port: port, Min: 0, Max: 2, ConnectTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer cp.Close()

	fwd := New(map[string]*pool.ConnectionPool{"echo": cp})
	backend := &protocol.BackendInfo{Name: "echo"}

	resp, err := fwd.Forward(backend, []byte("hello"), time.Second, time.Second, time.Second)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	if string(resp) != "HELLO" {
		t.Fatalf("expected echoed uppercase response, got %q", resp)
	}
}

func TestForwarder_UnknownBackend(t *testing.T) {
	fwd := New(map[string]*pool.ConnectionPool{})
	_, err := fwd.Forward(&protocol.BackendInfo{Name: "missing"}, []byte("x"), time.Second, time.Second, time.Second)
	if err == nil {
		t.Fatal("expected error for unconfigured backend")
	}
}
