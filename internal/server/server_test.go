package server

import (
	"net"
	"testing"
	"time"

	"github.com/epokhe/kvs/internal/engine"
	"github.com/epokhe/kvs/internal/pool"
	"github.com/epokhe/kvs/internal/wire"
)

func setupTestServer(t *testing.T) (*Server, *engine.Engine, *pool.Pool) {
	t.Helper()

	dir := t.TempDir()
	eng, err := engine.Open(dir)
	if err != nil {
		t.Fatalf("engine.Open: %v", err)
	}
	t.Cleanup(func() { eng.Close() })

	workers, err := pool.New(4)
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	t.Cleanup(workers.Close)

	return New(eng, workers), eng, workers
}

// TestShutdownBeforeAnyConnection covers scenario 5: a server is started,
// then shut down from another goroutine before any client ever connects,
// and Start must still return cleanly.
func TestShutdownBeforeAnyConnection(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	done := make(chan error, 1)
	go func() {
		done <- srv.Start("127.0.0.1:0")
	}()

	// Give Start a moment to reach its accept loop before asking it to
	// stop; Shutdown is safe to call regardless of timing, but this keeps
	// the test honest about what it's exercising.
	time.Sleep(20 * time.Millisecond)
	srv.Shutdown()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestSetGetRemoveRoundTrip(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	done := make(chan error, 1)
	go func() { done <- srv.Start(addr) }()
	defer func() {
		srv.Shutdown()
		<-done
	}()

	// Start binds asynchronously; poll until the listener accepts
	// connections rather than sleeping a fixed guess.
	waitForListener(t, addr)

	setResp := sendSetRequest(t, addr, "foo", "bar")
	if !setResp.IsOk() {
		t.Fatalf("Set response not ok: %s", setResp.ErrMsg())
	}

	getResp := sendGetRequest(t, addr, "foo")
	if !getResp.IsOk() {
		t.Fatalf("Get response not ok: %s", getResp.ErrMsg())
	}
	if getResp.Value() == nil || *getResp.Value() != "bar" {
		t.Errorf("Get returned %v, want Some(bar)", getResp.Value())
	}

	removeResp := sendRemoveRequest(t, addr, "foo")
	if !removeResp.IsOk() {
		t.Fatalf("Remove response not ok: %s", removeResp.ErrMsg())
	}

	getResp = sendGetRequest(t, addr, "foo")
	if !getResp.IsOk() {
		t.Fatalf("Get after remove not ok: %s", getResp.ErrMsg())
	}
	if getResp.Value() != nil {
		t.Errorf("expected None after remove, got %v", *getResp.Value())
	}

	removeResp = sendRemoveRequest(t, addr, "foo")
	if removeResp.IsOk() {
		t.Error("expected RemoveErr for an already-removed key")
	}
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server never started listening on %s", addr)
}

func sendSetRequest(t *testing.T, addr, key, value string) wire.SetResponse {
	t.Helper()
	conn := dial(t, addr)
	defer conn.Close()

	buf, err := wire.NewSetRequest(key, value).Encode()
	if err != nil {
		t.Fatalf("encode set request: %v", err)
	}
	if _, err := conn.Write(buf); err != nil {
		t.Fatalf("write set request: %v", err)
	}
	resp, err := wire.DecodeSetResponse(conn)
	if err != nil {
		t.Fatalf("decode set response: %v", err)
	}
	return resp
}

func sendGetRequest(t *testing.T, addr, key string) wire.GetResponse {
	t.Helper()
	conn := dial(t, addr)
	defer conn.Close()

	buf, err := wire.NewGetRequest(key).Encode()
	if err != nil {
		t.Fatalf("encode get request: %v", err)
	}
	if _, err := conn.Write(buf); err != nil {
		t.Fatalf("write get request: %v", err)
	}
	resp, err := wire.DecodeGetResponse(conn)
	if err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	return resp
}

func sendRemoveRequest(t *testing.T, addr, key string) wire.RemoveResponse {
	t.Helper()
	conn := dial(t, addr)
	defer conn.Close()

	buf, err := wire.NewRemoveRequest(key).Encode()
	if err != nil {
		t.Fatalf("encode remove request: %v", err)
	}
	if _, err := conn.Write(buf); err != nil {
		t.Fatalf("write remove request: %v", err)
	}
	resp, err := wire.DecodeRemoveResponse(conn)
	if err != nil {
		t.Fatalf("decode remove response: %v", err)
	}
	return resp
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	return conn
}
