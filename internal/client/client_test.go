package client

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/epokhe/kvs/internal/engine"
	"github.com/epokhe/kvs/internal/pool"
	"github.com/epokhe/kvs/internal/server"
)

func startTestServer(t *testing.T) string {
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

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	srv := server.New(eng, workers)
	done := make(chan error, 1)
	go func() { done <- srv.Start(addr) }()
	t.Cleanup(func() {
		srv.Shutdown()
		<-done
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server never started listening on %s", addr)
	return ""
}

func TestClientSetGetRemove(t *testing.T) {
	addr := startTestServer(t)
	c := New(addr)

	require.NoError(t, c.Set("k", "v1"))

	val, err := c.Get("k")
	require.NoError(t, err)
	require.NotNil(t, val)
	require.Equal(t, "v1", *val)

	require.NoError(t, c.Remove("k"))

	val, err = c.Get("k")
	require.NoError(t, err)
	require.Nil(t, val)
}

func TestClientGetMissingKeyIsNilNotError(t *testing.T) {
	addr := startTestServer(t)
	c := New(addr)

	val, err := c.Get("never-set")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != nil {
		t.Errorf("expected None, got %v", *val)
	}
}

func TestClientRemoveMissingKeyIsRemoteError(t *testing.T) {
	addr := startTestServer(t)
	c := New(addr)

	err := c.Remove("never-set")
	if err == nil {
		t.Fatal("expected an error removing a missing key")
	}
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Errorf("expected a *RemoteError, got %T: %v", err, err)
	}
}
