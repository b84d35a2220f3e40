package conn

import (
	"context"
	"io"
	"net"
	"testing"
	"time"
)

// tcpPair returns two ends of a real TCP connection.
func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	type result struct {
		c   net.Conn
		err error
	}
	accepted := make(chan result, 1)
	go func() {
		c, err := ln.Accept()
		accepted <- result{c, err}
	}()

	dialed, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	r := <-accepted
	if r.err != nil {
		_ = dialed.Close()
		t.Fatal(r.err)
	}
	return dialed, r.c
}

func TestCopyBidirectionalRelays(t *testing.T) {
	clientSide, leftInner := tcpPair(t)
	rightInner, serverSide := tcpPair(t)

	done := make(chan error, 1)
	go func() {
		done <- CopyBidirectional(context.Background(), leftInner, rightInner, 0)
	}()

	// client -> server
	if _, err := clientSide.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(serverSide, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "ping" {
		t.Fatalf("expected %q got %q", "ping", string(buf))
	}

	// server -> client
	if _, err := serverSide.Write([]byte("pong")); err != nil {
		t.Fatal(err)
	}
	if _, err := io.ReadFull(clientSide, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "pong" {
		t.Fatalf("expected %q got %q", "pong", string(buf))
	}

	// One endpoint closing tears the relay down.
	_ = clientSide.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean teardown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after endpoint close")
	}

	// And the other endpoint sees EOF.
	if _, err := serverSide.Read(buf); err != io.EOF {
		t.Fatalf("expected EOF got %v", err)
	}
}

func TestCopyBidirectionalContextCancel(t *testing.T) {
	clientSide, leftInner := tcpPair(t)
	defer clientSide.Close()
	rightInner, serverSide := tcpPair(t)
	defer serverSide.Close()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- CopyBidirectional(ctx, leftInner, rightInner, 0)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}

func TestListenTCP(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ln, err := ListenTCP(ctx, "tcp", "127.0.0.1:0", net.KeepAliveConfig{Enable: true})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		c, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			return
		}
		defer c.Close()
		_, _ = c.Write([]byte("x"))
	}()

	c, err := ln.Accept()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	buf := make([]byte, 1)
	if _, err := io.ReadFull(c, buf); err != nil {
		t.Fatal(err)
	}
}
