package dialer

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oxchat/torway/internal/conn"
	"github.com/oxchat/torway/internal/proxyconf"
	"github.com/oxchat/torway/internal/socks5"
	"github.com/oxchat/torway/internal/testutil"
)

func testConfig() Config {
	return Config{DialTimeout: 2 * time.Second, NegotiationTimeout: 2 * time.Second}
}

// handleSOCKS5Connect serves one CONNECT on c the way a SOCKS5 proxy would,
// relaying to the requested target.
func handleSOCKS5Connect(ctx context.Context, c net.Conn, auth *socks5.Auth) error {
	if err := socks5.ServerNegotiate(c, auth); err != nil {
		return err
	}
	req, err := socks5.ServerReadRequest(c)
	if err != nil {
		return err
	}

	dst, err := net.Dial("tcp", req.Address())
	if err != nil {
		socks5.WriteConnectionRefusedReply(c, req.Atyp)
		return err
	}
	defer dst.Close()

	if err := socks5.WriteSuccessReply(c, dst.LocalAddr()); err != nil {
		return err
	}

	return conn.CopyBidirectional(ctx, c, dst, 0)
}

func TestProxyProviderDirect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	defer echoLn.Close()

	p := NewProxyProvider(NewTCPProvider(testConfig()), proxyconf.Direct{}, testConfig())

	c, err := p.DialContext(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	testutil.AssertEcho(t, c, c, []byte("hello"))
}

func TestProxyProviderSOCKS5(t *testing.T) {
	tests := []struct {
		name string
		auth *proxyconf.Auth
	}{
		{name: "no_auth"},
		{name: "user_pass", auth: &proxyconf.Auth{Username: "user", Password: "pass"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			echoLn := testutil.StartEchoTCPServer(t, ctx)
			defer echoLn.Close()

			var serverAuth *socks5.Auth
			if tt.auth != nil {
				serverAuth = &socks5.Auth{Username: tt.auth.Username, Password: tt.auth.Password}
			}
			upLn, waitUp := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
				_ = handleSOCKS5Connect(ctx, c, serverAuth)
			})

			cfg := proxyconf.SOCKS5{
				Addr: netip.MustParseAddrPort(upLn.Addr().String()),
				Auth: tt.auth,
			}
			p := NewProxyProvider(NewTCPProvider(testConfig()), cfg, testConfig())

			c, err := p.DialContext(ctx, "tcp", echoLn.Addr().String())
			if err != nil {
				t.Fatal(err)
			}

			testutil.AssertEcho(t, c, c, []byte("hello"))

			// The handler relays until the client side goes away.
			_ = c.Close()
			waitUp()
		})
	}
}

func TestProxyProviderSOCKS5AuthRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	upLn, waitUp := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		_ = handleSOCKS5Connect(ctx, c, &socks5.Auth{Username: "user", Password: "right"})
	})

	cfg := proxyconf.SOCKS5{
		Addr: netip.MustParseAddrPort(upLn.Addr().String()),
		Auth: &proxyconf.Auth{Username: "user", Password: "wrong"},
	}
	p := NewProxyProvider(NewTCPProvider(testConfig()), cfg, testConfig())

	_, err := p.DialContext(ctx, "tcp", "127.0.0.1:1")
	if !errors.Is(err, socks5.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed got %v", err)
	}

	waitUp()
}

func TestProxyProviderProxyUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Grab a port that is not listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	proxyAddr := ln.Addr().String()
	_ = ln.Close()

	cfg := proxyconf.SOCKS5{Addr: netip.MustParseAddrPort(proxyAddr)}
	p := NewProxyProvider(NewTCPProvider(testConfig()), cfg, testConfig())

	if _, err := p.DialContext(ctx, "tcp", "127.0.0.1:1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestProxyProviderDynamic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	defer echoLn.Close()

	var viaProxy atomic.Int64
	upLn := testutil.StartAcceptServer(t, ctx, func(c net.Conn) {
		viaProxy.Add(1)
		_ = handleSOCKS5Connect(ctx, c, nil)
	})
	defer upLn.Close()

	proxyAddr := netip.MustParseAddrPort(upLn.Addr().String())

	var useProxy atomic.Bool
	resolver := proxyconf.ResolverFunc(func(netip.AddrPort) proxyconf.Config {
		if useProxy.Load() {
			return proxyconf.SOCKS5{Addr: proxyAddr}
		}
		return nil
	})

	p := NewProxyProvider(NewTCPProvider(testConfig()), proxyconf.Dynamic{Resolver: resolver}, testConfig())

	// Direct while the resolver returns nothing.
	c, err := p.DialContext(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEcho(t, c, c, []byte("direct"))
	_ = c.Close()
	if got := viaProxy.Load(); got != 0 {
		t.Fatalf("expected no proxied dials, got %d", got)
	}

	// Routed once the resolver switches; the provider itself is untouched.
	useProxy.Store(true)
	c, err = p.DialContext(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEcho(t, c, c, []byte("proxied"))
	_ = c.Close()
	if got := viaProxy.Load(); got != 1 {
		t.Fatalf("expected 1 proxied dial, got %d", got)
	}
}

func TestProxyProviderRejectsNonTCP(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	p := NewProxyProvider(NewTCPProvider(testConfig()), proxyconf.Direct{}, testConfig())

	if _, err := p.DialContext(ctx, "udp", "127.0.0.1:53"); err == nil {
		t.Fatal("expected error")
	}
}

func TestProxyProviderUnresolvedTarget(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := proxyconf.SOCKS5{Addr: netip.MustParseAddrPort("127.0.0.1:1080")}
	p := NewProxyProvider(NewTCPProvider(testConfig()), cfg, testConfig())

	_, err := p.DialContext(ctx, "tcp", "localhost:80")
	if !errors.Is(err, ErrUnresolvedTarget) {
		t.Fatalf("expected ErrUnresolvedTarget got %v", err)
	}
}

func TestProxyProviderListenPassthrough(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Listening is never proxied, even with a proxy configured.
	cfg := proxyconf.SOCKS5{Addr: netip.MustParseAddrPort("127.0.0.1:1080")}
	p := NewProxyProvider(NewTCPProvider(testConfig()), cfg, testConfig())

	ln, err := p.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		_, _ = c.Write([]byte("hi"))
	}()

	c, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	buf := make([]byte, 2)
	if _, err := io.ReadFull(c, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "hi" {
		t.Fatalf("expected %q got %q", "hi", string(buf))
	}
}
