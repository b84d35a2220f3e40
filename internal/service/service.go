package service

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/oxchat/torway/internal/dialer"
	"github.com/oxchat/torway/internal/logger"
	"github.com/oxchat/torway/internal/proxyconf"
	"github.com/oxchat/torway/internal/socks5"
	"github.com/oxchat/torway/internal/state"
)

// Options configures a Service.
type Options struct {
	DialTimeout        time.Duration
	NegotiationTimeout time.Duration
	IOTimeout          time.Duration
	KeepAlive          net.KeepAliveConfig

	// GatewayAuth, when set, requires username/password authentication
	// from local SOCKS5 clients.
	GatewayAuth *socks5.Auth

	// NewClient bootstraps the network client during Start. Defaults to
	// NewNetClient.
	NewClient ClientFactory
}

// Service owns the gateway lifecycle and the runtime proxy state. The
// zero-to-Running transition happens in Start; SetProxy may be called at any
// time, before or while running.
type Service struct {
	opts    Options
	proxies *state.Store

	mu  sync.Mutex
	run *running
}

type running struct {
	port   uint16
	client Client
	ln     net.Listener
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a stopped Service with no proxy configured.
func New(opts Options) *Service {
	if opts.NewClient == nil {
		opts.NewClient = NewNetClient
	}
	return &Service{opts: opts, proxies: state.NewStore()}
}

// Start bootstraps the client and binds the local SOCKS5 gateway to
// socksPort on localhost (0 picks a free port), returning the bound port.
// If the service is already running, Start returns the existing port
// without side effects. When useSystemProxy is set, outbound dials consult
// the runtime proxy state per attempt; otherwise they are always direct.
// On any error the service is left stopped.
func (s *Service) Start(ctx context.Context, socksPort uint16, stateDir, cacheDir string, useSystemProxy bool) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run != nil {
		logger.Info("service already running", "port", s.run.port)
		return s.run.port, nil
	}

	cfg := dialer.Config{
		DialTimeout:        s.opts.DialTimeout,
		NegotiationTimeout: s.opts.NegotiationTimeout,
		KeepAlive:          s.opts.KeepAlive,
	}

	var proxy proxyconf.Config = proxyconf.Direct{}
	if useSystemProxy {
		proxy = proxyconf.Dynamic{Resolver: s.proxies}
	}
	provider := dialer.NewProxyProvider(dialer.NewTCPProvider(cfg), proxy, cfg)

	client, err := s.opts.NewClient(ctx, ClientConfig{
		StateDir: stateDir,
		CacheDir: cacheDir,
		Provider: provider,
	})
	if err != nil {
		return 0, fmt.Errorf("bootstrap client: %w", err)
	}

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(int(socksPort)))
	ln, err := provider.Listen(ctx, "tcp", addr)
	if err != nil {
		_ = client.Close()
		return 0, fmt.Errorf("gateway listen: %w", err)
	}

	port := socksPort
	if ta, ok := ln.Addr().(*net.TCPAddr); ok {
		port = uint16(ta.Port)
	}

	gw := newGateway(client, gatewayConfig{
		NegotiationTimeout: s.opts.NegotiationTimeout,
		IOTimeout:          s.opts.IOTimeout,
		Auth:               s.opts.GatewayAuth,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := gw.serve(runCtx, ln); err != nil {
			logger.Error("gateway stopped", "err", err)
		}
	}()

	s.run = &running{port: port, client: client, ln: ln, cancel: cancel, done: done}
	logger.Info("service started", "port", port, "use_system_proxy", useSystemProxy)
	return port, nil
}

// Stop cancels the gateway and closes the client. It is idempotent; in-flight
// gateway connections are dropped, and the proxy state is left untouched.
func (s *Service) Stop() {
	s.mu.Lock()
	run := s.run
	s.run = nil
	s.mu.Unlock()

	if run == nil {
		return
	}

	run.cancel()
	_ = run.ln.Close()
	<-run.done
	_ = run.client.Close()
	logger.Info("service stopped", "port", run.port)
}

// SetProxy replaces the runtime proxy wholesale. A nil info clears it. The
// update applies to dial attempts that resolve afterwards; in-flight
// connections are unaffected.
func (s *Service) SetProxy(info *state.ProxyInfo) {
	s.proxies.Set(info)
	if info != nil {
		logger.Info("proxy updated", "address", info.Address, "port", info.Port, "kind", info.Kind, "auth", info.Username != nil || info.Password != nil)
	} else {
		logger.Info("proxy cleared")
	}
}

// Proxy returns a copy of the current runtime proxy, or nil if none is set.
func (s *Service) Proxy() *state.ProxyInfo {
	return s.proxies.Get()
}

// SetDormant forwards the dormancy request to the running client when it
// supports one. Otherwise, and when the service is stopped, it is a no-op
// beyond logging; there is nothing to suspend.
func (s *Service) SetDormant(soft bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run == nil {
		logger.Info("dormancy request ignored: service not running", "soft", soft)
		return
	}
	if d, ok := s.run.client.(Dormancy); ok {
		d.SetDormant(soft)
		return
	}
	logger.Info("client does not support dormancy", "soft", soft)
}
