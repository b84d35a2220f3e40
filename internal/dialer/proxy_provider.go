package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/oxchat/torway/internal/logger"
	"github.com/oxchat/torway/internal/proxyconf"
	"github.com/oxchat/torway/internal/socks5"
)

// ErrUnresolvedTarget is returned when a proxied dial is asked to reach a
// hostname. Proxy handshakes carry resolved socket addresses only; name
// resolution is the caller's job.
var ErrUnresolvedTarget = errors.New("dialer: target must be a resolved IP address")

// ProxyProvider decorates a Provider with proxy routing. Each DialContext
// resolves the effective proxy configuration for the target and either
// delegates to the wrapped provider or tunnels through the configured proxy.
// Listen passes through untouched: proxying applies to outbound dials only.
type ProxyProvider struct {
	inner Provider
	proxy proxyconf.Config
	cfg   Config
}

// NewProxyProvider wraps inner with the given proxy configuration. The
// configuration is fixed at construction; runtime-mutable behavior comes
// from a proxyconf.Dynamic resolver, not from the decorator itself.
func NewProxyProvider(inner Provider, proxy proxyconf.Config, cfg Config) *ProxyProvider {
	return &ProxyProvider{inner: inner, proxy: proxy, cfg: cfg}
}

// DialContext connects to address, directly or through the resolved proxy.
// Exactly one attempt is made; failures are not retried here.
func (p *ProxyProvider) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, fmt.Errorf("proxy dial %s %s: unsupported network", network, address)
	}

	target, targetErr := netip.ParseAddrPort(address)

	switch c := proxyconf.Resolve(p.proxy, target).(type) {
	case proxyconf.Direct:
		return p.inner.DialContext(ctx, network, address)
	case proxyconf.SOCKS5:
		if targetErr != nil {
			return nil, fmt.Errorf("socks5 proxy dial %s: %w", address, ErrUnresolvedTarget)
		}
		return p.dialSOCKS5(ctx, network, c, target)
	case proxyconf.HTTPConnect:
		if targetErr != nil {
			return nil, fmt.Errorf("http proxy dial %s: %w", address, ErrUnresolvedTarget)
		}
		return p.dialHTTPConnect(ctx, network, c, target)
	default:
		return nil, fmt.Errorf("proxy dial %s: unexpected configuration %T", address, c)
	}
}

// Listen delegates to the wrapped provider.
func (p *ProxyProvider) Listen(ctx context.Context, network, address string) (net.Listener, error) {
	return p.inner.Listen(ctx, network, address)
}

func (p *ProxyProvider) dialSOCKS5(ctx context.Context, network string, cfg proxyconf.SOCKS5, target netip.AddrPort) (net.Conn, error) {
	id := xid.New().String()
	logger.Debug("dialing via socks5 proxy", "conn_id", id, "proxy", cfg.Addr, "target", target, "auth", cfg.Auth != nil)

	c, err := p.inner.DialContext(ctx, network, cfg.Addr.String())
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy %s: %w", cfg.Addr, err)
	}

	var auth *socks5.Auth
	if cfg.Auth != nil {
		auth = &socks5.Auth{Username: cfg.Auth.Username, Password: cfg.Auth.Password}
	}

	if p.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Now().Add(p.cfg.NegotiationTimeout))
	}

	if err := socks5.ClientHandshake(c, auth, target); err != nil {
		_ = c.Close()
		logger.Debug("socks5 handshake failed", "conn_id", id, "proxy", cfg.Addr, "target", target, "err", err)
		return nil, fmt.Errorf("socks5 proxy %s connect %s: %w", cfg.Addr, target, err)
	}

	if p.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Time{})
	}

	logger.Debug("connected via socks5 proxy", "conn_id", id, "proxy", cfg.Addr, "target", target)
	return c, nil
}

func (p *ProxyProvider) dialHTTPConnect(ctx context.Context, network string, cfg proxyconf.HTTPConnect, target netip.AddrPort) (net.Conn, error) {
	id := xid.New().String()
	logger.Debug("dialing via http proxy", "conn_id", id, "proxy", cfg.Addr, "target", target, "auth", cfg.Auth != nil)

	c, err := p.inner.DialContext(ctx, network, cfg.Addr.String())
	if err != nil {
		return nil, fmt.Errorf("http proxy %s: %w", cfg.Addr, err)
	}

	if p.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Now().Add(p.cfg.NegotiationTimeout))
	}

	if err := httpConnect(c, cfg.Auth, target); err != nil {
		_ = c.Close()
		logger.Debug("http connect failed", "conn_id", id, "proxy", cfg.Addr, "target", target, "err", err)
		return nil, fmt.Errorf("http proxy %s connect %s: %w", cfg.Addr, target, err)
	}

	if p.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Time{})
	}

	logger.Debug("connected via http proxy", "conn_id", id, "proxy", cfg.Addr, "target", target)
	return c, nil
}
