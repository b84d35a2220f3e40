package proxyconf

import "net/netip"

// Auth holds optional username/password credentials for an upstream proxy.
// Presence of an Auth value (not emptiness of its fields) is what enables
// authenticated negotiation.
type Auth struct {
	Username string
	Password string
}

// Config describes how to reach a target: directly, via a SOCKS5 or HTTP
// CONNECT proxy, or via a per-target resolver. It is a closed set; the only
// implementations are Direct, SOCKS5, HTTPConnect and Dynamic.
type Config interface {
	proxyConfig()
}

// Direct means no proxy; dials go straight to the target.
type Direct struct{}

// SOCKS5 routes dials through the SOCKS5 proxy at Addr.
type SOCKS5 struct {
	Addr netip.AddrPort
	Auth *Auth
}

// HTTPConnect routes dials through the HTTP CONNECT proxy at Addr.
type HTTPConnect struct {
	Addr netip.AddrPort
	Auth *Auth
}

// Dynamic computes the configuration per target at dial time. A Resolver
// must never return another Dynamic; Resolve guards against that.
type Dynamic struct {
	Resolver Resolver
}

func (Direct) proxyConfig()      {}
func (SOCKS5) proxyConfig()      {}
func (HTTPConnect) proxyConfig() {}
func (Dynamic) proxyConfig()     {}

// Resolver computes the proxy configuration for a target address. Returning
// nil means direct. Implementations must not block; they run inline on the
// dial path before any network I/O.
type Resolver interface {
	ProxyFor(target netip.AddrPort) Config
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(target netip.AddrPort) Config

// ProxyFor implements Resolver.
func (f ResolverFunc) ProxyFor(target netip.AddrPort) Config {
	return f(target)
}

// Resolve returns the effective configuration for target. The result is
// never Dynamic: Direct, SOCKS5 and HTTPConnect resolve to themselves, and
// Dynamic is resolved through its Resolver exactly once. A nil config, a
// nil or absent resolver result, and a resolver result that is itself
// Dynamic all resolve to Direct.
func Resolve(cfg Config, target netip.AddrPort) Config {
	d, ok := cfg.(Dynamic)
	if !ok {
		if cfg == nil {
			return Direct{}
		}
		return cfg
	}

	if d.Resolver == nil {
		return Direct{}
	}

	resolved := d.Resolver.ProxyFor(target)
	if resolved == nil {
		return Direct{}
	}
	if _, ok := resolved.(Dynamic); ok {
		// Resolving one Dynamic into another is a contract violation;
		// resolve at most one level and fall back to direct.
		return Direct{}
	}
	return resolved
}
