package state

import (
	"net"
	"net/netip"
	"strconv"
	"sync"

	"github.com/oxchat/torway/internal/proxyconf"
)

// Kind identifies the upstream proxy protocol.
type Kind string

// Supported proxy kinds.
const (
	KindSOCKS5      Kind = "socks5"
	KindHTTPConnect Kind = "http-connect"
)

// ProxyInfo describes an upstream proxy as supplied by the embedding
// application. Username and Password are optional; credentials are attached
// when either is present, even if empty.
type ProxyInfo struct {
	Address  string
	Port     uint16
	Kind     Kind
	Username *string
	Password *string
}

// Config converts the proxy description into a dialable configuration.
// It returns nil (meaning direct) if the address does not parse as an IP or
// the kind is unknown.
func (p *ProxyInfo) Config() proxyconf.Config {
	addr, err := netip.ParseAddrPort(net.JoinHostPort(p.Address, strconv.Itoa(int(p.Port))))
	if err != nil {
		return nil
	}

	var auth *proxyconf.Auth
	if p.Username != nil || p.Password != nil {
		auth = &proxyconf.Auth{}
		if p.Username != nil {
			auth.Username = *p.Username
		}
		if p.Password != nil {
			auth.Password = *p.Password
		}
	}

	switch p.Kind {
	case KindSOCKS5:
		return proxyconf.SOCKS5{Addr: addr, Auth: auth}
	case KindHTTPConnect:
		return proxyconf.HTTPConnect{Addr: addr, Auth: auth}
	default:
		return nil
	}
}

// Store holds the current proxy configuration. It is replaced wholesale by
// Set and read per dial attempt by ProxyFor; the lock is never held across
// network I/O.
type Store struct {
	mu      sync.RWMutex
	current *ProxyInfo
}

// NewStore returns a Store with no proxy configured.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the current proxy. A nil info clears it, meaning direct
// connections.
func (s *Store) Set(info *ProxyInfo) {
	var cp *ProxyInfo
	if info != nil {
		c := *info
		cp = &c
	}

	s.mu.Lock()
	s.current = cp
	s.mu.Unlock()
}

// Get returns a copy of the current proxy, or nil if none is set.
func (s *Store) Get() *ProxyInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

// ProxyFor implements proxyconf.Resolver by reading the current proxy.
// Dials that race a Set see either the old or the new value, never a mix.
func (s *Store) ProxyFor(_ netip.AddrPort) proxyconf.Config {
	info := s.Get()
	if info == nil {
		return nil
	}
	return info.Config()
}
