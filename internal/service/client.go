package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync/atomic"

	"github.com/oxchat/torway/internal/dialer"
	"github.com/oxchat/torway/internal/logger"
)

// Client is the narrow surface of the network client the service runs the
// gateway against. The real anonymity-network client is constructed
// elsewhere and consumes the provider the service hands it; this interface
// is all the service needs back.
type Client interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
	Close() error
}

// Dormancy is implemented by clients that support a low-activity mode.
type Dormancy interface {
	SetDormant(soft bool)
}

// ClientConfig is passed to a ClientFactory during Start.
type ClientConfig struct {
	StateDir string
	CacheDir string
	Provider dialer.Provider
}

// ClientFactory builds and bootstraps a Client against the decorated
// provider. An error aborts Start and leaves the service stopped.
type ClientFactory func(ctx context.Context, cfg ClientConfig) (Client, error)

// netClient is the built-in pass-through client. It prepares the state and
// cache directories and dials targets through the provider, resolving
// hostnames first so the provider only ever sees IP addresses.
type netClient struct {
	provider dialer.Provider
	dormant  atomic.Bool
}

// NewNetClient is the default ClientFactory.
func NewNetClient(_ context.Context, cfg ClientConfig) (Client, error) {
	if cfg.Provider == nil {
		return nil, errors.New("netclient: missing provider")
	}

	for _, dir := range []string{cfg.StateDir, cfg.CacheDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("prepare directory: %w", err)
		}
	}

	return &netClient{provider: cfg.Provider}, nil
}

func (c *netClient) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("netclient dial %s: %w", address, err)
	}

	if _, err := netip.ParseAddr(host); err != nil {
		addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return nil, fmt.Errorf("netclient resolve %s: %w", host, err)
		}
		if len(addrs) == 0 {
			return nil, fmt.Errorf("netclient resolve %s: no addresses", host)
		}
		host = addrs[0].Unmap().String()
	}

	return c.provider.DialContext(ctx, network, net.JoinHostPort(host, port))
}

// SetDormant records the requested dormancy. The pass-through client has no
// background activity to suspend, so this only affects logging.
func (c *netClient) SetDormant(soft bool) {
	c.dormant.Store(soft)
	logger.Info("netclient dormancy updated", "soft", soft)
}

func (c *netClient) Close() error {
	return nil
}
