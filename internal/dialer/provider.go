package dialer

import (
	"context"
	"net"
	"time"
)

// Provider abstracts outbound dialing and inbound listening over a
// transport. It is the surface the network client consumes and the surface
// ProxyProvider decorates.
type Provider interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
	Listen(ctx context.Context, network, address string) (net.Listener, error)
}

// Config carries timeouts and keepalive settings shared by providers.
type Config struct {
	DialTimeout        time.Duration
	NegotiationTimeout time.Duration
	KeepAlive          net.KeepAliveConfig
}
