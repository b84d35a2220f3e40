package dialer

import (
	"context"
	"fmt"
	"net"

	"github.com/oxchat/torway/internal/conn"
)

type tcpProvider struct {
	cfg Config
}

// NewTCPProvider returns a Provider that dials and listens on plain TCP.
func NewTCPProvider(cfg Config) Provider {
	return &tcpProvider{cfg: cfg}
}

func (p *tcpProvider) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	dd := net.Dialer{Timeout: p.cfg.DialTimeout}

	c, err := dd.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}

	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(p.cfg.KeepAlive)
	}

	return c, nil
}

func (p *tcpProvider) Listen(ctx context.Context, network, address string) (net.Listener, error) {
	return conn.ListenTCP(ctx, network, address, p.cfg.KeepAlive)
}
