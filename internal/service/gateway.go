package service

import (
	"context"
	"net"
	"time"

	"github.com/rs/xid"

	"github.com/oxchat/torway/internal/conn"
	"github.com/oxchat/torway/internal/logger"
	"github.com/oxchat/torway/internal/socks5"
)

type gatewayConfig struct {
	NegotiationTimeout time.Duration
	IOTimeout          time.Duration
	Auth               *socks5.Auth
}

// gateway is the local SOCKS5 accept loop the service spawns on the bound
// port. Every CONNECT is dialed through the client, so all gateway traffic
// flows through the decorated provider.
type gateway struct {
	client Client
	cfg    gatewayConfig
}

func newGateway(client Client, cfg gatewayConfig) *gateway {
	return &gateway{client: client, cfg: cfg}
}

// serve accepts connections on ln until the listener closes or ctx is
// canceled. Cancellation is coarse: in-flight connections are dropped, not
// drained.
func (g *gateway) serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go g.handleConn(ctx, c)
	}
}

func (g *gateway) handleConn(ctx context.Context, c net.Conn) {
	defer c.Close()

	id := xid.New().String()

	if g.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Now().Add(g.cfg.NegotiationTimeout))
	}

	if err := socks5.ServerNegotiate(c, g.cfg.Auth); err != nil {
		logger.Debug("gateway negotiation failed", "conn_id", id, "client", c.RemoteAddr().String(), "err", err)
		return
	}

	req, err := socks5.ServerReadRequest(c)
	if err != nil {
		logger.Debug("gateway request failed", "conn_id", id, "client", c.RemoteAddr().String(), "err", err)
		return
	}
	if req.Cmd != socks5.CmdConnect {
		socks5.WriteCommandNotSupportedReply(c, req.Atyp)
		return
	}

	if g.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Time{})
	}

	address := req.Address()
	logger.Debug("gateway connect", "conn_id", id, "target", address)

	up, err := g.client.DialContext(ctx, "tcp", address)
	if err != nil {
		logger.Debug("gateway dial failed", "conn_id", id, "target", address, "err", err)
		socks5.WriteConnectionRefusedReply(c, req.Atyp)
		return
	}
	defer up.Close()

	if err := socks5.WriteSuccessReply(c, up.LocalAddr()); err != nil {
		logger.Debug("gateway reply failed", "conn_id", id, "target", address, "err", err)
		return
	}

	_ = conn.CopyBidirectional(ctx, c, up, g.cfg.IOTimeout)
}
