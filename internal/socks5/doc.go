package socks5

// Package socks5 provides the SOCKS5 handshakes used by torway.
//
// The client side (ClientHandshake) runs the full CONNECT negotiation over a
// stream already connected to an upstream proxy, and is used by the dialer's
// proxy provider. The server side (ServerNegotiate and friends) supports the
// local gateway's accept loop.
//
// Both are thin layers over the wire types in github.com/txthinking/socks5
// rather than a standalone protocol implementation; keeping them in one
// place avoids duplicating negotiation and reply handling across packages.
