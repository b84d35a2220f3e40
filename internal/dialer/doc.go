package dialer

// Package dialer provides the connection providers used by torway.
//
// A Provider exposes outbound dialing and inbound listening. NewTCPProvider
// is the plain TCP implementation; ProxyProvider decorates any Provider so
// that outbound dials are routed directly or through a SOCKS5 or HTTP
// CONNECT proxy according to a proxyconf.Config resolved per dial.
