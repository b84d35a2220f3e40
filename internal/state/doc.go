package state

// Package state holds the runtime-mutable proxy configuration.
//
// A Store carries the single current ProxyInfo value. The embedding
// application may replace it at any time, including while the service is
// running; updates apply to dial attempts that read the store afterwards.
// The Store doubles as a proxyconf.Resolver so a Dynamic configuration can
// observe it per dial without the dialer touching shared state directly.
