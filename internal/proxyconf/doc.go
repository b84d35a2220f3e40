package proxyconf

// Package proxyconf defines the proxy configuration model shared by the
// connection provider and the runtime proxy state.
//
// A Config is one of Direct, SOCKS5, HTTPConnect or Dynamic. Dynamic defers
// the choice to a Resolver invoked per dial; Resolve collapses any Config
// into one of the three concrete variants before a connection is attempted.
