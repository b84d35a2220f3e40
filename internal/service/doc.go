package service

// Package service owns the running state of the torway daemon: the
// bootstrapped network client, the local SOCKS5 gateway bound to the
// requested port, and the runtime-mutable upstream proxy.
//
// The lifecycle is Stopped -> Running -> Stopped. Start is idempotent while
// running and leaves no partial state behind on failure; Stop is idempotent
// while stopped. SetProxy may be called in any state and takes effect for
// subsequent dial attempts only.
