package rlimit

// Package rlimit exposes the file-descriptor limit helpers the daemon uses
// at startup. Anonymity-network clients hold many sockets at once; the
// default soft limit is often too low.
