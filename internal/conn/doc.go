package conn

// Package conn contains shared connection plumbing: keepalive-applying TCP
// listeners and bidirectional stream relaying with pooled copy buffers.
