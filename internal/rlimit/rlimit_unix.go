//go:build linux || darwin

package rlimit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Nofile returns the current soft and hard RLIMIT_NOFILE values.
func Nofile() (soft, hard uint64, err error) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, 0, fmt.Errorf("getrlimit nofile: %w", err)
	}
	return rl.Cur, rl.Max, nil
}

// RaiseNofile raises the soft RLIMIT_NOFILE to limit, clamped to the hard
// limit, and returns the resulting soft limit. It never lowers the limit.
func RaiseNofile(limit uint64) (uint64, error) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, fmt.Errorf("getrlimit nofile: %w", err)
	}

	if limit > rl.Max {
		limit = rl.Max
	}
	if limit <= rl.Cur {
		return rl.Cur, nil
	}

	rl.Cur = limit
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, fmt.Errorf("setrlimit nofile: %w", err)
	}
	return rl.Cur, nil
}
