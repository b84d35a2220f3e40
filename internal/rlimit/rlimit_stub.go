//go:build !linux && !darwin

package rlimit

import "errors"

// Nofile is unsupported on this platform.
func Nofile() (soft, hard uint64, err error) {
	return 0, 0, errors.ErrUnsupported
}

// RaiseNofile is unsupported on this platform.
func RaiseNofile(limit uint64) (uint64, error) {
	return 0, errors.ErrUnsupported
}
