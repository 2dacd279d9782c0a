//go:build !unix

package fileutil

import "time"

// WithLock runs fn directly; advisory locking is only implemented on unix.
func WithLock(lockPath string, timeout time.Duration, fn func() error) error {
	return fn()
}
