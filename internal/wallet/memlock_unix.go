//go:build !windows

package wallet

import "golang.org/x/sys/unix"

// lockMemory keeps b out of swap while a decrypted key sits in it. Locking
// is best effort: RLIMIT_MEMLOCK may refuse it, and then the returned
// func does nothing.
func lockMemory(b []byte) (unlock func()) {
	if len(b) == 0 || unix.Mlock(b) != nil {
		return func() {}
	}
	return func() { _ = unix.Munlock(b) }
}
