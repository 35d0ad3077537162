//go:build windows

package wallet

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// lockMemory keeps b out of the page file while a decrypted key sits in it.
func lockMemory(b []byte) (unlock func()) {
	if len(b) == 0 {
		return func() {}
	}
	addr, size := uintptr(unsafe.Pointer(unsafe.SliceData(b))), uintptr(len(b))
	if windows.VirtualLock(addr, size) != nil {
		return func() {}
	}
	return func() { _ = windows.VirtualUnlock(addr, size) }
}
