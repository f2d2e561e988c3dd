package ffi

import "unsafe"

// bufferAddr returns buf's backing address as a uintptr suitable for
// passing to purego.SyscallN. buf must outlive the call -- callers
// keep it alive in stackBufs for the duration of Dispatch.
func bufferAddr(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}
