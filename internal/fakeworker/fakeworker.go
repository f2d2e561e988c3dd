// Package fakeworker stands in for a spawned veo-worker child process
// in tests: it runs the real worker-side dispatcher (internal/workersrv)
// against an in-memory net.Pipe connection, paired with a fake
// dynamic loader, so root-package tests can exercise ProcessHandle/
// Context/Call/Mem operations without forking a binary or needing a
// real shared library on disk. Adapted from the teacher's
// testing.go MockBackend, which played the same role for its Backend
// interface.
package fakeworker

import (
	"fmt"
	"net"

	"github.com/sx-aurora/veostub/internal/ffi"
	"github.com/sx-aurora/veostub/internal/workersrv"
)

// Loader is a minimal in-memory ffi.Loader: Open registers a synthetic
// handle for any non-empty path, and symbols must be pre-registered
// via AddSymbol before a test resolves them.
type Loader struct {
	nextHandle uintptr
	handles    map[string]uintptr
	symbols    map[uintptr]map[string]uintptr
}

// NewLoader returns an empty fake loader.
func NewLoader() *Loader {
	return &Loader{
		nextHandle: 1,
		handles:    make(map[string]uintptr),
		symbols:    make(map[uintptr]map[string]uintptr),
	}
}

// AddSymbol registers name at addr within libname, opening libname's
// handle implicitly if this is its first symbol.
func (l *Loader) AddSymbol(libname, name string, addr uintptr) {
	handle, ok := l.handles[libname]
	if !ok {
		handle = l.nextHandle
		l.nextHandle++
		l.handles[libname] = handle
		l.symbols[handle] = make(map[string]uintptr)
	}
	l.symbols[handle][name] = addr
}

func (l *Loader) Open(path string) (uintptr, error) {
	if path == "" {
		return 0, fmt.Errorf("fakeworker: empty library path")
	}
	if handle, ok := l.handles[path]; ok {
		return handle, nil
	}
	handle := l.nextHandle
	l.nextHandle++
	l.handles[path] = handle
	l.symbols[handle] = make(map[string]uintptr)
	return handle, nil
}

func (l *Loader) Symbol(handle uintptr, name string) (uintptr, error) {
	syms, ok := l.symbols[handle]
	if !ok {
		return 0, fmt.Errorf("fakeworker: unknown library handle %d", handle)
	}
	addr, ok := syms[name]
	if !ok {
		return 0, fmt.Errorf("fakeworker: unknown symbol %q", name)
	}
	return addr, nil
}

func (l *Loader) Close(handle uintptr) error {
	return nil
}

// Pair spins up a workersrv.Server driven entirely over an in-memory
// net.Pipe and returns the client-facing half of the pipe, ready to be
// handed to a Context in place of a real worker connection.
func Pair(loader ffi.Loader) net.Conn {
	client, server := net.Pipe()
	srv := workersrv.NewServer(nil, loader, nil)
	go srv.ServeConn(server)
	return client
}
