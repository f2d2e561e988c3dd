package veostub

import (
	"testing"

	"github.com/sx-aurora/veostub/internal/ffi"
	"github.com/sx-aurora/veostub/internal/fakeworker"
)

// newFakeHandle builds a ProcessHandle wired to an in-process
// fakeworker dispatcher instead of a spawned child, so tests can
// exercise the public API without forking a real worker binary
// (adapted from the teacher's MockBackend test-double pattern). A nil
// loader defaults to fakeworker's own in-memory fake; pass
// ffi.PuregoLoader{} to exercise real library loading.
func newFakeHandle(t *testing.T, loader ffi.Loader) *ProcessHandle {
	t.Helper()
	if loader == nil {
		loader = fakeworker.NewLoader()
	}
	conn := fakeworker.Pair(loader)

	h := &ProcessHandle{
		node:        0,
		defaultConn: conn,
	}
	h.defaultCtx = newContext(h, conn, true)
	if _, err := ContextOpen(h); err != nil {
		t.Fatalf("ContextOpen on fake handle: %v", err)
	}
	t.Cleanup(func() {
		if h.defaultCtx != nil {
			// An idle communicator only notices a closed connection on
			// its next send, so give it one before joining.
			h.defaultCtx.com.Submit(closeContextRequest(h.defaultCtx.nextReqID()))
			h.defaultCtx.com.Join()
			h.defaultCtx.conn.Close()
		}
	})
	return h
}
