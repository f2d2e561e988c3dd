package workersrv

import (
	"fmt"
	"net"
	"testing"

	"github.com/sx-aurora/veostub/internal/constants"
	"github.com/sx-aurora/veostub/internal/wire"
)

// fakeLoader stands in for ffi.PuregoLoader so dispatcher tests never
// need a real shared library on disk.
type fakeLoader struct {
	nextHandle uintptr
	opened     map[string]uintptr
	symbols    map[uintptr]map[string]uintptr
	closed     map[uintptr]bool
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		nextHandle: 1,
		opened:     make(map[string]uintptr),
		symbols:    make(map[uintptr]map[string]uintptr),
		closed:     make(map[uintptr]bool),
	}
}

func (f *fakeLoader) Open(path string) (uintptr, error) {
	if path == "" {
		return 0, fmt.Errorf("empty path")
	}
	h := f.nextHandle
	f.nextHandle++
	f.opened[path] = h
	f.symbols[h] = map[string]uintptr{"add": 0xdead}
	return h, nil
}

func (f *fakeLoader) Symbol(handle uintptr, name string) (uintptr, error) {
	syms, ok := f.symbols[handle]
	if !ok {
		return 0, fmt.Errorf("unknown handle")
	}
	addr, ok := syms[name]
	if !ok {
		return 0, fmt.Errorf("unknown symbol %q", name)
	}
	return addr, nil
}

func (f *fakeLoader) Close(handle uintptr) error {
	f.closed[handle] = true
	return nil
}

func newTestServer(t *testing.T) (*Server, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	srv := NewServer(ln, newFakeLoader(), nil)
	go srv.Serve()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return srv, conn
}

func roundtrip(t *testing.T, conn net.Conn, req wire.Request) wire.Response {
	t.Helper()
	if err := wire.WriteFrame(conn, &req); err != nil {
		t.Fatalf("write request: %v", err)
	}
	var resp wire.Response
	if err := wire.ReadFrame(conn, &resp); err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp
}

func TestLoadLibraryAndGetSym(t *testing.T) {
	_, conn := newTestServer(t)

	resp := roundtrip(t, conn, wire.Request{Cmd: constants.CmdLoadLibrary, ReqID: 0, LibName: "libfoo.so"})
	if resp.Result == 0 {
		t.Fatalf("expected non-zero library handle")
	}
	libhdl := resp.Result

	resp = roundtrip(t, conn, wire.Request{Cmd: constants.CmdGetSym, ReqID: 1, LibHdl: libhdl, SymName: "add"})
	if resp.Result != 0xdead {
		t.Errorf("GetSym = %#x, want 0xdead", resp.Result)
	}

	resp = roundtrip(t, conn, wire.Request{Cmd: constants.CmdGetSym, ReqID: 2, LibHdl: libhdl, SymName: "missing"})
	if resp.Result != 0 {
		t.Errorf("GetSym(missing) = %#x, want 0", resp.Result)
	}
}

func TestAllocWriteReadFreeMem(t *testing.T) {
	_, conn := newTestServer(t)

	resp := roundtrip(t, conn, wire.Request{Cmd: constants.CmdAllocMem, ReqID: 0, Size: 16})
	addr := resp.Result
	if addr == 0 {
		t.Fatalf("expected non-zero address")
	}

	payload := []byte("hello veostub!!!")
	resp = roundtrip(t, conn, wire.Request{Cmd: constants.CmdWriteMem, ReqID: 1, Dst: addr, Data: payload})
	_ = resp

	resp = roundtrip(t, conn, wire.Request{Cmd: constants.CmdReadMem, ReqID: 2, Src: addr, Size: uint64(len(payload))})
	if string(resp.Data) != string(payload) {
		t.Errorf("ReadMem = %q, want %q", resp.Data, payload)
	}

	roundtrip(t, conn, wire.Request{Cmd: constants.CmdFreeMem, ReqID: 3, Addr: addr})

	resp = roundtrip(t, conn, wire.Request{Cmd: constants.CmdReadMem, ReqID: 4, Src: addr, Size: uint64(len(payload))})
	if resp.Data != nil {
		t.Errorf("expected nil data reading freed address, got %q", resp.Data)
	}
}

func TestUnloadLibraryUnknownHandleIsNoop(t *testing.T) {
	_, conn := newTestServer(t)

	resp := roundtrip(t, conn, wire.Request{Cmd: constants.CmdUnloadLibrary, ReqID: 0, LibHdl: 999})
	if resp.Result != 0 {
		t.Errorf("UnloadLibrary(unknown) result = %d, want 0", resp.Result)
	}
}

func TestCloseContextEndsDispatchWithoutReply(t *testing.T) {
	_, conn := newTestServer(t)

	if err := wire.WriteFrame(conn, &wire.Request{Cmd: constants.CmdCloseContext, ReqID: 0}); err != nil {
		t.Fatalf("write close_context: %v", err)
	}

	var resp wire.Response
	if err := wire.ReadFrame(conn, &resp); err == nil {
		t.Error("expected read to fail after close_context (no reply, connection closed)")
	}
}
