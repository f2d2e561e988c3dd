package veostub

import (
	"testing"

	"github.com/sx-aurora/veostub/internal/fakeworker"
)

func TestAllocWriteReadFreeMem(t *testing.T) {
	h := newFakeHandle(t, nil)

	addr := AllocMem(h, 32)
	if addr == 0 {
		t.Fatalf("AllocMem returned 0")
	}

	payload := []byte("across the wire and back again!")
	if rc := WriteMem(h, addr, payload); rc != CommandOK {
		t.Fatalf("WriteMem rc = %d", rc)
	}

	got := ReadMem(h, addr, uint64(len(payload)))
	if string(got) != string(payload) {
		t.Errorf("ReadMem = %q, want %q", got, payload)
	}

	if rc := FreeMem(h, addr); rc != CommandOK {
		t.Errorf("FreeMem rc = %d", rc)
	}
}

func TestLoadLibraryAndGetSym(t *testing.T) {
	loader := fakeworker.NewLoader()
	loader.AddSymbol("libfoo.so", "compute", 0xbeef)
	h := newFakeHandle(t, loader)

	libhdl := LoadLibrary(h, "libfoo.so")
	if libhdl == 0 {
		t.Fatalf("LoadLibrary returned 0")
	}

	addr := GetSym(h, libhdl, "compute")
	if addr != 0xbeef {
		t.Errorf("GetSym = %#x, want 0xbeef", addr)
	}

	if addr := GetSym(h, libhdl, "missing"); addr != 0 {
		t.Errorf("GetSym(missing) = %#x, want 0", addr)
	}

	if rc := UnloadLibrary(h, libhdl); rc != CommandOK {
		t.Errorf("UnloadLibrary rc = %d", rc)
	}
}

func TestSyncCallOnPeerLossReturnsFalse(t *testing.T) {
	h := newFakeHandle(t, nil)
	h.defaultCtx.conn.Close()

	// The communicator detects the closed connection when AllocMem's
	// request fails to send, and then exits.
	if addr := AllocMem(h, 16); addr != 0 {
		t.Errorf("AllocMem after peer loss = %d, want 0", addr)
	}
	h.defaultCtx.com.Join()
}
