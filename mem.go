package veostub

import (
	"github.com/sx-aurora/veostub/internal/constants"
	"github.com/sx-aurora/veostub/internal/wire"
)

// syncCall submits req on h's default context and blocks for its
// reply, the shared plumbing behind the synchronous thin wrappers
// below (spec §6: load_library/unload_library/get_sym/alloc_mem/
// free_mem/read_mem/write_mem are all blocking).
func syncCall(h *ProcessHandle, req wire.Request) (wire.Response, bool) {
	if h == nil || h.defaultCtx == nil {
		return wire.Response{}, false
	}
	req.ReqID = h.defaultCtx.nextReqID()
	h.defaultCtx.com.Submit(req)
	return h.defaultCtx.com.Wait(req.ReqID)
}

// LoadLibrary opens libname in the worker via its dynamic loader,
// returning the library handle (0 on failure or peer loss).
func LoadLibrary(h *ProcessHandle, libname string) uint64 {
	resp, ok := syncCall(h, wire.Request{Cmd: constants.CmdLoadLibrary, LibName: libname})
	if !ok {
		return 0
	}
	return resp.Result
}

// UnloadLibrary closes libhdl. Returns CommandError on peer loss.
func UnloadLibrary(h *ProcessHandle, libhdl uint64) int {
	_, ok := syncCall(h, wire.Request{Cmd: constants.CmdUnloadLibrary, LibHdl: libhdl})
	if !ok {
		return CommandError
	}
	return CommandOK
}

// GetSym resolves symname within libhdl, returning its address (0 if
// missing or on peer loss).
func GetSym(h *ProcessHandle, libhdl uint64, symname string) uint64 {
	resp, ok := syncCall(h, wire.Request{Cmd: constants.CmdGetSym, LibHdl: libhdl, SymName: symname})
	if !ok {
		return 0
	}
	return resp.Result
}

// AllocMem allocates size bytes of worker memory, returning its
// opaque address (0 on failure or peer loss).
func AllocMem(h *ProcessHandle, size uint64) uint64 {
	resp, ok := syncCall(h, wire.Request{Cmd: constants.CmdAllocMem, Size: size})
	if !ok {
		return 0
	}
	return resp.Result
}

// FreeMem releases a worker allocation previously returned by
// AllocMem. Returns CommandError on peer loss.
func FreeMem(h *ProcessHandle, addr uint64) int {
	_, ok := syncCall(h, wire.Request{Cmd: constants.CmdFreeMem, Addr: addr})
	if !ok {
		return CommandError
	}
	return CommandOK
}

// ReadMem reads size bytes from worker address src. Returns nil on
// peer loss.
func ReadMem(h *ProcessHandle, src uint64, size uint64) []byte {
	resp, ok := syncCall(h, wire.Request{Cmd: constants.CmdReadMem, Src: src, Size: size})
	if !ok {
		return nil
	}
	return resp.Data
}

// WriteMem writes data to worker address dst. Returns CommandError on
// peer loss.
func WriteMem(h *ProcessHandle, dst uint64, data []byte) int {
	_, ok := syncCall(h, wire.Request{Cmd: constants.CmdWriteMem, Dst: dst, Data: data})
	if !ok {
		return CommandError
	}
	return CommandOK
}

// WaitReadMem blocks for the result of a prior AsyncReadMem and
// returns the bytes it filled, or nil with CommandError on peer loss.
func WaitReadMem(ctx *Context, reqid uint64) ([]byte, int) {
	resp, ok := ctx.com.Wait(reqid)
	if !ok {
		return nil, CommandError
	}
	return resp.Data, CommandOK
}
