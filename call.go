package veostub

import (
	"github.com/sx-aurora/veostub/internal/constants"
	"github.com/sx-aurora/veostub/internal/wire"
)

func closeContextRequest(reqid uint64) wire.Request {
	return wire.Request{Cmd: constants.CmdCloseContext, ReqID: reqid}
}

func quitRequest(reqid uint64) wire.Request {
	return wire.Request{Cmd: constants.CmdQuit, ReqID: reqid}
}

// CallAsync submits an asynchronous call to the worker function at
// addr with args and returns its reqid immediately (spec §4.2/§6:
// non-blocking; "reqid is still valid" even after peer loss --
// CallWaitResult surfaces the failure as CommandError, while
// CallPeekResult keeps reporting CommandUnfinished).
func CallAsync(ctx *Context, addr uint64, args *ArgList) uint64 {
	reqid := ctx.nextReqID()
	ctx.com.Submit(wire.Request{
		Cmd:   constants.CmdCallAsync,
		ReqID: reqid,
		Addr:  addr,
		Args:  args.slotsCopy(),
	})
	return reqid
}

// CallAsyncByName resolves symname within libhdl at the worker before
// invoking it, otherwise identical to CallAsync (spec §4.5
// CALL_ASYNC_BY_NAME).
func CallAsyncByName(ctx *Context, libhdl uint64, symname string, args *ArgList) uint64 {
	reqid := ctx.nextReqID()
	ctx.com.Submit(wire.Request{
		Cmd:     constants.CmdCallAsyncByName,
		ReqID:   reqid,
		LibHdl:  libhdl,
		SymName: symname,
		Args:    args.slotsCopy(),
	})
	return reqid
}

// CallSync submits addr(args) on h's default context and blocks for
// its result (spec §6's call_sync). On peer loss it returns
// CommandError and leaves *ret unset.
func CallSync(h *ProcessHandle, addr uint64, args *ArgList, ret *uint64) int {
	if h == nil || h.defaultCtx == nil {
		return CommandError
	}
	reqid := CallAsync(h.defaultCtx, addr, args)
	return CallWaitResult(h.defaultCtx, reqid, ret)
}

// CallWaitResult blocks until reqid's result is available, writing it
// into *ret and returning CommandOK, or returning CommandError if the
// context's communicator has exited first (spec §6 call_wait_result).
func CallWaitResult(ctx *Context, reqid uint64, ret *uint64) int {
	resp, ok := ctx.com.Wait(reqid)
	if !ok {
		return CommandError
	}
	if ret != nil {
		*ret = resp.Result
	}
	return CommandOK
}

// CallPeekResult returns CommandOK with *ret populated if reqid's
// result has already arrived, or CommandUnfinished if it has not
// (spec §6 call_peek_result: never blocks).
func CallPeekResult(ctx *Context, reqid uint64, ret *uint64) int {
	resp, ok := ctx.com.Peek(reqid)
	if !ok {
		return CommandUnfinished
	}
	if ret != nil {
		*ret = resp.Result
	}
	return CommandOK
}

// AsyncReadMem submits a request to read size bytes from the worker
// address src, returning its reqid (spec §4.5 ASYNC_READ_MEM). Use
// WaitReadMem to retrieve the filled bytes once the reqid completes.
func AsyncReadMem(ctx *Context, src uint64, size uint64) uint64 {
	reqid := ctx.nextReqID()
	ctx.com.Submit(wire.Request{
		Cmd:   constants.CmdAsyncReadMem,
		ReqID: reqid,
		Src:   src,
		Size:  size,
	})
	return reqid
}

// AsyncWriteMem submits a request to copy data to the worker address
// dst, returning its reqid (spec §4.5 ASYNC_WRITE_MEM).
func AsyncWriteMem(ctx *Context, dst uint64, data []byte) uint64 {
	reqid := ctx.nextReqID()
	payload := make([]byte, len(data))
	copy(payload, data)
	ctx.com.Submit(wire.Request{
		Cmd:   constants.CmdAsyncWriteMem,
		ReqID: reqid,
		Dst:   dst,
		Data:  payload,
	})
	return reqid
}
