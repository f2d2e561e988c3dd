// Package constants centralizes the protocol numbering, environment
// variable names, and timing knobs shared between the client library and
// the worker binary.
package constants

import "time"

// VeorunBinEnv names the environment variable that overrides the worker
// binary path. If unset, WorkerBinDefault is resolved through PATH.
const VeorunBinEnv = "VEORUN_BIN"

// WorkerBinDefault is the worker executable name resolved through PATH
// when VeorunBinEnv is unset.
const WorkerBinDefault = "stub-veorun"

// LogLevelEnv names the environment variable that controls log
// verbosity. Not semantically significant to the protocol.
const LogLevelEnv = "VEOSTUB_LOG_LEVEL"

// SocketPathFormat is the per-pid AF_LOCAL socket path template; %d is
// the worker child's pid as known to the parent.
const SocketPathFormat = "/tmp/stub-veorun.%d.sock"

// Connect-retry knobs for the default context's initial dial. The
// source material leaves this cap either unbounded or ad-hoc
// (~100-1000ms); this implementation fixes it at 100 attempts of 10ms,
// an explicit ~1s cap as recommended by the spec's open question.
const (
	ConnectRetryAttempts = 100
	ConnectRetryInterval = 10 * time.Millisecond
)

// Cmd is the wire tag for a request's "cmd" field. Producer and
// consumer must agree on this numbering; it is a private contract
// between this client and this worker binary, not an external one.
type Cmd int32

const (
	CmdLoadLibrary Cmd = iota
	CmdUnloadLibrary
	CmdGetSym
	CmdAllocMem
	CmdFreeMem
	CmdReadMem
	CmdWriteMem
	CmdCallAsync
	CmdCallAsyncByName
	CmdAsyncReadMem
	CmdAsyncWriteMem
	CmdSyncContext
	CmdCloseContext
	CmdQuit
)

func (c Cmd) String() string {
	switch c {
	case CmdLoadLibrary:
		return "LOAD_LIBRARY"
	case CmdUnloadLibrary:
		return "UNLOAD_LIBRARY"
	case CmdGetSym:
		return "GET_SYM"
	case CmdAllocMem:
		return "ALLOC_MEM"
	case CmdFreeMem:
		return "FREE_MEM"
	case CmdReadMem:
		return "READ_MEM"
	case CmdWriteMem:
		return "WRITE_MEM"
	case CmdCallAsync:
		return "CALL_ASYNC"
	case CmdCallAsyncByName:
		return "CALL_ASYNC_BY_NAME"
	case CmdAsyncReadMem:
		return "ASYNC_READ_MEM"
	case CmdAsyncWriteMem:
		return "ASYNC_WRITE_MEM"
	case CmdSyncContext:
		return "SYNC_CONTEXT"
	case CmdCloseContext:
		return "CLOSE_CONTEXT"
	case CmdQuit:
		return "QUIT"
	default:
		return "UNKNOWN"
	}
}

// ArgType is the wire tag for a typed argument slot's "type" field.
type ArgType int32

const (
	ArgI64 ArgType = iota
	ArgU64
	ArgI32
	ArgU32
	ArgI16
	ArgU16
	ArgI8
	ArgU8
	ArgDouble
	ArgFloat
	ArgStack
)

// StackDir is the direction of a StackArg's host<->worker shuttle.
type StackDir int32

const (
	StackIn StackDir = iota
	StackOut
	StackInOut
)
