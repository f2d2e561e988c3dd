package veostub

import (
	"net"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/sx-aurora/veostub/internal/comm"
)

// ContextState reports whether a Context's communicator is still
// alive (spec §6's get_context_state).
type ContextState int

const (
	ContextRunning ContextState = iota
	ContextExited
)

func (s ContextState) String() string {
	if s == ContextRunning {
		return "RUNNING"
	}
	return "EXIT"
}

// Context is the client-side object owning one socket connection to a
// worker process and its background communicator thread (spec §3).
// The back-reference to Handle is non-owning: a Context must not
// outlive its ProcessHandle.
type Context struct {
	Handle    *ProcessHandle
	conn      net.Conn
	com       *comm.Communicator
	reqCount  atomic.Uint64
	isDefault bool
}

func newContext(h *ProcessHandle, conn net.Conn, isDefault bool) *Context {
	var log *logrus.Entry
	if h.log != nil {
		log = h.log.WithFields(logrus.Fields{"node": h.node})
	}
	var observer comm.Observer
	if h.metrics != nil {
		observer = h.metrics
		h.metrics.ContextOpened()
	}
	return &Context{
		Handle:    h,
		conn:      conn,
		com:       comm.New(conn, observer, log),
		isDefault: isDefault,
	}
}

// nextReqID issues the next strictly monotonic request id for this
// Context, starting at 0 (spec §3 invariant, §8 "issue_reqid").
func (c *Context) nextReqID() uint64 {
	return c.reqCount.Add(1) - 1
}

// ContextOpen returns h's default Context on the first call, and a
// fresh Context (its own connection and communicator) on subsequent
// calls (spec §4.4 "Context open"). The default Context's connection
// is already live by the time ProcCreate returns h; the first call
// here only registers it in h.contexts (spec §3: the context list
// contains the default context iff at least one application-level
// context has been opened).
func ContextOpen(h *ProcessHandle) (*Context, error) {
	if h == nil {
		return nil, NewError("ContextOpen", ErrCodeInvalidArgument, "nil process handle")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.defaultOpened {
		h.defaultOpened = true
		h.contexts = append(h.contexts, h.defaultCtx)
		return h.defaultCtx, nil
	}

	conn, err := net.Dial("unix", h.socketPath)
	if err != nil {
		return nil, WrapError("ContextOpen", err)
	}
	ctx := newContext(h, conn, false)
	h.contexts = append(h.contexts, ctx)
	return ctx, nil
}

// ContextClose removes ctx from its handle's list (spec §4.4 "Context
// close"). It does nothing further if ctx is the default context --
// its communicator and connection are released only by ProcDestroy.
// Closing an already-exited context is a no-op beyond list removal.
func ContextClose(ctx *Context) {
	if ctx == nil {
		return
	}

	h := ctx.Handle
	h.mu.Lock()
	for i, c := range h.contexts {
		if c == ctx {
			h.contexts = append(h.contexts[:i], h.contexts[i+1:]...)
			break
		}
	}
	h.mu.Unlock()

	if ctx.isDefault {
		return
	}

	if ctx.com.Running() {
		ctx.com.Submit(closeContextRequest(ctx.nextReqID()))
	}
	ctx.com.Join()
	ctx.conn.Close()
	if h.metrics != nil {
		h.metrics.ContextClosed()
	}
}

// NumContexts returns the number of Contexts currently open on h
// (spec §3's "ProcessHandle's context list", §8 scenario 3).
func NumContexts(h *ProcessHandle) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.contexts)
}

// GetContext returns the idx'th Context opened on h, or nil if out of
// range.
func GetContext(h *ProcessHandle, idx int) *Context {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if idx < 0 || idx >= len(h.contexts) {
		return nil
	}
	return h.contexts[idx]
}

// GetContextState reports whether ctx's communicator is still running
// (spec §6's get_context_state).
func GetContextState(ctx *Context) ContextState {
	if ctx == nil || !ctx.com.Running() {
		return ContextExited
	}
	return ContextRunning
}
