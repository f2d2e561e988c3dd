// Package veostub is the host-side client library for a stub
// heterogeneous-compute offload system: it lets an application treat a
// separate worker process as a pluggable co-processor, loading a
// shared library into it, resolving symbols, shuttling memory, and
// invoking worker-resident functions asynchronously with typed
// arguments (including indirect "stack" arguments copied across the
// process boundary around the call).
package veostub

import (
	"net"
	"os"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sx-aurora/veostub/internal/logging"
	"github.com/sx-aurora/veostub/internal/metrics"
	"github.com/sx-aurora/veostub/internal/procsup"
)

// ProcessHandle represents one worker child process and its default
// Context (spec §3). It exclusively owns its Contexts (spec §9
// "Two-level ownership").
type ProcessHandle struct {
	node       int
	cmd        *exec.Cmd
	socketPath string

	mu            sync.Mutex
	defaultCtx    *Context
	defaultOpened bool
	contexts      []*Context

	defaultConn net.Conn
	log         *logrus.Entry
	metrics     *metrics.Registry
}

// processTable is the process-wide index described in spec §4.4 and
// §9: indices are assigned in creation order and survive individual
// destructions by list position, so proc_identifier is a position in
// an unordered list, not a stable id.
var processTable struct {
	mu      sync.Mutex
	handles []*ProcessHandle
}

// ProcCreate forks the worker binary for node, dials its per-pid
// socket (retrying while the listener comes up), opens the default
// Context, and registers the handle in the process-wide table (spec
// §4.4). Returns nil if the child fails to come up within the retry
// window.
func ProcCreate(node int) *ProcessHandle {
	return ProcCreateWithMetrics(node, nil)
}

// ProcCreateWithMetrics is ProcCreate plus an optional Prometheus
// Registry that every Context opened on the resulting handle reports
// into (the ambient metrics collaborator spec.md leaves external; nil
// behaves exactly like ProcCreate).
//
// The default Context's connection and communicator are brought up
// here, but -- per spec §3, "the context list contains the default
// context iff at least one application-level context has been opened"
// -- it is not added to h.contexts yet; that happens on the
// application's first ContextOpen call.
func ProcCreateWithMetrics(node int, reg *metrics.Registry) *ProcessHandle {
	log := logging.Default().Entry()

	cmd, socketPath, err := procsup.Spawn(node)
	if err != nil {
		log.WithError(err).Warn("failed to spawn worker")
		return nil
	}

	conn, err := procsup.DialWithRetry(socketPath)
	if err != nil {
		log.WithError(err).Warn("failed to connect to worker")
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil
	}

	h := &ProcessHandle{
		node:        node,
		cmd:         cmd,
		socketPath:  socketPath,
		defaultConn: conn,
		log:         log,
		metrics:     reg,
	}
	h.defaultCtx = newContext(h, conn, true)

	processTable.mu.Lock()
	processTable.handles = append(processTable.handles, h)
	processTable.mu.Unlock()

	return h
}

// ProcDestroy tears down h: closes any non-default contexts, submits
// QUIT on the default context, reaps the child, removes h from the
// process-wide table, and unlinks its socket path (spec §4.4). Open
// non-default contexts are torn down implicitly rather than treated as
// an error (spec §9 open question: "recommended implementation closes
// all non-default contexts during destroy").
func ProcDestroy(h *ProcessHandle) int {
	if h == nil {
		return CommandError
	}

	h.mu.Lock()
	leftover := make([]*Context, 0, len(h.contexts))
	for _, c := range h.contexts {
		if !c.isDefault {
			leftover = append(leftover, c)
		}
	}
	h.mu.Unlock()

	for _, c := range leftover {
		ContextClose(c)
	}

	if h.defaultCtx != nil && h.defaultCtx.com.Running() {
		h.defaultCtx.com.Submit(quitRequest(h.defaultCtx.nextReqID()))
	}
	if h.defaultCtx != nil {
		h.defaultCtx.com.Join()
		h.defaultCtx.conn.Close()
	}

	if h.cmd != nil && h.cmd.Process != nil {
		_, _ = h.cmd.Process.Wait()
	}

	processTable.mu.Lock()
	for i, entry := range processTable.handles {
		if entry == h {
			processTable.handles = append(processTable.handles[:i], processTable.handles[i+1:]...)
			break
		}
	}
	processTable.mu.Unlock()

	if h.socketPath != "" {
		_ = os.Remove(h.socketPath)
	}

	return CommandOK
}

// ProcIdentifier returns h's current position in the process-wide
// table, or -1 if h is not registered (spec §6 proc_identifier, §9
// "Process-wide handle index": position-in-list, not a stable id).
func ProcIdentifier(h *ProcessHandle) int {
	if h == nil {
		return -1
	}
	processTable.mu.Lock()
	defer processTable.mu.Unlock()
	for i, entry := range processTable.handles {
		if entry == h {
			return i
		}
	}
	return -1
}
