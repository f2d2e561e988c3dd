// Package comm implements the per-Context request/response multiplexer
// described in spec §4.2: an unbounded submission queue, a single
// background goroutine (the "communicator") that owns the socket, and a
// result map that application goroutines consume from via Wait/Peek.
package comm

import (
	"fmt"
	"net"
	"sync/atomic"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/sx-aurora/veostub/internal/constants"
	"github.com/sx-aurora/veostub/internal/wire"
)

// Observer receives communicator lifecycle events for metrics
// collection. A nil Observer is a no-op (mirrors the teacher's
// NoOpObserver pattern in interfaces.Observer).
type Observer interface {
	ObserveSubmit(cmd constants.Cmd)
	ObserveComplete(cmd constants.Cmd, latencyNs int64)
	ObservePeerLost()
}

// Communicator owns one context's socket for its entire lifetime
// (spec §5: "Socket fd: owned by exactly one communicator thread").
type Communicator struct {
	conn     net.Conn
	queue    *requestQueue
	results  *resultMap
	running  atomic.Bool
	done     chan struct{}
	observer Observer
	log      *logrus.Entry
}

// New creates a Communicator and starts its background loop.
func New(conn net.Conn, observer Observer, log *logrus.Entry) *Communicator {
	if observer == nil {
		observer = noopObserver{}
	}
	c := &Communicator{
		conn:     conn,
		queue:    newRequestQueue(),
		results:  newResultMap(),
		done:     make(chan struct{}),
		observer: observer,
		log:      log,
	}
	c.running.Store(true)
	go c.loop()
	return c
}

// Submit enqueues req for transmission; requests are sent in the order
// they are submitted (spec §4.2 Ordering guarantees).
func (c *Communicator) Submit(req wire.Request) {
	c.observer.ObserveSubmit(req.Cmd)
	c.queue.push(req)
}

// Wait blocks until reqid's result is available (ok=true) or the
// context is no longer running (ok=false).
func (c *Communicator) Wait(reqid uint64) (wire.Response, bool) {
	return c.results.wait(reqid, &c.running)
}

// Peek returns immediately: (result, true) if already delivered,
// (zero, false) if still pending -- regardless of running state.
func (c *Communicator) Peek(reqid uint64) (wire.Response, bool) {
	return c.results.peek(reqid)
}

// Running reports whether the communicator's background loop is still
// alive.
func (c *Communicator) Running() bool {
	return c.running.Load()
}

// Join blocks until the background loop has exited.
func (c *Communicator) Join() {
	<-c.done
}

func (c *Communicator) loop() {
	defer close(c.done)

	for {
		req := c.queue.pop()

		if err := fillCopyIn(&req); err != nil {
			c.fail(fmt.Errorf("prepare copy-in: %w", err))
			return
		}

		if c.log != nil {
			c.log.WithFields(logrus.Fields{"cmd": req.Cmd.String(), "reqid": req.ReqID}).Debug("sending request")
		}

		if err := wire.WriteFrame(c.conn, &req); err != nil {
			c.fail(err)
			return
		}

		if req.Cmd == constants.CmdCloseContext || req.Cmd == constants.CmdQuit {
			// No reply expected; this is a controlled shutdown, not peer
			// loss (spec §4.2 rule 3).
			c.running.Store(false)
			c.results.wakeAll()
			return
		}

		var resp wire.Response
		if err := wire.ReadFrame(c.conn, &resp); err != nil {
			c.fail(err)
			return
		}

		if c.log != nil {
			c.log.WithFields(logrus.Fields{"reqid": resp.ReqID, "result": resp.Result}).Debug("received reply")
		}

		if err := drainCopyOut(&req, &resp); err != nil {
			c.fail(fmt.Errorf("drain copy-out: %w", err))
			return
		}

		c.observer.ObserveComplete(req.Cmd, 0)
		c.results.insert(resp)
	}
}

func (c *Communicator) fail(err error) {
	if c.log != nil {
		c.log.WithError(err).Warn("communicator lost peer")
	}
	c.observer.ObservePeerLost()
	c.running.Store(false)
	c.results.wakeAll()
}

// fillCopyIn walks req's StackArgs in argument-index order and reads
// each IN/INOUT buffer's current bytes from host memory into a fresh
// CopyDescriptor, immediately before the frame is sent (spec §4.2 step
// 1). The host buffer address travels as a StackArg.Buff uintptr set
// by the public Args API.
func fillCopyIn(req *wire.Request) error {
	var copyIn []wire.CopyDescriptor
	for i := range req.Args {
		slot := &req.Args[i]
		if slot.Type != constants.ArgStack {
			continue
		}
		if !wire.IsStackDirIn(slot.Stack.Inout) {
			continue
		}
		data, err := readHostBytes(uintptr(slot.Stack.Buff), slot.Stack.Len)
		if err != nil {
			return err
		}
		copyIn = append(copyIn, wire.CopyDescriptor{
			HostAddr: slot.Stack.Buff,
			Len:      slot.Stack.Len,
			Data:     data,
		})
	}
	req.CopyIn = copyIn
	return nil
}

// drainCopyOut walks req's StackArgs again and writes each OUT/INOUT
// descriptor's bytes back into host memory (spec §4.2 step 5).
func drainCopyOut(req *wire.Request, resp *wire.Response) error {
	idx := 0
	for i := range req.Args {
		slot := &req.Args[i]
		if slot.Type != constants.ArgStack {
			continue
		}
		if !wire.IsStackDirOut(slot.Stack.Inout) {
			continue
		}
		if idx >= len(resp.CopyOut) {
			return fmt.Errorf("reply missing copy_out entry for stack arg %d", i)
		}
		desc := resp.CopyOut[idx]
		idx++
		if err := writeHostBytes(uintptr(slot.Stack.Buff), desc.Data); err != nil {
			return err
		}
	}
	return nil
}

func readHostBytes(ptr uintptr, n uint64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if ptr == 0 {
		return nil, fmt.Errorf("nil host buffer for stack arg of length %d", n)
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n)
	out := make([]byte, n)
	copy(out, src)
	return out, nil
}

func writeHostBytes(ptr uintptr, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if ptr == 0 {
		return fmt.Errorf("nil host buffer for %d copy-out bytes", len(data))
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(data))
	copy(dst, data)
	return nil
}

type noopObserver struct{}

func (noopObserver) ObserveSubmit(constants.Cmd)             {}
func (noopObserver) ObserveComplete(constants.Cmd, int64)    {}
func (noopObserver) ObservePeerLost()                        {}
