package comm

import (
	"sync"
	"sync/atomic"

	"github.com/sx-aurora/veostub/internal/wire"
)

// resultMap holds at most one Response per reqid, written by the
// Communicator's background loop and consumed (read-and-remove) by
// Wait/Peek (spec §3 invariant: "For any id, at most one Result is
// ever stored; consumption removes it").
type resultMap struct {
	mu   sync.Mutex
	cond *sync.Cond
	m    map[uint64]wire.Response
}

func newResultMap() *resultMap {
	rm := &resultMap{m: make(map[uint64]wire.Response)}
	rm.cond = sync.NewCond(&rm.mu)
	return rm
}

func (rm *resultMap) insert(resp wire.Response) {
	rm.mu.Lock()
	rm.m[resp.ReqID] = resp
	rm.cond.Broadcast()
	rm.mu.Unlock()
}

// wait blocks until reqid's result is present (consumed and returned,
// ok=true) or running becomes false (ok=false), matching spec §4.2's
// "wait blocks until either the target reqid is present ... or the
// context is no longer running".
func (rm *resultMap) wait(reqid uint64, running *atomic.Bool) (wire.Response, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for {
		if resp, ok := rm.m[reqid]; ok {
			delete(rm.m, reqid)
			return resp, true
		}
		if !running.Load() {
			return wire.Response{}, false
		}
		rm.cond.Wait()
	}
}

// peek never blocks: present means consume-and-return, absent means
// Pending regardless of running state (spec §4.2: "peek ... never
// blocks, never reports PeerLost explicitly").
func (rm *resultMap) peek(reqid uint64) (wire.Response, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	resp, ok := rm.m[reqid]
	if ok {
		delete(rm.m, reqid)
	}
	return resp, ok
}

// wakeAll releases any waiters blocked in wait, used when the
// communicator transitions to not-running.
func (rm *resultMap) wakeAll() {
	rm.mu.Lock()
	rm.cond.Broadcast()
	rm.mu.Unlock()
}

