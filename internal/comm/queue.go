package comm

import (
	"sync"

	"github.com/sx-aurora/veostub/internal/wire"
)

// requestQueue is an unbounded, many-producer/single-consumer FIFO of
// outgoing requests (spec §5: "mutex + condition variable; unbounded
// (no backpressure beyond memory)"). A channel would also work, but a
// plain mutex+cond queue is the simpler of the two legitimate choices
// spec §9 calls out, and it makes the "unbounded" property explicit
// rather than bounded by a channel's buffer.
type requestQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []wire.Request
}

func newRequestQueue() *requestQueue {
	q := &requestQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *requestQueue) push(r wire.Request) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.mu.Unlock()
	q.cond.Signal()
}

// pop blocks until an item is available.
func (q *requestQueue) pop() wire.Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		q.cond.Wait()
	}

	r := q.items[0]
	q.items[0] = wire.Request{}
	q.items = q.items[1:]
	return r
}
