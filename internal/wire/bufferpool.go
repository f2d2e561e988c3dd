package wire

import "sync"

// Buffer size thresholds for the frame payload pool, adapted from the
// teacher's internal/queue.BufferPool: size-bucketed sync.Pools using
// power-of-two sizes so ReadFrame's hot path (decoding StackArg
// payloads and bulk copy-in/copy-out data) doesn't allocate a fresh
// slice for every large frame.
const (
	size64k  = 64 * 1024
	size256k = 256 * 1024
	size1m   = 1024 * 1024
	size4m   = 4 * 1024 * 1024
)

var framePool = struct {
	pool64k  sync.Pool
	pool256k sync.Pool
	pool1m   sync.Pool
	pool4m   sync.Pool
}{
	pool64k:  sync.Pool{New: func() any { b := make([]byte, size64k); return &b }},
	pool256k: sync.Pool{New: func() any { b := make([]byte, size256k); return &b }},
	pool1m:   sync.Pool{New: func() any { b := make([]byte, size1m); return &b }},
	pool4m:   sync.Pool{New: func() any { b := make([]byte, size4m); return &b }},
}

// getFrameBuffer returns a buffer of length size from the smallest
// bucket that fits it; sizes up to 64KiB, tiny control frames included,
// come from the 64KiB pool. Above the largest bucket (4MiB) it allocates
// directly. Call putFrameBuffer when the buffer is no longer needed.
func getFrameBuffer(size uint32) []byte {
	switch {
	case size <= size64k:
		return (*framePool.pool64k.Get().(*[]byte))[:size]
	case size <= size256k:
		return (*framePool.pool256k.Get().(*[]byte))[:size]
	case size <= size1m:
		return (*framePool.pool1m.Get().(*[]byte))[:size]
	case size <= size4m:
		return (*framePool.pool4m.Get().(*[]byte))[:size]
	default:
		return make([]byte, size)
	}
}

func putFrameBuffer(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case size64k:
		framePool.pool64k.Put(&buf)
	case size256k:
		framePool.pool256k.Put(&buf)
	case size1m:
		framePool.pool1m.Put(&buf)
	case size4m:
		framePool.pool4m.Put(&buf)
	}
}
