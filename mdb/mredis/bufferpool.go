package mredis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mediocregopher/atom/merr"
)

// ErrTimeout is returned (wrapped in a merr.Error) whenever a bounded wait on
// a pool -- buffer or connection -- expires before a resource became
// available. Callers can test for it with errors.Is.
var ErrTimeout = errors.New("timed out waiting for pooled resource")

// Buffer is a reusable, refcounted scratch area handed out by a BufferPool.
// Reply decoding in this package does not write into Data: decoded entry
// keys/values are copied into each StreamEntry, so they hold no reference
// to a Buffer. The atom package uses Buffers as read slots that bound how
// many blocking reads run at once (atom.Element.AcquireReadSlot).
//
// A Buffer is handed out with a refcount of 1; additional holders should
// call Retain, and every holder must eventually call Release exactly once.
type Buffer struct {
	Data []byte

	pool     *BufferPool
	refcount int32
}

// Reset truncates Data to zero length without releasing its backing array,
// so subsequent appends reuse the existing allocation.
func (b *Buffer) Reset() {
	b.Data = b.Data[:0]
}

// Retain increments the Buffer's refcount. Every Retain must be matched by a
// Release.
func (b *Buffer) Retain() {
	b.pool.mu.Lock()
	b.refcount++
	b.pool.mu.Unlock()
}

// Release decrements the Buffer's refcount. Once the refcount reaches zero
// the Buffer becomes eligible to be vended by a future Acquire, and one
// waiter (if any) is woken.
func (b *Buffer) Release() {
	b.pool.mu.Lock()
	b.refcount--
	if b.refcount < 0 {
		b.refcount = 0
	}
	if b.refcount == 0 {
		b.pool.signalLocked()
	}
	b.pool.mu.Unlock()
}

// BufferPool is a fixed-ceiling pool of Buffers. It grows lazily (allocating
// a new Buffer on Acquire) until Cap buffers exist, after which Acquire
// blocks for a buffer to be Released, up to the given timeout.
//
// BufferPool satisfies the invariants of spec section 4.3: at most Cap
// buffers are ever live, a buffer with a nonzero refcount is never vended,
// and waiters are served FIFO.
type BufferPool struct {
	mu      sync.Mutex
	cap     int
	all     []*Buffer
	waiters []chan struct{}
}

// NewBufferPool returns a BufferPool which will never hold more than cap
// live Buffers.
func NewBufferPool(cap int) *BufferPool {
	if cap <= 0 {
		cap = 1
	}
	return &BufferPool{cap: cap}
}

// signalLocked wakes the oldest waiter, if any. mu must be held.
func (p *BufferPool) signalLocked() {
	if len(p.waiters) == 0 {
		return
	}
	ch := p.waiters[0]
	p.waiters = p.waiters[1:]
	close(ch)
}

func (p *BufferPool) findFreeLocked() *Buffer {
	for _, b := range p.all {
		if b.refcount == 0 {
			return b
		}
	}
	return nil
}

// Acquire returns a free Buffer with its refcount set to 1. If none is free
// and the pool is below Cap, a new Buffer is allocated. Otherwise Acquire
// waits, FIFO, for a Release, up to timeout (zero means wait forever). A
// timed-out wait returns a *Timeout error.
func (p *BufferPool) Acquire(ctx context.Context, timeout time.Duration) (*Buffer, error) {
	p.mu.Lock()

	if b := p.findFreeLocked(); b != nil {
		b.refcount = 1
		p.mu.Unlock()
		return b, nil
	}

	if len(p.all) < p.cap {
		b := &Buffer{pool: p, refcount: 1}
		p.all = append(p.all, b)
		p.mu.Unlock()
		return b, nil
	}

	ch := make(chan struct{})
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timeoutCh = t.C
	}

	select {
	case <-ch:
		return p.Acquire(ctx, timeout)
	case <-timeoutCh:
		return nil, merr.Wrap(ErrTimeout, context.Background())
	case <-ctx.Done():
		return nil, merr.Wrap(ctx.Err(), context.Background())
	}
}

// Live returns the number of Buffers currently allocated by the pool
// (whether free or held), for testing the cap invariant.
func (p *BufferPool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.all)
}
