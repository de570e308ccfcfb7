package mredis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mediocregopher/atom/merr"
	"github.com/mediocregopher/radix/v3"
)

// Network identifies which sub-queue of the ConnPool a connection belongs to.
// Atom elements may talk to Redis over a unix socket (same host, low
// latency) or over tcp (remote Redis), and each transport gets its own
// sub-queue of idle connections and waiters. Both sub-queues draw on one
// combined connection ceiling, so a burst on one transport can use up the
// room the other would need to grow.
type Network string

const (
	NetworkUnix Network = "unix"
	NetworkTCP  Network = "tcp"
)

// ErrMaxConnectionsExceeded is returned by Init when the combined number of
// unix and tcp connections requested exceeds the pool's configured maximum,
// matching ConnectionPool::init in the original C++ implementation.
var ErrMaxConnectionsExceeded = errors.New("number of unix and tcp connections requested exceeds the configured maximum")

// subqueue holds the idle connections and blocked waiters for one Network.
// Its live count only tracks connections belonging to this network; the cap
// that gates growth is the owning ConnPool's combined live count across both
// sub-queues.
type subqueue struct {
	network string
	addr    string
	live    int
	idle    []radix.Conn
	waiters []chan struct{}
}

// signalLocked wakes the oldest waiter on this sub-queue, if any. The
// caller's ConnPool.mu must be held.
func (q *subqueue) signalLocked() {
	if len(q.waiters) == 0 {
		return
	}
	ch := q.waiters[0]
	q.waiters = q.waiters[1:]
	close(ch)
}

// ConnPool is a bounded pool of radix.Conn split into a unix-socket
// sub-queue and a tcp sub-queue, per spec section 4.4: the two sub-queues
// grow independently, one connection "batch" at a time, but their combined
// live connection count never exceeds max.
type ConnPool struct {
	mu   sync.Mutex
	max  int
	unix subqueue
	tcp  subqueue
}

// NewConnPool builds a ConnPool. unixAddr and tcpAddr are Redis addresses for
// each transport (either may be left empty if that transport won't be used);
// max bounds the combined number of live unix+tcp connections the pool may
// hold at once.
func NewConnPool(unixAddr, tcpAddr string, max int) *ConnPool {
	if max <= 0 {
		max = 1
	}
	return &ConnPool{
		max:  max,
		unix: subqueue{network: string(NetworkUnix), addr: unixAddr},
		tcp:  subqueue{network: string(NetworkTCP), addr: tcpAddr},
	}
}

func (p *ConnPool) subqueue(n Network) *subqueue {
	if n == NetworkUnix {
		return &p.unix
	}
	return &p.tcp
}

// liveTotalLocked returns the combined live connection count across both
// sub-queues. p.mu must be held.
func (p *ConnPool) liveTotalLocked() int {
	return p.unix.live + p.tcp.live
}

// Init eagerly dials numUnix unix connections and numTCP tcp connections and
// stashes them idle, matching ConnectionPool::init in the original
// implementation. It's meant to be called once, before any concurrent Get,
// to pre-warm a pool to the element's num_unix/num_tcp configuration. It
// fails without dialing anything if the combined request exceeds max.
func (p *ConnPool) Init(numUnix, numTCP int) error {
	p.mu.Lock()
	if numUnix+numTCP > p.max {
		p.mu.Unlock()
		return merr.Wrap(ErrMaxConnectionsExceeded, context.Background())
	}
	p.mu.Unlock()

	if err := p.dialInto(&p.unix, numUnix); err != nil {
		return err
	}
	return p.dialInto(&p.tcp, numTCP)
}

func (p *ConnPool) dialInto(q *subqueue, n int) error {
	for i := 0; i < n; i++ {
		c, err := radix.Dial(q.network, q.addr)
		if err != nil {
			return merr.Wrap(err, context.Background())
		}
		p.mu.Lock()
		q.live++
		q.idle = append(q.idle, c)
		p.mu.Unlock()
	}
	return nil
}

// dialBatch dials up to n connections for network/addr, stopping early (but
// without error) if a dial fails after at least one has succeeded, mirroring
// the original's resize_unix/resize_tcp, which logs and carries on with
// however many of the doubled batch actually connected.
func dialBatch(network, addr string, n int) ([]radix.Conn, error) {
	conns := make([]radix.Conn, 0, n)
	for i := 0; i < n; i++ {
		c, err := radix.Dial(network, addr)
		if err != nil {
			if len(conns) == 0 {
				return nil, merr.Wrap(err, context.Background())
			}
			break
		}
		conns = append(conns, c)
	}
	return conns, nil
}

// Get acquires a connection on the given Network, waiting up to timeout
// (zero means wait forever) if the pool is already at its combined cap and
// none are idle on this Network.
func (p *ConnPool) Get(ctx context.Context, n Network, timeout time.Duration) (radix.Conn, error) {
	p.mu.Lock()
	q := p.subqueue(n)

	if i := len(q.idle); i > 0 {
		c := q.idle[i-1]
		q.idle = q.idle[:i-1]
		p.mu.Unlock()
		return c, nil
	}

	// Grow by doubling this sub-queue's current size (at least one
	// connection), capped to whatever room is left in the pool's combined
	// budget, per spec section 4.4 / resize_unix/resize_tcp.
	if room := p.max - p.liveTotalLocked(); room > 0 {
		batch := q.live
		if batch == 0 {
			batch = 1
		}
		if batch > room {
			batch = room
		}
		network, addr := q.network, q.addr
		p.mu.Unlock()

		conns, err := dialBatch(network, addr, batch)

		p.mu.Lock()
		q.live += len(conns)
		if len(conns) == 0 {
			p.mu.Unlock()
			return nil, err
		}
		c := conns[len(conns)-1]
		q.idle = append(q.idle, conns[:len(conns)-1]...)
		p.mu.Unlock()
		return c, nil
	}

	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	p.mu.Unlock()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timeoutCh = t.C
	}

	select {
	case <-ch:
		return p.Get(ctx, n, timeout)
	case <-timeoutCh:
		return nil, merr.Wrap(ErrTimeout, context.Background())
	case <-ctx.Done():
		return nil, merr.Wrap(ctx.Err(), context.Background())
	}
}

// Put returns a connection to the sub-queue's idle list. Connections are
// never validated or discarded here -- a connection that broke while in use
// is handed back as-is, to be caught (and replaced) the next time a command
// is actually sent over it. This matches spec section 4.4's "no connection
// health-checking on release" rule: health is discovered lazily, not probed.
func (p *ConnPool) Put(n Network, c radix.Conn) {
	p.mu.Lock()
	q := p.subqueue(n)
	q.idle = append(q.idle, c)
	q.signalLocked()
	p.mu.Unlock()
}

// Discard closes a connection previously obtained from Get and removes it
// from its sub-queue's live count (and so the pool's combined live count),
// freeing room for a fresh dial on either Network.
func (p *ConnPool) Discard(n Network, c radix.Conn) {
	_ = c.Close()
	p.mu.Lock()
	q := p.subqueue(n)
	q.live--
	q.signalLocked()
	p.mu.Unlock()
}

// Live returns the number of live (idle + checked-out) connections on the
// given Network, for testing the cap invariant.
func (p *ConnPool) Live(n Network) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subqueue(n).live
}
